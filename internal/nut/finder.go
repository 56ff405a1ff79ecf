package nut

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/model"
	"github.com/nao1215/powerdisco/internal/protocol"
)

// Finder looks up the devices behind a protocol by running its NUT driver.
type Finder struct {
	runner *Runner
	creds  config.CredentialStore
	logger *slog.Logger
}

// NewFinder creates a Finder. creds resolves the credential ids of queries.
func NewFinder(runner *Runner, creds config.CredentialStore, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{runner: runner, creds: creds, logger: logger}
}

// FindAssets runs the driver of q.Protocol against q.Address.
// The sentinel address of the protocol prober yields a canned UPS with one
// sensor so that campaigns can be exercised without devices.
func (f *Finder) FindAssets(ctx context.Context, q model.AssetQuery) ([]model.DiscoveredAsset, error) {
	if q.Address == protocol.SentinelAddress {
		return withEndpoint(sentinelAssets(), q), nil
	}

	var cred *config.Credential
	if q.Credential != "" {
		c, err := f.creds.Credential(q.Credential)
		if err != nil {
			return nil, err
		}
		cred = &c
	}

	cmd, err := f.runner.Command(q, cred)
	if err != nil {
		return nil, err
	}

	out, err := f.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", q.Protocol, q.Address, err)
	}

	assets := Assets(ParseDump(out))
	f.logger.Debug("driver dump mapped",
		"address", q.Address,
		"protocol", q.Protocol,
		"assets", len(assets),
	)
	return withEndpoint(assets, q), nil
}

// withEndpoint records how each asset was reached so that monitoring can
// reuse the same protocol, port and credential.
func withEndpoint(assets []model.DiscoveredAsset, q model.AssetQuery) []model.DiscoveredAsset {
	for i := range assets {
		ext := []model.ExtEntry{
			{"ip.1": q.Address},
			{"endpoint.1.protocol": q.Protocol},
			{"endpoint.1.port": strconv.Itoa(int(q.Port))},
		}
		if q.Credential != "" {
			ext = append(ext, model.ExtEntry{"endpoint.1." + q.Protocol + ".secw_credential_id": q.Credential})
		}
		assets[i].Ext = append(assets[i].Ext, ext...)
	}
	return assets
}

func sentinelAssets() []model.DiscoveredAsset {
	return []model.DiscoveredAsset{{
		Type:    "device",
		Subtype: model.SubtypeUPS.String(),
		Ext: []model.ExtEntry{
			{"manufacturer": "EATON", model.ReadOnlyKey: "true"},
			{"model": "9PX 6000i", model.ReadOnlyKey: "true"},
			{"serial_no": "G202D51029", model.ReadOnlyKey: "true"},
		},
		Sensors: []model.Sensor{{
			Type:    "device",
			Subtype: model.SubtypeSensor.String(),
			Ext: []model.ExtEntry{
				{"external_port": "1", model.ReadOnlyKey: "true"},
				{"model": "EMPDT1H1C2", model.ReadOnlyKey: "true"},
			},
		}},
	}}
}
