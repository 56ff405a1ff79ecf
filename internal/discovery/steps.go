package discovery

import (
	"context"
	"log/slog"

	"github.com/nao1215/powerdisco/internal/model"
)

// probeStep lists the protocols of the host.
type probeStep struct {
	prober Prober
	filter []string
}

func (s *probeStep) Name() string { return "probe" }

func (s *probeStep) Do(ctx context.Context, host *model.HostResult) error {
	candidates, err := s.prober.Probe(ctx, host.Address, s.filter)
	if err != nil {
		return err
	}
	host.Candidates = candidates
	return nil
}

// discoverStep searches the assets of the host: reachable protocols in
// priority order, then credentials in request order. The first non-empty
// result wins.
type discoverStep struct {
	finder      AssetFinder
	credentials []string
	logger      *slog.Logger
}

func (s *discoverStep) Name() string { return "discover" }

func (s *discoverStep) Do(ctx context.Context, host *model.HostResult) error {
	credentials := s.credentials
	if len(credentials) == 0 {
		credentials = []string{""}
	}

	for _, cand := range host.Candidates {
		if !cand.Reachable {
			continue
		}
		for _, cred := range credentials {
			if err := ctx.Err(); err != nil {
				return err
			}

			s.logger.Info("try protocol",
				"address", host.Address,
				"protocol", cand.Protocol,
				"port", cand.Port,
				"credential_id", cred,
			)
			assets, err := s.finder.FindAssets(ctx, model.AssetQuery{
				Address:    host.Address,
				Protocol:   cand.Protocol,
				Port:       cand.Port,
				Credential: cred,
			})
			if err != nil {
				s.logger.Info("asset search failed",
					"address", host.Address,
					"protocol", cand.Protocol,
					"credential_id", cred,
					"error", err,
				)
				continue
			}
			if len(assets) == 0 {
				continue
			}

			s.logger.Info("found assets",
				"address", host.Address,
				"protocol", cand.Protocol,
				"credential_id", cred,
				"assets", len(assets),
			)
			host.Protocol = cand.Protocol
			host.Port = cand.Port
			host.Credential = cred
			host.Assets = assets
			return nil
		}
	}
	return nil
}

// registerStep creates the assets found on the host and their sensors.
type registerStep struct {
	o *Orchestrator
	c *campaign
}

func (s *registerStep) Name() string { return "register" }

func (s *registerStep) Do(ctx context.Context, host *model.HostResult) error {
	for _, asset := range host.Assets {
		name, ok := s.o.createAsset(ctx, s.c, host, s.o.assetRequest(ctx, s.c, host.Address, asset))
		if !ok {
			continue
		}
		s.o.updateDiscoveryCounters(s.c, asset.Subtype)

		for _, sensor := range asset.Sensors {
			if _, ok := s.o.createAsset(ctx, s.c, host, s.o.sensorRequest(s.c, name, sensor)); !ok {
				continue
			}
			s.o.updateDiscoveryCounters(s.c, sensor.Subtype)
		}
	}
	return nil
}
