package discovery

import (
	"context"

	"github.com/nao1215/powerdisco/internal/model"
)

// AssetCreator registers assets. CreateAsset returns the name given to the
// asset by the registry.
type AssetCreator interface {
	CreateAsset(ctx context.Context, req model.CreateRequest) (string, error)
	Close() error
}

// Dialer connects to the asset registry at endpoint. agent is recorded as
// the creator of every asset.
type Dialer func(ctx context.Context, endpoint, agent string) (AssetCreator, error)

// Prober lists the management protocols of a host in priority order.
type Prober interface {
	Probe(ctx context.Context, address string, filter []string) ([]model.ProtocolCandidate, error)
}

// AssetFinder enumerates the devices reachable through one protocol and
// credential.
type AssetFinder interface {
	FindAssets(ctx context.Context, q model.AssetQuery) ([]model.DiscoveredAsset, error)
}

// RangeExpander turns address ranges into address lists.
type RangeExpander interface {
	Expand(ctx context.Context, rng string) ([]string, error)
	Local(ctx context.Context) ([]string, error)
}

// Resolver performs reverse lookups. *net.Resolver satisfies it.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// CampaignRecorder stores the summary of finished campaigns.
type CampaignRecorder interface {
	RecordCampaign(ctx context.Context, rec model.CampaignRecord) error
}
