package server

import (
	"context"

	"github.com/nao1215/powerdisco/internal/database"
	"github.com/nao1215/powerdisco/internal/model"
)

// Campaigns is the orchestrator surface driven by the API.
type Campaigns interface {
	Start(ctx context.Context, req model.DiscoveryRequest) error
	Stop() error
	Status() model.CampaignStatus
	Results() []model.HostResult
	CampaignID() string
}

// ProtocolProber identifies the management protocols of one host.
type ProtocolProber interface {
	Probe(ctx context.Context, address string, filter []string) ([]model.ProtocolCandidate, error)
}

// AssetLister reads assets from the registry.
type AssetLister interface {
	ListAssets(ctx context.Context, filter database.AssetFilter) ([]model.Asset, error)
}

// CampaignHistory reads recorded campaigns.
type CampaignHistory interface {
	ListCampaigns(ctx context.Context, limit int) ([]model.CampaignRecord, error)
}

// StatusResponse is returned by the status, start and stop endpoints.
type StatusResponse struct {
	CampaignID string `json:"campaign_id,omitempty"`
	model.CampaignStatus
}

// ProtocolsRequest asks for the protocols available on one address.
type ProtocolsRequest struct {
	Address   string   `json:"address" binding:"required"`
	Protocols []string `json:"protocols,omitempty"`
}

// ProtocolsResponse lists the probe outcome per protocol, in priority order.
type ProtocolsResponse struct {
	Address    string                    `json:"address"`
	Candidates []model.ProtocolCandidate `json:"candidates"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
