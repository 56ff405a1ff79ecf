package model

import (
	"maps"
	"slices"
	"time"
)

// ReadOnlyKey is the reserved key of an ExtEntry that sets the read-only
// flag of the other keys of the same entry.
const ReadOnlyKey = "read_only"

// ExtEntry is one flat extended-attribute entry as reported by asset finders,
// for example {"model": "9PX", "read_only": "true"}.
type ExtEntry map[string]string

// Sensor is a device attached to a discovered asset.
type Sensor struct {
	Type    string     `json:"type" yaml:"type"`
	Subtype string     `json:"subtype" yaml:"subtype"`
	Ext     []ExtEntry `json:"ext,omitempty" yaml:"ext,omitempty"`
}

// DiscoveredAsset is a device found on a host by an asset finder.
type DiscoveredAsset struct {
	Type    string     `json:"type" yaml:"type"`
	Subtype string     `json:"subtype" yaml:"subtype"`
	Ext     []ExtEntry `json:"ext,omitempty" yaml:"ext,omitempty"`
	Sensors []Sensor   `json:"sensors,omitempty" yaml:"sensors,omitempty"`
}

// ExtAttribute is a merged extended attribute of a CreateRequest.
type ExtAttribute struct {
	Value    string `json:"value"`
	ReadOnly bool   `json:"readOnly"`
}

// ExtMap maps attribute names to their merged values.
type ExtMap map[string]ExtAttribute

// Clone returns a copy of the map.
func (m ExtMap) Clone() ExtMap {
	if m == nil {
		return ExtMap{}
	}
	return maps.Clone(m)
}

// AssetStatus is the operational status of a created asset.
type AssetStatus int

const (
	// AssetStatusActive assets are monitored right away.
	AssetStatusActive AssetStatus = 1
	// AssetStatusNonactive assets wait for an operator to activate them.
	AssetStatusNonactive AssetStatus = 2
)

// String returns the registry name of the status.
func (s AssetStatus) String() string {
	if s == AssetStatusActive {
		return "active"
	}
	return "nonactive"
}

// MarshalText implements encoding.TextMarshaler.
func (s AssetStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AssetStatus) UnmarshalText(text []byte) error {
	if string(text) == "active" {
		*s = AssetStatusActive
	} else {
		*s = AssetStatusNonactive
	}
	return nil
}

// CreateRequest is the input of the asset registry for one asset or sensor.
type CreateRequest struct {
	Type     string      `json:"type"`
	Subtype  string      `json:"subtype"`
	Status   AssetStatus `json:"status"`
	Priority int         `json:"priority"`
	Parent   string      `json:"parent,omitempty"`
	Linked   []PowerLink `json:"linked,omitempty"`
	Ext      ExtMap      `json:"ext,omitempty"`
}

// Asset is an asset stored in the registry.
type Asset struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Subtype   string      `json:"subtype"`
	Status    AssetStatus `json:"status"`
	Priority  int         `json:"priority"`
	Parent    string      `json:"parent,omitempty"`
	Linked    []PowerLink `json:"linked,omitempty"`
	Ext       ExtMap      `json:"ext,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// HostResult is the outcome of the scan task of one address.
type HostResult struct {
	Address    string              `json:"address"`
	Candidates []ProtocolCandidate `json:"candidates,omitempty"`
	Protocol   string              `json:"protocol,omitempty"`
	Port       uint16              `json:"port,omitempty"`
	Credential string              `json:"credential,omitempty"`
	Assets     []DiscoveredAsset   `json:"-"`
	Created    []string            `json:"created,omitempty"`
	Error      string              `json:"error,omitempty"`
	Steps      []string            `json:"-"`
}

// NewHostResult returns an empty result for address.
func NewHostResult(address string) *HostResult {
	return &HostResult{
		Address:    address,
		Candidates: make([]ProtocolCandidate, 0),
		Created:    make([]string, 0),
	}
}

// Found reports whether the task matched a protocol and credential.
func (r *HostResult) Found() bool {
	return r.Protocol != ""
}

// Clone returns a copy that does not share slices with r.
func (r *HostResult) Clone() HostResult {
	c := *r
	c.Candidates = slices.Clone(r.Candidates)
	c.Created = slices.Clone(r.Created)
	c.Assets = slices.Clone(r.Assets)
	c.Steps = slices.Clone(r.Steps)
	return c
}

// CampaignRecord is the persisted summary of a finished campaign.
type CampaignRecord struct {
	ID         string           `json:"id"`
	Request    DiscoveryRequest `json:"request"`
	Status     CampaignStatus   `json:"status"`
	Cancelled  bool             `json:"cancelled"`
	Stuck      bool             `json:"stuck"`
	Addresses  int              `json:"addresses"`
	Hosts      []HostResult     `json:"hosts,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Duration returns how long the campaign ran.
func (c CampaignRecord) Duration() time.Duration {
	if c.FinishedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}
