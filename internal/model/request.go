package model

import "slices"

// DiscoveryKind selects how the address worklist of a campaign is built.
type DiscoveryKind string

const (
	// KindExplicitIPs scans the addresses listed in DiscoveryRequest.IPs.
	KindExplicitIPs DiscoveryKind = "ip"

	// KindNamedRanges scans every address of every range in DiscoveryRequest.Ranges.
	KindNamedRanges DiscoveryKind = "multi"

	// KindFull scans the union of the explicit addresses and the ranges.
	KindFull DiscoveryKind = "full"

	// KindLocal scans the subnets of the local network interfaces.
	KindLocal DiscoveryKind = "local"
)

// Valid reports whether k is one of the known discovery kinds.
func (k DiscoveryKind) Valid() bool {
	switch k {
	case KindExplicitIPs, KindNamedRanges, KindFull, KindLocal:
		return true
	default:
		return false
	}
}

// NoSource is the placeholder used by clients for "no power source" and
// "no parent". Links with this source are ignored and a parent with this
// value is treated as empty.
const NoSource = "0"

// PowerLink is a power relation wired onto every created asset.
type PowerLink struct {
	// Source is the asset name of the power source.
	Source string `json:"src" yaml:"src"`

	// Type is the link type identifier understood by the registry.
	Type int `json:"type" yaml:"type"`
}

// DiscoveryRequest describes one discovery campaign.
// The orchestrator stores a copy when the campaign starts; later changes by
// the caller have no effect on the running campaign.
type DiscoveryRequest struct {
	// Kind selects how the worklist is built.
	Kind DiscoveryKind `json:"type" yaml:"type"`

	// IPs are explicit addresses (KindExplicitIPs, KindFull).
	IPs []string `json:"ips,omitempty" yaml:"ips,omitempty"`

	// Ranges are address ranges such as "10.0.0.0/24" or
	// "10.0.0.1-10.0.0.20" (KindNamedRanges, KindFull).
	Ranges []string `json:"ranges,omitempty" yaml:"ranges,omitempty"`

	// Protocols optionally restricts which protocols are probed.
	// An empty list probes every supported protocol.
	Protocols []string `json:"protocols,omitempty" yaml:"protocols,omitempty"`

	// Credentials are credential ids tried in order for each reachable protocol.
	Credentials []string `json:"credentials,omitempty" yaml:"credentials,omitempty"`

	// Links are default power links applied to every created asset.
	Links []PowerLink `json:"links,omitempty" yaml:"links,omitempty"`

	// Priority is copied onto every created asset.
	Priority int `json:"priority" yaml:"priority"`

	// Parent is the parent asset of every created asset. NoSource means none.
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`

	// DeviceCentric creates assets as active instead of nonactive.
	DeviceCentric bool `json:"device_centric" yaml:"device_centric"`
}

// Clone returns a deep copy of the request.
func (r DiscoveryRequest) Clone() DiscoveryRequest {
	c := r
	c.IPs = slices.Clone(r.IPs)
	c.Ranges = slices.Clone(r.Ranges)
	c.Protocols = slices.Clone(r.Protocols)
	c.Credentials = slices.Clone(r.Credentials)
	c.Links = slices.Clone(r.Links)
	return c
}

// ParentName returns the parent asset name with NoSource mapped to "".
func (r DiscoveryRequest) ParentName() string {
	if r.Parent == NoSource {
		return ""
	}
	return r.Parent
}

// DefaultLinks returns the power links to wire onto created assets,
// skipping links that have no source.
func (r DiscoveryRequest) DefaultLinks() []PowerLink {
	links := make([]PowerLink, 0, len(r.Links))
	for _, l := range r.Links {
		if l.Source == NoSource || l.Source == "" {
			continue
		}
		links = append(links, l)
	}
	return links
}

// AssetStatus returns the status given to created assets.
func (r DiscoveryRequest) AssetStatus() AssetStatus {
	if r.DeviceCentric {
		return AssetStatusActive
	}
	return AssetStatusNonactive
}
