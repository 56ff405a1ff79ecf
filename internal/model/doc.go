// Package model defines the core data structures shared by the discovery
// packages.
//
// This package contains the following main types:
//   - DiscoveryRequest: what a campaign should scan and how to register results
//   - CampaignStatus: the aggregate state and counters of the running campaign
//   - ProtocolCandidate: one protocol hypothesis tested against a host
//   - DiscoveredAsset: a device reported by the asset finder, with its sensors
//   - CreateRequest: the registry input built for each asset and sensor
//   - HostResult: the per-address outcome of a scan task
//
// Models live in their own package so that the prober, the orchestrator, the
// registry and the report writers can share them without import cycles.
// All types serialize to JSON and YAML for the HTTP API, the configuration
// file and database storage.
package model
