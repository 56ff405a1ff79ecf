// Package server exposes the discovery orchestrator over a small JSON HTTP
// API built on gin: campaign start/stop/status, standalone protocol probing,
// and read access to created assets and campaign history.
package server
