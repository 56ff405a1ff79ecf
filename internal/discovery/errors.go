package discovery

import "errors"

var (
	// ErrInit is returned by New when the asset registry cannot be reached.
	ErrInit = errors.New("discovery init failed")

	// ErrConfig is returned by Start for requests that yield no worklist.
	ErrConfig = errors.New("bad input parameter")

	// ErrConcurrency is returned by Start while a campaign runs and by Stop
	// when none does.
	ErrConcurrency = errors.New("campaign state conflict")

	// ErrAssetCreation is logged when the registry rejects an asset.
	ErrAssetCreation = errors.New("could not create asset")

	// ErrHostName is returned when no host name can be resolved for an address.
	ErrHostName = errors.New("host name lookup failed")

	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("orchestrator is shut down")
)
