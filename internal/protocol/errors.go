package protocol

import "errors"

var (
	// ErrHostUnavailable is returned by Prober.Probe when the host did not
	// pass the availability check. No protocol was probed.
	ErrHostUnavailable = errors.New("host is not available")

	// ErrProbe wraps the failure of a single protocol probe.
	ErrProbe = errors.New("probe failed")
)
