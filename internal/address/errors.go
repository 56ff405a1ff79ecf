package address

import "errors"

var (
	// ErrInvalidRange is returned for a range that cannot be parsed.
	ErrInvalidRange = errors.New("invalid address range")

	// ErrRangeTooLarge is returned when a range holds more addresses than the
	// expander limit.
	ErrRangeTooLarge = errors.New("address range too large")

	// ErrNoLocalNetwork is returned when no interface has a usable IPv4 subnet.
	ErrNoLocalNetwork = errors.New("no local network found")
)
