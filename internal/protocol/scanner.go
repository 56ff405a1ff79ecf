package protocol

import (
	"context"

	"github.com/nao1215/powerdisco/internal/model"
)

// Scanner defines the interface for protocol-specific probes.
// Each management protocol must provide this interface to be used by the
// Prober.
type Scanner interface {
	// Scan probes address:port for the protocol.
	// A nil error means the protocol answered; the returned availability
	// says how sure the scanner is about the protocol identity.
	//
	// Implementations must respect context cancellation and must release
	// every socket they open before returning.
	Scan(ctx context.Context, address string, port uint16) (model.Availability, error)

	// Protocol returns the protocol identifier (e.g., "nut_snmp").
	Protocol() string

	// DefaultPort returns the port probed by the Prober.
	DefaultPort() uint16
}
