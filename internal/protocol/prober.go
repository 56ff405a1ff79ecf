package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/nao1215/powerdisco/internal/model"
)

// SentinelAddress short-circuits Probe to a canned result without any
// network access.
const SentinelAddress = "__fake__"

// SentinelCandidates returns the canned result of SentinelAddress.
func SentinelCandidates() []model.ProtocolCandidate {
	return []model.ProtocolCandidate{
		{Protocol: model.ProtocolSNMP, Port: 1234, Reachable: true, Available: model.AvailabilityYes},
		{Protocol: model.ProtocolXMLPDC, Port: 4321, Reachable: false, Available: model.AvailabilityNo},
	}
}

// Prober runs the protocol scanners against a host in priority order.
// A Prober is safe for concurrent use.
type Prober struct {
	scanners     []Scanner
	checker      HostChecker
	logger       *slog.Logger
	probeTimeout time.Duration
	pingTimeout  time.Duration
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithScanners replaces the default scanners. The order is the priority order.
func WithScanners(scanners ...Scanner) ProberOption {
	return func(p *Prober) {
		p.scanners = scanners
	}
}

// WithHostChecker replaces the default ICMP Pinger.
func WithHostChecker(c HostChecker) ProberOption {
	return func(p *Prober) {
		p.checker = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ProberOption {
	return func(p *Prober) {
		p.logger = logger
	}
}

// WithProbeTimeout sets the HTTP timeout of the default scanners.
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		p.probeTimeout = d
	}
}

// WithHostCheckTimeout sets the timeout of the default Pinger.
func WithHostCheckTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		p.pingTimeout = d
	}
}

// NewProber creates a Prober. Without options it probes nut_powercom on 443,
// nut_xml_pdc on 80 and nut_snmp on 161, after an ICMP availability check.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		logger:       slog.Default(),
		probeTimeout: 5 * time.Second,
		pingTimeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.scanners == nil {
		p.scanners = []Scanner{
			NewPowercomScanner(WithHTTPTimeout(p.probeTimeout)),
			NewXMLPDCScanner(WithHTTPTimeout(p.probeTimeout)),
			NewSNMPScanner(),
		}
	}
	if p.checker == nil {
		p.checker = NewPinger(WithPingTimeout(p.pingTimeout))
	}
	return p
}

// Protocols returns the protocol identifiers in priority order.
func (p *Prober) Protocols() []string {
	names := make([]string, 0, len(p.scanners))
	for _, s := range p.scanners {
		names = append(names, s.Protocol())
	}
	return names
}

// Probe returns one candidate per protocol, in priority order.
//
// filter restricts which protocols are probed; excluded protocols are still
// listed, unreachable. An empty filter probes every protocol.
// Probe fails only when the host is unavailable or ctx is done.
func (p *Prober) Probe(ctx context.Context, address string, filter []string) ([]model.ProtocolCandidate, error) {
	if address == SentinelAddress {
		p.logger.Info("sentinel address, returning canned protocols", "address", address)
		return SentinelCandidates(), nil
	}

	if err := p.checker.Check(ctx, address); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrHostUnavailable, address, err)
	}

	candidates := make([]model.ProtocolCandidate, 0, len(p.scanners))
	for _, s := range p.scanners {
		c := model.NewProtocolCandidate(s.Protocol(), s.DefaultPort())

		if len(filter) > 0 && !slices.Contains(filter, s.Protocol()) {
			candidates = append(candidates, c)
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		avail, err := s.Scan(ctx, address, c.Port)
		if err != nil {
			p.logger.Info("protocol skipped",
				"address", address,
				"protocol", c.Protocol,
				"port", c.Port,
				"error", fmt.Errorf("%w: %w", ErrProbe, err),
			)
		} else {
			p.logger.Info("protocol found",
				"address", address,
				"protocol", c.Protocol,
				"port", c.Port,
				"available", avail.String(),
			)
			c.Reachable = true
			c.Available = avail
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}
