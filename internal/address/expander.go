package address

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// DefaultMaxAddresses bounds the size of one expanded range (a /16).
const DefaultMaxAddresses = 1 << 16

// Expander turns ranges into address lists.
type Expander struct {
	maxAddresses int
	interfaces   func() ([]netip.Prefix, error)
	logger       *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander)

// WithMaxAddresses sets the largest accepted range.
func WithMaxAddresses(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.maxAddresses = n
		}
	}
}

// WithInterfacePrefixes replaces the lookup of local interface prefixes.
func WithInterfacePrefixes(fn func() ([]netip.Prefix, error)) Option {
	return func(e *Expander) {
		e.interfaces = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		e.logger = logger
	}
}

// NewExpander creates an Expander.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		maxAddresses: DefaultMaxAddresses,
		interfaces:   interfacePrefixes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns every address of rng in ascending order.
func (e *Expander) Expand(ctx context.Context, rng string) ([]string, error) {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	switch {
	case strings.Contains(rng, "/"):
		prefix, err := netip.ParsePrefix(rng)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRange, rng, err)
		}
		return e.expandPrefix(ctx, prefix)

	case strings.Contains(rng, "-"):
		first, last, err := parseDashRange(rng)
		if err != nil {
			return nil, err
		}
		return e.expandSpan(ctx, first, last)

	default:
		addr, err := netip.ParseAddr(rng)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRange, rng, err)
		}
		return []string{addr.String()}, nil
	}
}

// Local returns the addresses of the local IPv4 subnets, excluding the
// addresses of the host itself.
func (e *Expander) Local(ctx context.Context) ([]string, error) {
	prefixes, err := e.interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	own := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		own[p.Addr().String()] = struct{}{}
	}

	seen := make(map[netip.Prefix]struct{}, len(prefixes))
	var out []string
	for _, p := range prefixes {
		if !p.Addr().Is4() || p.Addr().IsLoopback() || p.Addr().IsLinkLocalUnicast() {
			continue
		}
		masked := p.Masked()
		if _, ok := seen[masked]; ok {
			continue
		}
		seen[masked] = struct{}{}

		addrs, err := e.expandPrefix(ctx, masked)
		if err != nil {
			e.logger.Warn("skipping local subnet", "subnet", masked.String(), "error", err)
			continue
		}
		for _, a := range addrs {
			if _, mine := own[a]; !mine {
				out = append(out, a)
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoLocalNetwork
	}
	return out, nil
}

func (e *Expander) expandPrefix(ctx context.Context, prefix netip.Prefix) ([]string, error) {
	prefix = prefix.Masked()
	first := prefix.Addr()
	last := lastAddr(prefix)

	// Network and broadcast addresses are not hosts on IPv4 subnets larger
	// than a point-to-point link.
	if first.Is4() && prefix.Bits() < 31 {
		first = first.Next()
		last = last.Prev()
	}
	return e.expandSpan(ctx, first, last)
}

func (e *Expander) expandSpan(ctx context.Context, first, last netip.Addr) ([]string, error) {
	if first.BitLen() != last.BitLen() {
		return nil, fmt.Errorf("%w: mixed address families", ErrInvalidRange)
	}
	if last.Less(first) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, first, last)
	}

	out := make([]string, 0, 16)
	for a := first; ; a = a.Next() {
		if len(out) >= e.maxAddresses {
			return nil, fmt.Errorf("%w: more than %d addresses", ErrRangeTooLarge, e.maxAddresses)
		}
		if len(out)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, a.String())
		if a == last {
			return out, nil
		}
	}
}

func parseDashRange(rng string) (netip.Addr, netip.Addr, error) {
	start, end, _ := strings.Cut(rng, "-")
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)

	first, err := netip.ParseAddr(start)
	if err != nil {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, rng, err)
	}

	if last, err := netip.ParseAddr(end); err == nil {
		return first, last, nil
	}

	// "10.0.0.10-40": the end replaces the last octet.
	octet, err := strconv.ParseUint(end, 10, 8)
	if err != nil || !first.Is4() {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidRange, rng)
	}
	b := first.As4()
	b[3] = byte(octet)
	return first, netip.AddrFrom4(b), nil
}

func lastAddr(prefix netip.Prefix) netip.Addr {
	b := prefix.Addr().AsSlice()
	bits := prefix.Bits()
	for i := range b {
		switch {
		case bits >= 8:
			bits -= 8
		case bits > 0:
			b[i] |= byte(0xff >> bits)
			bits = 0
		default:
			b[i] = 0xff
		}
	}
	addr, _ := netip.AddrFromSlice(b)
	return addr
}

func interfacePrefixes() ([]netip.Prefix, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	out := make([]netip.Prefix, 0, len(addrs))
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipNet.IP)
		if !ok {
			continue
		}
		ones, _ := ipNet.Mask.Size()
		addr = addr.Unmap()
		if addr.Is4() && ones > 32 {
			ones -= 96
		}
		out = append(out, netip.PrefixFrom(addr, ones))
	}
	return out, nil
}
