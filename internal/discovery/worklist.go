package discovery

import (
	"context"
	"fmt"
	"slices"

	"github.com/nao1215/powerdisco/internal/model"
)

// worklist holds the addresses of a campaign that were not dispatched yet.
type worklist struct {
	addresses []string
}

// pop removes and returns the next address.
func (w *worklist) pop() (string, bool) {
	if len(w.addresses) == 0 {
		return "", false
	}
	addr := w.addresses[0]
	w.addresses[0] = ""
	w.addresses = w.addresses[1:]
	return addr, true
}

func (w *worklist) len() int {
	return len(w.addresses)
}

// buildWorklist expands req into addresses. It touches no campaign state so
// that a failing Start leaves the orchestrator as it was.
// Duplicate addresses are kept.
func (o *Orchestrator) buildWorklist(ctx context.Context, req model.DiscoveryRequest) (*worklist, error) {
	switch req.Kind {
	case model.KindExplicitIPs:
		if len(req.IPs) == 0 {
			return nil, fmt.Errorf("%w: ips list empty", ErrConfig)
		}
		return &worklist{addresses: slices.Clone(req.IPs)}, nil

	case model.KindNamedRanges:
		if len(req.Ranges) == 0 {
			return nil, fmt.Errorf("%w: ranges list empty", ErrConfig)
		}
		addrs, failed := o.expandRanges(ctx, req.Ranges)
		if failed == len(req.Ranges) {
			return nil, fmt.Errorf("%w: no range could be expanded", ErrConfig)
		}
		return &worklist{addresses: addrs}, nil

	case model.KindFull:
		if len(req.IPs) == 0 && len(req.Ranges) == 0 {
			return nil, fmt.Errorf("%w: ips and ranges list empty", ErrConfig)
		}
		addrs := slices.Clone(req.IPs)
		expanded, _ := o.expandRanges(ctx, req.Ranges)
		addrs = append(addrs, expanded...)
		if len(addrs) == 0 {
			return nil, fmt.Errorf("%w: no address could be produced", ErrConfig)
		}
		return &worklist{addresses: addrs}, nil

	case model.KindLocal:
		addrs, err := o.expander.Local(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: local network: %w", ErrConfig, err)
		}
		return &worklist{addresses: addrs}, nil

	default:
		return nil, fmt.Errorf("%w: bad scan type %q", ErrConfig, req.Kind)
	}
}

// expandRanges expands every range, logging and skipping the failing ones.
// It returns the addresses and the number of failed ranges.
func (o *Orchestrator) expandRanges(ctx context.Context, ranges []string) ([]string, int) {
	var (
		addrs  []string
		failed int
	)
	for _, rng := range ranges {
		list, err := o.expander.Expand(ctx, rng)
		if err != nil {
			o.logger.Error("failed to expand range", "range", rng, "error", err)
			failed++
			continue
		}
		addrs = append(addrs, list...)
	}
	return addrs, failed
}
