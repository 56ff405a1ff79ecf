package address

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"slices"
	"testing"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestExpand tests every supported notation.
func TestExpand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rng  string
		want []string
	}{
		{"single address", "10.0.0.7", []string{"10.0.0.7"}},
		{"cidr /30 excludes network and broadcast", "10.0.0.0/30", []string{"10.0.0.1", "10.0.0.2"}},
		{"cidr is masked first", "10.0.0.9/30", []string{"10.0.0.9", "10.0.0.10"}},
		{"cidr /31 keeps both", "10.0.0.4/31", []string{"10.0.0.4", "10.0.0.5"}},
		{"cidr /32", "10.0.0.4/32", []string{"10.0.0.4"}},
		{"dash range", "10.0.0.254-10.0.1.1", []string{"10.0.0.254", "10.0.0.255", "10.0.1.0", "10.0.1.1"}},
		{"short dash range", "192.168.1.10-12", []string{"192.168.1.10", "192.168.1.11", "192.168.1.12"}},
		{"spaces", " 10.0.0.1 - 10.0.0.2 ", []string{"10.0.0.1", "10.0.0.2"}},
		{"ipv6 /126", "fd00::/126", []string{"fd00::", "fd00::1", "fd00::2", "fd00::3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewExpander(quiet()).Expand(t.Context(), tt.rng)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestExpand_Errors tests invalid and oversized ranges.
func TestExpand_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rng     string
		max     int
		wantErr error
	}{
		{"empty", "", 0, ErrInvalidRange},
		{"garbage", "lab-rack-3", 0, ErrInvalidRange},
		{"bad cidr", "10.0.0.0/33", 0, ErrInvalidRange},
		{"reversed", "10.0.0.9-10.0.0.1", 0, ErrInvalidRange},
		{"mixed families", "10.0.0.1-fd00::1", 0, ErrInvalidRange},
		{"short range on ipv6", "fd00::1-9", 0, ErrInvalidRange},
		{"too large", "10.0.0.0/24", 100, ErrRangeTooLarge},
		{"ipv4 everything", "0.0.0.0/0", 0, ErrRangeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewExpander(quiet(), WithMaxAddresses(tt.max))
			got, err := e.Expand(t.Context(), tt.rng)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if got != nil {
				t.Errorf("expected nil result, got %d addresses", len(got))
			}
		})
	}
}

// TestExpand_ExactLimit tests a range of exactly the limit.
func TestExpand_ExactLimit(t *testing.T) {
	t.Parallel()

	got, err := NewExpander(quiet(), WithMaxAddresses(254)).Expand(t.Context(), "10.1.2.0/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 254 || got[0] != "10.1.2.1" || got[253] != "10.1.2.254" {
		t.Errorf("unexpected expansion: %d addresses", len(got))
	}
}

// TestExpand_Cancelled tests context cancellation.
func TestExpand_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := NewExpander(quiet()).Expand(ctx, "10.0.0.0/24"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestLocal tests local subnet expansion.
func TestLocal(t *testing.T) {
	t.Parallel()

	t.Run("expands ipv4 subnets and skips own address", func(t *testing.T) {
		t.Parallel()

		e := NewExpander(quiet(), WithInterfacePrefixes(func() ([]netip.Prefix, error) {
			return []netip.Prefix{
				netip.MustParsePrefix("127.0.0.1/8"),
				netip.MustParsePrefix("10.9.0.2/30"),
				netip.MustParsePrefix("fe80::1/64"),
				netip.MustParsePrefix("169.254.3.3/16"),
			}, nil
		}))

		got, err := e.Local(t.Context())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"10.9.0.1"}) {
			t.Errorf("expected [10.9.0.1], got %v", got)
		}
	})

	t.Run("two addresses on one subnet expand once", func(t *testing.T) {
		t.Parallel()

		e := NewExpander(quiet(), WithInterfacePrefixes(func() ([]netip.Prefix, error) {
			return []netip.Prefix{
				netip.MustParsePrefix("10.9.0.1/29"),
				netip.MustParsePrefix("10.9.0.2/29"),
			}, nil
		}))

		got, err := e.Local(t.Context())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"10.9.0.3", "10.9.0.4", "10.9.0.5", "10.9.0.6"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("no usable subnet", func(t *testing.T) {
		t.Parallel()

		e := NewExpander(quiet(), WithInterfacePrefixes(func() ([]netip.Prefix, error) {
			return []netip.Prefix{netip.MustParsePrefix("127.0.0.1/8")}, nil
		}))

		if _, err := e.Local(t.Context()); !errors.Is(err, ErrNoLocalNetwork) {
			t.Errorf("expected ErrNoLocalNetwork, got %v", err)
		}
	})

	t.Run("interface lookup failure", func(t *testing.T) {
		t.Parallel()

		e := NewExpander(quiet(), WithInterfacePrefixes(func() ([]netip.Prefix, error) {
			return nil, errors.New("netlink denied")
		}))

		if _, err := e.Local(t.Context()); err == nil {
			t.Error("expected error")
		}
	})
}

// TestLastAddr tests prefix end computation.
func TestLastAddr(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"10.0.0.0/24":    "10.0.0.255",
		"10.0.0.0/30":    "10.0.0.3",
		"10.0.0.0/9":     "10.127.255.255",
		"10.0.0.5/32":    "10.0.0.5",
		"fd00::/120":     "fd00::ff",
		"0.0.0.0/0":      "255.255.255.255",
		"192.168.4.0/22": "192.168.7.255",
	}
	for in, want := range tests {
		if got := lastAddr(netip.MustParsePrefix(in).Masked()); got.String() != want {
			t.Errorf("lastAddr(%s) = %s, want %s", in, got, want)
		}
	}
}
