package discovery

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/model"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("dial failure", func(t *testing.T) {
		t.Parallel()

		dial := func(context.Context, string, string) (AssetCreator, error) {
			return nil, errors.New("connection refused")
		}
		_, err := New(t.Context(), testConfig(), dial, WithLogger(quietLogger()))
		if !errors.Is(err, ErrInit) {
			t.Errorf("expected ErrInit, got %v", err)
		}
	})

	t.Run("dialer receives endpoint and agent", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		var gotEndpoint, gotAgent string
		dial := func(_ context.Context, endpoint, agent string) (AssetCreator, error) {
			gotEndpoint, gotAgent = endpoint, agent
			return &fakeCreator{}, nil
		}
		o, err := New(t.Context(), cfg, dial, WithLogger(quietLogger()))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer o.Shutdown(context.Background()) //nolint:errcheck // test cleanup

		if gotEndpoint != cfg.Endpoint || gotAgent != cfg.CreatedBy {
			t.Errorf("dial(%q, %q), want (%q, %q)", gotEndpoint, gotAgent, cfg.Endpoint, cfg.CreatedBy)
		}
		if st := o.Status(); st.State != model.StateUnknown || st.Discovered != 0 || st.Progress != 0 {
			t.Errorf("initial status = %+v", st)
		}
	})

	t.Run("max workers raised to min", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.PoolMinWorkers = 5
		cfg.PoolMaxWorkers = 2
		o, _ := newTestOrchestrator(t, cfg)
		if o.minWorkers != 5 || o.maxWorkers != 5 {
			t.Errorf("workers = %d..%d, want 5..5", o.minWorkers, o.maxWorkers)
		}
	})

	t.Run("non-positive intervals select defaults", func(t *testing.T) {
		t.Parallel()

		for _, interval := range []time.Duration{0, -time.Second} {
			cfg := testConfig()
			cfg.WatchdogInterval = interval
			cfg.StuckTimeout = interval
			o, _ := newTestOrchestrator(t, cfg)
			if o.watchdogInterval != config.DefaultWatchdogInterval {
				t.Errorf("interval %s: watchdog interval = %s, want %s", interval, o.watchdogInterval, config.DefaultWatchdogInterval)
			}
			if o.stuckTimeout != config.DefaultStuckTimeout {
				t.Errorf("interval %s: stuck timeout = %s, want %s", interval, o.stuckTimeout, config.DefaultStuckTimeout)
			}
		}
	})

	t.Run("zero watchdog interval still terminates", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.WatchdogInterval = 0
		o, creator := newTestOrchestrator(t, cfg)

		if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.0.0.1"}}); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		waitDone(t, o)

		if st := o.Status(); st.State != model.StateTerminated {
			t.Errorf("state = %s, want terminated", st.State)
		}
		if len(creator.campaigns()) != 1 {
			t.Errorf("expected one recorded campaign, got %d", len(creator.campaigns()))
		}
	})
}

func TestStart_RunsCampaign(t *testing.T) {
	t.Parallel()

	finder := &fakeFinder{assets: upsWithSensor()}
	o, creator := newTestOrchestrator(t, testConfig(), WithAssetFinder(finder))

	if err := o.Start(t.Context(), model.DiscoveryRequest{
		Kind:        model.KindExplicitIPs,
		IPs:         []string{"10.0.0.1", "10.0.0.2"},
		Credentials: []string{"public"},
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, o)

	st := o.Status()
	want := model.CampaignStatus{State: model.StateTerminated, UPS: 2, Sensors: 2, Discovered: 4, Progress: 100}
	if st != want {
		t.Errorf("Status() = %+v, want %+v", st, want)
	}
	if got := len(creator.created()); got != 4 {
		t.Errorf("created %d assets, want 4", got)
	}

	results := o.Results()
	if len(results) != 2 {
		t.Fatalf("len(Results()) = %d, want 2", len(results))
	}
	for _, r := range results {
		if !r.Found() || r.Credential != "public" || len(r.Created) != 2 {
			t.Errorf("unexpected result %+v", r)
		}
	}

	records := creator.campaigns()
	if len(records) != 1 {
		t.Fatalf("recorded %d campaigns, want 1", len(records))
	}
	if records[0].ID != o.CampaignID() || records[0].Addresses != 2 || records[0].Status != want {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestStart_WhileInProgress(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{gate: make(chan struct{})}
	o, _ := newTestOrchestrator(t, testConfig(), WithProber(prober))

	first := model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.0.0.1"}}
	if err := o.Start(t.Context(), first); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := o.Status()
	id := o.CampaignID()

	err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.9.9.9", "10.9.9.8"}})
	if !errors.Is(err, ErrConcurrency) {
		t.Fatalf("expected ErrConcurrency, got %v", err)
	}

	if after := o.Status(); after != before {
		t.Errorf("status changed: %+v -> %+v", before, after)
	}
	if o.CampaignID() != id {
		t.Error("campaign id changed")
	}
	req, _ := o.Request()
	if !slices.Equal(req.IPs, first.IPs) {
		t.Errorf("request changed to %v", req.IPs)
	}

	close(prober.gate)
	waitDone(t, o)
}

func TestStart_RequestIsCopied(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{gate: make(chan struct{})}
	o, _ := newTestOrchestrator(t, testConfig(), WithProber(prober))

	ips := []string{"10.0.0.1"}
	if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: ips}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ips[0] = "192.168.0.1"

	req, ok := o.Request()
	if !ok || req.IPs[0] != "10.0.0.1" {
		t.Errorf("Request() = %v, %v", req.IPs, ok)
	}

	close(prober.gate)
	waitDone(t, o)
}

func TestStop(t *testing.T) {
	t.Parallel()

	t.Run("idle", func(t *testing.T) {
		t.Parallel()

		o, _ := newTestOrchestrator(t, testConfig())
		if err := o.Stop(); !errors.Is(err, ErrConcurrency) {
			t.Errorf("expected ErrConcurrency, got %v", err)
		}
	})

	t.Run("in progress", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.PoolMinWorkers = 1
		cfg.PoolMaxWorkers = 1
		prober := &fakeProber{gate: make(chan struct{})}
		o, creator := newTestOrchestrator(t, cfg, WithProber(prober))

		if err := o.Start(t.Context(), model.DiscoveryRequest{
			Kind: model.KindExplicitIPs,
			IPs:  []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		}); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		eventually(t, func() bool { return len(prober.probed()) == 1 }, "first task did not start")

		if err := o.Stop(); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if st := o.Status(); st.State != model.StateCancelledByUser {
			t.Errorf("state after Stop = %s, want cancelled_by_user", st.State)
		}
		if err := o.Stop(); !errors.Is(err, ErrConcurrency) {
			t.Errorf("second Stop() = %v, want ErrConcurrency", err)
		}
		if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.0.0.9"}}); !errors.Is(err, ErrConcurrency) {
			t.Errorf("Start() while stopping = %v, want ErrConcurrency", err)
		}

		close(prober.gate)
		waitDone(t, o)

		st := o.Status()
		if st.State != model.StateTerminated || st.Progress != 100 {
			t.Errorf("final status = %+v", st)
		}
		if got := len(prober.probed()); got != 1 {
			t.Errorf("probed %d addresses, want 1 (queued tasks dropped)", got)
		}
		records := creator.campaigns()
		if len(records) != 1 || !records[0].Cancelled {
			t.Errorf("record = %+v, want cancelled", records)
		}
	})
}

func TestProgress(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{gate: make(chan struct{})}
	o, _ := newTestOrchestrator(t, testConfig(), WithProber(prober))

	if err := o.Start(t.Context(), model.DiscoveryRequest{
		Kind: model.KindExplicitIPs,
		IPs:  []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"},
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p := o.Status().Progress; p != 0 {
		t.Errorf("initial progress = %d, want 0", p)
	}

	prober.gate <- struct{}{}
	eventually(t, func() bool { return o.Status().Progress == 25 }, "progress did not reach 25")

	last := 25
	close(prober.gate)
	eventually(t, func() bool {
		p := o.Status().Progress
		if p < last {
			t.Errorf("progress went back from %d to %d", last, p)
		}
		last = p
		return p == 100
	}, "progress did not reach 100")

	waitDone(t, o)
}

func TestStart_ZeroAddresses(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, testConfig(), WithRangeExpander(&fakeExpander{local: []string{}}))

	if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindLocal}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p := o.Status().Progress; p != 100 {
		t.Errorf("progress = %d, want 100", p)
	}
	waitDone(t, o)
	if st := o.Status().State; st != model.StateTerminated {
		t.Errorf("state = %s, want terminated", st)
	}
}

func TestStart_Worklist(t *testing.T) {
	t.Parallel()

	expander := &fakeExpander{
		ranges: map[string][]string{
			"R1": {"10.0.0.1", "10.0.0.2"},
			"R2": {"10.0.0.3"},
		},
		local: []string{"192.168.1.2"},
	}

	tests := []struct {
		name    string
		req     model.DiscoveryRequest
		want    []string
		wantErr error
	}{
		{
			name:    "explicit ips empty",
			req:     model.DiscoveryRequest{Kind: model.KindExplicitIPs},
			wantErr: ErrConfig,
		},
		{
			name: "explicit ips",
			req:  model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.1.1.1"}},
			want: []string{"10.1.1.1"},
		},
		{
			name: "named ranges",
			req:  model.DiscoveryRequest{Kind: model.KindNamedRanges, Ranges: []string{"R1", "R2"}},
			want: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		},
		{
			name: "named ranges keep duplicates",
			req:  model.DiscoveryRequest{Kind: model.KindNamedRanges, Ranges: []string{"R2", "R2"}},
			want: []string{"10.0.0.3", "10.0.0.3"},
		},
		{
			name: "named ranges skip failing range",
			req:  model.DiscoveryRequest{Kind: model.KindNamedRanges, Ranges: []string{"bad", "R2"}},
			want: []string{"10.0.0.3"},
		},
		{
			name:    "named ranges empty",
			req:     model.DiscoveryRequest{Kind: model.KindNamedRanges},
			wantErr: ErrConfig,
		},
		{
			name:    "named ranges all failing",
			req:     model.DiscoveryRequest{Kind: model.KindNamedRanges, Ranges: []string{"bad", "worse"}},
			wantErr: ErrConfig,
		},
		{
			name: "full union",
			req:  model.DiscoveryRequest{Kind: model.KindFull, IPs: []string{"10.1.1.1"}, Ranges: []string{"R2", "bad"}},
			want: []string{"10.0.0.3", "10.1.1.1"},
		},
		{
			name:    "full empty",
			req:     model.DiscoveryRequest{Kind: model.KindFull},
			wantErr: ErrConfig,
		},
		{
			name:    "full produces nothing",
			req:     model.DiscoveryRequest{Kind: model.KindFull, Ranges: []string{"bad"}},
			wantErr: ErrConfig,
		},
		{
			name: "local",
			req:  model.DiscoveryRequest{Kind: model.KindLocal},
			want: []string{"192.168.1.2"},
		},
		{
			name:    "bad kind",
			req:     model.DiscoveryRequest{Kind: "subnet"},
			wantErr: ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			prober := &fakeProber{}
			o, _ := newTestOrchestrator(t, testConfig(), WithProber(prober), WithRangeExpander(expander))

			err := o.Start(t.Context(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Start() error = %v, want %v", err, tt.wantErr)
				}
				if st := o.Status(); st.State != model.StateUnknown {
					t.Errorf("state = %s after failed Start", st.State)
				}
				if o.CampaignID() != "" {
					t.Error("failed Start created a campaign")
				}
				time.Sleep(10 * time.Millisecond)
				if got := prober.probed(); len(got) != 0 {
					t.Errorf("failed Start probed %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			waitDone(t, o)

			if got := prober.probed(); !slices.Equal(got, tt.want) {
				t.Errorf("probed %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStart_LocalFailure(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, testConfig(), WithRangeExpander(&fakeExpander{localErr: errors.New("no interface")}))

	if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindLocal}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestUpdateDiscoveryCounters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	o, _ := newTestOrchestrator(t, testConfig(), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	c := &campaign{id: "c1", done: closedDone()}
	o.current = c

	o.updateDiscoveryCounters(c, "ups")
	o.updateDiscoveryCounters(c, "sensor")

	st := o.Status()
	if st.UPS != 1 || st.Sensors != 1 || st.Discovered != 2 {
		t.Errorf("Status() = %+v, want ups=1 sensors=1 discovered=2", st)
	}

	o.updateDiscoveryCounters(c, "rack")
	if got := o.Status().Discovered; got != 2 {
		t.Errorf("unknown subtype changed discovered to %d", got)
	}
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "rack") {
		t.Errorf("expected an error log for the unknown subtype, got %q", buf.String())
	}

	stale := &campaign{id: "c0", done: closedDone()}
	o.updateDiscoveryCounters(stale, "epdu")
	o.updateDiscoveryProgress(stale, nil)
	if st := o.Status(); st.EPDU != 0 || st.Discovered != 2 {
		t.Errorf("stale campaign updated status: %+v", st)
	}
}

func TestUpdateDiscoveryProgress(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, testConfig())

	c := &campaign{total: 3, remaining: 3, done: closedDone()}
	o.current = c

	want := []int{33, 67, 100, 100}
	for i, w := range want {
		o.updateDiscoveryProgress(c, model.NewHostResult("10.0.0.1"))
		if got := o.Status().Progress; got != w {
			t.Errorf("after %d tasks progress = %d, want %d", i+1, got, w)
		}
	}
	if got := len(o.Results()); got != 4 {
		t.Errorf("len(Results()) = %d, want 4", got)
	}
}

func TestScanTask_Panic(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{panicOn: "10.0.0.2"}
	o, _ := newTestOrchestrator(t, testConfig(),
		WithProber(prober),
		WithAssetFinder(&fakeFinder{assets: upsWithSensor()}),
	)

	if err := o.Start(t.Context(), model.DiscoveryRequest{
		Kind: model.KindExplicitIPs,
		IPs:  []string{"10.0.0.1", "10.0.0.2"},
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, o)

	st := o.Status()
	if st.Progress != 100 || st.UPS != 1 {
		t.Errorf("Status() = %+v, want progress 100 and one ups", st)
	}

	var panicked bool
	for _, r := range o.Results() {
		if r.Address == "10.0.0.2" {
			panicked = strings.HasPrefix(r.Error, "panic:") && len(r.Created) == 0
		}
	}
	if !panicked {
		t.Errorf("panicking task not reported: %+v", o.Results())
	}
}

func TestWatchdog_Stuck(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StuckTimeout = 30 * time.Millisecond
	prober := &fakeProber{gate: make(chan struct{})}
	o, creator := newTestOrchestrator(t, cfg, WithProber(prober))

	if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.0.0.1"}}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitDone(t, o)

	if st := o.Status(); st.State != model.StateTerminated || st.Progress != 100 {
		t.Errorf("Status() = %+v", st)
	}
	records := creator.campaigns()
	if len(records) != 1 || !records[0].Stuck {
		t.Errorf("records = %+v, want one stuck campaign", records)
	}

	if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.0.0.2"}}); err != nil {
		t.Errorf("Start() after stuck campaign error = %v", err)
	}
	close(prober.gate)
	waitDone(t, o)
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{gate: make(chan struct{})}
	o, creator := newTestOrchestrator(t, testConfig(), WithProber(prober))

	if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.0.0.1"}}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if n := o.current.pool.Workers(); n != 0 {
		t.Errorf("%d workers still running after Shutdown", n)
	}
	if !creator.isClosed() {
		t.Error("asset registry was not closed")
	}
	if st := o.Status().State; st != model.StateTerminated {
		t.Errorf("state after Shutdown = %s", st)
	}
	if err := o.Start(t.Context(), model.DiscoveryRequest{Kind: model.KindExplicitIPs, IPs: []string{"10.0.0.1"}}); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Shutdown = %v, want ErrClosed", err)
	}
	if err := o.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

// closedDone returns the done channel of a campaign without watchdog.
func closedDone() chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
