package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Endpoint = "memory"
	cfg.PoolMinWorkers = 2
	cfg.PoolMaxWorkers = 4
	cfg.WatchdogInterval = 5 * time.Millisecond
	return cfg
}

// fakeCreator is an in-memory registry that also records campaigns.
type fakeCreator struct {
	mu       sync.Mutex
	requests []model.CreateRequest
	records  []model.CampaignRecord
	failOn   string
	closed   bool
}

func (f *fakeCreator) CreateAsset(_ context.Context, req model.CreateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Subtype == f.failOn {
		return "", errors.New("registry refused")
	}
	f.requests = append(f.requests, req)
	return fmt.Sprintf("%s-%d", req.Subtype, len(f.requests)), nil
}

func (f *fakeCreator) RecordCampaign(_ context.Context, rec model.CampaignRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeCreator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeCreator) created() []model.CreateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

func (f *fakeCreator) campaigns() []model.CampaignRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.records)
}

func (f *fakeCreator) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeProber reports SNMP on every address. With a gate, each probe waits
// for one value (or the close) of the gate.
type fakeProber struct {
	gate       chan struct{}
	panicOn    string
	candidates []model.ProtocolCandidate

	mu        sync.Mutex
	addresses []string
}

func (f *fakeProber) Probe(ctx context.Context, address string, _ []string) ([]model.ProtocolCandidate, error) {
	f.mu.Lock()
	f.addresses = append(f.addresses, address)
	f.mu.Unlock()

	if address == f.panicOn {
		panic("probe exploded")
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.candidates != nil {
		return f.candidates, nil
	}
	return []model.ProtocolCandidate{
		{Protocol: model.ProtocolSNMP, Port: 161, Reachable: true, Available: model.AvailabilityMaybe},
	}, nil
}

func (f *fakeProber) probed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.addresses)
	slices.Sort(out)
	return out
}

// fakeFinder returns the same assets for every query, or the assets keyed
// by protocol/credential when byQuery is set.
type fakeFinder struct {
	assets  []model.DiscoveredAsset
	byQuery map[string][]model.DiscoveredAsset
	errs    map[string]error

	mu      sync.Mutex
	queries []model.AssetQuery
}

func (f *fakeFinder) FindAssets(_ context.Context, q model.AssetQuery) ([]model.DiscoveredAsset, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	key := q.Protocol + "/" + q.Credential
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	if f.byQuery != nil {
		return f.byQuery[key], nil
	}
	return f.assets, nil
}

type fakeExpander struct {
	ranges   map[string][]string
	local    []string
	localErr error
}

func (f *fakeExpander) Expand(_ context.Context, rng string) ([]string, error) {
	addrs, ok := f.ranges[rng]
	if !ok {
		return nil, fmt.Errorf("bad range %q", rng)
	}
	return slices.Clone(addrs), nil
}

func (f *fakeExpander) Local(context.Context) ([]string, error) {
	if f.localErr != nil {
		return nil, f.localErr
	}
	return slices.Clone(f.local), nil
}

type fakeResolver map[string]string

func (f fakeResolver) LookupAddr(_ context.Context, addr string) ([]string, error) {
	name, ok := f[addr]
	if !ok {
		return nil, errors.New("no PTR record")
	}
	return []string{name}, nil
}

func upsWithSensor() []model.DiscoveredAsset {
	return []model.DiscoveredAsset{{
		Type:    "device",
		Subtype: "ups",
		Ext:     []model.ExtEntry{{"model": "9PX", model.ReadOnlyKey: "true"}},
		Sensors: []model.Sensor{{Type: "device", Subtype: "sensor"}},
	}}
}

// newTestOrchestrator builds an Orchestrator on fakes. Options override the
// default fakes.
func newTestOrchestrator(t *testing.T, cfg *config.Config, opts ...Option) (*Orchestrator, *fakeCreator) {
	t.Helper()

	creator := &fakeCreator{}
	dial := func(context.Context, string, string) (AssetCreator, error) {
		return creator, nil
	}

	defaults := []Option{
		WithLogger(quietLogger()),
		WithProber(&fakeProber{}),
		WithAssetFinder(&fakeFinder{}),
		WithRangeExpander(&fakeExpander{}),
		WithResolver(fakeResolver{}),
	}
	o, err := New(t.Context(), cfg, dial, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = o.Shutdown(context.Background()) //nolint:errcheck // test cleanup
	})
	return o, creator
}

func waitDone(t *testing.T, o *Orchestrator) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if err := o.Wait(ctx); err != nil {
		t.Fatalf("campaign did not terminate: %v", err)
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
