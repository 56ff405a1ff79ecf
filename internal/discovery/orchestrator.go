package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/powerdisco/internal/address"
	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/model"
	"github.com/nao1215/powerdisco/internal/nut"
	"github.com/nao1215/powerdisco/internal/pipeline"
	"github.com/nao1215/powerdisco/internal/protocol"
)

// campaign is the state of one Start call. Its counters are guarded by
// Orchestrator.mu.
type campaign struct {
	id       string
	request  model.DiscoveryRequest
	links    []model.PowerLink
	pool     *pipeline.Pool
	pipeline *pipeline.Pipeline

	total     uint32
	remaining uint32
	counters  model.Counters
	progress  int
	results   []*model.HostResult

	cancelled  bool
	stuck      bool
	startedAt  time.Time
	finishedAt time.Time

	// done is closed when the watchdog of the campaign exits.
	done chan struct{}
}

func (c *campaign) live() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Orchestrator runs discovery campaigns, one at a time.
// All methods are safe for concurrent use.
type Orchestrator struct {
	cfg          *config.Config
	minWorkers       int
	maxWorkers       int
	watchdogInterval time.Duration
	stuckTimeout     time.Duration

	creator  AssetCreator
	prober   Prober
	finder   AssetFinder
	expander RangeExpander
	resolver Resolver
	recorder CampaignRecorder
	logger   *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	watchdogs sync.WaitGroup

	mu       sync.Mutex
	state    model.CampaignState
	current  *campaign
	starting bool
	closed   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProber replaces the default protocol prober.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) {
		o.prober = p
	}
}

// WithAssetFinder replaces the default NUT asset finder.
func WithAssetFinder(f AssetFinder) Option {
	return func(o *Orchestrator) {
		o.finder = f
	}
}

// WithRangeExpander replaces the default address expander.
func WithRangeExpander(e RangeExpander) Option {
	return func(o *Orchestrator) {
		o.expander = e
	}
}

// WithResolver replaces net.DefaultResolver for host name enrichment.
func WithResolver(r Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithRecorder sets where finished campaigns are recorded. When unset, the
// asset creator is used if it implements CampaignRecorder.
func WithRecorder(r CampaignRecorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New connects to the asset registry through dial and returns an idle
// Orchestrator. ctx bounds the lifetime of every campaign.
func New(ctx context.Context, cfg *config.Config, dial Dialer, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:    cfg,
		logger: slog.Default(),
		state:  model.StateUnknown,
	}
	for _, opt := range opts {
		opt(o)
	}

	minWorkers, maxWorkers, raised := cfg.PoolSize()
	if raised {
		o.logger.Info("change scan max workers", "max_workers", maxWorkers)
	}
	o.minWorkers, o.maxWorkers = minWorkers, maxWorkers

	o.watchdogInterval = cfg.WatchdogInterval
	if o.watchdogInterval <= 0 {
		o.watchdogInterval = config.DefaultWatchdogInterval
	}
	o.stuckTimeout = cfg.StuckTimeout
	if o.stuckTimeout <= 0 {
		o.stuckTimeout = config.DefaultStuckTimeout
	}

	if dial == nil {
		return nil, fmt.Errorf("%w: no asset registry dialer", ErrInit)
	}
	creator, err := dial(ctx, cfg.Endpoint, cfg.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	o.creator = creator

	if o.prober == nil {
		o.prober = protocol.NewProber(
			protocol.WithLogger(o.logger),
			protocol.WithProbeTimeout(cfg.ProbeTimeout),
			protocol.WithHostCheckTimeout(cfg.PingTimeout),
		)
	}
	if o.finder == nil {
		o.finder = nut.NewFinder(nut.NewRunnerFromConfig(cfg, o.logger), cfg.File, o.logger)
	}
	if o.expander == nil {
		o.expander = address.NewExpander(address.WithLogger(o.logger))
	}
	if o.resolver == nil {
		o.resolver = net.DefaultResolver
	}
	if o.recorder == nil {
		if r, ok := creator.(CampaignRecorder); ok {
			o.recorder = r
		}
	}

	o.ctx, o.cancel = context.WithCancel(ctx)
	return o, nil
}

// Start expands req and schedules one scan task per address.
// It returns ErrConcurrency while a campaign runs and ErrConfig when req
// yields no worklist; in both cases the orchestrator state is unchanged.
// ctx only bounds address expansion; tasks run until the campaign ends.
func (o *Orchestrator) Start(ctx context.Context, req model.DiscoveryRequest) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.starting || (o.current != nil && o.current.live()) {
		o.mu.Unlock()
		return fmt.Errorf("%w: scan in progress", ErrConcurrency)
	}
	o.starting = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.starting = false
		o.mu.Unlock()
	}()

	req = req.Clone()
	work, err := o.buildWorklist(ctx, req)
	if err != nil {
		return err
	}

	c := &campaign{
		id:        uuid.NewString(),
		request:   req,
		links:     req.DefaultLinks(),
		total:     uint32(work.len()), //nolint:gosec // bounded by the expander
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	c.remaining = c.total
	c.progress = model.Progress(c.total, c.remaining)
	c.pipeline = o.hostPipeline(c)
	c.pool = pipeline.NewPool(o.ctx, o.minWorkers, o.maxWorkers, pipeline.WithPoolLogger(o.logger))

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		c.pool.Stop(pipeline.StopImmediate)
		return ErrClosed
	}
	o.current = c
	o.state = model.StateInProgress
	o.mu.Unlock()

	o.logger.Info("discovery started",
		"campaign", c.id,
		"type", req.Kind,
		"addresses", c.total,
	)

	for {
		addr, ok := work.pop()
		if !ok {
			break
		}
		if err := c.pool.Submit(o.scanTask(c, addr)); err != nil {
			o.logger.Debug("address not dispatched", "address", addr, "error", err)
			break
		}
	}

	o.watchdogs.Go(func() {
		o.watch(c)
	})
	return nil
}

// Stop cancels the running campaign. Queued tasks are dropped; running
// tasks finish and still report progress. The state is CANCELLED_BY_USER
// until the watchdog observes the drained pool and sets TERMINATED.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.state != model.StateInProgress || o.current == nil {
		o.mu.Unlock()
		return fmt.Errorf("%w: no scan in progress", ErrConcurrency)
	}
	c := o.current
	o.state = model.StateCancelledByUser
	c.cancelled = true
	o.mu.Unlock()

	o.logger.Info("discovery stop requested", "campaign", c.id)
	c.pool.Stop(pipeline.StopImmediate)
	return nil
}

// Status returns a snapshot of the campaign status.
func (o *Orchestrator) Status() model.CampaignStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() model.CampaignStatus {
	if o.current == nil {
		return model.NewCampaignStatus(o.state, model.Counters{}, 0)
	}
	return model.NewCampaignStatus(o.state, o.current.counters, o.current.progress)
}

// Request returns a copy of the request of the current or last campaign.
func (o *Orchestrator) Request() (model.DiscoveryRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return model.DiscoveryRequest{}, false
	}
	return o.current.request.Clone(), true
}

// Results returns the outcome of every finished task of the current or
// last campaign.
func (o *Orchestrator) Results() []model.HostResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil
	}
	out := make([]model.HostResult, 0, len(o.current.results))
	for _, r := range o.current.results {
		out = append(out, r.Clone())
	}
	return out
}

// CampaignID returns the id of the current or last campaign.
func (o *Orchestrator) CampaignID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return ""
	}
	return o.current.id
}

// Wait blocks until the current campaign has reached its terminal state or
// ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	c := o.current
	o.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the running campaign, waits for its watchdog and its
// workers, then closes the asset registry connection. When ctx expires first
// the registry is left open and ctx.Err is returned.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	c := o.current
	o.mu.Unlock()

	o.cancel()
	if c != nil && c.live() {
		c.pool.Stop(pipeline.StopCancel)
	}

	done := make(chan struct{})
	go func() {
		o.watchdogs.Wait()
		if c != nil && c.pool != nil {
			c.pool.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return o.creator.Close()
}

// updateDiscoveryCounters counts one created asset of c.
// Unknown subtypes are logged and not counted.
func (o *Orchestrator) updateDiscoveryCounters(c *campaign, subtype string) {
	st, ok := model.ParseSubtype(subtype)
	if !ok {
		o.logger.Error("bad sub type discovered", "subtype", subtype)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != c {
		return
	}
	c.counters.Add(st)
}

// updateDiscoveryProgress records the end of one task of c.
func (o *Orchestrator) updateDiscoveryProgress(c *campaign, host *model.HostResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != c {
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	c.progress = max(c.progress, model.Progress(c.total, c.remaining))
	if host != nil {
		c.results = append(c.results, host)
	}
}
