package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
)

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("pool is stopped")

// Task is a unit of work run by the Pool.
// The context is cancelled by StopCancel.
type Task func(ctx context.Context)

// StopMode selects how Stop treats queued and running tasks.
type StopMode int

const (
	// StopGraceful runs every queued task before the workers exit.
	StopGraceful StopMode = iota
	// StopImmediate drops queued tasks. Running tasks are not interrupted.
	StopImmediate
	// StopCancel drops queued tasks and cancels the context of running ones.
	StopCancel
)

// String returns the mode name.
func (m StopMode) String() string {
	switch m {
	case StopGraceful:
		return "graceful"
	case StopImmediate:
		return "immediate"
	case StopCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Pool is a bounded worker pool with a FIFO task queue.
// Workers run under an errgroup.Group. The worker count is tracked under the
// pool lock because it changes together with the queue.
//
// Growth policy: the pool starts with minWorkers and adds one worker per
// Submit while the queue is longer than the number of idle workers, up to
// maxWorkers. Workers never retire while the pool runs; they all exit once
// Stop was called and the queue is empty. A campaign of a few addresses
// therefore never opens more sockets than it has hosts, and a large one
// settles at maxWorkers concurrent probes.
//
// Stop returns at once and may be called while holding other locks. Wait
// blocks until running tasks return, which can take as long as one driver
// run.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	active  int
	idle    int
	workers int
	stopped bool

	minWorkers int
	maxWorkers int

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	logger *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger used to report task panics.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool starts minWorkers workers. More are started, up to maxWorkers,
// when a task is submitted while no worker is idle.
// maxWorkers below minWorkers is raised to minWorkers; minWorkers below 1
// is raised to 1.
func NewPool(ctx context.Context, minWorkers, maxWorkers int, opts ...PoolOption) *Pool {
	minWorkers = max(minWorkers, 1)
	maxWorkers = max(maxWorkers, minWorkers)

	p := &Pool{
		minWorkers: minWorkers,
		maxWorkers: maxWorkers,
		queue:      make([]Task, 0),
	}
	p.cond = sync.NewCond(&p.mu)
	p.ctx, p.cancel = context.WithCancel(ctx)

	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	p.mu.Lock()
	for range minWorkers {
		p.spawnLocked()
	}
	p.mu.Unlock()

	return p
}

// Submit queues a task.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}

	// Idle workers that were signalled but have not woken yet still count
	// as idle while their task is still queued.
	p.queue = append(p.queue, task)
	if len(p.queue) > p.idle && p.workers < p.maxWorkers {
		p.spawnLocked()
		return nil
	}
	p.cond.Signal()
	return nil
}

// Stop stops accepting tasks. Calling Stop again only escalates: a graceful
// stop can be turned into an immediate or cancelling one.
func (p *Pool) Stop(mode StopMode) {
	p.mu.Lock()
	p.stopped = true
	if mode != StopGraceful {
		clear(p.queue)
		p.queue = p.queue[:0]
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	if mode == StopCancel {
		p.cancel()
	}
}

// Wait blocks until every worker has exited. It must be called after Stop.
func (p *Pool) Wait() {
	_ = p.group.Wait() //nolint:errcheck // workers never return errors
	p.cancel()
}

// Counts returns the number of queued and running tasks, read together.
func (p *Pool) Counts() (pending, active int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue), p.active
}

// Workers returns the number of live workers.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

func (p *Pool) spawnLocked() {
	p.workers++
	p.group.Go(p.work)
}

func (p *Pool) work() error {
	p.mu.Lock()
	for {
		for len(p.queue) == 0 && !p.stopped {
			p.idle++
			p.cond.Wait()
			p.idle--
		}
		if len(p.queue) == 0 {
			p.workers--
			p.mu.Unlock()
			return nil
		}

		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.active++
		p.mu.Unlock()

		p.run(task)

		p.mu.Lock()
		p.active--
	}
}

// run executes one task. A panicking task is logged and does not take the
// worker down.
func (p *Pool) run(task Task) {
	var pc panics.Catcher
	pc.Try(func() { task(p.ctx) })
	if r := pc.Recovered(); r != nil {
		p.logger.Error("task panicked", "panic", r.Value, "stack", string(r.Stack))
	}
}
