package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/powerdisco/internal/model"
)

// Step defines the interface that all host steps must implement.
// Steps are executed in sequence, with each step receiving the host result
// accumulated by previous steps.
type Step interface {
	// Do executes the step.
	// Returns an error if the host cannot go further; soft failures
	// should be logged and return nil.
	Do(ctx context.Context, host *model.HostResult) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// A Pipeline holds no per-host state and can be shared by every task of a
// campaign.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence for one host.
// The context is checked before each step; steps handle their own timeouts.
//
// Returns the first error encountered if continueOnError is false.
// The last error is also recorded in host.Error.
func (p *Pipeline) Execute(ctx context.Context, host *model.HostResult) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"address", host.Address,
				"reason", err,
			)
			host.Error = err.Error()
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"address", host.Address,
		)

		if err := step.Do(ctx, host); err != nil {
			p.logger.Info("step failed",
				"step", step.Name(),
				"address", host.Address,
				"error", err,
			)
			host.Error = err.Error()

			if !p.continueOnError {
				return err
			}
		}

		host.Steps = append(host.Steps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
