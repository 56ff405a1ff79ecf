package discovery

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/panics"

	"github.com/nao1215/powerdisco/internal/model"
	"github.com/nao1215/powerdisco/internal/pipeline"
)

// hostPipeline builds the per-host steps of c.
func (o *Orchestrator) hostPipeline(c *campaign) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(o.logger))
	p.AddSteps(
		&probeStep{prober: o.prober, filter: c.request.Protocols},
		&discoverStep{finder: o.finder, credentials: c.request.Credentials, logger: o.logger},
		&registerStep{o: o, c: c},
	)
	return p
}

// scanTask returns the task scanning address. Progress is reported exactly
// once, whatever happens in the pipeline.
func (o *Orchestrator) scanTask(c *campaign, address string) pipeline.Task {
	return func(ctx context.Context) {
		host := model.NewHostResult(address)
		defer o.updateDiscoveryProgress(c, host)

		var pc panics.Catcher
		pc.Try(func() {
			_ = c.pipeline.Execute(ctx, host) //nolint:errcheck // recorded in host.Error
		})
		if r := pc.Recovered(); r != nil {
			o.logger.Error("scan task panicked",
				"address", address,
				"panic", r.Value,
				"stack", string(r.Stack),
			)
			host.Error = fmt.Sprintf("panic: %v", r.Value)
			host.Assets = nil
		}
	}
}
