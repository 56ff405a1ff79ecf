package discovery

import (
	"context"
	"time"

	"github.com/nao1215/powerdisco/internal/model"
	"github.com/nao1215/powerdisco/internal/pipeline"
)

// recordTimeout bounds the write of a campaign record.
const recordTimeout = 10 * time.Second

// watch polls the pool of c until it drains, makes no progress for the
// stuck timeout, or the orchestrator shuts down.
//
// Stuck detection looks at pending+active only. Any change of that sum,
// up or down, restarts the timer, so a campaign that keeps finishing hosts
// is never declared stuck however long it runs. The check is coarse: a
// single NUT driver walking a large daisy chain reports nothing
// until it exits, so the timeout has to cover that run. A stuck campaign
// is cancelled, recorded with Stuck set, and the orchestrator becomes free
// for the next Start even if some tasks ignore cancellation.
func (o *Orchestrator) watch(c *campaign) {
	defer close(c.done)

	ticker := time.NewTicker(o.watchdogInterval)
	defer ticker.Stop()

	lastLoad := -1
	lastChange := time.Now()

	for {
		select {
		case <-o.ctx.Done():
			o.logger.Info("discovery interrupted by shutdown", "campaign", c.id)
			c.pool.Stop(pipeline.StopCancel)
			o.terminate(c, false)
			return
		case <-ticker.C:
		}

		pending, active := c.pool.Counts()
		load := pending + active
		if load == 0 {
			c.pool.Stop(pipeline.StopGraceful)
			o.terminate(c, false)
			return
		}

		now := time.Now()
		if load != lastLoad {
			lastLoad = load
			lastChange = now
			continue
		}
		if now.Sub(lastChange) >= o.stuckTimeout {
			o.logger.Warn("discovery stuck, terminating campaign",
				"campaign", c.id,
				"pending", pending,
				"active", active,
				"workers", c.pool.Workers(),
				"unchanged_for", now.Sub(lastChange).Round(time.Second),
			)
			c.pool.Stop(pipeline.StopCancel)
			o.terminate(c, true)
			return
		}
	}
}

// terminate moves c to TERMINATED with full progress and records it.
func (o *Orchestrator) terminate(c *campaign, stuck bool) {
	o.mu.Lock()
	if o.current != c {
		o.mu.Unlock()
		return
	}
	o.state = model.StateTerminated
	c.progress = 100
	c.stuck = stuck
	c.finishedAt = time.Now()
	rec := model.CampaignRecord{
		ID:         c.id,
		Request:    c.request.Clone(),
		Status:     o.statusLocked(),
		Cancelled:  c.cancelled,
		Stuck:      stuck,
		Addresses:  int(c.total),
		Hosts:      make([]model.HostResult, 0, len(c.results)),
		StartedAt:  c.startedAt,
		FinishedAt: c.finishedAt,
	}
	for _, h := range c.results {
		rec.Hosts = append(rec.Hosts, h.Clone())
	}
	o.mu.Unlock()

	o.logger.Info("discovery terminated",
		"campaign", c.id,
		"discovered", rec.Status.Discovered,
		"cancelled", rec.Cancelled,
		"stuck", stuck,
		"duration", rec.Duration().Round(time.Millisecond),
	)

	if o.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(o.ctx), recordTimeout)
	defer cancel()
	if err := o.recorder.RecordCampaign(ctx, rec); err != nil {
		o.logger.Error("failed to record campaign", "campaign", c.id, "error", err)
	}
}
