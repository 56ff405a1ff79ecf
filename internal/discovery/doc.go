// Package discovery runs discovery campaigns.
//
// An Orchestrator expands a DiscoveryRequest into a worklist of addresses and
// schedules one scan task per address on a pipeline.Pool. Each task runs the
// host pipeline:
//
//  1. probe: ask the protocol prober which management protocols the host exposes
//  2. discover: try every reachable protocol with every credential, in order,
//     until the asset finder reports devices
//  3. register: create the devices and their sensors in the asset registry
//
// Campaign status (state, per-subtype counters and progress) is kept under a
// single lock and read as snapshots. A watchdog goroutine polls the pool and
// moves the campaign to its terminal state once no task is queued or
// running, or when the pool made no progress for the stuck timeout.
//
// Only one campaign runs at a time. Tasks of a campaign that was replaced
// (after a stuck termination) no longer update the status.
package discovery
