// Package pipeline provides the execution machinery of discovery campaigns:
// a bounded worker Pool that runs one task per scanned address, and a
// Pipeline that executes the per-host steps of a task in sequence.
//
// The Pool grows from a minimum to a maximum number of workers as tasks are
// queued and supports three shutdown modes:
//
//   - StopGraceful: refuse new tasks, run every queued task, then exit
//   - StopImmediate: refuse new tasks and drop queued ones; running tasks finish
//   - StopCancel: like StopImmediate, and cancel the context of running tasks
//
// Pending and active counts are updated together under one lock, so a task
// is never observed as neither pending nor active between dequeue and start.
// The campaign watchdog relies on this to detect quiescence.
package pipeline
