// Package taskq provides the in-process background job scheduler used by
// the valuation platform. It schedules units of work (valuation
// calculations, report generation, data exports, notifications) under a
// concurrency cap, retries failures with exponential backoff, supports
// delayed and soft-ordered workflow execution, enforces per-job
// timeouts, and reports throughput and health statistics.
//
// taskq is a library, not a service. Construct one queue per process,
// register processors as ordinary Go functions, and pass the handle to
// every call site:
//
//	q := queue.New(taskq.DefaultConfig())
//	q.Start(ctx)
//	eng := engine.New(q)
//
// State is held entirely in memory. Durability across restarts,
// multi-node scheduling, and exactly-once delivery are explicitly out
// of scope; callers that need those guarantees should front taskq with
// a persistent broker.
//
// All entity IDs are TypeIDs: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package taskq
