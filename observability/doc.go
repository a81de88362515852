// Package observability bridges scheduler lifecycle events to
// OpenTelemetry metrics.
//
// Register a [MetricsHook] on the queue's hook registry to track
// enqueue rates, completion counts, failure counts, retries, and
// cancellations without touching processor code:
//
//	obs, err := observability.NewMetricsHook()
//	if err != nil { ... }
//	q.Hooks().Register(obs)
//
// Processing latency is recorded by the queue's metrics middleware;
// this package covers the lifecycle counters that happen outside of
// handler execution (enqueue, cancel, retry scheduling).
package observability
