// Package queue implements the queue core: the single in-process owner
// of all job records. It runs the dispatch loop on a fixed tick,
// enforces the concurrency cap, races processors against per-job
// timeouts, schedules exponential-backoff retries, and maintains
// rolling throughput statistics.
//
// One Queue instance is the scheduling authority for a process. All
// record mutation happens behind the Queue's mutex, inside the dispatch
// loop and the public methods; read methods hand out copies.
package queue
