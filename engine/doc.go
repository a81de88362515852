// Package engine is the application-facing façade over the queue core.
//
// It exposes domain-typed enqueue methods for the four job kinds the
// valuation platform runs in the background (valuation calculations,
// report generation, data exports, email notifications), each with its
// own default priority and attempt budget. Payloads are validated at
// admission; a job that enters the queue is structurally sound.
//
// The engine also hosts the pieces that sit above a single queue:
// batch submission with a fixed per-call cap, workflow processing, a
// deterministic health classifier over a stats snapshot, and a cron
// janitor that prunes aged terminal jobs.
package engine
