// Package workflow builds ordered sets of jobs with soft temporal
// dependencies on top of the queue core.
//
// A workflow is a slice of [Step] values enqueued in order under a
// shared workflow ID. A step may name an earlier job it depends on;
// if that job has not completed by orchestration time the step is
// enqueued with a delay of at least the dependency floor (30 seconds
// by default) instead of waiting for the dependency to finish.
//
// Ordering is therefore temporal, not causal: a dependency slower
// than the floor lets its dependent start early. Callers that need a
// hard guarantee should check the dependency's status inside the
// dependent processor.
//
//	orch := workflow.New(q)
//	res, err := orch.Process(ctx, []workflow.Step{
//	    {Type: "valuation.calculate", Data: input},
//	    {Type: "report.generate", DependsOn: calcID},
//	})
package workflow
