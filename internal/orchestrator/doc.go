// Package orchestrator executes workflows.
//
// # Overview
//
// A run resolves a workflow definition through the registry, then executes
// each agent strictly in order. Every step sees the whole accumulated
// context: the caller input plus the output of every earlier step, merged
// both under output_<agent> and as the unnamespaced analysis,
// recommendations, reasoning and data keys.
//
// # States
//
//	pending → running(step i) → completed | failed | cancelled
//
// Cancellation of the caller context is honoured between steps only. A step
// that has started runs to completion or to the configured step timeout.
//
// # Failure policies
//
//   - abort: the failing step is logged as failed and the run stops
//   - continue: a degraded output carrying the scrubbed error is recorded
//   - fallback_mock: the agent's mock capability runs in its place
//
// # Results
//
// Each run produces one Result, persisted once through a store.Store under
// the run ID. Failed and cancelled runs that produced at least one step
// output persist their partial result as well; the returned *RunError then
// carries its ID.
//
// # Usage Example
//
//	reg, _ := registry.New(caps, nil)
//	orch, _ := orchestrator.New(reg, decision, st, cfg.Orchestrator,
//	    orchestrator.WithLogger(logger),
//	    orchestrator.WithPublisher(pub),
//	)
//	run, err := orch.Run(ctx, orchestrator.Request{
//	    WorkflowType: "content_creation",
//	    Input:        map[string]any{"website_url": "https://example.com"},
//	})
package orchestrator
