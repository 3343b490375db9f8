// Package statemachine implements small finite state machines over comparable
// state and event types.
//
// A Table holds the transitions and is built once. Each unit of work walks it
// through its own Run, so the table itself never changes after construction
// and needs no locking:
//
//	type state string
//	type event string
//
//	table := statemachine.MustNew[state, event]("draft",
//		statemachine.WithTransition[state, event]("draft", "review", "submit"),
//		statemachine.WithTransition[state, event]("review", "published", "approve"),
//		statemachine.WithTerminal[state, event]("published"),
//	)
//
//	run := table.Start()
//	_ = run.Fire(ctx, "submit", nil)
//	run.Current() // "review"
//
// Guards select between transitions that share a state and event; the first
// one whose guards all pass is taken. Actions run before the state changes and
// can veto it. Observers see every completed transition and are the place for
// logging and tracing.
//
// Errors distinguish an undefined transition (IsNoTransitionAvailableError)
// from one blocked by guards (IsTransitionRejectedError).
package statemachine
