package handler

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/autobind/pkg/statemachine"
)

// State is a step of the per-request binding lifecycle:
//
//	unbound -> content_type_resolved -> parameter_bound* -> handler_invoked -> response_converted
//	any non-terminal state -> failed -> error_returned
type State string

const (
	StateUnbound             State = "unbound"
	StateContentTypeResolved State = "content_type_resolved"
	StateParameterBound      State = "parameter_bound"
	StateHandlerInvoked      State = "handler_invoked"
	StateResponseConverted   State = "response_converted"
	StateFailed              State = "failed"
	StateErrorReturned       State = "error_returned"
)

type transition string

const (
	resolve transition = "resolve"
	bind    transition = "bind"
	invoke  transition = "invoke"
	convert transition = "convert"
	fail    transition = "fail"
	report  transition = "report"
)

type edge = statemachine.Transition[State, transition]

var lifecycleTable = statemachine.MustNew(StateUnbound,
	statemachine.WithTransitions(
		edge{From: StateUnbound, To: StateContentTypeResolved, Event: resolve},
		edge{From: StateContentTypeResolved, To: StateParameterBound, Event: bind},
		edge{From: StateParameterBound, To: StateParameterBound, Event: bind},
		edge{From: StateContentTypeResolved, To: StateHandlerInvoked, Event: invoke},
		edge{From: StateParameterBound, To: StateHandlerInvoked, Event: invoke},
		edge{From: StateHandlerInvoked, To: StateResponseConverted, Event: convert},

		edge{From: StateUnbound, To: StateFailed, Event: fail},
		edge{From: StateContentTypeResolved, To: StateFailed, Event: fail},
		edge{From: StateParameterBound, To: StateFailed, Event: fail},
		edge{From: StateHandlerInvoked, To: StateFailed, Event: fail},
		edge{From: StateFailed, To: StateErrorReturned, Event: report},
	),
	statemachine.WithTerminal[State, transition](StateResponseConverted, StateErrorReturned),
	statemachine.WithObserver[State, transition](func(ctx context.Context, _, to State, _ transition, _ any) error {
		trace.SpanFromContext(ctx).AddEvent("autobind.state",
			trace.WithAttributes(attribute.String("autobind.state", string(to))))
		return nil
	}),
)

// Lifecycle tracks where one request is in the binding lifecycle. It is
// owned by a single request and not safe for concurrent use.
type Lifecycle struct {
	run *statemachine.Run[State, transition]
}

func newLifecycle() *Lifecycle {
	return &Lifecycle{run: lifecycleTable.Start()}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.run.Current()
}

// History returns every state visited so far.
func (l *Lifecycle) History() []State {
	return l.run.History()
}

// advance fires t. Transitions that do not apply in the current state are
// ignored, so a second Bind in the same request does not resolve twice.
func (l *Lifecycle) advance(ctx context.Context, t transition) {
	_ = l.run.Fire(ctx, t, nil)
}

var lifecycleKey = NewContextKey("autobind.lifecycle")

// LifecycleFromContext returns the lifecycle attached by Wrap, or nil.
func LifecycleFromContext(ctx context.Context) *Lifecycle {
	return ContextValue[*Lifecycle](ctx, lifecycleKey)
}

// withLifecycle attaches a fresh lifecycle to r unless one is present.
func withLifecycle(r *http.Request) (*http.Request, *Lifecycle) {
	if lc := LifecycleFromContext(r.Context()); lc != nil {
		return r, lc
	}
	lc := newLifecycle()
	return r.WithContext(context.WithValue(r.Context(), lifecycleKey, lc)), lc
}
