package statemachine

import (
	"context"
	"fmt"
	"slices"
)

// Guard decides at fire time whether a transition may be taken.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Action runs while a transition is taken. An error aborts the transition.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Transition moves From to To when Event fires.
type Transition[S, E comparable] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E] // all must pass
	Actions []Action[S, E]
}

// Table is an immutable transition table. Build it once and start a Run per
// unit of work; a Table is safe for concurrent use.
type Table[S, E comparable] struct {
	initial     S
	transitions map[S]map[E][]Transition[S, E]
	terminal    map[S]bool
	observers   []Action[S, E]
}

// Option configures a Table.
type Option[S, E comparable] func(*Table[S, E]) error

// WithTransition adds one transition. Several transitions may share the same
// state and event; the first whose guards pass wins.
func WithTransition[S, E comparable](from, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return WithTransitions(Transition[S, E]{From: from, To: to, Event: event, Guards: guards})
}

// WithTransitions adds several transitions at once.
func WithTransitions[S, E comparable](transitions ...Transition[S, E]) Option[S, E] {
	return func(t *Table[S, E]) error {
		for i, tr := range transitions {
			if t.terminal[tr.From] {
				return fmt.Errorf("transition[%d] %v->%v on %v: %w", i, tr.From, tr.To, tr.Event, ErrTerminalState)
			}
			byEvent, ok := t.transitions[tr.From]
			if !ok {
				byEvent = make(map[E][]Transition[S, E])
				t.transitions[tr.From] = byEvent
			}
			byEvent[tr.Event] = append(byEvent[tr.Event], tr)
		}
		return nil
	}
}

// WithTerminal marks states that accept no further events.
func WithTerminal[S, E comparable](states ...S) Option[S, E] {
	return func(t *Table[S, E]) error {
		for _, s := range states {
			if _, ok := t.transitions[s]; ok {
				return fmt.Errorf("state %v: %w", s, ErrTerminalState)
			}
			t.terminal[s] = true
		}
		return nil
	}
}

// WithObserver registers a hook called after every successful transition.
// Observer errors are ignored.
func WithObserver[S, E comparable](fn Action[S, E]) Option[S, E] {
	return func(t *Table[S, E]) error {
		if fn != nil {
			t.observers = append(t.observers, fn)
		}
		return nil
	}
}

// New builds a table starting at initial.
func New[S, E comparable](initial S, opts ...Option[S, E]) (*Table[S, E], error) {
	t := &Table[S, E]{
		initial:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
		terminal:    make(map[S]bool),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is like New but panics on error.
func MustNew[S, E comparable](initial S, opts ...Option[S, E]) *Table[S, E] {
	t, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return t
}

// Initial returns the starting state.
func (t *Table[S, E]) Initial() S {
	return t.initial
}

// Start returns a new run positioned at the initial state.
func (t *Table[S, E]) Start() *Run[S, E] {
	return &Run[S, E]{table: t, current: t.initial, history: []S{t.initial}}
}

// Events lists the events accepted from state s, ignoring guards.
func (t *Table[S, E]) Events(s S) []E {
	events := make([]E, 0, len(t.transitions[s]))
	for e := range t.transitions[s] {
		events = append(events, e)
	}
	return events
}

func (t *Table[S, E]) find(ctx context.Context, from S, event E, data any) (*Transition[S, E], error) {
	if t.terminal[from] {
		return nil, &ErrNoTransitionAvailable{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}
	candidates := t.transitions[from][event]
	if len(candidates) == 0 {
		return nil, &ErrNoTransitionAvailable{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}
	for i := range candidates {
		if passes(ctx, candidates[i].Guards, from, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &ErrTransitionRejected{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
}

func passes[S, E comparable](ctx context.Context, guards []Guard[S, E], from S, event E, data any) bool {
	for _, g := range guards {
		if g != nil && !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}

// Run is one walk through a Table. It is not safe for concurrent use.
type Run[S, E comparable] struct {
	table   *Table[S, E]
	current S
	history []S
}

// Current returns the state the run is in.
func (r *Run[S, E]) Current() S {
	return r.current
}

// History returns every state visited, starting with the initial one.
func (r *Run[S, E]) History() []S {
	return slices.Clone(r.history)
}

// Done reports whether the run reached a terminal state.
func (r *Run[S, E]) Done() bool {
	return r.table.terminal[r.current]
}

// CanFire reports whether event would be accepted now.
func (r *Run[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	_, err := r.table.find(ctx, r.current, event, data)
	return err == nil
}

// Fire takes the first transition for event whose guards pass. Actions run
// before the state changes; observers run after.
func (r *Run[S, E]) Fire(ctx context.Context, event E, data any) error {
	tr, err := r.table.find(ctx, r.current, event, data)
	if err != nil {
		return err
	}
	for _, action := range tr.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, r.current, tr.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	from := r.current
	r.current = tr.To
	r.history = append(r.history, tr.To)
	for _, obs := range r.table.observers {
		_ = obs(ctx, from, tr.To, event, data)
	}
	return nil
}
