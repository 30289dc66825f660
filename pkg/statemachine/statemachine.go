// Package statemachine holds explicit transition tables for the enum-typed
// lifecycles used by the game engine. Callers own synchronization; the
// engine mutates state only while holding the owning table's lock.
package statemachine

import "fmt"

// Transitions maps every state to the set of states it may move to.
type Transitions[S comparable] map[S][]S

// Allowed reports whether from -> to is a legal transition.
func (t Transitions[S]) Allowed(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves *state to next if the table allows it. Re-entering the
// current state is a no-op.
func (t Transitions[S]) Transition(state *S, next S) error {
	if *state == next {
		return nil
	}
	if !t.Allowed(*state, next) {
		return &TransitionError[S]{From: *state, To: next}
	}
	*state = next
	return nil
}

// Known reports whether s appears in the table, either as a source or as a
// target. Used to validate persisted values.
func (t Transitions[S]) Known(s S) bool {
	if _, ok := t[s]; ok {
		return true
	}
	for _, targets := range t {
		for _, target := range targets {
			if target == s {
				return true
			}
		}
	}
	return false
}

// TransitionError is returned when a transition is not in the table.
type TransitionError[S comparable] struct {
	From S
	To   S
}

func (e *TransitionError[S]) Error() string {
	return fmt.Sprintf("illegal transition %v -> %v", e.From, e.To)
}
