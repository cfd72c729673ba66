package run

import (
	"fmt"
)

// State is the lifecycle state of a unit within one pipeline invocation.
type State string

const (
	StatePending              State = "pending"
	StateFetching             State = "fetching"
	StateValidating           State = "validating"
	StateSummarizing          State = "summarizing"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateLoading              State = "loading"
	StateSucceeded            State = "succeeded"
	StatePartiallyRejected    State = "partially_rejected"
	StateSkippedByOperator    State = "skipped_by_operator"
	StateFailed               State = "failed"
)

// allowedTransitions encodes the unit lifecycle: strictly forward through the
// processing stages, terminal at the end. A unit can fail out of any
// non-terminal state.
var allowedTransitions = map[State]map[State]bool{
	StatePending: {
		StateFetching: true,
		StateFailed:   true,
	},
	StateFetching: {
		StateValidating: true,
		StateFailed:     true,
	},
	StateValidating: {
		StateSummarizing: true,
		StateFailed:      true,
	},
	StateSummarizing: {
		StateAwaitingConfirmation: true,
		StateFailed:               true,
	},
	StateAwaitingConfirmation: {
		StateLoading:           true,
		StateSkippedByOperator: true,
		StateFailed:            true,
	},
	StateLoading: {
		StateSucceeded:         true,
		StatePartiallyRejected: true,
		StateFailed:            true,
	},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Transition validates a state change and returns the new state. The current
// state is returned unchanged on an illegal move.
func Transition(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("invalid unit state transition: %q -> %q", from, to)
	}
	return to, nil
}

// Terminal reports whether a state ends the unit's lifecycle.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StatePartiallyRejected, StateSkippedByOperator, StateFailed:
		return true
	}
	return false
}
