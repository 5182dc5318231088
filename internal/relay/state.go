package relay

import (
	"fmt"
	"slices"
)

// State represents a connection protocol state.
type State string

const (
	Unauthenticated State = "UNAUTHENTICATED"
	Authenticated   State = "AUTHENTICATED"
	Closed          State = "CLOSED" // terminal
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Unauthenticated: {Authenticated, Closed},
	Authenticated:   {Closed},
	Closed:          {},
}

// transition validates a state change.
func transition(from, to State) (State, error) {
	if !slices.Contains(validTransitions[from], to) {
		return from, fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return to, nil
}
