package suggestion

import "fmt"

// State of the suggestion dropdown for one input.
type State int

const (
	Idle State = iota
	Debouncing
	Fetching
	Showing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Fetching:
		return "fetching"
	case Showing:
		return "showing"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, candidate := range []State{Idle, Debouncing, Fetching, Showing} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown suggestion state %q", b)
}

// Event drives a State transition.
type Event int

const (
	// EventInput is a change to the query text.
	EventInput Event = iota
	// EventQuietShort is the debounce elapsing on a query too short to look up.
	EventQuietShort
	// EventQuiet is the debounce elapsing on a query that is looked up.
	EventQuiet
	// EventResults is a lookup returning at least one candidate.
	EventResults
	// EventNoResults is a lookup returning nothing or failing.
	EventNoResults
	// EventDismiss is an outside interaction, a selection or a manual search.
	EventDismiss
)

// Next is the transition function. Events that do not apply to s leave it unchanged.
func Next(s State, e Event) State {
	switch e {
	case EventInput:
		return Debouncing
	case EventDismiss:
		return Idle
	case EventQuietShort:
		if s == Debouncing {
			return Idle
		}
	case EventQuiet:
		if s == Debouncing {
			return Fetching
		}
	case EventResults:
		if s == Fetching {
			return Showing
		}
	case EventNoResults:
		if s == Fetching {
			return Idle
		}
	}
	return s
}
