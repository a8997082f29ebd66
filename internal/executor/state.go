package executor

// State is a phase of a sell run.
type State int

// Sell run states.
const (
	StateTryingPrimary State = iota
	StateTryingFallback
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateTryingPrimary:
		return "trying_primary"
	case StateTryingFallback:
		return "trying_fallback"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempts follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// transition returns the state following an attempt made in s.
// attempt is the number of primary attempts made so far.
func transition(s State, attempt, maxPrimary int, succeeded bool) State {
	switch s {
	case StateTryingPrimary:
		if succeeded {
			return StateSucceeded
		}
		if attempt >= maxPrimary {
			return StateTryingFallback
		}
		return StateTryingPrimary
	case StateTryingFallback:
		if succeeded {
			return StateSucceeded
		}
		return StateFailed
	default:
		return s
	}
}
