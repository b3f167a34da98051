package domain

// State is the whole application state, keyed by slice name.
// Reducers must treat it as read-only and return a new value.
type State map[string]any

// Clone returns a top-level copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Int returns the slice stored under key as an int.
// Values implementing Count() int (such as a clamped counter) are unwrapped.
func (s State) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case interface{ Count() int }:
		return v.Count()
	}
	return 0
}

// CallsInProgress returns the in-flight counter slice.
func (s State) CallsInProgress() int {
	return s.Int(SliceCallsInProgress)
}

// Loading reports whether at least one call is in flight.
func (s State) Loading() bool {
	return s.CallsInProgress() > 0
}
