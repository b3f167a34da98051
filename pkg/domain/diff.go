package domain

import (
	"reflect"
)

// StateDiff represents the changes between two whole states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// Changed contains only changed, added or deleted slices.
	// For deletions, the key is present with a nil value.
	Changed map[string]any `json:"changed,omitempty"`

	// Loading is set when the derived loading flag flipped.
	Loading *bool `json:"loading,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{}

	changed := make(map[string]any)
	for k, newVal := range newState {
		oldVal, exists := oldState[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			changed[k] = newVal
		}
	}
	for k := range oldState {
		if _, exists := newState[k]; !exists {
			changed[k] = nil
		}
	}
	if len(changed) > 0 {
		diff.Changed = changed
	}

	if oldState == nil || oldState.Loading() != newState.Loading() {
		loading := newState.Loading()
		diff.Loading = &loading
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return len(d.Changed) == 0 && d.Loading == nil
}
