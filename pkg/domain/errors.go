package domain

import "errors"

// ErrStateMutated is returned when a reducer writes to its input state instead of returning a new one.
var ErrStateMutated = errors.New("state mutated in place")

// ErrDuplicateSlice is returned when two reducers are registered under the same key.
var ErrDuplicateSlice = errors.New("duplicate state slice")

// ErrUnsupportedAction is returned when Dispatch receives something that is neither a Signal nor a thunk.
var ErrUnsupportedAction = errors.New("unsupported action")

// ErrSnapshotNotFound is returned when a snapshot cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrHistoryOutOfRange is returned when a recorded history index does not exist.
var ErrHistoryOutOfRange = errors.New("history index out of range")
