// Package replay rebuilds store state from persisted data.
//
// A journal holds the signals applied since the latest snapshot; folding a
// stream through the root reducer reproduces the state it led to. Resume
// reads the snapshot back and folds the journal tail on top. The Flusher
// saves the delivered state under store.Sync and truncates the journal in
// the same step, so the two never drift apart.
package replay
