package devtools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/store"
)

// DefaultLimit is the number of entries kept when no limit is given.
const DefaultLimit = 500

// Entry is one recorded transition.
type Entry struct {
	Index     int               `json:"index"`
	Timestamp time.Time         `json:"timestamp"`
	Signal    domain.Signal     `json:"signal"`
	State     domain.State      `json:"state"`
	Diff      *domain.StateDiff `json:"diff,omitempty"`
}

// Recorder keeps a bounded history of transitions. Safe for concurrent use.
type Recorder struct {
	limit int

	mu      sync.RWMutex
	entries []Entry
	next    int
}

// NewRecorder creates a recorder keeping at most limit entries.
// A limit <= 0 means DefaultLimit.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Recorder{limit: limit}
}

// Observer records every applied signal. Replaced states, such as jumps,
// are not recorded.
func (r *Recorder) Observer() store.Observer {
	return func(_ context.Context, e *domain.DispatchEvent) {
		if e.Replaced {
			return
		}
		r.record(e)
	}
}

func (r *Recorder) record(e *domain.DispatchEvent) {
	entry := Entry{
		Timestamp: e.Timestamp,
		Signal:    e.Signal,
		State:     e.Next.Clone(),
		Diff:      domain.Diff(e.Prev, e.Next),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	entry.Index = r.next
	r.next++
	r.entries = append(r.entries, entry)
	if over := len(r.entries) - r.limit; over > 0 {
		r.entries = append([]Entry(nil), r.entries[over:]...)
	}
}

// History returns the retained entries, oldest first.
func (r *Recorder) History() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

// At returns the entry with the given index.
// Indices keep growing when old entries are dropped.
func (r *Recorder) At(index int) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return Entry{}, fmt.Errorf("%w: %d (empty history)", domain.ErrHistoryOutOfRange, index)
	}
	first := r.entries[0].Index
	pos := index - first
	if pos < 0 || pos >= len(r.entries) {
		return Entry{}, fmt.Errorf("%w: %d not in [%d, %d]",
			domain.ErrHistoryOutOfRange, index, first, first+len(r.entries)-1)
	}
	return r.entries[pos], nil
}

// JumpTo replaces the state of s with the state recorded at index.
// The jump itself is not recorded.
func (r *Recorder) JumpTo(s *store.Store, index int) (domain.State, error) {
	entry, err := r.At(index)
	if err != nil {
		return nil, err
	}
	s.Replace(entry.State)
	return entry.State.Clone(), nil
}

// Reset drops the whole history.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.next = 0
}
