package memory

import (
	"context"
	"sync"

	"github.com/picloud/picloud/pkg/domain"
)

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	mu      sync.RWMutex
	streams map[string][]domain.Signal
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{streams: make(map[string][]domain.Signal)}
}

// Append adds sig at the end of stream.
func (j *Journal) Append(ctx context.Context, stream string, sig domain.Signal) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.streams[stream] = append(j.streams[stream], sig)
	return nil
}

// Read returns a copy of the stream.
func (j *Journal) Read(ctx context.Context, stream string) ([]domain.Signal, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]domain.Signal{}, j.streams[stream]...), nil
}

// Truncate removes the stream.
func (j *Journal) Truncate(ctx context.Context, stream string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.streams, stream)
	return nil
}
