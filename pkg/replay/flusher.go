package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/ports"
	"github.com/picloud/picloud/pkg/store"
)

// DefaultInterval is the flush period when none is configured.
const DefaultInterval = 10 * time.Second

// Flusher saves the state of a store to a SnapshotStore whenever it has
// changed since the last save, at most once per interval. A replaced state
// is flushed right away.
type Flusher struct {
	store     *store.Store
	snapshots ports.SnapshotStore
	journal   ports.Journal
	locker    ports.DistributedLocker
	interval  time.Duration
	logger    *slog.Logger
	dirty     atomic.Bool
}

// FlusherOption configures a Flusher.
type FlusherOption func(*Flusher)

// WithInterval sets the flush period.
func WithInterval(d time.Duration) FlusherOption {
	return func(f *Flusher) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithLocker serializes saves across processes sharing the snapshot store.
func WithLocker(l ports.DistributedLocker) FlusherOption {
	return func(f *Flusher) {
		f.locker = l
	}
}

// WithJournal compacts the journal stream named after the store on every
// save: the snapshot then holds everything the stream held.
func WithJournal(j ports.Journal) FlusherOption {
	return func(f *Flusher) {
		f.journal = j
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FlusherOption {
	return func(f *Flusher) {
		f.logger = l
	}
}

// NewFlusher creates a Flusher for s.
func NewFlusher(s *store.Store, snapshots ports.SnapshotStore, opts ...FlusherOption) *Flusher {
	f := &Flusher{
		store:     s,
		snapshots: snapshots,
		interval:  DefaultInterval,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run flushes on every tick until ctx is done, then flushes one last time.
func (f *Flusher) Run(ctx context.Context) error {
	replaced := make(chan struct{}, 1)
	unsubscribe := f.store.Observe(func(_ context.Context, e *domain.DispatchEvent) {
		f.dirty.Store(true)
		if e.Replaced {
			select {
			case replaced <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := f.flushIfDirty(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			return nil
		case <-ticker.C:
		case <-replaced:
		}
		if err := f.flushIfDirty(ctx); err != nil {
			f.logger.Warn("snapshot flush failed", "store", f.store.Name(), "error", err)
		}
	}
}

func (f *Flusher) flushIfDirty(ctx context.Context) error {
	if !f.dirty.Swap(false) {
		return nil
	}
	if err := f.Flush(ctx); err != nil {
		f.dirty.Store(true)
		return err
	}
	return nil
}

// Flush saves the delivered state unconditionally, then truncates the
// journal when one is configured. No transition is journaled in between.
func (f *Flusher) Flush(ctx context.Context) error {
	name := f.store.Name()
	if f.locker != nil {
		unlock, err := f.locker.Lock(ctx, name, f.interval)
		if err != nil {
			return fmt.Errorf("failed to lock snapshot %q: %w", name, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				f.logger.Warn("snapshot unlock failed", "store", name, "error", err)
			}
		}()
	}

	return f.store.Sync(func(state domain.State) error {
		if err := f.snapshots.Save(ctx, name, state); err != nil {
			return fmt.Errorf("failed to save snapshot %q: %w", name, err)
		}
		if f.journal != nil {
			if err := f.journal.Truncate(ctx, name); err != nil {
				return fmt.Errorf("failed to compact journal %q: %w", name, err)
			}
		}
		f.logger.Debug("snapshot saved", "store", name, "compacted", f.journal != nil)
		return nil
	})
}
