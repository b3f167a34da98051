package ports

import (
	"context"

	"github.com/picloud/picloud/pkg/domain"
)

// SnapshotStore persists whole-state snapshots.
// This allows a restarted process to resume from the last known state.
type SnapshotStore interface {
	// Save persists the state under name.
	Save(ctx context.Context, name string, state domain.State) error

	// Load retrieves the state saved under name.
	// Returns domain.ErrSnapshotNotFound if nothing was saved.
	Load(ctx context.Context, name string) (domain.State, error)

	// Delete removes the snapshot.
	Delete(ctx context.Context, name string) error

	// List returns the names of the stored snapshots.
	List(ctx context.Context) ([]string, error)
}
