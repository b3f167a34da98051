package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/ports"
	"github.com/picloud/picloud/pkg/store"
)

// Rebuild folds every signal of stream through reducer, starting from initial.
func Rebuild(ctx context.Context, journal ports.Journal, stream string, reducer store.Reducer, initial domain.State) (domain.State, error) {
	state, _, err := fold(ctx, journal, stream, reducer, initial)
	return state, err
}

// Restore loads the snapshot saved under name.
// A missing snapshot is not an error: it returns a nil state.
func Restore(ctx context.Context, snapshots ports.SnapshotStore, name string) (domain.State, error) {
	state, err := snapshots.Load(ctx, name)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restore %q: %w", name, err)
	}
	return state, nil
}

// Resume returns the persisted state of name: its snapshot rehydrated by
// reg, or reg's initial state without one, with the journal stream of the
// same name folded on top. It also returns the number of signals folded.
func Resume(ctx context.Context, snapshots ports.SnapshotStore, journal ports.Journal, name string, reg *store.Registry) (domain.State, int, error) {
	base, err := Restore(ctx, snapshots, name)
	if err != nil {
		return nil, 0, err
	}
	if base == nil {
		base = reg.InitialState()
	} else {
		base = reg.Hydrate(base)
	}
	return fold(ctx, journal, name, reg.Reducer(), base)
}

func fold(ctx context.Context, journal ports.Journal, stream string, reducer store.Reducer, initial domain.State) (domain.State, int, error) {
	signals, err := journal.Read(ctx, stream)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read journal %q: %w", stream, err)
	}
	state := initial
	for _, sig := range signals {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		state = reducer(state, sig)
	}
	return state, len(signals), nil
}
