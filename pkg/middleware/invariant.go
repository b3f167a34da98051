package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/mohae/deepcopy"
	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/store"
)

// ImmutableInvariant detects state that was modified in place, either by a
// reducer writing to its input or by anyone writing to the live state
// between dispatches. The first violation poisons the middleware: that
// dispatch and every later one return ErrStateMutated.
//
// Slice values must be plain data with exported fields.
func ImmutableInvariant(logger *slog.Logger) store.Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(api store.API) func(next store.DispatchFunc) store.DispatchFunc {
		inv := &invariant{logger: logger}
		inv.track(api.GetState())

		return func(next store.DispatchFunc) store.DispatchFunc {
			return func(ctx context.Context, action any) error {
				if err := inv.failed(); err != nil {
					return err
				}
				if err := inv.verify("between dispatches"); err != nil {
					return err
				}

				prev := api.GetState()
				snapshot := copyState(prev)

				err := next(ctx, action)

				if diff := cmp.Diff(snapshot, prev); diff != "" {
					return inv.fail("during dispatch", diff)
				}
				inv.track(api.GetState())
				return err
			}
		}
	}
}

func copyState(state domain.State) domain.State {
	if cp, ok := deepcopy.Copy(state).(domain.State); ok {
		return cp
	}
	return domain.State{}
}

type invariant struct {
	logger *slog.Logger

	mu       sync.Mutex
	ref      domain.State
	snapshot domain.State
	err      error
}

func (i *invariant) track(state domain.State) {
	snap := copyState(state)
	i.mu.Lock()
	i.ref = state
	i.snapshot = snap
	i.mu.Unlock()
}

func (i *invariant) failed() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

func (i *invariant) verify(where string) error {
	i.mu.Lock()
	ref, snap := i.ref, i.snapshot
	i.mu.Unlock()

	if diff := cmp.Diff(snap, ref); diff != "" {
		return i.fail(where, diff)
	}
	return nil
}

func (i *invariant) fail(where, diff string) error {
	err := fmt.Errorf("%w %s (-want +got):\n%s", domain.ErrStateMutated, where, diff)
	i.logger.Error("State mutation detected", "where", where, "err", err)

	i.mu.Lock()
	if i.err == nil {
		i.err = err
	}
	err = i.err
	i.mu.Unlock()
	return err
}
