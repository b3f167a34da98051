package tracking

import (
	"context"
	"errors"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/ports"
	"github.com/picloud/picloud/pkg/store"
)

// Track runs fn between a CALL_STARTED signal and its completion signal.
// The error of fn is returned unchanged; a dispatch error is joined to it.
func Track(ctx context.Context, d ports.Dispatcher, name string, fn func(ctx context.Context) error) error {
	return track(ctx, dispatcherFunc(d.Dispatch), name, fn)
}

// Thunk returns Track as a deferred action for a store with ThunkMiddleware.
func Thunk(name string, fn func(ctx context.Context) error) store.Thunk {
	return func(ctx context.Context, dispatch store.DispatchFunc, _ func() domain.State) error {
		return track(ctx, dispatcherFunc(dispatch), name, fn)
	}
}

type dispatcherFunc func(ctx context.Context, action any) error

func track(ctx context.Context, dispatch dispatcherFunc, name string, fn func(ctx context.Context) error) error {
	if err := dispatch(ctx, domain.BeginCall()); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		// The failure must be recorded even when ctx is already done.
		return errors.Join(err, dispatch(context.WithoutCancel(ctx), domain.CallError()))
	}
	return dispatch(context.WithoutCancel(ctx), domain.Succeeded(name))
}
