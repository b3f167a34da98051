package store

import (
	"context"

	"github.com/picloud/picloud/pkg/domain"
)

// DispatchFunc dispatches an action: a domain.Signal or a Thunk.
type DispatchFunc func(ctx context.Context, action any) error

// API is the view of the store handed to middleware.
// GetState returns the live state, which must be treated as read-only.
type API struct {
	Dispatch DispatchFunc
	GetState func() domain.State
}

// Middleware wraps the dispatch chain.
// The first middleware given to WithMiddleware is the outermost.
type Middleware func(api API) func(next DispatchFunc) DispatchFunc

// Thunk is a deferred action. It receives the full dispatch chain, so
// signals it dispatches pass through every middleware.
type Thunk func(ctx context.Context, dispatch DispatchFunc, getState func() domain.State) error

// ThunkMiddleware runs Thunk actions instead of forwarding them.
func ThunkMiddleware() Middleware {
	return func(api API) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(ctx context.Context, action any) error {
				switch t := action.(type) {
				case Thunk:
					return t(ctx, api.Dispatch, api.GetState)
				case func(context.Context, DispatchFunc, func() domain.State) error:
					return t(ctx, api.Dispatch, api.GetState)
				}
				return next(ctx, action)
			}
		}
	}
}

// SignalOf extracts the signal carried by an action, if any.
func SignalOf(action any) (domain.Signal, bool) {
	switch a := action.(type) {
	case domain.Signal:
		return a, true
	case *domain.Signal:
		if a != nil {
			return *a, true
		}
	}
	return domain.Signal{}, false
}

func chain(api API, base DispatchFunc, mws []Middleware) DispatchFunc {
	d := base
	for i := len(mws) - 1; i >= 0; i-- {
		d = mws[i](api)(d)
	}
	return d
}
