/*
Package store holds the live, mutable state container.

A Store wraps one root Reducer. Every dispatched Signal passes through the
configured Middleware chain and is then applied by the reducer under a mutex,
so transitions run one at a time, in dispatch order, to completion. The state
after N signals is the left fold of the reducer over those signals.

Each transition gets a sequence number under that mutex. Hooks, observers
and listeners receive transitions strictly in that order, even when several
goroutines dispatch at once. Sync gives a consistent cut between the
delivered state and everything observers have seen.

Reducers are composed from named slices with a Registry (or Combine): each
dispatch recomputes every registered slice and carries unregistered keys over
untouched.

Asynchronous work is expressed as a Thunk, which ThunkMiddleware executes
instead of forwarding it to the reducer:

	s := store.New(root, nil, store.WithMiddleware(store.ThunkMiddleware()))
	_ = s.Dispatch(ctx, store.Thunk(func(ctx context.Context, dispatch store.DispatchFunc, _ func() domain.State) error {
		_ = dispatch(ctx, domain.BeginCall())
		if err := fetchUsers(ctx); err != nil {
			return dispatch(ctx, domain.CallError())
		}
		return dispatch(ctx, domain.Succeeded("FETCH_USERS"))
	}))
*/
package store
