/*
Package picloud tracks asynchronous calls in flight and exposes the count as a
loading indicator.

Every asynchronous operation dispatches CALL_STARTED before it is issued and
either CALL_FAILED or a kind ending in _SUCCESS when it resolves. A counter
slice named callsInProgress folds those signals; a UI shows a spinner while it
is above zero.

# Architecture

  - pkg/domain: signals, phases and the whole state.
  - pkg/progress: the pure counter reducer.
  - pkg/store: the composite container, the live store and its middleware chain.
  - pkg/middleware, pkg/devtools: logging, metrics, journaling, the mutation
    invariant and time-travel history.
  - pkg/config: environment resolution and store assembly.
  - pkg/ports, pkg/adapters: journal, snapshot and lock backends (memory, Redis)
    and the HTTP server.

# Usage

	app, err := picloud.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	err = tracking.Track(ctx, app.Store, "FETCH_USERS", fetchUsers)
	fmt.Println(app.Store.Loading())
*/
package picloud
