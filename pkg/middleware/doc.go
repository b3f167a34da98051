/*
Package middleware provides the dispatch middleware and observers attached
by the store configurations.

Middleware wraps the reducer:

  - ImmutableInvariant: development only. Fails loudly when state is mutated in place.
  - Logger: one structured log line per dispatched signal.

Observers receive the transitions in apply order (see store.WithObserver):

  - Metrics: Prometheus gauges and counters for in-flight calls.
  - Journal: appends applied signals to a ports.Journal.

Async-action support lives in store.ThunkMiddleware.
*/
package middleware
