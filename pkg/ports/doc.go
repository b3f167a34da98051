/*
Package ports defines the driven ports (interfaces) of the picloud store.

These interfaces decouple the store from external implementations, allowing
signals and state to be persisted in memory, in Redis, or elsewhere.

# Key Interfaces

  - Dispatcher: anything that accepts actions (the Store, or a test double).
  - Journal: an append-only signal log the counter can be rebuilt from.
  - SnapshotStore: persistence of whole-state snapshots.
*/
package ports
