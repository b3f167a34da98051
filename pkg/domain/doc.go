/*
Package domain contains the core types of the picloud call tracking store.

It defines the signals dispatched around asynchronous operations, the whole
application state, and the sentinel errors shared by the rest of the module.
This package is kept pure and free of I/O.

# Key Entities

  - Signal: a named event describing the start or resolution of an operation.
  - Phase: the explicit classification of a Signal (Started, Failed, Completed).
  - State: the whole state, keyed by slice name.
*/
package domain
