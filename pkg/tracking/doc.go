// Package tracking wraps asynchronous work so that it drives the in-flight
// counter: CALL_STARTED before the work, NAME_SUCCESS or CALL_FAILED after.
//
// Track covers plain functions, Transport covers outbound HTTP calls and
// Middleware covers requests served by this process.
package tracking
