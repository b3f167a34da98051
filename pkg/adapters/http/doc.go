// Package http serves a store over HTTP with chi.
//
// The counter is exposed read-only on /status and /state, signals are
// accepted on /dispatch, and /events streams state diffs as server-sent
// events. Requests to /media are themselves tracked, so browsing the media
// root drives the in-flight counter.
//
// With an auth secret, /dispatch and /debug require a signed bearer token
// (HS256, see IssueToken).
package http
