// Package file persists snapshots and journals on the local filesystem,
// for single-node deployments without Redis.
package file
