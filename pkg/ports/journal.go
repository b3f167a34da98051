package ports

import (
	"context"

	"github.com/picloud/picloud/pkg/domain"
)

// Journal is an append-only log of dispatched signals, grouped by stream
// (typically the store name). Replaying a stream in order reproduces the state.
type Journal interface {
	// Append adds sig at the end of stream.
	Append(ctx context.Context, stream string, sig domain.Signal) error

	// Read returns every signal of stream in append order.
	// An unknown stream yields an empty slice, not an error.
	Read(ctx context.Context, stream string) ([]domain.Signal, error)

	// Truncate removes the stream.
	Truncate(ctx context.Context, stream string) error
}
