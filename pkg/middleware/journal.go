package middleware

import (
	"context"
	"log/slog"

	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/ports"
	"github.com/picloud/picloud/pkg/store"
)

// Journal appends every applied signal to stream, in apply order.
// Replaced states have no signal and are not journaled; a snapshot flush
// with journal compaction covers them.
// Append failures are logged: the transition has already happened.
func Journal(journal ports.Journal, stream string, logger *slog.Logger) store.Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(ctx context.Context, e *domain.DispatchEvent) {
		if e.Replaced {
			return
		}
		if err := journal.Append(ctx, stream, e.Signal); err != nil {
			logger.Error("Journal append failed", "stream", stream, "seq", e.Seq, "type", e.Signal.Kind, "err", err)
		}
	}
}
