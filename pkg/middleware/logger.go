package middleware

import (
	"context"
	"log/slog"

	"github.com/picloud/picloud/pkg/store"
)

// Logger logs every dispatched signal at debug level, and dispatch errors at warn.
func Logger(logger *slog.Logger) store.Middleware {
	return func(api store.API) func(next store.DispatchFunc) store.DispatchFunc {
		return func(next store.DispatchFunc) store.DispatchFunc {
			return func(ctx context.Context, action any) error {
				sig, ok := store.SignalOf(action)
				if !ok {
					return next(ctx, action)
				}

				before := api.GetState().CallsInProgress()
				err := next(ctx, action)
				if err != nil {
					logger.Warn("Dispatch failed", "type", sig.Kind, "err", err)
					return err
				}
				logger.Debug("Dispatched",
					"type", sig.Kind,
					"phase", sig.Phase().String(),
					"before", before,
					"after", api.GetState().CallsInProgress(),
				)
				return nil
			}
		}
	}
}
