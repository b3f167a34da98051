package store

import (
	"log/slog"

	"github.com/picloud/picloud/pkg/domain"
)

// DefaultWatchBuffer is the channel size used by Watch.
const DefaultWatchBuffer = 16

// Option configures a Store.
type Option func(*Store)

// WithMiddleware appends middleware to the dispatch chain.
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Store) {
		s.middleware = append(s.middleware, mws...)
	}
}

// WithObserver registers observers for the lifetime of the store.
// They run before listeners added with Subscribe or Observe.
func WithObserver(obs ...Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, obs...)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// WithName labels the store in logs and persisted snapshots.
func WithName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}
