package ports

import (
	"context"

	"github.com/picloud/picloud/pkg/domain"
)

// Dispatcher accepts actions. *store.Store implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, action any) error
}

// StateReader exposes the current whole state to the presentation layer.
type StateReader interface {
	GetState() domain.State
}
