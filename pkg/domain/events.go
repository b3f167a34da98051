package domain

import (
	"context"
	"time"
)

// DispatchEvent describes one applied transition.
type DispatchEvent struct {
	// Seq numbers transitions in the order they were applied, starting at 1.
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Signal    Signal    `json:"signal"`
	Phase     Phase     `json:"phase"`
	Before    int       `json:"before"`
	After     int       `json:"after"`
	// Replaced is set when the whole state was swapped instead of reduced.
	Replaced bool `json:"replaced,omitempty"`

	// Prev and Next are the states around the transition. Read-only.
	Prev State `json:"-"`
	Next State `json:"-"`
}

// Hooks defines callbacks for store observability.
type Hooks struct {
	OnDispatch func(context.Context, *DispatchEvent)
	// OnImbalance fires when an end signal arrives while no call is in flight.
	OnImbalance func(context.Context, *DispatchEvent)
}
