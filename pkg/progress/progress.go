package progress

import (
	"github.com/mitchellh/mapstructure"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/store"
)

// Reduce computes the next in-flight count for a dispatched signal.
func Reduce(count int, sig domain.Signal) int {
	switch sig.Phase() {
	case domain.PhaseStarted:
		return count + 1
	case domain.PhaseFailed, domain.PhaseCompleted:
		return count - 1
	}
	return count
}

// Fold applies Reduce over signals in order, starting from initial.
func Fold(initial int, signals ...domain.Signal) int {
	count := initial
	for _, sig := range signals {
		count = Reduce(count, sig)
	}
	return count
}

// Counter is the clamped counter slice.
type Counter struct {
	InFlight  int `json:"inFlight" mapstructure:"inFlight"`
	Unmatched int `json:"unmatched" mapstructure:"unmatched"`
}

// Count returns the in-flight count.
func (c Counter) Count() int {
	return c.InFlight
}

// ReduceClamped is Reduce with the count held at zero or above.
// An end signal arriving at zero is counted as Unmatched.
func ReduceClamped(c Counter, sig domain.Signal) Counter {
	switch sig.Phase() {
	case domain.PhaseStarted:
		c.InFlight++
	case domain.PhaseFailed, domain.PhaseCompleted:
		if c.InFlight > 0 {
			c.InFlight--
		} else {
			c.Unmatched++
		}
	}
	return c
}

// Slice returns Reduce as a state slice starting at zero.
// A clamped counter left by an earlier configuration continues from its
// in-flight count.
func Slice() store.SliceReducer {
	typed := store.Typed(0, Reduce)
	return func(prev any, sig domain.Signal) any {
		if c, ok := asCounter(prev); ok {
			prev = c.InFlight
		}
		return typed(prev, sig)
	}
}

// ClampedSlice returns ReduceClamped as a state slice starting at zero.
// A plain count left by an earlier configuration becomes the in-flight
// count, held at zero or above.
func ClampedSlice() store.SliceReducer {
	typed := store.Typed(Counter{}, ReduceClamped)
	return func(prev any, sig domain.Signal) any {
		if n, ok := asCount(prev); ok {
			prev = Counter{InFlight: max(n, 0)}
		}
		return typed(prev, sig)
	}
}

// asCounter recognizes a Counter, live or decoded from JSON.
func asCounter(v any) (Counter, bool) {
	switch c := v.(type) {
	case Counter:
		return c, true
	case map[string]any:
		if _, ok := c["inFlight"]; !ok {
			return Counter{}, false
		}
		var out Counter
		if err := mapstructure.WeakDecode(c, &out); err != nil {
			return Counter{}, false
		}
		return out, true
	}
	return Counter{}, false
}

// asCount recognizes a plain count, live or decoded from JSON.
func asCount(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
