package store

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/picloud/picloud/pkg/domain"
)

// InitSignal is dispatched internally to compute initial slice values.
// It classifies as PhaseNone, so no slice reacts to it.
var InitSignal = domain.Signal{Kind: "@@picloud/INIT"}

// Reducer computes a new whole state. It must not modify its input.
type Reducer func(state domain.State, sig domain.Signal) domain.State

// SliceReducer computes one slice of the whole state.
// prev is nil when the slice has no value yet.
type SliceReducer func(prev any, sig domain.Signal) any

// Typed adapts a typed transition function into a SliceReducer.
// A missing previous value starts from initial; a value of another shape
// (e.g. a float64 or map decoded from JSON) is weakly decoded into S first.
func Typed[S any](initial S, fn func(S, domain.Signal) S) SliceReducer {
	return func(prev any, sig domain.Signal) any {
		return fn(coerce(prev, initial), sig)
	}
}

func coerce[S any](prev any, initial S) S {
	if prev == nil {
		return initial
	}
	if s, ok := prev.(S); ok {
		return s
	}
	out := initial
	if err := mapstructure.WeakDecode(prev, &out); err != nil {
		return initial
	}
	return out
}

// Registry collects named slices in registration order.
type Registry struct {
	names  []string
	slices map[string]SliceReducer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{slices: make(map[string]SliceReducer)}
}

// Register adds a slice under name.
func (r *Registry) Register(name string, fn SliceReducer) error {
	if _, exists := r.slices[name]; exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateSlice, name)
	}
	r.names = append(r.names, name)
	r.slices[name] = fn
	return nil
}

// MustRegister is Register for static wiring; it panics on duplicates.
func (r *Registry) MustRegister(name string, fn SliceReducer) *Registry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Names returns the registered slice names in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Reducer returns the combined whole-state reducer.
func (r *Registry) Reducer() Reducer {
	names := r.Names()
	slices := make(map[string]SliceReducer, len(r.slices))
	for k, v := range r.slices {
		slices[k] = v
	}
	return combined(names, slices)
}

// InitialState returns each slice's value for InitSignal.
func (r *Registry) InitialState() domain.State {
	return r.Reducer()(nil, InitSignal)
}

// Hydrate converts a decoded state (e.g. a JSON snapshot) back into slice
// values of their registered types. Unregistered keys are kept as is.
func (r *Registry) Hydrate(state domain.State) domain.State {
	return r.Reducer()(state, InitSignal)
}

// Combine builds a whole-state reducer from a map of slices.
// Slices are evaluated in name order.
func Combine(slices map[string]SliceReducer) Reducer {
	names := make([]string, 0, len(slices))
	for name := range slices {
		names = append(names, name)
	}
	sort.Strings(names)
	return combined(names, slices)
}

func combined(names []string, slices map[string]SliceReducer) Reducer {
	return func(state domain.State, sig domain.Signal) domain.State {
		next := make(domain.State, len(state)+len(names))
		for k, v := range state {
			next[k] = v
		}
		for _, name := range names {
			next[name] = slices[name](state[name], sig)
		}
		return next
	}
}
