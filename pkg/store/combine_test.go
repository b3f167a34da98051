package store_test

import (
	"testing"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/progress"
	"github.com/picloud/picloud/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Duplicate(t *testing.T) {
	reg := store.NewRegistry()
	require.NoError(t, reg.Register("a", progress.Slice()))
	err := reg.Register("a", progress.Slice())
	assert.ErrorIs(t, err, domain.ErrDuplicateSlice)
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestRegistry_InitialState(t *testing.T) {
	reg := store.NewRegistry().
		MustRegister(domain.SliceCallsInProgress, progress.Slice()).
		MustRegister("clamped", progress.ClampedSlice())

	assert.Equal(t, domain.State{
		domain.SliceCallsInProgress: 0,
		"clamped":                   progress.Counter{},
	}, reg.InitialState())
}

func TestRegistry_Hydrate(t *testing.T) {
	reg := store.NewRegistry().
		MustRegister(domain.SliceCallsInProgress, progress.Slice()).
		MustRegister("clamped", progress.ClampedSlice())

	decoded := domain.State{
		domain.SliceCallsInProgress: float64(3),
		"clamped":                   map[string]any{"inFlight": float64(1), "unmatched": float64(2)},
		"extra":                     "kept",
	}
	assert.Equal(t, domain.State{
		domain.SliceCallsInProgress: 3,
		"clamped":                   progress.Counter{InFlight: 1, Unmatched: 2},
		"extra":                     "kept",
	}, reg.Hydrate(decoded))
}

func TestCombine_ReturnsNewState(t *testing.T) {
	reducer := store.Combine(map[string]store.SliceReducer{
		domain.SliceCallsInProgress: progress.Slice(),
	})
	in := domain.State{domain.SliceCallsInProgress: 1, "other": []string{"x"}}
	out := reducer(in, domain.BeginCall())

	assert.Equal(t, 1, in[domain.SliceCallsInProgress], "input must not be written")
	assert.Equal(t, 2, out[domain.SliceCallsInProgress])
	assert.Equal(t, []string{"x"}, out["other"])
}

func TestCombine_EverySliceRecomputed(t *testing.T) {
	calls := map[string]int{}
	spy := func(name string) store.SliceReducer {
		return func(prev any, sig domain.Signal) any {
			calls[name]++
			return prev
		}
	}
	reducer := store.Combine(map[string]store.SliceReducer{"a": spy("a"), "b": spy("b")})
	reducer(domain.State{}, domain.NewSignal("ANYTHING"))
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, calls)
}

func TestTyped_RehydratesDecodedValues(t *testing.T) {
	counter := progress.Slice()
	assert.Equal(t, 3, counter(float64(2), domain.BeginCall()), "JSON numbers decode as float64")

	clamped := progress.ClampedSlice()
	got := clamped(map[string]any{"inFlight": float64(1), "unmatched": float64(4)}, domain.CallError())
	assert.Equal(t, progress.Counter{InFlight: 0, Unmatched: 4}, got)

	assert.Equal(t, 1, counter("garbage", domain.BeginCall()), "undecodable values restart from initial")
}
