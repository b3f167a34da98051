package progress_test

import (
	"testing"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/progress"
	"github.com/stretchr/testify/assert"
)

var counts = []int{-3, -1, 0, 1, 2, 41, 1 << 20}

func TestReduce_Started(t *testing.T) {
	for _, c := range counts {
		assert.Equal(t, c+1, progress.Reduce(c, domain.BeginCall()))
	}
}

func TestReduce_Failed(t *testing.T) {
	for _, c := range counts {
		assert.Equal(t, c-1, progress.Reduce(c, domain.CallError()))
	}
}

func TestReduce_AnySuccessSuffix(t *testing.T) {
	kinds := []string{"FETCH_USERS_SUCCESS", "LOGIN_SUCCESS", "_SUCCESS", "A_B_C_SUCCESS"}
	for _, c := range counts {
		for _, k := range kinds {
			assert.Equal(t, c-1, progress.Reduce(c, domain.NewSignal(k)), k)
		}
	}
}

func TestReduce_PassThrough(t *testing.T) {
	kinds := []string{"", "SOME_OTHER_ACTION", "SUCCESS", "login_success", "CALL_STARTED ", "CALL_SUCCESSFUL"}
	for _, c := range counts {
		for _, k := range kinds {
			assert.Equal(t, c, progress.Reduce(c, domain.NewSignal(k)), k)
		}
	}
}

func TestReduce_NoOpIdempotent(t *testing.T) {
	count := 3
	for i := 0; i < 100; i++ {
		count = progress.Reduce(count, domain.NewSignal("NOTHING"))
	}
	assert.Equal(t, 3, count)
}

func TestReduce_Unclamped(t *testing.T) {
	assert.Equal(t, -1, progress.Reduce(0, domain.CallError()))
}

func TestReduce_Scenarios(t *testing.T) {
	assert.Equal(t, 1, progress.Reduce(0, domain.NewSignal("CALL_STARTED")))
	assert.Equal(t, 0, progress.Reduce(1, domain.NewSignal("FETCH_USERS_SUCCESS")))
	assert.Equal(t, 1, progress.Reduce(2, domain.NewSignal("CALL_FAILED")))
	assert.Equal(t, 0, progress.Reduce(0, domain.NewSignal("SOME_OTHER_ACTION")))

	seq := []domain.Signal{
		domain.NewSignal("CALL_STARTED"),
		domain.NewSignal("CALL_STARTED"),
		domain.NewSignal("CALL_FAILED"),
		domain.NewSignal("LOGIN_SUCCESS"),
	}
	want := []int{1, 2, 1, 0}
	count := 0
	for i, sig := range seq {
		count = progress.Reduce(count, sig)
		assert.Equal(t, want[i], count, "step %d", i)
	}
}

func TestFold_IndependentOfBatching(t *testing.T) {
	seq := []domain.Signal{
		domain.BeginCall(), domain.BeginCall(), domain.NewSignal("X"),
		domain.Succeeded("A"), domain.BeginCall(), domain.CallError(), domain.CallError(),
	}
	whole := progress.Fold(0, seq...)

	for split := 0; split <= len(seq); split++ {
		partial := progress.Fold(0, seq[:split]...)
		assert.Equal(t, whole, progress.Fold(partial, seq[split:]...), "split at %d", split)
	}
	assert.Equal(t, -1, whole)
}

func TestReduceClamped(t *testing.T) {
	c := progress.Counter{}
	c = progress.ReduceClamped(c, domain.CallError())
	assert.Equal(t, progress.Counter{InFlight: 0, Unmatched: 1}, c)

	c = progress.ReduceClamped(c, domain.BeginCall())
	c = progress.ReduceClamped(c, domain.Succeeded("LOGIN"))
	c = progress.ReduceClamped(c, domain.Succeeded("LOGIN"))
	assert.Equal(t, progress.Counter{InFlight: 0, Unmatched: 2}, c)

	c = progress.ReduceClamped(c, domain.NewSignal("IGNORED"))
	assert.Equal(t, 0, c.Count())
}

func TestSlice_ContinuesFromClampedCounter(t *testing.T) {
	slice := progress.Slice()

	assert.Equal(t, 3, slice(progress.Counter{InFlight: 2, Unmatched: 5}, domain.BeginCall()))
	// Shape of a clamped counter decoded from a JSON snapshot.
	decoded := map[string]any{"inFlight": float64(2), "unmatched": float64(1)}
	assert.Equal(t, 1, slice(decoded, domain.CallError()))
	assert.Equal(t, 4, slice(float64(4), domain.NewSignal("NOOP")))
}

func TestClampedSlice_ContinuesFromPlainCount(t *testing.T) {
	slice := progress.ClampedSlice()

	assert.Equal(t, progress.Counter{InFlight: 3}, slice(2, domain.BeginCall()))
	assert.Equal(t, progress.Counter{InFlight: 1}, slice(float64(2), domain.CallError()))
	assert.Equal(t, progress.Counter{InFlight: 0, Unmatched: 1}, slice(-4, domain.CallError()))

	decoded := map[string]any{"inFlight": float64(1), "unmatched": float64(2)}
	assert.Equal(t, progress.Counter{InFlight: 2, Unmatched: 2}, slice(decoded, domain.BeginCall()))
}
