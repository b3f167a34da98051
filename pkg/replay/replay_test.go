package replay_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/picloud/picloud/pkg/adapters/memory"
	"github.com/picloud/picloud/pkg/adapters/redis"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/middleware"
	"github.com/picloud/picloud/pkg/ports"
	"github.com/picloud/picloud/pkg/progress"
	"github.com/picloud/picloud/pkg/replay"
	"github.com/picloud/picloud/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registry(clamped bool) *store.Registry {
	slice := progress.Slice()
	if clamped {
		slice = progress.ClampedSlice()
	}
	return store.NewRegistry().MustRegister(domain.SliceCallsInProgress, slice)
}

func TestRebuild_MatchesLiveStore(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewJournal()
	reg := registry(false)
	live := store.New(reg.Reducer(), nil,
		store.WithName("live"),
		store.WithObserver(middleware.Journal(journal, "live", nil)),
	)

	signals := []domain.Signal{
		domain.BeginCall(), domain.BeginCall(), domain.CallError(),
		domain.Succeeded("LOGIN"), domain.NewSignal("SOME_OTHER_ACTION"), domain.CallError(),
	}
	for _, sig := range signals {
		require.NoError(t, live.Dispatch(ctx, sig))
	}

	rebuilt, err := replay.Rebuild(ctx, journal, "live", reg.Reducer(), reg.InitialState())
	require.NoError(t, err)
	assert.Equal(t, live.CallsInProgress(), rebuilt.CallsInProgress())
	assert.Equal(t, progress.Fold(0, signals...), rebuilt.CallsInProgress())
	assert.Equal(t, -1, rebuilt.CallsInProgress())
}

func TestRebuild_EmptyStream(t *testing.T) {
	reg := registry(false)
	state, err := replay.Rebuild(context.Background(), memory.NewJournal(), "none", reg.Reducer(), reg.InitialState())
	require.NoError(t, err)
	assert.Equal(t, 0, state.CallsInProgress())
}

func TestRebuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	journal := memory.NewJournal()
	require.NoError(t, journal.Append(ctx, "s", domain.BeginCall()))
	cancel()

	reg := registry(false)
	_, err := replay.Rebuild(ctx, journal, "s", reg.Reducer(), reg.InitialState())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	snapshots := memory.NewStore()

	state, err := replay.Restore(ctx, snapshots, "app")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, snapshots.Save(ctx, "app", domain.State{domain.SliceCallsInProgress: 2}))
	state, err = replay.Restore(ctx, snapshots, "app")
	require.NoError(t, err)
	assert.Equal(t, 2, state.CallsInProgress())
}

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
}

func (l *countingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.locks++
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.unlocks++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestFlusher_Flush(t *testing.T) {
	ctx := context.Background()
	snapshots := memory.NewStore()
	locker := &countingLocker{}
	s := store.New(registry(false).Reducer(), nil, store.WithName("app"))
	require.NoError(t, s.Dispatch(ctx, domain.BeginCall()))

	f := replay.NewFlusher(s, snapshots, replay.WithLocker(locker))
	require.NoError(t, f.Flush(ctx))

	saved, err := snapshots.Load(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.CallsInProgress())
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
}

func TestFlusher_RunFlushesOnChangeAndExit(t *testing.T) {
	snapshots := memory.NewStore()
	s := store.New(registry(false).Reducer(), nil, store.WithName("app"))
	f := replay.NewFlusher(s, snapshots, replay.WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	// Nothing is saved while the state is unchanged.
	time.Sleep(30 * time.Millisecond)
	_, err := snapshots.Load(context.Background(), "app")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	require.NoError(t, s.Dispatch(context.Background(), domain.BeginCall()))
	assert.Eventually(t, func() bool {
		saved, err := snapshots.Load(context.Background(), "app")
		return err == nil && saved.CallsInProgress() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Dispatch(context.Background(), domain.BeginCall()))
	cancel()
	require.NoError(t, <-done)

	saved, err := snapshots.Load(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.CallsInProgress(), "final flush on exit")
}

func TestFlusher_RedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { client.Close() })
	snapshots := redis.NewStore(client)

	reg := registry(true)
	s := store.New(reg.Reducer(), nil, store.WithName("pi"))
	require.NoError(t, s.Dispatch(ctx, domain.CallError()))
	require.NoError(t, s.Dispatch(ctx, domain.BeginCall()))
	require.NoError(t, replay.NewFlusher(s, snapshots, replay.WithLocker(redis.NewLocker(client))).Flush(ctx))

	// JSON decoding loses the slice types; the registry reducer rehydrates them.
	restored, err := replay.Restore(ctx, snapshots, "pi")
	require.NoError(t, err)
	resumed := store.New(reg.Reducer(), reg.Hydrate(restored), store.WithName("pi"))
	assert.Equal(t, 1, resumed.CallsInProgress())

	require.NoError(t, resumed.Dispatch(ctx, domain.Succeeded("LOGIN")))
	counter, ok := resumed.GetState()[domain.SliceCallsInProgress].(progress.Counter)
	require.True(t, ok)
	assert.Equal(t, progress.Counter{InFlight: 0, Unmatched: 1}, counter)
}

func TestRebuild_ClampedJournalFollowsApplyOrder(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewJournal()
	reg := registry(true)
	live := store.New(reg.Reducer(), nil,
		store.WithName("live"),
		store.WithObserver(middleware.Journal(journal, "live", nil)),
	)

	// Clamping makes the fold order-dependent: FAILED at zero is unmatched.
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sig := domain.BeginCall()
			if i%2 == 1 {
				sig = domain.CallError()
			}
			_ = live.Dispatch(ctx, sig)
		}(i)
	}
	wg.Wait()

	rebuilt, err := replay.Rebuild(ctx, journal, "live", reg.Reducer(), reg.InitialState())
	require.NoError(t, err)
	assert.Equal(t, live.GetState()[domain.SliceCallsInProgress], rebuilt[domain.SliceCallsInProgress])
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	snapshots := memory.NewStore()
	journal := memory.NewJournal()
	reg := registry(false)

	state, folded, err := replay.Resume(ctx, snapshots, journal, "app", reg)
	require.NoError(t, err)
	assert.Zero(t, folded)
	assert.Equal(t, reg.InitialState(), state)

	require.NoError(t, snapshots.Save(ctx, "app", domain.State{domain.SliceCallsInProgress: float64(3)}))
	require.NoError(t, journal.Append(ctx, "app", domain.CallError()))

	state, folded, err = replay.Resume(ctx, snapshots, journal, "app", reg)
	require.NoError(t, err)
	assert.Equal(t, 1, folded)
	assert.Equal(t, 2, state[domain.SliceCallsInProgress], "snapshot is rehydrated, then the journal folded on top")
}

func TestFlusher_CompactsJournal(t *testing.T) {
	ctx := context.Background()
	snapshots := memory.NewStore()
	journal := memory.NewJournal()
	reg := registry(false)
	s := store.New(reg.Reducer(), nil,
		store.WithName("app"),
		store.WithObserver(middleware.Journal(journal, "app", nil)),
	)
	f := replay.NewFlusher(s, snapshots, replay.WithJournal(journal))

	require.NoError(t, s.Dispatch(ctx, domain.BeginCall()))
	require.NoError(t, s.Dispatch(ctx, domain.BeginCall()))
	require.NoError(t, f.Flush(ctx))

	sigs, err := journal.Read(ctx, "app")
	require.NoError(t, err)
	assert.Empty(t, sigs, "the snapshot covers the journal")

	require.NoError(t, s.Dispatch(ctx, domain.CallError()))
	state, folded, err := replay.Resume(ctx, snapshots, journal, "app", reg)
	require.NoError(t, err)
	assert.Equal(t, 1, folded)
	assert.Equal(t, s.CallsInProgress(), state.CallsInProgress())
}

func TestFlusher_FlushesReplacedStateRightAway(t *testing.T) {
	snapshots := memory.NewStore()
	s := store.New(registry(false).Reducer(), nil, store.WithName("app"))
	f := replay.NewFlusher(s, snapshots, replay.WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	// Run subscribes asynchronously; keep replacing until the flush lands.
	assert.Eventually(t, func() bool {
		s.Replace(domain.State{domain.SliceCallsInProgress: 4})
		saved, err := snapshots.Load(context.Background(), "app")
		return err == nil && saved.CallsInProgress() == 4
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
