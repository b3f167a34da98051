package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/picloud/picloud/pkg/adapters/redis"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSnapshotStoreContract(t, redis.NewStore(client))
}

func TestRedisJournal_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunJournalContract(t, redis.NewJournal(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewStore(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "app", domain.State{domain.SliceCallsInProgress: 1}))

	names, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, names, "app")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "app")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	// The index is pruned against wall-clock time, not miniredis time.
	time.Sleep(1200 * time.Millisecond)

	names, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, names)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewStore(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "main", domain.State{}))

	assert.True(t, mr.Exists("custom:app:snapshot:main"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:snapshot:index"), "Expected index with custom prefix to exist")
}

func TestRedisJournal_ReplayRebuildsCounter(t *testing.T) {
	mr, client := newClient(t)
	journal := redis.NewJournal(client)
	ctx := context.Background()

	for _, kind := range []string{"CALL_STARTED", "CALL_STARTED", "CALL_FAILED", "LOGIN_SUCCESS"} {
		require.NoError(t, journal.Append(ctx, "app", domain.NewSignal(kind)))
	}
	assert.True(t, mr.Exists("picloud:journal:app"))

	sigs, err := journal.Read(ctx, "app")
	require.NoError(t, err)

	count := 0
	for _, sig := range sigs {
		switch sig.Phase() {
		case domain.PhaseStarted:
			count++
		case domain.PhaseFailed, domain.PhaseCompleted:
			count--
		}
	}
	assert.Equal(t, 0, count)
}

func TestRedisJournal_CorruptEntry(t *testing.T) {
	mr, client := newClient(t)
	journal := redis.NewJournal(client)

	_, err := mr.Push("picloud:journal:bad", "{not json")
	require.NoError(t, err)

	_, err = journal.Read(context.Background(), "bad")
	assert.Error(t, err)
}
