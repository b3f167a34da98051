package ports

import (
	"context"
	"testing"
	"time"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	name := "contract-test-snapshot-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.State{domain.SliceCallsInProgress: 2, "foo": "bar"}

		err := store.Save(ctx, name, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		// JSON persistence turns ints into float64; compare through the typed accessor.
		assert.Equal(t, 2, loaded.CallsInProgress())
		assert.Equal(t, "bar", loaded["foo"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Saved State Is Isolated", func(t *testing.T) {
		state := domain.State{domain.SliceCallsInProgress: 1}
		require.NoError(t, store.Save(ctx, name, state))
		state[domain.SliceCallsInProgress] = 50

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.CallsInProgress())
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, name, domain.State{})
		require.NoError(t, err)

		err = store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		_ = store.Save(ctx, id1, domain.State{})
		_ = store.Save(ctx, id2, domain.State{})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}

// RunJournalContract runs a suite of tests to verify that a Journal implementation
// adheres to the defined interface contract.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	stream := "contract-test-stream-" + time.Now().Format("20060102150405")

	t.Run("Empty Stream", func(t *testing.T) {
		sigs, err := journal.Read(ctx, "unknown-"+stream)
		require.NoError(t, err)
		assert.Empty(t, sigs)
	})

	t.Run("Append Preserves Order", func(t *testing.T) {
		want := []domain.Signal{
			domain.BeginCall(),
			domain.BeginCall(),
			domain.CallError(),
			domain.Succeeded("LOGIN"),
		}
		for _, sig := range want {
			require.NoError(t, journal.Append(ctx, stream, sig))
		}

		got, err := journal.Read(ctx, stream)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].Kind, got[i].Kind, "position %d", i)
		}
	})

	t.Run("Streams Are Independent", func(t *testing.T) {
		other := stream + "-other"
		require.NoError(t, journal.Append(ctx, other, domain.BeginCall()))
		defer func() { _ = journal.Truncate(ctx, other) }()

		got, err := journal.Read(ctx, other)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Truncate", func(t *testing.T) {
		require.NoError(t, journal.Truncate(ctx, stream))
		got, err := journal.Read(ctx, stream)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
