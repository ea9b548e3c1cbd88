// Package storagetest exercises any storage.Store implementation against the same expectations.
package storagetest

import (
	"bytes"
	"context"
	"testing"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run the conformance suite on an empty store
func Run(t *testing.T, store storage.Store) {
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "chunks/aa/one", bytes.NewBufferString("one"), storage.NoOverWrite))
		require.NoError(t, store.Put(ctx, "chunks/bb/two", bytes.NewBufferString("two"), storage.NoOverWrite))

		b, err := storage.ReadAll(ctx, store, "chunks/aa/one")
		require.NoError(t, err)
		assert.Equal(t, "one", string(b))

		has, err := store.Has(ctx, "chunks/bb/two")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("missing", func(t *testing.T) {
		has, err := store.Has(ctx, "chunks/cc/three")
		require.NoError(t, err)
		assert.False(t, has)

		_, err = store.Get(ctx, "chunks/cc/three")
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrNotExists))
	})

	t.Run("exclusive put", func(t *testing.T) {
		err := store.Put(ctx, "chunks/aa/one", bytes.NewBufferString("uno"), storage.NoOverWrite)
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrExists))

		require.NoError(t, store.Put(ctx, "chunks/aa/one", bytes.NewBufferString("uno"), storage.OverWrite))
		b, err := storage.ReadAll(ctx, store, "chunks/aa/one")
		require.NoError(t, err)
		assert.Equal(t, "uno", string(b))
	})

	t.Run("keys and delete", func(t *testing.T) {
		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"chunks/aa/one", "chunks/bb/two"}, keys)

		require.NoError(t, store.Delete(ctx, "chunks/aa/one"))
		keys, err = store.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"chunks/bb/two"}, keys)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	assert.NotEmpty(t, store.String())
}
