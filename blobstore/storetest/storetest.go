// Package storetest provides a conformance suite for blobstore.Store
// implementations.
package storetest

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/horago/blobstore"
)

// Run exercises store against the blobstore.Store contract.
func Run(t *testing.T, store blobstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := store.Open(ctx, "missing.bin")
		assert.True(t, errors.Is(err, blobstore.ErrNotFound), "got %v", err)
	})

	t.Run("PutOpen", func(t *testing.T) {
		data := []byte("hello world, this is a test blob")
		require.NoError(t, store.Put(ctx, "put.bin", data))

		blob, err := store.Open(ctx, "put.bin")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(len(data)), blob.Size())

		buf := make([]byte, 5)
		n, err := blob.ReadAt(buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))

		all, err := io.ReadAll(blobstore.NewReader(blob))
		require.NoError(t, err)
		assert.Equal(t, data, all)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "over.bin", []byte("first")))
		require.NoError(t, store.Put(ctx, "over.bin", []byte("second")))
		assert.Equal(t, []byte("second"), readAll(t, store, "over.bin"))
	})

	t.Run("CreateClose", func(t *testing.T) {
		w, err := store.Create(ctx, "stream.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("part1-"))
		require.NoError(t, err)
		_, err = w.Write([]byte("part2"))
		require.NoError(t, err)
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		assert.Equal(t, []byte("part1-part2"), readAll(t, store, "stream.bin"))

		_, err = w.Write([]byte("late"))
		assert.Error(t, err)
	})

	t.Run("CreateAbort", func(t *testing.T) {
		w, err := store.Create(ctx, "aborted.bin")
		require.NoError(t, err)
		_, err = w.Write([]byte("discard me"))
		require.NoError(t, err)
		require.NoError(t, w.Abort())

		_, err = store.Open(ctx, "aborted.bin")
		assert.True(t, errors.Is(err, blobstore.ErrNotFound), "got %v", err)
	})

	t.Run("EmptyBlob", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "empty.bin", nil))
		assert.Empty(t, readAll(t, store, "empty.bin"))
	})

	t.Run("ListDelete", func(t *testing.T) {
		for _, name := range []string{"list/b.bin", "list/a.bin", "other/c.bin"} {
			require.NoError(t, store.Put(ctx, name, []byte(name)))
		}

		names, err := store.List(ctx, "list/")
		require.NoError(t, err)
		assert.Equal(t, []string{"list/a.bin", "list/b.bin"}, names)

		require.NoError(t, store.Delete(ctx, "list/a.bin"))
		require.NoError(t, store.Delete(ctx, "list/a.bin"))

		names, err = store.List(ctx, "list/")
		require.NoError(t, err)
		assert.Equal(t, []string{"list/b.bin"}, names)
	})

	t.Run("InvalidNames", func(t *testing.T) {
		for _, name := range []string{"../escape", "list/../../escape", "/abs/escape", ""} {
			_, err := store.Open(ctx, name)
			assert.ErrorIs(t, err, blobstore.ErrInvalidName, name)
			_, err = store.Create(ctx, name)
			assert.ErrorIs(t, err, blobstore.ErrInvalidName, name)
			assert.ErrorIs(t, store.Put(ctx, name, []byte("x")), blobstore.ErrInvalidName, name)
			assert.ErrorIs(t, store.Delete(ctx, name), blobstore.ErrInvalidName, name)
		}
	})
}

func readAll(t *testing.T, store blobstore.Store, name string) []byte {
	t.Helper()
	blob, err := store.Open(context.Background(), name)
	require.NoError(t, err)
	defer blob.Close()

	data, err := io.ReadAll(blobstore.NewReader(blob))
	require.NoError(t, err)
	return data
}
