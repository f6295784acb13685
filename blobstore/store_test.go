package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStoreLifecycle(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	data := []byte("ts,point_id\n1000,A12B5\n1003,A12B5\n")
	require.NoError(t, store.Put(ctx, "csv/uwb.csv", data))

	blob, err := store.Open(ctx, "csv/uwb.csv")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 8)
	n, err := blob.ReadAt(ctx, buf, 3)
	require.NoError(t, err)
	require.Equal(t, "point_id", string(buf[:n]))

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	r.Close()
	require.Equal(t, data, all)

	// Streaming create.
	w, err := store.Create(ctx, "csv/ble.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("ts,point_id\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "csv/")
	require.NoError(t, err)
	require.Equal(t, []string{"csv/ble.csv", "csv/uwb.csv"}, names)

	// Aborted writes leave nothing behind.
	w, err = store.Create(ctx, "csv/aborted.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	_, err = store.Open(ctx, "csv/aborted.csv")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "csv/ble.csv"))
	_, err = store.Open(ctx, "csv/ble.csv")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStoreLifecycle(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	testStoreLifecycle(t, store)
}

func TestLocalStoreAtomicRename(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	w, err := store.Create(ctx, "merged.jsonl")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"ts":1000}`))
	require.NoError(t, err)

	// Not visible before Close.
	_, statErr := os.Stat(filepath.Join(dir, "merged.jsonl"))
	require.True(t, os.IsNotExist(statErr))

	require.NoError(t, w.Close())
	_, statErr = os.Stat(filepath.Join(dir, "merged.jsonl"))
	require.NoError(t, statErr)
}

func TestReadAll(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "m", []byte("abc")))

	got, err := ReadAll(ctx, store, "m")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)
}
