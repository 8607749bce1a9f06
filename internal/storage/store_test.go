package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]RecordStore {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	db, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	all := map[string]RecordStore{"fs": fs, "sqlite": db, "memory": NewMemoryStore()}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func TestRecordStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "/src/Foo.h")
			require.Error(t, err)
			assert.True(t, IsNotFound(err))

			rec := &Record{Key: "/src/Foo.h", Data: []byte(`{"v":1}`), Metadata: Metadata{Custom: map[string]string{"fingerprint": "abc"}}}
			require.NoError(t, store.Put(ctx, rec))

			got, err := store.Get(ctx, "/src/Foo.h")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":1}`), got.Data)
			assert.Equal(t, "abc", got.Metadata.Custom["fingerprint"])
			assert.EqualValues(t, 7, got.Metadata.Size)
			assert.False(t, got.Metadata.CreatedAt.IsZero())

			// Put replaces.
			require.NoError(t, store.Put(ctx, &Record{Key: "/src/Foo.h", Data: []byte(`{"v":2}`)}))
			got, err = store.Get(ctx, "/src/Foo.h")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":2}`), got.Data)

			meta, err := store.Stat(ctx, "/src/Foo.h")
			require.NoError(t, err)
			assert.EqualValues(t, 7, meta.Size)

			require.NoError(t, store.Put(ctx, &Record{Key: "/src/Bar.h", Data: []byte("x")}))
			keys, err := store.List(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"/src/Foo.h", "/src/Bar.h"}, keys)

			require.NoError(t, store.Delete(ctx, "/src/Foo.h"))
			assert.True(t, IsNotFound(store.Delete(ctx, "/src/Foo.h")))
			_, err = store.Stat(ctx, "/src/Foo.h")
			assert.True(t, IsNotFound(err))
			keys, err = store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"/src/Bar.h"}, keys)
		})
	}
}

func TestFSStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), &Record{Key: "/src/Foo.h", Data: []byte("data")}))

	hash := hashKey("/src/Foo.h")
	_, err = os.Stat(filepath.Join(dir, "objects", hash[:2], hash[2:]))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "objects", hash[:2], hash[2:]+".meta.json"))
	require.NoError(t, err)

	// A second store on the same directory sees the record.
	reopened, err := NewFSStore(dir)
	require.NoError(t, err)
	keys, err := reopened.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/Foo.h"}, keys)
}

func TestFSStore_CanceledContext(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Put(ctx, &Record{Key: "k"}), context.Canceled)
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), &Record{Key: "k", Data: []byte("v")}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got.Data)
}

func TestMemoryStore_Calls(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := range 3 {
		require.NoError(t, store.Put(ctx, &Record{Key: fmt.Sprintf("k%d", i)}))
	}
	_, _ = store.Get(ctx, "k1")
	_, _ = store.Get(ctx, "missing")
	assert.Equal(t, MemoryCalls{Put: 3, Get: 2}, store.Calls())

	store.Corrupt("k1", []byte("garbage"))
	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("garbage"), got.Data)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrNotFound{Key: "k"})))
	assert.False(t, IsNotFound(os.ErrNotExist))
	assert.Equal(t, "record not found: k", ErrNotFound{Key: "k"}.Error())
}
