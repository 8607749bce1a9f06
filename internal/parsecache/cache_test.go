package parsecache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctool/internal/decl"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/storage"
)

func unit(path string, names ...string) *decl.Unit {
	u := &decl.Unit{Path: path}
	for _, n := range names {
		u.Declarations = append(u.Declarations, decl.Declaration{Kind: decl.KindClass, Name: n, Location: decl.SourceLocation{Path: path}})
	}
	return u
}

func newCache(t *testing.T, store storage.RecordStore) *Cache {
	t.Helper()
	c, err := New(store, 4, nil)
	require.NoError(t, err)
	return c
}

func TestKey(t *testing.T) {
	base := Key{Path: "/src/Foo.h", Fingerprint: Fingerprint([]byte("a")), Arguments: []string{"-DX", "-I."}}
	assert.True(t, base.Equal(Key{Path: "/src/Foo.h", Fingerprint: Fingerprint([]byte("a")), Arguments: []string{"-DX", "-I."}}))

	variants := map[string]Key{
		"path":          {Path: "/src/Bar.h", Fingerprint: base.Fingerprint, Arguments: base.Arguments},
		"fingerprint":   {Path: base.Path, Fingerprint: Fingerprint([]byte("b")), Arguments: base.Arguments},
		"argument":      {Path: base.Path, Fingerprint: base.Fingerprint, Arguments: []string{"-DY", "-I."}},
		"order":         {Path: base.Path, Fingerprint: base.Fingerprint, Arguments: []string{"-I.", "-DX"}},
		"extra":         {Path: base.Path, Fingerprint: base.Fingerprint, Arguments: []string{"-DX", "-I.", "-v"}},
		"no arguments":  {Path: base.Path, Fingerprint: base.Fingerprint},
		"split differs": {Path: base.Path, Fingerprint: base.Fingerprint, Arguments: []string{"-DX-I."}},
	}
	for name, k := range variants {
		t.Run(name, func(t *testing.T) {
			assert.False(t, base.Equal(k))
			assert.NotEqual(t, base.String(), k.String())
		})
	}
	assert.Len(t, Fingerprint(nil), 64)
}

func TestCache_ExactKeyMatch(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, storage.NewMemoryStore())
	key := Key{Path: "/src/Foo.h", Fingerprint: Fingerprint([]byte("@interface Foo")), Arguments: []string{"-DX"}}

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Store(ctx, key, unit("/src/Foo.h", "Foo")))
	got, ok := c.Lookup(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "Foo", got.Declarations[0].Name)

	changed := key
	changed.Fingerprint = Fingerprint([]byte("@interface Foo2"))
	_, ok = c.Lookup(ctx, changed)
	assert.False(t, ok, "content change is a miss")

	reordered := key
	reordered.Arguments = []string{"-DX", "-DY"}
	_, ok = c.Lookup(ctx, reordered)
	assert.False(t, ok, "argument change is a miss")

	// Storing the new version replaces the old entry.
	require.NoError(t, c.Store(ctx, changed, unit("/src/Foo.h", "Foo2")))
	_, ok = c.Lookup(ctx, key)
	assert.False(t, ok)
	got, ok = c.Lookup(ctx, changed)
	require.True(t, ok)
	assert.Equal(t, "Foo2", got.Declarations[0].Name)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 4, stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Positive(t, stats.Bytes)
	assert.InDelta(t, 1.0/3.0, stats.HitRate(), 0.001)
}

func TestCache_Persistent(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendFile, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			key := Key{Path: "/src/Foo.h", Fingerprint: "f1", Arguments: []string{"-x", "objective-c"}}

			c, err := Open(backend, dir, nil)
			require.NoError(t, err)
			require.NoError(t, c.Store(ctx, key, unit("/src/Foo.h", "Foo")))
			require.NoError(t, c.Close())

			reopened, err := Open(backend, dir, nil)
			require.NoError(t, err)
			defer reopened.Close()
			got, ok := reopened.Lookup(ctx, key)
			require.True(t, ok)
			assert.Equal(t, "Foo", got.Declarations[0].Name)
		})
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	key := Key{Path: "/src/Foo.h", Fingerprint: "f1"}
	require.NoError(t, newCache(t, store).Store(ctx, key, unit("/src/Foo.h", "Foo")))

	store.Corrupt("/src/Foo.h", []byte("{not json"))
	fresh := newCache(t, store)
	_, ok := fresh.Lookup(ctx, key)
	assert.False(t, ok)

	// The damaged record is discarded.
	_, err := store.Get(ctx, "/src/Foo.h")
	assert.True(t, storage.IsNotFound(err))

	require.NoError(t, fresh.Store(ctx, key, unit("/src/Foo.h", "Foo")))
	_, ok = fresh.Lookup(ctx, key)
	assert.True(t, ok)
}

func TestCache_StaleEntryIsMiss(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		reason string
	}{
		{"old format", `{"version":0,"key":{"path":"/src/Foo.h","fingerprint":"f1"}}`, "format version 0, want 1"},
		{"other path", `{"version":1,"key":{"path":"/src/Bar.h","fingerprint":"f1"}}`, "entry is for /src/Bar.h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemoryStore()
			require.NoError(t, store.Put(ctx, &storage.Record{Key: "/src/Foo.h", Data: []byte(tt.data)}))

			var logs bytes.Buffer
			c, err := New(store, 4, slog.New(slog.NewTextHandler(&logs, nil)))
			require.NoError(t, err)
			_, ok := c.Lookup(ctx, Key{Path: "/src/Foo.h", Fingerprint: "f1"})
			assert.False(t, ok)

			assert.Contains(t, logs.String(), "Discarding stale parse cache entry")
			assert.Contains(t, logs.String(), tt.reason)
			assert.NotContains(t, logs.String(), "error=")
			_, err = store.Get(ctx, "/src/Foo.h")
			assert.True(t, storage.IsNotFound(err))
		})
	}
}

func TestCache_PruneAndClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	present := filepath.Join(dir, "Present.h")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o600))
	gone := filepath.Join(dir, "Gone.h")

	c := newCache(t, storage.NewMemoryStore())
	require.NoError(t, c.Store(ctx, Key{Path: present, Fingerprint: "a"}, unit(present)))
	require.NoError(t, c.Store(ctx, Key{Path: gone, Fingerprint: "b"}, unit(gone)))

	removed, err := c.Prune(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, ok := c.Lookup(ctx, Key{Path: gone, Fingerprint: "b"})
	assert.False(t, ok)
	_, ok = c.Lookup(ctx, Key{Path: present, Fingerprint: "a"})
	assert.True(t, ok)

	removed, err = c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, storage.NewMemoryStore())
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("/src/F%d.h", i%4)
			key := Key{Path: path, Fingerprint: fmt.Sprint(i)}
			assert.NoError(t, c.Store(ctx, key, unit(path, "C")))
			_, _ = c.Lookup(ctx, key)
		}()
	}
	wg.Wait()
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Entries)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open("redis", t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCache))

	c, err := Open(BackendNone, "", nil)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
