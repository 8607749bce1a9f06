// Package parsecache remembers front-end output per source file so unchanged files are not
// parsed again.
//
// Entries are keyed by the absolute file path. A lookup only hits when the stored entry's
// full key (path, content fingerprint and ordered compiler arguments) equals the requested
// key; anything else is a miss. Only the newest entry per path is kept.
package parsecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/doctool/internal/decl"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/storage"
)

// ErrCacheMiss is returned by Get when no matching entry exists.
var ErrCacheMiss = errors.New("parse cache miss")

// formatVersion changes whenever the encoded entry layout changes; older entries are misses.
const formatVersion = 1

// DefaultMemoryEntries bounds the in-memory layer.
const DefaultMemoryEntries = 512

// Entry is one cached parse result.
type Entry struct {
	Version  int       `json:"version"`
	Key      Key       `json:"key"`
	Unit     decl.Unit `json:"unit"`
	StoredAt time.Time `json:"stored_at"`
}

// Stats summarizes cache activity since the cache was opened.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// HitRate is the share of lookups that hit, 0 when nothing was looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache layers an in-memory LRU over a persistent record store.
// A single mutex serializes lookups and stores.
type Cache struct {
	mu     sync.Mutex
	memory *lru.Cache[string, *Entry]
	store  storage.RecordStore
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache over store. memoryEntries <= 0 selects DefaultMemoryEntries.
func New(store storage.RecordStore, memoryEntries int, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	if memoryEntries <= 0 {
		memoryEntries = DefaultMemoryEntries
	}
	memory, err := lru.New[string, *Entry](memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &Cache{memory: memory, store: store, logger: logger}, nil
}

// Backends accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Open creates a cache with the named persistent backend at path. BackendNone keeps entries in
// memory only. A store that cannot be opened is reported as a cache error; callers may fall
// back to New(nil, ...).
func Open(backend, path string, logger *slog.Logger) (*Cache, error) {
	var (
		store storage.RecordStore
		err   error
	)
	switch backend {
	case BackendNone:
		store = storage.NewMemoryStore()
	case BackendSQLite:
		if err = os.MkdirAll(path, 0750); err == nil {
			store, err = storage.NewSQLiteStore(filepath.Join(path, "parse-cache.db"))
		}
	case BackendFile, "":
		store, err = storage.NewFSStore(path)
	default:
		err = fmt.Errorf("unknown cache backend %q", backend)
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryCache, "cannot open parse cache").
			WithContext("path", path).WithContext("backend", backend).Build()
	}
	return New(store, 0, logger)
}

// Get returns the unit stored for key, or ErrCacheMiss. Unreadable or undecodable storage is
// treated as a miss.
func (c *Cache) Get(ctx context.Context, key Key) (*decl.Unit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.load(ctx, key.Path)
	if entry == nil || !entry.Key.Equal(key) {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	c.hits.Add(1)
	unit := entry.Unit
	return &unit, nil
}

// Lookup is Get with a boolean result.
func (c *Cache) Lookup(ctx context.Context, key Key) (*decl.Unit, bool) {
	unit, err := c.Get(ctx, key)
	return unit, err == nil
}

// load returns the newest entry for path from memory or storage. Caller holds c.mu.
func (c *Cache) load(ctx context.Context, path string) *Entry {
	if e, ok := c.memory.Get(path); ok {
		return e
	}
	rec, err := c.store.Get(ctx, path)
	if err != nil {
		if !storage.IsNotFound(err) {
			c.logger.Warn("Parse cache read failed; treating as miss", logfields.File(path), logfields.Error(err))
		}
		return nil
	}
	var e Entry
	if err := json.Unmarshal(rec.Data, &e); err != nil {
		c.logger.Warn("Discarding unreadable parse cache entry", logfields.File(path), logfields.Error(err))
		_ = c.store.Delete(ctx, path)
		return nil
	}
	if reason := staleReason(&e, path); reason != "" {
		c.logger.Info("Discarding stale parse cache entry", logfields.File(path), slog.String("reason", reason))
		_ = c.store.Delete(ctx, path)
		return nil
	}
	c.memory.Add(path, &e)
	return &e
}

// staleReason explains why a decoded entry cannot serve path, or returns "".
func staleReason(e *Entry, path string) string {
	switch {
	case e.Version != formatVersion:
		return fmt.Sprintf("format version %d, want %d", e.Version, formatVersion)
	case e.Key.Path != path:
		return fmt.Sprintf("entry is for %s", e.Key.Path)
	}
	return ""
}

// Store records unit as the parse result for key, replacing any older entry for the path.
func (c *Cache) Store(ctx context.Context, key Key, unit *decl.Unit) error {
	entry := &Entry{Version: formatVersion, Key: key, Unit: *unit, StoredAt: time.Now().UTC()}
	data, err := json.Marshal(entry)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCache, "cannot encode parse cache entry").
			WithContext("path", key.Path).Build()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory.Add(key.Path, entry)
	rec := &storage.Record{Key: key.Path, Data: data, Metadata: storage.Metadata{
		Custom: map[string]string{"fingerprint": key.Fingerprint, "key": key.String()},
	}}
	if err := c.store.Put(ctx, rec); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCache, "cannot persist parse cache entry").
			WithContext("path", key.Path).Build()
	}
	return nil
}

// Stats reports hit counters and the number and size of persisted entries.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	keys, err := c.store.List(ctx)
	if err != nil {
		return s, ferrors.WrapError(err, ferrors.CategoryCache, "cannot list parse cache").Build()
	}
	s.Entries = len(keys)
	for _, k := range keys {
		if meta, err := c.store.Stat(ctx, k); err == nil {
			s.Bytes += meta.Size
		}
	}
	return s, nil
}

// Prune removes entries whose path keep rejects and returns how many were removed.
// A nil keep removes entries for files that no longer exist.
func (c *Cache) Prune(ctx context.Context, keep func(path string) bool) (int, error) {
	if keep == nil {
		keep = fileExists
	}
	return c.remove(ctx, func(path string) bool { return !keep(path) })
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	return c.remove(ctx, func(string) bool { return true })
}

func (c *Cache) remove(ctx context.Context, drop func(path string) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.List(ctx)
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryCache, "cannot list parse cache").Build()
	}
	removed := 0
	for _, k := range keys {
		if !drop(k) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil && !storage.IsNotFound(err) {
			return removed, ferrors.WrapError(err, ferrors.CategoryCache, "cannot delete parse cache entry").
				WithContext("path", k).Build()
		}
		c.memory.Remove(k)
		removed++
	}
	// Entries whose persist failed exist only in memory.
	for _, k := range c.memory.Keys() {
		if drop(k) {
			c.memory.Remove(k)
		}
	}
	return removed, nil
}

// Close releases the persistent store.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory.Purge()
	return c.store.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
