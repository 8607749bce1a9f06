package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FSStore is a filesystem-based implementation of RecordStore.
// Records are addressed by the SHA-256 of their key:
//
//	<cache>/
//	  objects/
//	    ab/
//	      cd1234...            record data
//	      cd1234....meta.json  key and metadata
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

type fsMeta struct {
	Key string `json:"key"`
	Metadata
}

// NewFSStore creates a new filesystem-based record store rooted at basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	dir := filepath.Join(basePath, "objects")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return &FSStore{basePath: basePath}, nil
}

// Put stores a record, replacing any previous record with the same key.
func (fs *FSStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	hash := hashKey(rec.Key)
	objectPath := fs.objectPath(hash)
	if err := os.MkdirAll(filepath.Dir(objectPath), 0750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	if err := writeFileAtomic(objectPath, rec.Data); err != nil {
		return fmt.Errorf("write object: %w", err)
	}

	now := time.Now()
	meta := fsMeta{Key: rec.Key, Metadata: Metadata{
		CreatedAt:    now,
		LastAccessed: now,
		Size:         int64(len(rec.Data)),
		Custom:       copyCustom(rec.Metadata.Custom),
	}}
	if err := fs.writeMetadata(hash, meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Get retrieves the record stored under key.
func (fs *FSStore) Get(ctx context.Context, key string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Get rewrites the access time, so it needs the write lock.
	fs.mu.Lock()
	defer fs.mu.Unlock()

	hash := hashKey(key)
	// #nosec G304 - objectPath is internal, constructed from a hex digest
	data, err := os.ReadFile(fs.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Key: key}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	meta, err := fs.readMetadata(hash)
	if err != nil {
		meta = fsMeta{Key: key, Metadata: Metadata{CreatedAt: time.Now(), Size: int64(len(data))}}
	}
	meta.LastAccessed = time.Now()
	_ = fs.writeMetadata(hash, meta) // access time is advisory

	return &Record{Key: key, Data: data, Metadata: meta.Metadata}, nil
}

// Stat returns the metadata of the record stored under key.
func (fs *FSStore) Stat(ctx context.Context, key string) (Metadata, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	meta, err := fs.readMetadata(hashKey(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, ErrNotFound{Key: key}
		}
		return Metadata{}, err
	}
	return meta.Metadata, nil
}

// Delete removes the record stored under key.
func (fs *FSStore) Delete(ctx context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.deleteUnlocked(key)
}

// List returns the keys of every stored record.
func (fs *FSStore) List(ctx context.Context) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var keys []string
	objectsDir := filepath.Join(fs.basePath, "objects")
	err := filepath.WalkDir(objectsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".meta.json") {
			return nil
		}
		// #nosec G304 - path comes from walking the store's own directory
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var meta fsMeta
		if json.Unmarshal(data, &meta) != nil || meta.Key == "" {
			return nil
		}
		keys = append(keys, meta.Key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk objects: %w", err)
	}
	return keys, nil
}

// Close releases resources.
func (fs *FSStore) Close() error {
	return nil
}

func (fs *FSStore) deleteUnlocked(key string) error {
	hash := hashKey(key)
	objectPath := fs.objectPath(hash)
	if err := os.Remove(objectPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{Key: key}
		}
		return fmt.Errorf("delete object: %w", err)
	}
	_ = os.Remove(fs.metadataPath(hash))
	_ = os.Remove(filepath.Dir(objectPath)) // only succeeds when empty
	return nil
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// objectPath returns the filesystem path for a record's data.
func (fs *FSStore) objectPath(hash string) string {
	// Use first 2 chars as directory, rest as filename
	return filepath.Join(fs.basePath, "objects", hash[:2], hash[2:])
}

func (fs *FSStore) metadataPath(hash string) string {
	return fs.objectPath(hash) + ".meta.json"
}

func (fs *FSStore) readMetadata(hash string) (fsMeta, error) {
	// #nosec G304 - metadataPath is internal, constructed from a hex digest
	data, err := os.ReadFile(fs.metadataPath(hash))
	if err != nil {
		return fsMeta{}, err
	}
	var meta fsMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fsMeta{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

func (fs *FSStore) writeMetadata(hash string, meta fsMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return writeFileAtomic(fs.metadataPath(hash), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
