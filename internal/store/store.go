package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
const (
	BucketSettings  = "settings"
	BucketPlaylists = "playlists"
	BucketModified  = "modified"
)

var allBuckets = []string{BucketSettings, BucketPlaylists, BucketModified}

// Store implements domain.KV using BoltDB.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// New opens the durable store under baseCacheDir, scoped per server URL.
// An empty baseCacheDir gives a memory-only store (no persistence), which
// doubles as the injected backend for tests.
func New(baseCacheDir, serverURL string) (*Store, error) {
	if baseCacheDir == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "cuelist.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetRecord reads a record into dest. Missing or corrupt records report
// false without surfacing an error; callers fall back to defaults.
func (s *Store) GetRecord(bucket, key string, dest any) bool {
	cacheKey := bucket + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

// PutRecord marshals and writes a record.
func (s *Store) PutRecord(bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := bucket + ":" + key

	// Update memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	// Write to BoltDB
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		return b.Put([]byte(key), data)
	})
}

// DeleteRecord removes a record if present.
func (s *Store) DeleteRecord(bucket, key string) {
	cacheKey := bucket + ":" + key

	// Clear from memory cache
	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// ForEachRecord visits every record in a bucket with its raw stored bytes.
func (s *Store) ForEachRecord(bucket string, fn func(key string, data []byte) error) error {
	if s.db == nil {
		// Memory-only mode: scan the cache map
		prefix := bucket + ":"

		s.mu.RLock()
		records := make(map[string][]byte)
		for k, v := range s.cache {
			if strings.HasPrefix(k, prefix) {
				records[strings.TrimPrefix(k, prefix)] = v
			}
		}
		s.mu.RUnlock()

		for k, v := range records {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	}

	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// ResetBuckets drops all records in the named buckets.
func (s *Store) ResetBuckets(buckets ...string) error {
	s.mu.Lock()
	for _, bucket := range buckets {
		prefix := bucket + ":"
		for k := range s.cache {
			if strings.HasPrefix(k, prefix) {
				delete(s.cache, k)
			}
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			b := tx.Bucket([]byte(bucket))
			if b == nil {
				continue
			}
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
