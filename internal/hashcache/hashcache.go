// Package hashcache persists content digests between runs so repeated scans
// of a large library only hash files that actually changed. A cache entry is
// keyed by path, size, and modification time; any change to the file
// invalidates it naturally.
package hashcache

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"github.com/shelver-tools/shelver/internal/duplicates"
)

var bucketName = []byte("digests")

// Cache is a bbolt-backed Digester that delegates misses to an inner
// Digester and stores the result.
type Cache struct {
	db    *bolt.DB
	inner duplicates.Digester
}

// Open creates or opens the cache database at path. A nil inner digester
// defaults to local MD5.
func Open(path string, inner duplicates.Digester) (*Cache, error) {
	if inner == nil {
		inner = duplicates.MD5Digester{}
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open hash cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize hash cache: %w", err)
	}
	return &Cache{db: db, inner: inner}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Digest returns the cached digest when the file is unchanged, otherwise
// hashes through the inner Digester and stores the result. Cache I/O errors
// degrade to a plain hash, never to a failed digest.
func (c *Cache) Digest(path string) (string, error) {
	key, err := cacheKey(path)
	if err != nil {
		return "", err
	}

	var cached string
	err = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(key); v != nil {
			cached = string(v)
		}
		return nil
	})
	if err == nil && cached != "" {
		return cached, nil
	}

	sum, err := c.inner.Digest(path)
	if err != nil {
		return "", err
	}

	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, []byte(sum))
	}); err != nil {
		slog.Warn("failed to store digest in cache", "path", path, "error", err)
	}
	return sum, nil
}

// cacheKey encodes path, size, and mtime. Any metadata change produces a
// fresh key; stale entries for the old state simply age out unused.
func cacheKey(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	key := path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	return []byte(key), nil
}
