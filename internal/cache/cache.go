// Package cache stores API response bodies between lookups.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for response caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a URL and a credential fingerprint, so responses
// fetched with one API key are never served to another
func Key(url string, credential string) string {
	hash := sha256.Sum256([]byte(url + "\x00" + credential))
	return "peoplefinder:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache described by the arguments. An empty dir gives a memory-only cache.
func New(memoryTTL time.Duration, dir string, diskTTL time.Duration) Cache {
	if dir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, dir, diskTTL)
}
