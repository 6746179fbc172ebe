package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Cache on-disk chunk translation cache
type Cache struct {
	dir      string
	mutex    sync.RWMutex
	disabled bool
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, disabled: false}, nil
}

// DisableCache stops reads; writes still refresh entries.
func (c *Cache) DisableCache() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.disabled = true
}

// Get returns the cached value for key.
func (c *Cache) Get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.disabled {
		return "", false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}

	return string(data), true
}

// Set stores value under key.
func (c *Cache) Set(key, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return os.WriteFile(c.path(key), []byte(value), 0644)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, c.hashKey(key)+".txt")
}

func (c *Cache) hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// CacheKey builds the key of one chunk translation by one engine.
func CacheKey(provider, text, source, target string) string {
	data := map[string]string{
		"provider": provider,
		"text":     text,
		"source":   source,
		"target":   target,
	}
	jsonData, _ := json.Marshal(data)
	return string(jsonData)
}
