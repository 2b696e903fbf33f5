package gate

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Cache stores the last resolved maintenance flag with an expiry. Concurrent
// refreshes may race; both write the same derived value, so last-write-wins
// is fine and no coordination is attempted.
type Cache interface {
	// Get returns the cached value and whether it is still fresh.
	Get() (value string, ok bool)
	Set(value string, ttl time.Duration)
}

// MemoryCache keeps the flag in process memory. Suitable for long-lived
// servers where all requests share one process.
type MemoryCache struct {
	mu      sync.Mutex
	value   string
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == "" || time.Now().After(c.expires) {
		return "", false
	}
	return c.value, true
}

func (c *MemoryCache) Set(value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.expires = time.Now().Add(ttl)
}

// FileCache persists the flag to a JSON file so it survives independent
// short-lived processes (CGI-style glue). Errors reading or writing the file
// degrade to a cache miss.
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

type fileCacheEntry struct {
	Value   string `json:"value"`
	Expires int64  `json:"expires"`
}

func (c *FileCache) Get() (string, bool) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}

	var entry fileCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", false
	}

	if entry.Value == "" || time.Now().Unix() >= entry.Expires {
		return "", false
	}
	return entry.Value, true
}

func (c *FileCache) Set(value string, ttl time.Duration) {
	entry := fileCacheEntry{
		Value:   value,
		Expires: time.Now().Add(ttl).Unix(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	// Write-then-rename so a concurrent reader never sees a torn file.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.path)
}
