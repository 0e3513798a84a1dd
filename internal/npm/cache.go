package npm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCacheTTL is how long a cached registry document stays fresh.
const DefaultCacheTTL = 15 * time.Minute

// Cache stores fetched registry documents on disk, one file per package,
// invalidated by age. All operations are best effort: a broken cache never
// breaks resolution, it only costs a network round trip.
type Cache struct {
	dir string
	ttl time.Duration
}

// cacheEntry wraps a stored document with the time it was fetched.
type cacheEntry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Body      json.RawMessage `json:"body"`
}

// NewCache creates a cache rooted at dir. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewCache(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{dir: dir, ttl: ttl}
}

// Dir returns the cache's root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns the cached document for name when present and still fresh.
func (c *Cache) Get(name string) ([]byte, bool) {
	entry, err := loadEntry(c.entryPath(name))
	if err != nil {
		return nil, false
	}
	if time.Since(entry.FetchedAt) > c.ttl {
		return nil, false
	}
	return entry.Body, true
}

// Put stores a fetched document for name. Write failures are ignored.
func (c *Cache) Put(name string, body []byte) {
	entry := cacheEntry{
		FetchedAt: time.Now(),
		Body:      json.RawMessage(body),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return
	}

	// Ensure the cache directory exists.
	os.MkdirAll(c.dir, 0755)

	os.WriteFile(c.entryPath(name), data, 0644)
}

// Clear removes every cached document and leaves the directory in place.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0755)
}

// entryPath maps a package name to its cache file. Scoped-name slashes and
// the scope marker are flattened so the name stays a single path element.
func (c *Cache) entryPath(name string) string {
	flat := strings.NewReplacer("/", "_", "@", "").Replace(name)
	return filepath.Join(c.dir, flat+".json")
}

// loadEntry reads and parses one cache file.
func loadEntry(path string) (*cacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
