// Package cache keeps rendered map snapshots on disk so an unchanged
// concept set is not laid out and rasterized again.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lukechampine.com/blake3"
)

const indexVersion = "1"

// Cache is a size-bounded, least-recently-used store of byte blobs
type Cache struct {
	mu      sync.Mutex
	dir     string
	maxSize int64
	maxAge  time.Duration
	index   *Index
	stats   Stats
	log     *slog.Logger
	now     func() time.Time
}

// Index is persisted as index.json next to the blobs
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry is one cached blob
type Entry struct {
	Key        string    `json:"key"`
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
	Hits       int       `json:"hits"`
}

// Stats counts cache activity since New
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	TotalSize int64 `json:"total_size"`
	Entries   int   `json:"entries"`
}

// Config holds cache limits. Zero MaxSize or MaxAge means unlimited.
type Config struct {
	Dir     string
	MaxSize int64
	MaxAge  time.Duration
}

// DefaultConfig stores up to 64 MiB for a week under the user cache dir
func DefaultConfig() Config {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return Config{
		Dir:     filepath.Join(base, "conceptmap", "snapshots"),
		MaxSize: 64 << 20,
		MaxAge:  7 * 24 * time.Hour,
	}
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option { return func(c *Cache) { c.log = l } }

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// New opens or creates the cache in cfg.Dir. A missing or corrupt index
// starts the cache empty.
func New(cfg Config, opts ...Option) (*Cache, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultConfig().Dir
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c := &Cache{
		dir:     cfg.Dir,
		maxSize: cfg.MaxSize,
		maxAge:  cfg.MaxAge,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if err := c.loadIndex(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("snapshot cache index unreadable, starting empty", "dir", c.dir, "error", err)
		}
		c.index = &Index{Version: indexVersion, Entries: make(map[string]*Entry)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.index.Entries {
		if c.expired(e) {
			c.removeLocked(key)
		}
	}
	return c, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string { return c.dir }

// Get returns the blob stored under key
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.expired(e) {
		c.removeLocked(key)
		c.stats.Misses++
		c.saveLocked()
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, e.File))
	if err != nil {
		c.log.Debug("snapshot cache entry lost", "key", key, "error", err)
		c.removeLocked(key)
		c.stats.Misses++
		c.saveLocked()
		return nil, false
	}
	e.LastAccess = c.now()
	e.Hits++
	c.stats.Hits++
	c.saveLocked()
	return data, true
}

// Put stores data under key, evicting least recently used entries to stay
// under the size limit. A blob larger than the limit is not stored.
func (c *Cache) Put(key string, data []byte) error {
	size := int64(len(data))
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && size > c.maxSize {
		c.log.Debug("snapshot too large to cache", "key", key, "size", size)
		return nil
	}
	if _, ok := c.index.Entries[key]; ok {
		c.removeLocked(key)
	}
	for c.maxSize > 0 && c.stats.TotalSize+size > c.maxSize && len(c.index.Entries) > 0 {
		c.removeLocked(c.oldestLocked())
		c.stats.Evictions++
	}

	file := Key(key)[:32]
	if err := os.WriteFile(filepath.Join(c.dir, file), data, 0o644); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	now := c.now()
	c.index.Entries[key] = &Entry{Key: key, File: file, Size: size, Created: now, LastAccess: now}
	c.stats.TotalSize += size
	c.stats.Entries = len(c.index.Entries)
	return c.saveLocked()
}

// Delete removes key
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index.Entries[key]; !ok {
		return nil
	}
	c.removeLocked(key)
	return c.saveLocked()
}

// Clear removes every entry
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.index.Entries {
		c.removeLocked(key)
	}
	return c.saveLocked()
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Key hashes its parts into a cache key. Parts are length-prefixed so
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := blake3.New(32, nil)
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) expired(e *Entry) bool {
	return c.maxAge > 0 && c.now().Sub(e.Created) > c.maxAge
}

func (c *Cache) oldestLocked() string {
	var (
		oldest string
		at     time.Time
	)
	for key, e := range c.index.Entries {
		if oldest == "" || e.LastAccess.Before(at) {
			oldest, at = key, e.LastAccess
		}
	}
	return oldest
}

func (c *Cache) removeLocked(key string) {
	e, ok := c.index.Entries[key]
	if !ok {
		return
	}
	if err := os.Remove(filepath.Join(c.dir, e.File)); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("remove cached snapshot", "file", e.File, "error", err)
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= e.Size
	c.stats.Entries = len(c.index.Entries)
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if idx.Version != indexVersion || idx.Entries == nil {
		return fmt.Errorf("index version %q", idx.Version)
	}
	c.index = &idx
	for _, e := range idx.Entries {
		c.stats.TotalSize += e.Size
	}
	c.stats.Entries = len(idx.Entries)
	return nil
}

func (c *Cache) saveLocked() error {
	c.index.Updated = c.now()
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0o644); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
