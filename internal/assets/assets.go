// Package assets resolves dataset files against search roots and caches the
// parsed arrays.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Faultbox/latent-explorer/pkg/formats"
)

// ErrNotFound is returned when no root holds the requested file.
var ErrNotFound = errors.New("file not found")

// Manager handles array loading from directories.
type Manager struct {
	roots []string
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddRoot adds a search directory.
// Roots are searched in reverse order (last added = highest priority).
func (m *Manager) AddRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening root %s: not a directory", dir)
	}

	m.mu.Lock()
	m.roots = append(m.roots, dir)
	m.mu.Unlock()

	return nil
}

// Resolve returns the path of the first root holding name. Absolute paths
// and a manager without roots resolve to name itself.
func (m *Manager) Resolve(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if filepath.IsAbs(name) || len(m.roots) == 0 {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return name, nil
	}

	for i := len(m.roots) - 1; i >= 0; i-- {
		path := filepath.Join(m.roots[i], name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Read loads and parses a .npy array.
func (m *Manager) Read(ctx context.Context, name string) (*formats.NPY, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}

	// Check cache first
	if arr, ok := m.cache.Get(path); ok {
		return arr, nil
	}

	arr, err := formats.ParseNPYFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.cache.Set(path, arr)
	return arr, nil
}

// Close drops the roots and the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache of parsed arrays. Cached arrays are
// shared and must not be modified.
type Cache struct {
	data map[string]*formats.NPY
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*formats.NPY),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*formats.NPY, bool) {
	// Write lock: the stats are updated.
	c.mu.Lock()
	defer c.mu.Unlock()

	arr, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return arr, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, arr *formats.NPY) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = arr
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*formats.NPY)
	c.hits = 0
	c.misses = 0
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Stats returns the cache hit and miss counts.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}
