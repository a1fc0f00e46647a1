// Package provider loads the klinik runtime settings from multiple sources with precedence.
package provider

import (
	"sync"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

// Cache provides thread-safe caching for the runtime settings.
type Cache struct {
	mu       sync.RWMutex
	settings *pkgconfig.Settings
}

// NewCache creates a new Cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get retrieves the cached settings.
// Returns nil if nothing is cached.
func (c *Cache) Get() *pkgconfig.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.settings
}

// Set caches the given settings.
func (c *Cache) Set(settings *pkgconfig.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings = settings
}

// Clear clears the cached settings.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings = nil
}

// Has checks if settings are cached.
func (c *Cache) Has() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.settings != nil
}
