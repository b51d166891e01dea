package engine

import (
	"sync"

	"cryptoSignalBot/internal/domain"
)

// Cache is a concurrent map from key to engine, lazily populated. The build
// function for a key runs at most once even under concurrent first access;
// the cache owns the handles it creates.
type Cache struct {
	mu      sync.Mutex
	engines map[string]*Engine
}

// NewCache creates an empty engine cache.
func NewCache() *Cache {
	return &Cache{engines: make(map[string]*Engine)}
}

// GetOrCreate returns the engine for the key, building it on first access.
func (c *Cache) GetOrCreate(key domain.Key, build func() (*Engine, error)) (*Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if eng, ok := c.engines[key.String()]; ok {
		return eng, nil
	}
	eng, err := build()
	if err != nil {
		return nil, err
	}
	c.engines[key.String()] = eng
	return eng, nil
}

// Get returns the engine for the key if one exists.
func (c *Cache) Get(key domain.Key) (*Engine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	eng, ok := c.engines[key.String()]
	return eng, ok
}

// StopAll sets the stop flag on every cached engine.
func (c *Cache) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, eng := range c.engines {
		eng.Stop()
	}
}
