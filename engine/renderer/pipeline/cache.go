package pipeline

import (
	"fmt"
	"log/slog"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of pipelines kept before the least recently used one is released.
const DefaultCacheSize = 16

// cache is the implementation of the Cache interface.
type cache struct {
	lru *lru.Cache[string, Pipeline]
}

// Cache holds built pipelines by key. A pipeline evicted to make room, removed, or purged
// is released.
type Cache interface {
	// Add stores p under its key.
	//
	// Parameters:
	//   - p: the pipeline to store
	//
	// Returns:
	//   - error: error if a pipeline with the same key is already cached
	Add(p Pipeline) error

	// Get returns the pipeline stored under key and marks it recently used.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - Pipeline: the cached pipeline
	//   - bool: false if no pipeline is cached under key
	Get(key string) (Pipeline, bool)

	// Remove releases and forgets the pipeline stored under key.
	Remove(key string)

	// Len returns the number of cached pipelines.
	Len() int

	// Release releases every cached pipeline, most recently used first.
	Release()
}

var _ Cache = &cache{}

// NewCache creates a pipeline cache holding at most size pipelines.
//
// Parameters:
//   - size: the capacity; values < 1 use DefaultCacheSize
//
// Returns:
//   - Cache: the cache
func NewCache(size int) Cache {
	if size < 1 {
		size = DefaultCacheSize
	}
	l, _ := lru.NewWithEvict[string, Pipeline](size, releasePipelineOnEviction)
	return &cache{lru: l}
}

func (c *cache) Add(p Pipeline) error {
	if c.lru.Contains(p.Key()) {
		return fmt.Errorf("pipeline %s: already cached", p.Key())
	}
	c.lru.Add(p.Key(), p)
	return nil
}

func (c *cache) Get(key string) (Pipeline, bool) {
	return c.lru.Get(key)
}

func (c *cache) Remove(key string) {
	c.lru.Remove(key)
}

func (c *cache) Len() int {
	return c.lru.Len()
}

func (c *cache) Release() {
	keys := c.lru.Keys()
	slices.Reverse(keys)
	for _, key := range keys {
		c.lru.Remove(key)
	}
}

func releasePipelineOnEviction(key string, p Pipeline) {
	slog.Debug("releasing pipeline", slog.String("key", key))
	p.Release()
}
