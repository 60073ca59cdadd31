// Package cache holds recent covering results in an in-process LRU so
// repeated identical queries skip the ring search entirely.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/geodesio/cellcover/internal/core/model"
	"github.com/geodesio/cellcover/internal/core/observability"
)

type CoveringCache struct {
	lru *lru.Cache[string, model.CoveringResult]
}

func New(size int) *CoveringCache {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, model.CoveringResult](size)
	return &CoveringCache{lru: c}
}

func (c *CoveringCache) Get(key string) (model.CoveringResult, bool) {
	if c == nil {
		return model.CoveringResult{}, false
	}
	res, ok := c.lru.Get(key)
	if ok {
		observability.IncCacheHit()
	} else {
		observability.IncCacheMiss()
	}
	return res, ok
}

func (c *CoveringCache) Add(key string, res model.CoveringResult) {
	if c == nil {
		return
	}
	c.lru.Add(key, res)
}

func (c *CoveringCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *CoveringCache) Purge() {
	if c != nil {
		c.lru.Purge()
	}
}
