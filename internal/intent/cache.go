package intent

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DecodeCache memoizes successful decodes. Tokens are immutable, so an
// entry never goes stale. Failed decodes are not cached.
type DecodeCache struct {
	cache *lru.Cache[string, Intention]
}

// NewDecodeCache returns a cache holding up to size intentions. A size of
// zero or less disables caching.
func NewDecodeCache(size int) (*DecodeCache, error) {
	if size <= 0 {
		return &DecodeCache{}, nil
	}
	cache, err := lru.New[string, Intention](size)
	if err != nil {
		return nil, fmt.Errorf("creating decode cache: %w", err)
	}
	return &DecodeCache{cache: cache}, nil
}

func (c *DecodeCache) Decode(token string) (Intention, error) {
	if c == nil || c.cache == nil {
		return Decode(token)
	}
	if i, ok := c.cache.Get(token); ok {
		return i, nil
	}
	i, err := Decode(token)
	if err != nil {
		return Intention{}, err
	}
	c.cache.Add(token, i)
	return i, nil
}

// Len returns the number of cached intentions.
func (c *DecodeCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
