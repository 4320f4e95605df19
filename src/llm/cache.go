package llm

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cached remembers successful explanations per selected text so reselecting
// the same passage does not hit the service again. Failures are never cached.
type Cached struct {
	next  Fetcher
	cache *cache.Cache
}

// NewCached wraps next. A ttl <= 0 returns next unchanged.
func NewCached(next Fetcher, ttl time.Duration) Fetcher {
	if ttl <= 0 {
		return next
	}
	return &Cached{next: next, cache: cache.New(ttl, 2*ttl)}
}

// Fetch serves a remembered explanation only while a credential is set, so
// clearing the key behaves the same with or without the cache.
func (c *Cached) Fetch(ctx context.Context, text, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", &Failure{Kind: MissingCredential}
	}
	if x, found := c.cache.Get(text); found {
		return x.(string), nil
	}
	content, err := c.next.Fetch(ctx, text, credential)
	if err != nil {
		return "", err
	}
	c.cache.Set(text, content, cache.DefaultExpiration)
	return content, nil
}

// Len reports the number of cached explanations.
func (c *Cached) Len() int { return c.cache.ItemCount() }
