// Package netcache memoizes idempotent outbound HTTP responses for a short TTL.
package netcache

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	oberr "oceanbot/internal/errors"
	"oceanbot/internal/httpx"
	"oceanbot/internal/observability/metrics"
)

// DefaultTTL matches the refresh cadence of the upstream price and listing APIs.
const DefaultTTL = 5 * time.Minute

type entry struct {
	body      []byte
	fetchedAt time.Time
}

// Cache holds the last response body per key. Entries are only replaced,
// never evicted.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// SetClock overrides the time source.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Fetch returns the cached body for key when it is younger than the TTL and
// force is false. Otherwise it calls fn, stores the result and returns it.
// Failed calls leave any previous entry untouched.
func (c *Cache) Fetch(ctx context.Context, key string, force bool, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	if !force {
		c.mu.RLock()
		cached, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && c.now().Sub(cached.fetchedAt) < c.ttl {
			metrics.IncNetcache(true)
			return cached.body, nil
		}
	}
	metrics.IncNetcache(false)

	body, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{body: body, fetchedAt: c.now()}
	c.mu.Unlock()
	return body, nil
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Client issues cached GET requests through an httpx.Client.
type Client struct {
	http  *httpx.Client
	cache *Cache
}

func NewClient(httpClient *httpx.Client, cache *Cache) *Client {
	return &Client{http: httpClient, cache: cache}
}

// Get returns the body of GET url, served from the cache when fresh.
func (c *Client) Get(ctx context.Context, url string, force bool) ([]byte, error) {
	return c.cache.Fetch(ctx, url, force, func(ctx context.Context) ([]byte, error) {
		req, err := httpx.NewRequest(ctx, http.MethodGet, url, nil, nil)
		if err != nil {
			return nil, err
		}
		body, _, err := c.http.Do(ctx, req)
		return body, err
	})
}

// GetJSON is Get followed by a JSON decode into out.
func (c *Client) GetJSON(ctx context.Context, url string, force bool, out any) error {
	body, err := c.Get(ctx, url, force)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return oberr.Wrap(oberr.CodeUnavailable, "decode JSON", err)
	}
	return nil
}
