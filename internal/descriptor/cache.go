package descriptor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/draftforge/draftforge/internal"
	"github.com/draftforge/draftforge/internal/util"
	"golang.org/x/sync/singleflight"
)

// optionCacheVersion is part of every cache key. Bump it whenever the
// label/value format of options changes so stale entries can never be served.
const optionCacheVersion = 2

// defaultTTL is how long a resolved option list stays fresh.
const defaultTTL = 5 * time.Minute

// FetchFunc produces the option list for a cache key. The context it
// receives is tied to the set of callers still waiting on the fetch, not to
// any single caller.
type FetchFunc func(ctx context.Context) ([]Option, error)

// OptionCache is the injectable cache service for descriptor option lists.
// It combines a TTL cache with in-flight request coalescing: concurrent
// callers for the same key share exactly one underlying fetch.
type OptionCache struct {
	ttl   time.Duration
	cache util.Cache
	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

// inflightFetch tracks how many callers are still waiting on a shared fetch.
// When the last one cancels, the fetch context is cancelled and the result
// is not written to the cache.
type inflightFetch struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
}

// NewOptionCache creates a new option cache. The cache runs a background
// expiry sweep until the parent context is cancelled or Close is called.
func NewOptionCache(parent context.Context) *OptionCache {
	return &OptionCache{
		ttl:      defaultTTL,
		cache:    util.NewCache(parent, time.Minute),
		inflight: make(map[string]*inflightFetch),
	}
}

// Key builds the cache key for a resolution request.
func Key(setupID string, baseSchemaKey string, propertyName string) string {
	return fmt.Sprintf("%s:%s:%s:v%d", setupID, baseSchemaKey, propertyName, optionCacheVersion)
}

// Get returns the cached option list for a key if present and fresh.
func (c *OptionCache) Get(key string) ([]Option, bool) {
	found, val, err := c.cache.Get(key)
	if err != nil || !found {
		return nil, false
	}
	options, ok := val.([]Option)
	return options, ok
}

// Set stores an option list under a key with the configured TTL.
func (c *OptionCache) Set(key string, options []Option) {
	// cache-write failure is non-fatal and does not affect the returned value
	_ = c.cache.Set(key, options, c.ttl)
}

// Invalidate removes a single key.
func (c *OptionCache) Invalidate(key string) {
	_ = c.cache.Delete(key)
}

// Clear removes every cached option list.
func (c *OptionCache) Clear() {
	_ = c.cache.Clear()
}

// Close shuts down the underlying cache.
func (c *OptionCache) Close() error {
	return c.cache.Close()
}

// GetOrFetch is the atomic get-or-fetch primitive. A fresh cache hit returns
// without any fetch. Otherwise the fetch runs at most once per key across
// concurrent callers and its result is written to the cache on success. A
// caller whose context is cancelled before the fetch completes gets an empty
// list and does not populate the cache; the shared fetch keeps running as
// long as at least one caller is still waiting on it.
func (c *OptionCache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) ([]Option, error) {
	if options, ok := c.Get(key); ok {
		internal.DescriptorCacheHits.Inc()
		return options, nil
	}
	internal.DescriptorCacheMisses.Inc()

	c.mu.Lock()
	f, shared := c.inflight[key]
	if f == nil {
		fctx, cancel := context.WithCancel(context.Background())
		f = &inflightFetch{ctx: fctx, cancel: cancel}
		c.inflight[key] = f
	}
	f.refs++
	c.mu.Unlock()
	if shared {
		internal.DescriptorFetchesCoalesced.Inc()
	}

	ch := c.group.DoChan(key, func() (any, error) {
		defer func() {
			c.mu.Lock()
			if c.inflight[key] == f {
				delete(c.inflight, key)
			}
			c.mu.Unlock()
			f.cancel()
		}()
		options, err := fetch(f.ctx)
		if err != nil {
			return nil, err
		}
		if f.ctx.Err() == nil {
			c.Set(key, options)
		}
		return options, nil
	})

	select {
	case <-ctx.Done():
		c.release(key, f)
		return []Option{}, nil
	case res := <-ch:
		c.release(key, f)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Option), nil
	}
}

// release drops one caller reference; the last one out cancels the fetch.
func (c *OptionCache) release(key string, f *inflightFetch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.refs--
	if f.refs <= 0 && c.inflight[key] == f {
		delete(c.inflight, key)
		c.group.Forget(key)
		f.cancel()
	}
}
