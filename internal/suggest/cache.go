// Package suggest serves security-name autocomplete from external lookup
// providers behind a time-bounded, request-coalescing cache.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a resolved query is served from the cache.
	DefaultTTL = 6 * time.Hour
	// DefaultMaxKeys bounds the number of cached queries.
	DefaultMaxKeys = 1024
	// DefaultFetchTimeout bounds one provider resolution, fallback included.
	DefaultFetchTimeout = 20 * time.Second
	// MaxResults is the number of candidates returned to a caller.
	MaxResults = 8
)

// EmptyResultPolicy decides whether a query that produced no candidates is
// remembered until its TTL expires.
type EmptyResultPolicy int

const (
	// CacheEmptyResults stores empty outcomes so repeated misses do not hit
	// the providers again before the TTL.
	CacheEmptyResults EmptyResultPolicy = iota
	// SkipEmptyResults stores only non-empty outcomes.
	SkipEmptyResults
)

// Options tune a Cache. Zero values select the defaults.
type Options struct {
	TTL          time.Duration
	MaxKeys      int
	FetchTimeout time.Duration
	EmptyResults EmptyResultPolicy
	Clock        func() time.Time
}

type cacheEntry struct {
	result    Result
	writtenAt time.Time
}

// Cache resolves queries through the fund provider, then the equity
// provider, and remembers outcomes per normalized query.
//
// Concurrent queries for the same key share one provider round trip. A
// caller whose context ends stops waiting, but the shared lookup keeps
// running and still fills the cache.
type Cache struct {
	fund   Provider
	equity Provider
	opts   Options
	log    zerolog.Logger

	mu         sync.Mutex
	entries    *lru.Cache[string, cacheEntry]
	inflight   *singleflight.Group
	generation uint64
}

// NewCache builds a cache over the given providers. Either provider may be
// nil; with neither, every query fails with ErrProviderUnavailable.
func NewCache(fund, equity Provider, opts Options, log zerolog.Logger) (*Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = DefaultMaxKeys
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	entries, err := lru.New[string, cacheEntry](opts.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("NewCache: %w", err)
	}

	return &Cache{
		fund:     fund,
		equity:   equity,
		opts:     opts,
		log:      log.With().Str("component", "suggest").Logger(),
		entries:  entries,
		inflight: new(singleflight.Group),
	}, nil
}

// Normalize trims a query, collapses inner whitespace and lower-cases it.
func Normalize(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Suggest returns up to MaxResults candidates for query.
func (c *Cache) Suggest(ctx context.Context, query string) (Result, error) {
	if c.fund == nil && c.equity == nil {
		return Result{}, ErrProviderUnavailable
	}

	key := Normalize(query)
	if key == "" {
		return Result{Results: []Suggestion{}}, nil
	}

	if res, ok := c.lookup(key); ok {
		return present(key, res), nil
	}

	c.mu.Lock()
	group, gen := c.inflight, c.generation
	c.mu.Unlock()

	ch := group.DoChan(key, func() (any, error) {
		return c.resolve(key, gen), nil
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		res, _ := r.Val.(Result)
		return present(key, res), nil
	}
}

// Clear drops every cached query. Lookups already running finish for their
// waiters but no longer populate the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.inflight = new(singleflight.Group)
	c.generation++

	c.log.Info().Msg("Suggestion cache cleared")
}

// Len reports the number of cached queries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// lookup returns a fresh cached result, evicting it if it has expired.
func (c *Cache) lookup(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return Result{}, false
	}
	if c.opts.Clock().Sub(e.writtenAt) >= c.opts.TTL {
		c.entries.Remove(key)
		return Result{}, false
	}
	return e.result, true
}

// resolve runs the provider chain for key. It executes once per coalesced
// batch, on a context detached from every caller.
func (c *Cache) resolve(key string, gen uint64) Result {
	// A batch that finished between a caller's lookup and its DoChan has
	// already stored the answer.
	if res, ok := c.lookup(key); ok {
		return res
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
	defer cancel()

	res := Result{Results: []Suggestion{}}

	if c.fund != nil {
		found, err := search(ctx, c.fund, key)
		if err != nil {
			c.log.Debug().Err(err).Str("provider", c.fund.Name()).Str("query", key).Msg("Provider lookup failed")
		} else if len(found) > 0 {
			res.Results = found
		}
	}

	if len(res.Results) == 0 && c.equity != nil {
		found, err := search(ctx, c.equity, key)
		switch {
		case errors.Is(err, ErrRateLimited):
			c.log.Warn().Str("provider", c.equity.Name()).Str("query", key).Msg("Provider rate limited")
			res.RateLimited = true
		case err != nil:
			c.log.Debug().Err(err).Str("provider", c.equity.Name()).Str("query", key).Msg("Provider lookup failed")
		case len(found) > 0:
			res.Results = found
		}
	}

	c.store(key, gen, res)
	return res
}

// search calls p and reports a panic as an error.
func search(ctx context.Context, p Provider, key string) (found []Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			found, err = nil, fmt.Errorf("%s: panic: %v", p.Name(), r)
		}
	}()
	return p.Search(ctx, key)
}

func (c *Cache) store(key string, gen uint64, res Result) {
	if len(res.Results) == 0 && c.opts.EmptyResults == SkipEmptyResults {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	c.entries.Add(key, cacheEntry{result: res, writtenAt: c.opts.Clock()})
}

// present applies the multi-token filter and the result cap. The cached
// slice is never modified.
func present(key string, res Result) Result {
	tokens := strings.Fields(key)
	out := make([]Suggestion, 0, min(len(res.Results), MaxResults))

	for _, s := range res.Results {
		if len(out) == MaxResults {
			break
		}
		if len(tokens) > 1 && !matchesAll(s, tokens) {
			continue
		}
		out = append(out, s)
	}
	return Result{Results: out, RateLimited: res.RateLimited}
}

func matchesAll(s Suggestion, tokens []string) bool {
	haystack := strings.ToLower(s.Name + " " + s.Symbol)
	for _, t := range tokens {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}
