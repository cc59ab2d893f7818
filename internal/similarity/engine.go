// Package similarity computes normalized edit-distance similarity between
// strings and memoizes results in a bounded LRU cache.
package similarity

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

const (
	// DefaultCapacity is the number of string pairs cached when no capacity is configured.
	DefaultCapacity = 50_000
	// DefaultShards is used for caches large enough to benefit from sharding.
	DefaultShards = 16

	// minEntriesPerShard keeps small caches on a single shard so eviction stays exact LRU.
	minEntriesPerShard = 1024
)

var (
	ErrInvalidCapacity = errors.New("invalid similarity cache capacity")
	ErrInvalidShards   = errors.New("invalid similarity cache shard count")
)

// Config controls the similarity cache.
type Config struct {
	// Capacity is the maximum number of cached pairs. Zero disables caching.
	Capacity int `mapstructure:"capacity"`
	// Shards splits the cache into independently locked LRUs. Zero picks a
	// value based on Capacity.
	Shards int `mapstructure:"shards"`
}

// DefaultConfig returns the production cache settings.
func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity}
}

func (c Config) Validate() error {
	if c.Capacity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.Capacity)
	}
	if c.Shards < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidShards, c.Shards)
	}
	if c.Capacity > 0 && c.Shards > c.Capacity {
		return fmt.Errorf("%w: %d shards for capacity %d", ErrInvalidShards, c.Shards, c.Capacity)
	}
	return nil
}

func (c Config) shardCount() int {
	if c.Shards > 0 {
		return c.Shards
	}
	if c.Capacity < DefaultShards*minEntriesPerShard {
		return 1
	}
	return DefaultShards
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Match is the winning candidate of FindBestMatch.
type Match struct {
	Candidate string
	Score     float64
}

// Engine computes string similarity. It is safe for concurrent use.
type Engine struct {
	cache    *shardedCache
	capacity int
	now      func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates an engine. Invalid configuration is a programming error and is
// reported immediately.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		capacity: cfg.Capacity,
		now:      time.Now,
	}
	if cfg.Capacity > 0 {
		cache, err := newShardedCache(cfg.Capacity, cfg.shardCount())
		if err != nil {
			return nil, fmt.Errorf("creating similarity cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Similarity returns 1 - distance/max(len) for the case-folded inputs.
// Two empty strings are identical (1.0); exactly one empty string scores 0.0.
func (e *Engine) Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	if e.cache == nil {
		return compute(a, b)
	}

	key := newPairKey(a, b)
	if score, ok := e.cache.get(key, e.now()); ok {
		e.hits.Add(1)
		return score
	}
	e.misses.Add(1)

	score := compute(a, b)
	if e.cache.put(key, score, e.now()) {
		e.evictions.Add(1)
	}
	return score
}

// IsSimilar reports whether Similarity(a, b) >= threshold. Pairs whose length
// difference alone rules out the threshold are rejected without computing
// the distance.
func (e *Engine) IsSimilar(a, b string, threshold float64) bool {
	la := utf8.RuneCountInString(strings.ToLower(a))
	lb := utf8.RuneCountInString(strings.ToLower(b))

	if longest := max(la, lb); longest > 0 {
		diff := la - lb
		if diff < 0 {
			diff = -diff
		}
		if 1-float64(diff)/float64(longest) < threshold {
			return false
		}
	}

	return e.Similarity(a, b) >= threshold
}

// FindBestMatch returns the candidate with the highest similarity strictly
// above threshold. The earliest candidate wins ties.
func (e *Engine) FindBestMatch(target string, candidates []string, threshold float64) (Match, bool) {
	var (
		best  Match
		found bool
	)

	for _, candidate := range candidates {
		score := e.Similarity(target, candidate)
		if score <= threshold {
			continue
		}
		if !found || score > best.Score {
			best = Match{Candidate: candidate, Score: score}
			found = true
		}
	}

	return best, found
}

// Lookup returns the cached entry for the unordered pair without refreshing
// its recency.
func (e *Engine) Lookup(a, b string) (CacheEntry, bool) {
	if e.cache == nil {
		return CacheEntry{}, false
	}

	ent, ok := e.cache.peek(newPairKey(strings.ToLower(a), strings.ToLower(b)))
	if !ok {
		return CacheEntry{}, false
	}
	return ent.snapshot(), true
}

// Stats returns a snapshot of cache counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		Hits:      e.hits.Load(),
		Misses:    e.misses.Load(),
		Evictions: e.evictions.Load(),
		Capacity:  e.capacity,
	}
	if e.cache != nil {
		s.Size = e.cache.len()
	}
	return s
}

// Reset drops all cached pairs and zeroes the counters.
func (e *Engine) Reset() {
	if e.cache != nil {
		e.cache.clear()
	}
	e.hits.Store(0)
	e.misses.Store(0)
	e.evictions.Store(0)
}

func compute(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(Distance(a, b))/float64(longest)
}
