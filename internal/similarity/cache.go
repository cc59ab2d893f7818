package similarity

import (
	"hash/maphash"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// pairKey is an unordered, case-folded string pair.
type pairKey struct {
	lo string
	hi string
}

func newPairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// CacheEntry is a snapshot of one cached similarity value.
type CacheEntry struct {
	A           string
	B           string
	Score       float64
	LastAccess  time.Time
	AccessCount int64
}

// cacheEntry is shared by readers of a shard, so its access metadata is atomic.
type cacheEntry struct {
	key         pairKey
	score       float64
	lastAccess  atomic.Int64
	accessCount atomic.Int64
}

func (e *cacheEntry) touch(now time.Time) {
	e.lastAccess.Store(now.UnixNano())
	e.accessCount.Add(1)
}

func (e *cacheEntry) snapshot() CacheEntry {
	return CacheEntry{
		A:           e.key.lo,
		B:           e.key.hi,
		Score:       e.score,
		LastAccess:  time.Unix(0, e.lastAccess.Load()),
		AccessCount: e.accessCount.Load(),
	}
}

// shardedCache spreads keys over independent LRUs so lookups of different
// pairs rarely contend on the same lock. With a single shard the eviction
// order is exact global LRU.
type shardedCache struct {
	shards []*lru.Cache[pairKey, *cacheEntry]
	seed   maphash.Seed
}

// newShardedCache splits capacity over shards. The first capacity%shards
// shards hold one extra entry, so the shard sizes sum to capacity exactly.
// Callers guarantee 0 < shards <= capacity.
func newShardedCache(capacity, shards int) (*shardedCache, error) {
	perShard, extra := capacity/shards, capacity%shards

	c := &shardedCache{
		shards: make([]*lru.Cache[pairKey, *cacheEntry], shards),
		seed:   maphash.MakeSeed(),
	}
	for i := range c.shards {
		size := perShard
		if i < extra {
			size++
		}
		shard, err := lru.New[pairKey, *cacheEntry](size)
		if err != nil {
			return nil, err
		}
		c.shards[i] = shard
	}
	return c, nil
}

func (c *shardedCache) shard(key pairKey) *lru.Cache[pairKey, *cacheEntry] {
	if len(c.shards) == 1 {
		return c.shards[0]
	}

	var h maphash.Hash
	h.SetSeed(c.seed)
	_, _ = h.WriteString(key.lo)
	_ = h.WriteByte(0)
	_, _ = h.WriteString(key.hi)

	return c.shards[h.Sum64()%uint64(len(c.shards))]
}

// get refreshes the recency of a hit.
func (c *shardedCache) get(key pairKey, now time.Time) (float64, bool) {
	ent, ok := c.shard(key).Get(key)
	if !ok {
		return 0, false
	}
	ent.touch(now)
	return ent.score, true
}

// peek leaves recency untouched.
func (c *shardedCache) peek(key pairKey) (*cacheEntry, bool) {
	return c.shard(key).Peek(key)
}

// put stores score under key and reports whether an older entry was evicted.
func (c *shardedCache) put(key pairKey, score float64, now time.Time) bool {
	ent := &cacheEntry{key: key, score: score}
	ent.touch(now)
	return c.shard(key).Add(key, ent)
}

func (c *shardedCache) len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}

func (c *shardedCache) clear() {
	for _, s := range c.shards {
		s.Purge()
	}
}
