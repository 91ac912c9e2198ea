// Package parsecache memoizes per-file parse results keyed by content hash.
//
// The cache is a pure memoization layer: a hit returns entities and
// relationships identical to what a fresh parse of that exact content would
// produce. It owns the CST tree handle of every stored entry and disposes it
// exactly once when the entry leaves the cache, however it leaves (LRU
// eviction, TTL expiry, replacement, or Purge).
package parsecache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/standardbeagle/codegraph/internal/cst"
	"github.com/standardbeagle/codegraph/internal/types"
)

const (
	// DefaultMaxTotalBytes bounds the estimated total payload size.
	DefaultMaxTotalBytes = 64 << 20
	// DefaultTTL expires entries independently of recency.
	DefaultTTL = 30 * time.Minute

	// entryOverheadBytes approximates per-entry cost beyond the entity
	// payload: the tree handle, map slots, bookkeeping.
	entryOverheadBytes = 4096

	// maxEntries caps the recency list; the byte budget is the real bound
	// and is always hit first for realistic entry sizes.
	maxEntries = 65536
)

// Entry is one cached parse: the owned tree handle plus the extraction output
// for the exact content identified by ContentHash.
type Entry struct {
	Tree          cst.Tree
	Entities      []*types.Entity
	Relationships []*types.Relationship
	Imports       []types.Import
	ContentHash   string
	InsertedAt    time.Time

	size int64
}

// Config holds the cache knobs.
type Config struct {
	MaxTotalBytes int64
	TTL           time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxTotalBytes: DefaultMaxTotalBytes,
		TTL:           DefaultTTL,
	}
}

// Cache is a size-bounded, TTL-expiring, least-recently-used parse cache.
// Safe for concurrent use; all operations take the cache lock, which also
// orders entry fetch before any disposal (an in-flight caller that obtained
// an entry under the lock holds results, never a tree mid-eviction).
type Cache struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, *Entry]
	latestKey  map[string]string // filePath -> most recent cache key
	totalBytes int64
	maxBytes   int64
	ttl        time.Duration

	hits      int64
	misses    int64
	evictions int64
}

// New creates a parse cache with the given configuration.
func New(cfg Config) *Cache {
	if cfg.MaxTotalBytes <= 0 {
		cfg.MaxTotalBytes = DefaultMaxTotalBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	c := &Cache{
		latestKey: make(map[string]string),
		maxBytes:  cfg.MaxTotalBytes,
		ttl:       cfg.TTL,
	}

	// The eviction callback is the single place a stored tree is released;
	// it fires for LRU eviction, Remove, and Purge alike.
	entries, err := lru.NewWithEvict(maxEntries, c.onEvict)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	c.entries = entries
	return c
}

func cacheKey(filePath, contentHash string) string {
	return filePath + "\x00" + contentHash
}

// onEvict runs under the cache lock for every code path that removes an
// entry (Add overflow, Remove, Purge).
func (c *Cache) onEvict(_ string, e *Entry) {
	c.totalBytes -= e.size
	c.evictions++
	if e.Tree != nil {
		e.Tree.Close()
	}
}

// Get returns the entry for (filePath, contentHash), or nil on miss. A TTL
// expired entry counts as a miss and is dropped (disposing its tree).
func (c *Cache) Get(filePath, contentHash string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(filePath, contentHash)
	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return nil
	}
	if time.Since(entry.InsertedAt) > c.ttl {
		c.entries.Remove(key)
		c.misses++
		return nil
	}
	c.hits++
	return entry
}

// Latest returns the most recently stored entry for a file regardless of
// content hash. The entry stays in the cache and its tree stays cache-owned:
// callers may read the extraction results but must not touch the tree, which
// a concurrent eviction can dispose at any time. A caller that needs the
// tree takes it out with TakeLatest.
func (c *Cache) Latest(filePath string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, ok := c.latestKey[filePath]
	if !ok {
		return nil
	}
	entry, ok := c.entries.Peek(key)
	if !ok {
		delete(c.latestKey, filePath)
		return nil
	}
	if time.Since(entry.InsertedAt) > c.ttl {
		c.entries.Remove(key)
		delete(c.latestKey, filePath)
		return nil
	}
	return entry
}

// TakeLatest removes the most recently stored entry for a file and hands it
// to the caller, tree ownership included. Once taken the cache will never
// dispose that tree, so the caller may edit it for an incremental reparse
// and must close it when done. A TTL-expired entry is dropped in place and
// reported as absent.
func (c *Cache) TakeLatest(filePath string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, ok := c.latestKey[filePath]
	if !ok {
		return nil
	}
	entry, ok := c.entries.Peek(key)
	if !ok {
		delete(c.latestKey, filePath)
		return nil
	}
	expired := time.Since(entry.InsertedAt) > c.ttl

	// Detach the tree before Remove so onEvict releases the entry's byte
	// accounting without closing a handle the caller is about to own.
	tree := entry.Tree
	entry.Tree = nil
	c.entries.Remove(key)
	delete(c.latestKey, filePath)

	if expired {
		if tree != nil {
			tree.Close()
		}
		return nil
	}
	entry.Tree = tree
	return entry
}

// Put stores an entry, transferring tree ownership to the cache, then evicts
// least-recently-used entries until the byte budget holds again. Exactly one
// live entry exists per (filePath, contentHash): storing over an existing key
// disposes the old entry first.
func (c *Cache) Put(filePath, contentHash string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.ContentHash = contentHash
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}
	entry.size = estimateSize(entry)

	key := cacheKey(filePath, contentHash)
	if c.entries.Contains(key) {
		c.entries.Remove(key)
	}

	c.entries.Add(key, entry)
	c.totalBytes += entry.size
	c.latestKey[filePath] = key

	for c.totalBytes > c.maxBytes && c.entries.Len() > 1 {
		c.entries.RemoveOldest()
	}
}

// Len returns the live entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// TotalBytes returns the current estimated payload size.
func (c *Cache) TotalBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}

// Stats reports hit/miss/eviction counters.
func (c *Cache) Stats() (hits, misses, evictions int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions
}

// Purge drops every entry, disposing all owned trees.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.latestKey = make(map[string]string)
	c.totalBytes = 0
}

// estimateSize approximates the serialized size of an entry's entities plus a
// fixed overhead. CST handles have no portable byte size, so the estimate
// stands in for real memory accounting.
func estimateSize(e *Entry) int64 {
	var n int64 = entryOverheadBytes
	for _, entity := range e.Entities {
		n += entitySize(entity)
	}
	for _, rel := range e.Relationships {
		n += 64 + int64(len(rel.From.Value)+len(rel.To.Value)+len(rel.Kind))
		n += int64(len(rel.SourceFile) + len(rel.TargetFile))
		for k, v := range rel.Metadata {
			n += int64(len(k) + len(v) + 16)
		}
	}
	for _, imp := range e.Imports {
		n += 48 + int64(len(imp.Specifier)+len(imp.Alias))
	}
	return n
}

func entitySize(e *types.Entity) int64 {
	n := int64(128) // struct, span, slice headers
	n += int64(len(e.ID) + len(e.Name) + len(e.Kind) + len(e.FilePath) + len(e.ReturnType))
	for _, m := range e.Modifiers {
		n += int64(len(m) + 16)
	}
	for _, p := range e.Parameters {
		n += int64(len(p.Name) + len(p.Type) + 32)
	}
	for k, v := range e.Attributes {
		n += int64(len(k) + len(v) + 16)
	}
	for _, child := range e.Children {
		n += entitySize(child)
	}
	return n
}
