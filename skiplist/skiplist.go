// Package skiplist implements an append-only, in-memory ordered
// key-value index as a multi-level skip list tuned for a single-writer,
// many-reader (SWMR) concurrency regime.
//
// Exactly one goroutine may call Upsert over the lifetime of an Index; any
// number of goroutines may call Find concurrently with each other and with
// that single writer. Find never blocks, never allocates, and never
// mutates observable state, unless the Index was built with WithPrefilter,
// in which case Find briefly holds a lock around the prefilter's bit array
// before falling through to the lock-free node graph; see prefilter.go.
package skiplist

import "errors"

// ErrInvalidHeight is returned by New when height is not positive.
var ErrInvalidHeight = errors.New("skiplist: height must be a positive integer")

// Index is a concurrent skip list mapping keys of type K to values of type
// V. The zero value is not usable; construct one with New.
type Index[K any, V any] struct {
	height int
	cmp    Comparator[K]

	// heads[0] is the top level's head, heads[height-1] is the leaf
	// level's head. Each head's down points at the head of the level
	// below; the leaf head's down is nil.
	heads []*node[K, V]

	arena   *arena[K, V]
	rng     *coinFlipRNG
	metrics *metrics
	filter  *prefilter[K]

	// entries and preds are writer-only scratch state: safe to mutate
	// without synchronization because Upsert has exactly one caller.
	entries int
	preds   []*node[K, V]
}

type indexConfig[K any, V any] struct {
	name         string
	arenaBlock   int
	seed         uint64
	filterItems  uint
	filterFPRate float64
	filterKeyFn  func(K) []byte
}

// Option configures an Index at construction time.
type Option[K any, V any] func(*indexConfig[K, V])

// WithName labels the Index's Prometheus metrics; defaults to "default".
// Give every long-lived Index a distinct name to keep their metrics apart.
func WithName[K any, V any](name string) Option[K, V] {
	return func(c *indexConfig[K, V]) { c.name = name }
}

// WithArenaBlockSize overrides the number of nodes the arena allocates per
// growth block (default 128).
func WithArenaBlockSize[K any, V any](n int) Option[K, V] {
	return func(c *indexConfig[K, V]) { c.arenaBlock = n }
}

// WithSeed fixes the writer-owned promotion PRNG's seed, making tower
// heights reproducible across runs. A zero seed (the default) seeds from
// the current time.
func WithSeed[K any, V any](seed uint64) Option[K, V] {
	return func(c *indexConfig[K, V]) { c.seed = seed }
}

// WithPrefilter attaches a Bloom filter the writer updates on every insert
// and Find consults before descending the tower, for fast rejection of
// definite misses. keyBytes must deterministically encode a key to bytes.
// expectedItems and falsePositiveRate size the underlying filter; pass 0
// and <=0 respectively to use the defaults (65536 items, 1% false-positive
// rate).
//
// The filter's bit array is ordinary, non-atomic memory, so every add and
// mightContain is serialized behind a mutex internal to the prefilter; this
// is the only lock in the package, and it never overlaps the node graph
// traversal that does the rest of Find's work.
func WithPrefilter[K any, V any](expectedItems uint, falsePositiveRate float64, keyBytes func(K) []byte) Option[K, V] {
	return func(c *indexConfig[K, V]) {
		c.filterItems = expectedItems
		c.filterFPRate = falsePositiveRate
		c.filterKeyFn = keyBytes
	}
}

// New builds an Index with height empty levels and no keys. height is
// fixed for the life of the Index; there is no automatic resizing.
// Construction is not goroutine-safe and must complete before any Upsert
// or Find call is issued.
func New[K any, V any](height int, cmp Comparator[K], opts ...Option[K, V]) (*Index[K, V], error) {
	if height <= 0 {
		return nil, ErrInvalidHeight
	}

	cfg := indexConfig[K, V]{name: "default", arenaBlock: defaultBlockSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	a := newArena[K, V](cfg.arenaBlock)

	heads := make([]*node[K, V], height)
	for i := 0; i < height; i++ {
		h := a.newNode()
		h.isHead = true
		heads[i] = h
	}
	for i := 0; i < height-1; i++ {
		heads[i].down = heads[i+1]
	}

	ix := &Index[K, V]{
		height:  height,
		cmp:     cmp,
		heads:   heads,
		arena:   a,
		rng:     newCoinFlipRNG(cfg.seed),
		metrics: newMetrics(cfg.name),
		preds:   make([]*node[K, V], height),
	}

	if cfg.filterKeyFn != nil {
		items := cfg.filterItems
		if items == 0 {
			items = 1 << 16
		}
		fpRate := cfg.filterFPRate
		if fpRate <= 0 {
			fpRate = 0.01
		}
		ix.filter = newPrefilter[K](items, fpRate, cfg.filterKeyFn)
	}

	ix.metrics.arenaBlocks.Set(float64(a.blockCount()))
	assert(len(ix.heads) == ix.height)
	assert(ix.heads[ix.height-1].down == nil)
	return ix, nil
}

// searchLevel walks forward from start, atomically acquire-loading next at
// each step, until the next node is nil or its key sorts after target. It
// returns the rightmost node at this level whose key is <= target, or the
// level's head if every key at this level sorts after target.
func (ix *Index[K, V]) searchLevel(start *node[K, V], target K) *node[K, V] {
	cur := start
	for {
		next := cur.next.Load()
		if next == nil || ix.cmp.Compare(next.key, target) > 0 {
			return cur
		}
		cur = next
	}
}

// Upsert inserts value at key if key is absent, or overwrites the value
// currently bound to key if present. It must be called by at most one
// goroutine over the Index's lifetime; see the package doc.
func (ix *Index[K, V]) Upsert(key K, value V) {
	preds := ix.preds[:ix.height]
	cur := ix.heads[0]

	for level := 0; level < ix.height; level++ {
		pred := ix.searchLevel(cur, key)
		if !pred.isHead && ix.cmp.Compare(pred.key, key) == 0 {
			// Key already has a tower: propagate the new value down
			// through every level it was promoted to. By the tower
			// invariant, down is guaranteed to be the same key's node
			// at every remaining level, so no further searching is
			// needed.
			for n := pred; n != nil; n = n.down {
				n.storeValue(value)
			}
			ix.metrics.update.Inc()
			return
		}
		preds[level] = pred
		cur = pred.down
	}

	ix.insertLeafAndPromote(key, value, preds)
}

func (ix *Index[K, V]) insertLeafAndPromote(key K, value V, preds []*node[K, V]) {
	leafLevel := ix.height - 1
	leafPred := preds[leafLevel]
	assert(leafPred != nil)

	leaf := ix.arena.newNode()
	leaf.key = key
	leaf.storeValue(value)
	// The new node's next is set before it is published, so it never
	// needs ordering stronger than a plain assignment; only the store
	// that links it into leafPred.next is the publication point readers
	// synchronize with.
	leaf.next.Store(leafPred.next.Load())
	leafPred.next.Store(leaf)

	ix.metrics.insert.Inc()
	ix.entries++
	ix.metrics.entries.Set(float64(ix.entries))
	ix.metrics.arenaBlocks.Set(float64(ix.arena.blockCount()))
	if ix.filter != nil {
		ix.filter.add(key)
	}

	height := 1
	child := leaf
	for level := leafLevel - 1; level >= 0; level-- {
		if !ix.rng.heads() {
			break
		}
		tower := ix.arena.newNode()
		tower.key = key
		tower.storeValue(value)
		tower.down = child

		pred := preds[level]
		tower.next.Store(pred.next.Load())
		pred.next.Store(tower)

		child = tower
		height++
	}
	ix.metrics.height.Observe(float64(height))
}

// Find returns the value currently bound to key and true if key has been
// published by Upsert, or the zero value and false otherwise. Find may be
// called concurrently from any number of goroutines, including
// concurrently with one ongoing Upsert. It never allocates, and the node
// graph descent itself never blocks; the only exception is the brief,
// single-op lock Find takes around the optional prefilter (see
// WithPrefilter), which is held independently of and never across the node
// graph traversal.
func (ix *Index[K, V]) Find(key K) (V, bool) {
	if ix.filter != nil && !ix.filter.mightContain(key) {
		ix.metrics.findPrefilt.Inc()
		var zero V
		return zero, false
	}

	cur := ix.heads[0]
	for level := 0; level < ix.height; level++ {
		m := ix.searchLevel(cur, key)
		if !m.isHead && ix.cmp.Compare(m.key, key) == 0 {
			v, _ := m.loadValue()
			ix.metrics.findHit.Inc()
			return v, true
		}
		if level < ix.height-1 {
			cur = m.down
		}
	}

	ix.metrics.findMiss.Inc()
	var zero V
	return zero, false
}

// Len reports the number of keys currently present at the leaf level.
// Only the writer goroutine may call this without a data race, since the
// counter is writer-private; readers should treat it as advisory.
func (ix *Index[K, V]) Len() int {
	return ix.entries
}

// Height returns the fixed tower height the Index was constructed with.
func (ix *Index[K, V]) Height() int {
	return ix.height
}
