// Package memtable wraps a skiplist.Index with the construction defaults a
// log-structured merge-tree's mutable tier needs: a comparator, a height,
// and an optional prefilter. It adds no functionality beyond what
// skiplist.Index already provides.
package memtable

import (
	"errors"

	"github.com/ls4154/atomicskiplist/skiplist"
)

// ErrComparatorRequired is returned by Open when Options.Comparator is nil.
var ErrComparatorRequired = errors.New("memtable: comparator is required")

const (
	defaultHeight    = 22 // matches the reference implementation's choice for N up to a few million.
	minHeight        = 1
	maxHeight        = 64
	defaultArenaSize = 256
)

// Options configures a Memtable. Comparator is required; every other field
// has a usable zero value.
type Options[K any, V any] struct {
	// Height is the fixed tower height; it cannot change after Open.
	// Clipped to [1, 64]; zero selects the default of 22.
	Height int

	// Comparator orders keys. Required.
	Comparator skiplist.Comparator[K]

	// Name labels this memtable's Prometheus metrics.
	Name string

	// ArenaBlockSize overrides the node arena's growth block size.
	ArenaBlockSize int

	// Seed fixes the promotion PRNG's seed for reproducible runs. Zero
	// seeds from the current time.
	Seed uint64

	// PrefilterKeyBytes, if non-nil, attaches a Bloom-filter prefilter
	// encoding keys with this function. PrefilterExpectedItems and
	// PrefilterFalsePositiveRate size it; see skiplist.WithPrefilter.
	PrefilterKeyBytes          func(K) []byte
	PrefilterExpectedItems     uint
	PrefilterFalsePositiveRate float64
}

// DefaultOptions returns an Options with every field at its recommended
// default except Comparator, which the caller must still supply.
func DefaultOptions[K any, V any](cmp skiplist.Comparator[K]) Options[K, V] {
	return Options[K, V]{
		Height:         defaultHeight,
		Comparator:     cmp,
		Name:           "memtable",
		ArenaBlockSize: defaultArenaSize,
	}
}

func validate[K any, V any](opt Options[K, V]) (Options[K, V], error) {
	if opt.Comparator == nil {
		return opt, ErrComparatorRequired
	}
	opt.Height = clipToRange(opt.Height, minHeight, maxHeight)
	if opt.Height == 0 {
		opt.Height = defaultHeight
	}
	if opt.Name == "" {
		opt.Name = "memtable"
	}
	if opt.ArenaBlockSize <= 0 {
		opt.ArenaBlockSize = defaultArenaSize
	}
	return opt, nil
}

func clipToRange(val, minVal, maxVal int) int {
	if val <= 0 {
		return 0
	}
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// Memtable is the mutable tier of a log-structured merge-tree: a single
// writer goroutine Puts, any number of readers Get concurrently with it.
type Memtable[K any, V any] struct {
	index *skiplist.Index[K, V]
}

// Open constructs a Memtable per opt. Construction is not goroutine-safe.
func Open[K any, V any](opt Options[K, V]) (*Memtable[K, V], error) {
	opt, err := validate(opt)
	if err != nil {
		return nil, err
	}

	skopts := []skiplist.Option[K, V]{
		skiplist.WithName[K, V](opt.Name),
		skiplist.WithArenaBlockSize[K, V](opt.ArenaBlockSize),
		skiplist.WithSeed[K, V](opt.Seed),
	}
	if opt.PrefilterKeyBytes != nil {
		skopts = append(skopts, skiplist.WithPrefilter[K, V](
			opt.PrefilterExpectedItems, opt.PrefilterFalsePositiveRate, opt.PrefilterKeyBytes))
	}

	idx, err := skiplist.New(opt.Height, opt.Comparator, skopts...)
	if err != nil {
		return nil, err
	}
	return &Memtable[K, V]{index: idx}, nil
}

// Put inserts value at key, or overwrites the value currently bound to key
// if key is already present. Must be called by at most one goroutine over
// the Memtable's lifetime.
func (m *Memtable[K, V]) Put(key K, value V) {
	m.index.Upsert(key, value)
}

// Get returns the value currently bound to key and true, or the zero value
// and false if key has never been Put. Safe to call concurrently from any
// number of goroutines, including concurrently with one ongoing Put.
func (m *Memtable[K, V]) Get(key K) (V, bool) {
	return m.index.Find(key)
}

// Len reports the number of keys currently in the memtable. Advisory
// outside the writer goroutine; see skiplist.Index.Len.
func (m *Memtable[K, V]) Len() int {
	return m.index.Len()
}

// Height returns the fixed tower height the Memtable was opened with.
func (m *Memtable[K, V]) Height() int {
	return m.index.Height()
}
