package skiplist

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// prefilter is an optional per-key Bloom filter the writer maintains
// alongside the node graph so Find can reject definite misses without
// descending the tower at all.
//
// bloom.BloomFilter's bit array is plain, non-atomic memory: the writer's
// Add and a reader's Test would otherwise be an unsynchronized concurrent
// read/write of the same words, a data race under Go's memory model even
// though a set bit is only ever flipped 0->1. mu guards every access, the
// same way the stress harness's oracle map guards concurrent Set/Get with
// an RWMutex. This is the one place in the package that blocks: add takes
// the write lock, mightContain takes the read lock, and both critical
// sections are a single Bloom filter op, never the node graph.
//
// A prefilter is never the source of truth: a false positive just falls
// through to the ordinary descent, and Find never consults it for
// anything but an early negative answer.
type prefilter[K any] struct {
	mu       sync.RWMutex
	filter   *bloom.BloomFilter
	keyBytes func(K) []byte
}

func newPrefilter[K any](expectedItems uint, falsePositiveRate float64, keyBytes func(K) []byte) *prefilter[K] {
	return &prefilter[K]{
		filter:   bloom.NewWithEstimates(expectedItems, falsePositiveRate),
		keyBytes: keyBytes,
	}
}

func (p *prefilter[K]) add(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter.Add(p.keyBytes(key))
}

func (p *prefilter[K]) mightContain(key K) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter.Test(p.keyBytes(key))
}
