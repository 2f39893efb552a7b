package skiplist

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, height int) *Index[int, int64] {
	t.Helper()
	idx, err := New[int, int64](height, OrderedComparator[int]{}, WithSeed[int, int64](99), WithName[int, int64](t.Name()))
	require.NoError(t, err)
	return idx
}

func TestNewRejectsNonPositiveHeight(t *testing.T) {
	_, err := New[int, int64](0, OrderedComparator[int]{})
	require.ErrorIs(t, err, ErrInvalidHeight)

	_, err = New[int, int64](-1, OrderedComparator[int]{})
	require.ErrorIs(t, err, ErrInvalidHeight)
}

func TestIndexEmpty(t *testing.T) {
	idx := newTestIndex(t, 8)

	_, ok := idx.Find(777)
	require.False(t, ok)
	require.Equal(t, 0, idx.Len())
}

func TestIndexSeq(t *testing.T) {
	const n = 20000
	idx := newTestIndex(t, 12)

	for i := 0; i < n; i++ {
		idx.Upsert(i, int64(i*2))
	}
	require.Equal(t, n, idx.Len())

	for i := 0; i < n; i++ {
		v, ok := idx.Find(i)
		require.True(t, ok)
		require.Equal(t, int64(i*2), v)
	}
}

func TestIndexRand(t *testing.T) {
	const n = 20000
	rnd := rand.New(rand.NewSource(7))

	idx := newTestIndex(t, 14)

	keys := rnd.Perm(n)
	for _, k := range keys {
		idx.Upsert(k, int64(k))
	}
	require.Equal(t, n, idx.Len())

	sorted := append([]int(nil), keys...)
	sort.Ints(sorted)
	for _, k := range sorted {
		v, ok := idx.Find(k)
		require.True(t, ok)
		require.Equal(t, int64(k), v)
	}
}

func TestIndexMissingKey(t *testing.T) {
	idx := newTestIndex(t, 8)
	for i := 0; i < 100; i += 2 {
		idx.Upsert(i, int64(i))
	}

	for i := 1; i < 100; i += 2 {
		_, ok := idx.Find(i)
		require.False(t, ok)
	}
	_, ok := idx.Find(-1)
	require.False(t, ok)
	_, ok = idx.Find(1000)
	require.False(t, ok)
}

func TestUpsertOverwritesExistingKey(t *testing.T) {
	idx := newTestIndex(t, 10)

	idx.Upsert(5, 1)
	idx.Upsert(3, 2)
	idx.Upsert(5, 99)

	require.Equal(t, 2, idx.Len(), "updating an existing key must not grow the entry count")

	v, ok := idx.Find(5)
	require.True(t, ok)
	require.Equal(t, int64(99), v)

	v, ok = idx.Find(3)
	require.True(t, ok)
	require.Equal(t, int64(2), v)
}

// TestUpsertUpdatePropagatesThroughEveryTowerLevel pins down the invariant
// that an update is visible at whatever level Find happens to land on, not
// only at the leaf: it forces a tall tower with a fixed seed, then updates
// the value and checks every level's node for that key directly.
func TestUpsertUpdatePropagatesThroughEveryTowerLevel(t *testing.T) {
	idx := newTestIndex(t, 6)

	var tallKey = -1
	for k := 0; k < 500; k++ {
		idx.Upsert(k, int64(k))
		if countTowerHeight(idx, k) > 1 {
			tallKey = k
			break
		}
	}
	require.NotEqualf(t, -1, tallKey, "no key was promoted above the leaf with this seed; adjust the probe range")

	idx.Upsert(tallKey, 424242)

	cur := idx.heads[0]
	for level := 0; level < idx.height; level++ {
		m := idx.searchLevel(cur, tallKey)
		if !m.isHead && idx.cmp.Compare(m.key, tallKey) == 0 {
			v, ok := m.loadValue()
			require.True(t, ok)
			require.Equal(t, int64(424242), v, "level %d still holds the stale value", level)
		}
		if level < idx.height-1 {
			cur = m.down
		}
	}
}

func countTowerHeight(idx *Index[int, int64], key int) int {
	height := 0
	cur := idx.heads[0]
	for level := 0; level < idx.height; level++ {
		m := idx.searchLevel(cur, key)
		if !m.isHead && idx.cmp.Compare(m.key, key) == 0 {
			height++
		}
		if level < idx.height-1 {
			cur = m.down
		}
	}
	return height
}

func TestFindRejectsNeighboringKeys(t *testing.T) {
	idx := newTestIndex(t, 10)
	for i := 0; i < 1000; i += 10 {
		idx.Upsert(i, int64(i))
	}

	for i := 1; i < 1000; i += 10 {
		_, ok := idx.Find(i)
		require.False(t, ok)
	}
}

func TestWithPrefilterStillFindsEveryInsertedKey(t *testing.T) {
	idx, err := New[int, int64](10, OrderedComparator[int]{},
		WithName[int, int64](t.Name()),
		WithPrefilter[int, int64](1024, 0.01, func(k int) []byte {
			return []byte(fmt.Sprintf("%d", k))
		}))
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		idx.Upsert(i, int64(i))
	}
	for i := 0; i < 500; i++ {
		v, ok := idx.Find(i)
		require.True(t, ok)
		require.Equal(t, int64(i), v)
	}
	// A prefilter false positive falls through to the node graph, so keys
	// that were never inserted must still miss.
	for i := 500; i < 1500; i++ {
		if v, ok := idx.Find(i); ok {
			t.Fatalf("unexpected hit for a key never inserted: key=%d value=%d", i, v)
		}
	}
}

func TestHeightAndLenAccessors(t *testing.T) {
	idx := newTestIndex(t, 16)
	require.Equal(t, 16, idx.Height())
	require.Equal(t, 0, idx.Len())

	idx.Upsert(1, 10)
	idx.Upsert(2, 20)
	idx.Upsert(1, 11)
	require.Equal(t, 2, idx.Len())
}
