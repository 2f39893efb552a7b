package skiplist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoinFlipRNGDeterministicGivenSeed(t *testing.T) {
	a := newCoinFlipRNG(12345)
	b := newCoinFlipRNG(12345)

	for i := 0; i < 1000; i++ {
		require.Equal(t, a.next(), b.next())
	}
}

func TestCoinFlipRNGZeroSeedStillSeeds(t *testing.T) {
	r := newCoinFlipRNG(0)
	require.NotZero(t, r.state)
}

func TestCoinFlipRNGHeadsRoughlyFair(t *testing.T) {
	r := newCoinFlipRNG(42)
	const trials = 100000
	heads := 0
	for i := 0; i < trials; i++ {
		if r.heads() {
			heads++
		}
	}
	ratio := float64(heads) / float64(trials)
	require.InDelta(t, 0.5, ratio, 0.02)
}
