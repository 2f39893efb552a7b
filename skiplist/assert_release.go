//go:build !debug

package skiplist

// assert is a no-op outside of -tags debug builds.
func assert(cond bool) {}
