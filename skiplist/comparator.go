package skiplist

import "cmp"

// Comparator orders keys of type K. Compare returns a negative number if a
// sorts before b, zero if they are equal, and a positive number if a sorts
// after b.
type Comparator[K any] interface {
	Compare(a, b K) int
}

// OrderedComparator is a Comparator for any type with a natural ordering
// via the standard library's cmp package. Use it for ints, strings,
// floats, and similar scalar key types.
var _ Comparator[int] = OrderedComparator[int]{}

type OrderedComparator[K cmp.Ordered] struct{}

func (OrderedComparator[K]) Compare(a, b K) int {
	return cmp.Compare(a, b)
}
