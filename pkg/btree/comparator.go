package btree

import "cmp"

// Comparator defines the total strict order the engine maintains keys
// under. Lt and Eq are the only methods called on the engine's hot paths
// (descent, linear search, duplicate detection); Gt is part of the
// contract but, per spec, never called there — it exists for callers that
// want a symmetric interface.
//
// Implementations must satisfy: Gt(a,b) == Lt(b,a), and Eq(a,b) == (!Lt(a,b)
// && !Lt(b,a)).
type Comparator[K any] interface {
	Eq(a, b K) bool
	Lt(a, b K) bool
	Gt(a, b K) bool
}

// OrderedComparator is the default Comparator for any key type with a
// natural order (cmp.Ordered): ints, floats, strings. It is a zero-size
// type, so using it costs nothing beyond the interface dispatch Go's
// comparator-injection idiom always pays (the teacher's source comparator
// is monomorphized at compile time via a generic parameter; Go has no
// zero-cost equivalent, so this is the "function-pointer pair" alternative
// spec.md §9 calls out).
type OrderedComparator[K cmp.Ordered] struct{}

func (OrderedComparator[K]) Eq(a, b K) bool { return a == b }
func (OrderedComparator[K]) Lt(a, b K) bool { return a < b }
func (OrderedComparator[K]) Gt(a, b K) bool { return a > b }

// FuncComparator adapts a three-way compare function (negative if a<b,
// zero if a==b, positive if a>b) into a Comparator.
//
// Lt and Gt are derived from Compare's sign alone, never from its exact
// value. A comparator that returns -7 or 42 instead of -1/1 still orders
// correctly here — this is the fix spec.md §9's "DefaultKeyComparer" open
// question calls for: naively testing CompareTo(a,b) == -1 breaks for any
// three-way compare that does not normalize its result to exactly ±1.
type FuncComparator[K any] struct {
	Compare func(a, b K) int
}

func (c FuncComparator[K]) Eq(a, b K) bool { return c.Compare(a, b) == 0 }
func (c FuncComparator[K]) Lt(a, b K) bool { return c.Compare(a, b) < 0 }
func (c FuncComparator[K]) Gt(a, b K) bool { return c.Compare(a, b) > 0 }
