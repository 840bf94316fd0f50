package btree

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"runtime"

	"github.com/packedkv/btree/internal/debug"
)

// Entry is an exported (key, value) pair, used by CopyTo.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

// Map is the ordered key-value map spec.md §4.6 specifies: an in-memory
// B-tree with no persistence and no concurrency guarantees (spec.md §5).
// Construct one with New.
type Map[K any, V any] struct {
	tree   *Tree[K, V]
	eq     func(a, b V) bool
	closed bool
}

// New constructs a Map. Comparator is required via WithComparator (or
// use NewOrdered for key types with a natural order).
func New[K any, V any](opts ...Option[K, V]) (*Map[K, V], error) {
	cfg := defaultConfig[K, V]()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFromConfig(cfg)
}

// NewOrdered constructs a Map for a key type with a natural order,
// without requiring WithComparator.
func NewOrdered[K cmp.Ordered, V any](opts ...Option[K, V]) (*Map[K, V], error) {
	cfg := defaultConfig[K, V]()
	cfg.Comparator = OrderedComparator[K]{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFromConfig(cfg)
}

func newFromConfig[K any, V any](cfg Config[K, V]) (*Map[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t, err := newTree[K, V](cfg)
	if err != nil {
		return nil, err
	}

	eq := cfg.ValueEqual
	if eq == nil {
		eq = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}

	m := &Map[K, V]{tree: t, eq: eq}
	runtime.SetFinalizer(m, func(m *Map[K, V]) {
		if !m.closed {
			debug.Log(nil, "finalize", "Map was not explicitly Close()d")
			m.tree.Dispose()
		}
	})
	return m, nil
}

// Add inserts (k,v), reporting ErrDuplicateKey if k is already present.
func (m *Map[K, V]) Add(k K, v V) error {
	if ok, _ := m.tree.Insert(k, v); !ok {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, k)
	}
	return nil
}

// Set inserts (k,v), or overwrites the value if k is already present —
// the upsert spec.md's plain Add does not provide.
func (m *Map[K, V]) Set(k K, v V) {
	if ok, cur := m.tree.Insert(k, v); !ok {
		_ = cur.SetValue(v)
	}
}

// Remove deletes k, reporting whether it was present.
func (m *Map[K, V]) Remove(k K) bool {
	return m.tree.Remove(k)
}

// Get returns k's value, or ErrKeyNotFound.
func (m *Map[K, V]) Get(k K) (V, error) {
	n, pos, ok := m.tree.find(k)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %v", ErrKeyNotFound, k)
	}
	return n.entries()[pos].value, nil
}

// TryGet returns k's value and whether it was present, without an error
// allocation on the common not-found path.
func (m *Map[K, V]) TryGet(k K) (V, bool) {
	n, pos, ok := m.tree.find(k)
	if !ok {
		var zero V
		return zero, false
	}
	return n.entries()[pos].value, true
}

// Contains reports whether k is present.
func (m *Map[K, V]) Contains(k K) bool {
	_, _, ok := m.tree.find(k)
	return ok
}

// ContainsEntry reports whether (k,v) is present, using the configured
// ValueEqual (reflect.DeepEqual by default).
func (m *Map[K, V]) ContainsEntry(k K, v V) bool {
	val, ok := m.TryGet(k)
	return ok && m.eq(val, v)
}

// Count returns the number of entries.
func (m *Map[K, V]) Count() int { return m.tree.size }

// IsEmpty reports whether the map has no entries.
func (m *Map[K, V]) IsEmpty() bool { return m.tree.size == 0 }

// Clear removes every entry, freeing all nodes.
func (m *Map[K, V]) Clear() { m.tree.Clear() }

// CopyTo writes entries in ascending key order into dst starting at
// offset, returning the count written. It stops when dst is exhausted.
func (m *Map[K, V]) CopyTo(dst []Entry[K, V], offset int) int {
	i := offset
	for c := m.tree.Begin(); c.IsValid() && i < len(dst); c = c.Increment() {
		dst[i] = Entry[K, V]{Key: c.Key(), Value: c.Value()}
		i++
	}
	return i - offset
}

// Enumerate iterates every entry in ascending key order.
func (m *Map[K, V]) Enumerate() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for c := m.tree.Begin(); c.IsValid(); c = c.Increment() {
			if !yield(c.Key(), c.Value()) {
				return
			}
		}
	}
}

// From iterates every entry with key >= start, in ascending order.
func (m *Map[K, V]) From(start K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for c := m.tree.LowerBound(start); c.IsValid(); c = c.Increment() {
			if !yield(c.Key(), c.Value()) {
				return
			}
		}
	}
}

// Range iterates the half-open interval [start, end): every entry with
// start <= key < end, in ascending order. It reports ErrInvalidRange if
// end orders before start.
//
// The start == end case is the one spec.md §9 flags as an open question:
// UpperBound(end) does not normalize past a delimiter equal to end (see
// UpperBound's doc comment), so tracing the literal algorithm for
// start == end yields exactly the single entry at start, if present,
// rather than the empty range a naive key comparison would suggest. This
// is implemented directly as that one-entry special case rather than by
// comparing raw cursors, matching the behavior spec.md's own algorithm
// trace settles on.
func (m *Map[K, V]) Range(start, end K) (iter.Seq2[K, V], error) {
	if m.tree.cmp.Lt(end, start) {
		return nil, ErrInvalidRange
	}

	return func(yield func(K, V) bool) {
		lo := m.tree.LowerBound(start)

		if m.tree.cmp.Eq(start, end) {
			if lo.IsValid() && m.tree.cmp.Eq(lo.Key(), start) {
				yield(lo.Key(), lo.Value())
			}
			return
		}

		for c := lo; c.IsValid() && m.tree.cmp.Lt(c.Key(), end); c = c.Increment() {
			if !yield(c.Key(), c.Value()) {
				return
			}
		}
	}, nil
}

// BytesUsed returns the total bytes currently allocated across every
// node.
func (m *Map[K, V]) BytesUsed() int { return m.tree.bytesUsed }

// NodeCount returns the number of live nodes (leaves and internal).
func (m *Map[K, V]) NodeCount() int { return m.tree.nodeCount }

// Overhead returns the average bytes allocated per stored entry,
// including node headers and unused entry slots.
func (m *Map[K, V]) Overhead() float64 {
	if m.tree.size == 0 {
		return 0
	}
	return float64(m.tree.bytesUsed) / float64(m.tree.size)
}

// Fullness returns the fraction of total entry capacity across all nodes
// that is actually occupied, in [0,1]; it is 0 when no node is allocated.
func (m *Map[K, V]) Fullness() float64 {
	if m.tree.nodeCount == 0 {
		return 0
	}
	capacity := m.tree.nodeCount * m.tree.layout.nodeKVCount
	return float64(m.tree.size) / float64(capacity)
}

// String implements fmt.Stringer with a short summary, not a full dump.
func (m *Map[K, V]) String() string {
	return fmt.Sprintf("btree.Map[%d entries, %d nodes, %.0f%% full]",
		m.tree.size, m.tree.nodeCount, m.Fullness()*100)
}

// Close releases every node and the tree's slab pools, if any. Close is
// idempotent; a Map not explicitly closed is still cleaned up via
// finalizer, best-effort, as a backstop rather than a substitute.
func (m *Map[K, V]) Close() error {
	if m.closed {
		return nil
	}
	m.tree.Dispose()
	m.closed = true
	runtime.SetFinalizer(m, nil)
	return nil
}
