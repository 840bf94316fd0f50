package btree

import (
	"github.com/packedkv/btree/internal/debug"
	"github.com/packedkv/btree/pkg/rawmem"
)

// Tree is the ordered engine spec.md §4.4 describes. The footer fields
// spec.md originally kept inside the root node's own byte region (size,
// leftmost, rightmost) live here instead — spec.md §9's REDESIGN FLAG —
// so the root is not a special byte shape: it is simply whichever node
// t.root currently names, distinguished only by the fact that nothing
// points to it as a child.
type Tree[K any, V any] struct {
	cmp   Comparator[K]
	alloc rawmem.Allocator

	layout nodeLayout

	leafPool     *rawmem.SlabPool
	internalPool *rawmem.SlabPool

	root      rawmem.Addr[byte]
	leftmost  rawmem.Addr[byte]
	rightmost rawmem.Addr[byte]

	size      int
	height    int
	nodeCount int
	bytesUsed int
}

func newTree[K any, V any](cfg Config[K, V]) (*Tree[K, V], error) {
	t := &Tree[K, V]{
		cmp:    cfg.Comparator,
		alloc:  cfg.Allocator,
		layout: newNodeLayout[K, V](cfg.TargetNodeBytes),
	}

	if cfg.UseSlabPool {
		leafPool, err := rawmem.NewSlabPool(cfg.Allocator, t.layout.leafBytes, cfg.ItemsPerSlab, cfg.MaxSlabBytes, cfg.InitialSlabs)
		if err != nil {
			return nil, err
		}
		internalPool, err := rawmem.NewSlabPool(cfg.Allocator, t.layout.internalBytes, cfg.ItemsPerSlab, cfg.MaxSlabBytes, cfg.InitialSlabs)
		if err != nil {
			return nil, err
		}
		t.leafPool = leafPool
		t.internalPool = internalPool
	}

	return t, nil
}

// --- allocation -------------------------------------------------------

func (t *Tree[K, V]) allocLeafRoot(maxCount int) node[K, V] {
	size := leafByteSize[K, V](maxCount)
	addr, err := t.alloc.Allocate(size)
	if err != nil {
		allocFatal(err)
	}
	n := node[K, V]{addr: addr}
	*n.hdr() = header{kind: kindLeafRoot, maxCount: uint16(maxCount)}
	t.nodeCount++
	t.bytesUsed += size
	return n
}

func (t *Tree[K, V]) allocLeaf() node[K, V] {
	pooled := t.leafPool != nil
	var addr rawmem.Addr[byte]
	var err error
	if pooled {
		addr, err = t.leafPool.Get()
	} else {
		addr, err = t.alloc.Allocate(t.layout.leafBytes)
	}
	if err != nil {
		allocFatal(err)
	}
	n := node[K, V]{addr: addr}
	*n.hdr() = header{kind: kindLeaf, pooled: pooled, maxCount: uint16(t.layout.nodeKVCount)}
	t.nodeCount++
	t.bytesUsed += t.layout.leafBytes
	return n
}

func (t *Tree[K, V]) allocInternal() node[K, V] {
	pooled := t.internalPool != nil
	var addr rawmem.Addr[byte]
	var err error
	if pooled {
		addr, err = t.internalPool.Get()
	} else {
		addr, err = t.alloc.Allocate(t.layout.internalBytes)
	}
	if err != nil {
		allocFatal(err)
	}
	n := node[K, V]{addr: addr}
	*n.hdr() = header{kind: kindInternal, pooled: pooled, maxCount: uint16(t.layout.nodeKVCount)}
	t.nodeCount++
	t.bytesUsed += t.layout.internalBytes
	return n
}

func (t *Tree[K, V]) freeNode(n node[K, V]) {
	h := n.hdr()
	var size int
	if n.isInternal() {
		size = internalByteSize[K, V](int(h.maxCount))
	} else {
		size = leafByteSize[K, V](int(h.maxCount))
	}

	if h.pooled {
		if n.isLeaf() {
			t.leafPool.Free(n.addr)
		} else {
			t.internalPool.Free(n.addr)
		}
	} else {
		t.alloc.Deallocate(n.addr, size)
	}

	t.nodeCount--
	t.bytesUsed -= size
}

// growLeafRoot reallocates the small leaf root at double its current
// capacity (capped at NODE_KV_COUNT), copies its live entries across,
// and frees the old region. Called only while the root is still a
// single leaf — spec.md §4.4's insert path for "the leaf root hasn't
// reached full size yet".
func (t *Tree[K, V]) growLeafRoot(old node[K, V]) node[K, V] {
	oh := old.hdr()
	newMax := int(oh.maxCount) * 2
	if newMax > t.layout.nodeKVCount {
		newMax = t.layout.nodeKVCount
	}

	neu := t.allocLeafRoot(newMax)
	nh := neu.hdr()
	copy(neu.entries()[:oh.count], old.entries()[:oh.count])
	nh.count = oh.count

	t.root = neu.addr
	t.leftmost = neu.addr
	t.rightmost = neu.addr

	t.freeNode(old)
	return neu
}

// growHeight allocates a fresh internal root, installs old (the current
// root) as its sole child, and repoints t.root. old keeps its own
// address and its full contents; only its parent/position header fields
// change.
func (t *Tree[K, V]) growHeight(old node[K, V]) node[K, V] {
	neu := t.allocInternal()
	nh := neu.hdr()
	nh.count = 0

	neu.children()[0] = old.addr
	reparentChild(old, neu.addr, 0)

	t.root = neu.addr
	t.height++
	return neu
}

// tryShrinkRoot collapses a root that has reached entry count 0. A leaf
// root at count 0 means the tree is empty. An internal root at count 0
// has exactly one child (children()[0]); since the redesigned root
// carries no footer to preserve, that child is simply promoted in place
// — t.root is repointed to it and the old root region is freed — whether
// the child is itself a leaf or internal.
func (t *Tree[K, V]) tryShrinkRoot() {
	r := node[K, V]{t.root}
	h := r.hdr()
	if int(h.count) > 0 {
		return
	}

	if r.isLeaf() {
		t.freeNode(r)
		t.root, t.leftmost, t.rightmost = 0, 0, 0
		return
	}

	child := node[K, V]{r.children()[0]}
	ch := child.hdr()
	ch.parent = 0
	ch.position = 0
	t.root = child.addr
	t.height--
	t.freeNode(r)
}

// --- capacity management ------------------------------------------------

// ensureRoomFor guarantees n.count < n.maxCount, by rebalancing with a
// sibling if one has at least two free slots, or else splitting n after first
// (recursively) ensuring n's parent has room for the promoted entry —
// growing the tree's height first if n is the root. Used for ancestors
// that are about to receive a promoted entry from a child's split; it
// does not track any particular insertion position (see
// makeRoomAndRelocate for the position-aware variant used at the leaf
// actually receiving the new entry).
func (t *Tree[K, V]) ensureRoomFor(n node[K, V]) {
	h := n.hdr()
	if int(h.count) < int(h.maxCount) {
		return
	}

	if n.addr == t.root {
		t.growHeight(n)
		h = n.hdr()
	} else {
		parent := node[K, V]{h.parent}
		idx := int(h.position)

		if idx > 0 {
			left := node[K, V]{parent.children()[idx-1]}
			if lh := left.hdr(); int(lh.count)+1 < int(lh.maxCount) {
				m := rebalanceShare(int(lh.maxCount) - int(lh.count))
				if m > int(h.count)-1 {
					m = int(h.count) - 1
				}
				if m >= 1 {
					t.rebalanceRightToLeft(left, n, m)
					return
				}
			}
		}
		if idx < int(parent.hdr().count) {
			right := node[K, V]{parent.children()[idx+1]}
			if rh := right.hdr(); int(rh.count)+1 < int(rh.maxCount) {
				m := rebalanceShare(int(rh.maxCount) - int(rh.count))
				if m > int(h.count)-1 {
					m = int(h.count) - 1
				}
				if m >= 1 {
					t.rebalanceLeftToRight(n, right, m)
					return
				}
			}
		}

		t.ensureRoomFor(parent)
		h = n.hdr() // n's parent/position may have changed above
	}

	t.splitNodeKeep(n, int(h.maxCount)/2+1)
}

func (t *Tree[K, V]) rebalanceForInsertLeft(left, n node[K, V], pos int) (node[K, V], int, bool) {
	lh := left.hdr()
	free := int(lh.maxCount) - int(lh.count)
	if free < 1 {
		return node[K, V]{}, 0, false
	}
	m := rebalanceShare(free)
	nh := n.hdr()
	if m > int(nh.count)-1 {
		m = int(nh.count) - 1
	}
	if m < 1 {
		return node[K, V]{}, 0, false
	}

	oldLeftCount := int(lh.count)
	if pos < m && oldLeftCount+m >= int(lh.maxCount) {
		return node[K, V]{}, 0, false
	}
	t.rebalanceRightToLeft(left, n, m)
	if pos < m {
		return left, oldLeftCount + 1 + pos, true
	}
	return n, pos - m, true
}

func (t *Tree[K, V]) rebalanceForInsertRight(n, right node[K, V], pos int) (node[K, V], int, bool) {
	rh := right.hdr()
	free := int(rh.maxCount) - int(rh.count)
	if free < 1 {
		return node[K, V]{}, 0, false
	}
	m := rebalanceShare(free)
	nh := n.hdr()
	if m > int(nh.count)-1 {
		m = int(nh.count) - 1
	}
	if m < 1 {
		return node[K, V]{}, 0, false
	}

	keep := int(nh.count) - m
	if pos > keep && int(rh.count)+m >= int(rh.maxCount) {
		return node[K, V]{}, 0, false
	}
	t.rebalanceLeftToRight(n, right, m)
	if pos > keep {
		return right, pos - keep - 1, true
	}
	return n, pos, true
}

func (t *Tree[K, V]) splitForInsert(n node[K, V], pos int) (node[K, V], int) {
	maxCount := int(n.hdr().maxCount)
	keep := splitBias(pos, maxCount)
	dst := t.splitNodeKeep(n, keep)
	if pos < keep {
		return n, pos
	}
	return dst, pos - keep
}

// makeRoomAndRelocate guarantees n has room for one more entry and
// returns where the pending (k,v) should now land, which may be a
// sibling or a freshly split-off node rather than n itself.
func (t *Tree[K, V]) makeRoomAndRelocate(n node[K, V], pos int) (node[K, V], int) {
	h := n.hdr()

	if n.addr != t.root {
		parent := node[K, V]{h.parent}
		idx := int(h.position)

		if idx > 0 {
			left := node[K, V]{parent.children()[idx-1]}
			if newN, newPos, ok := t.rebalanceForInsertLeft(left, n, pos); ok {
				return newN, newPos
			}
		}
		if idx < int(parent.hdr().count) {
			right := node[K, V]{parent.children()[idx+1]}
			if newN, newPos, ok := t.rebalanceForInsertRight(n, right, pos); ok {
				return newN, newPos
			}
		}

		t.ensureRoomFor(parent)
	} else {
		t.growHeight(n)
	}

	return t.splitForInsert(n, pos)
}

// --- lookup -------------------------------------------------------------

// find descends the tree looking for an exact key match, which — since
// splits promote real entries into internal nodes, not just delimiter
// copies — can be found at any level, not only at a leaf.
func (t *Tree[K, V]) find(k K) (node[K, V], int, bool) {
	if t.root.IsNil() {
		return node[K, V]{}, 0, false
	}
	cur := node[K, V]{t.root}
	for {
		pos := linearSearchActive(t.cmp, cur, k)
		if pos < int(cur.hdr().count) && t.cmp.Eq(cur.entries()[pos].key, k) {
			return cur, pos, true
		}
		if cur.isLeaf() {
			return node[K, V]{}, 0, false
		}
		cur = node[K, V]{cur.children()[pos]}
	}
}

// --- insert ---------------------------------------------------------

// Insert adds (k,v). It reports false, and a cursor addressing the
// existing entry, if k is already present — duplicate keys are rejected
// (spec.md §7's DuplicateKey).
func (t *Tree[K, V]) Insert(k K, v V) (bool, Cursor[K, V]) {
	if t.root.IsNil() {
		r := t.allocLeafRoot(1)
		t.root, t.leftmost, t.rightmost = r.addr, r.addr, r.addr
	}

	cur := node[K, V]{t.root}
	for {
		pos := linearSearchActive(t.cmp, cur, k)
		if pos < int(cur.hdr().count) && t.cmp.Eq(cur.entries()[pos].key, k) {
			debug.Log(nil, "Insert", "key already present, position %d", pos)
			return false, Cursor[K, V]{tree: t, node: cur, pos: pos}
		}
		if cur.isLeaf() {
			return true, t.internalInsert(cur, pos, k, v)
		}
		cur = node[K, V]{cur.children()[pos]}
	}
}

func (t *Tree[K, V]) internalInsert(leaf node[K, V], pos int, k K, v V) Cursor[K, V] {
	h := leaf.hdr()

	if int(h.count) < int(h.maxCount) {
		insertEntry(leaf, pos, entry[K, V]{key: k, value: v})
		t.size++
		return Cursor[K, V]{tree: t, node: leaf, pos: pos}
	}

	if h.kind == kindLeafRoot && int(h.maxCount) < t.layout.nodeKVCount {
		grown := t.growLeafRoot(leaf)
		return t.internalInsert(grown, pos, k, v)
	}

	target, newPos := t.makeRoomAndRelocate(leaf, pos)
	insertEntry(target, newPos, entry[K, V]{key: k, value: v})
	t.size++
	return Cursor[K, V]{tree: t, node: target, pos: newPos}
}

// --- remove -----------------------------------------------------------

// Remove deletes k, reporting whether it was present.
func (t *Tree[K, V]) Remove(k K) bool {
	n, pos, ok := t.find(k)
	if !ok {
		debug.Log(nil, "Remove", "key not present")
		return false
	}

	target, targetIdx := n, pos
	deletedAtFront := pos == 0
	deletedAtBack := pos == int(n.hdr().count)-1

	if n.isInternal() {
		pred := node[K, V]{n.children()[pos]}
		for pred.isInternal() {
			pred = node[K, V]{pred.children()[pred.hdr().count]}
		}
		predIdx := int(pred.hdr().count) - 1
		n.entries()[pos] = pred.entries()[predIdx]

		target, targetIdx = pred, predIdx
		deletedAtFront = targetIdx == 0
		deletedAtBack = targetIdx == int(pred.hdr().count)-1
	}

	removeEntry(target, targetIdx)
	t.size--
	t.removeRebalance(target, deletedAtFront, deletedAtBack)
	return true
}

// removeRebalance walks up from a node that just lost an entry, merging
// or rebalancing it back above MIN_NODE_KV_COUNT as needed, and finally
// shrinking the root if it has been emptied.
func (t *Tree[K, V]) removeRebalance(n node[K, V], deletedAtFront, deletedAtBack bool) {
	for {
		if n.addr == t.root {
			t.tryShrinkRoot()
			return
		}
		if int(n.hdr().count) >= t.layout.minNodeKVCount {
			return
		}

		merged, parent := t.tryMergeOrRebalance(n, deletedAtFront, deletedAtBack)
		if !merged {
			return
		}
		n = parent
		deletedAtFront, deletedAtBack = false, false
	}
}

// tryMergeOrRebalance resolves a deficient non-root node n: merging it
// into a sibling if the combined entries fit in one node, else pulling
// entries from whichever sibling has more than MIN_NODE_KV_COUNT.
// deletedAtFront/deletedAtBack skip rebalancing toward the side the
// deletion just came from — there's nothing useful to rebalance with a
// sibling freshly emptied from that direction — unless n is now empty,
// in which case it always rebalances.
func (t *Tree[K, V]) tryMergeOrRebalance(n node[K, V], deletedAtFront, deletedAtBack bool) (merged bool, parent node[K, V]) {
	h := n.hdr()
	parent = node[K, V]{h.parent}
	idx := int(h.position)
	minCount := t.layout.minNodeKVCount

	hasLeft := idx > 0
	hasRight := idx < int(parent.hdr().count)

	if hasLeft {
		left := node[K, V]{parent.children()[idx-1]}
		if int(left.hdr().count)+1+int(h.count) <= int(h.maxCount) {
			t.mergeNodes(left, n)
			return true, parent
		}
	}
	if hasRight {
		right := node[K, V]{parent.children()[idx+1]}
		if int(h.count)+1+int(right.hdr().count) <= int(h.maxCount) {
			t.mergeNodes(n, right)
			return true, parent
		}
	}

	if hasLeft && (!deletedAtFront || h.count == 0) {
		left := node[K, V]{parent.children()[idx-1]}
		if lc := int(left.hdr().count); lc > minCount {
			m := rebalanceAmountForDeficit(int(h.count), lc, minCount)
			t.rebalanceLeftToRight(left, n, m)
			return false, parent
		}
	}
	if hasRight && (!deletedAtBack || h.count == 0) {
		right := node[K, V]{parent.children()[idx+1]}
		if rc := int(right.hdr().count); rc > minCount {
			m := rebalanceAmountForDeficit(int(h.count), rc, minCount)
			t.rebalanceRightToLeft(n, right, m)
			return false, parent
		}
	}

	return false, parent
}

// --- whole-tree operations ----------------------------------------------

// Clear frees every node and resets the tree to empty.
func (t *Tree[K, V]) Clear() {
	if !t.root.IsNil() {
		t.freeSubtree(node[K, V]{t.root})
	}
	t.root, t.leftmost, t.rightmost = 0, 0, 0
	t.size, t.height = 0, 0
}

func (t *Tree[K, V]) freeSubtree(n node[K, V]) {
	if n.isInternal() {
		h := n.hdr()
		for i := 0; i <= int(h.count); i++ {
			t.freeSubtree(node[K, V]{n.children()[i]})
		}
	}
	t.freeNode(n)
}

func (t *Tree[K, V]) Dispose() {
	t.Clear()
	if t.leafPool != nil {
		t.leafPool.Dispose()
	}
	if t.internalPool != nil {
		t.internalPool.Dispose()
	}
}
