package rawmem

import "github.com/packedkv/btree/internal/debug"

const (
	// DefaultItemsPerSlab is the default slab capacity (spec.md §4.2).
	DefaultItemsPerSlab = 1024
	// DefaultInitialSlabs is the default number of slabs pre-allocated by
	// NewSlabPool.
	DefaultInitialSlabs = 1
)

// slab is a single contiguous region carved into ItemSize-sized items, with
// a bump cursor (next) marking the first never-yet-handed-out item.
type slab struct {
	base Addr[byte]
	next int // index of the next unused item, in [0, cap]
	cap  int // items this slab holds
}

// SlabPool bulk-allocates fixed-size items from an Allocator, amortizing
// the cost of many same-sized node allocations. It is adapted from the
// teacher's Recycled arena allocator (pop-from-free-list else bump-the-
// active-chunk's-cursor, growing the chunk vector on demand), generalized
// from Recycled's many-power-of-two-size-classes-over-one-arena to
// spec.md §4.2's "one pool per distinct item size" shape. Unlike Recycled,
// which threads its free list through the freed memory itself (storing the
// next pointer in the block's first word), SlabPool keeps an explicit,
// independently growable slice of freed addresses, per spec.md §4.2's
// literal description ("a growable free list of freed item addresses") —
// this also means SlabPool works for items smaller than a pointer, which
// Recycled's in-place linked list cannot.
//
// A SlabPool is not safe for concurrent use, matching the single-threaded
// contract of the engine it backs (spec.md §5).
type SlabPool struct {
	alloc Allocator

	itemSize      int
	itemsPerSlab  int
	maxSlabBytes  int // 0 = uncapped
	slabs         []slab
	active        int // index into slabs of the slab currently being bumped
	free          []Addr[byte]
}

// NewSlabPool constructs a pool of items of itemSize bytes, backed by
// alloc. itemsPerSlab, maxSlabBytes and initialSlabs follow spec.md §4.2's
// factory parameters; zero values select the documented defaults
// (itemsPerSlab defaults to 1024, initialSlabs to 1, maxSlabBytes of 0
// means uncapped and is left as-is).
func NewSlabPool(alloc Allocator, itemSize, itemsPerSlab, maxSlabBytes, initialSlabs int) (*SlabPool, error) {
	if itemsPerSlab <= 0 {
		itemsPerSlab = DefaultItemsPerSlab
	}
	if initialSlabs <= 0 {
		initialSlabs = DefaultInitialSlabs
	}

	p := &SlabPool{
		alloc:        alloc,
		itemSize:     itemSize,
		itemsPerSlab: itemsPerSlab,
		maxSlabBytes: maxSlabBytes,
	}

	for i := 0; i < initialSlabs; i++ {
		if err := p.growSlabs(); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// slabItemCount returns the number of items the next slab should hold,
// respecting maxSlabBytes.
func (p *SlabPool) slabItemCount() int {
	n := p.itemsPerSlab
	if p.maxSlabBytes > 0 {
		if max := p.maxSlabBytes / p.itemSize; max > 0 && max < n {
			n = max
		}
	}
	if n <= 0 {
		n = 1
	}
	return n
}

// growSlabs allocates one more slab and appends it, doubling the slab
// vector's capacity when it is full — mirrors Recycled's chunk-doubling
// policy, applied to the slab index rather than the byte cursor.
func (p *SlabPool) growSlabs() error {
	n := p.slabItemCount()

	base, err := p.alloc.Allocate(n * p.itemSize)
	if err != nil {
		return err
	}

	if len(p.slabs) == cap(p.slabs) {
		grown := make([]slab, len(p.slabs), max(1, cap(p.slabs)*2))
		copy(grown, p.slabs)
		p.slabs = grown
	}

	p.slabs = append(p.slabs, slab{base: base, cap: n})
	debug.Log(nil, "slab-pool grow", "slab %d, %d items of %d bytes", len(p.slabs)-1, n, p.itemSize)

	return nil
}

// Get returns the address of a fresh item, reusing a freed item if one is
// available.
func (p *SlabPool) Get() (Addr[byte], error) {
	if n := len(p.free); n > 0 {
		a := p.free[n-1]
		p.free = p.free[:n-1]
		return a, nil
	}

	for p.active < len(p.slabs) && p.slabs[p.active].next >= p.slabs[p.active].cap {
		p.active++
	}

	if p.active >= len(p.slabs) {
		if err := p.growSlabs(); err != nil {
			return 0, err
		}
	}

	s := &p.slabs[p.active]
	a := s.base.ByteAdd(s.next * p.itemSize)
	s.next++

	return a, nil
}

// Free returns addr, previously returned by Get, to the pool's free list
// for reuse by a later Get.
func (p *SlabPool) Free(addr Addr[byte]) {
	p.free = append(p.free, addr)
}

// Dispose releases every slab back to the underlying Allocator. The pool
// must not be used afterward.
func (p *SlabPool) Dispose() {
	for _, s := range p.slabs {
		p.alloc.Deallocate(s.base, s.cap*p.itemSize)
	}
	p.slabs = nil
	p.free = nil
	p.active = 0
}

// Stats reports coarse pool occupancy for diagnostics (SPEC_FULL.md §8).
type Stats struct {
	Slabs     int
	ItemsLive int
	ItemsFree int
}

// Stats returns the pool's current occupancy.
func (p *SlabPool) Stats() Stats {
	var total int
	for _, s := range p.slabs {
		total += s.next
	}
	return Stats{
		Slabs:     len(p.slabs),
		ItemsLive: total - len(p.free),
		ItemsFree: len(p.free),
	}
}
