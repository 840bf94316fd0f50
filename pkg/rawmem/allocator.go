package rawmem

import (
	"errors"
	"unsafe"

	"github.com/packedkv/btree/internal/debug"
)

// ErrAllocationFailed is returned by an Allocator when it cannot satisfy a
// request. Per spec.md §7, allocation failure is the one fatal error kind
// in this library; pkg/btree turns this into a panic at the call site
// rather than threading it through every mutation's return value.
var ErrAllocationFailed = errors.New("rawmem: allocation failed")

// Allocator is the contract pkg/btree's node layer is built against: return
// and reclaim byte regions of a requested size. A region returned by
// Allocate is uniquely owned by the caller until it is passed back to
// Deallocate with the exact same size it was allocated with — this sizing
// discipline is what lets a SlabPool or any size-class-based implementation
// maintain per-size free lists instead of tracking sizes itself.
//
// Allocator implementations need not be safe for concurrent use; per
// spec.md §5, a Tree owns its Allocator exclusively for the tree's
// lifetime, and concurrent use across trees requires external
// synchronization.
type Allocator interface {
	// Allocate returns size bytes of zeroed, uniquely-owned memory.
	Allocate(size int) (Addr[byte], error)

	// Deallocate releases a region previously returned by Allocate. size
	// must be the same value passed to the Allocate call that produced a;
	// implementations may use it to route the region back to the correct
	// size class without re-deriving it.
	Deallocate(a Addr[byte], size int)
}

// HeapAllocator is the default Allocator: every Allocate call is a plain Go
// heap allocation. Because Addr[T] erases the pointer-ness of the memory it
// names (no write barriers, invisible to a conservative GC scan of a node's
// raw bytes), HeapAllocator keeps every live block pinned in a registry —
// directly mirroring the teacher Arena's a.blocks slice, which exists for
// the same reason: something with a real pointer type must keep each chunk
// reachable for as long as an Addr into it might still be dereferenced.
//
// A zero HeapAllocator is ready to use.
type HeapAllocator struct {
	live map[Addr[byte]][]byte
}

var _ Allocator = (*HeapAllocator)(nil)

// Allocate implements Allocator.
func (h *HeapAllocator) Allocate(size int) (Addr[byte], error) {
	if size < 0 {
		return 0, ErrAllocationFailed
	}

	buf := make([]byte, size)

	var addr Addr[byte]
	if size == 0 {
		// No backing storage to take the address of; return a sentinel
		// non-null address so callers can still distinguish "allocated
		// zero bytes" from "allocation failed".
		addr = Addr[byte](1)
	} else {
		addr = AddrOf(unsafe.SliceData(buf))
	}

	if h.live == nil {
		h.live = make(map[Addr[byte]][]byte)
	}
	h.live[addr] = buf

	debug.Log(nil, "allocate", "%v, %d bytes", addr, size)

	return addr, nil
}

// Deallocate implements Allocator.
func (h *HeapAllocator) Deallocate(a Addr[byte], size int) {
	debug.Log(nil, "deallocate", "%v, %d bytes", a, size)

	delete(h.live, a)
}

// Live returns the number of blocks currently allocated and not yet
// deallocated. Used by pkg/rawmem's own allocator and slab pool tests.
func (h *HeapAllocator) Live() int {
	return len(h.live)
}
