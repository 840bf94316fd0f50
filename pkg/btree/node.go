package btree

import (
	"unsafe"

	"github.com/packedkv/btree/internal/debug"
	"github.com/packedkv/btree/pkg/rawmem"
)

// kind tags a node's shape. spec.md §9 originally told the root apart
// from regular nodes by aliasing its parent pointer to itself; the
// REDESIGN FLAG there replaces that with an explicit tag, so root-ness
// never has to be inferred from a self-loop. Root-ness itself is decided
// by the engine (tree.root == addr), not by kind — kindLeafRoot only
// distinguishes the variably-sized growing root from a fixed-size leaf,
// so growth logic knows when to stop.
type nodeKind uint8

const (
	kindLeafRoot nodeKind = iota // allocated as the growing leaf root; the tag stays when the tree grows above it
	kindLeaf                     // a fixed NODE_KV_COUNT leaf made by a split; the tag stays if it is promoted to root
	kindInternal
)

// header is the fixed-layout prefix of every node's byte region. It is
// never serialized; pkg/btree reinterprets a raw byte buffer as *header
// directly (spec.md's "contiguous byte region" is, in Go, just a []byte
// viewed through unsafe.Pointer — there is no wire format to keep stable).
type header struct {
	kind     nodeKind
	pooled   bool // storage came from a rawmem.SlabPool, not a direct Allocate
	position uint16
	maxCount uint16
	count    uint16
	parent   rawmem.Addr[byte]
}

const headerSize = unsafe.Sizeof(header{})

// entry is the packed (key, value) pair spec.md §3 calls Entry. Keys and
// values are assumed fixed-size and trivially copyable, per spec.md's
// Non-goals — no destructor runs when an entry is overwritten or shifted.
type entry[K any, V any] struct {
	key   K
	value V
}

func entrySize[K any, V any]() int {
	var e entry[K, V]
	return int(unsafe.Sizeof(e))
}

func addrSize() int {
	var a rawmem.Addr[byte]
	return int(unsafe.Sizeof(a))
}

// node is a lightweight handle onto a node's byte region — just the
// address, with all structure resolved through the header it points at.
// Two node values naming the same address are interchangeable.
type node[K any, V any] struct {
	addr rawmem.Addr[byte]
}

func (n node[K, V]) hdr() *header {
	return (*header)(unsafe.Pointer(n.addr.AssertValid()))
}

func (n node[K, V]) isLeaf() bool {
	k := n.hdr().kind
	return k == kindLeafRoot || k == kindLeaf
}

func (n node[K, V]) isInternal() bool {
	return n.hdr().kind == kindInternal
}

// entries returns the node's full entry capacity (index [0,maxCount)),
// not just its live prefix — callers that want only the live entries
// slice to [:count].
func (n node[K, V]) entries() []entry[K, V] {
	h := n.hdr()
	base := (*entry[K, V])(unsafe.Pointer(n.addr.ByteAdd(int(headerSize)).AssertValid()))
	return unsafe.Slice(base, int(h.maxCount))
}

// activeEntries returns just the live prefix, entries()[:count].
func (n node[K, V]) activeEntries() []entry[K, V] {
	h := n.hdr()
	return n.entries()[:h.count]
}

// children is valid only on internal nodes: maxCount+1 child addresses.
func (n node[K, V]) children() []rawmem.Addr[byte] {
	debug.Assert(n.isInternal(), "children() called on a non-internal node")
	h := n.hdr()
	off := int(headerSize) + int(h.maxCount)*entrySize[K, V]()
	base := (*rawmem.Addr[byte])(unsafe.Pointer(n.addr.ByteAdd(off).AssertValid()))
	return unsafe.Slice(base, int(h.maxCount)+1)
}

// leafByteSize is the byte region size of a leaf (or leaf root) with
// room for maxCount entries.
func leafByteSize[K any, V any](maxCount int) int {
	return int(headerSize) + maxCount*entrySize[K, V]()
}

// internalByteSize is the byte region size of an internal node with room
// for maxCount entries and maxCount+1 children.
func internalByteSize[K any, V any](maxCount int) int {
	return leafByteSize[K, V](maxCount) + (maxCount+1)*addrSize()
}

// reparentChild updates a child's back-pointer after it moves to a new
// parent and/or a new index within that parent's children array. Every
// mutation that shuffles children is responsible for calling this on each
// child it moves — spec.md §4.3 states this as a blanket requirement
// ("All mutations... update child back-pointers") rather than spelling it
// out per-mutation.
func reparentChild[K any, V any](c node[K, V], parent rawmem.Addr[byte], position int) {
	h := c.hdr()
	h.parent = parent
	h.position = uint16(position)
}
