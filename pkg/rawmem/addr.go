// Package rawmem is the allocator contract the B-tree engine in pkg/btree
// consumes: a raw address type plus the allocate/deallocate interface nodes
// of three discrete byte sizes are carved from, and an optional slab pool
// that amortizes allocation over many same-sized nodes.
//
// It is adapted from the low-level arena allocator of its teacher package
// (github.com/flier/goutil/pkg/arena and pkg/xunsafe), generalized from
// "allocate GC-typed values on an arena" to "allocate fixed-size byte
// regions and hand back a raw address", which is the contract spec.md's
// node layout is built on.
package rawmem

import (
	"fmt"
	"unsafe"
)

// Addr[T] is a raw address: a uintptr that has forgotten everything except
// where it points and what it would point to if dereferenced. Unlike a *T,
// an Addr[T] does not keep its referent alive and participates in no write
// barriers, which mirrors the "raw address" fields spec.md's node header
// requires (parent, child pointers, rightmost).
//
// Zero value is the null address.
type Addr[T any] uintptr

// AddrOf returns the address of p.
func AddrOf[T any](p *T) Addr[T] {
	return Addr[T](unsafe.Pointer(p)) //nolint:govet
}

// EndOf returns the address one past the last element of s.
func EndOf[T any](s []T) Addr[T] {
	if len(s) == 0 {
		return AddrOf(unsafe.SliceData(s))
	}
	return AddrOf(&s[len(s)-1]).Add(1)
}

// IsNil reports whether a is the null address.
func (a Addr[T]) IsNil() bool { return a == 0 }

// AssertValid converts a back into a *T. The caller is asserting that a
// still points at live memory of the allocator that produced it; rawmem
// does nothing to verify this.
func (a Addr[T]) AssertValid() *T {
	if a == 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(uintptr(a))) //nolint:govet
}

// Add returns a advanced by n elements of T (scaled by sizeof(T)).
func (a Addr[T]) Add(n int) Addr[T] {
	var z T
	return a + Addr[T](n)*Addr[T](unsafe.Sizeof(z))
}

// ByteAdd returns a advanced by n bytes, unscaled.
func (a Addr[T]) ByteAdd(n int) Addr[T] {
	return a + Addr[T](n)
}

// Sub returns the number of T-sized elements between a and b (a - b).
func (a Addr[T]) Sub(b Addr[T]) int {
	var z T
	size := unsafe.Sizeof(z)
	if size == 0 {
		return int(a - b)
	}
	return int(uintptr(a)-uintptr(b)) / int(size)
}

// ByteSub returns the raw byte difference between a and b (a - b).
func (a Addr[T]) ByteSub(b Addr[T]) int {
	return int(uintptr(a) - uintptr(b))
}

// Padding returns the number of bytes that must be added to a to reach the
// next multiple of align.
func (a Addr[T]) Padding(align int) int {
	if align <= 0 {
		return 0
	}
	return (align - int(uintptr(a)&uintptr(align-1))) & (align - 1)
}

// RoundUpTo returns a rounded up to the next multiple of align.
func (a Addr[T]) RoundUpTo(align int) Addr[T] {
	if align <= 0 {
		return a
	}
	return Addr[T]((uintptr(a) + uintptr(align-1)) &^ uintptr(align-1))
}

// SignBit reports whether a's top bit is set. Nothing in this module calls
// it; SlabPool keeps its free list as a plain slice of addresses.
func (a Addr[T]) SignBit() bool {
	return uintptr(a)>>(unsafe.Sizeof(uintptr(0))*8-1) != 0
}

// SignBitMask returns ^Addr[T](0) if SignBit is set, else 0.
func (a Addr[T]) SignBitMask() Addr[T] {
	if a.SignBit() {
		return ^Addr[T](0)
	}
	return 0
}

// ClearSignBit returns a with its top bit cleared.
func (a Addr[T]) ClearSignBit() Addr[T] {
	return a &^ (Addr[T](1) << (unsafe.Sizeof(uintptr(0))*8 - 1))
}

// String implements fmt.Stringer.
func (a Addr[T]) String() string {
	return fmt.Sprintf("%#x", uintptr(a))
}

// Format implements fmt.Formatter so %x/%v print the raw address.
func (a Addr[T]) Format(s fmt.State, verb rune) {
	switch verb {
	case 'x', 'X':
		fmt.Fprintf(s, fmt.FormatString(s, verb), uintptr(a))
	default:
		fmt.Fprint(s, a.String())
	}
}
