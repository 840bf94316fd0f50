package rawmem

import (
	"unsafe"

	"github.com/packedkv/btree/internal/debug"
)

// Int is any integer type, used to keep address arithmetic generic over the
// caller's preferred index type.
type Int interface {
	int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64 | uintptr
}

// Layout is the size and alignment of some type.
type Layout struct {
	Size, Align int
}

// SizeOf returns T's size in bytes.
func SizeOf[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

// AlignOf returns T's alignment in bytes.
func AlignOf[T any]() int {
	var z T
	return int(unsafe.Alignof(z))
}

// LayoutOf returns the size and alignment of T.
func LayoutOf[T any]() Layout {
	return Layout{SizeOf[T](), AlignOf[T]()}
}

// RoundUp rounds v up to the nearest multiple of align, align must be a
// power of two.
func RoundUp[T Int](v, align T) T {
	debug.Assert(v >= 0, "v must be non-negative")
	debug.Assert(align > 0, "align must be positive")

	return (v + align - 1) &^ (align - 1)
}

// Padding returns RoundUp(v, align) - v.
func Padding[T Int](v, align T) T {
	return RoundUp(v, align) - v
}
