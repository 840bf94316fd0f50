package rawmem_test

import (
	"unsafe"

	"github.com/packedkv/btree/pkg/rawmem"
)

// unsafeBytes views the n bytes at addr as a slice, for test assertions
// only; pkg/btree never does this (it works through typed accessors).
func unsafeBytes(addr rawmem.Addr[byte], n int) []byte {
	p := addr.AssertValid()
	if p == nil {
		return nil
	}
	return unsafe.Slice(p, n)
}
