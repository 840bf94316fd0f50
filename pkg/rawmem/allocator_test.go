package rawmem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packedkv/btree/pkg/rawmem"
)

func TestHeapAllocator_AllocateDeallocate(t *testing.T) {
	var h rawmem.HeapAllocator

	a, err := h.Allocate(64)
	require.NoError(t, err)
	require.False(t, a.IsNil())
	require.Equal(t, 1, h.Live())

	buf := unsafeBytes(a, 64)
	for _, b := range buf {
		require.Zero(t, b)
	}

	h.Deallocate(a, 64)
	require.Equal(t, 0, h.Live())
}

func TestHeapAllocator_MultipleRegionsAreDistinct(t *testing.T) {
	var h rawmem.HeapAllocator

	a, err := h.Allocate(32)
	require.NoError(t, err)
	b, err := h.Allocate(32)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Equal(t, 2, h.Live())
}

func TestHeapAllocator_NegativeSizeFails(t *testing.T) {
	var h rawmem.HeapAllocator

	_, err := h.Allocate(-1)
	require.ErrorIs(t, err, rawmem.ErrAllocationFailed)
}
