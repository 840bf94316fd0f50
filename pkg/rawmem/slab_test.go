package rawmem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packedkv/btree/pkg/rawmem"
)

func TestSlabPool_GetBumpsCursorThenGrows(t *testing.T) {
	var h rawmem.HeapAllocator

	pool, err := rawmem.NewSlabPool(&h, 16, 4, 0, 1)
	require.NoError(t, err)

	seen := map[rawmem.Addr[byte]]bool{}
	for i := 0; i < 4; i++ {
		a, err := pool.Get()
		require.NoError(t, err)
		require.False(t, seen[a])
		seen[a] = true
	}

	stats := pool.Stats()
	require.Equal(t, 1, stats.Slabs)
	require.Equal(t, 4, stats.ItemsLive)

	// A 5th item must trigger growth onto a new slab.
	a, err := pool.Get()
	require.NoError(t, err)
	require.False(t, seen[a])

	stats = pool.Stats()
	require.Equal(t, 2, stats.Slabs)
}

func TestSlabPool_FreeIsReusedBeforeBumping(t *testing.T) {
	var h rawmem.HeapAllocator

	pool, err := rawmem.NewSlabPool(&h, 8, 8, 0, 1)
	require.NoError(t, err)

	a, err := pool.Get()
	require.NoError(t, err)

	pool.Free(a)
	require.Equal(t, 1, pool.Stats().ItemsFree)

	b, err := pool.Get()
	require.NoError(t, err)
	require.Equal(t, a, b, "Get must prefer the free list over bumping the slab cursor")
	require.Equal(t, 0, pool.Stats().ItemsFree)
}

func TestSlabPool_MaxSlabBytesCapsItemsPerSlab(t *testing.T) {
	var h rawmem.HeapAllocator

	// itemSize=16, maxSlabBytes=64 -> 4 items per slab regardless of
	// itemsPerSlab=1024.
	pool, err := rawmem.NewSlabPool(&h, 16, 1024, 64, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := pool.Get()
		require.NoError(t, err)
	}

	require.Equal(t, 2, pool.Stats().Slabs)
}

func TestSlabPool_DisposeReleasesAllSlabs(t *testing.T) {
	var h rawmem.HeapAllocator

	pool, err := rawmem.NewSlabPool(&h, 32, 4, 0, 2)
	require.NoError(t, err)
	require.Equal(t, 2, h.Live())

	pool.Dispose()
	require.Equal(t, 0, h.Live())
}
