package btree_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packedkv/btree/pkg/btree"
)

func newStringMap(t *testing.T) *btree.Map[int, string] {
	t.Helper()
	m, err := btree.NewOrdered[int, string]()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMapAddGetContains(t *testing.T) {
	m := newStringMap(t)

	require.False(t, m.Contains(1))
	require.NoError(t, m.Add(1, "one"))
	require.True(t, m.Contains(1))

	v, err := m.Get(1)
	require.NoError(t, err)
	require.Equal(t, "one", v)
}

func TestMapTryGet(t *testing.T) {
	m := newStringMap(t)
	_, ok := m.TryGet(1)
	require.False(t, ok)

	require.NoError(t, m.Add(1, "one"))
	v, ok := m.TryGet(1)
	require.True(t, ok)
	require.Equal(t, "one", v)
}

func TestMapContainsEntry(t *testing.T) {
	m := newStringMap(t)
	require.NoError(t, m.Add(1, "one"))

	require.True(t, m.ContainsEntry(1, "one"))
	require.False(t, m.ContainsEntry(1, "two"))
	require.False(t, m.ContainsEntry(2, "one"))
}

func TestMapContainsEntryCustomEqual(t *testing.T) {
	type box struct{ v int }
	m, err := btree.NewOrdered[int, box](
		btree.WithValueEqual[int, box](func(a, b box) bool { return a.v == b.v }),
	)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Add(1, box{v: 42}))
	require.True(t, m.ContainsEntry(1, box{v: 42}))
	require.False(t, m.ContainsEntry(1, box{v: 7}))
}

func TestMapCountIsEmpty(t *testing.T) {
	m := newStringMap(t)
	require.True(t, m.IsEmpty())
	require.Equal(t, 0, m.Count())

	require.NoError(t, m.Add(1, "a"))
	require.False(t, m.IsEmpty())
	require.Equal(t, 1, m.Count())
}

func TestMapCopyTo(t *testing.T) {
	m := newOrderedMap(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Add(i, i*2))
	}

	dst := make([]btree.Entry[int, int], 3)
	n := m.CopyTo(dst, 0)
	require.Equal(t, 3, n)
	require.Equal(t, 0, dst[0].Key)
	require.Equal(t, 4, dst[2].Value)

	full := make([]btree.Entry[int, int], 10)
	n = m.CopyTo(full, 2)
	require.Equal(t, 5, n)
	require.Equal(t, 0, full[2].Key)
	require.Equal(t, 4, full[6].Key)
}

func TestMapFrom(t *testing.T) {
	m := newOrderedMap(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Add(i, i))
	}

	var got []int
	for k := range m.From(5) {
		got = append(got, k)
	}
	require.Equal(t, []int{5, 6, 7, 8, 9}, got)
}

func TestMapBytesUsedAndNodeCount(t *testing.T) {
	m := newOrderedMap(t)
	require.Equal(t, 0, m.NodeCount()) // no root allocated until the first insert
	require.Zero(t, m.BytesUsed())

	require.NoError(t, m.Add(1, 1))
	require.Positive(t, m.NodeCount())
	require.Positive(t, m.BytesUsed())
}

func TestMapOverheadAndFullness(t *testing.T) {
	m := newOrderedMap(t)
	require.Zero(t, m.Overhead())
	require.Zero(t, m.Fullness())

	for i := 0; i < 20; i++ {
		require.NoError(t, m.Add(i, i))
	}
	require.Positive(t, m.Overhead())
	require.Positive(t, m.Fullness())
	require.LessOrEqual(t, m.Fullness(), 1.0)
}

func TestMapString(t *testing.T) {
	m := newOrderedMap(t)
	require.NoError(t, m.Add(1, 1))

	s := m.String()
	require.Contains(t, s, "1 entries")
	require.Contains(t, s, fmt.Sprintf("%d nodes", m.NodeCount()))
}

func TestMapCloseIsIdempotent(t *testing.T) {
	m, err := btree.NewOrdered[int, int]()
	require.NoError(t, err)

	require.NoError(t, m.Add(1, 1))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestMapIterationStopsEarly(t *testing.T) {
	m := newOrderedMap(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Add(i, i))
	}

	var got []int
	for k := range m.Enumerate() {
		got = append(got, k)
		if k == 2 {
			break
		}
	}
	require.Equal(t, []int{0, 1, 2}, got)
}
