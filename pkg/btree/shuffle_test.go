package btree_test

import (
	"sort"

	"github.com/dolthub/maphash"
)

// deterministicShuffle reorders a copy of keys using a hash permutation, so
// scenario tests that need "insert in some order other than sorted" get a
// non-trivial order without pulling in math/rand. maphash.NewHasher seeds
// itself randomly on every call, so the order varies from run to run; that's
// fine here since every caller only asserts on the final sorted contents,
// never on a specific insertion order.
func deterministicShuffle(keys []int) []int {
	h := maphash.NewHasher[int]()
	out := make([]int, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool {
		return h.Hash(out[i]) < h.Hash(out[j])
	})
	return out
}
