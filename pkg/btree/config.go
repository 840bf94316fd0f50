package btree

import (
	"errors"
	"fmt"

	"github.com/packedkv/btree/pkg/rawmem"
)

// Default tuning, matching spec.md §6's configuration table.
const (
	DefaultTargetNodeBytes = 256
	DefaultItemsPerSlab    = rawmem.DefaultItemsPerSlab
	DefaultInitialSlabs    = rawmem.DefaultInitialSlabs
)

// Config holds every tunable spec.md §6 names. Build one with New's
// functional options rather than constructing it directly — the zero
// value is not valid (Comparator is nil).
type Config[K any, V any] struct {
	// TargetNodeBytes bounds the byte size of a full leaf or internal
	// node; NODE_KV_COUNT is derived from it (spec.md §3).
	TargetNodeBytes int

	// Comparator defines key order. Required.
	Comparator Comparator[K]

	// Allocator backs every node allocation. Defaults to a fresh
	// *rawmem.HeapAllocator.
	Allocator rawmem.Allocator

	// ValueEqual backs Map.ContainsEntry. Defaults to reflect.DeepEqual,
	// since V is not required to be a comparable type.
	ValueEqual func(a, b V) bool

	// UseSlabPool routes fixed-size leaf/internal node allocation
	// through a rawmem.SlabPool per spec.md §4.2, instead of calling the
	// Allocator directly for every node. The small, variably-sized leaf
	// root is never pooled (see tree.go's allocLeafRoot).
	UseSlabPool  bool
	ItemsPerSlab int
	MaxSlabBytes int
	InitialSlabs int
}

// Option configures a Config via New.
type Option[K any, V any] func(*Config[K, V])

// WithTargetNodeBytes overrides the node byte budget used to derive
// NODE_KV_COUNT.
func WithTargetNodeBytes[K any, V any](n int) Option[K, V] {
	return func(c *Config[K, V]) { c.TargetNodeBytes = n }
}

// WithComparator overrides the key comparator.
func WithComparator[K any, V any](cmp Comparator[K]) Option[K, V] {
	return func(c *Config[K, V]) { c.Comparator = cmp }
}

// WithAllocator overrides the raw allocator backing every node.
func WithAllocator[K any, V any](a rawmem.Allocator) Option[K, V] {
	return func(c *Config[K, V]) { c.Allocator = a }
}

// WithValueEqual overrides the equality function ContainsEntry uses.
func WithValueEqual[K any, V any](eq func(a, b V) bool) Option[K, V] {
	return func(c *Config[K, V]) { c.ValueEqual = eq }
}

// WithSlabPool enables pooled allocation for the fixed-size leaf and
// internal node shapes (spec.md §4.2's "optional slab pool").
// itemsPerSlab and maxSlabBytes are forwarded to rawmem.NewSlabPool
// verbatim; initialSlabs pre-warms that many slabs at Map construction.
func WithSlabPool[K any, V any](itemsPerSlab, maxSlabBytes, initialSlabs int) Option[K, V] {
	return func(c *Config[K, V]) {
		c.UseSlabPool = true
		c.ItemsPerSlab = itemsPerSlab
		c.MaxSlabBytes = maxSlabBytes
		c.InitialSlabs = initialSlabs
	}
}

func defaultConfig[K any, V any]() Config[K, V] {
	return Config[K, V]{
		TargetNodeBytes: DefaultTargetNodeBytes,
		Allocator:       &rawmem.HeapAllocator{},
		ItemsPerSlab:    DefaultItemsPerSlab,
		InitialSlabs:    DefaultInitialSlabs,
	}
}

var errNilComparator = errors.New("btree: Config.Comparator must not be nil")

// Validate reports a configuration error before any allocation happens.
func (c *Config[K, V]) Validate() error {
	if c.Comparator == nil {
		return errNilComparator
	}
	if c.TargetNodeBytes <= 0 {
		return fmt.Errorf("btree: Config.TargetNodeBytes must be positive, got %d", c.TargetNodeBytes)
	}
	if derived := (c.TargetNodeBytes - int(headerSize)) / entrySize[K, V](); derived < 3 {
		return fmt.Errorf("btree: Config.TargetNodeBytes %d is too small to fit 3 entries (derives %d)", c.TargetNodeBytes, derived)
	}
	if c.Allocator == nil {
		return errors.New("btree: Config.Allocator must not be nil")
	}
	if c.UseSlabPool && c.ItemsPerSlab <= 0 {
		return fmt.Errorf("btree: Config.ItemsPerSlab must be positive when UseSlabPool is set, got %d", c.ItemsPerSlab)
	}
	return nil
}
