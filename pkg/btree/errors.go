package btree

import (
	"errors"
	"fmt"

	"github.com/packedkv/btree/internal/debug"
)

// Sentinel errors returned by the public Map surface. All are safe to
// compare with errors.Is; Add and Get wrap them with the offending key via
// fmt.Errorf("%w: ...") so callers get context without losing the
// sentinel, while Range returns ErrInvalidRange unwrapped.
var (
	// ErrDuplicateKey is returned by Add when the key already exists.
	ErrDuplicateKey = errors.New("btree: key already exists")

	// ErrKeyNotFound is returned by Get when the key is absent (TryGet
	// reports absence with a bool instead).
	ErrKeyNotFound = errors.New("btree: key not found")

	// ErrInvalidRange is returned by Range when end orders before start.
	ErrInvalidRange = errors.New("btree: range end precedes start")

	// ErrInvalidCursor is returned by Cursor.SetValue invoked on a
	// cursor that does not currently address a live entry.
	ErrInvalidCursor = errors.New("btree: cursor is not valid")
)

// allocFatal reports an allocation failure. spec.md §7 classifies
// AllocationFailure as unrecoverable: every mutation that needs a fresh
// node assumes success or the tree is left in an inconsistent half-split
// state, so there is no sensible return-an-error path once a mutation has
// started moving entries around. Panicking here, rather than threading an
// error return through every node mutation, keeps that inconsistency from
// ever becoming observable.
func allocFatal(err error) {
	panic(fmt.Errorf("btree: allocation failed: %w\n%s", err, debug.Stack(2)))
}
