package btree_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/packedkv/btree/pkg/btree"
)

func TestOrderedComparator(t *testing.T) {
	Convey("OrderedComparator compares ints by natural order", t, func() {
		var cmp btree.OrderedComparator[int]

		So(cmp.Eq(3, 3), ShouldBeTrue)
		So(cmp.Eq(3, 4), ShouldBeFalse)
		So(cmp.Lt(3, 4), ShouldBeTrue)
		So(cmp.Lt(4, 3), ShouldBeFalse)
		So(cmp.Gt(4, 3), ShouldBeTrue)
		So(cmp.Gt(3, 4), ShouldBeFalse)
	})
}

func TestFuncComparator(t *testing.T) {
	Convey("FuncComparator derives Eq/Lt/Gt from a sign-based three-way compare", t, func() {
		// Deliberately returns values outside {-1,0,1} to prove the
		// comparator only relies on sign, not magnitude — the bug
		// spec.md §9 documents against a ==1/==-1 check.
		cmp := btree.FuncComparator[int]{Compare: func(a, b int) int { return (a - b) * 100 }}

		So(cmp.Eq(5, 5), ShouldBeTrue)
		So(cmp.Lt(5, 9), ShouldBeTrue)
		So(cmp.Gt(9, 5), ShouldBeTrue)
		So(cmp.Lt(9, 5), ShouldBeFalse)
		So(cmp.Gt(5, 9), ShouldBeFalse)
	})

	Convey("FuncComparator works with a string comparator", t, func() {
		cmp := btree.FuncComparator[string]{Compare: func(a, b string) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}}

		So(cmp.Lt("a", "b"), ShouldBeTrue)
		So(cmp.Gt("b", "a"), ShouldBeTrue)
		So(cmp.Eq("a", "a"), ShouldBeTrue)
	})
}
