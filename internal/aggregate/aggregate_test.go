package aggregate

import (
	"testing"

	"github.com/withRiver/SysY-Compiler/internal/ast"
)

func scalar(v int32) ast.InitVal { return &ast.ExprInit{Value: &ast.IntLit{Value: v}} }

func list(items ...ast.InitVal) ast.InitVal { return &ast.ListInit{Items: items} }

func values(t *testing.T, flat []*ast.Expr) []int32 {
	t.Helper()
	out := make([]int32, len(flat))
	for i, e := range flat {
		if e == nil {
			out[i] = 0
			continue
		}
		il, ok := (*e).(*ast.IntLit)
		if !ok {
			t.Fatalf("slot %d is not an IntLit: %#v", i, *e)
		}
		out[i] = il.Value
	}
	return out
}

func TestFlattenFullyElided1D(t *testing.T) {
	// int a[4] = {1, 2, 3}; -> trailing zero-fill (spec.md end-to-end #3).
	flat := Flatten(list(scalar(1), scalar(2), scalar(3)), []int{4})
	got := values(t, flat)
	want := []int32{1, 2, 3, 0}
	assertEqual(t, got, want)
}

func TestFlatten2DFullyNested(t *testing.T) {
	// int a[2][3] = {{1,2,3},{4,5,6}}; (spec.md end-to-end #6).
	init := list(
		list(scalar(1), scalar(2), scalar(3)),
		list(scalar(4), scalar(5), scalar(6)),
	)
	flat := Flatten(init, []int{2, 3})
	got := values(t, flat)
	want := []int32{1, 2, 3, 4, 5, 6}
	assertEqual(t, got, want)
}

func TestFlattenNestedListAlignsToRowAfterFullRowConsumed(t *testing.T) {
	// int a[1][2][3] = {1, 2, 3, {4, 5, 6}}; -- after the 3 leading scalars
	// fill the first row exactly, the nested list aligns to the row-width
	// (3) sub-array since 3 divides the 3 already-consumed siblings.
	init := list(scalar(1), scalar(2), scalar(3), list(scalar(4), scalar(5), scalar(6)))
	flat := Flatten(init, []int{1, 2, 3})
	got := values(t, flat)
	want := []int32{1, 2, 3, 4, 5, 6}
	assertEqual(t, got, want)
}

func TestFlattenNestedListAtExactBoundary(t *testing.T) {
	// int a[2][3] = {{1,2},{3}}; -- each brace list aligns to a row since it
	// starts exactly at a row boundary (0 consumed, then 3 consumed).
	init := list(list(scalar(1), scalar(2)), list(scalar(3)))
	flat := Flatten(init, []int{2, 3})
	got := values(t, flat)
	want := []int32{1, 2, 0, 3, 0, 0}
	assertEqual(t, got, want)
}

func TestFlattenThreeDimNestedListAlignsToOutermostFeasibleSubarray(t *testing.T) {
	// int a[2][3][4] = {{1,...,12},{13,...,24}}; -- each outer {} is a
	// full [3][4] = 12-element sub-array, NOT the innermost [4] row: with
	// 0 (then 12) elements already consumed, both widths 12 and 4 divide
	// evenly, and the widest feasible one must win so every value survives.
	vals := func(lo, hi int32) []ast.InitVal {
		items := make([]ast.InitVal, 0, hi-lo+1)
		for v := lo; v <= hi; v++ {
			items = append(items, scalar(v))
		}
		return items
	}
	init := list(list(vals(1, 12)...), list(vals(13, 24)...))
	flat := Flatten(init, []int{2, 3, 4})
	got := values(t, flat)
	want := make([]int32, 24)
	for i := range want {
		want[i] = int32(i + 1)
	}
	assertEqual(t, got, want)
}

func TestFlattenEmptyInitializerIsAllZero(t *testing.T) {
	flat := Flatten(list(), []int{2, 2})
	got := values(t, flat)
	want := []int32{0, 0, 0, 0}
	assertEqual(t, got, want)
}

func TestProduct(t *testing.T) {
	if got := Product([]int{2, 3, 4}); got != 24 {
		t.Errorf("got %d, want 24", got)
	}
	if got := Product(nil); got != 1 {
		t.Errorf("got %d, want 1 for empty dims", got)
	}
}

func assertEqual(t *testing.T, got, want []int32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("slot %d: got %d, want %d (full: got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}
