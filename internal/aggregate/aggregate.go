// Package aggregate recovers the flat element list of a brace initializer
// for an N-dimensional array, per spec.md §3.4. The algorithm is shared by
// global (all-constant) and local (mixed constant/register) array
// declarations in internal/irgen.
package aggregate

import "github.com/withRiver/SysY-Compiler/internal/ast"

// Flatten returns exactly Product(dims) entries: a non-nil *ast.Expr for
// an explicitly-initialized slot, nil for a slot implicitly zero-filled.
// A bare ExprInit (no braces at all) is treated as a one-element sibling
// list, matching how a scalar definition is expressed.
func Flatten(init ast.InitVal, dims []int) []*ast.Expr {
	list, ok := init.(*ast.ListInit)
	if !ok {
		// A single scalar initializer for (degenerate) dims == nil, or a
		// caller passing an ExprInit directly.
		if _, ok := init.(*ast.ExprInit); ok {
			return flattenList([]ast.InitVal{init}, dims)
		}
		return nil
	}
	return flattenList(list.Items, dims)
}

func flattenList(items []ast.InitVal, dims []int) []*ast.Expr {
	total := product(dims)
	flat := make([]*ast.Expr, 0, total)
	for _, item := range items {
		switch v := item.(type) {
		case *ast.ExprInit:
			e := v.Value
			flat = append(flat, &e)
		case *ast.ListInit:
			// Scan forward from the widest candidate sub-array (k=1)
			// toward the narrowest (k=len(dims)-1), taking the first one
			// the already-consumed count aligns to; fall back to the full
			// array (k=0) if none of them fit.
			k := 1
			for k < len(dims) {
				w := product(dims[k:])
				if w != 0 && len(flat)%w == 0 {
					break
				}
				k++
			}
			if k == len(dims) {
				k = 0
			}
			sub := flattenList(v.Items, dims[k:])
			flat = append(flat, sub...)
		}
		if len(flat) >= total {
			break
		}
	}
	for len(flat) < total {
		flat = append(flat, nil)
	}
	return flat
}

// Product returns the product of dims (1 for an empty slice).
func Product(dims []int) int { return product(dims) }

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}
