// Package irgen implements the AST → Koopa IR Lowerer (C3, spec.md §4.3):
// the front end that walks an *ast.CompUnit and emits Koopa IR text, using
// internal/symtab for scoped name resolution and internal/constfold
// wherever a constant is required. Per spec.md §9's DESIGN NOTES, the
// source's process-global counters (next vreg, next if/while label id,
// current loop id) are collapsed into the single *Lowerer context defined
// here, threaded explicitly through every lowering method instead of
// living as package state.
package irgen

import (
	"fmt"
	"strings"

	"github.com/withRiver/SysY-Compiler/internal/aggregate"
	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/constfold"
	"github.com/withRiver/SysY-Compiler/internal/symtab"
)

// intrinsics are the SysY runtime functions pre-populated into the symbol
// table (spec.md §4.1) and declared at the top of every emitted program.
var intrinsics = []string{
	"decl @getint(): i32",
	"decl @getch(): i32",
	"decl @getarray(*i32): i32",
	"decl @putint(i32)",
	"decl @putch(i32)",
	"decl @putarray(i32, *i32)",
	"decl @starttime()",
	"decl @stoptime()",
}

// Lowerer holds the state shared across an entire compilation: the symbol
// table and the monotone label-id counters (spec.md §4.3's next_if_id /
// next_while_id are compilation-wide, not per-function — nesting is
// resolved instead by current_while_id's stack).
type Lowerer struct {
	t          *symtab.Table
	nextIfID   int
	nextWhile  int
	whileStack []int
}

// Lower runs the whole front end over cu and returns the Koopa IR text C4
// will re-parse.
func Lower(cu *ast.CompUnit) (string, error) {
	l := &Lowerer{t: symtab.New()}
	var out strings.Builder
	out.WriteString(strings.Join(intrinsics, "\n"))
	out.WriteString("\n\n")

	var funcsText []string
	for _, item := range cu.Items {
		switch n := item.(type) {
		case *ast.Decl:
			text, err := l.lowerGlobalDecl(n)
			if err != nil {
				return "", err
			}
			out.WriteString(text)
		case *ast.FuncDef:
			text, err := l.lowerFuncDef(n)
			if err != nil {
				return "", err
			}
			funcsText = append(funcsText, text)
		default:
			return "", cerrors.Bug("irgen: unhandled top-level item %T", item)
		}
	}
	out.WriteString(strings.Join(funcsText, "\n"))
	return out.String(), nil
}

func (l *Lowerer) newIfID() int {
	id := l.nextIfID
	l.nextIfID++
	return id
}

func (l *Lowerer) newWhileID() int {
	id := l.nextWhile
	l.nextWhile++
	return id
}

func (l *Lowerer) pushWhile(id int) { l.whileStack = append(l.whileStack, id) }
func (l *Lowerer) popWhile()        { l.whileStack = l.whileStack[:len(l.whileStack)-1] }
func (l *Lowerer) currentWhile() (int, bool) {
	if len(l.whileStack) == 0 {
		return 0, false
	}
	return l.whileStack[len(l.whileStack)-1], true
}

// foldDims evaluates each dimension-size expression to a constant, as
// array bounds must always be (spec.md §4.2).
func foldDims(dims []ast.Expr, t *symtab.Table) ([]int, error) {
	out := make([]int, len(dims))
	for i, d := range dims {
		v, err := constfold.Eval(d, t)
		if err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}

// foldConstElems folds every explicit slot of a flattened aggregate
// initializer (nil slots are implicit zero), per spec.md §3.4.
func foldConstElems(flat []*ast.Expr, t *symtab.Table) (map[int]int32, error) {
	elems := map[int]int32{}
	for i, e := range flat {
		if e == nil {
			continue
		}
		v, err := constfold.Eval(*e, t)
		if err != nil {
			return nil, err
		}
		if v != 0 {
			elems[i] = v
		}
	}
	return elems, nil
}

// koopaArrayType renders the nested "[T, N]" text for a declared
// outermost-first dimension list, e.g. dims=[2,3] (SysY `int[2][3]`)
// renders "[[i32, 3], 2]".
func koopaArrayType(dims []int) string {
	s := "i32"
	for i := len(dims) - 1; i >= 0; i-- {
		s = fmt.Sprintf("[%s, %d]", s, dims[i])
	}
	return s
}

// koopaAggregateLiteral renders a flattened constant-element slice as a
// nested Koopa aggregate literal matching dims' shape, e.g. dims=[2,3],
// flat=[1,2,3,4,5,6] renders "{{1, 2, 3}, {4, 5, 6}}".
func koopaAggregateLiteral(flat []int32, dims []int) string {
	if len(dims) == 0 {
		if len(flat) == 0 {
			return "0"
		}
		return fmt.Sprintf("%d", flat[0])
	}
	width := aggregate.Product(dims[1:])
	n := dims[0]
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		lo, hi := i*width, (i+1)*width
		if hi > len(flat) {
			hi = len(flat)
		}
		var sub []int32
		if lo < len(flat) {
			sub = flat[lo:hi]
		}
		padded := make([]int32, width)
		copy(padded, sub)
		parts[i] = koopaAggregateLiteral(padded, dims[1:])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
