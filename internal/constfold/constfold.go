// Package constfold implements the Constant Evaluator (spec.md §4.2, C2): a
// pure recursive tree-walk over an expression, producing an i32, with
// language-matching two's-complement / truncating-division / C-style
// short-circuit semantics.
package constfold

import (
	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/symtab"
)

// Eval folds expr to an int32, or returns a *cerrors.Error if some
// sub-expression cannot be resolved at compile time: Kind NotConstant for a
// non-const name, a call, a partial const-array index or a division by
// zero; UndeclaredIdent for an undeclared name; IndexMismatch for an index
// on a const scalar or an out-of-bounds const-array index.
func Eval(expr ast.Expr, t *symtab.Table) (int32, error) {
	switch e := expr.(type) {
	case *ast.IntLit:
		return e.Value, nil

	case *ast.Unary:
		v, err := Eval(e.Operand, t)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case "+":
			return v, nil
		case "-":
			return -v, nil
		case "!":
			return boolToInt(v == 0), nil
		}
		return 0, cerrors.Bug("constfold: unknown unary operator %q", e.Op)

	case *ast.Binary:
		l, err := Eval(e.Left, t)
		if err != nil {
			return 0, err
		}
		r, err := Eval(e.Right, t)
		if err != nil {
			return 0, err
		}
		return evalBinary(e.Op, l, r)

	case *ast.Logical:
		l, err := Eval(e.Left, t)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case "&&":
			if l == 0 {
				return 0, nil
			}
			r, err := Eval(e.Right, t)
			if err != nil {
				return 0, err
			}
			return boolToInt(r != 0), nil
		case "||":
			if l != 0 {
				return 1, nil
			}
			r, err := Eval(e.Right, t)
			if err != nil {
				return 0, err
			}
			return boolToInt(r != 0), nil
		}
		return 0, cerrors.Bug("constfold: unknown logical operator %q", e.Op)

	case *ast.LVal:
		return evalLVal(e, t)

	case *ast.Call:
		return 0, cerrors.New(cerrors.NotConstant, "call to '"+e.Callee+"' is not a constant expression", cerrors.SourceLocation{})
	}
	return 0, cerrors.Bug("constfold: unhandled expression type %T", expr)
}

func evalBinary(op string, l, r int32) (int32, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, cerrors.New(cerrors.NotConstant, "division by zero in constant expression", cerrors.SourceLocation{})
		}
		return l / r, nil // Go's / truncates toward zero, matching C
	case "%":
		if r == 0 {
			return 0, cerrors.New(cerrors.NotConstant, "modulo by zero in constant expression", cerrors.SourceLocation{})
		}
		return l % r, nil
	case "==":
		return boolToInt(l == r), nil
	case "!=":
		return boolToInt(l != r), nil
	case "<":
		return boolToInt(l < r), nil
	case ">":
		return boolToInt(l > r), nil
	case "<=":
		return boolToInt(l <= r), nil
	case ">=":
		return boolToInt(l >= r), nil
	}
	return 0, cerrors.Bug("constfold: unknown binary operator %q", op)
}

// evalLVal resolves a (possibly indexed) name to a constant. Only
// const-scalar and fully-indexed const-array references fold.
func evalLVal(lv *ast.LVal, t *symtab.Table) (int32, error) {
	sym, ok := t.Lookup(lv.Name)
	if !ok {
		return 0, cerrors.New(cerrors.UndeclaredIdent, "undeclared identifier '"+lv.Name+"'", cerrors.SourceLocation{})
	}
	switch sym.Kind {
	case symtab.ConstScalar:
		if len(lv.Indices) != 0 {
			return 0, cerrors.New(cerrors.IndexMismatch, "'"+lv.Name+"' is not an array", cerrors.SourceLocation{})
		}
		return sym.ConstVal, nil
	case symtab.ConstArray:
		if len(lv.Indices) != len(sym.Dims) {
			return 0, cerrors.New(cerrors.NotConstant, "partial index of const array '"+lv.Name+"' is not a constant expression", cerrors.SourceLocation{})
		}
		flat := 0
		for i, idxExpr := range lv.Indices {
			idx, err := Eval(idxExpr, t)
			if err != nil {
				return 0, err
			}
			if idx < 0 || int(idx) >= sym.Dims[i] {
				return 0, cerrors.New(cerrors.IndexMismatch, "index out of bounds for const array '"+lv.Name+"'", cerrors.SourceLocation{})
			}
			stride := 1
			for _, d := range sym.Dims[i+1:] {
				stride *= d
			}
			flat += int(idx) * stride
		}
		return sym.ConstElems[flat], nil
	default:
		return 0, cerrors.New(cerrors.NotConstant, "'"+lv.Name+"' is not a constant", cerrors.SourceLocation{})
	}
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
