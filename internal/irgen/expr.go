package irgen

import (
	"fmt"
	"strings"

	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/symtab"
)

var binaryOpName = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
	"==": "eq", "!=": "ne", "<": "lt", ">": "gt", "<=": "le", ">=": "ge",
}

// lowerExpr lowers any expression node to a value handle (spec.md §4.3.1).
func (fc *funcCtx) lowerExpr(e ast.Expr) (Value, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return Literal(n.Value), nil
	case *ast.LVal:
		return fc.lowerLValAsValue(n)
	case *ast.Unary:
		return fc.lowerUnary(n)
	case *ast.Binary:
		return fc.lowerBinary(n)
	case *ast.Logical:
		return fc.lowerLogical(n)
	case *ast.Call:
		return fc.lowerCall(n)
	default:
		return Value{}, cerrors.Bug("irgen: unhandled expression type %T", e)
	}
}

func (fc *funcCtx) lowerUnary(n *ast.Unary) (Value, error) {
	v, err := fc.lowerExpr(n.Operand)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case "+":
		return v, nil
	case "-":
		reg := fc.newVreg()
		fc.emitf("%s = sub 0, %s", reg, v.Operand())
		return Reg(reg), nil
	case "!":
		reg := fc.newVreg()
		fc.emitf("%s = eq 0, %s", reg, v.Operand())
		return Reg(reg), nil
	default:
		return Value{}, cerrors.Bug("irgen: unknown unary operator %q", n.Op)
	}
}

func (fc *funcCtx) lowerBinary(n *ast.Binary) (Value, error) {
	l, err := fc.lowerExpr(n.Left)
	if err != nil {
		return Value{}, err
	}
	r, err := fc.lowerExpr(n.Right)
	if err != nil {
		return Value{}, err
	}
	op, ok := binaryOpName[n.Op]
	if !ok {
		return Value{}, cerrors.Bug("irgen: unknown binary operator %q", n.Op)
	}
	reg := fc.newVreg()
	fc.emitf("%s = %s %s, %s", reg, op, l.Operand(), r.Operand())
	return Reg(reg), nil
}

// lowerLogical lowers && / || via a materialized result cell (spec.md
// §4.3.3), not phi nodes: both operators share this shape, differing only
// in the cell's initial value and the branch-guard comparison.
func (fc *funcCtx) lowerLogical(n *ast.Logical) (Value, error) {
	k := fc.g.newIfID()
	cell := fc.newVreg()
	fc.emitf("%s = alloc i32", cell)

	// thenLabel evaluates the right operand; endLabel short-circuits,
	// keeping the cell's initial value. && only evaluates B when A is
	// truthy; || only evaluates B when A is falsy.
	var initVal int
	var guardOp string
	if n.Op == "&&" {
		initVal, guardOp = 0, "ne"
	} else {
		initVal, guardOp = 1, "eq"
	}
	fc.emitf("store %d, %s", initVal, cell)

	l, err := fc.lowerExpr(n.Left)
	if err != nil {
		return Value{}, err
	}
	guard := fc.newVreg()
	fc.emitf("%s = %s 0, %s", guard, guardOp, l.Operand())

	thenLabel := fmt.Sprintf("%%then_%d", k)
	endLabel := fmt.Sprintf("%%end_%d", k)
	fc.emitTerm("br %s, %s, %s", guard, thenLabel, endLabel)

	fc.emitLabel(thenLabel)
	r, err := fc.lowerExpr(n.Right)
	if err != nil {
		return Value{}, err
	}
	rBool := fc.newVreg()
	fc.emitf("%s = ne %s, 0", rBool, r.Operand())
	fc.emitf("store %s, %s", rBool, cell)
	fc.emitTerm("jump %s", endLabel)

	fc.emitLabel(endLabel)
	result := fc.newVreg()
	fc.emitf("%s = load %s", result, cell)
	return Reg(result), nil
}

func (fc *funcCtx) lowerCall(n *ast.Call) (Value, error) {
	sym, ok := fc.g.t.Lookup(n.Callee)
	if !ok {
		return Value{}, cerrors.New(cerrors.UndeclaredIdent, "call to undeclared function '"+n.Callee+"'", cerrors.SourceLocation{})
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		v, err := fc.lowerExpr(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v.Operand()
	}
	call := fmt.Sprintf("call @%s(%s)", n.Callee, strings.Join(args, ", "))
	if sym.Kind == symtab.VoidFunction {
		fc.emitf("%s", call)
		return Value{}, nil
	}
	reg := fc.newVreg()
	fc.emitf("%s = %s", reg, call)
	return Reg(reg), nil
}
