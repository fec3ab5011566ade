package irgen

import (
	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/symtab"
)

// lowerLValAsValue resolves lv in an rvalue context (spec.md §4.3.2): a
// fully-indexed scalar or array element loads; a partially-indexed array
// or pointer decays to a bare element pointer with no load, for use as a
// pointer-parameter argument.
func (fc *funcCtx) lowerLValAsValue(lv *ast.LVal) (Value, error) {
	sym, ok := fc.g.t.Lookup(lv.Name)
	if !ok {
		return Value{}, cerrors.New(cerrors.UndeclaredIdent, "undeclared identifier '"+lv.Name+"'", cerrors.SourceLocation{})
	}
	if sym.Kind == symtab.ConstScalar {
		if len(lv.Indices) != 0 {
			return Value{}, cerrors.New(cerrors.IndexMismatch, "'"+lv.Name+"' is not an array", cerrors.SourceLocation{})
		}
		return Literal(sym.ConstVal), nil
	}
	addr, needsLoad, err := fc.addressChain(sym, lv)
	if err != nil {
		return Value{}, err
	}
	if !needsLoad {
		return Reg(addr), nil
	}
	reg := fc.newVreg()
	fc.emitf("%s = load %s", reg, addr)
	return Reg(reg), nil
}

// lowerLValAssignTarget resolves lv as an assignment destination: always a
// fully-indexed scalar or array element, never a pointer decay.
func (fc *funcCtx) lowerLValAssignTarget(lv *ast.LVal) (string, error) {
	sym, ok := fc.g.t.Lookup(lv.Name)
	if !ok {
		return "", cerrors.New(cerrors.UndeclaredIdent, "undeclared identifier '"+lv.Name+"'", cerrors.SourceLocation{})
	}
	if sym.Kind == symtab.ConstScalar || sym.Kind == symtab.ConstArray {
		return "", cerrors.New(cerrors.NotConstant, "cannot assign to const '"+lv.Name+"'", cerrors.SourceLocation{})
	}
	addr, needsLoad, err := fc.addressChain(sym, lv)
	if err != nil {
		return "", err
	}
	if !needsLoad {
		return "", cerrors.Bug("irgen: assignment target %q resolved to a non-scalar address", lv.Name)
	}
	return addr, nil
}

// addressChain walks the getelemptr/getptr chain for sym and lv's index
// expressions, returning the final address and whether it still needs a
// load to produce a scalar rvalue (true) or is already the decayed
// pointer value itself (false).
func (fc *funcCtx) addressChain(sym *symtab.Symbol, lv *ast.LVal) (addr string, needsLoad bool, err error) {
	switch sym.Kind {
	case symtab.VarScalar:
		if len(lv.Indices) != 0 {
			return "", false, cerrors.New(cerrors.IndexMismatch, "'"+lv.Name+"' is not an array", cerrors.SourceLocation{})
		}
		return "@" + sym.IRName, true, nil

	case symtab.ConstArray, symtab.VarArray:
		if len(lv.Indices) > len(sym.Dims) {
			return "", false, cerrors.New(cerrors.IndexMismatch, "too many indices for array '"+lv.Name+"'", cerrors.SourceLocation{})
		}
		cur := "@" + sym.IRName
		for _, idxExpr := range lv.Indices {
			idxVal, err := fc.lowerExpr(idxExpr)
			if err != nil {
				return "", false, err
			}
			next := fc.newVreg()
			fc.emitf("%s = getelemptr %s, %s", next, cur, idxVal.Operand())
			cur = next
		}
		full := len(lv.Indices) == len(sym.Dims)
		if !full {
			next := fc.newVreg()
			fc.emitf("%s = getelemptr %s, 0", next, cur)
			cur = next
		}
		return cur, full, nil

	case symtab.Pointer:
		declaredRank := len(sym.Dims) + 1
		if len(lv.Indices) > declaredRank {
			return "", false, cerrors.New(cerrors.IndexMismatch, "too many indices for pointer '"+lv.Name+"'", cerrors.SourceLocation{})
		}
		ptrReg := fc.newVreg()
		fc.emitf("%s = load @%s", ptrReg, sym.IRName)
		if len(lv.Indices) == 0 {
			return ptrReg, false, nil
		}
		firstIdx, err := fc.lowerExpr(lv.Indices[0])
		if err != nil {
			return "", false, err
		}
		cur := fc.newVreg()
		fc.emitf("%s = getptr %s, %s", cur, ptrReg, firstIdx.Operand())
		for _, idxExpr := range lv.Indices[1:] {
			idxVal, err := fc.lowerExpr(idxExpr)
			if err != nil {
				return "", false, err
			}
			next := fc.newVreg()
			fc.emitf("%s = getelemptr %s, %s", next, cur, idxVal.Operand())
			cur = next
		}
		full := len(lv.Indices) == declaredRank
		if !full {
			next := fc.newVreg()
			fc.emitf("%s = getelemptr %s, 0", next, cur)
			cur = next
		}
		return cur, full, nil

	default:
		return "", false, cerrors.Bug("irgen: unexpected symbol kind %v for %q", sym.Kind, lv.Name)
	}
}
