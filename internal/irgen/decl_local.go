package irgen

import (
	"github.com/withRiver/SysY-Compiler/internal/aggregate"
	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/constfold"
	"github.com/withRiver/SysY-Compiler/internal/symtab"
)

// lowerLocalDecl lowers one block-scoped Decl (spec.md §4.3.5).
func (fc *funcCtx) lowerLocalDecl(d *ast.Decl) error {
	for _, def := range d.Defs {
		if err := fc.lowerLocalDef(d.IsConst, def); err != nil {
			return err
		}
	}
	return nil
}

func (fc *funcCtx) lowerLocalDef(isConst bool, def ast.Def) error {
	if len(def.Dims) == 0 {
		return fc.lowerLocalScalar(isConst, def)
	}
	return fc.lowerLocalArray(isConst, def)
}

func (fc *funcCtx) lowerLocalScalar(isConst bool, def ast.Def) error {
	kind := symtab.VarScalar
	if isConst {
		kind = symtab.ConstScalar
	}
	sym, err := fc.g.t.Insert(def.Name, kind)
	if err != nil {
		return err
	}
	if isConst {
		ei, ok := def.Init.(*ast.ExprInit)
		if !ok {
			return cerrors.Bug("irgen: const scalar %q has no initializer", def.Name)
		}
		v, err := constfold.Eval(ei.Value, fc.g.t)
		if err != nil {
			return err
		}
		sym.ConstVal = v
		return nil
	}
	fc.emitf("@%s = alloc i32", sym.IRName)
	if def.Init != nil {
		ei, ok := def.Init.(*ast.ExprInit)
		if !ok {
			return cerrors.Bug("irgen: scalar initializer is not an ExprInit for %q", def.Name)
		}
		v, err := fc.lowerExpr(ei.Value)
		if err != nil {
			return err
		}
		fc.emitf("store %s, @%s", v.Operand(), sym.IRName)
	}
	return nil
}

func (fc *funcCtx) lowerLocalArray(isConst bool, def ast.Def) error {
	kind := symtab.VarArray
	if isConst {
		kind = symtab.ConstArray
	}
	dims, err := foldDims(def.Dims, fc.g.t)
	if err != nil {
		return err
	}
	sym, err := fc.g.t.Insert(def.Name, kind)
	if err != nil {
		return err
	}
	sym.Dims = dims

	fc.emitf("@%s = alloc %s", sym.IRName, koopaArrayType(dims))

	total := aggregate.Product(dims)
	if isConst {
		sym.ConstElems = map[int]int32{}
	}
	if def.Init == nil {
		return nil
	}

	slots := aggregate.Flatten(def.Init, dims)
	values := make([]Value, total)
	if isConst {
		elems, err := foldConstElems(slots, fc.g.t)
		if err != nil {
			return err
		}
		sym.ConstElems = elems
		for i := range values {
			values[i] = Literal(elems[i])
		}
	} else {
		for i, e := range slots {
			if e == nil {
				values[i] = Literal(0)
				continue
			}
			v, err := fc.lowerExpr(*e)
			if err != nil {
				return err
			}
			values[i] = v
		}
	}

	for flat, v := range values {
		addr := fc.elementAddress(sym.IRName, dims, flat)
		fc.emitf("store %s, %s", v.Operand(), addr)
	}
	return nil
}

// elementAddress emits the getelemptr chain stepping from the array base
// to the element at flattened index `flat`, returning the final address.
func (fc *funcCtx) elementAddress(baseIRName string, dims []int, flat int) string {
	cur := "@" + baseIRName
	remaining := flat
	for i := range dims {
		stride := 1
		for _, inner := range dims[i+1:] {
			stride *= inner
		}
		idx := 0
		if stride != 0 {
			idx = remaining / stride
			remaining = remaining % stride
		}
		next := fc.newVreg()
		fc.emitf("%s = getelemptr %s, %d", next, cur, idx)
		cur = next
	}
	return cur
}
