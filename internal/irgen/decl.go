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

// lowerGlobalDecl lowers one top-level Decl (spec.md §4.3.5). Global const
// scalars fold away entirely; every array (const or var) and every var
// scalar becomes a `global alloc` line, since array element accesses may
// use a non-constant index at runtime.
func (l *Lowerer) lowerGlobalDecl(d *ast.Decl) (string, error) {
	var out strings.Builder
	for _, def := range d.Defs {
		text, err := l.lowerGlobalDef(d.IsConst, def)
		if err != nil {
			return "", err
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

func (l *Lowerer) lowerGlobalDef(isConst bool, def ast.Def) (string, error) {
	if len(def.Dims) == 0 {
		return l.lowerGlobalScalar(isConst, def)
	}
	return l.lowerGlobalArray(isConst, def)
}

func (l *Lowerer) lowerGlobalScalar(isConst bool, def ast.Def) (string, error) {
	kind := symtab.VarScalar
	if isConst {
		kind = symtab.ConstScalar
	}
	sym, err := l.t.Insert(def.Name, kind)
	if err != nil {
		return "", err
	}
	var value int32
	if def.Init != nil {
		ei, ok := def.Init.(*ast.ExprInit)
		if !ok {
			return "", cerrors.Bug("irgen: scalar initializer is not an ExprInit for %q", def.Name)
		}
		v, err := constfold.Eval(ei.Value, l.t)
		if err != nil {
			return "", err
		}
		value = v
	}
	if isConst {
		sym.ConstVal = value
		return "", nil
	}
	init := "zeroinit"
	if def.Init != nil {
		init = fmt.Sprintf("%d", value)
	}
	return fmt.Sprintf("global @%s = alloc i32, %s\n", sym.IRName, init), nil
}

func (l *Lowerer) lowerGlobalArray(isConst bool, def ast.Def) (string, error) {
	kind := symtab.VarArray
	if isConst {
		kind = symtab.ConstArray
	}
	dims, err := foldDims(def.Dims, l.t)
	if err != nil {
		return "", err
	}
	sym, err := l.t.Insert(def.Name, kind)
	if err != nil {
		return "", err
	}
	sym.Dims = dims

	total := aggregate.Product(dims)
	flat := make([]int32, total)
	var elems map[int]int32
	if def.Init != nil {
		slots := aggregate.Flatten(def.Init, dims)
		var err error
		elems, err = foldConstElems(slots, l.t)
		if err != nil {
			return "", err
		}
		for i, v := range elems {
			flat[i] = v
		}
	}
	if isConst {
		if elems == nil {
			elems = map[int]int32{}
		}
		sym.ConstElems = elems
	}

	tyText := koopaArrayType(dims)
	init := "zeroinit"
	if def.Init != nil {
		init = koopaAggregateLiteral(flat, dims)
	}
	return fmt.Sprintf("global @%s = alloc %s, %s\n", sym.IRName, tyText, init), nil
}
