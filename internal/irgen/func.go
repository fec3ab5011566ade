package irgen

import (
	"fmt"
	"strings"

	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/symtab"
)

// funcCtx is the per-function lowering state: the vreg counter (reset at
// function entry, spec.md §5) and the in-progress body text. Blocks are
// never built as a separate graph — control flow is emitted directly in
// source order, the same sequential way spec.md §4.3.3/§4.3.4 describe it,
// relying on `terminated` to suppress dead code after a block's one
// allowed terminator.
type funcCtx struct {
	g          *Lowerer
	sb         *strings.Builder
	nextVreg   int
	terminated bool
	retVoid    bool
}

func (fc *funcCtx) newVreg() string {
	n := fc.nextVreg
	fc.nextVreg++
	return fmt.Sprintf("%%%d", n)
}

func (fc *funcCtx) emitf(format string, args ...interface{}) {
	if fc.terminated {
		return
	}
	fmt.Fprintf(fc.sb, "  "+format+"\n", args...)
}

func (fc *funcCtx) emitLabel(name string) {
	fmt.Fprintf(fc.sb, "%s:\n", name)
	fc.terminated = false
}

func (fc *funcCtx) emitTerm(format string, args ...interface{}) {
	if fc.terminated {
		return
	}
	fmt.Fprintf(fc.sb, "  "+format+"\n", args...)
	fc.terminated = true
}

// lowerFuncDef lowers one function definition (spec.md §4.3, §4.3.5's
// parameter-shadowing rule).
func (l *Lowerer) lowerFuncDef(fn *ast.FuncDef) (string, error) {
	kind := symtab.IntFunction
	if fn.Ret == ast.RetVoid {
		kind = symtab.VoidFunction
	}
	if _, err := l.t.Insert(fn.Name, kind); err != nil {
		return "", err
	}

	l.t.EnterScope()
	defer l.t.ExitScope()

	fc := &funcCtx{g: l, sb: &strings.Builder{}, retVoid: fn.Ret == ast.RetVoid}

	paramTypes := make([]string, len(fn.Params))
	paramSyms := make([]*symtab.Symbol, len(fn.Params))
	for i, p := range fn.Params {
		var dims []int
		var err error
		if p.Kind == ast.ParamArray {
			dims, err = foldDims(p.Dims, l.t)
			if err != nil {
				return "", err
			}
		}
		sk := symtab.VarScalar
		if p.Kind == ast.ParamArray {
			sk = symtab.Pointer
		}
		sym, err := l.t.Insert(p.Name, sk)
		if err != nil {
			return "", err
		}
		sym.Dims = dims
		paramSyms[i] = sym
		if p.Kind == ast.ParamScalar {
			paramTypes[i] = "i32"
		} else {
			paramTypes[i] = "*" + koopaArrayType(dims)
		}
	}

	entryLabel := fmt.Sprintf("%%LHR_entry_%s", fn.Name)
	fc.sb.WriteString(entryLabel + ":\n")
	for i, p := range fn.Params {
		pv := fmt.Sprintf("%%p%d", i)
		var ty string
		if p.Kind == ast.ParamScalar {
			ty = "i32"
		} else {
			ty = "*" + koopaArrayType(paramSyms[i].Dims)
		}
		fc.emitf("@%s = alloc %s", paramSyms[i].IRName, ty)
		fc.emitf("store %s, @%s", pv, paramSyms[i].IRName)
	}

	if err := fc.lowerBlock(fn.Body); err != nil {
		return "", err
	}
	if !fc.terminated {
		if fc.retVoid {
			fc.emitTerm("ret")
		} else {
			fc.emitTerm("ret 0")
		}
	}

	retTy := ": i32"
	if fn.Ret == ast.RetVoid {
		retTy = ""
	}
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("%%p%d: %s", i, paramTypes[i])
	}
	var out strings.Builder
	fmt.Fprintf(&out, "fun @%s(%s)%s {\n", fn.Name, strings.Join(params, ", "), retTy)
	out.WriteString(fc.sb.String())
	out.WriteString("}\n")
	return out.String(), nil
}

// lowerBlock lowers a scoped sequence of declarations and statements.
func (fc *funcCtx) lowerBlock(b *ast.Block) error {
	fc.g.t.EnterScope()
	defer fc.g.t.ExitScope()
	for _, item := range b.Items {
		if fc.terminated {
			break
		}
		if err := fc.lowerBlockItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (fc *funcCtx) lowerBlockItem(item ast.BlockItem) error {
	switch n := item.(type) {
	case *ast.Decl:
		return fc.lowerLocalDecl(n)
	case ast.Stmt:
		return fc.lowerStmt(n)
	default:
		return cerrors.Bug("irgen: unhandled block item %T", item)
	}
}
