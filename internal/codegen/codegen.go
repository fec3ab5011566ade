// Package codegen implements the Raw-IR Walker (C4, spec.md §4.4) and the
// IR → RV32 Lowerer (C6, spec.md §4.6): it walks the parsed Koopa IR
// object graph (internal/koopa) function by function, block by block,
// instruction by instruction, and emits RV32 assembly text using
// internal/frame for per-function stack layout.
package codegen

import (
	"fmt"
	"strings"

	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/koopa"
)

// Emit lowers a whole raw-IR program to RV32 assembly text.
func Emit(prog *koopa.Program) (string, error) {
	var out strings.Builder
	if len(prog.Globals) > 0 {
		out.WriteString(".data\n")
		for _, g := range prog.Globals {
			emitGlobal(&out, g)
		}
		out.WriteString("\n")
	}
	out.WriteString(".text\n")
	for _, fn := range prog.Funcs {
		if fn.IsDecl() {
			continue
		}
		text, err := emitFunc(fn)
		if err != nil {
			return "", err
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

func emitGlobal(out *strings.Builder, g *koopa.Global) {
	name := asmName(g.Name)
	fmt.Fprintf(out, ".globl %s\n%s:\n", name, name)
	emitGlobalInit(out, g.Init)
}

func emitGlobalInit(out *strings.Builder, v *koopa.Value) {
	switch v.Kind.Tag {
	case koopa.KZeroInit:
		fmt.Fprintf(out, "  .zero %d\n", v.Ty.Size())
	case koopa.KInteger:
		fmt.Fprintf(out, "  .word %d\n", v.Kind.IntVal)
	case koopa.KAggregate:
		for _, e := range v.Kind.Elems {
			emitGlobalInit(out, e)
		}
	}
}

// asmName strips Koopa's '@'/'%' sigil for use as a GAS symbol/label.
func asmName(name string) string {
	return strings.TrimLeft(name, "@%")
}

func unreachable(format string, args ...interface{}) error {
	return cerrors.Bug("codegen: "+format, args...)
}
