package codegen

import (
	"fmt"
	"strings"

	"github.com/withRiver/SysY-Compiler/internal/frame"
	"github.com/withRiver/SysY-Compiler/internal/koopa"
)

// emitFunc lowers one function definition (spec.md §4.4 walk driving
// §4.6's per-instruction translation).
func emitFunc(fn *koopa.Function) (string, error) {
	f := frame.Plan(fn)
	g := &funcGen{fn: fn, f: f}

	g.prologue()
	for i, bb := range fn.BBs {
		if i > 0 {
			g.emit("%s:", asmName(bb.Name))
		}
		for _, inst := range bb.Insts {
			if err := g.translate(inst); err != nil {
				return "", err
			}
		}
	}

	var out strings.Builder
	name := asmName(fn.Name)
	fmt.Fprintf(&out, ".globl %s\n%s:\n", name, name)
	for _, line := range g.lines {
		out.WriteString(line)
		out.WriteString("\n")
	}
	return out.String(), nil
}

func (g *funcGen) prologue() {
	if g.f.Size == 0 {
		return
	}
	if g.f.Size <= immLimit {
		g.emit("  addi sp, sp, %d", -g.f.Size)
	} else {
		g.emit("  li t2, %d", -g.f.Size)
		g.emit("  add sp, sp, t2")
	}
	if g.f.HasCall {
		g.storeOffset("ra", g.f.RAOffset)
	}
}

func (g *funcGen) epilogue() {
	if g.f.HasCall {
		g.loadOffset("ra", g.f.RAOffset)
	}
	if g.f.Size != 0 {
		if g.f.Size <= immLimit {
			g.emit("  addi sp, sp, %d", g.f.Size)
		} else {
			g.emit("  li t2, %d", g.f.Size)
			g.emit("  add sp, sp, t2")
		}
	}
	g.emit("  ret")
}

func (g *funcGen) translate(v *koopa.Value) error {
	switch v.Kind.Tag {
	case koopa.KAlloc:
		return nil // frame.Plan already reserved this slot

	case koopa.KLoad:
		g.readValue(v.Kind.Src, "t0")
		g.emit("  lw t0, 0(t0)")
		g.writeResult(v, "t0")
		return nil

	case koopa.KStore:
		g.readValue(v.Kind.StoreValue, "t0")
		g.readValue(v.Kind.StoreDest, "t3")
		g.emit("  sw t0, 0(t3)")
		return nil

	case koopa.KGetElemPtr, koopa.KGetPtr:
		g.readValue(v.Kind.Base, "t0")
		g.readValue(v.Kind.Index, "t1")
		g.emit("  li t2, %d", elemSize(v.Ty))
		g.emit("  mul t1, t1, t2")
		g.emit("  add t0, t0, t1")
		g.writeResult(v, "t0")
		return nil

	case koopa.KBinary:
		return g.translateBinary(v)

	case koopa.KBranch:
		g.readValue(v.Kind.Cond, "t0")
		g.emit("  bnez t0, %s", asmName(v.Kind.TrueTarget.Name))
		g.emit("  j %s", asmName(v.Kind.FalseTarget.Name))
		return nil

	case koopa.KJump:
		g.emit("  j %s", asmName(v.Kind.JumpTarget.Name))
		return nil

	case koopa.KCall:
		return g.translateCall(v)

	case koopa.KReturn:
		if v.Kind.RetValue != nil {
			g.readValue(v.Kind.RetValue, "a0")
		}
		g.epilogue()
		return nil

	default:
		return unreachable("unhandled instruction kind %v for value %q", v.Kind.Tag, v.Name)
	}
}

var binaryOp = map[koopa.BinaryOp]string{
	koopa.OpAdd: "add", koopa.OpSub: "sub", koopa.OpMul: "mul",
	koopa.OpDiv: "div", koopa.OpMod: "rem",
	koopa.OpAnd: "and", koopa.OpOr: "or", koopa.OpXor: "xor",
}

func (g *funcGen) translateBinary(v *koopa.Value) error {
	g.readValue(v.Kind.LHS, "t0")
	g.readValue(v.Kind.RHS, "t1")
	if op, ok := binaryOp[v.Kind.Op]; ok {
		g.emit("  %s t0, t0, t1", op)
		g.writeResult(v, "t0")
		return nil
	}
	switch v.Kind.Op {
	case koopa.OpEq:
		g.emit("  xor t0, t0, t1")
		g.emit("  seqz t0, t0")
	case koopa.OpNe:
		g.emit("  xor t0, t0, t1")
		g.emit("  snez t0, t0")
	case koopa.OpLt:
		g.emit("  slt t0, t0, t1")
	case koopa.OpGt:
		g.emit("  sgt t0, t0, t1")
	case koopa.OpLe:
		g.emit("  sgt t0, t0, t1")
		g.emit("  seqz t0, t0")
	case koopa.OpGe:
		g.emit("  slt t0, t0, t1")
		g.emit("  seqz t0, t0")
	default:
		return unreachable("unhandled binary operator %q", v.Kind.Op)
	}
	g.writeResult(v, "t0")
	return nil
}

func (g *funcGen) translateCall(v *koopa.Value) error {
	for i, arg := range v.Kind.Args {
		if i < 8 {
			reg := fmt.Sprintf("a%d", i)
			g.readValue(arg, reg)
			continue
		}
		g.readValue(arg, "t0")
		g.emit("  sw t0, %d(sp)", (i-8)*4)
	}
	g.emit("  call %s", asmName(v.Kind.Callee.Name))
	if _, isUnit := v.Ty.(koopa.UnitType); !isUnit {
		g.writeResult(v, "a0")
	}
	return nil
}
