package codegen

import (
	"fmt"

	"github.com/withRiver/SysY-Compiler/internal/frame"
	"github.com/withRiver/SysY-Compiler/internal/koopa"
)

type funcGen struct {
	fn    *koopa.Function
	f     *frame.Frame
	lines []string
}

func (g *funcGen) emit(format string, args ...interface{}) {
	g.lines = append(g.lines, fmt.Sprintf(format, args...))
}

// readValue loads the value represented by v into reg: for alloc/global
// values, that is v's own address (the glossary's "pointer value" case —
// an alloc's slot IS the object, not a pointer to it, so no dereference
// happens here); for everything else (load/getelemptr/getptr/call/binary
// results, and function-argument references) it is the content previously
// written to v's slot or argument-passing location.
func (g *funcGen) readValue(v *koopa.Value, reg string) {
	switch v.Kind.Tag {
	case koopa.KInteger:
		g.emit("  li %s, %d", reg, v.Kind.IntVal)
	case koopa.KFuncArgRef:
		g.readArg(v, reg)
	case koopa.KAlloc:
		g.takeSlotAddress(v, reg)
	case koopa.KGlobalAlloc:
		g.emit("  la %s, %s", reg, asmName(v.Name))
	default:
		g.loadSlot(v, reg)
	}
}

// writeResult stores reg into v's own slot, i.e. records the value v's
// defining instruction just computed.
func (g *funcGen) writeResult(v *koopa.Value, reg string) {
	off, ok := g.f.Slots[v]
	if !ok {
		return // unit-typed instruction (store, br, jump, ret, void call): no result to keep
	}
	g.storeOffset(reg, off)
}

func (g *funcGen) loadSlot(v *koopa.Value, reg string) {
	off := g.f.Slots[v]
	g.loadOffset(reg, off)
}

func (g *funcGen) takeSlotAddress(v *koopa.Value, reg string) {
	off := g.f.Slots[v]
	g.addrOffset(reg, off)
}

// readArg materializes the i-th formal's value into reg: the first 8 live
// in a0..a7; the rest were pushed by the caller just above this frame.
func (g *funcGen) readArg(v *koopa.Value, reg string) {
	i := v.Kind.ArgIndex
	if i < 8 {
		g.emit("  mv %s, a%d", reg, i)
		return
	}
	g.loadOffset(reg, g.f.Size+(i-8)*4)
}

// --- sp-relative memory ops, materializing large offsets through t2 ---

const immLimit = 2047

func (g *funcGen) loadOffset(reg string, off int) {
	if off >= -immLimit && off <= immLimit {
		g.emit("  lw %s, %d(sp)", reg, off)
		return
	}
	g.emit("  li t2, %d", off)
	g.emit("  add t2, t2, sp")
	g.emit("  lw %s, 0(t2)", reg)
}

func (g *funcGen) storeOffset(reg string, off int) {
	if off >= -immLimit && off <= immLimit {
		g.emit("  sw %s, %d(sp)", reg, off)
		return
	}
	g.emit("  li t2, %d", off)
	g.emit("  add t2, t2, sp")
	g.emit("  sw %s, 0(t2)", reg)
}

func (g *funcGen) addrOffset(reg string, off int) {
	if off >= -immLimit && off <= immLimit {
		g.emit("  addi %s, sp, %d", reg, off)
		return
	}
	g.emit("  li %s, %d", reg, off)
	g.emit("  add %s, %s, sp", reg, reg)
}

// elemSize returns the stride (in bytes) of one step of getelemptr/getptr
// whose result has pointer type ty: size_of the pointee (spec.md §4.6 —
// derived purely from the static Koopa type, per §9's resolution of the
// source's under-specified side-table).
func elemSize(ty koopa.Type) int {
	if pt, ok := ty.(koopa.PointerType); ok {
		return pt.Elem.Size()
	}
	return 4
}
