// Package frame implements the Stack Frame Planner (C5, spec.md §4.5): for
// each function body, the locals area (S), the saved-return-address slot
// (R), and the outgoing-argument area (A), combined into one 16-byte
// aligned frame size with sp-relative offsets for every SSA value that
// needs storage.
package frame

import "github.com/withRiver/SysY-Compiler/internal/koopa"

// Frame is the layout computed for one function.
type Frame struct {
	Size int
	// Slots maps every non-unit-typed instruction value to its sp-relative
	// offset, starting at A and growing upward (spec.md §4.5).
	Slots map[*koopa.Value]int
	// HasCall reports whether the function contains any `call`
	// instruction, i.e. whether R is non-zero.
	HasCall bool
	// RAOffset is the sp-relative offset `ra` is saved at (frame_size-4),
	// meaningful only if HasCall.
	RAOffset int
	// ArgArea is A: bytes reserved at the bottom of the frame for this
	// function's own outgoing call arguments beyond the 8 register slots.
	ArgArea int
}

const stackAlign = 16

// Plan computes the frame layout for fn, which must have a body (fn.BBs
// != nil).
func Plan(fn *koopa.Function) *Frame {
	f := &Frame{Slots: map[*koopa.Value]int{}}

	type slotSize struct {
		v    *koopa.Value
		size int
	}
	var ordered []slotSize
	maxOutgoing := 0

	for _, bb := range fn.BBs {
		for _, v := range bb.Insts {
			if v.Kind.Tag == koopa.KCall {
				f.HasCall = true
				if n := len(v.Kind.Args) - 8; n > maxOutgoing {
					maxOutgoing = n
				}
			}
			if _, isUnit := v.Ty.(koopa.UnitType); isUnit {
				continue
			}
			size := 4
			if v.Kind.Tag == koopa.KAlloc {
				if pt, ok := v.Ty.(koopa.PointerType); ok {
					if _, isArr := pt.Elem.(koopa.ArrayType); isArr {
						size = pt.Elem.Size()
					}
				}
			}
			ordered = append(ordered, slotSize{v: v, size: size})
		}
	}

	f.ArgArea = 4 * maxOutgoing
	if f.HasCall {
		f.RAOffset = 0 // filled in after S is known, below
	}

	offset := f.ArgArea
	s := 0
	for _, e := range ordered {
		f.Slots[e.v] = offset
		offset += e.size
		s += e.size
	}

	r := 0
	if f.HasCall {
		r = 4
	}
	size := alignUp16(s + r + f.ArgArea)
	f.Size = size
	if f.HasCall {
		f.RAOffset = size - 4
	}
	return f
}

func alignUp16(n int) int {
	return (n + stackAlign - 1) / stackAlign * stackAlign
}
