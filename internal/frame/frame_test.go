package frame

import (
	"testing"

	"github.com/withRiver/SysY-Compiler/internal/koopa"
)

func intVal(n int32) *koopa.Value {
	return &koopa.Value{Ty: koopa.IntType{}, Kind: koopa.Kind{Tag: koopa.KInteger, IntVal: n}}
}

func TestPlanLeafFunctionHasNoRASlot(t *testing.T) {
	// int f() { return 1+2; } -- one %0 = add slot, no call.
	add := &koopa.Value{Ty: koopa.IntType{}, Kind: koopa.Kind{Tag: koopa.KBinary, Op: koopa.OpAdd, LHS: intVal(1), RHS: intVal(2)}}
	ret := &koopa.Value{Ty: koopa.UnitType{}, Kind: koopa.Kind{Tag: koopa.KReturn, RetValue: add}}
	fn := &koopa.Function{Name: "@f", Ret: koopa.IntType{}, BBs: []*koopa.BasicBlock{
		{Name: "%entry", Insts: []*koopa.Value{add, ret}},
	}}
	f := Plan(fn)
	if f.HasCall {
		t.Error("expected no call, so no ra slot")
	}
	if f.ArgArea != 0 {
		t.Errorf("got ArgArea %d, want 0", f.ArgArea)
	}
	// S = 4 bytes (one i32 slot), R = 0, A = 0 -> aligned up to 16.
	if f.Size != 16 {
		t.Errorf("got size %d, want 16", f.Size)
	}
	if off, ok := f.Slots[add]; !ok || off != 0 {
		t.Errorf("got slot %d/%v, want offset 0", off, ok)
	}
}

func TestPlanFunctionWithCallReservesRASlot(t *testing.T) {
	callee := &koopa.Function{Name: "@g", Ret: koopa.IntType{}}
	call := &koopa.Value{Ty: koopa.IntType{}, Kind: koopa.Kind{Tag: koopa.KCall, Callee: callee}}
	ret := &koopa.Value{Ty: koopa.UnitType{}, Kind: koopa.Kind{Tag: koopa.KReturn, RetValue: call}}
	fn := &koopa.Function{Name: "@f", Ret: koopa.IntType{}, BBs: []*koopa.BasicBlock{
		{Name: "%entry", Insts: []*koopa.Value{call, ret}},
	}}
	f := Plan(fn)
	if !f.HasCall {
		t.Fatal("expected HasCall")
	}
	// S = 4 (call result slot), R = 4 -> 8, aligned up to 16; ra at size-4.
	if f.Size != 16 {
		t.Errorf("got size %d, want 16", f.Size)
	}
	if f.RAOffset != f.Size-4 {
		t.Errorf("got RAOffset %d, want %d", f.RAOffset, f.Size-4)
	}
}

func TestPlanOutgoingArgsBeyondEightReserveArgArea(t *testing.T) {
	callee := &koopa.Function{Name: "@g", Ret: koopa.UnitType{}}
	args := make([]*koopa.Value, 10)
	for i := range args {
		args[i] = intVal(int32(i))
	}
	call := &koopa.Value{Ty: koopa.UnitType{}, Kind: koopa.Kind{Tag: koopa.KCall, Callee: callee, Args: args}}
	ret := &koopa.Value{Ty: koopa.UnitType{}, Kind: koopa.Kind{Tag: koopa.KReturn}}
	fn := &koopa.Function{Name: "@f", Ret: koopa.UnitType{}, BBs: []*koopa.BasicBlock{
		{Name: "%entry", Insts: []*koopa.Value{call, ret}},
	}}
	f := Plan(fn)
	// 10 args - 8 register slots = 2 outgoing stack args * 4 bytes = 8.
	if f.ArgArea != 8 {
		t.Errorf("got ArgArea %d, want 8", f.ArgArea)
	}
}

func TestPlanArrayAllocReservesItsFullSize(t *testing.T) {
	arrTy := koopa.PointerType{Elem: koopa.NewArrayType(koopa.IntType{}, []int{4})}
	alloc := &koopa.Value{Ty: arrTy, Kind: koopa.Kind{Tag: koopa.KAlloc}}
	ret := &koopa.Value{Ty: koopa.UnitType{}, Kind: koopa.Kind{Tag: koopa.KReturn}}
	fn := &koopa.Function{Name: "@f", Ret: koopa.UnitType{}, BBs: []*koopa.BasicBlock{
		{Name: "%entry", Insts: []*koopa.Value{alloc, ret}},
	}}
	f := Plan(fn)
	// int a[4] reserves 16 bytes, already 16-aligned.
	if f.Size != 16 {
		t.Errorf("got size %d, want 16", f.Size)
	}
	if f.Slots[alloc] != 0 {
		t.Errorf("got offset %d, want 0", f.Slots[alloc])
	}
}

func TestPlanUnitTypedValuesGetNoSlot(t *testing.T) {
	store := &koopa.Value{Ty: koopa.UnitType{}, Kind: koopa.Kind{Tag: koopa.KStore}}
	ret := &koopa.Value{Ty: koopa.UnitType{}, Kind: koopa.Kind{Tag: koopa.KReturn}}
	fn := &koopa.Function{Name: "@f", Ret: koopa.UnitType{}, BBs: []*koopa.BasicBlock{
		{Name: "%entry", Insts: []*koopa.Value{store, ret}},
	}}
	f := Plan(fn)
	if _, ok := f.Slots[store]; ok {
		t.Error("expected a unit-typed store to get no stack slot")
	}
	if f.Size != 0 {
		t.Errorf("got size %d, want 0 for an empty frame", f.Size)
	}
}
