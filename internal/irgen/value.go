package irgen

import "strconv"

// Value is an expression-lowering result: either a compile-time literal or
// the name of an already-defined SSA register/address. Re-architected per
// SPEC_FULL.md §9 as a proper two-variant sum rather than a
// possibly-empty-string convention.
type Value struct {
	isLiteral bool
	lit       int32
	reg       string
}

// Literal wraps a compile-time-known integer.
func Literal(v int32) Value { return Value{isLiteral: true, lit: v} }

// Reg wraps the name of a previously defined value (e.g. "%3", "@x_1").
func Reg(name string) Value { return Value{reg: name} }

// Operand renders the value as it appears as an instruction operand.
func (v Value) Operand() string {
	if v.isLiteral {
		return strconv.FormatInt(int64(v.lit), 10)
	}
	return v.reg
}
