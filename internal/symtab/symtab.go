// Package symtab implements the Symbol Table Stack (spec.md §4.1, C1): a
// stack of scope frames with a monotone scope-id counter, used both for
// scoped name resolution and for generating globally-unique emitted IR
// names (spec.md §3.2).
package symtab

import (
	"strconv"

	"github.com/withRiver/SysY-Compiler/internal/cerrors"
)

// Kind is a symbol's category (spec.md §3.2).
type Kind int

const (
	ConstScalar Kind = iota
	VarScalar
	ConstArray
	VarArray
	Pointer
	IntFunction
	VoidFunction
)

// Symbol is one entry in the table.
type Symbol struct {
	Kind Kind
	// IRName is the globally-unique emitted name: original_name + "_" +
	// scope_id for non-function symbols, or just the name for functions.
	IRName string
	// ScopeID is the id of the scope this symbol was inserted into.
	ScopeID int

	// ConstVal holds the folded value for ConstScalar.
	ConstVal int32
	// ConstElems holds folded element values, keyed by flattened index,
	// for ConstArray.
	ConstElems map[int]int32
	// Dims is declared dimension sizes for ConstArray/VarArray (not
	// counting any elided leading dimension); for Pointer it is the
	// dimension sizes after the elided leading one.
	Dims []int

	// RetVoid / RetInt for IntFunction/VoidFunction is implied by Kind.
}

type scope struct {
	id      int
	symbols map[string]*Symbol
}

// Table is the scope stack. The zero value is not usable; call New.
type Table struct {
	scopes  []*scope
	nextID  int
}

// New returns a Table with the global scope already entered (scope id 0)
// and the SysY runtime intrinsics pre-populated (spec.md §4.1).
func New() *Table {
	t := &Table{}
	t.EnterScope()
	for _, name := range []string{"getint", "getch", "getarray"} {
		t.Insert(name, IntFunction)
	}
	for _, name := range []string{"putint", "putch", "putarray", "starttime", "stoptime"} {
		t.Insert(name, VoidFunction)
	}
	return t
}

// EnterScope pushes a new scope frame and returns its id.
func (t *Table) EnterScope() int {
	id := t.nextID
	t.nextID++
	t.scopes = append(t.scopes, &scope{id: id, symbols: map[string]*Symbol{}})
	return id
}

// ExitScope pops the innermost scope frame.
func (t *Table) ExitScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// CurrentScopeID returns the id of the innermost scope.
func (t *Table) CurrentScopeID() int {
	return t.scopes[len(t.scopes)-1].id
}

// InGlobalScope reports whether the innermost scope is the global scope.
func (t *Table) InGlobalScope() bool {
	return len(t.scopes) == 1
}

// Insert adds a symbol to the current scope. Redeclaring a name already
// present in the CURRENT scope is a fatal error (shadowing across scopes is
// fine). The emitted IRName is computed here: functions keep their bare
// name, everything else gets "_<scope id>" appended.
func (t *Table) Insert(name string, kind Kind) (*Symbol, error) {
	cur := t.scopes[len(t.scopes)-1]
	if _, exists := cur.symbols[name]; exists {
		return nil, cerrors.New(cerrors.Redeclaration, "redeclaration of '"+name+"' in the same scope", cerrors.SourceLocation{})
	}
	sym := &Symbol{Kind: kind, ScopeID: cur.id}
	if kind == IntFunction || kind == VoidFunction {
		sym.IRName = name
	} else {
		sym.IRName = name + "_" + strconv.Itoa(cur.id)
	}
	cur.symbols[name] = sym
	return sym, nil
}

// Lookup walks outward from the innermost scope and returns the first match.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupScope returns the scope id that owns `name`, per spec.md §4.1.
func (t *Table) LookupScope(name string) (int, bool) {
	sym, ok := t.Lookup(name)
	if !ok {
		return 0, false
	}
	return sym.ScopeID, true
}
