package koopa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/withRiver/SysY-Compiler/internal/cerrors"
)

// ParseFromString parses Koopa IR text (spec.md §6.3 grammar, exactly the
// subset internal/irgen emits) into the raw-IR object graph, standing in
// for the external `parse_from_string` + `build_raw_program` pair spec.md
// §6.2 names. Go's garbage collector makes the C API's separate
// builder/release lifetime (spec.md §5, §6.2) unnecessary: one call
// returns the fully-built, immutable graph (see DESIGN.md's Open Question
// resolution). A malformed program is a fatal RawIRParseError (spec.md §7).
func ParseFromString(text string) (*Program, error) {
	p := &parser{
		prog:    &Program{},
		funcs:   map[string]*Function{},
		globals: map[string]*Value{},
	}
	wrap := func(err error) error {
		if _, ok := err.(*cerrors.Error); ok {
			return err
		}
		return p.errf("%v", err)
	}
	lines := splitLines(text)
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		switch {
		case strings.HasPrefix(line, "decl "):
			if err := p.parseDecl(line); err != nil {
				return nil, wrap(err)
			}
			i++
		case strings.HasPrefix(line, "global "):
			if err := p.parseGlobal(line); err != nil {
				return nil, wrap(err)
			}
			i++
		case strings.HasPrefix(line, "fun "):
			n, err := p.parseFunc(lines, i)
			if err != nil {
				return nil, wrap(err)
			}
			i = n
		default:
			return nil, p.errf("unexpected top-level line %q", line)
		}
	}
	return p.prog, nil
}

type parser struct {
	prog    *Program
	funcs   map[string]*Function
	globals map[string]*Value
}

func (p *parser) errf(format string, args ...interface{}) error {
	return cerrors.New(cerrors.RawIRParseError, fmt.Sprintf(format, args...), cerrors.SourceLocation{})
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// ---- top-level forms ----

// decl @name(T1, T2): RetT   |  decl @name(T1, T2)
func (p *parser) parseDecl(line string) error {
	rest := strings.TrimPrefix(line, "decl ")
	name, paramTys, retTy, err := parseSignature(rest)
	if err != nil {
		return err
	}
	f := &Function{Name: name, Ret: retTy, ParamTy: paramTys}
	p.funcs[name] = f
	p.prog.Funcs = append(p.prog.Funcs, f)
	return nil
}

// global @name = alloc T, INIT
func (p *parser) parseGlobal(line string) error {
	rest := strings.TrimPrefix(line, "global ")
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return p.errf("malformed global: %q", line)
	}
	name := strings.TrimSpace(rest[:eq])
	tail := strings.TrimSpace(rest[eq+1:])
	if !strings.HasPrefix(tail, "alloc ") {
		return p.errf("malformed global: %q", line)
	}
	tail = strings.TrimPrefix(tail, "alloc ")
	comma := splitTopLevelComma(tail)
	if len(comma) != 2 {
		return p.errf("malformed global: %q", line)
	}
	ty, err := ParseType(strings.TrimSpace(comma[0]))
	if err != nil {
		return err
	}
	init, err := p.parseConstInit(strings.TrimSpace(comma[1]), ty)
	if err != nil {
		return err
	}
	g := &Global{Name: name, Ty: PointerType{Elem: ty}, Init: init}
	g.Value = &Value{Ty: g.Ty, Name: name, Kind: Kind{Tag: KGlobalAlloc, GlobalAllocInit: init}}
	p.prog.Globals = append(p.prog.Globals, g)
	p.globals[name] = g.Value
	return nil
}

func (p *parser) parseConstInit(s string, ty Type) (*Value, error) {
	if s == "zeroinit" {
		return &Value{Ty: ty, Kind: Kind{Tag: KZeroInit}}, nil
	}
	if strings.HasPrefix(s, "{") {
		at, ok := ty.(ArrayType)
		if !ok {
			return nil, p.errf("aggregate initializer for non-array type %s", ty.String())
		}
		items := splitTopLevelComma(s[1 : len(s)-1])
		var elems []*Value
		for _, it := range items {
			it = strings.TrimSpace(it)
			if it == "" {
				continue
			}
			v, err := p.parseConstInit(it, at.Elem)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return &Value{Ty: ty, Kind: Kind{Tag: KAggregate, Elems: elems}}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, p.errf("malformed constant %q: %v", s, err)
	}
	return &Value{Ty: IntType{}, Kind: Kind{Tag: KInteger, IntVal: int32(n)}}, nil
}

// parseSignature parses "@name(T1, T2): RetT" or "@name(T1, T2)" (unit
// return) possibly with named params "@name(%p0: i32): RetT".
func parseSignature(s string) (name string, paramTys []Type, ret Type, err error) {
	lp := strings.Index(s, "(")
	if lp < 0 {
		return "", nil, nil, fmt.Errorf("koopa: malformed signature %q", s)
	}
	name = strings.TrimSpace(s[:lp])
	rp := matchingParen(s, lp)
	if rp < 0 {
		return "", nil, nil, fmt.Errorf("koopa: malformed signature %q", s)
	}
	paramsStr := s[lp+1 : rp]
	tail := strings.TrimSpace(s[rp+1:])
	ret = UnitType{}
	if strings.HasPrefix(tail, ":") {
		ret, err = ParseType(strings.TrimSpace(tail[1:]))
		if err != nil {
			return "", nil, nil, err
		}
	}
	for _, part := range splitTopLevelComma(paramsStr) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tyStr := part
		if c := strings.Index(part, ":"); c >= 0 {
			tyStr = strings.TrimSpace(part[c+1:])
		}
		ty, err := ParseType(tyStr)
		if err != nil {
			return "", nil, nil, err
		}
		paramTys = append(paramTys, ty)
	}
	return name, paramTys, ret, nil
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if start <= len(s) {
		tail := s[start:]
		if strings.TrimSpace(tail) != "" || len(parts) > 0 {
			parts = append(parts, tail)
		}
	}
	return parts
}

// ---- function bodies ----

func (p *parser) parseFunc(lines []string, i int) (int, error) {
	header := strings.TrimSpace(lines[i])
	header = strings.TrimPrefix(header, "fun ")
	header = strings.TrimSuffix(strings.TrimSpace(header), "{")
	header = strings.TrimSpace(header)
	name, paramTys, _, err := parseSignatureWithNames(header)
	if err != nil {
		return 0, err
	}
	f := p.funcs[name]
	if f == nil {
		_, tys, ret, err := parseSignature(header)
		if err != nil {
			return 0, err
		}
		f = &Function{Name: name, ParamTy: tys, Ret: ret}
		p.funcs[name] = f
		p.prog.Funcs = append(p.prog.Funcs, f)
	}
	_ = paramTys

	fb := &funcBuilder{
		p:      p,
		f:      f,
		values: map[string]*Value{},
		blocks: map[string]*BasicBlock{},
	}
	for idx, ty := range f.ParamTy {
		pv := &Value{Ty: ty, Name: fmt.Sprintf("%%p%d", idx), Kind: Kind{Tag: KFuncArgRef, ArgIndex: idx}}
		f.Params = append(f.Params, pv)
		fb.values[pv.Name] = pv
	}

	i++
	// First pass: discover block labels so forward references (br/jump to
	// a later block) resolve.
	depth := 0
	for j := i; j < len(lines); j++ {
		t := strings.TrimSpace(lines[j])
		if t == "}" && depth == 0 {
			break
		}
		if strings.HasSuffix(t, ":") && !strings.Contains(t, " ") {
			bb := &BasicBlock{Name: strings.TrimSuffix(t, ":")}
			f.BBs = append(f.BBs, bb)
			fb.blocks[bb.Name] = bb
		}
	}

	var cur *BasicBlock
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		i++
		if line == "}" {
			return i, nil
		}
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			cur = fb.blocks[strings.TrimSuffix(line, ":")]
			continue
		}
		if cur == nil {
			return 0, p.errf("instruction %q outside any basic block", line)
		}
		v, err := fb.parseInst(line)
		if err != nil {
			return 0, err
		}
		cur.Insts = append(cur.Insts, v)
	}
	return 0, p.errf("unterminated function %q", name)
}

func parseSignatureWithNames(s string) (name string, paramNames []string, ret Type, err error) {
	n, tys, r, e := parseSignature(s)
	_ = tys
	return n, nil, r, e
}

type funcBuilder struct {
	p         *parser
	f         *Function
	values    map[string]*Value
	blocks    map[string]*BasicBlock
}

// parseInst parses one instruction line, registering any defined value.
func (fb *funcBuilder) parseInst(line string) (*Value, error) {
	if eq := topLevelAssign(line); eq >= 0 {
		lhs := strings.TrimSpace(line[:eq])
		rhs := strings.TrimSpace(line[eq+2:])
		v, err := fb.parseRHS(rhs)
		if err != nil {
			return nil, err
		}
		v.Name = lhs
		fb.values[lhs] = v
		return v, nil
	}
	return fb.parseRHS(line)
}

func topLevelAssign(line string) int {
	idx := strings.Index(line, " = ")
	if idx < 0 {
		return -1
	}
	lhs := strings.TrimSpace(line[:idx])
	// "%n" is an SSA temporary; "@name" is a local `alloc`, indistinguishable
	// in textual form from a global until the name is looked up (operand
	// resolves function-local @-names before falling back to globals).
	if !strings.HasPrefix(lhs, "%") && !strings.HasPrefix(lhs, "@") {
		return -1
	}
	return idx
}

func (fb *funcBuilder) parseRHS(rhs string) (*Value, error) {
	switch {
	case strings.HasPrefix(rhs, "alloc "):
		ty, err := ParseType(strings.TrimPrefix(rhs, "alloc "))
		if err != nil {
			return nil, err
		}
		return &Value{Ty: PointerType{Elem: ty}, Kind: Kind{Tag: KAlloc}}, nil

	case strings.HasPrefix(rhs, "load "):
		src, err := fb.operand(strings.TrimPrefix(rhs, "load "))
		if err != nil {
			return nil, err
		}
		elem := elemOf(src.Ty)
		return &Value{Ty: elem, Kind: Kind{Tag: KLoad, Src: src}}, nil

	case strings.HasPrefix(rhs, "store "):
		parts := splitTopLevelComma(strings.TrimPrefix(rhs, "store "))
		if len(parts) != 2 {
			return nil, fb.p.errf("malformed store: %q", rhs)
		}
		val, err := fb.operand(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, err
		}
		dest, err := fb.operand(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		return &Value{Ty: UnitType{}, Kind: Kind{Tag: KStore, StoreValue: val, StoreDest: dest}}, nil

	case strings.HasPrefix(rhs, "getelemptr "):
		return fb.parsePtrArith(strings.TrimPrefix(rhs, "getelemptr "), KGetElemPtr)

	case strings.HasPrefix(rhs, "getptr "):
		return fb.parsePtrArith(strings.TrimPrefix(rhs, "getptr "), KGetPtr)

	case strings.HasPrefix(rhs, "br "):
		parts := splitTopLevelComma(strings.TrimPrefix(rhs, "br "))
		if len(parts) != 3 {
			return nil, fb.p.errf("malformed br: %q", rhs)
		}
		cond, err := fb.operand(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, err
		}
		t, err := fb.block(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		f, err := fb.block(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, err
		}
		return &Value{Ty: UnitType{}, Kind: Kind{Tag: KBranch, Cond: cond, TrueTarget: t, FalseTarget: f}}, nil

	case strings.HasPrefix(rhs, "jump "):
		t, err := fb.block(strings.TrimSpace(strings.TrimPrefix(rhs, "jump ")))
		if err != nil {
			return nil, err
		}
		return &Value{Ty: UnitType{}, Kind: Kind{Tag: KJump, JumpTarget: t}}, nil

	case rhs == "ret":
		return &Value{Ty: UnitType{}, Kind: Kind{Tag: KReturn}}, nil

	case strings.HasPrefix(rhs, "ret "):
		v, err := fb.operand(strings.TrimPrefix(rhs, "ret "))
		if err != nil {
			return nil, err
		}
		return &Value{Ty: UnitType{}, Kind: Kind{Tag: KReturn, RetValue: v}}, nil

	case strings.HasPrefix(rhs, "call "):
		return fb.parseCall(strings.TrimPrefix(rhs, "call "))

	default:
		return fb.parseBinary(rhs)
	}
}

func (fb *funcBuilder) parsePtrArith(s string, tag KindTag) (*Value, error) {
	parts := splitTopLevelComma(s)
	if len(parts) != 2 {
		return nil, fb.p.errf("malformed pointer arithmetic: %q", s)
	}
	base, err := fb.operand(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}
	index, err := fb.operand(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	var resultTy Type
	switch tag {
	case KGetElemPtr:
		// base points at an aggregate; result points at one element of it.
		agg := elemOf(base.Ty)
		if arr, ok := agg.(ArrayType); ok {
			resultTy = PointerType{Elem: arr.Elem}
		} else {
			resultTy = PointerType{Elem: agg}
		}
	case KGetPtr:
		// base is itself a bare pointer; result has the same pointee type.
		resultTy = base.Ty
	}
	return &Value{Ty: resultTy, Kind: Kind{Tag: tag, Base: base, Index: index}}, nil
}

var binaryOps = map[string]BinaryOp{
	"add": OpAdd, "sub": OpSub, "mul": OpMul, "div": OpDiv, "mod": OpMod,
	"eq": OpEq, "ne": OpNe, "lt": OpLt, "gt": OpGt, "le": OpLe, "ge": OpGe,
	"and": OpAnd, "or": OpOr, "xor": OpXor,
}

func (fb *funcBuilder) parseBinary(rhs string) (*Value, error) {
	sp := strings.Index(rhs, " ")
	if sp < 0 {
		return nil, fb.p.errf("unrecognized instruction: %q", rhs)
	}
	op, ok := binaryOps[rhs[:sp]]
	if !ok {
		return nil, fb.p.errf("unrecognized instruction: %q", rhs)
	}
	parts := splitTopLevelComma(rhs[sp+1:])
	if len(parts) != 2 {
		return nil, fb.p.errf("malformed binary instruction: %q", rhs)
	}
	l, err := fb.operand(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}
	r, err := fb.operand(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	return &Value{Ty: IntType{}, Kind: Kind{Tag: KBinary, Op: op, LHS: l, RHS: r}}, nil
}

func (fb *funcBuilder) parseCall(s string) (*Value, error) {
	lp := strings.Index(s, "(")
	if lp < 0 || !strings.HasSuffix(s, ")") {
		return nil, fb.p.errf("malformed call: %q", s)
	}
	name := strings.TrimSpace(s[:lp])
	callee := fb.p.funcs[name]
	if callee == nil {
		return nil, fb.p.errf("call to undeclared function %q", name)
	}
	argsStr := s[lp+1 : len(s)-1]
	var args []*Value
	for _, a := range splitTopLevelComma(argsStr) {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		v, err := fb.operand(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return &Value{Ty: callee.Ret, Kind: Kind{Tag: KCall, Callee: callee, Args: args}}, nil
}

func (fb *funcBuilder) operand(tok string) (*Value, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, fb.p.errf("empty operand")
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return &Value{Ty: IntType{}, Kind: Kind{Tag: KInteger, IntVal: int32(n)}}, nil
	}
	if strings.HasPrefix(tok, "@") {
		// A function-local `alloc` shares @-name syntax with a global; the
		// local binding (if this name was allocated in this function) wins.
		if v, ok := fb.values[tok]; ok {
			return v, nil
		}
		if g, ok := fb.p.globals[tok]; ok {
			return g, nil
		}
		return nil, fb.p.errf("reference to undefined global %q", tok)
	}
	if v, ok := fb.values[tok]; ok {
		return v, nil
	}
	return nil, fb.p.errf("use of undefined value %q", tok)
}

func (fb *funcBuilder) block(name string) (*BasicBlock, error) {
	if bb, ok := fb.blocks[name]; ok {
		return bb, nil
	}
	return nil, fb.p.errf("reference to undefined block %q", name)
}

func elemOf(t Type) Type {
	if p, ok := t.(PointerType); ok {
		return p.Elem
	}
	return t
}
