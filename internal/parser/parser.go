// Package parser builds an *ast.CompUnit from a token stream.
//
// Like internal/lexer, this package stands in for the external collaborator
// spec.md §1 describes; it implements exactly the precedence grammar of
// spec.md §3.1, recursive-descent by precedence level the way sentra's
// internal/parser/parser.go is structured, with no attempt at error
// recovery — the first syntax error is fatal (spec.md §7).
package parser

import (
	"strconv"

	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/lexer"
)

type Parser struct {
	file   string
	tokens []lexer.Token
	pos    int
}

func New(file string, tokens []lexer.Token) *Parser {
	return &Parser{file: file, tokens: tokens}
}

// Parse consumes the whole token stream and returns a CompUnit.
func (p *Parser) Parse() (*ast.CompUnit, error) {
	cu := &ast.CompUnit{}
	for !p.check(lexer.TokenEOF) {
		item, err := p.topLevel()
		if err != nil {
			return nil, err
		}
		cu.Items = append(cu.Items, item)
	}
	return cu, nil
}

// ---- top level: const/var decl, or function definition ----

func (p *Parser) topLevel() (ast.TopLevel, error) {
	if p.check(lexer.TokenConst) {
		return p.decl()
	}
	// `int` or `void` — disambiguate function-def vs decl by looking past
	// the identifier for '('.
	if p.checkAt(1, lexer.TokenIdent) && p.checkAt(2, lexer.TokenLParen) {
		return p.funcDef()
	}
	return p.decl()
}

func (p *Parser) funcDef() (*ast.FuncDef, error) {
	retTok, err := p.advance()
	if err != nil {
		return nil, err
	}
	ret := ast.RetInt
	if retTok.Type == lexer.TokenVoid {
		ret = ast.RetVoid
	}
	nameTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !p.check(lexer.TokenRParen) {
		for {
			param, err := p.param()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{Ret: ret, Name: nameTok.Lexeme, Params: params, Body: body}, nil
}

func (p *Parser) param() (ast.Param, error) {
	if _, err := p.expect(lexer.TokenInt); err != nil {
		return ast.Param{}, err
	}
	nameTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return ast.Param{}, err
	}
	if !p.check(lexer.TokenLBracket) {
		return ast.Param{Name: nameTok.Lexeme, Kind: ast.ParamScalar}, nil
	}
	// Array-decayed pointer parameter: `[]` (elided leading dim) then zero
	// or more `[const-expr]`.
	if _, err := p.expect(lexer.TokenLBracket); err != nil {
		return ast.Param{}, err
	}
	if _, err := p.expect(lexer.TokenRBracket); err != nil {
		return ast.Param{}, err
	}
	var dims []ast.Expr
	for p.check(lexer.TokenLBracket) {
		p.advance()
		e, err := p.expr()
		if err != nil {
			return ast.Param{}, err
		}
		if _, err := p.expect(lexer.TokenRBracket); err != nil {
			return ast.Param{}, err
		}
		dims = append(dims, e)
	}
	return ast.Param{Name: nameTok.Lexeme, Kind: ast.ParamArray, Dims: dims}, nil
}

// ---- declarations ----

func (p *Parser) decl() (*ast.Decl, error) {
	isConst := p.match(lexer.TokenConst)
	if _, err := p.expect(lexer.TokenInt); err != nil {
		return nil, err
	}
	d := &ast.Decl{IsConst: isConst}
	for {
		def, err := p.def(isConst)
		if err != nil {
			return nil, err
		}
		d.Defs = append(d.Defs, def)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenSemi); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) def(isConst bool) (ast.Def, error) {
	nameTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return ast.Def{}, err
	}
	var dims []ast.Expr
	for p.check(lexer.TokenLBracket) {
		p.advance()
		e, err := p.expr()
		if err != nil {
			return ast.Def{}, err
		}
		if _, err := p.expect(lexer.TokenRBracket); err != nil {
			return ast.Def{}, err
		}
		dims = append(dims, e)
	}
	var init ast.InitVal
	if isConst || p.check(lexer.TokenAssign) {
		if _, err := p.expect(lexer.TokenAssign); err != nil {
			return ast.Def{}, err
		}
		init, err = p.initVal()
		if err != nil {
			return ast.Def{}, err
		}
	}
	return ast.Def{Name: nameTok.Lexeme, Dims: dims, Init: init}, nil
}

func (p *Parser) initVal() (ast.InitVal, error) {
	if p.check(lexer.TokenLBrace) {
		p.advance()
		list := &ast.ListInit{}
		if !p.check(lexer.TokenRBrace) {
			for {
				item, err := p.initVal()
				if err != nil {
					return nil, err
				}
				list.Items = append(list.Items, item)
				if !p.match(lexer.TokenComma) {
					break
				}
			}
		}
		if _, err := p.expect(lexer.TokenRBrace); err != nil {
			return nil, err
		}
		return list, nil
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprInit{Value: e}, nil
}

// ---- statements ----

func (p *Parser) block() (*ast.Block, error) {
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	b := &ast.Block{}
	for !p.check(lexer.TokenRBrace) {
		item, err := p.blockItem()
		if err != nil {
			return nil, err
		}
		b.Items = append(b.Items, item)
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) blockItem() (ast.BlockItem, error) {
	if p.check(lexer.TokenConst) || p.check(lexer.TokenInt) {
		return p.decl()
	}
	return p.stmt()
}

func (p *Parser) stmt() (ast.Stmt, error) {
	switch {
	case p.check(lexer.TokenLBrace):
		return p.block()
	case p.match(lexer.TokenIf):
		return p.ifStmt()
	case p.match(lexer.TokenWhile):
		return p.whileStmt()
	case p.match(lexer.TokenBreak):
		_, err := p.expect(lexer.TokenSemi)
		return &ast.BreakStmt{}, err
	case p.match(lexer.TokenContinue):
		_, err := p.expect(lexer.TokenSemi)
		return &ast.ContinueStmt{}, err
	case p.match(lexer.TokenReturn):
		return p.returnStmt()
	case p.match(lexer.TokenSemi):
		return &ast.ExprStmt{}, nil
	default:
		return p.assignOrExprStmt()
	}
}

func (p *Parser) ifStmt() (ast.Stmt, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	then, err := p.stmt()
	if err != nil {
		return nil, err
	}
	st := &ast.IfStmt{Cond: cond, Then: then}
	if p.match(lexer.TokenElse) {
		elseStmt, err := p.stmt()
		if err != nil {
			return nil, err
		}
		st.Else = elseStmt
	}
	return st, nil
}

func (p *Parser) whileStmt() (ast.Stmt, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) returnStmt() (ast.Stmt, error) {
	if p.match(lexer.TokenSemi) {
		return &ast.ReturnStmt{}, nil
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemi); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: e}, nil
}

// assignOrExprStmt disambiguates `lval = expr;` from an expression
// statement by speculatively parsing an lvalue-shaped primary and checking
// for a following '='.
func (p *Parser) assignOrExprStmt() (ast.Stmt, error) {
	if p.check(lexer.TokenIdent) {
		save := p.pos
		lv, err := p.lval()
		if err == nil && p.check(lexer.TokenAssign) {
			p.advance()
			val, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokenSemi); err != nil {
				return nil, err
			}
			return &ast.AssignStmt{Target: lv, Value: val}, nil
		}
		p.pos = save
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenSemi); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: e}, nil
}

// ---- expressions, strict precedence per spec.md §3.1 ----

func (p *Parser) expr() (ast.Expr, error) { return p.lorExpr() }

func (p *Parser) lorExpr() (ast.Expr, error) {
	left, err := p.landExpr()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.TokenOr) {
		p.advance()
		right, err := p.landExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) landExpr() (ast.Expr, error) {
	left, err := p.eqExpr()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.TokenAnd) {
		p.advance()
		right, err := p.eqExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) eqExpr() (ast.Expr, error) {
	left, err := p.relExpr()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.TokenEq) || p.check(lexer.TokenNe) {
		op := p.tok().Lexeme
		p.advance()
		right, err := p.relExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) relExpr() (ast.Expr, error) {
	left, err := p.addExpr()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.TokenLt) || p.check(lexer.TokenGt) || p.check(lexer.TokenLe) || p.check(lexer.TokenGe) {
		op := p.tok().Lexeme
		p.advance()
		right, err := p.addExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) addExpr() (ast.Expr, error) {
	left, err := p.mulExpr()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.TokenPlus) || p.check(lexer.TokenMinus) {
		op := p.tok().Lexeme
		p.advance()
		right, err := p.mulExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) mulExpr() (ast.Expr, error) {
	left, err := p.unaryExpr()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.TokenStar) || p.check(lexer.TokenSlash) || p.check(lexer.TokenPercent) {
		op := p.tok().Lexeme
		p.advance()
		right, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) unaryExpr() (ast.Expr, error) {
	if p.check(lexer.TokenPlus) || p.check(lexer.TokenMinus) || p.check(lexer.TokenNot) {
		op := p.tok().Lexeme
		p.advance()
		operand, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: op, Operand: operand}, nil
	}
	return p.primaryExpr()
}

func (p *Parser) primaryExpr() (ast.Expr, error) {
	switch {
	case p.match(lexer.TokenLParen):
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return e, nil
	case p.check(lexer.TokenNumber):
		tok := p.tok()
		p.advance()
		v, err := parseIntLiteral(tok.Lexeme)
		if err != nil {
			return nil, p.errAt(tok, cerrors.ParseError, err.Error())
		}
		return &ast.IntLit{Value: v}, nil
	case p.check(lexer.TokenIdent):
		// Could be a call or an lvalue.
		if p.checkAt(1, lexer.TokenLParen) {
			return p.call()
		}
		return p.lval()
	default:
		tok := p.tok()
		return nil, p.errAt(tok, cerrors.ParseError, "unexpected token "+string(tok.Type))
	}
}

func (p *Parser) call() (ast.Expr, error) {
	nameTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.check(lexer.TokenRParen) {
		for {
			a, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return &ast.Call{Callee: nameTok.Lexeme, Args: args}, nil
}

func (p *Parser) lval() (*ast.LVal, error) {
	nameTok, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	lv := &ast.LVal{Name: nameTok.Lexeme}
	for p.check(lexer.TokenLBracket) {
		p.advance()
		idx, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRBracket); err != nil {
			return nil, err
		}
		lv.Indices = append(lv.Indices, idx)
	}
	return lv, nil
}

func parseIntLiteral(lexeme string) (int32, error) {
	base := 10
	if len(lexeme) > 1 && lexeme[0] == '0' && (lexeme[1] == 'x' || lexeme[1] == 'X') {
		base = 16
		lexeme = lexeme[2:]
	} else if len(lexeme) > 1 && lexeme[0] == '0' {
		base = 8
	}
	v, err := strconv.ParseUint(lexeme, base, 32)
	if err != nil {
		return 0, err
	}
	return int32(uint32(v)), nil
}

// ---- token-stream plumbing ----

func (p *Parser) tok() lexer.Token { return p.tokens[p.pos] }

func (p *Parser) check(t lexer.TokenType) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].Type == t
}

func (p *Parser) checkAt(offset int, t lexer.TokenType) bool {
	i := p.pos + offset
	return i < len(p.tokens) && p.tokens[i].Type == t
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) advance() (lexer.Token, error) {
	if p.pos >= len(p.tokens) {
		return lexer.Token{}, p.errAt(p.tokens[len(p.tokens)-1], cerrors.ParseError, "unexpected end of file")
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, nil
}

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if !p.check(t) {
		tok := p.tok()
		return lexer.Token{}, p.errAt(tok, cerrors.ParseError, "expected "+string(t)+", got "+string(tok.Type))
	}
	return p.advance()
}

func (p *Parser) errAt(tok lexer.Token, kind cerrors.Kind, msg string) error {
	return cerrors.New(kind, msg, cerrors.Loc(p.file, tok.Line, tok.Col))
}
