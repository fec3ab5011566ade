package parser

import (
	"testing"

	"github.com/withRiver/SysY-Compiler/internal/ast"
	"github.com/withRiver/SysY-Compiler/internal/lexer"
)

func parseString(t *testing.T, src string) *ast.CompUnit {
	t.Helper()
	toks, err := lexer.NewScanner("t.c", src).ScanTokens()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	cu, err := New("t.c", toks).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return cu
}

func TestParseMinimalMain(t *testing.T) {
	cu := parseString(t, "int main() { return 0; }")
	if len(cu.Items) != 1 {
		t.Fatalf("got %d top-level items, want 1", len(cu.Items))
	}
	fn, ok := cu.Items[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("got %T, want *ast.FuncDef", cu.Items[0])
	}
	if fn.Name != "main" || fn.Ret != ast.RetInt {
		t.Errorf("got name=%q ret=%v, want main/RetInt", fn.Name, fn.Ret)
	}
	if len(fn.Body.Items) != 1 {
		t.Fatalf("got %d body items, want 1", len(fn.Body.Items))
	}
	ret, ok := fn.Body.Items[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.ReturnStmt", fn.Body.Items[0])
	}
	lit, ok := ret.Value.(*ast.IntLit)
	if !ok || lit.Value != 0 {
		t.Errorf("got %#v, want IntLit{0}", ret.Value)
	}
}

func TestParseGlobalConstArrayDecl(t *testing.T) {
	cu := parseString(t, "const int N = 4; int a[N] = {1, 2, 3};")
	if len(cu.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(cu.Items))
	}
	constDecl := cu.Items[0].(*ast.Decl)
	if !constDecl.IsConst || constDecl.Defs[0].Name != "N" {
		t.Errorf("got %#v, want const N", constDecl)
	}
	arrDecl := cu.Items[1].(*ast.Decl)
	if arrDecl.IsConst {
		t.Error("expected a non-const declaration")
	}
	if len(arrDecl.Defs[0].Dims) != 1 {
		t.Fatalf("got %d dims, want 1", len(arrDecl.Defs[0].Dims))
	}
	list, ok := arrDecl.Defs[0].Init.(*ast.ListInit)
	if !ok || len(list.Items) != 3 {
		t.Fatalf("got %#v, want a 3-element ListInit", arrDecl.Defs[0].Init)
	}
}

func TestParseArrayParamDecaysToPointer(t *testing.T) {
	cu := parseString(t, "void f(int p[][3]) { return; }")
	fn := cu.Items[0].(*ast.FuncDef)
	if len(fn.Params) != 1 {
		t.Fatalf("got %d params, want 1", len(fn.Params))
	}
	p := fn.Params[0]
	if p.Kind != ast.ParamArray {
		t.Fatalf("got kind %v, want ParamArray", p.Kind)
	}
	if len(p.Dims) != 1 {
		t.Errorf("got %d trailing dims, want 1 (the leading dim is elided)", len(p.Dims))
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3), not (1 + 2) * 3.
	cu := parseString(t, "int main() { return 1 + 2 * 3; }")
	fn := cu.Items[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.ReturnStmt)
	top, ok := ret.Value.(*ast.Binary)
	if !ok || top.Op != "+" {
		t.Fatalf("got %#v, want top-level '+'", ret.Value)
	}
	rhs, ok := top.Right.(*ast.Binary)
	if !ok || rhs.Op != "*" {
		t.Fatalf("got %#v, want '*' as the right operand of '+'", top.Right)
	}
}

func TestParseShortCircuitOperatorsAreLogicalNodes(t *testing.T) {
	cu := parseString(t, "int main() { return 1 && 2 || 3; }")
	fn := cu.Items[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.ReturnStmt)
	top, ok := ret.Value.(*ast.Logical)
	if !ok || top.Op != "||" {
		t.Fatalf("got %#v, want top-level '||'", ret.Value)
	}
	if _, ok := top.Left.(*ast.Logical); !ok {
		t.Errorf("got %#v, want '&&' to bind tighter than '||'", top.Left)
	}
}

func TestParseAssignVsExprStmtDisambiguation(t *testing.T) {
	cu := parseString(t, "int main() { int a[2]; a[0] = 1; f(a[1]); return 0; }")
	fn := cu.Items[0].(*ast.FuncDef)
	if _, ok := fn.Body.Items[1].(*ast.AssignStmt); !ok {
		t.Errorf("got %T, want *ast.AssignStmt", fn.Body.Items[1])
	}
	if _, ok := fn.Body.Items[2].(*ast.ExprStmt); !ok {
		t.Errorf("got %T, want *ast.ExprStmt", fn.Body.Items[2])
	}
}

func TestParseIfElseAndWhileBreakContinue(t *testing.T) {
	cu := parseString(t, `int main() {
		while (1) {
			if (1) break; else continue;
		}
		return 0;
	}`)
	fn := cu.Items[0].(*ast.FuncDef)
	ws, ok := fn.Body.Items[0].(*ast.WhileStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.WhileStmt", fn.Body.Items[0])
	}
	body := ws.Body.(*ast.Block)
	ifs, ok := body.Items[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.IfStmt", body.Items[0])
	}
	if _, ok := ifs.Then.(*ast.BreakStmt); !ok {
		t.Errorf("got %T, want *ast.BreakStmt", ifs.Then)
	}
	if _, ok := ifs.Else.(*ast.ContinueStmt); !ok {
		t.Errorf("got %T, want *ast.ContinueStmt", ifs.Else)
	}
}

func TestParseSyntaxErrorIsFatal(t *testing.T) {
	toks, err := lexer.NewScanner("t.c", "int main() { return 0 }").ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New("t.c", toks).Parse(); err == nil {
		t.Fatal("expected a parse error for the missing semicolon")
	}
}
