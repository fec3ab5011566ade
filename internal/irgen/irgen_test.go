package irgen

import (
	"strings"
	"testing"

	"github.com/withRiver/SysY-Compiler/internal/koopa"
	"github.com/withRiver/SysY-Compiler/internal/lexer"
	"github.com/withRiver/SysY-Compiler/internal/parser"
)

// lowerSource runs the whole front end (lex -> parse -> lower) and fails the
// test on any error.
func lowerSource(t *testing.T, src string) string {
	t.Helper()
	toks, err := lexer.NewScanner("t.c", src).ScanTokens()
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	cu, err := parser.New("t.c", toks).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ir, err := Lower(cu)
	if err != nil {
		t.Fatalf("lower error: %v", err)
	}
	return ir
}

// TestRoundTripsThroughRawIRParser is spec.md §8's round-trip property: the
// emitted IR is accepted without error by the raw-IR parser, for every
// end-to-end scenario in §8.
func TestRoundTripsThroughRawIRParser(t *testing.T) {
	progs := []string{
		"int main(){ return 0; }",
		"int main(){ return 1+2*3; }",
		"const int N = 4; int a[N] = {1,2,3}; int main(){ return a[0]+a[1]+a[2]+a[3]; }",
		"int main(){ int i=0, s=0; while(i<10){ s=s+i; i=i+1; } return s; }",
		"int f(int n){ if(n<2) return n; return f(n-1)+f(n-2); } int main(){ return f(10); }",
		"int a[2][3] = {{1,2,3},{4,5,6}}; int main(){ return a[1][2]; }",
		"int g(int p[][3]) { return p[1][2]; } int main(){ int a[2][3] = {{1,2,3},{4,5,6}}; return g(a); }",
		"int main(){ int a = 1; int b = 2; return a && b || !a; }",
	}
	for _, src := range progs {
		ir := lowerSource(t, src)
		if _, err := koopa.ParseFromString(ir); err != nil {
			t.Errorf("source %q: raw-IR parser rejected emitted IR: %v\n--- IR ---\n%s", src, err, ir)
		}
	}
}

// TestEveryBasicBlockHasExactlyOneTerminator is spec.md §8's structural
// invariant, checked line-by-line on the emitted text: a terminator
// (br/jump/ret) must be the last line of its block and must not appear
// anywhere else in that block.
func TestEveryBasicBlockHasExactlyOneTerminator(t *testing.T) {
	src := `int f(int n){ if(n<2) return n; return f(n-1)+f(n-2); }
	int main(){ int i=0, s=0; while(i<10){ if (i==5) break; s=s+i; i=i+1; } return s; }`
	ir := lowerSource(t, src)
	for _, fnText := range splitFunctions(ir) {
		checkOneTerminatorPerBlock(t, fnText)
	}
}

func splitFunctions(ir string) []string {
	var out []string
	var cur strings.Builder
	inFunc := false
	for _, line := range strings.Split(ir, "\n") {
		if strings.HasPrefix(line, "fun ") {
			inFunc = true
		}
		if inFunc {
			cur.WriteString(line)
			cur.WriteString("\n")
		}
		if inFunc && strings.TrimSpace(line) == "}" {
			out = append(out, cur.String())
			cur.Reset()
			inFunc = false
		}
	}
	return out
}

func isTerminatorLine(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "br ") || strings.HasPrefix(line, "jump ") || line == "ret" || strings.HasPrefix(line, "ret ")
}

func checkOneTerminatorPerBlock(t *testing.T, fnText string) {
	t.Helper()
	lines := strings.Split(fnText, "\n")
	sawTerm := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "fun ") || trimmed == "}" {
			continue
		}
		if strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, " ") {
			sawTerm = false // new block
			continue
		}
		if sawTerm {
			t.Errorf("instruction %q appears after a terminator within the same block", trimmed)
		}
		if isTerminatorLine(trimmed) {
			sawTerm = true
		}
	}
}

func TestShortCircuitAndEvaluatesRightOnlyWhenLeftTruthy(t *testing.T) {
	ir := lowerSource(t, "int main(){ int a = 1; int b = 2; return a && b; }")
	// The guard must test the LEFT operand for truthiness (ne 0, ...): a
	// regression test for the && / || guard-operator swap bug.
	if !strings.Contains(ir, "ne 0,") {
		t.Errorf("expected a 'ne 0, <left>' truthiness guard for &&, got:\n%s", ir)
	}
}

func TestShortCircuitOrEvaluatesRightOnlyWhenLeftFalsy(t *testing.T) {
	ir := lowerSource(t, "int main(){ int a = 1; int b = 2; return a || b; }")
	if !strings.Contains(ir, "eq 0,") {
		t.Errorf("expected an 'eq 0, <left>' falsiness guard for ||, got:\n%s", ir)
	}
}

func TestBreakAndContinueTargetInnermostLoop(t *testing.T) {
	ir := lowerSource(t, `int main(){
		int i = 0;
		while (i < 10) {
			while (i < 5) {
				if (i == 2) break;
				if (i == 3) continue;
				i = i + 1;
			}
			i = i + 1;
		}
		return i;
	}`)
	// The innermost loop is while_entry_1/while_end_1 (the outer loop claims
	// id 0 first, since next_while_id is assigned at loop-header lowering
	// time, before the body is lowered).
	if !strings.Contains(ir, "jump %while_end_1") {
		t.Errorf("expected break to target the innermost loop's end label, got:\n%s", ir)
	}
	if !strings.Contains(ir, "jump %while_entry_1") {
		t.Errorf("expected continue to target the innermost loop's entry label, got:\n%s", ir)
	}
}

func TestRedeclarationInSameScopeIsFatal(t *testing.T) {
	toks, err := lexer.NewScanner("t.c", "int main(){ int x; int x; return 0; }").ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	cu, err := parser.New("t.c", toks).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Lower(cu); err == nil {
		t.Fatal("expected a redeclaration error")
	}
}

func TestGlobalConstArrayFoldsIntoAggregateLiteral(t *testing.T) {
	ir := lowerSource(t, "const int N = 4; int a[N] = {1,2,3}; int main(){ return a[3]; }")
	if !strings.Contains(ir, "global @a_0 = alloc [i32, 4], {1, 2, 3, 0}") {
		t.Errorf("expected a folded global aggregate literal, got:\n%s", ir)
	}
}

func TestMissingReturnIsSynthesized(t *testing.T) {
	ir := lowerSource(t, "int f(){ int x = 1; } void g(){ int x = 1; } int main(){ return 0; }")
	fns := splitFunctions(ir)
	if !strings.Contains(fns[0], "ret 0") {
		t.Errorf("expected a synthesized 'ret 0' for a fall-through int function, got:\n%s", fns[0])
	}
	if !strings.Contains(fns[1], "ret\n") {
		t.Errorf("expected a synthesized bare 'ret' for a fall-through void function, got:\n%s", fns[1])
	}
}

func TestDeclarationsLowerVRegsFromZero(t *testing.T) {
	ir := lowerSource(t, "int main(){ return 1+2; } int other(){ return 3+4; }")
	fns := splitFunctions(ir)
	for _, fn := range fns {
		if !strings.Contains(fn, "%0 = add") {
			t.Errorf("expected vreg numbering to reset to %%0 at each function entry, got:\n%s", fn)
		}
	}
}
