// Command sysyc is the SysY compiler CLI (spec.md §6.1). It parses its
// arguments by hand into an internal/config.Config, exactly as sentra's own
// cmd/sentra/main.go walks os.Args without a flag-parsing package, and
// drives the two-stage lowering pipeline: internal/irgen (AST → Koopa IR)
// then internal/koopa + internal/codegen (Koopa IR → RV32), re-parsing the
// emitted IR text in between per spec.md §6.2's external-library interface.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/withRiver/SysY-Compiler/internal/cache"
	"github.com/withRiver/SysY-Compiler/internal/cerrors"
	"github.com/withRiver/SysY-Compiler/internal/codegen"
	"github.com/withRiver/SysY-Compiler/internal/config"
	"github.com/withRiver/SysY-Compiler/internal/diag"
	"github.com/withRiver/SysY-Compiler/internal/frame"
	"github.com/withRiver/SysY-Compiler/internal/irgen"
	"github.com/withRiver/SysY-Compiler/internal/koopa"
	"github.com/withRiver/SysY-Compiler/internal/lexer"
	"github.com/withRiver/SysY-Compiler/internal/parser"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run never panics past this point: any unexpected panic (an internal
// invariant failing) is converted to a Kind: Unreachable diagnostic, matching
// spec.md §7's "internal invariants are asserted; their firing is a compiler
// bug" with no recovery path beyond reporting it (SPEC_FULL.md §7.E).
func run(args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			bug := cerrors.Bug("panic: %v", r)
			diag.Print(os.Stderr, bug, "")
			exitCode = 1
		}
	}()

	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg.Verbose = os.Getenv("SYSYC_VERBOSE") == "1"

	src, err := os.ReadFile(cfg.Input)
	if err != nil {
		fmt.Fprintln(os.Stderr, cerrors.New(cerrors.IOError, "reading "+cfg.Input+": "+err.Error(), cerrors.SourceLocation{}))
		return 1
	}

	var store *cache.Store
	var cacheKey string
	if cfg.CacheDir != "" {
		store, err = cache.Open(cfg.CacheDir)
		if err != nil {
			printErr(err, string(src))
			return 1
		}
		defer store.Close()
		cacheKey = cache.Key(src, string(cfg.Mode))
		if hit, ok, err := store.Lookup(cacheKey); err == nil && ok {
			if err := os.WriteFile(cfg.Output, hit, 0o644); err != nil {
				printErr(cerrors.New(cerrors.IOError, "writing "+cfg.Output+": "+err.Error(), cerrors.SourceLocation{}), string(src))
				return 1
			}
			return 0
		}
	}

	start := time.Now()
	output, stats, err := compile(cfg.Input, string(src), cfg.Mode)
	if err != nil {
		printErr(err, string(src))
		return 1
	}

	if err := os.WriteFile(cfg.Output, []byte(output), 0o644); err != nil {
		printErr(cerrors.New(cerrors.IOError, "writing "+cfg.Output+": "+err.Error(), cerrors.SourceLocation{}), string(src))
		return 1
	}

	if store != nil {
		if err := store.Insert(cacheKey, string(cfg.Mode), []byte(output)); err != nil {
			printErr(err, string(src))
			return 1
		}
	}

	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "sysyc: %d function(s), %s frame total, %s\n",
			stats.funcs, humanize.Bytes(uint64(stats.frameBytes)), time.Since(start))
	}
	return 0
}

type compileStats struct {
	funcs      int
	frameBytes int
}

// compile runs the two-stage pipeline for one source file and mode.
func compile(file, src string, mode config.Mode) (string, compileStats, error) {
	tokens, err := lexer.NewScanner(file, src).ScanTokens()
	if err != nil {
		return "", compileStats{}, err
	}
	cu, err := parser.New(file, tokens).Parse()
	if err != nil {
		return "", compileStats{}, err
	}
	ir, err := irgen.Lower(cu)
	if err != nil {
		return "", compileStats{}, err
	}
	if mode == config.ModeKoopa {
		return ir, compileStats{}, nil
	}

	// -riscv and -perf both lower Koopa IR to RV32 (spec.md §6.1 — -perf is
	// reserved for future optimization, currently identical output).
	prog, err := koopa.ParseFromString(ir)
	if err != nil {
		return "", compileStats{}, err
	}
	asm, err := codegen.Emit(prog)
	if err != nil {
		return "", compileStats{}, err
	}
	return asm, statsOf(prog), nil
}

func statsOf(prog *koopa.Program) compileStats {
	var s compileStats
	for _, fn := range prog.Funcs {
		if fn.IsDecl() {
			continue
		}
		s.funcs++
		s.frameBytes += frame.Plan(fn).Size
	}
	return s
}

func printErr(err error, src string) {
	if ce, ok := err.(*cerrors.Error); ok {
		diag.Print(os.Stderr, ce, src)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
