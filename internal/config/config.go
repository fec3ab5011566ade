// Package config holds a single parsed CLI invocation as an explicit value,
// threaded through main and internal/cache instead of living as package-level
// flag globals — matching spec.md §5's mandate to eliminate process-wide
// mutable state from the design.
package config

import (
	"fmt"

	"github.com/withRiver/SysY-Compiler/internal/cerrors"
)

// Mode selects which of spec.md §6.1's output forms to produce.
type Mode string

const (
	ModeKoopa Mode = "-koopa"
	ModeRISCV Mode = "-riscv"
	ModePerf  Mode = "-perf"
)

// Config is one `compiler <mode> <input> -o <output>` invocation, plus the
// additive `-cache <dir>` flag (SPEC_FULL.md §2.E.1) that spec.md's minimal
// CLI is silent on.
type Config struct {
	Mode     Mode
	Input    string
	Output   string
	CacheDir string // "" disables the compile cache
	Verbose  bool   // SYSYC_VERBOSE=1 (SPEC_FULL.md §8.E)
}

// Parse implements spec.md §6.1's "exactly 4 positional+flag tokens" CLI by
// hand, the way sentra's cmd/sentra/main.go walks os.Args itself rather than
// reaching for a flag-parsing package.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	var positional []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			i++
			if i >= len(args) {
				return nil, usageError("-o requires an output path")
			}
			cfg.Output = args[i]
		case "-cache":
			i++
			if i >= len(args) {
				return nil, usageError("-cache requires a directory")
			}
			cfg.CacheDir = args[i]
		case string(ModeKoopa), string(ModeRISCV), string(ModePerf):
			cfg.Mode = Mode(args[i])
		default:
			positional = append(positional, args[i])
		}
	}
	if cfg.Mode == "" {
		return nil, usageError("missing mode: one of -koopa, -riscv, -perf")
	}
	if len(positional) != 1 {
		return nil, usageError(fmt.Sprintf("expected exactly one input file, got %d", len(positional)))
	}
	cfg.Input = positional[0]
	if cfg.Output == "" {
		return nil, usageError("missing -o <output>")
	}
	return cfg, nil
}

func usageError(msg string) error {
	return cerrors.New(cerrors.IOError, "usage: compiler <-koopa|-riscv|-perf> <input> -o <output> [-cache <dir>]: "+msg, cerrors.SourceLocation{})
}
