// Package diag renders a *cerrors.Error to stderr as a caret-underlined
// source diagnostic, the Go-idiomatic descendant of sentra's
// SentraError.Error() string formatting. Colors the "^" underline when
// stderr is a terminal (github.com/mattn/go-isatty), exactly the teacher's
// own TTY-detection dependency, repurposed for a compiler's diagnostics
// instead of a REPL prompt.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/withRiver/SysY-Compiler/internal/cerrors"
)

const (
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// Print writes err's diagnostic to w. If src is non-empty and err carries a
// line number, the offending source line is quoted with a caret underneath
// the column; colorized if w is a terminal.
func Print(w io.Writer, err *cerrors.Error, src string) {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	fmt.Fprintf(w, "%s: %s\n", err.Kind, err.Message)
	if err.Location.File != "" {
		fmt.Fprintf(w, "  at %s:%d:%d\n", err.Location.File, err.Location.Line, err.Location.Col)
		if line := sourceLine(src, err.Location.Line); line != "" {
			fmt.Fprintf(w, "\n  %d | %s\n", err.Location.Line, line)
			pad := strings.Repeat(" ", len(fmt.Sprintf("%d | ", err.Location.Line)))
			caret := "^"
			if useColor {
				caret = colorRed + caret + colorReset
			}
			col := err.Location.Col
			if col < 1 {
				col = 1
			}
			fmt.Fprintf(w, "  %s%s%s\n", pad, strings.Repeat(" ", col-1), caret)
		}
	}
	if trace := err.StackTrace(); trace != "" {
		fmt.Fprintf(w, "\n%s\n", trace)
	}
}

func sourceLine(src string, line int) string {
	if line <= 0 {
		return ""
	}
	lines := strings.Split(src, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}
