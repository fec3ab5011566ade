package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets the test binary itself act as the `sysyc` command inside
// testscript scripts (SPEC_FULL.md §1.E: CLI-level end-to-end behavior is
// exercised with github.com/rogpeppe/go-internal/testscript, the same way
// its own test suite documents driving a built command).
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"sysyc": func() int { return run(os.Args[1:]) },
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
