// SPDX-License-Identifier: MPL-2.0

// Package cli contains CLI integration tests using testscript.
//
// The langhost command runs in-process: the test binary re-executes itself
// as "langhost", so no separate build step is needed.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	cmd "github.com/invowk/langhost/cmd/langhost"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"langhost": cmd.Main,
	}))
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			// Keep the user's configuration and runtime directory out of reach.
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, "config"))
			env.Setenv("XDG_RUNTIME_DIR", filepath.Join(env.WorkDir, "run"))
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"waitfile": waitFile,
		},
		// Continue running all tests even if one fails
		ContinueOnError: true,
	})
}

// waitFile polls until the named file exists: waitfile path [timeout].
func waitFile(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! waitfile")
	}
	if len(args) < 1 || len(args) > 2 {
		ts.Fatalf("usage: waitfile path [timeout]")
	}
	timeout := 10 * time.Second
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		ts.Check(err)
		timeout = d
	}

	path := ts.MkAbs(args[0])
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if time.Now().After(deadline) {
			ts.Fatalf("%s", fmt.Sprintf("%s did not appear within %s", path, timeout))
		}
		time.Sleep(20 * time.Millisecond)
	}
}
