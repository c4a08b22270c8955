// cmd/fble/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"fblego/cmd/fble/commands"
)

const version = "0.1.0"

func main() { os.Exit(run()) }

// run dispatches os.Args and returns the process exit code, split out
// from main so testscript can register it as a subprocess command
// (cmd/fble/main_test.go).
func run() int {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return 2
	}

	switch args[0] {
	case "--help", "-h", "help":
		showUsage()
		return 0
	case "--version", "-v", "version":
		fmt.Println("fble", version)
		return 0
	case "test":
		return runTest(args[1:])
	case "mem-test":
		return runMemTest(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "fble: unknown command %q\n", args[0])
		showUsage()
		return 2
	}
}

func runTest(args []string) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	expectError := fs.Bool("error", false, "expect the scenario to fail type checking")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: fble test NAME [--error]")
		return 2
	}
	name := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: fble test NAME [--error]")
		return 2
	}
	return commands.TestCommand(name, *expectError)
}

func runMemTest(args []string) int {
	fs := flag.NewFlagSet("mem-test", flag.ContinueOnError)
	expectGrowth := fs.Bool("growth", false, "expect peak heap usage to grow with input size")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: fble mem-test NAME [--growth]")
		return 2
	}
	name := fs.Arg(0)
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: fble mem-test NAME [--growth]")
		return 2
	}
	return commands.MemTestCommand(name, *expectGrowth)
}

func showUsage() {
	fmt.Println(`fble — seed-scenario driver for the fble checker/compiler/interpreter pipeline.

This module has no lexer or parser (spec's own non-goal); NAME selects
one of the hand-built seed programs in internal/fixtures rather than a
source file.

Usage:
  fble test NAME [--error]
  fble mem-test mem-test-recurse [--growth]
  fble version

Scenario names: identity, union-select, list, link-echo, type-error, mem-test-recurse`)
}
