// Package commands implements the fble driver's subcommands (spec §6
// CLI surface). Real driver programs parse a source FILE; since this
// module has no lexer/parser (spec's own non-goal), each subcommand
// here takes a scenario NAME selecting one of the seed programs
// internal/fixtures hand-builds from spec §8, standing in for the file
// argument.
package commands

import (
	"fmt"
	"time"

	"fblego/internal/ast"
	"fblego/internal/check"
	"fblego/internal/compiler"
	"fblego/internal/diag"
	"fblego/internal/fixtures"
	"fblego/internal/heap"
	"fblego/internal/loader"
	"fblego/internal/profile"
	"fblego/internal/types"
	"fblego/internal/valueheap"
	"fblego/internal/vm"
)

// scenarios maps the NAME a "test"/"mem-test" invocation takes to its
// fixture builder.
var scenarios = map[string]func() ast.Expr{
	"identity":     fixtures.Identity,
	"union-select": fixtures.UnionSelectDefault,
	"list":         fixtures.RecursiveList,
	"link-echo":    fixtures.LinkEcho,
	"type-error":   fixtures.TypeError,
}

func lookupScenario(name string) (ast.Expr, error) {
	if name == "mem-test-recurse" {
		return fixtures.MemTestRecurse(100), nil
	}
	build, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("no such scenario %q", name)
	}
	return build(), nil
}

// result bundles one end-to-end run's outcome: the checked program's
// diagnostics (if any), its resulting value (if checking succeeded),
// the profile report (if it ran), and the value store's peak byte
// watermark (spec §5 "max bytes allocated").
type result struct {
	checker   *check.Checker
	value     *valueheap.Value
	report    *profile.Report
	peakBytes int64
	elapsed   time.Duration
}

// evaluate links prog through the module loader (a single-module
// program here, since the scenarios carry no module refs), type-checks,
// compiles, and runs it to completion against a fresh set of stores.
func evaluate(prog ast.Expr) (*result, error) {
	start := time.Now()

	linked, err := loader.Link(&ast.Program{Main: prog})
	if err != nil {
		return nil, err
	}

	typeStore := types.NewStore()
	checker := check.NewChecker(typeStore)
	checker.Diag = diag.NewStderr()
	_, tcExpr := checker.TypeCheckExpr(check.NewRootScope(), linked)
	if checker.Sink.Failed() {
		return &result{checker: checker, elapsed: time.Since(start)}, nil
	}

	comp := compiler.New(heap.NewArena(nil))
	block := comp.CompileProgram(tcExpr)

	valStore := valueheap.NewStore()
	graph := profile.NewGraph(comp.ProfileBlockNames())
	sched := vm.New(valStore, graph, nil)
	th := sched.Spawn(block, nil)

	value, err := sched.Run(th)
	if err != nil {
		return nil, err
	}
	return &result{
		checker:   checker,
		value:     value,
		report:    graph.Finish(),
		peakBytes: valStore.MaxBytesAllocated(),
		elapsed:   time.Since(start),
	}, nil
}

// TestCommand implements `fble test NAME [--error]` (spec §6).
func TestCommand(name string, expectError bool) int {
	prog, err := lookupScenario(name)
	if err != nil {
		fmt.Println(err)
		return 2
	}

	r, err := evaluate(prog)
	if err != nil {
		fmt.Printf("runtime error: %v\n", err)
		if expectError {
			return 0
		}
		return 1
	}

	failed := r.checker.Sink.Failed()
	if failed {
		sink := diag.NewStderr()
		for _, d := range r.checker.Sink.Diagnostics {
			sink.Error(d)
		}
	}
	if expectError {
		if failed {
			return 0
		}
		fmt.Println("expected a type error, none occurred")
		return 1
	}
	if failed {
		return 1
	}
	fmt.Printf("%s: ok (%s)\n", name, r.elapsed)
	return 0
}
