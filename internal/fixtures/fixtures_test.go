package fixtures

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"fblego/internal/ast"
	"fblego/internal/check"
	"fblego/internal/compiler"
	"fblego/internal/heap"
	"fblego/internal/profile"
	"fblego/internal/types"
	"fblego/internal/valueheap"
	"fblego/internal/vm"
)

// diffValues renders a readable structural diff for a mismatched value
// pair, used only for test failure messages (valuesEqual already did
// the actual comparison, ignoring heap bookkeeping fields pretty.Diff
// would otherwise flag as spurious differences between two independent
// stores).
func diffValues(got, want *valueheap.Value) string {
	return strings.Join(pretty.Diff(got, want), "\n")
}

// run type-checks, compiles, and executes prog to completion against a
// fresh set of stores, mirroring what cmd/fble's "test" command does
// for one seed scenario.
func run(t *testing.T, prog ast.Expr) (*valueheap.Value, *check.Checker) {
	t.Helper()
	typeStore := types.NewStore()
	checker := check.NewChecker(typeStore)
	typ, tcExpr := checker.TypeCheckExpr(check.NewRootScope(), prog)
	if checker.Sink.Failed() {
		t.Fatalf("type checking failed: %v", checker.Sink.CompilationFailed())
	}
	if typ == nil {
		t.Fatalf("type checking produced a nil type with no diagnostics")
	}

	comp := compiler.New(heap.NewArena(nil))
	block := comp.CompileProgram(tcExpr)

	valStore := valueheap.NewStore()
	graph := profile.NewGraph(comp.ProfileBlockNames())
	sched := vm.New(valStore, graph, nil)
	th := sched.Spawn(block, nil)

	result, err := sched.Run(th)
	if err != nil {
		t.Fatalf("running program: %v", err)
	}
	return result, checker
}

func natValue(s *valueheap.Store, n int) *valueheap.Value {
	v := s.NewUnion(1, s.NewStruct(nil)) // tag 1 = Z by field declaration order
	for i := 0; i < n; i++ {
		v = s.NewUnion(0, v) // tag 0 = S
	}
	return v
}

func valuesEqual(a, b *valueheap.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case valueheap.VStruct:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if !valuesEqual(a.Fields[i], b.Fields[i]) {
				return false
			}
		}
		return true
	case valueheap.VUnion:
		return a.UnionTag == b.UnionTag && valuesEqual(a.UnionArg, b.UnionArg)
	default:
		return true
	}
}

func TestIdentityReturnsItsArgument(t *testing.T) {
	store := valueheap.NewStore()
	want := natValue(store, 1) // S(Z)

	got, _ := run(t, Identity())
	if !valuesEqual(got, want) {
		t.Fatalf("Identity: value mismatch:\n%s", diffValues(got, want))
	}
}

func TestUnionSelectFallsThroughToDefault(t *testing.T) {
	got, _ := run(t, UnionSelectDefault())
	if got.Tag != valueheap.VUnion {
		t.Fatalf("expected a union result, got tag %v", got.Tag)
	}
	if got.UnionTag != 1 { // "two" is the second field of the 2-field result union
		t.Fatalf("expected the default (\"two\") branch, got tag %d", got.UnionTag)
	}
}

func TestRecursiveListBuildsConsChain(t *testing.T) {
	got, _ := run(t, RecursiveList())

	store := valueheap.NewStore()
	nil3 := store.NewUnion(1, store.NewStruct(nil))
	cons3 := store.NewUnion(0, store.NewStruct([]*valueheap.Value{natValue(store, 3), nil3}))
	cons2 := store.NewUnion(0, store.NewStruct([]*valueheap.Value{natValue(store, 2), cons3}))
	want := store.NewUnion(0, store.NewStruct([]*valueheap.Value{natValue(store, 1), cons2}))

	if !valuesEqual(got, want) {
		t.Fatalf("RecursiveList: expected cons(1, cons(2, cons(3, nil))):\n%s", diffValues(got, want))
	}
}

func TestLinkEchoRoundTripsPut(t *testing.T) {
	got, _ := run(t, LinkEcho())
	if got.Tag != valueheap.VStruct || len(got.Fields) != 0 {
		t.Fatalf("LinkEcho: expected the unit struct, got %+v", got)
	}
}

func TestMemTestRecurseFinishesForBothDepths(t *testing.T) {
	for _, depth := range []int{100, 200} {
		got, _ := run(t, MemTestRecurse(depth))
		if got.Tag != valueheap.VStruct || len(got.Fields) != 0 {
			t.Fatalf("MemTestRecurse(%d): expected the unit struct, got %+v", depth, got)
		}
	}
}

func TestTypeErrorReportsStructVsUnionAtRHS(t *testing.T) {
	typeStore := types.NewStore()
	checker := check.NewChecker(typeStore)
	_, _ = checker.TypeCheckExpr(check.NewRootScope(), TypeError())

	if !checker.Sink.Failed() {
		t.Fatalf("expected a type error, got none")
	}
	d := checker.Sink.Diagnostics[0]
	if d.Loc != TypeErrorLoc {
		t.Fatalf("expected diagnostic at %+v, got %+v", TypeErrorLoc, d.Loc)
	}
}
