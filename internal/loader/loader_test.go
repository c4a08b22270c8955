package loader

import (
	"testing"

	"fblego/internal/ast"
)

func modName(text string) ast.Name { return ast.Name{Text: text, NS: ast.ModuleNS} }

func modRef(path ...string) *ast.ModuleRef {
	names := make([]ast.Name, len(path))
	for i, p := range path {
		names[i] = modName(p)
	}
	return &ast.ModuleRef{Path: names}
}

func unit() *ast.StructValueImplicitType { return &ast.StructValueImplicitType{} }

func TestLoadOrdersDependenciesBeforeDependents(t *testing.T) {
	prog := &ast.Program{
		Modules: []ast.Module{
			{Name: modName("C"), Expr: modRef("A")},
			{Name: modName("A"), Expr: unit()},
			{Name: modName("B"), Expr: modRef("A")},
		},
		Main: modRef("C"),
	}

	order, err := Load(prog)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(order))
	}

	pos := map[string]int{}
	for i, m := range order {
		pos[m.Name.Text] = i
	}
	if pos["A"] > pos["B"] || pos["A"] > pos["C"] {
		t.Fatalf("A must precede its dependents B and C: order %v", order)
	}
}

func TestLoadDetectsAmbiguousVisibility(t *testing.T) {
	prog := &ast.Program{
		Modules: []ast.Module{
			{Name: modName("A"), Private: false, Expr: unit()},
			{Name: modName("A"), Private: true, Expr: unit()},
		},
		Main: modRef("A"),
	}

	_, err := Load(prog)
	if _, ok := err.(*AmbiguousVisibilityError); !ok {
		t.Fatalf("expected *AmbiguousVisibilityError, got %v", err)
	}
}

func TestLoadDetectsCyclicDependency(t *testing.T) {
	prog := &ast.Program{
		Modules: []ast.Module{
			{Name: modName("A"), Expr: modRef("B")},
			{Name: modName("B"), Expr: modRef("A")},
		},
		Main: modRef("A"),
	}

	_, err := Load(prog)
	cyc, ok := err.(*CyclicDependencyError)
	if !ok {
		t.Fatalf("expected *CyclicDependencyError, got %v", err)
	}
	if len(cyc.Cycle) != 2 {
		t.Fatalf("expected a 2-module cycle, got %v", cyc.Cycle)
	}
}

func TestLinkNestsModulesAsLetBindings(t *testing.T) {
	prog := &ast.Program{
		Modules: []ast.Module{
			{Name: modName("A"), Expr: unit()},
		},
		Main: &ast.VarRef{Name: ast.Name{Text: "A", NS: ast.ModuleNS}},
	}

	linked, err := Link(prog)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	let, ok := linked.(*ast.Let)
	if !ok {
		t.Fatalf("expected *ast.Let, got %T", linked)
	}
	if len(let.Bindings) != 1 || let.Bindings[0].Name.Text != "A" {
		t.Fatalf("expected a single A binding, got %+v", let.Bindings)
	}
}
