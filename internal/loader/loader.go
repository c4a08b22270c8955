// Package loader implements the module loader of spec §6: given a
// program's flat, unordered list of (name, expr) modules, produce the
// topologically sorted order the checker links them in (spec §4.C
// "module linking": each module becomes a sequential let-binding), or
// one of the loader's two defined errors -- ambiguous visibility or a
// recursive module dependency. Grounded on the teacher's
// ModuleLoader (module cache plus a "loading" set for cycle detection,
// formerly internal/vm/module_loader.go) generalized from file-path
// resolution to the in-memory ast.Program shape this module works with,
// since file-system discovery is out of scope (spec.md Non-goals).
package loader

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"fblego/internal/ast"
)

// AmbiguousVisibilityError reports two modules sharing a name where one
// copy is public and the other private, so a reference to that name
// cannot tell which definition it means. Two copies with the same
// visibility are reported as a plain duplicate-definition error instead.
type AmbiguousVisibilityError struct {
	Name string
}

func (e *AmbiguousVisibilityError) Error() string {
	return fmt.Sprintf("loader: ambiguous visibility for module %q: both a public and a private definition exist", e.Name)
}

// CyclicDependencyError reports a module dependency cycle.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("loader: recursive module dependency: %v", e.Cycle)
}

// Load resolves prog's modules into dependency order: Load(prog)[i]
// depends only on modules at indices < i. Detects the two load-time
// error classes spec §7 assigns to the loader.
func Load(prog *ast.Program) ([]ast.Module, error) {
	byName := map[string]*ast.Module{}
	for i := range prog.Modules {
		m := &prog.Modules[i]
		if existing, ok := byName[m.Name.Text]; ok {
			if existing.Private != m.Private {
				return nil, &AmbiguousVisibilityError{Name: m.Name.Text}
			}
			return nil, errors.Errorf("loader: duplicate module definition for %q", m.Name.Text)
		}
		byName[m.Name.Text] = m
	}

	deps := make(map[string][]string, len(prog.Modules))
	var g errgroup.Group
	depsMu := make([]struct {
		name string
		refs []string
	}, len(prog.Modules))
	for i := range prog.Modules {
		i := i
		g.Go(func() error {
			depsMu[i].name = prog.Modules[i].Name.Text
			depsMu[i].refs = collectRefs(prog.Modules[i].Expr)
			return nil
		})
	}
	_ = g.Wait() // collectRefs never errors; Wait only orders completion
	for _, d := range depsMu {
		deps[d.name] = d.refs
	}

	order, cyc := topoSort(prog.Modules, deps)
	if cyc != nil {
		return nil, &CyclicDependencyError{Cycle: cyc}
	}
	return order, nil
}

// collectRefs walks e for every ast.ModuleRef it contains, in no
// particular order, naming each reference by its path's final segment
// (the same resolution checkModuleRef uses).
func collectRefs(e ast.Expr) []string {
	var refs []string
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.ModuleRef:
			if len(n.Path) > 0 {
				refs = append(refs, n.Path[len(n.Path)-1].Text)
			}
		case *ast.Let:
			for _, b := range n.Bindings {
				walk(b.Type)
				walk(b.Expr)
			}
			walk(n.Body)
		case *ast.StructValueImplicitType:
			for _, a := range n.Args {
				walk(a.Expr)
			}
		case *ast.UnionValue:
			walk(n.Type)
			walk(n.Arg)
		case *ast.UnionSelect:
			walk(n.Condition)
			for _, c := range n.Choices {
				walk(c.Expr)
			}
		case *ast.FuncValue:
			for _, a := range n.Args {
				walk(a.Type)
			}
			walk(n.Body)
		case *ast.FuncType:
			for _, a := range n.Args {
				walk(a)
			}
			walk(n.Ret)
		case *ast.StructType:
			for _, f := range n.Fields {
				walk(f.Type)
			}
		case *ast.DataType:
			for _, f := range n.Fields {
				walk(f.Type)
			}
		case *ast.ProcType:
			walk(n.Inner)
		case *ast.Eval:
			walk(n.Body)
		case *ast.Link:
			walk(n.Type)
			walk(n.Body)
		case *ast.Exec:
			for _, b := range n.Bindings {
				walk(b.Type)
				walk(b.Proc)
			}
			walk(n.Body)
		case *ast.TypeOf:
			walk(n.Body)
		case *ast.PolyValue:
			walk(n.Arg.Type)
			walk(n.Body)
		case *ast.PolyApply:
			walk(n.Poly)
			walk(n.Arg)
		case *ast.List:
			for _, el := range n.Elems {
				walk(el)
			}
		case *ast.Literal:
			walk(n.Spec)
		case *ast.MiscApply:
			walk(n.Applied)
			for _, a := range n.Args {
				walk(a)
			}
		case *ast.MiscAccess:
			walk(n.Obj)
		case *ast.Elaborate:
			walk(n.Body)
		}
	}
	walk(e)
	return refs
}

// topoSort orders modules so each one follows everything it depends on
// (Kahn's algorithm). If the dependency graph isn't a DAG it reports
// every module left unordered: the modules on a cycle plus any that
// depend on one.
func topoSort(modules []ast.Module, deps map[string][]string) ([]ast.Module, []string) {
	byName := map[string]ast.Module{}
	indegree := map[string]int{}
	dependents := map[string][]string{}
	for _, m := range modules {
		byName[m.Name.Text] = m
		if _, ok := indegree[m.Name.Text]; !ok {
			indegree[m.Name.Text] = 0
		}
	}
	for name, refs := range deps {
		for _, r := range refs {
			if _, ok := byName[r]; !ok {
				continue // unresolved refs are reported by the checker, not the loader
			}
			indegree[name]++
			dependents[r] = append(dependents[r], name)
		}
	}

	var ready []string
	for _, m := range modules {
		if indegree[m.Name.Text] == 0 {
			ready = append(ready, m.Name.Text)
		}
	}

	var order []ast.Module
	visited := map[string]bool{}
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, byName[name])
		visited[name] = true
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) < len(modules) {
		var cyc []string
		for _, m := range modules {
			if !visited[m.Name.Text] {
				cyc = append(cyc, m.Name.Text)
			}
		}
		return nil, cyc
	}
	return order, nil
}

// Link wraps prog's modules, in dependency order, into nested
// non-recursive let-bindings terminating in prog.Main -- the single
// expression the checker can run TypeCheckExpr over directly.
func Link(prog *ast.Program) (ast.Expr, error) {
	order, err := Load(prog)
	if err != nil {
		return nil, err
	}
	body := prog.Main
	for i := len(order) - 1; i >= 0; i-- {
		m := order[i]
		body = &ast.Let{
			Bindings: []ast.LetBinding{{Name: m.Name, Expr: m.Expr}},
			Body:     body,
		}
	}
	return body, nil
}
