// Package check implements the bidirectional type checker of spec §4.C:
// a pair of mutually recursive walkers, TypeCheckExpr and TypeCheckType,
// elaborating the external ast.Expr AST into the typed tc.Expr IR.
package check

import (
	"fblego/internal/ast"
	"fblego/internal/fblerr"
	"fblego/internal/kind"
	"fblego/internal/tc"
	"fblego/internal/types"
)

// Checker holds the shared type store and diagnostic sink for one
// compilation unit.
type Checker struct {
	Store *types.Store
	Sink  *fblerr.Sink
	Diag  diagWarner
}

// diagWarner is satisfied by internal/diag.Sink; kept as a narrow
// interface so internal/check does not import internal/diag.
type diagWarner interface {
	Warning(file string, line, col int, format string, args ...any)
}

// NewChecker creates a checker with a fresh diagnostic sink.
func NewChecker(store *types.Store) *Checker {
	return &Checker{Store: store, Sink: &fblerr.Sink{}}
}

func (c *Checker) fail(loc kind.Loc, format string, args ...any) {
	c.Sink.Add(fblerr.New(fblerr.TypeError, loc, format, args...))
}

func namespaceOf(level int) ast.Namespace {
	if level == 0 {
		return ast.NormalNS
	}
	return ast.TypeNS
}

func (c *Checker) checkNamespace(name ast.Name, t *types.Type) bool {
	level := kindLevel(c.Store.GetKind(t))
	want := namespaceOf(level)
	if name.NS != want {
		c.fail(name.Loc, "namespace mismatch for %q: expected %v, found %v", name.Text, want, name.NS)
		return false
	}
	return true
}

// kindLevel reports the basic level of k, or 1 for a poly kind (which
// has no single namespace level; poly-kinded names are accepted as type
// namespace since their values are always level >= 1).
func kindLevel(k *kind.Kind) int {
	if k.IsBasic() {
		return k.Level
	}
	return 1
}

// TypeCheckType checks e as a type-level expression and returns the
// resulting Type, or nil on failure (diagnostics already recorded).
func (c *Checker) TypeCheckType(scope *Scope, e ast.Expr) *types.Type {
	switch n := e.(type) {
	case *ast.StructType:
		return c.checkDataType(scope, types.Struct, n.Fields, n.Loc)
	case *ast.DataType:
		dk := types.Struct
		if n.Kind == ast.Union {
			dk = types.Union
		}
		return c.checkDataType(scope, dk, n.Fields, n.Loc)
	case *ast.FuncType:
		args := make([]*types.Type, 0, len(n.Args))
		for _, a := range n.Args {
			at := c.TypeCheckType(scope, a)
			if at == nil {
				return nil
			}
			args = append(args, at)
		}
		ret := c.TypeCheckType(scope, n.Ret)
		if ret == nil {
			return nil
		}
		return c.Store.NewFunc(n.Loc, args, ret)
	case *ast.ProcType:
		inner := c.TypeCheckType(scope, n.Inner)
		if inner == nil {
			return nil
		}
		return c.Store.NewProc(n.Loc, inner)
	case *ast.VarRef:
		t, idx, ok := scope.Lookup(n.Name.Text, true)
		_ = idx
		if !ok {
			c.fail(n.Loc, "variable not defined: %q", n.Name.Text)
			return nil
		}
		if !c.checkNamespace(n.Name, t) {
			return nil
		}
		if t.Tag != types.TTypeType {
			c.fail(n.Loc, "expected a type, found a value of type %s", t)
			return nil
		}
		return t.TTInner
	case *ast.PolyApply:
		polyT, _ := c.TypeCheckExpr(scope, n.Poly)
		if polyT == nil {
			return nil
		}
		pk := c.Store.GetKind(polyT)
		if pk.IsBasic() {
			c.fail(n.Loc, "expected poly kind, found basic kind")
			return nil
		}
		argT := c.TypeCheckExprForType(scope, n.Arg)
		if argT == nil {
			return nil
		}
		argK := c.Store.GetKind(argT)
		if !types.KindsEqual(argK, pk.Arg) {
			c.fail(n.Loc, "expected kind %v, found %v", pk.Arg, argK)
			return nil
		}
		return c.Store.NewPolyApply(n.Loc, polyT, argT)
	case *ast.TypeOf:
		t, _ := c.TypeCheckExpr(scope, n.Body)
		return t
	case *ast.Elaborate:
		return c.TypeCheckType(scope, n.Body)
	default:
		t, _ := c.TypeCheckExprForTypeExpr(scope, e)
		return t
	}
}

func (c *Checker) checkDataType(scope *Scope, dk types.DataKind, fields []ast.Field, loc kind.Loc) *types.Type {
	tfields := make([]types.Field, 0, len(fields))
	for _, f := range fields {
		ft := c.TypeCheckType(scope, f.Type)
		if ft == nil {
			return nil
		}
		tfields = append(tfields, types.Field{Name: f.Name.Text, Type: ft})
	}
	if name, dup := types.DuplicateFieldName(tfields); dup {
		c.fail(loc, "duplicate field name: %q", name)
		return nil
	}
	return c.Store.NewData(loc, dk, tfields)
}

// TypeCheckExprForTypeExpr is a helper used when a type-position
// expression isn't literally a type constructor form (e.g. a
// PolyApply-free VarRef already handled above, or a value expression
// used via `typeof`). It runs TypeCheckExpr directly in scope and
// returns both the type and the elaborated Tc.
func (c *Checker) TypeCheckExprForTypeExpr(scope *Scope, e ast.Expr) (*types.Type, tc.Expr) {
	return c.TypeCheckExpr(scope, e)
}

// TypeCheckExprForType runs TypeCheckExpr in a sub-scope that does not
// propagate "used" marks, returning only the type (spec §4.C).
func (c *Checker) TypeCheckExprForType(scope *Scope, e ast.Expr) *types.Type {
	child := scope.NewChild(true)
	t, _ := c.TypeCheckExpr(child, e)
	return t
}

