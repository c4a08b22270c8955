// Package fixtures hand-builds the ast.Expr programs for the seed
// scenarios of spec §8, standing in for source text since parsing is
// out of scope. Each exported function returns a self-contained
// program; RunProc wraps a process-typed expression the way the
// top-level driver must, since a Proc value only ever executes inside
// a Fork (spec §4.F "Exec").
package fixtures

import (
	"fblego/internal/ast"
	"fblego/internal/kind"
)

func loc(tag string) kind.Loc { return kind.Loc{File: tag} }

func nm(text string, ns ast.Namespace) ast.Name { return ast.Name{Text: text, NS: ns} }

func varRef(text string, ns ast.Namespace) *ast.VarRef {
	return &ast.VarRef{Name: nm(text, ns)}
}

func unitType() *ast.StructType { return &ast.StructType{} }

func unitVal() *ast.StructValueImplicitType { return &ast.StructValueImplicitType{} }

func access(obj ast.Expr, field string) *ast.MiscAccess {
	return &ast.MiscAccess{Obj: obj, Field: nm(field, ast.NormalNS)}
}

func apply(fn ast.Expr, args ...ast.Expr) *ast.MiscApply {
	return &ast.MiscApply{Applied: fn, Args: args}
}

// NatType is the Peano union `+(Nat@ S, Unit@ Z)`, referencing itself
// by name the way any other recursive type alias does (see
// internal/check/rules.go:buildListType for the same knot-tying
// pattern at the type level).
func natType() *ast.DataType {
	return &ast.DataType{
		Kind: ast.Union,
		Fields: []ast.Field{
			{Name: nm("S", ast.NormalNS), Type: varRef("Nat@", ast.TypeNS)},
			{Name: nm("Z", ast.NormalNS), Type: unitType()},
		},
	}
}

// withNat wraps body in `let Nat@ = +(Nat@ S, Unit@ Z) in body`.
func withNat(body ast.Expr) *ast.Let {
	return &ast.Let{
		Bindings: []ast.LetBinding{{Name: nm("Nat@", ast.TypeNS), Expr: natType()}},
		Body:     body,
	}
}

// natLit builds the nested S(S(...Z...)) union value for n, assuming
// Nat@ is bound in the enclosing scope.
func natLit(n int) ast.Expr {
	v := ast.Expr(&ast.UnionValue{Type: varRef("Nat@", ast.TypeNS), Tag: nm("Z", ast.NormalNS), Arg: unitVal()})
	for i := 0; i < n; i++ {
		v = &ast.UnionValue{Type: varRef("Nat@", ast.TypeNS), Tag: nm("S", ast.NormalNS), Arg: v}
	}
	return v
}

// RunProc turns a process-typed expression into the single Exec
// binding that actually runs it (spec §4.F: a proc is internally a
// zero-argument function; Exec is the only construct that forks and
// joins one to completion).
func RunProc(proc ast.Expr) ast.Expr {
	return &ast.Exec{
		Bindings: []ast.ExecBinding{{Name: nm("result", ast.NormalNS), Proc: proc}},
		Body:     varRef("result", ast.NormalNS),
	}
}

// Identity builds scenario 8.a: `let Id = λ@T λT x. x in Id<Nat@>(S(Z))`,
// expected to evaluate to a value equal to S(Z).
func Identity() ast.Expr {
	id := &ast.PolyValue{
		Arg: ast.Arg{Name: nm("T", ast.TypeNS), Type: &ast.TypeOf{Body: unitType()}},
		Body: &ast.FuncValue{
			Args: []ast.Arg{{Name: nm("x", ast.NormalNS), Type: varRef("T", ast.TypeNS)}},
			Body: varRef("x", ast.NormalNS),
		},
	}
	return withNat(&ast.Let{
		Bindings: []ast.LetBinding{{Name: nm("Id", ast.NormalNS), Expr: id}},
		Body: apply(
			&ast.PolyApply{Poly: varRef("Id", ast.NormalNS), Arg: varRef("Nat@", ast.TypeNS)},
			natLit(1),
		),
	})
}

// UnionSelectDefault builds scenario 8.b: a 3-variant union bound to
// its "b" tag, selected with an explicit "a" branch and a default,
// encoding the result as a 2-field union. Expected to land on the
// default ("two") branch.
func UnionSelectDefault() ast.Expr {
	uType := &ast.DataType{Kind: ast.Union, Fields: []ast.Field{
		{Name: nm("a", ast.NormalNS), Type: unitType()},
		{Name: nm("b", ast.NormalNS), Type: unitType()},
		{Name: nm("c", ast.NormalNS), Type: unitType()},
	}}
	resultType := func() *ast.DataType {
		return &ast.DataType{Kind: ast.Union, Fields: []ast.Field{
			{Name: nm("one", ast.NormalNS), Type: unitType()},
			{Name: nm("two", ast.NormalNS), Type: unitType()},
		}}
	}
	return &ast.Let{
		Bindings: []ast.LetBinding{{
			Name: nm("u", ast.NormalNS),
			Type: uType,
			Expr: &ast.UnionValue{Type: uType, Tag: nm("b", ast.NormalNS), Arg: unitVal()},
		}},
		Body: &ast.UnionSelect{
			Condition: varRef("u", ast.NormalNS),
			Choices: []ast.Choice{
				{Tag: nm("a", ast.NormalNS), Expr: &ast.UnionValue{Type: resultType(), Tag: nm("one", ast.NormalNS), Arg: unitVal()}},
				{Default: true, Expr: &ast.UnionValue{Type: resultType(), Tag: nm("two", ast.NormalNS), Arg: unitVal()}},
			},
		},
	}
}

// RecursiveList builds scenario 8.c: the list [1, 2, 3] under the Nat@
// numerals, expected to equal cons(1, cons(2, cons(3, nil))) under
// internal/check/rules.go's concrete List@ encoding.
func RecursiveList() ast.Expr {
	return withNat(&ast.List{Elems: []ast.Expr{natLit(1), natLit(2), natLit(3)}})
}

// LinkEcho builds scenario 8.d: `link Unit@ get put in { put(unit) ;
// get }`, run to completion, expected to equal unit.
func LinkEcho() ast.Expr {
	link := &ast.Link{
		Type: unitType(),
		Get:  nm("get", ast.NormalNS),
		Put:  nm("put", ast.NormalNS),
		Body: &ast.Let{
			Bindings: []ast.LetBinding{{
				Name: nm("_", ast.NormalNS),
				Expr: &ast.PutExpr{Port: varRef("put", ast.NormalNS), Arg: unitVal()},
			}},
			Body: &ast.GetExpr{Port: varRef("get", ast.NormalNS)},
		},
	}
	return RunProc(link)
}

// MemTestRecurse builds scenario 8.e for a given unary depth:
// `λn. recurse n` where `recurse = λn. n.?(Z: unit, S: λm.
// recurse(m))`. recurse carries an explicit (Nat@) { Unit@; } type
// annotation: this checker's Let only infers a type-level (kind @1)
// placeholder for an untyped binding (see DESIGN.md), so a recursive
// ordinary value binding needs its type spelled out.
func MemTestRecurse(depth int) ast.Expr {
	recurseType := &ast.FuncType{Args: []ast.Expr{varRef("Nat@", ast.TypeNS)}, Ret: unitType()}
	recurse := &ast.FuncValue{
		Args: []ast.Arg{{Name: nm("n", ast.NormalNS), Type: varRef("Nat@", ast.TypeNS)}},
		Body: &ast.UnionSelect{
			Condition: varRef("n", ast.NormalNS),
			Choices: []ast.Choice{
				{Tag: nm("Z", ast.NormalNS), Expr: unitVal()},
				{Tag: nm("S", ast.NormalNS), Expr: apply(varRef("recurse", ast.NormalNS), access(varRef("n", ast.NormalNS), "S"))},
			},
		},
	}
	run := &ast.FuncValue{
		Args: []ast.Arg{{Name: nm("n", ast.NormalNS), Type: varRef("Nat@", ast.TypeNS)}},
		Body: apply(varRef("recurse", ast.NormalNS), varRef("n", ast.NormalNS)),
	}
	return withNat(&ast.Let{
		Bindings: []ast.LetBinding{{Name: nm("recurse", ast.NormalNS), Type: recurseType, Expr: recurse}},
		Body:     apply(run, natLit(depth)),
	})
}

// TypeErrorLoc is the source location TypeError's ill-typed RHS
// carries, for asserting the reported diagnostic points at it.
var TypeErrorLoc = loc("typeerror-rhs")

// TypeError builds scenario 8.f: `let x : *(Unit@ a) = +(Unit@
// a)(a: unit) in x`, expected to fail checking with a struct/union
// type mismatch located at the RHS.
func TypeError() ast.Expr {
	declType := &ast.StructType{Fields: []ast.Field{{Name: nm("a", ast.NormalNS), Type: unitType()}}}
	rhsType := &ast.DataType{Kind: ast.Union, Fields: []ast.Field{{Name: nm("a", ast.NormalNS), Type: unitType()}}}
	rhs := &ast.UnionValue{Type: rhsType, Tag: nm("a", ast.NormalNS), Arg: unitVal()}
	rhs.Loc = TypeErrorLoc
	return &ast.Let{
		Bindings: []ast.LetBinding{{Name: nm("x", ast.NormalNS), Type: declType, Expr: rhs}},
		Body:     varRef("x", ast.NormalNS),
	}
}
