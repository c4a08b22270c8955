package check

import (
	"fblego/internal/ast"
	"fblego/internal/kind"
	"fblego/internal/tc"
	"fblego/internal/types"
)

// TypeCheckExpr checks e as a value-level expression, returning its type
// and elaborated Tc, or (nil, nil) on failure.
func (c *Checker) TypeCheckExpr(scope *Scope, e ast.Expr) (*types.Type, tc.Expr) {
	switch n := e.(type) {

	case *ast.VarRef:
		t, idx, ok := scope.Lookup(n.Name.Text, true)
		if !ok {
			c.fail(n.Loc, "variable not defined: %q", n.Name.Text)
			return nil, nil
		}
		if !c.checkNamespace(n.Name, t) {
			return nil, nil
		}
		return t, &tc.Var{Index: idx}

	case *ast.Let:
		return c.checkLet(scope, n)

	case *ast.StructValueImplicitType:
		fields := make([]types.Field, 0, len(n.Args))
		args := make([]tc.Expr, 0, len(n.Args))
		for _, a := range n.Args {
			at, ae := c.TypeCheckExpr(scope, a.Expr)
			if at == nil {
				return nil, nil
			}
			fields = append(fields, types.Field{Name: a.Name.Text, Type: at})
			args = append(args, ae)
		}
		if name, dup := types.DuplicateFieldName(fields); dup {
			c.fail(n.Loc, "duplicate field name: %q", name)
			return nil, nil
		}
		st := c.Store.NewData(n.Loc, types.Struct, fields)
		return st, &tc.StructValue{Args: args}

	case *ast.UnionValue:
		ut := c.TypeCheckType(scope, n.Type)
		if ut == nil {
			return nil, nil
		}
		norm := c.Store.Normal(ut)
		if norm == nil || norm.Tag != types.TData || norm.DataKind != types.Union {
			c.fail(n.Loc, "expected union type")
			return nil, nil
		}
		tagIdx := fieldIndex(norm, n.Tag.Text)
		if tagIdx < 0 {
			c.fail(n.Tag.Loc, "no such field: %q", n.Tag.Text)
			return nil, nil
		}
		argT, argE := c.TypeCheckExpr(scope, n.Arg)
		if argT == nil {
			return nil, nil
		}
		if !c.Store.TypesEqual(argT, norm.Fields[tagIdx].Type) {
			c.fail(n.Arg.Location(), "expected type %s, found %s", norm.Fields[tagIdx].Type, argT)
			return nil, nil
		}
		return ut, &tc.UnionValue{Tag: tagIdx, Arg: argE}

	case *ast.UnionSelect:
		return c.checkUnionSelect(scope, n)

	case *ast.FuncValue:
		return c.checkFuncValue(scope, n)

	case *ast.FuncType, *ast.StructType, *ast.DataType, *ast.ProcType:
		t := c.TypeCheckType(scope, e)
		if t == nil {
			return nil, nil
		}
		return c.Store.NewTypeType(e.Location(), t), &tc.TypeValue{}

	case *ast.MiscApply:
		return c.checkApply(scope, n)

	case *ast.MiscAccess:
		return c.checkAccess(scope, n)

	case *ast.Eval:
		return c.checkProcWrapper(scope, n.Loc, func(body *Scope) (*types.Type, tc.Expr) {
			return c.TypeCheckExpr(body, n.Body)
		})

	case *ast.Link:
		return c.checkLink(scope, n)

	case *ast.GetExpr:
		return c.checkGet(scope, n)

	case *ast.PutExpr:
		return c.checkPut(scope, n)

	case *ast.Exec:
		return c.checkExec(scope, n)

	case *ast.PolyValue:
		return c.checkPolyValue(scope, n)

	case *ast.PolyApply:
		return c.checkPolyApplyExpr(scope, n)

	case *ast.List:
		return c.checkList(scope, n)

	case *ast.Literal:
		return c.checkLiteral(scope, n)

	case *ast.ModuleRef:
		return c.checkModuleRef(scope, n)

	case *ast.TypeOf:
		t := c.TypeCheckType(scope, n.Body)
		if t == nil {
			return nil, nil
		}
		return c.Store.NewTypeType(n.Loc, t), &tc.TypeValue{}

	case *ast.Elaborate:
		return c.TypeCheckExpr(scope, n.Body)

	default:
		c.fail(e.Location(), "unsupported expression form %T", e)
		return nil, nil
	}
}

func fieldIndex(dataType *types.Type, name string) int {
	for i, f := range dataType.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// checkLet implements spec §4.C "Let": derive each binding's expected
// type (explicit, or a fresh abstract Var named after the binding), push
// all of them, check each RHS, detect vacuity, then check the body. The
// emitted Let is recursive iff any binding variable was read while
// checking the bindings.
func (c *Checker) checkLet(scope *Scope, n *ast.Let) (*types.Type, tc.Expr) {
	child := scope.NewLexicalChild(false)

	expected := make([]*types.Type, len(n.Bindings))
	placeholders := make([]*types.Type, len(n.Bindings))
	indices := make([]int, len(n.Bindings))
	for i, b := range n.Bindings {
		if b.Type != nil {
			t := c.TypeCheckType(scope, b.Type)
			if t == nil {
				return nil, nil
			}
			expected[i] = t
		} else {
			mangled := "__" + b.Name.Text
			k := kind.Basic(b.Name.Loc, 1)
			placeholder := c.Store.NewVar(b.Name.Loc, k, mangled)
			placeholders[i] = placeholder
			expected[i] = placeholder
		}
		indices[i] = child.Push(b.Name.Text, expected[i])
	}

	bindingExprs := make([]tc.Expr, len(n.Bindings))
	for i, b := range n.Bindings {
		rt, re := c.TypeCheckExpr(child, b.Expr)
		if rt == nil {
			return nil, nil
		}
		if b.Type != nil {
			if !c.Store.TypesEqual(rt, expected[i]) {
				c.fail(b.Expr.Location(), "expected type %s, found %s", expected[i], rt)
				return nil, nil
			}
		} else {
			rk := c.Store.GetKind(rt)
			pk := c.Store.GetKind(placeholders[i])
			if !types.KindsEqual(rk, pk) {
				c.fail(b.Expr.Location(), "expected kind %v, found %v", pk, rk)
				return nil, nil
			}
			c.Store.SetVarValue(placeholders[i], rt)
			if c.Store.IsVacuous(placeholders[i]) {
				c.fail(b.Name.Loc, "vacuous definition: %q", b.Name.Text)
				return nil, nil
			}
		}
		bindingExprs[i] = re
	}

	recursive := false
	for _, w := range child.locals[:len(n.Bindings)] {
		if w.used || w.accessed {
			recursive = true
			break
		}
	}

	bodyT, bodyE := c.TypeCheckExpr(child, n.Body)
	if bodyT == nil {
		return nil, nil
	}

	bindings := make([]tc.Binding, len(n.Bindings))
	for i, b := range n.Bindings {
		bindings[i] = tc.Binding{Name: b.Name.Text, Index: indices[i], Expr: bindingExprs[i]}
	}
	c.emitWarnings(child)
	return bodyT, &tc.Let{Recursive: recursive, Bindings: bindings, Body: bodyE}
}

func (c *Checker) emitWarnings(s *Scope) {
	if c.Diag == nil {
		return
	}
	for _, name := range s.PopWarnings() {
		c.Diag.Warning("", 0, 0, "unused variable: %q", name)
	}
}

// checkUnionSelect implements spec §4.C "Union select".
func (c *Checker) checkUnionSelect(scope *Scope, n *ast.UnionSelect) (*types.Type, tc.Expr) {
	condT, condE := c.TypeCheckExpr(scope, n.Condition)
	if condT == nil {
		return nil, nil
	}
	norm := c.Store.Normal(condT)
	if norm == nil || norm.Tag != types.TData || norm.DataKind != types.Union {
		c.fail(n.Loc, "expected union type in select")
		return nil, nil
	}

	byTag := map[string]*ast.Choice{}
	var defaultChoice *ast.Choice
	for i := range n.Choices {
		ch := &n.Choices[i]
		if ch.Default {
			defaultChoice = ch
			continue
		}
		if fieldIndex(norm, ch.Tag.Text) < 0 {
			c.fail(ch.Tag.Loc, "no such field: %q", ch.Tag.Text)
			return nil, nil
		}
		byTag[ch.Tag.Text] = ch
	}

	choices := make([]int, len(norm.Fields))
	var branches []tc.Expr
	var resultType *types.Type
	defaultBranchIdx := -1

	for i, f := range norm.Fields {
		ch, ok := byTag[f.Name]
		if !ok {
			if defaultChoice == nil {
				c.fail(n.Loc, "missing choice for tag %q and no default", f.Name)
				return nil, nil
			}
			if defaultBranchIdx < 0 {
				bt, be := c.TypeCheckExpr(scope, defaultChoice.Expr)
				if bt == nil {
					return nil, nil
				}
				if resultType == nil {
					resultType = bt
				} else if !c.Store.TypesEqual(resultType, bt) {
					c.fail(defaultChoice.Expr.Location(), "branch type mismatch: expected %s, found %s", resultType, bt)
					return nil, nil
				}
				branches = append(branches, be)
				defaultBranchIdx = len(branches) - 1
			}
			choices[i] = defaultBranchIdx
			continue
		}
		bt, be := c.TypeCheckExpr(scope, ch.Expr)
		if bt == nil {
			return nil, nil
		}
		if resultType == nil {
			resultType = bt
		} else if !c.Store.TypesEqual(resultType, bt) {
			c.fail(ch.Expr.Location(), "branch type mismatch: expected %s, found %s", resultType, bt)
			return nil, nil
		}
		branches = append(branches, be)
		choices[i] = len(branches) - 1
	}

	return resultType, &tc.UnionSelect{Condition: condE, Choices: choices, Branches: branches, Loc: n.Loc}
}

// checkFuncValue implements spec §4.C "Function".
func (c *Checker) checkFuncValue(scope *Scope, n *ast.FuncValue) (*types.Type, tc.Expr) {
	child := scope.NewChild(false)
	argTypes := make([]*types.Type, len(n.Args))
	for i, a := range n.Args {
		at := c.TypeCheckType(scope, a.Type)
		if at == nil {
			return nil, nil
		}
		argTypes[i] = at
		child.Push(a.Name.Text, at)
	}
	bodyT, bodyE := c.TypeCheckExpr(child, n.Body)
	if bodyT == nil {
		return nil, nil
	}
	c.emitWarnings(child)
	ft := c.Store.NewFunc(n.Loc, argTypes, bodyT)
	return ft, &tc.FuncValue{Captured: capturedIndices(child), Argc: len(n.Args), Body: bodyE}
}

func capturedIndices(s *Scope) []tc.VarIndex {
	caps := s.Captured()
	out := make([]tc.VarIndex, len(caps))
	for i := range caps {
		// the capture was recorded as resolved in the PARENT scope; the
		// VarIndex the compiler needs here is the parent-frame index that
		// Lookup already produced when it first crossed into s's parent.
		// Re-resolve by name against the parent to get that index.
		_, idx, _ := s.parent.Lookup(caps[i].name, false)
		out[i] = idx
	}
	return out
}

// checkApply implements spec §4.C "Function apply": either the applied
// thing is a function (arity + arg types must match), or it is a type
// whose value is a struct type (an explicit-type struct value).
func (c *Checker) checkApply(scope *Scope, n *ast.MiscApply) (*types.Type, tc.Expr) {
	fnT, fnE := c.TypeCheckExpr(scope, n.Applied)
	if fnT == nil {
		return nil, nil
	}
	norm := c.Store.Normal(fnT)
	if norm != nil && norm.Tag == types.TFunc {
		if len(norm.Args) != len(n.Args) {
			c.fail(n.Loc, "arity mismatch: expected %d args, found %d", len(norm.Args), len(n.Args))
			return nil, nil
		}
		argEs := make([]tc.Expr, len(n.Args))
		for i, a := range n.Args {
			at, ae := c.TypeCheckExpr(scope, a)
			if at == nil {
				return nil, nil
			}
			if !c.Store.TypesEqual(at, norm.Args[i]) {
				c.fail(a.Location(), "expected type %s, found %s", norm.Args[i], at)
				return nil, nil
			}
			argEs[i] = ae
		}
		return norm.Ret, &tc.FuncApply{Func: fnE, Args: argEs, Loc: n.Loc}
	}
	if norm != nil && norm.Tag == types.TTypeType && norm.TTInner.Tag == types.TData && norm.TTInner.DataKind == types.Struct {
		dataT := norm.TTInner
		if len(dataT.Fields) != len(n.Args) {
			c.fail(n.Loc, "arity mismatch: expected %d fields, found %d", len(dataT.Fields), len(n.Args))
			return nil, nil
		}
		argEs := make([]tc.Expr, len(n.Args))
		for i, a := range n.Args {
			at, ae := c.TypeCheckExpr(scope, a)
			if at == nil {
				return nil, nil
			}
			if !c.Store.TypesEqual(at, dataT.Fields[i].Type) {
				c.fail(a.Location(), "expected type %s, found %s", dataT.Fields[i].Type, at)
				return nil, nil
			}
			argEs[i] = ae
		}
		return dataT, &tc.StructValue{Args: argEs}
	}
	c.fail(n.Loc, "expected function or struct type in application")
	return nil, nil
}

// checkAccess implements DataAccess for both struct and union objects.
func (c *Checker) checkAccess(scope *Scope, n *ast.MiscAccess) (*types.Type, tc.Expr) {
	objT, objE := c.TypeCheckExpr(scope, n.Obj)
	if objT == nil {
		return nil, nil
	}
	norm := c.Store.Normal(objT)
	if norm == nil || norm.Tag != types.TData {
		c.fail(n.Loc, "expected struct or union in field access")
		return nil, nil
	}
	idx := fieldIndex(norm, n.Field.Text)
	if idx < 0 {
		c.fail(n.Field.Loc, "no such field: %q", n.Field.Text)
		return nil, nil
	}
	return norm.Fields[idx].Type, &tc.DataAccess{
		IsUnion: norm.DataKind == types.Union,
		Obj:     objE, Tag: idx, Loc: n.Loc,
	}
}

// checkProcWrapper builds the zero-argument function that represents a
// process value (spec §4.C "Eval/Link/Exec"): the body is checked in a
// dedicated (non-phantom) scope that also collects captures.
func (c *Checker) checkProcWrapper(scope *Scope, loc kind.Loc, body func(*Scope) (*types.Type, tc.Expr)) (*types.Type, tc.Expr) {
	child := scope.NewChild(false)
	innerT, innerE := body(child)
	if innerT == nil {
		return nil, nil
	}
	c.emitWarnings(child)
	pt := c.Store.NewProc(loc, innerT)
	return pt, &tc.FuncValue{Captured: capturedIndices(child), Argc: 0, Body: innerE}
}

func (c *Checker) checkLink(scope *Scope, n *ast.Link) (*types.Type, tc.Expr) {
	return c.checkProcWrapper(scope, n.Loc, func(body *Scope) (*types.Type, tc.Expr) {
		linkT := c.TypeCheckType(body, n.Type)
		if linkT == nil {
			return nil, nil
		}
		getIdx := body.Push(n.Get.Text, linkT)
		putIdx := body.Push(n.Put.Text, linkT)
		innerT, innerE := c.TypeCheckExpr(body, n.Body)
		if innerT == nil {
			return nil, nil
		}
		return innerT, &tc.Link{GetIndex: getIdx, PutIndex: putIdx, Body: innerE}
	})
}

// checkGet implements spec §4.F "Get": the port expression's checked
// type is the payload type a Link binds its get-name to, which is
// exactly the value a Get instruction produces.
func (c *Checker) checkGet(scope *Scope, n *ast.GetExpr) (*types.Type, tc.Expr) {
	portT, portE := c.TypeCheckExpr(scope, n.Port)
	if portT == nil {
		return nil, nil
	}
	return portT, &tc.Get{Port: portE}
}

// checkPut implements spec §4.F "Put": Arg must match the port's
// payload type; the expression's own value is the unit struct Put
// produces once the value is accepted.
func (c *Checker) checkPut(scope *Scope, n *ast.PutExpr) (*types.Type, tc.Expr) {
	portT, portE := c.TypeCheckExpr(scope, n.Port)
	if portT == nil {
		return nil, nil
	}
	argT, argE := c.TypeCheckExpr(scope, n.Arg)
	if argT == nil {
		return nil, nil
	}
	if !c.Store.TypesEqual(argT, portT) {
		c.fail(n.Arg.Location(), "expected type %s, found %s", portT, argT)
		return nil, nil
	}
	unitT := c.Store.NewData(n.Loc, types.Struct, nil)
	return unitT, &tc.Put{Port: portE, Arg: argE}
}

func (c *Checker) checkExec(scope *Scope, n *ast.Exec) (*types.Type, tc.Expr) {
	return c.checkProcWrapper(scope, n.Loc, func(body *Scope) (*types.Type, tc.Expr) {
		bindings := make([]tc.Expr, len(n.Bindings))
		indices := make([]int, len(n.Bindings))
		for i, b := range n.Bindings {
			procT, procE := c.TypeCheckExpr(scope, b.Proc)
			if procT == nil {
				return nil, nil
			}
			normProc := c.Store.Normal(procT)
			if normProc == nil || normProc.Tag != types.TProc {
				c.fail(b.Proc.Location(), "expected process type in exec binding")
				return nil, nil
			}
			resultT := normProc.Inner
			if b.Type != nil {
				declT := c.TypeCheckType(scope, b.Type)
				if declT == nil {
					return nil, nil
				}
				if !c.Store.TypesEqual(declT, resultT) {
					c.fail(b.Proc.Location(), "expected type %s, found %s", declT, resultT)
					return nil, nil
				}
			}
			indices[i] = body.Push(b.Name.Text, resultT)
			bindings[i] = procE
		}
		innerT, innerE := c.TypeCheckExpr(body, n.Body)
		if innerT == nil {
			return nil, nil
		}
		return innerT, &tc.Exec{Bindings: bindings, Indices: indices, Body: innerE}
	})
}

// checkPolyValue implements spec §4.C "Poly value". The formal argument
// must have kind level >= 1 and type namespace; the Tc emitted erases the
// type abstraction at runtime via a dummy non-recursive Let.
func (c *Checker) checkPolyValue(scope *Scope, n *ast.PolyValue) (*types.Type, tc.Expr) {
	argK := c.TypeCheckType(scope, n.Arg.Type)
	if argK == nil {
		return nil, nil
	}
	k := c.Store.GetKind(argK)
	level := kindLevel(k)
	if level < 1 {
		c.fail(n.Arg.Name.Loc, "poly argument must have kind level >= 1, found level %d", level)
		return nil, nil
	}
	if n.Arg.Name.NS != ast.TypeNS {
		c.fail(n.Arg.Name.Loc, "namespace mismatch: poly argument must be in type namespace")
		return nil, nil
	}
	argVar := c.Store.NewVar(n.Arg.Name.Loc, k, n.Arg.Name.Text)

	child := scope.NewLexicalChild(false)
	argIdx := child.Push(n.Arg.Name.Text, argVar)
	bodyT, bodyE := c.TypeCheckExpr(child, n.Body)
	if bodyT == nil {
		return nil, nil
	}
	c.emitWarnings(child)
	polyT := c.Store.NewPoly(n.Loc, argVar, bodyT)
	// erase the type abstraction at runtime: a non-recursive Let binding
	// a TypeValue placeholder, then the body.
	return polyT, &tc.Let{
		Recursive: false,
		Bindings:  []tc.Binding{{Name: n.Arg.Name.Text, Index: argIdx, Expr: &tc.TypeValue{}}},
		Body:      bodyE,
	}
}

// checkPolyApplyExpr implements spec §4.C "Poly apply": the runtime Tc
// is simply the poly expression's Tc (type application is erased).
func (c *Checker) checkPolyApplyExpr(scope *Scope, n *ast.PolyApply) (*types.Type, tc.Expr) {
	polyT, polyE := c.TypeCheckExpr(scope, n.Poly)
	if polyT == nil {
		return nil, nil
	}
	pk := c.Store.GetKind(polyT)
	if pk.IsBasic() {
		c.fail(n.Loc, "expected poly kind in application, found basic kind")
		return nil, nil
	}
	argT := c.TypeCheckExprForType(scope, n.Arg)
	if argT == nil {
		return nil, nil
	}
	argK := c.Store.GetKind(argT)
	if !types.KindsEqual(argK, pk.Arg) {
		c.fail(n.Loc, "expected kind %v, found %v", pk.Arg, argK)
		return nil, nil
	}
	resultT := c.Store.NewPolyApply(n.Loc, polyT, argT)
	return resultT, polyE
}

// buildListType constructs the concrete recursive ADT List@<T> =
// union { cons: *(T, List@<T>), nil: *() }, tying the knot through
// SetVarValue exactly as any other recursive type definition would
// (spec §4.C "List"; see DESIGN.md for why this module builds the
// concrete cons/nil union rather than the Church-style fold the
// spec's closed-form formula shows).
func (c *Checker) buildListType(loc kind.Loc, elemType *types.Type) *types.Type {
	self := c.Store.NewVar(loc, kind.Basic(loc, 0), "List@")
	consFields := []types.Field{
		{Name: "head", Type: elemType},
		{Name: "tail", Type: self},
	}
	fields := []types.Field{
		{Name: "cons", Type: c.Store.NewData(loc, types.Struct, consFields)},
		{Name: "nil", Type: c.Store.NewData(loc, types.Struct, nil)},
	}
	union := c.Store.NewData(loc, types.Union, fields)
	c.Store.SetVarValue(self, union)
	return self
}

// checkList implements spec §4.C "List": elements must share a single
// type; the result is the concrete List@<T> built by buildListType,
// folded right-to-left into nested cons cells.
func (c *Checker) checkList(scope *Scope, n *ast.List) (*types.Type, tc.Expr) {
	if len(n.Elems) == 0 {
		c.fail(n.Loc, "empty list literal requires an explicit element type")
		return nil, nil
	}
	elemT, firstE := c.TypeCheckExpr(scope, n.Elems[0])
	if elemT == nil {
		return nil, nil
	}
	elemEs := make([]tc.Expr, len(n.Elems))
	elemEs[0] = firstE
	for i := 1; i < len(n.Elems); i++ {
		et, ee := c.TypeCheckExpr(scope, n.Elems[i])
		if et == nil {
			return nil, nil
		}
		if !c.Store.TypesEqual(et, elemT) {
			c.fail(n.Elems[i].Location(), "list element type mismatch: expected %s, found %s", elemT, et)
			return nil, nil
		}
		elemEs[i] = ee
	}

	listT := c.buildListType(n.Loc, elemT)
	norm := c.Store.Normal(listT)
	nilIdx, consIdx := fieldIndex(norm, "nil"), fieldIndex(norm, "cons")

	result := tc.Expr(&tc.UnionValue{Tag: nilIdx, Arg: &tc.StructValue{}})
	for i := len(elemEs) - 1; i >= 0; i-- {
		result = &tc.UnionValue{Tag: consIdx, Arg: &tc.StructValue{Args: []tc.Expr{elemEs[i], result}}}
	}
	return listT, result
}

// checkLiteral implements spec §4.C "Literal spec|word": spec must be a
// struct type whose field names are each a single character and whose
// fields all share one type; every character of word selects a field,
// building a List@ of that field's type.
func (c *Checker) checkLiteral(scope *Scope, n *ast.Literal) (*types.Type, tc.Expr) {
	specT, specE := c.TypeCheckExpr(scope, n.Spec)
	if specT == nil {
		return nil, nil
	}
	norm := c.Store.Normal(specT)
	if norm == nil || norm.Tag != types.TData || norm.DataKind != types.Struct {
		c.fail(n.Loc, "literal spec must be a struct type")
		return nil, nil
	}

	var elemType *types.Type
	fieldByChar := map[byte]int{}
	for i, f := range norm.Fields {
		if len(f.Name) != 1 {
			c.fail(n.Loc, "literal spec field names must be single characters, found %q", f.Name)
			return nil, nil
		}
		fieldByChar[f.Name[0]] = i
		if elemType == nil {
			elemType = f.Type
		} else if !c.Store.TypesEqual(elemType, f.Type) {
			c.fail(n.Loc, "literal spec fields must all share one type")
			return nil, nil
		}
	}
	if len(n.Word) == 0 {
		c.fail(n.Loc, "empty literal requires an explicit element type")
		return nil, nil
	}

	listT := c.buildListType(n.Loc, elemType)
	normList := c.Store.Normal(listT)
	nilIdx, consIdx := fieldIndex(normList, "nil"), fieldIndex(normList, "cons")

	// "spec" is bound via a synthetic Let (mirroring checkLet) so every
	// access below reads it at its real frame index rather than assuming
	// it always lands at local 0.
	specScope := scope.NewLexicalChild(false)
	specIdx := specScope.Push("spec", specT)

	result := tc.Expr(&tc.UnionValue{Tag: nilIdx, Arg: &tc.StructValue{}})
	for i := len(n.Word) - 1; i >= 0; i-- {
		ch := n.Word[i]
		idx, ok := fieldByChar[ch]
		if !ok {
			c.fail(n.Loc, "character %q not a field of literal spec", string(ch))
			return nil, nil
		}
		access := &tc.DataAccess{
			Obj: &tc.Var{Index: tc.VarIndex{Source: tc.Local, Index: specIdx}},
			Tag: idx, Loc: n.Loc,
		}
		result = &tc.UnionValue{Tag: consIdx, Arg: &tc.StructValue{Args: []tc.Expr{access, result}}}
	}
	return listT, &tc.Let{
		Bindings: []tc.Binding{{Name: "spec", Index: specIdx, Expr: specE}},
		Body:     result,
	}
}

// checkModuleRef resolves a module reference to the variable holding its
// already-checked value in the top-level module scope (spec §4.C
// "module linking": each module becomes a sequential let-binding, in the
// order produced by the loader's topological sort).
func (c *Checker) checkModuleRef(scope *Scope, n *ast.ModuleRef) (*types.Type, tc.Expr) {
	if len(n.Path) == 0 {
		c.fail(n.Loc, "empty module reference")
		return nil, nil
	}
	name := n.Path[len(n.Path)-1].Text
	t, idx, ok := scope.Lookup(name, true)
	if !ok {
		c.fail(n.Loc, "module not defined: %q", name)
		return nil, nil
	}
	return t, &tc.Var{Index: idx}
}
