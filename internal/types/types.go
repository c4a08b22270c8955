// Package types implements the type representation and operations of
// spec §3.2 and §4.B: a graph of types living on the managed graph heap
// (internal/heap), built exclusively through smart constructors that
// maintain the TYPE-propagation invariants, plus GetKind, HasParam,
// Subst, Normal, TypesEqual and KindsEqual.
package types

import (
	"fblego/internal/heap"
	"fblego/internal/kind"
)

// Tag discriminates the type variants of spec §3.2.
type Tag int

const (
	TData Tag = iota
	TFunc
	TProc
	TPoly
	TPolyApply
	TVar
	TTypeType
)

func (t Tag) String() string {
	switch t {
	case TData:
		return "Data"
	case TFunc:
		return "Func"
	case TProc:
		return "Proc"
	case TPoly:
		return "Poly"
	case TPolyApply:
		return "PolyApply"
	case TVar:
		return "Var"
	case TTypeType:
		return "TypeType"
	default:
		return "?"
	}
}

// DataKind distinguishes struct from union Data types.
type DataKind int

const (
	Struct DataKind = iota
	Union
)

// Field is a named, typed field of a Data type.
type Field struct {
	Name string
	Type *Type
}

// Type is a node in the type graph. All variants share a heap.Header
// (identity/refcounting), a tag, and a source location.
type Type struct {
	heap.Header
	Tag Tag
	Loc kind.Loc

	// Data
	DataKind DataKind
	Fields   []Field

	// Func
	Args []*Type
	Ret  *Type

	// Proc
	Inner *Type

	// Poly: PolyArg is the bound Var, PolyBody the body.
	PolyArg  *Type
	PolyBody *Type

	// PolyApply: PolyFn is the poly being applied, PolyApplyArg the arg.
	PolyFn       *Type
	PolyApplyArg *Type

	// Var
	VarKind *kind.Kind
	VarName string
	Value   *Type // nil => abstract parameter

	// TypeType
	TTInner *Type
}

// VisitRefs exposes t's outgoing edges to the managed graph heap.
func (t *Type) VisitRefs(visit func(heap.Object)) {
	switch t.Tag {
	case TData:
		for _, f := range t.Fields {
			visit(f.Type)
		}
	case TFunc:
		for _, a := range t.Args {
			visit(a)
		}
		visit(t.Ret)
	case TProc:
		visit(t.Inner)
	case TPoly:
		visit(t.PolyArg)
		visit(t.PolyBody)
	case TPolyApply:
		visit(t.PolyFn)
		visit(t.PolyApplyArg)
	case TVar:
		if t.Value != nil {
			visit(t.Value)
		}
	case TTypeType:
		visit(t.TTInner)
	}
}

// Store is a type arena: the managed graph heap specialized to Type
// objects, plus the smart constructors that enforce spec §3.2's
// invariants.
type Store struct {
	Arena *heap.Arena
}

// NewStore creates an empty type store.
func NewStore() *Store {
	return &Store{Arena: heap.NewArena(nil)}
}

func (s *Store) alloc(t *Type) *Type {
	s.Arena.Init(t)
	return t
}

// NewData allocates a struct or union type. Field name uniqueness is a
// checker-level concern (spec §4.C), not enforced here.
func (s *Store) NewData(loc kind.Loc, dk DataKind, fields []Field) *Type {
	t := s.alloc(&Type{Tag: TData, Loc: loc, DataKind: dk, Fields: fields})
	for _, f := range fields {
		s.Arena.AddRef(t, f.Type)
	}
	return t
}

// DuplicateFieldName returns the first duplicated field name, if any.
func DuplicateFieldName(fields []Field) (string, bool) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			return f.Name, true
		}
		seen[f.Name] = true
	}
	return "", false
}

// NewFunc allocates a function type.
func (s *Store) NewFunc(loc kind.Loc, args []*Type, ret *Type) *Type {
	t := s.alloc(&Type{Tag: TFunc, Loc: loc, Args: args, Ret: ret})
	for _, a := range args {
		s.Arena.AddRef(t, a)
	}
	s.Arena.AddRef(t, ret)
	return t
}

// NewProc allocates a process type.
func (s *Store) NewProc(loc kind.Loc, inner *Type) *Type {
	t := s.alloc(&Type{Tag: TProc, Loc: loc, Inner: inner})
	s.Arena.AddRef(t, inner)
	return t
}

// NewTypeType allocates the "type of a type" wrapper.
func (s *Store) NewTypeType(loc kind.Loc, inner *Type) *Type {
	t := s.alloc(&Type{Tag: TTypeType, Loc: loc, TTInner: inner})
	s.Arena.AddRef(t, inner)
	return t
}

// NewPoly allocates a type-level abstraction, maintaining invariant 1:
// Poly of TypeType(x) is rewritten to TypeType(Poly of x).
func (s *Store) NewPoly(loc kind.Loc, arg, body *Type) *Type {
	if body.Tag == TTypeType {
		inner := s.NewPoly(loc, arg, body.TTInner)
		return s.NewTypeType(loc, inner)
	}
	t := s.alloc(&Type{Tag: TPoly, Loc: loc, PolyArg: arg, PolyBody: body})
	s.Arena.AddRef(t, arg)
	s.Arena.AddRef(t, body)
	return t
}

// NewPolyApply allocates a type-level application, maintaining invariant
// 2: PolyApply(TypeType(f), x) is rewritten to TypeType(PolyApply(f, x)).
func (s *Store) NewPolyApply(loc kind.Loc, poly, arg *Type) *Type {
	if poly.Tag == TTypeType {
		inner := s.NewPolyApply(loc, poly.TTInner, arg)
		return s.NewTypeType(loc, inner)
	}
	t := s.alloc(&Type{Tag: TPolyApply, Loc: loc, PolyFn: poly, PolyApplyArg: arg})
	s.Arena.AddRef(t, poly)
	s.Arena.AddRef(t, arg)
	return t
}

// NewVar allocates an abstract type variable of kind k (invariant 3: the
// stored kind is always basic level 0; a basic kind of level >= 1 is
// represented by wrapping the level-0 var in that many TypeType layers,
// and GetKind's TypeType rule reconstructs the original level).
func (s *Store) NewVar(loc kind.Loc, k *kind.Kind, name string) *Type {
	if k.IsBasic() && k.Level > 0 {
		inner := s.NewVar(loc, kind.Basic(k.Loc, 0), name)
		wrapped := inner
		for i := 0; i < k.Level; i++ {
			wrapped = s.NewTypeType(loc, wrapped)
		}
		return wrapped
	}
	return s.alloc(&Type{Tag: TVar, Loc: loc, VarKind: k.Clone(), VarName: name})
}

// SetVarValue ties the knot on a recursive alias: v must be a (possibly
// TypeType-wrapped) abstract Var; value must be wrapped to the same
// depth (invariant 4). This is the only place a value-level cycle can be
// created, and it is where the managed graph heap's cycle detector is
// exercised for recursive types.
func (s *Store) SetVarValue(v, value *Type) {
	for v.Tag == TTypeType {
		if value.Tag != TTypeType {
			panic("types: SetVarValue kind-level mismatch")
		}
		v, value = v.TTInner, value.TTInner
	}
	if v.Tag != TVar {
		panic("types: SetVarValue on non-Var")
	}
	v.Value = value
	s.Arena.AddRef(v, value)
}

// String renders a Var by its name and any other type by its tag.
func (t *Type) String() string {
	switch t.Tag {
	case TVar:
		return t.VarName
	default:
		return t.Tag.String()
	}
}
