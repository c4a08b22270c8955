package types

import "fblego/internal/kind"

// GetKind computes the kind of t (spec §4.B.1).
func (s *Store) GetKind(t *Type) *kind.Kind {
	switch t.Tag {
	case TData, TFunc, TProc:
		return kind.Basic(t.Loc, 0)
	case TPoly:
		return kind.Poly(t.Loc, s.GetKind(t.PolyArg).LevelAdjust(1), s.GetKind(t.PolyBody))
	case TPolyApply:
		pk := s.GetKind(t.PolyFn)
		if pk.IsBasic() {
			panic("types: GetKind(PolyApply) of non-poly-kinded poly")
		}
		return pk.Result
	case TVar:
		return t.VarKind.Clone()
	case TTypeType:
		return s.GetKind(t.TTInner).LevelAdjust(1)
	default:
		panic("types: GetKind unknown tag")
	}
}

// KindsEqual is purely structural kind equality (spec §4.B.6).
func KindsEqual(a, b *kind.Kind) bool { return kind.Equal(a, b) }

// HasParam reports whether t's (open) structure mentions param, with a
// visited set keyed by pointer identity to terminate on cyclic types
// (spec §4.B.2). A Poly shadows param when its bound var is param.
func (s *Store) HasParam(t, param *Type) bool {
	return s.hasParam(t, param, map[*Type]bool{})
}

func (s *Store) hasParam(t, param *Type, visited map[*Type]bool) bool {
	if t == nil {
		return false
	}
	if t == param {
		return true
	}
	if visited[t] {
		return false
	}
	visited[t] = true
	switch t.Tag {
	case TData:
		for _, f := range t.Fields {
			if s.hasParam(f.Type, param, visited) {
				return true
			}
		}
		return false
	case TFunc:
		for _, a := range t.Args {
			if s.hasParam(a, param, visited) {
				return true
			}
		}
		return s.hasParam(t.Ret, param, visited)
	case TProc:
		return s.hasParam(t.Inner, param, visited)
	case TPoly:
		if t.PolyArg == param {
			return false
		}
		return s.hasParam(t.PolyBody, param, visited)
	case TPolyApply:
		return s.hasParam(t.PolyFn, param, visited) || s.hasParam(t.PolyApplyArg, param, visited)
	case TVar:
		if t.Value != nil {
			return s.hasParam(t.Value, param, visited)
		}
		return false
	case TTypeType:
		return s.hasParam(t.TTInner, param, visited)
	default:
		return false
	}
}

// Subst performs whole-structure substitution of param -> arg through t,
// preserving spec §3.2's invariants (spec §4.B.3). It short-circuits when
// HasParam is false. Newly-created Vars get fresh ids; every other
// variant inherits the source term's id, which is what lets TypesEqual's
// same-id fast path keep working after substitution. Var-with-value
// nodes are memoized by the pointer of their (pre-substitution) value so
// that substituting through a cyclic recursive type terminates.
func (s *Store) Subst(t, param, arg *Type) *Type {
	return s.subst(t, param, arg, map[*Type]*Type{})
}

func (s *Store) subst(t, param, arg *Type, memo map[*Type]*Type) *Type {
	if !s.HasParam(t, param) {
		s.Arena.Retain(t)
		return t
	}
	switch t.Tag {
	case TVar:
		if t == param {
			s.Arena.Retain(arg)
			return arg
		}
		if t.Value == nil {
			s.Arena.Retain(t)
			return t
		}
		if replacement, ok := memo[t.Value]; ok {
			s.Arena.Retain(replacement)
			return replacement
		}
		newVar := s.NewVar(t.Loc, t.VarKind, t.VarName)
		memo[t.Value] = newVar
		newValue := s.subst(t.Value, param, arg, memo)
		s.SetVarValue(newVar, newValue)
		return newVar

	case TData:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{Name: f.Name, Type: s.subst(f.Type, param, arg, memo)}
		}
		result := s.NewData(t.Loc, t.DataKind, fields)
		result.InheritID(&t.Header)
		return result

	case TFunc:
		args := make([]*Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = s.subst(a, param, arg, memo)
		}
		ret := s.subst(t.Ret, param, arg, memo)
		result := s.NewFunc(t.Loc, args, ret)
		result.InheritID(&t.Header)
		return result

	case TProc:
		inner := s.subst(t.Inner, param, arg, memo)
		result := s.NewProc(t.Loc, inner)
		result.InheritID(&t.Header)
		return result

	case TPoly:
		if t.PolyArg == param {
			s.Arena.Retain(t)
			return t
		}
		body := s.subst(t.PolyBody, param, arg, memo)
		s.Arena.Retain(t.PolyArg)
		result := s.NewPoly(t.Loc, t.PolyArg, body)
		result.InheritID(&t.Header)
		return result

	case TPolyApply:
		fn := s.subst(t.PolyFn, param, arg, memo)
		aarg := s.subst(t.PolyApplyArg, param, arg, memo)
		result := s.NewPolyApply(t.Loc, fn, aarg)
		result.InheritID(&t.Header)
		return result

	case TTypeType:
		inner := s.subst(t.TTInner, param, arg, memo)
		result := s.NewTypeType(t.Loc, inner)
		result.InheritID(&t.Header)
		return result

	default:
		panic("types: Subst unknown tag")
	}
}

// Normal computes the weak head normal form of t (spec §4.B.4), using an
// in-progress id set to break cycles: re-entering normalization on the
// same id returns nil, signaling a vacuous type.
func (s *Store) Normal(t *Type) *Type {
	return s.normal(t, map[uint64]bool{})
}

func (s *Store) normal(t *Type, inProgress map[uint64]bool) *Type {
	if t == nil {
		return nil
	}
	id := t.ID()
	if inProgress[id] {
		return nil
	}
	inProgress[id] = true
	defer delete(inProgress, id)

	switch t.Tag {
	case TPoly:
		// eta: Poly(a, PolyApply(f, a)) => Normal(f), when a does not
		// otherwise occur free in f.
		if t.PolyBody.Tag == TPolyApply && t.PolyBody.PolyApplyArg == t.PolyArg &&
			!s.HasParam(t.PolyBody.PolyFn, t.PolyArg) {
			return s.normal(t.PolyBody.PolyFn, inProgress)
		}
		return t
	case TPolyApply:
		poly := s.normal(t.PolyFn, inProgress)
		if poly == nil {
			return nil
		}
		if poly.Tag != TPoly {
			return t
		}
		substituted := s.Subst(poly.PolyBody, poly.PolyArg, t.PolyApplyArg)
		return s.normal(substituted, inProgress)
	case TVar:
		if t.Value != nil {
			return s.normal(t.Value, inProgress)
		}
		return t
	default:
		return t
	}
}

// IsVacuous reports whether t's normal form is undefined (spec §4.B.4):
// stripping TypeType and Poly layers and normalizing the remainder loops
// back on itself, e.g. `let T = T in T`.
func (s *Store) IsVacuous(t *Type) bool {
	cur := t
	for cur != nil {
		switch cur.Tag {
		case TTypeType:
			cur = cur.TTInner
		case TPoly:
			cur = cur.PolyBody
		default:
			return s.Normal(cur) == nil
		}
	}
	return true
}

type pair struct{ a, b uint64 }

// TypesEqual computes equality on normal forms using a pair-set of
// already-assumed-equal ids to terminate on corecursive types (spec
// §4.B.5).
func (s *Store) TypesEqual(a, b *Type) bool {
	return s.typesEqual(a, b, map[pair]bool{})
}

func (s *Store) typesEqual(a, b *Type, assumed map[pair]bool) bool {
	na, nb := s.Normal(a), s.Normal(b)
	if na == nil || nb == nil {
		return na == nil && nb == nil
	}
	if na.ID() == nb.ID() {
		return true
	}
	key := pair{na.ID(), nb.ID()}
	if assumed[key] {
		return true
	}
	if na.Tag != nb.Tag {
		return false
	}
	switch na.Tag {
	case TData:
		if na.DataKind != nb.DataKind || len(na.Fields) != len(nb.Fields) {
			return false
		}
		for i := range na.Fields {
			if na.Fields[i].Name != nb.Fields[i].Name {
				return false
			}
		}
		assumed[key] = true
		for i := range na.Fields {
			if !s.typesEqual(na.Fields[i].Type, nb.Fields[i].Type, assumed) {
				return false
			}
		}
		return true
	case TFunc:
		if len(na.Args) != len(nb.Args) {
			return false
		}
		assumed[key] = true
		for i := range na.Args {
			if !s.typesEqual(na.Args[i], nb.Args[i], assumed) {
				return false
			}
		}
		return s.typesEqual(na.Ret, nb.Ret, assumed)
	case TProc:
		assumed[key] = true
		return s.typesEqual(na.Inner, nb.Inner, assumed)
	case TPoly:
		if !KindsEqual(s.GetKind(na.PolyArg), s.GetKind(nb.PolyArg)) {
			return false
		}
		assumed[key] = true
		assumed[pair{na.PolyArg.ID(), nb.PolyArg.ID()}] = true
		return s.typesEqual(na.PolyBody, nb.PolyBody, assumed)
	case TVar:
		return na == nb
	case TTypeType:
		assumed[key] = true
		return s.typesEqual(na.TTInner, nb.TTInner, assumed)
	case TPolyApply:
		panic("types: PolyApply reached in normal form during TypesEqual")
	default:
		return false
	}
}
