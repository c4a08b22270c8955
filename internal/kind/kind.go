// Package kind implements the kind algebra of spec §3.1: basic kinds
// (levels) and poly kinds (arg -> result), with level adjustment and
// structural equality.
package kind

import "fmt"

// Loc is a source location, opaque to this package.
type Loc struct {
	File string
	Line int
	Col  int
}

// Kind is a basic kind (level N) or a poly kind (arg -> result).
type Kind struct {
	Loc    Loc
	Level  int   // valid when Arg == nil
	Arg    *Kind // non-nil for a poly kind
	Result *Kind // non-nil iff Arg is non-nil
}

// Basic constructs a basic kind at the given level.
func Basic(loc Loc, level int) *Kind {
	return &Kind{Loc: loc, Level: level}
}

// Poly constructs a poly kind (arg -> result).
func Poly(loc Loc, arg, result *Kind) *Kind {
	return &Kind{Loc: loc, Arg: arg, Result: result}
}

// IsBasic reports whether k is a basic (non-poly) kind.
func (k *Kind) IsBasic() bool { return k.Arg == nil }

// LevelAdjust adds delta to every basic-kind level reachable from k,
// applied only at the leaves (basic kinds); poly structure is preserved.
func (k *Kind) LevelAdjust(delta int) *Kind {
	if k == nil {
		return nil
	}
	if k.IsBasic() {
		return Basic(k.Loc, k.Level+delta)
	}
	return Poly(k.Loc, k.Arg.LevelAdjust(delta), k.Result.LevelAdjust(delta))
}

// Clone returns a deep copy of k so each owner can hold its own node.
func (k *Kind) Clone() *Kind {
	if k == nil {
		return nil
	}
	if k.IsBasic() {
		return Basic(k.Loc, k.Level)
	}
	return Poly(k.Loc, k.Arg.Clone(), k.Result.Clone())
}

// Equal is purely structural kind equality (spec §4.B.6).
func Equal(a, b *Kind) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsBasic() != b.IsBasic() {
		return false
	}
	if a.IsBasic() {
		return a.Level == b.Level
	}
	return Equal(a.Arg, b.Arg) && Equal(a.Result, b.Result)
}

// String renders a kind for diagnostics.
func (k *Kind) String() string {
	if k == nil {
		return "<nil-kind>"
	}
	if k.IsBasic() {
		return fmt.Sprintf("@%d", k.Level)
	}
	return "(" + k.Arg.String() + " -> " + k.Result.String() + ")"
}
