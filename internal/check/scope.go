package check

import (
	"strings"

	"fblego/internal/tc"
	"fblego/internal/types"
)

type scopeVar struct {
	name     string
	typ      *types.Type
	index    int
	used     bool
	accessed bool
}

type captureVar struct {
	name string
	typ  *types.Type
}

// Scope is one function/process frame's checking context: a stack of
// local bindings (arguments then let-bindings, in textual order) plus the
// vector of names captured from enclosing scopes (spec §4.C "Scope").
//
// A Let, a poly value's erasure binding, and a literal's synthetic "spec"
// binding do not open a new compiled frame: their elaborated Tc compiles
// inline into whichever frame was already in progress (internal/compiler's
// compileLet), so their Scope shares the enclosing frame's local-index
// counter via NewLexicalChild rather than starting a fresh one. Only a
// genuine closure boundary (a function/process body, or the program's own
// top-level block) is isFrame and gets its own counter, via NewChild.
// Index values Push hands out are therefore stable, frame-wide identifiers
// — NOT physical frame slots; internal/compiler maps each one to whatever
// slot it actually allocates, since its own allocation also has to make
// room for temporaries a Scope never sees.
type Scope struct {
	parent    *Scope
	locals    []*scopeVar
	captured  []captureVar
	capIndex  map[string]int
	isFrame   bool
	nextLocal *int
	// phantom scopes (TypeCheckExprForType) do not mark resolved
	// variables as "used" in any ancestor scope.
	phantom bool
}

// NewRootScope creates a scope with no parent (top level): the program's
// main expression compiles as its own frame, same as a function body.
func NewRootScope() *Scope {
	n := 0
	return &Scope{capIndex: map[string]int{}, isFrame: true, nextLocal: &n}
}

// NewChild creates a function/process body scope nested in s: a genuine
// closure boundary, compiled as its own frame with a fresh local counter.
func (s *Scope) NewChild(phantom bool) *Scope {
	n := 0
	return &Scope{parent: s, capIndex: map[string]int{}, phantom: phantom || s.phantom, isFrame: true, nextLocal: &n}
}

// NewLexicalChild creates a scope for a construct that elaborates to a
// Let compiled inline into the enclosing frame (Let itself, a poly
// value's runtime erasure, a literal's synthetic spec binding): it shares
// s's local counter instead of starting a new one.
func (s *Scope) NewLexicalChild(phantom bool) *Scope {
	return &Scope{parent: s, capIndex: map[string]int{}, phantom: phantom || s.phantom, isFrame: false, nextLocal: s.nextLocal}
}

// Push declares a new local (argument or let-binding); returns its
// frame-wide local index.
func (s *Scope) Push(name string, t *types.Type) int {
	idx := *s.nextLocal
	*s.nextLocal++
	s.locals = append(s.locals, &scopeVar{name: name, typ: t, index: idx})
	return idx
}

// Captured returns the ordered capture list built up by Lookup calls.
func (s *Scope) Captured() []captureVar { return s.captured }

// Lookup resolves name to a variable index, searching this scope's
// locals, then (for a frame scope) its own capture list, then walking up
// through parents. A lexical (non-frame) scope that doesn't own name
// forwards straight to its parent's Lookup unchanged: crossing it is not
// a closure boundary, so it never starts its own capture bookkeeping.
// markUsed controls whether the resolved variable's "used" flag is set;
// it becomes false automatically once a lookup crosses a phantom scope
// boundary.
func (s *Scope) Lookup(name string, markUsed bool) (*types.Type, tc.VarIndex, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		v := s.locals[i]
		if v.name == name {
			v.accessed = true
			if markUsed && !s.phantom {
				v.used = true
			}
			return v.typ, tc.VarIndex{Source: tc.Local, Index: v.index}, true
		}
	}
	if s.parent == nil {
		return nil, tc.VarIndex{}, false
	}
	parentMarkUsed := markUsed && !s.phantom
	if !s.isFrame {
		return s.parent.Lookup(name, parentMarkUsed)
	}
	if idx, ok := s.capIndex[name]; ok {
		return s.captured[idx].typ, tc.VarIndex{Source: tc.Static, Index: idx}, true
	}
	t, _, ok := s.parent.Lookup(name, parentMarkUsed)
	if !ok {
		return nil, tc.VarIndex{}, false
	}
	idx := len(s.captured)
	s.captured = append(s.captured, captureVar{name: name, typ: t})
	s.capIndex[name] = idx
	return t, tc.VarIndex{Source: tc.Static, Index: idx}, true
}

// PopWarnings returns the names of locals that were neither used nor
// accessed and do not start with "_" (spec §4.C "Scope": on pop, these
// emit warnings).
func (s *Scope) PopWarnings() []string {
	var warn []string
	for _, v := range s.locals {
		if !v.used && !v.accessed && !strings.HasPrefix(v.name, "_") {
			warn = append(warn, v.name)
		}
	}
	return warn
}
