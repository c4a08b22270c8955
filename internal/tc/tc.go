// Package tc defines the typed intermediate representation produced by
// the type checker (internal/check) and consumed by the bytecode
// compiler (internal/compiler). See spec §3.3.
package tc

import "fblego/internal/kind"

// VarSource distinguishes a local (current frame) variable from a static
// (captured from an enclosing scope) one.
type VarSource int

const (
	Local VarSource = iota
	Static
)

// VarIndex is a de-Bruijn-like reference, either local or static.
type VarIndex struct {
	Source VarSource
	Index  int
}

// Expr is any node of the typed IR.
type Expr interface{ isExpr() }

type base struct{}

func (base) isExpr() {}

// TypeValue is the runtime witness of an erased type.
type TypeValue struct{ base }

// Var reads a variable by index.
type Var struct {
	base
	Index VarIndex
}

// Binding is one entry of a Let. Index is the binding's frame-wide local
// index, as assigned by internal/check's Scope.Push; internal/compiler
// maps it to whatever physical slot it actually allocates.
type Binding struct {
	Name  string
	Index int
	Expr  Expr
}

// Let introduces one or more local bindings, optionally recursive.
type Let struct {
	base
	Recursive bool
	Bindings  []Binding
	Body      Expr
}

// StructValue constructs a struct from already-checked arguments.
type StructValue struct {
	base
	Args []Expr
}

// UnionValue constructs a union value with the given tag.
type UnionValue struct {
	base
	Tag int
	Arg Expr
}

// DataAccess reads a struct field or (fallibly) a union field.
type DataAccess struct {
	base
	IsUnion bool
	Obj     Expr
	Tag     int
	Loc     kind.Loc
}

// UnionSelect dispatches on a union's tag through a jump table that maps
// every tag to a branch index; defaults share a branch index across
// multiple tags.
type UnionSelect struct {
	base
	Condition Expr
	Choices   []int // one entry per union field, in declaration order
	Branches  []Expr
	Loc       kind.Loc
}

// FuncValue allocates a closure: Captured lists the enclosing frame's
// indices this closure reads; Argc is the function's arity.
type FuncValue struct {
	base
	Captured []VarIndex
	Argc     int
	Body     Expr
}

// FuncApply applies a function (or a struct-value-with-explicit-type) to
// arguments.
type FuncApply struct {
	base
	Func Expr
	Args []Expr
	Loc  kind.Loc
}

// Link introduces two locals (get-port, put-port) and computes Body as
// the link's result. GetIndex/PutIndex are their frame-wide local
// indices, assigned by internal/check the same way a Let binding's are.
type Link struct {
	base
	GetIndex int
	PutIndex int
	Body     Expr
}

// Get reads the next value off a link or port, blocking until one is
// available (spec §4.F "Get/Put").
type Get struct {
	base
	Port Expr
}

// Put enqueues Arg on a link or port, blocking if the port is full;
// evaluates to the unit struct once accepted.
type Put struct {
	base
	Port Expr
	Arg  Expr
}

// Exec introduces one local per binding, each a proc expression executed
// concurrently via Fork before Body runs. Indices holds each binding's
// frame-wide local index, parallel to Bindings.
type Exec struct {
	base
	Bindings []Expr
	Indices  []int
	Body     Expr
}

// Profile wraps Body's evaluation in a named profiling block.
type Profile struct {
	base
	Label string
	Loc   kind.Loc
	Body  Expr
}

// SymbolicValue and SymbolicCompile are reserved for a future partial
// evaluation extension (spec §3.3); the compiler rejects them.
type SymbolicValue struct{ base }
type SymbolicCompile struct {
	base
	Body Expr
}
