// Package bytecode implements the InstrBlock instruction model of spec
// §3.4: the output of the bytecode compiler (internal/compiler) and the
// input to the interpreter (internal/vm).
package bytecode

import (
	"fblego/internal/heap"
	"fblego/internal/kind"
)

// Section names a frame's statics (captured) or locals array.
type Section int

const (
	Statics Section = iota
	Locals
)

// FrameIndex is a (section, index) reference into a frame.
type FrameIndex struct {
	Section Section
	Index   int
}

// LocalIndex is an index into a frame's locals array; every instruction
// writes its result to one.
type LocalIndex int

// ProfileOpKind distinguishes the three profiling hooks a compiled
// instruction can carry (spec §3.4, §4.D "Profile wrappers").
type ProfileOpKind int

const (
	ProfileEnter ProfileOpKind = iota
	ProfileExit
	ProfileAutoExit
)

// ProfileOp is one entry of an instruction's profile-operation list,
// naming the call-graph block it enters, exits, or auto-exits.
type ProfileOp struct {
	Kind    ProfileOpKind
	BlockID int
}

// Instr is any bytecode instruction (spec §3.4's opcode table).
type Instr interface {
	isInstr()
	ProfileOps() []ProfileOp
	AddProfileOp(op ProfileOp)
}

type base struct {
	Profile []ProfileOp
}

func (base) isInstr()                      {}
func (b *base) ProfileOps() []ProfileOp    { return b.Profile }
func (b *base) AddProfileOp(op ProfileOp)   { b.Profile = append(b.Profile, op) }

// StructValue allocates a struct from argument frame indices.
type StructValue struct {
	base
	Args []FrameIndex
	Dest LocalIndex
}

// UnionValue allocates a union with the given tag.
type UnionValue struct {
	base
	Tag  int
	Arg  FrameIndex
	Dest LocalIndex
}

// DataAccess reads a struct field, or fallibly a union field (aborting
// the thread with a runtime error on tag mismatch when IsUnion is set).
type DataAccess struct {
	base
	IsUnion bool
	Obj     FrameIndex
	Tag     int
	Dest    LocalIndex
	Loc     kind.Loc
}

// UnionSelect adds Jumps[condition.tag] to the program counter.
type UnionSelect struct {
	base
	Condition FrameIndex
	Jumps     []int
	Loc       kind.Loc
}

// Jump adds Offset (forward only) to the program counter.
type Jump struct {
	base
	Offset int
}

// FuncValue allocates a closure over the enclosing frame's Scope
// indices, running Code when applied.
type FuncValue struct {
	base
	Argc  int
	Scope []FrameIndex
	Code  *InstrBlock
	Dest  LocalIndex
}

// Release early-drops a local slot's reference.
type Release struct {
	base
	Local LocalIndex
}

// Call applies Func to Args. If Exit is set this is a tail call: the
// interpreter replaces the current frame instead of pushing a new one.
type Call struct {
	base
	Func FrameIndex
	Args []FrameIndex
	Exit bool
	Dest LocalIndex
	Loc  kind.Loc
}

// Get reads a value from a port (link endpoint).
type Get struct {
	base
	Port FrameIndex
	Dest LocalIndex
}

// Put enqueues Arg on a port.
type Put struct {
	base
	Port FrameIndex
	Arg  FrameIndex
	Dest LocalIndex
}

// Link allocates a new link (an unbounded FIFO queue) and its get/put
// ports.
type Link struct {
	base
	GetDest LocalIndex
	PutDest LocalIndex
}

// Fork spawns one child thread per proc arg; the parent blocks until
// all children terminate, writing results into the matching Dests.
type Fork struct {
	base
	Args  []FrameIndex
	Dests []LocalIndex
}

// Copy aliases or moves a value between locals.
type Copy struct {
	base
	Src  FrameIndex
	Dest LocalIndex
}

// RefValue allocates an uninitialized indirection for a recursive
// binding's forward reference.
type RefValue struct {
	base
	Dest LocalIndex
}

// RefDef ties the knot, storing Value into a previously-allocated ref.
// The compiler may omit this for a truly-unused recursive binding.
type RefDef struct {
	base
	Ref   LocalIndex
	Value FrameIndex
}

// Return returns Src from the current frame.
type Return struct {
	base
	Src FrameIndex
}

// TypeValue allocates the erased type witness.
type TypeValue struct {
	base
	Dest LocalIndex
}

// InstrBlock is a refcounted compiled function/process body: Statics is
// the size of its captured scope, Locals the max local slots needed,
// Instrs its ordered instruction sequence (spec §3.4).
type InstrBlock struct {
	heap.Header
	Statics int
	Locals  int
	Instrs  []Instr
}

// VisitRefs exposes the nested InstrBlocks reachable through FuncValue
// instructions to the managed graph heap.
func (b *InstrBlock) VisitRefs(visit func(heap.Object)) {
	for _, instr := range b.Instrs {
		if fv, ok := instr.(*FuncValue); ok && fv.Code != nil {
			visit(fv.Code)
		}
	}
}

// NewInstrBlock allocates an empty block on arena.
func NewInstrBlock(arena *heap.Arena, statics int) *InstrBlock {
	b := &InstrBlock{Statics: statics}
	arena.Init(b)
	return b
}
