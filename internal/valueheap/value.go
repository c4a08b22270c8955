// Package valueheap implements the runtime value representation of
// spec §3.5 on a managed graph heap specialized to values (§4.E):
// identical discipline to internal/heap, with a Ref variant whose
// first assignment is the only way to close a value-level cycle.
package valueheap

import (
	"fblego/internal/bytecode"
	"fblego/internal/heap"
)

// Tag discriminates the runtime value variants of spec §3.5.
type Tag int

const (
	VStruct Tag = iota
	VUnion
	VFunc
	VLink
	VPort
	VRef
	VType
)

// PortSlot is a single input/output slot bridged to the I/O host (spec
// §6): the host owns it between interpreter quanta.
type PortSlot struct {
	Pending  *Value
	HasValue bool
}

// Value is a node in the runtime value graph.
type Value struct {
	heap.Header
	Tag Tag

	// Struct
	Fields []*Value

	// Union
	UnionTag int
	UnionArg *Value

	// Func: Code != nil is a closure over Statics; otherwise this is a
	// partial application of AppFn to the args accumulated so far. Argc
	// is the function's full arity regardless of which form this value
	// takes, used by the interpreter to tell a full application from a
	// partial one.
	Argc    int
	Code    *bytecode.InstrBlock
	Statics []*Value
	AppFn   *Value
	AppArgs []*Value

	// Link: an unbounded FIFO queue of pending values.
	Queue []*Value

	// Port: an externally-owned slot, not followed by VisitRefs.
	Slot *PortSlot

	// Ref: nil until the knot is tied by SetRef.
	RefValue *Value
}

// VisitRefs exposes v's outgoing edges to the managed graph heap. A Ref
// with a nil RefValue contributes no edge (spec §4.E).
func (v *Value) VisitRefs(visit func(heap.Object)) {
	switch v.Tag {
	case VStruct:
		for _, f := range v.Fields {
			visit(f)
		}
	case VUnion:
		visit(v.UnionArg)
	case VFunc:
		if v.Code != nil {
			for _, s := range v.Statics {
				visit(s)
			}
			return
		}
		visit(v.AppFn)
		for _, a := range v.AppArgs {
			visit(a)
		}
	case VLink:
		for _, q := range v.Queue {
			visit(q)
		}
	case VRef:
		if v.RefValue != nil {
			visit(v.RefValue)
		}
	}
}

// Store is a value arena: the managed graph heap specialized to Value
// objects, tracking an approximate peak-bytes watermark for the
// mem-test "max bytes allocated" metric (spec §5).
type Store struct {
	Arena    *heap.Arena
	bytes    int64
	maxBytes int64
}

// NewStore creates an empty value store.
func NewStore() *Store {
	s := &Store{}
	s.Arena = heap.NewArena(func(o heap.Object) {
		s.bytes -= approxSize(o.(*Value))
	})
	return s
}

// MaxBytesAllocated reports the highest approximate byte watermark seen
// since the store was created.
func (s *Store) MaxBytesAllocated() int64 { return s.maxBytes }

func (s *Store) alloc(v *Value) *Value {
	s.Arena.Init(v)
	s.bytes += approxSize(v)
	if s.bytes > s.maxBytes {
		s.maxBytes = s.bytes
	}
	return v
}

const wordSize = 8

func approxSize(v *Value) int64 {
	base := int64(wordSize * 4)
	switch v.Tag {
	case VStruct:
		return base + int64(len(v.Fields))*wordSize
	case VFunc:
		return base + int64(len(v.Statics)+len(v.AppArgs))*wordSize
	case VLink:
		return base + int64(len(v.Queue))*wordSize
	default:
		return base
	}
}

// NewStruct allocates a struct value from already-retained fields.
func (s *Store) NewStruct(fields []*Value) *Value {
	v := s.alloc(&Value{Tag: VStruct, Fields: fields})
	for _, f := range fields {
		s.Arena.AddRef(v, f)
	}
	return v
}

// NewUnion allocates a union value with the given tag.
func (s *Store) NewUnion(tag int, arg *Value) *Value {
	v := s.alloc(&Value{Tag: VUnion, UnionTag: tag, UnionArg: arg})
	s.Arena.AddRef(v, arg)
	return v
}

// NewClosure allocates a function value that runs code when fully
// applied, closing over statics.
func (s *Store) NewClosure(argc int, code *bytecode.InstrBlock, statics []*Value) *Value {
	v := s.alloc(&Value{Tag: VFunc, Argc: argc, Code: code, Statics: statics})
	for _, st := range statics {
		s.Arena.AddRef(v, st)
	}
	return v
}

// NewPartialApp allocates a partial application of fn to the args
// accumulated so far (fewer than fn's full Argc).
func (s *Store) NewPartialApp(fn *Value, args []*Value) *Value {
	v := s.alloc(&Value{Tag: VFunc, Argc: fn.Argc, AppFn: fn, AppArgs: args})
	s.Arena.AddRef(v, fn)
	for _, a := range args {
		s.Arena.AddRef(v, a)
	}
	return v
}

// NewLink allocates an empty link (spec §3.5, §4.F "Link semantics").
func (s *Store) NewLink() *Value {
	return s.alloc(&Value{Tag: VLink})
}

// NewPort allocates a port value bridged to slot.
func (s *Store) NewPort(slot *PortSlot) *Value {
	return s.alloc(&Value{Tag: VPort, Slot: slot})
}

// NewRef allocates an uninitialized indirection.
func (s *Store) NewRef() *Value {
	return s.alloc(&Value{Tag: VRef})
}

// SetRef ties the knot, closing a value-level cycle the first (and
// only) time it is called for ref.
func (s *Store) SetRef(ref, value *Value) {
	if ref.Tag != VRef {
		panic("valueheap: SetRef on non-Ref value")
	}
	if ref.RefValue != nil {
		panic("valueheap: SetRef called twice on the same Ref")
	}
	ref.RefValue = value
	s.Arena.AddRef(ref, value)
}

// NewTypeWitness allocates the erased-type payload-free value.
func (s *Store) NewTypeWitness() *Value {
	return s.alloc(&Value{Tag: VType})
}

// PutLink appends val to link's FIFO queue (spec §4.F "Link semantics":
// non-allocating beyond the queue node).
func (s *Store) PutLink(link, val *Value) {
	s.Arena.AddRef(link, val)
	link.Queue = append(link.Queue, val)
}

// GetLink removes and returns the head of link's queue, or nil if empty.
func (s *Store) GetLink(link *Value) *Value {
	if len(link.Queue) == 0 {
		return nil
	}
	head := link.Queue[0]
	link.Queue = link.Queue[1:]
	return head
}
