package vm

import (
	"github.com/google/uuid"

	"fblego/internal/bytecode"
	"fblego/internal/profile"
	"fblego/internal/valueheap"
)

// Frame is one activation of an InstrBlock (spec §4.F "Thread state"):
// a program counter, an immutable statics array, and a locals array
// sized to Block.Locals.
type Frame struct {
	Block   *bytecode.InstrBlock
	PC      int
	Statics []*valueheap.Value
	Locals  []*valueheap.Value

	// Dest is where this frame's eventual Return value is written in
	// the frame below it once this one is popped (spec §4.D/§4.F "tail
	// calls": a tail Call replaces Frames' top entry in place, keeping
	// the same Dest, so the stack never grows across a tail chain).
	Dest bytecode.LocalIndex
}

func newFrame(block *bytecode.InstrBlock, statics []*valueheap.Value) *Frame {
	return &Frame{Block: block, Statics: statics, Locals: make([]*valueheap.Value, block.Locals)}
}

func (f *Frame) read(idx bytecode.FrameIndex) *valueheap.Value {
	v := f.Locals
	if idx.Section == bytecode.Statics {
		v = f.Statics
	}
	r := v[idx.Index]
	for r != nil && r.Tag == valueheap.VRef && r.RefValue != nil {
		r = r.RefValue
	}
	return r
}

func (f *Frame) write(idx bytecode.LocalIndex, v *valueheap.Value) {
	f.Locals[idx] = v
}

// Status is a thread's scheduling state.
type Status int

const (
	Runnable Status = iota
	Blocked
	Finished
	Aborted
)

// Thread owns a stack of frames plus the bookkeeping a fork parent
// needs to learn when all of its children have terminated (spec §4.F
// "Thread state", "Fork semantics").
type Thread struct {
	ID      uuid.UUID
	Frames  []*Frame
	Status  Status
	Profile *profile.Thread

	Parent       *Thread
	DestInParent bytecode.LocalIndex
	hasParent    bool

	pendingChildren int
	childAborted    bool

	blockedLink *valueheap.Value
	blockedGet  bool

	Result *valueheap.Value
	Err    error
}

func newThread(block *bytecode.InstrBlock, statics []*valueheap.Value, prof *profile.Thread) *Thread {
	t := &Thread{ID: uuid.New(), Profile: prof}
	t.Frames = append(t.Frames, newFrame(block, statics))
	return t
}

func (t *Thread) top() *Frame { return t.Frames[len(t.Frames)-1] }
