package compiler

import (
	"fblego/internal/bytecode"
	"fblego/internal/tc"
)

// frame accumulates one InstrBlock's worth of instructions while it is
// being compiled: nextLocal is the current local slot counter (spec
// §4.D "each compilation context tracks a current local slot counter
// and emits new slots in the order they are produced").
//
// named maps a checker-assigned frame-wide local index (internal/tc's
// Binding.Index, Exec.Indices, Link.GetIndex/PutIndex) to the physical
// slot bind actually gave it. The checker's indices only need to be
// stable and unique per frame; they don't, and can't, predict how many
// extra temporaries compiling a binding's own right-hand side will
// consume (e.g. compileFresh's temp for a non-Var argument, or a
// recursive Let's extra RefDef temp), so the physical slot a named
// binding lands on can be higher than its checker index. Args are the
// one exception: the calling convention always places them at physical
// slots 0..argc-1, which is exactly how the checker numbers them too, so
// no entry is needed for them.
type frame struct {
	nextLocal int
	maxLocal  int
	instrs    []bytecode.Instr
	named     map[int]bytecode.LocalIndex
}

func newFrame(argc int) *frame {
	return &frame{nextLocal: argc, maxLocal: argc}
}

func (f *frame) alloc() bytecode.LocalIndex {
	idx := bytecode.LocalIndex(f.nextLocal)
	f.nextLocal++
	if f.nextLocal > f.maxLocal {
		f.maxLocal = f.nextLocal
	}
	return idx
}

// bind allocates a fresh physical slot for the named binding the checker
// identified as local index, and records the mapping for later resolve
// calls.
func (f *frame) bind(index int) bytecode.LocalIndex {
	slot := f.alloc()
	if f.named == nil {
		f.named = map[int]bytecode.LocalIndex{}
	}
	f.named[index] = slot
	return slot
}

// resolve maps a checker-produced index down onto the physical frame
// location the compiler actually chose for it: an arg slot or a bind'd
// local stays in this frame; a Static index reads the closure's capture
// vector instead, untouched by this frame's own allocation.
func (f *frame) resolve(idx tc.VarIndex) bytecode.FrameIndex {
	if idx.Source == tc.Static {
		return bytecode.FrameIndex{Section: bytecode.Statics, Index: idx.Index}
	}
	if slot, ok := f.named[idx.Index]; ok {
		return bytecode.FrameIndex{Section: bytecode.Locals, Index: int(slot)}
	}
	return bytecode.FrameIndex{Section: bytecode.Locals, Index: idx.Index}
}

func (f *frame) emit(instr bytecode.Instr) {
	f.instrs = append(f.instrs, instr)
}

func local(idx bytecode.LocalIndex) bytecode.FrameIndex {
	return bytecode.FrameIndex{Section: bytecode.Locals, Index: int(idx)}
}
