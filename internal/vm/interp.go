package vm

import (
	"fmt"

	"fblego/internal/bytecode"
	"fblego/internal/valueheap"
)

// outcome is the result of stepping one thread by one instruction.
type outcome int

const (
	outRunning outcome = iota
	outBlocked
	outFinished
	outAborted
)

// step executes exactly one instruction from th's top frame. Each
// scheduling quantum is a single instruction, matching spec §4.F's
// "fair round-robin" requirement by construction: no thread can run two
// instructions without every other runnable thread getting a turn.
func (s *Scheduler) step(th *Thread) outcome {
	f := th.top()
	if f.PC >= len(f.Block.Instrs) {
		th.Err = fmt.Errorf("vm: frame ran off the end of its instruction block")
		return outAborted
	}
	instr := f.Block.Instrs[f.PC]

	// Get/Put may block without having executed; check readiness before
	// committing the PC advance or any profiling side effect, so a
	// retried instruction is charged exactly once, on the attempt that
	// actually runs.
	switch n := instr.(type) {
	case *bytecode.Get:
		if !portReady(f.read(n.Port), true) {
			th.blockedLink = f.read(n.Port)
			th.blockedGet = true
			return outBlocked
		}
	case *bytecode.Put:
		if !portReady(f.read(n.Port), false) {
			th.blockedLink = f.read(n.Port)
			th.blockedGet = false
			return outBlocked
		}
	}
	f.PC++

	for _, op := range instr.ProfileOps() {
		switch op.Kind {
		case bytecode.ProfileEnter:
			th.Profile.Enter(op.BlockID)
		case bytecode.ProfileAutoExit:
			th.Profile.AutoExit(op.BlockID)
		case bytecode.ProfileExit:
			th.Profile.Exit()
		}
	}
	th.Profile.Sample(1)

	switch n := instr.(type) {
	case *bytecode.StructValue:
		args := make([]*valueheap.Value, len(n.Args))
		for i, a := range n.Args {
			args[i] = f.read(a)
		}
		f.write(n.Dest, s.Store.NewStruct(args))

	case *bytecode.UnionValue:
		f.write(n.Dest, s.Store.NewUnion(n.Tag, f.read(n.Arg)))

	case *bytecode.DataAccess:
		obj := f.read(n.Obj)
		if n.IsUnion {
			if obj.UnionTag != n.Tag {
				th.Err = fmt.Errorf("%v: union field access on wrong tag %d, expected %d", n.Loc, obj.UnionTag, n.Tag)
				return outAborted
			}
			f.write(n.Dest, obj.UnionArg)
		} else {
			f.write(n.Dest, obj.Fields[n.Tag])
		}

	case *bytecode.UnionSelect:
		tag := f.read(n.Condition).UnionTag
		if tag < 0 || tag >= len(n.Jumps) {
			th.Err = fmt.Errorf("%v: union select tag %d out of range", n.Loc, tag)
			return outAborted
		}
		f.PC += n.Jumps[tag] - 1

	case *bytecode.Jump:
		f.PC += n.Offset - 1

	case *bytecode.FuncValue:
		statics := make([]*valueheap.Value, len(n.Scope))
		for i, idx := range n.Scope {
			statics[i] = f.read(idx)
		}
		f.write(n.Dest, s.Store.NewClosure(n.Argc, n.Code, statics))

	case *bytecode.Release:
		f.Locals[n.Local] = nil

	case *bytecode.Call:
		return s.doCall(th, f, n)

	case *bytecode.Get:
		return s.doGet(th, f, n)

	case *bytecode.Put:
		return s.doPut(th, f, n)

	case *bytecode.Link:
		link := s.Store.NewLink()
		f.write(n.GetDest, link)
		f.write(n.PutDest, link)

	case *bytecode.Fork:
		th.pendingChildren = len(n.Args)
		if th.pendingChildren == 0 {
			break
		}
		for i, a := range n.Args {
			s.fork(th, f.read(a), n.Dests[i])
		}
		return outBlocked

	case *bytecode.Copy:
		f.write(n.Dest, f.read(n.Src))

	case *bytecode.RefValue:
		f.write(n.Dest, s.Store.NewRef())

	case *bytecode.RefDef:
		s.Store.SetRef(f.Locals[n.Ref], f.read(n.Value))

	case *bytecode.Return:
		return s.doReturn(th, f.read(n.Src))

	case *bytecode.TypeValue:
		f.write(n.Dest, s.Store.NewTypeWitness())

	default:
		th.Err = fmt.Errorf("vm: unsupported instruction %T", n)
		return outAborted
	}
	return outRunning
}

// doCall applies Func to Args: a tail call (Exit) replaces the top
// frame in place so the stack never grows across a tail chain; a
// non-tail call pushes a new frame recording Dest as where the result
// lands once it returns.
func (s *Scheduler) doCall(th *Thread, f *Frame, n *bytecode.Call) outcome {
	fn := f.read(n.Func)
	args := make([]*valueheap.Value, len(n.Args))
	for i, a := range n.Args {
		args[i] = f.read(a)
	}

	for fn.AppFn != nil {
		args = append(append([]*valueheap.Value{}, fn.AppArgs...), args...)
		fn = fn.AppFn
	}
	if fn.Code == nil {
		th.Err = fmt.Errorf("%v: call to non-function value", n.Loc)
		return outAborted
	}
	if len(args) < fn.Argc {
		f.write(n.Dest, s.Store.NewPartialApp(fn, args))
		return outRunning
	}

	callee := newFrame(fn.Code, fn.Statics)
	if n.Exit {
		// Tail call: replace the frame in place instead of pushing, so
		// the stack never grows across a tail chain. The replaced
		// frame inherits the old one's Dest -- n.Dest names a local in
		// the frame being discarded and is meaningless here, since a
		// tail-position Call's result IS that frame's own return value.
		callee.Dest = f.Dest
		th.Frames[len(th.Frames)-1] = callee
	} else {
		callee.Dest = n.Dest
		th.Frames = append(th.Frames, callee)
	}
	copy(callee.Locals[:len(args)], args)
	return outRunning
}

// doReturn pops th's top frame, delivering its value either to the
// caller frame now exposed below it or, if this was the bottommost
// frame, as the thread's terminal result.
func (s *Scheduler) doReturn(th *Thread, value *valueheap.Value) outcome {
	dest := th.top().Dest
	th.Frames = th.Frames[:len(th.Frames)-1]
	if len(th.Frames) == 0 {
		th.Result = value
		return outFinished
	}
	th.top().write(dest, value)
	return outRunning
}

// doGet runs a Get whose readiness was already confirmed by step.
func (s *Scheduler) doGet(th *Thread, f *Frame, n *bytecode.Get) outcome {
	port := f.read(n.Port)
	th.blockedLink = nil
	switch port.Tag {
	case valueheap.VLink:
		f.write(n.Dest, s.Store.GetLink(port))
	case valueheap.VPort:
		f.write(n.Dest, port.Slot.Pending)
		port.Slot.Pending = nil
		port.Slot.HasValue = false
	default:
		th.Err = fmt.Errorf("vm: get on non-link, non-port value")
		return outAborted
	}
	return outRunning
}

// doPut runs a Put whose readiness was already confirmed by step.
func (s *Scheduler) doPut(th *Thread, f *Frame, n *bytecode.Put) outcome {
	port := f.read(n.Port)
	arg := f.read(n.Arg)
	th.blockedLink = nil
	switch port.Tag {
	case valueheap.VLink:
		s.Store.PutLink(port, arg)
	case valueheap.VPort:
		port.Slot.Pending = arg
		port.Slot.HasValue = true
	default:
		th.Err = fmt.Errorf("vm: put on non-link, non-port value")
		return outAborted
	}
	f.write(n.Dest, s.Store.NewStruct(nil))
	return outRunning
}
