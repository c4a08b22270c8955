// Package compiler lowers the typed IR (internal/tc) to the InstrBlock
// bytecode model (internal/bytecode), per spec §4.D: frame/slot
// assignment, closure capture translation, tail-call marking, and
// union-select jump tables.
package compiler

import (
	"fblego/internal/bytecode"
	"fblego/internal/heap"
	"fblego/internal/tc"
)

// Compiler lowers Tc expressions onto a managed graph heap arena (each
// compiled InstrBlock is itself a refcounted heap object, spec §3.4).
type Compiler struct {
	arena         *heap.Arena
	profileBlocks []string
}

// New creates a compiler allocating InstrBlocks on arena.
func New(arena *heap.Arena) *Compiler {
	return &Compiler{arena: arena}
}

// ProfileBlockNames returns the accumulated Profile labels in the order
// their block ids were assigned; names[i] belongs to block id i+1, as id
// 0 is the root block. internal/profile.NewGraph prepends "root" to
// these names, so a ProfileOp.BlockID indexes its graph directly.
func (c *Compiler) ProfileBlockNames() []string {
	return c.profileBlocks
}

// CompileProgram compiles a whole program's elaborated main expression
// as a zero-argument, zero-capture top-level block.
func (c *Compiler) CompileProgram(main tc.Expr) *bytecode.InstrBlock {
	return c.compileBlock(main, 0, 0)
}

// compileBlock compiles body as its own frame of argc arguments and
// statics captures, returning the resulting InstrBlock.
func (c *Compiler) compileBlock(body tc.Expr, argc, statics int) *bytecode.InstrBlock {
	f := newFrame(argc)
	dest := f.alloc()
	c.compileInto(f, body, dest, true)
	f.emit(&bytecode.Return{Src: local(dest)})

	block := bytecode.NewInstrBlock(c.arena, statics)
	block.Locals = f.maxLocal
	block.Instrs = f.instrs
	return block
}

// compileFresh compiles e into a newly allocated local, except for a
// bare Var read which resolves directly to its existing frame index
// without an intervening Copy.
func (c *Compiler) compileFresh(f *frame, e tc.Expr, tail bool) bytecode.FrameIndex {
	if v, ok := e.(*tc.Var); ok {
		return f.resolve(v.Index)
	}
	dest := f.alloc()
	c.compileInto(f, e, dest, tail)
	return local(dest)
}

// compileInto compiles e, arranging for its result to end up in dest.
// tail marks whether e is in tail position of its enclosing function
// body (spec §4.D "tail calls").
func (c *Compiler) compileInto(f *frame, e tc.Expr, dest bytecode.LocalIndex, tail bool) {
	switch n := e.(type) {

	case *tc.TypeValue:
		f.emit(&bytecode.TypeValue{Dest: dest})

	case *tc.Var:
		f.emit(&bytecode.Copy{Src: f.resolve(n.Index), Dest: dest})

	case *tc.Let:
		c.compileLet(f, n, dest, tail)

	case *tc.StructValue:
		args := make([]bytecode.FrameIndex, len(n.Args))
		for i, a := range n.Args {
			args[i] = c.compileFresh(f, a, false)
		}
		f.emit(&bytecode.StructValue{Args: args, Dest: dest})

	case *tc.UnionValue:
		arg := c.compileFresh(f, n.Arg, false)
		f.emit(&bytecode.UnionValue{Tag: n.Tag, Arg: arg, Dest: dest})

	case *tc.DataAccess:
		obj := c.compileFresh(f, n.Obj, false)
		f.emit(&bytecode.DataAccess{IsUnion: n.IsUnion, Obj: obj, Tag: n.Tag, Dest: dest, Loc: n.Loc})

	case *tc.UnionSelect:
		c.compileUnionSelect(f, n, dest, tail)

	case *tc.FuncValue:
		c.compileFuncValue(f, n, dest)

	case *tc.FuncApply:
		fn := c.compileFresh(f, n.Func, false)
		args := make([]bytecode.FrameIndex, len(n.Args))
		for i, a := range n.Args {
			args[i] = c.compileFresh(f, a, false)
		}
		f.emit(&bytecode.Call{Func: fn, Args: args, Exit: tail, Dest: dest, Loc: n.Loc})

	case *tc.Link:
		getDest := f.bind(n.GetIndex)
		putDest := f.bind(n.PutIndex)
		f.emit(&bytecode.Link{GetDest: getDest, PutDest: putDest})
		c.compileInto(f, n.Body, dest, tail)

	case *tc.Get:
		port := c.compileFresh(f, n.Port, false)
		f.emit(&bytecode.Get{Port: port, Dest: dest})

	case *tc.Put:
		port := c.compileFresh(f, n.Port, false)
		arg := c.compileFresh(f, n.Arg, false)
		f.emit(&bytecode.Put{Port: port, Arg: arg, Dest: dest})

	case *tc.Exec:
		c.compileExec(f, n, dest, tail)

	case *tc.Profile:
		c.compileProfile(f, n, dest, tail)

	case *tc.SymbolicValue, *tc.SymbolicCompile:
		panic("compiler: SymbolicValue/SymbolicCompile are not supported by this compiler")

	default:
		panic("compiler: unsupported Tc node")
	}
}

// compileLet implements spec §4.D "Let": every binding gets its slot
// bound to its checker index before any binding is compiled, matching
// the checker making every binding visible to every other binding's
// right-hand side from the start. A recursive Let additionally allocates
// a RefValue per binding up front and ties the knot with RefDef once the
// binding's value is compiled.
func (c *Compiler) compileLet(f *frame, n *tc.Let, dest bytecode.LocalIndex, tail bool) {
	dests := make([]bytecode.LocalIndex, len(n.Bindings))
	for i, b := range n.Bindings {
		dests[i] = f.bind(b.Index)
	}
	if n.Recursive {
		for _, d := range dests {
			f.emit(&bytecode.RefValue{Dest: d})
		}
	}
	for i, b := range n.Bindings {
		if n.Recursive {
			value := c.compileFresh(f, b.Expr, false)
			f.emit(&bytecode.RefDef{Ref: dests[i], Value: value})
		} else {
			c.compileInto(f, b.Expr, dests[i], false)
		}
	}
	c.compileInto(f, n.Body, dest, tail)
}

// compileExec implements spec §4.D "Exec": result slots for every
// binding are reserved (and bound to their checker index) before any
// binding's proc expression is compiled, since exec bindings cannot
// reference each other — only the body can.
func (c *Compiler) compileExec(f *frame, n *tc.Exec, dest bytecode.LocalIndex, tail bool) {
	dests := make([]bytecode.LocalIndex, len(n.Bindings))
	for i, idx := range n.Indices {
		dests[i] = f.bind(idx)
	}
	procs := make([]bytecode.FrameIndex, len(n.Bindings))
	for i, b := range n.Bindings {
		procs[i] = c.compileFresh(f, b, false)
	}
	f.emit(&bytecode.Fork{Args: procs, Dests: dests})
	c.compileInto(f, n.Body, dest, tail)
}

// compileFuncValue lowers a closure: Captured indices are resolved
// against the ENCLOSING frame (f), while the body is compiled into its
// own fresh frame whose statics count equals the capture count (spec
// §4.D "function/closure construction").
func (c *Compiler) compileFuncValue(f *frame, n *tc.FuncValue, dest bytecode.LocalIndex) {
	scope := make([]bytecode.FrameIndex, len(n.Captured))
	for i, idx := range n.Captured {
		scope[i] = f.resolve(idx)
	}
	block := c.compileBlock(n.Body, n.Argc, len(n.Captured))
	f.emit(&bytecode.FuncValue{Argc: n.Argc, Scope: scope, Code: block, Dest: dest})
}

// compileUnionSelect implements spec §4.D "Union select": one
// UnionSelect instruction whose jump table is patched once every
// branch's start offset is known, plus a forward Jump from the end of
// each branch to the block's join point.
func (c *Compiler) compileUnionSelect(f *frame, n *tc.UnionSelect, dest bytecode.LocalIndex, tail bool) {
	cond := c.compileFresh(f, n.Condition, false)
	selIdx := len(f.instrs)
	f.emit(&bytecode.UnionSelect{Condition: cond, Loc: n.Loc})

	branchStarts := make([]int, len(n.Branches))
	joinJumps := make([]int, 0, len(n.Branches))
	for i, br := range n.Branches {
		branchStarts[i] = len(f.instrs)
		c.compileInto(f, br, dest, tail)
		joinJumps = append(joinJumps, len(f.instrs))
		f.emit(&bytecode.Jump{})
	}
	joinPos := len(f.instrs)
	for _, idx := range joinJumps {
		f.instrs[idx].(*bytecode.Jump).Offset = joinPos - idx
	}

	jumps := make([]int, len(n.Choices))
	for i, branchIdx := range n.Choices {
		jumps[i] = branchStarts[branchIdx] - selIdx
	}
	f.instrs[selIdx].(*bytecode.UnionSelect).Jumps = jumps
}

// compileProfile implements spec §4.D "Profile wrappers": enter/exit
// profiling hooks are attached to the first and last instruction Body
// compiles to, rather than becoming their own instructions.
func (c *Compiler) compileProfile(f *frame, n *tc.Profile, dest bytecode.LocalIndex, tail bool) {
	id := c.internBlock(n.Label)
	start := len(f.instrs)
	c.compileInto(f, n.Body, dest, tail)
	if len(f.instrs) == start {
		f.emit(&bytecode.Copy{Src: local(dest), Dest: dest})
	}
	f.instrs[start].AddProfileOp(bytecode.ProfileOp{Kind: bytecode.ProfileEnter, BlockID: id})

	exitKind := bytecode.ProfileExit
	if tail {
		exitKind = bytecode.ProfileAutoExit
	}
	last := len(f.instrs) - 1
	f.instrs[last].AddProfileOp(bytecode.ProfileOp{Kind: exitKind, BlockID: id})
}

func (c *Compiler) internBlock(label string) int {
	for i, l := range c.profileBlocks {
		if l == label {
			return i + 1
		}
	}
	c.profileBlocks = append(c.profileBlocks, label)
	return len(c.profileBlocks)
}
