// Package profile implements the call-graph profiler of spec §4.G:
// per-thread profile stacks accumulating into one directed weighted
// call graph keyed by block id, post-processed with SCC cycle
// flattening before being rendered as a pprof payload or text report.
package profile

import "golang.org/x/exp/slices"

// Root is the reserved block id representing the synthetic root every
// profile thread is seeded with (spec §9 "Profile cycle-flattening").
const Root = 0

type edge struct {
	calls int64
	time  int64
}

// block accumulates one call-graph node's self-time and outgoing edges.
type block struct {
	name     string
	selfTime int64
	edges    map[int]*edge
}

// Graph is the call graph built up across every profile thread that
// ran during a program's execution.
type Graph struct {
	blocks []*block
}

// NewGraph creates a graph seeded with block 0 ("root").
func NewGraph(blockNames []string) *Graph {
	g := &Graph{}
	names := append([]string{"root"}, blockNames...)
	for _, n := range names {
		g.blocks = append(g.blocks, &block{name: n, edges: map[int]*edge{}})
	}
	return g
}

func (g *Graph) ensure(id int) *block {
	for id >= len(g.blocks) {
		g.blocks = append(g.blocks, &block{name: "?", edges: map[int]*edge{}})
	}
	return g.blocks[id]
}

func (g *Graph) chargeEdge(from, to int) *edge {
	b := g.ensure(from)
	e, ok := b.edges[to]
	if !ok {
		e = &edge{}
		b.edges[to] = e
	}
	return e
}

// Thread is one running thread's profiling stack (spec §4.G): a stack
// of active block ids; time is charged to the graph, not to the entries.
type Thread struct {
	graph *Graph
	stack []int
}

// NewThread creates a profile thread seeded with the root block.
func (g *Graph) NewThread() *Thread {
	return &Thread{graph: g, stack: []int{Root}}
}

// Fork creates a child thread that inherits a snapshot of t's current
// stack (spec §4.F "Fork semantics": children accrue samples
// independently from that point on).
func (t *Thread) Fork() *Thread {
	stack := make([]int, len(t.stack))
	copy(stack, t.stack)
	return &Thread{graph: t.graph, stack: stack}
}

func (t *Thread) top() int { return t.stack[len(t.stack)-1] }

// Enter pushes callee, charging a call edge from the current top.
func (t *Thread) Enter(callee int) {
	t.graph.chargeEdge(t.top(), callee).calls++
	t.stack = append(t.stack, callee)
}

// AutoExit replaces the top block with callee in place, used for
// tail-call chains so they do not grow the profile stack.
func (t *Thread) AutoExit(callee int) {
	t.graph.chargeEdge(t.stack[len(t.stack)-2], callee).calls++
	t.stack[len(t.stack)-1] = callee
}

// Sample adds n to the top block's self-time.
func (t *Thread) Sample(n int64) {
	t.graph.ensure(t.top()).selfTime += n
}

// Exit pops the top block, propagating its accumulated time to the
// corresponding caller edge.
func (t *Thread) Exit() {
	popped := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	caller := t.top()
	e := t.graph.chargeEdge(caller, popped)
	e.time += t.graph.ensure(popped).selfTime
}

// Report is the post-processed, read-only view of a Graph used for
// rendering (spec §4.G "Output formats").
type Report struct {
	Names   []string
	Self    []int64
	Total   []int64
	Calls   []int64
	edgesBy []map[int]*edge
}

// Finish post-processes g: strongly-connected components have their
// inter-member edge times zeroed, then per-block totals are summed
// from outgoing edges (root's totals are the sum of its own out-edges).
func (g *Graph) Finish() *Report {
	sccOf := tarjanSCCs(g)
	for from, b := range g.blocks {
		for to, e := range b.edges {
			if sccOf[from] == sccOf[to] {
				e.time = 0
			}
		}
	}

	r := &Report{edgesBy: make([]map[int]*edge, len(g.blocks))}
	for i, b := range g.blocks {
		r.Names = append(r.Names, b.name)
		r.Self = append(r.Self, b.selfTime)
		r.edgesBy[i] = b.edges
		var total, calls int64
		for _, e := range b.edges {
			total += e.time
			calls += e.calls
		}
		if i == Root {
			r.Total = append(r.Total, total)
		} else {
			r.Total = append(r.Total, b.selfTime+total)
		}
		r.Calls = append(r.Calls, calls)
	}
	return r
}

// tarjanSCCs computes strongly-connected-component membership over g's
// call graph, returning component id per block index.
func tarjanSCCs(g *Graph) []int {
	n := len(g.blocks)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range index {
		index[i] = -1
		comp[i] = -1
	}
	var stack []int
	next := 0
	nextComp := 0

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		targets := make([]int, 0, len(g.blocks[v].edges))
		for to := range g.blocks[v].edges {
			targets = append(targets, to)
		}
		slices.Sort(targets)
		for _, w := range targets {
			if index[w] == -1 {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = nextComp
				if w == v {
					break
				}
			}
			nextComp++
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			strongconnect(v)
		}
	}
	return comp
}
