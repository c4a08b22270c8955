package heap

import "testing"

// node is a minimal heap.Object used to exercise retain/release/AddRef.
type node struct {
	Header
	name string
	out  []*node
}

func (n *node) VisitRefs(visit func(Object)) {
	for _, o := range n.out {
		visit(o)
	}
}

func newNode(a *Arena, name string) *node {
	n := &node{name: name}
	a.Init(n)
	return n
}

func TestRetainReleaseFreesAcyclic(t *testing.T) {
	var freed []string
	a := NewArena(func(o Object) { freed = append(freed, o.(*node).name) })

	root := newNode(a, "root")
	child := newNode(a, "child")
	root.out = append(root.out, child)
	a.AddRef(root, child)
	a.Release(child) // drop the allocation-time ref now owned by root's edge

	if a.LiveObjects() != 2 {
		t.Fatalf("expected 2 live objects, got %d", a.LiveObjects())
	}

	a.Release(root)
	if a.LiveObjects() != 0 {
		t.Fatalf("expected 0 live objects after release, got %d", a.LiveObjects())
	}
	if len(freed) != 2 {
		t.Fatalf("expected both nodes freed, got %v", freed)
	}
}

func TestAddRefDetectsCycle(t *testing.T) {
	var freed []string
	a := NewArena(func(o Object) { freed = append(freed, o.(*node).name) })

	x := newNode(a, "x")
	y := newNode(a, "y")

	x.out = append(x.out, y)
	a.AddRef(x, y) // x -> y; y.refcount: 1 (init) + 1 (retain) = 2
	a.Release(y)   // test drops its own handle on y; y.refcount = 1

	y.out = append(y.out, x)
	a.AddRef(y, x) // y -> x closes the loop; x.refcount: 1 + 1 = 2

	if x.cycle == nil || y.cycle == nil || x.cycle != y.cycle {
		t.Fatalf("expected x and y to share a cycle, x.cycle=%v y.cycle=%v", x.cycle, y.cycle)
	}
	if a.LiveObjects() != 2 {
		t.Fatalf("expected both members still live, got %d", a.LiveObjects())
	}

	a.Release(x) // drop the test's own handle on x: external refcount hits zero
	if a.LiveObjects() != 0 {
		t.Fatalf("expected cycle collected, got %d live", a.LiveObjects())
	}
	if len(freed) != 2 {
		t.Fatalf("expected both cycle members freed, got %v", freed)
	}
}
