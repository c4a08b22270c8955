// Package heap implements the managed graph heap: a reference-counted
// arena with dynamic cycle detection, used by the type representation
// (internal/types) and, specialized, by the runtime value heap
// (internal/valueheap).
//
// Objects are not garbage collected by Go's runtime tracer in the usual
// sense -- they participate in an explicit retain/release protocol so that
// recursive (cyclic) structures built by the type checker and by runtime
// values can be freed deterministically without leaking, matching
// fble's ref.c / rc-heap.c.
package heap

import "golang.org/x/exp/slices"

// Object is anything allocated on a managed graph heap. Concrete object
// types embed a Header and implement VisitRefs to expose their outgoing
// edges to the heap.
type Object interface {
	header() *Header
	// VisitRefs calls visit once for every object this object directly
	// references. It must not be called while the heap is in an
	// inconsistent state (half-initialized objects reachable from visit).
	VisitRefs(visit func(Object))
}

// Header is embedded in every heap-managed object.
type Header struct {
	id       uint64
	refcount int
	cycle    *cycle
}

func (h *Header) header() *Header { return h }

// ID returns the object's current identity id. It starts out unique at
// allocation but may be lowered by AddRef as cycles are discovered and
// merged; objects that end up with equal ids are members of the same
// cycle (or became structurally identified through substitution).
func (h *Header) ID() uint64 { return h.id }

// InheritID forces h's id to match an existing object's id instead of the
// fresh one assigned by Init. internal/types uses this so that Subst's
// output preserves the source term's id for every variant except freshly
// allocated Vars (spec §4.B.3 invariant 5), which keeps TypesEqual's
// same-id fast path correct across substitution.
func (h *Header) InheritID(from *Header) { h.id = from.id }

type cycle struct {
	members     map[*Header]struct{}
	extRefcount int
}

// Arena is a managed graph heap instance.
type Arena struct {
	nextID  uint64
	onFree  func(Object)
	live    int
	maxLive int
}

// NewArena creates a heap. onFree is invoked when an object's refcount
// (outside of any cycle) drops to zero and it is about to be reclaimed.
func NewArena(onFree func(Object)) *Arena {
	return &Arena{onFree: onFree}
}

// Init assigns obj a fresh strictly-increasing id and a refcount of 1. It
// must be called exactly once, right after the concrete object's fields
// are otherwise ready (before it is reachable from any other object).
func (a *Arena) Init(obj Object) {
	h := obj.header()
	a.nextID++
	h.id = a.nextID
	h.refcount = 1
	h.cycle = nil
	a.live++
	if a.live > a.maxLive {
		a.maxLive = a.live
	}
}

// LiveObjects returns the number of objects currently allocated and not
// yet freed.
func (a *Arena) LiveObjects() int { return a.live }

// MaxLiveObjects returns the high-water mark of LiveObjects over the
// lifetime of the arena (the "max bytes allocated" style metric used by
// the mem-test driver, in object-count terms; internal/valueheap adds a
// byte-weighted variant).
func (a *Arena) MaxLiveObjects() int { return a.maxLive }

// Retain increments obj's refcount, and its cycle's external refcount if
// it belongs to one.
func (a *Arena) Retain(obj Object) {
	h := obj.header()
	h.refcount++
	if h.cycle != nil {
		h.cycle.extRefcount++
	}
}

// Release decrements obj's refcount (and cycle refcount, if any). When an
// object's individual refcount reaches zero outside of a cycle, its
// out-edges are released (via an explicit work stack, not recursion, to
// keep release of long chains bounded in Go stack depth), onFree is
// called, and the object is reclaimed. When a cycle's external refcount
// reaches zero, the cycle is broken by releasing every member's edges to
// objects outside the cycle (edges between members are not released,
// since every member is freed regardless) and the members freed.
func (a *Arena) Release(obj Object) {
	stack := []Object{obj}
	for len(stack) > 0 {
		n := len(stack) - 1
		o := stack[n]
		stack = stack[:n]
		h := o.header()

		if h.cycle != nil {
			c := h.cycle
			h.refcount--
			c.extRefcount--
			if c.extRefcount > 0 {
				continue
			}
			// Cycle's external refcount hit zero: the whole strongly
			// connected component dies together. Unmark membership first,
			// then free every member, pushing only the edges that escape
			// the cycle (internal edges are not separately released --
			// both endpoints are being freed regardless of their mutual
			// refcount).
			members := c.members
			for m := range members {
				m.cycle = nil
			}
			for m := range members {
				mo := headerOwner(m)
				if mo == nil {
					continue
				}
				mo.VisitRefs(func(ref Object) {
					if _, isMember := members[ref.header()]; isMember {
						return
					}
					stack = append(stack, ref)
				})
				a.free(mo)
			}
			continue
		}

		h.refcount--
		if h.refcount > 0 {
			continue
		}
		o.VisitRefs(func(ref Object) { stack = append(stack, ref) })
		a.free(o)
	}
}

func (a *Arena) free(o Object) {
	a.live--
	if a.onFree != nil {
		a.onFree(o)
	}
	delete(headerRegistry, o.header())
}

// headerRegistry lets Release recover the Object from a bare *Header when
// walking cycle membership (cycles store Headers, not Objects, to avoid
// an import cycle between Header and Object at construction time).
var headerRegistry = map[*Header]Object{}

func headerOwner(h *Header) Object { return headerRegistry[h] }

func register(obj Object) { headerRegistry[obj.header()] = obj }

// AddRef records that src now holds a reference to dst (src must already
// be reachable; this call additionally retains dst on src's behalf).
// Implements the cycle-detection protocol of spec §4.A: ids are assigned
// in allocation order, so an edge from a lower id to a higher id
// (src.id <= dst.id) can never close a new cycle. An edge the other way
// might; the destination's reachable set (restricted to objects at least
// as new as src) is relabeled down to src's id, and a backward walk from
// src along the edges just traversed finds the new (or merged) cycle.
func (a *Arena) AddRef(src, dst Object) {
	register(src)
	register(dst)
	a.Retain(dst)

	sh, dh := src.header(), dst.header()
	if sh.id <= dh.id {
		return
	}

	threshold := sh.id
	parent := map[*Header]*Header{}
	visited := map[*Header]bool{dh: true}
	queue := []Object{dst}
	reachesSrc := false

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		ch := cur.header()
		cur.VisitRefs(func(next Object) {
			nh := next.header()
			if visited[nh] {
				return
			}
			visited[nh] = true
			if nh.id < threshold && nh != sh {
				return // older than src and not src itself: stop here
			}
			parent[nh] = ch
			if nh.id >= threshold {
				nh.id = threshold
			}
			if nh == sh {
				reachesSrc = true
			}
			queue = append(queue, next)
		})
	}

	if !reachesSrc {
		return
	}

	// Walk backward from src to dst along discovered parent edges,
	// collecting every node on the path: these are the new cycle's
	// members (merged with any cycle membership they already carried).
	members := map[*Header]struct{}{sh: {}, dh: {}}
	for h := sh; h != dh; {
		p, ok := parent[h]
		if !ok {
			break
		}
		members[p] = struct{}{}
		h = p
	}

	c := &cycle{members: members}
	for m := range members {
		if m.cycle != nil && m.cycle != c {
			for om := range m.cycle.members {
				members[om] = struct{}{}
			}
		}
		m.cycle = c
	}
	c.members = members

	// external refcount = sum of member refcounts minus internal edges
	// (edges whose both endpoints are members); we approximate the
	// internal-edge count by visiting each member's refs.
	total := 0
	internal := 0
	memberSet := members
	keys := make([]*Header, 0, len(memberSet))
	for m := range memberSet {
		keys = append(keys, m)
	}
	slices.SortFunc(keys, func(x, y *Header) int {
		switch {
		case x.id < y.id:
			return -1
		case x.id > y.id:
			return 1
		default:
			return 0
		}
	})
	for _, m := range keys {
		total += m.refcount
		if mo := headerOwner(m); mo != nil {
			mo.VisitRefs(func(ref Object) {
				if _, ok := memberSet[ref.header()]; ok {
					internal++
				}
			})
		}
	}
	c.extRefcount = total - internal
}
