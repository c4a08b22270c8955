// Package vm implements the cooperative interpreter/scheduler of spec
// §4.F: a pool of threads, each stepping one compiled instruction per
// quantum, coordinated through links, ports, and fork/join, with an I/O
// host invoked whenever every thread is blocked.
package vm

import (
	"fmt"

	"fblego/internal/bytecode"
	"fblego/internal/profile"
	"fblego/internal/valueheap"
)

// IOHost bridges blocked ports to the outside world (spec §6 "I/O
// host"): given the distinct port slots any thread is currently waiting
// on, it attempts to satisfy at least one of them, reporting whether it
// changed anything. When block is true the host may wait (e.g. on a
// socket read); when false it must return immediately.
type IOHost interface {
	IO(ports []*valueheap.PortSlot, block bool) (changed bool)
}

// NopHost never produces or consumes I/O; programs that only use
// internal links run fine against it, and any block on an external port
// becomes a deadlock.
type NopHost struct{}

func (NopHost) IO(ports []*valueheap.PortSlot, block bool) bool { return false }

// Scheduler runs a set of threads sharing a value store and profile
// graph to completion.
type Scheduler struct {
	Store *valueheap.Store
	Graph *profile.Graph
	Host  IOHost

	runnable []*Thread
	blocked  []*Thread
}

// New creates a scheduler. host may be nil, equivalent to NopHost{}.
func New(store *valueheap.Store, graph *profile.Graph, host IOHost) *Scheduler {
	if host == nil {
		host = NopHost{}
	}
	return &Scheduler{Store: store, Graph: graph, Host: host}
}

// Spawn creates a new top-level thread running block (argc must be 0)
// with the given statics, and enqueues it as runnable.
func (s *Scheduler) Spawn(block *bytecode.InstrBlock, statics []*valueheap.Value) *Thread {
	th := newThread(block, statics, s.Graph.NewThread())
	s.runnable = append(s.runnable, th)
	return th
}

// fork spawns a child of parent bound to proc (a zero-arg closure),
// writing its eventual result into parent's frame at dest.
func (s *Scheduler) fork(parent *Thread, proc *valueheap.Value, dest bytecode.LocalIndex) {
	child := newThread(proc.Code, proc.Statics, parent.Profile.Fork())
	child.Parent = parent
	child.DestInParent = dest
	child.hasParent = true
	s.runnable = append(s.runnable, child)
}

// Run drives the scheduler until root terminates, returning its result
// value or the error that aborted it (or a deadlock error if the whole
// pool wedges with no runnable or I/O-satisfiable thread left).
func (s *Scheduler) Run(root *Thread) (*valueheap.Value, error) {
	for root.Status != Finished && root.Status != Aborted {
		if len(s.runnable) == 0 {
			if len(s.blocked) == 0 {
				return nil, fmt.Errorf("vm: scheduler starved with no runnable or blocked threads")
			}
			changed := s.Host.IO(s.blockedPorts(), true)
			s.wake()
			if !changed && len(s.runnable) == 0 {
				return nil, fmt.Errorf("vm: deadlock: %d thread(s) blocked with no I/O progress", len(s.blocked))
			}
			continue
		}

		th := s.runnable[0]
		s.runnable = s.runnable[1:]
		switch s.step(th) {
		case outRunning:
			s.runnable = append(s.runnable, th)
		case outBlocked:
			s.blocked = append(s.blocked, th)
		case outFinished:
			s.onFinished(th)
		case outAborted:
			s.onAborted(th)
		}

		if len(s.runnable) == 0 && len(s.blocked) > 0 {
			if s.Host.IO(s.blockedPorts(), false) {
				s.wake()
			}
		}
	}

	if root.Status == Aborted {
		return nil, root.Err
	}
	return root.Result, nil
}

func (s *Scheduler) onFinished(th *Thread) {
	th.Status = Finished
	if th.hasParent {
		s.joinChild(th.Parent, th.DestInParent, th.Result)
	}
}

func (s *Scheduler) onAborted(th *Thread) {
	th.Status = Aborted
	if th.hasParent {
		parent := th.Parent
		parent.childAborted = true
		if parent.Err == nil {
			parent.Err = th.Err
		}
		s.joinChild(parent, th.DestInParent, nil)
	}
}

// joinChild records that one of parent's forked children terminated,
// waking parent once every child has.
func (s *Scheduler) joinChild(parent *Thread, dest bytecode.LocalIndex, result *valueheap.Value) {
	parent.top().write(dest, result)
	parent.pendingChildren--
	if parent.pendingChildren > 0 {
		return
	}
	s.removeBlocked(parent)
	if parent.childAborted {
		s.onAborted(parent)
		return
	}
	parent.Status = Runnable
	s.runnable = append(s.runnable, parent)
}

func (s *Scheduler) removeBlocked(th *Thread) {
	for i, b := range s.blocked {
		if b == th {
			s.blocked = append(s.blocked[:i], s.blocked[i+1:]...)
			return
		}
	}
}

// wake moves every blocked thread whose wait condition now holds back
// onto the runnable queue.
func (s *Scheduler) wake() {
	var stillBlocked []*Thread
	for _, th := range s.blocked {
		if th.pendingChildren > 0 {
			stillBlocked = append(stillBlocked, th)
			continue
		}
		if th.blockedLink != nil && !portReady(th.blockedLink, th.blockedGet) {
			stillBlocked = append(stillBlocked, th)
			continue
		}
		th.Status = Runnable
		s.runnable = append(s.runnable, th)
	}
	s.blocked = stillBlocked
}

// blockedPorts collects the distinct external port slots any blocked
// thread is waiting on.
func (s *Scheduler) blockedPorts() []*valueheap.PortSlot {
	seen := map[*valueheap.PortSlot]bool{}
	var ports []*valueheap.PortSlot
	for _, th := range s.blocked {
		if th.blockedLink == nil || th.blockedLink.Tag != valueheap.VPort {
			continue
		}
		slot := th.blockedLink.Slot
		if seen[slot] {
			continue
		}
		seen[slot] = true
		ports = append(ports, slot)
	}
	return ports
}

// portReady reports whether a Get (forGet) or Put against v would
// proceed without blocking.
func portReady(v *valueheap.Value, forGet bool) bool {
	switch v.Tag {
	case valueheap.VLink:
		return !forGet || len(v.Queue) > 0
	case valueheap.VPort:
		if forGet {
			return v.Slot.HasValue
		}
		return !v.Slot.HasValue
	default:
		return false
	}
}
