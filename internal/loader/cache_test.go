package loader

import (
	"testing"

	"fblego/internal/ast"
	"fblego/internal/bytecode"
	"fblego/internal/heap"
)

func newModule(name string, expr ast.Expr) ast.Module {
	return ast.Module{Name: modName(name), Expr: expr}
}

func TestKeyStableAcrossEquivalentModules(t *testing.T) {
	a := newModule("M", unit())
	b := newModule("M", unit())
	if Key(a) != Key(b) {
		t.Fatalf("structurally identical modules hashed to different keys")
	}
}

func TestKeyDistinguishesDifferentBodies(t *testing.T) {
	a := newModule("M", unit())
	b := newModule("M", modRef("Other"))
	if Key(a) == Key(b) {
		t.Fatalf("structurally different modules hashed to the same key")
	}
}

func TestCacheLookupAndStore(t *testing.T) {
	c := NewCache()
	key := Key(newModule("M", unit()))

	if _, ok := c.Lookup(key); ok {
		t.Fatalf("expected a miss on an empty cache")
	}

	block := bytecode.NewInstrBlock(heap.NewArena(nil), 0)
	c.Store(key, block)

	got, ok := c.Lookup(key)
	if !ok || got != block {
		t.Fatalf("expected the stored block back, got %v, %v", got, ok)
	}
}
