package loader

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"

	"fblego/internal/ast"
	"fblego/internal/bytecode"
)

// Cache memoizes a module's compiled InstrBlock by a content hash of its
// resolved AST. Parsing is out of scope, so the hash is taken over the
// AST's own structure rather than raw source bytes; two modules with
// equal ASTs get the same key (see hashExpr for which differences the
// key does not see). The cmd/fble drivers do not consult a Cache; they
// compile each run afresh.
type Cache struct {
	mu      sync.Mutex
	entries map[[blake2b.Size256]byte]*bytecode.InstrBlock
}

// NewCache creates an empty compile cache.
func NewCache() *Cache {
	return &Cache{entries: map[[blake2b.Size256]byte]*bytecode.InstrBlock{}}
}

// Key hashes a module's name and expression structure.
func Key(m ast.Module) [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s:%v:", m.Name.Text, m.Private)
	hashExpr(h, m.Expr)
	var out [blake2b.Size256]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Lookup returns the cached block for key, if any.
func (c *Cache) Lookup(key [blake2b.Size256]byte) (*bytecode.InstrBlock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	return b, ok
}

// Store records block under key, compiled once for this content.
func (c *Cache) Store(key [blake2b.Size256]byte, block *bytecode.InstrBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = block
}

type hasher interface {
	Write(p []byte) (int, error)
}

// hashExpr feeds a stable structural encoding of e into h: a type tag
// byte followed by each field in declaration order, for the node kinds
// listed below; not a canonical/minimal encoding. Every other node kind
// is hashed by its Go type name alone, so two such nodes of the same
// type hash equal even when their contents differ.
func hashExpr(h hasher, e ast.Expr) {
	if e == nil {
		fmt.Fprint(h, "nil;")
		return
	}
	switch n := e.(type) {
	case *ast.VarRef:
		fmt.Fprintf(h, "var(%s,%d);", n.Name.Text, n.Name.NS)
	case *ast.ModuleRef:
		fmt.Fprintf(h, "modref(")
		for _, p := range n.Path {
			fmt.Fprintf(h, "%s.", p.Text)
		}
		fmt.Fprint(h, ");")
	case *ast.Let:
		fmt.Fprint(h, "let(")
		for _, b := range n.Bindings {
			fmt.Fprintf(h, "%s=", b.Name.Text)
			hashExpr(h, b.Type)
			hashExpr(h, b.Expr)
		}
		hashExpr(h, n.Body)
		fmt.Fprint(h, ");")
	case *ast.StructValueImplicitType:
		fmt.Fprint(h, "struct(")
		for _, a := range n.Args {
			fmt.Fprintf(h, "%s:", a.Name.Text)
			hashExpr(h, a.Expr)
		}
		fmt.Fprint(h, ");")
	case *ast.UnionValue:
		fmt.Fprintf(h, "union(%s,", n.Tag.Text)
		hashExpr(h, n.Type)
		hashExpr(h, n.Arg)
		fmt.Fprint(h, ");")
	case *ast.UnionSelect:
		fmt.Fprint(h, "select(")
		hashExpr(h, n.Condition)
		for _, c := range n.Choices {
			fmt.Fprintf(h, "%s[%v]:", c.Tag.Text, c.Default)
			hashExpr(h, c.Expr)
		}
		fmt.Fprint(h, ");")
	case *ast.FuncValue:
		fmt.Fprint(h, "func(")
		for _, a := range n.Args {
			fmt.Fprintf(h, "%s,", a.Name.Text)
		}
		hashExpr(h, n.Body)
		fmt.Fprint(h, ");")
	case *ast.MiscApply:
		fmt.Fprint(h, "apply(")
		hashExpr(h, n.Applied)
		for _, a := range n.Args {
			hashExpr(h, a)
		}
		fmt.Fprint(h, ");")
	case *ast.MiscAccess:
		fmt.Fprintf(h, "access(%s,", n.Field.Text)
		hashExpr(h, n.Obj)
		fmt.Fprint(h, ");")
	case *ast.List:
		fmt.Fprint(h, "list(")
		for _, el := range n.Elems {
			hashExpr(h, el)
		}
		fmt.Fprint(h, ");")
	case *ast.Literal:
		fmt.Fprintf(h, "literal(%s,", n.Word)
		hashExpr(h, n.Spec)
		fmt.Fprint(h, ");")
	default:
		// Any other node (types, proc forms, poly forms): fall back to a
		// location-free tag of the node's Go type only; nested fields are
		// not hashed, so instances of one type with different contents
		// collide.
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(len(fmt.Sprintf("%T", n))))
		h.Write(buf[:])
		fmt.Fprintf(h, "%T;", n)
	}
}
