package scope

import (
	"testing"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/types"
)

func TestLookupAncestor(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)
	ref := g.Ref(x)

	root := New(nil)
	root.Declare(x)
	child := New(root)
	grandchild := New(child)

	entry := grandchild.Lookup(ref)
	if entry == nil {
		t.Fatal("expected declaration from ancestor scope")
	}
	if entry.Decl != x || entry.Scope != root {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestLookupIgnoresSiblingsAndDescendants(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)
	ref := g.Ref(x)

	root := New(nil)
	left := New(root)
	right := New(root)
	left.Declare(x)

	if right.Lookup(ref) != nil {
		t.Error("sibling declaration must not be visible")
	}
	if root.Lookup(ref) != nil {
		t.Error("descendant declaration must not be visible")
	}
	if left.Lookup(ref) == nil {
		t.Error("own declaration must be visible")
	}
}

func TestDeclareIsIdempotent(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)

	s := New(nil)
	s.Declare(x).Declare(x)
	if s.Len() != 1 {
		t.Errorf("expected one entry, got %d", s.Len())
	}
	if entries := s.Entries(); len(entries) != 1 || entries[0].Decl != x {
		t.Errorf("unexpected entries %v", entries)
	}
}

func TestChildrenRegisterImmediately(t *testing.T) {
	root := New(nil)
	a := New(root)
	b := New(root)
	children := root.Children()
	if len(children) != 2 || children[0] != a || children[1] != b {
		t.Fatalf("unexpected children %v", children)
	}
	if b.Parent() != root || b.Depth() != 1 || New(b).Depth() != 2 {
		t.Error("unexpected parent or depth")
	}
}

func TestEntriesInBlockOrder(t *testing.T) {
	g := blocks.New()
	a := g.Variable("a", types.Int, false)
	b := g.Variable("b", types.Int, false)
	c := g.Variable("c", types.Int, false)

	s := New(nil).Declare(c).Declare(a).Declare(b)
	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []*blocks.Node{a, b, c} {
		if entries[i].Decl != want || entries[i].Scope != s {
			t.Errorf("entry %d: got %s, want %s", i, entries[i].Decl.Name, want.Name)
		}
	}
}
