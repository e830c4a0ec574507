package scope

import (
	"sort"

	"github.com/lhaig/blockc/internal/blocks"
)

// Entry is a declaration together with the scope that owns it
type Entry struct {
	Decl  *blocks.Node
	Scope *Scope
}

// Scope is a node in the lexical scope tree. Declarations are keyed by the
// identity of the declaring block, so two variables with the same name in
// different bodies never collide.
type Scope struct {
	parent   *Scope
	children []*Scope
	symbols  map[blocks.NodeID]*Entry
}

// New creates a scope and registers it as a child of parent immediately.
// Children are never detached.
func New(parent *Scope) *Scope {
	s := &Scope{
		parent:  parent,
		symbols: make(map[blocks.NodeID]*Entry),
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

// Declare registers decl in this scope. Declaring the same block again
// overwrites the entry.
func (s *Scope) Declare(decl *blocks.Node) *Scope {
	s.symbols[decl.ID] = &Entry{Decl: decl, Scope: s}
	return s
}

// Lookup resolves a reference through its declaring block, searching this
// scope and then its ancestors. It returns nil when the declaration is not
// visible from here.
func (s *Scope) Lookup(ref *blocks.Node) *Entry {
	for cur := s; cur != nil; cur = cur.parent {
		if entry, ok := cur.symbols[ref.Decl]; ok {
			return entry
		}
	}
	return nil
}

// Parent returns the enclosing scope, nil at the root
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Children returns the nested scopes in creation order
func (s *Scope) Children() []*Scope {
	return s.children
}

// Depth returns the number of ancestors
func (s *Scope) Depth() int {
	depth := 0
	for cur := s.parent; cur != nil; cur = cur.parent {
		depth++
	}
	return depth
}

// Len returns the number of declarations owned by this scope
func (s *Scope) Len() int {
	return len(s.symbols)
}

// Entries returns the declarations owned by this scope in block order
func (s *Scope) Entries() []*Entry {
	out := make([]*Entry, 0, len(s.symbols))
	for _, entry := range s.symbols {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Decl.ID < out[j].Decl.ID })
	return out
}
