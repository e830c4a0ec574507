package blocks

import (
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/types"
)

// Device is an externally declared, typed input or output
type Device struct {
	Name string
	Type types.Type
}

// Graph is an arena of blocks. Nodes are owned by the graph and refer to
// each other by NodeID only.
type Graph struct {
	nodes []*Node

	Devices  []Device
	Main     NodeID   // the Start block, 0 when the program has no entry
	Handlers []NodeID // registered When blocks in declaration order
	Types    *types.Interner
}

// New creates an empty graph with its own type interner
func New() *Graph {
	return &Graph{Types: types.NewInterner()}
}

// Node returns the node with the given id, or nil
func (g *Graph) Node(id NodeID) *Node {
	if id == 0 || int(id) > len(g.nodes) {
		return nil
	}
	return g.nodes[id-1]
}

// Nodes returns every node in creation order
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NewNode allocates a node of the given kind
func (g *Graph) NewNode(kind Kind) *Node {
	n := &Node{
		ID:    NodeID(len(g.nodes) + 1),
		Kind:  kind,
		Times: Unbounded,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// AddDevice declares an external device
func (g *Graph) AddDevice(name string, t types.Type) {
	g.Devices = append(g.Devices, Device{Name: name, Type: t})
}

// FindDevice looks a device up by name
func (g *Graph) FindDevice(name string) (Device, bool) {
	for _, d := range g.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// SetSlot fills (or clears, when child is nil) a named slot of n
func (g *Graph) SetSlot(n *Node, name string, child *Node) error {
	spec := slotSpec(n.Kind, name)
	if spec == nil {
		return diagnostic.Errorf(diagnostic.UnrecognizedNode, "block '%s' has no slot '%s'", n.Kind, name).At(uint32(n.ID))
	}
	if child == nil {
		delete(n.slots, name)
		return nil
	}
	if got := child.Kind.Category(); got != spec.Accepts {
		return diagnostic.Errorf(diagnostic.TypeMismatch, "slot '%s' of '%s' accepts a %s, got a %s",
			name, n.Kind, spec.Accepts, got).At(uint32(child.ID))
	}
	if n.slots == nil {
		n.slots = make(map[string]NodeID)
	}
	n.slots[name] = child.ID
	return nil
}

// SlotNode returns the node held by a slot of n, or nil
func (g *Graph) SlotNode(n *Node, name string) *Node {
	return g.Node(n.Slot(name))
}

// Link appends next after prev in the same chain
func (g *Graph) Link(prev, next *Node) {
	prev.Next = next.ID
	next.Parent = prev.ID
}

// SetBody makes first the head of branch's affirmative or loop body
func (g *Graph) SetBody(branch, first *Node) {
	if first == nil {
		branch.Body = 0
		return
	}
	branch.Body = first.ID
	first.Parent = branch.ID
}

// SetElse makes first the head of an IfElse negative branch
func (g *Graph) SetElse(branch, first *Node) {
	if first == nil {
		branch.Else = 0
		return
	}
	branch.Else = first.ID
	first.Parent = branch.ID
}

// Chain links stmts in order and returns the first one, or nil
func (g *Graph) Chain(stmts ...*Node) *Node {
	if len(stmts) == 0 {
		return nil
	}
	for i := 1; i < len(stmts); i++ {
		g.Link(stmts[i-1], stmts[i])
	}
	return stmts[0]
}

// ChainOf returns the statements of the chain starting at first
func (g *Graph) ChainOf(first NodeID) []*Node {
	var out []*Node
	for n := g.Node(first); n != nil; n = g.Node(n.Next) {
		out = append(out, n)
	}
	return out
}

// Walk visits the subtree rooted at id in pre-order: slots, then nested
// bodies, then the chain successor. Returning false from fn prunes the
// node's descendants.
func (g *Graph) Walk(id NodeID, fn func(*Node) bool) {
	n := g.Node(id)
	if n == nil {
		return
	}
	if fn(n) {
		for _, child := range n.Children() {
			g.Walk(child, fn)
		}
		g.Walk(n.Body, fn)
		g.Walk(n.Else, fn)
	}
	g.Walk(n.Next, fn)
}

// Roots returns the Start block followed by every handler
func (g *Graph) Roots() []NodeID {
	var roots []NodeID
	if g.Main != 0 {
		roots = append(roots, g.Main)
	}
	return append(roots, g.Handlers...)
}
