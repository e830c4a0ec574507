package blocks

import (
	"fmt"

	"github.com/lhaig/blockc/internal/types"
)

// The constructors below build well-formed graphs from code. They panic on
// slot category errors, which are programming mistakes; documents go
// through SetSlot and get an error instead.

func (g *Graph) mustSlot(n *Node, name string, child *Node) {
	if child == nil {
		return
	}
	if err := g.SetSlot(n, name, child); err != nil {
		panic(fmt.Sprintf("blocks: %v", err))
	}
}

// Start creates the program entry block and registers it as Main
func (g *Graph) Start(body ...*Node) *Node {
	n := g.NewNode(Start)
	g.Main = n.ID
	if first := g.Chain(body...); first != nil {
		g.Link(n, first)
	}
	return n
}

// Variable declares a variable
func (g *Graph) Variable(name string, t types.Type, checked bool) *Node {
	n := g.NewNode(Variable)
	n.Name = name
	n.Type = t
	n.Checked = checked
	return n
}

// Literal creates a constant. Go numeric values are stored as float64.
func (g *Graph) Literal(v any, t types.Type) *Node {
	n := g.NewNode(Literal)
	n.Type = t
	switch x := v.(type) {
	case int:
		n.Value = float64(x)
	case int64:
		n.Value = float64(x)
	case float32:
		n.Value = float64(x)
	default:
		n.Value = v
	}
	return n
}

// Ref creates a reference to a Variable or to a For loop index
func (g *Graph) Ref(decl *Node) *Node {
	kind := VarRef
	if decl.Kind == For {
		kind = ForIndexRef
	}
	n := g.NewNode(kind)
	n.Name = decl.Name
	n.Decl = decl.ID
	return n
}

// DeviceRef creates a reference to an external device
func (g *Graph) DeviceRef(name string) *Node {
	n := g.NewNode(DeviceRef)
	n.Name = name
	return n
}

// Binary creates an arithmetic value or a binary predicate
func (g *Graph) Binary(kind Kind, left, right *Node) *Node {
	n := g.NewNode(kind)
	g.mustSlot(n, SlotLeft, left)
	g.mustSlot(n, SlotRight, right)
	return n
}

// Not negates a predicate
func (g *Graph) Not(operand *Node) *Node {
	n := g.NewNode(Not)
	g.mustSlot(n, SlotOperand, operand)
	return n
}

// Element indexes vector by a computed index
func (g *Graph) Element(vector, index *Node) *Node {
	n := g.NewNode(ElementOf)
	g.mustSlot(n, SlotVector, vector)
	g.mustSlot(n, SlotIndex, index)
	return n
}

// ElementAt indexes vector by a constant
func (g *Graph) ElementAt(vector *Node, index int) *Node {
	n := g.NewNode(ElementOf)
	g.mustSlot(n, SlotVector, vector)
	n.LitIndex = &index
	return n
}

// InterruptOn creates the trigger predicate of a hardware or timer interrupt
func (g *Graph) InterruptOn(name string) *Node {
	n := g.NewNode(Interrupt)
	n.Name = name
	return n
}

// Set assigns value to target
func (g *Graph) Set(target, value *Node) *Node {
	n := g.NewNode(SetVar)
	g.mustSlot(n, SlotVar, target)
	g.mustSlot(n, SlotValue, value)
	return n
}

// Print writes value to standard output
func (g *Graph) Print(value *Node) *Node {
	n := g.NewNode(Print)
	g.mustSlot(n, SlotValue, value)
	return n
}

// Input reads standard input into target
func (g *Graph) Input(target *Node) *Node {
	n := g.NewNode(Input)
	g.mustSlot(n, SlotVar, target)
	return n
}

// If runs body when cond holds
func (g *Graph) If(cond *Node, body ...*Node) *Node {
	n := g.NewNode(If)
	g.mustSlot(n, SlotCond, cond)
	g.SetBody(n, g.Chain(body...))
	return n
}

// IfElse runs then when cond holds and els otherwise
func (g *Graph) IfElse(cond *Node, then, els []*Node) *Node {
	n := g.NewNode(IfElse)
	g.mustSlot(n, SlotCond, cond)
	g.SetBody(n, g.Chain(then...))
	g.SetElse(n, g.Chain(els...))
	return n
}

// While repeats body while cond holds
func (g *Graph) While(cond *Node, body ...*Node) *Node {
	n := g.NewNode(While)
	g.mustSlot(n, SlotCond, cond)
	g.SetBody(n, g.Chain(body...))
	return n
}

// For creates a counting loop with index name. Bounds go into the slots
// matching the iteration mode; the body is attached with SetBody so that
// it can reference the index.
func (g *Graph) For(index string, t types.Type, mode Iteration) *Node {
	n := g.NewNode(For)
	n.Name = index
	n.Type = t
	n.Iteration = mode
	return n
}

// When registers an event handler. times is Unbounded for handlers that
// run on every trigger.
func (g *Graph) When(cond *Node, times int, body ...*Node) *Node {
	n := g.NewNode(When)
	g.mustSlot(n, SlotCond, cond)
	n.Times = times
	g.SetBody(n, g.Chain(body...))
	g.Handlers = append(g.Handlers, n.ID)
	return n
}
