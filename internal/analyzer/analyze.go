package analyzer

import (
	"sort"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/logger"
	"github.com/lhaig/blockc/internal/symbolic"
	"github.com/lhaig/blockc/internal/types"
)

// Constraint is what is known about one variable at a program point
type Constraint struct {
	Expr *symbolic.Expr
	Type types.Type
}

// Constraints maps variable, loop index and device names to their
// constraint
type Constraints map[string]Constraint

// Names returns the constrained names in sorted order
func (c Constraints) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c Constraints) seed(name string, t types.Type) {
	c[name] = Constraint{Expr: symbolic.True(), Type: t}
}

// assign forgets what is known about name, together with every conjunct of
// another constraint that relates it to the old value of name
func (c Constraints) assign(name string, t types.Type) {
	for other, acc := range c {
		if other == name || !mentions(acc.Expr, name) {
			continue
		}
		kept := symbolic.True()
		for _, part := range symbolic.Collate(acc.Expr, symbolic.OpAnd) {
			switch {
			case mentions(part, name):
			case kept.Op == symbolic.OpTrue:
				kept = part
			default:
				kept = symbolic.And(kept, part)
			}
		}
		acc.Expr = kept
		c[other] = acc
	}
	c.seed(name, t)
}

func mentions(e *symbolic.Expr, name string) bool {
	for _, ref := range symbolic.Refs(e) {
		if ref.Name == name {
			return true
		}
	}
	return false
}

// restrict ANDs cond into every variable it references
func (c Constraints) restrict(cond *symbolic.Expr) {
	for _, ref := range symbolic.Refs(cond) {
		acc, ok := c[ref.Name]
		if !ok {
			acc = Constraint{Expr: symbolic.True(), Type: ref.Type}
		}
		if acc.Expr.Op == symbolic.OpTrue {
			acc.Expr = cond
		} else {
			acc.Expr = symbolic.And(acc.Expr, cond)
		}
		c[ref.Name] = acc
	}
}

// step is one edge of the walk: the statement and the child it was left by
type step struct {
	node *blocks.Node
	via  blocks.NodeID
}

// Analyze computes the constraints holding on the edge from point to its
// child from. The walk climbs from point to the top of its chain and then
// applies each statement's effect, root first.
func Analyze(g *blocks.Graph, point, from blocks.NodeID) (Constraints, error) {
	var path []step
	cur, via := g.Node(point), from
	for {
		if cur == nil {
			return nil, diagnostic.Errorf(diagnostic.UnrecognizedNode, "Program point #%d does not exist", point)
		}
		if cur.Kind.Category() != blocks.CategoryStatement {
			return nil, diagnostic.Errorf(diagnostic.UnrecognizedNode, "Block '%s' is not a statement", cur.Kind).At(uint32(cur.ID))
		}
		path = append(path, step{node: cur, via: via})
		if cur.Kind.IsTop() {
			break
		}
		if cur.Parent == 0 {
			return nil, diagnostic.Errorf(diagnostic.UnanchoredChain,
				"Block chain has no starting point, and so will never be executed!").At(uint32(cur.ID))
		}
		cur, via = g.Node(cur.Parent), cur.ID
	}

	cons := make(Constraints)
	for i := len(path) - 1; i >= 0; i-- {
		if err := apply(g, cons, path[i].node, path[i].via); err != nil {
			return nil, err
		}
	}
	logger.Debug("analyzed program point", "point", point, "from", from, "constrained", len(cons))
	return cons, nil
}

// AnalyzeEntry computes the constraints holding on entry to statement id.
// A chain top sees only the declared devices.
func AnalyzeEntry(g *blocks.Graph, id blocks.NodeID) (Constraints, error) {
	n := g.Node(id)
	if n == nil {
		return nil, diagnostic.Errorf(diagnostic.UnrecognizedNode, "Program point #%d does not exist", id)
	}
	if n.Kind.IsTop() {
		cons := make(Constraints)
		seedDevices(g, cons)
		return cons, nil
	}
	if n.Parent == 0 {
		return nil, diagnostic.Errorf(diagnostic.UnanchoredChain,
			"Block chain has no starting point, and so will never be executed!").At(uint32(n.ID))
	}
	return Analyze(g, n.Parent, n.ID)
}

func unreachable(n *blocks.Node, via blocks.NodeID) error {
	return diagnostic.Errorf(diagnostic.UnreachableEdge,
		"Block #%d is not reachable from '%s' block", via, n.Kind).At(uint32(n.ID))
}

func apply(g *blocks.Graph, cons Constraints, n *blocks.Node, via blocks.NodeID) error {
	switch n.Kind {
	case blocks.Start:
		if via != n.Next {
			return unreachable(n, via)
		}
		seedDevices(g, cons)
		return nil

	case blocks.When:
		if via != n.Body {
			return unreachable(n, via)
		}
		seedDevices(g, cons)
		cond := g.SlotNode(n, blocks.SlotCond)
		if cond == nil || cond.Kind == blocks.Interrupt {
			return nil
		}
		return applyCond(g, cons, n, false)

	case blocks.Variable:
		if via != n.Next {
			return unreachable(n, via)
		}
		cons.assign(n.Name, n.Type)
		return nil

	case blocks.SetVar:
		if via != n.Next {
			return unreachable(n, via)
		}
		target := g.SlotNode(n, blocks.SlotVar)
		if !isVariable(target) {
			return nil
		}
		t := refType(g, target)
		cons.assign(target.Name, t)
		if value := g.SlotNode(n, blocks.SlotValue); value != nil && value.Kind == blocks.Literal {
			if v, ok := value.Number(); ok {
				cons[target.Name] = Constraint{
					Expr: symbolic.Eq(symbolic.Var(target.Name, t), symbolic.Num(v)),
					Type: t,
				}
			}
		}
		return nil

	case blocks.Input:
		if via != n.Next {
			return unreachable(n, via)
		}
		if target := g.SlotNode(n, blocks.SlotVar); isVariable(target) {
			cons.assign(target.Name, refType(g, target))
		}
		return nil

	case blocks.Print:
		if via != n.Next {
			return unreachable(n, via)
		}
		return nil

	case blocks.If, blocks.IfElse:
		switch {
		case via != 0 && via == n.Body:
			return applyCond(g, cons, n, false)
		case via != 0 && via == n.Else:
			return applyCond(g, cons, n, true)
		}
		return unreachable(n, via)

	case blocks.While:
		switch via {
		case n.Body:
			resetAssigned(g, cons, n)
			return applyCond(g, cons, n, false)
		case n.Next:
			resetAssigned(g, cons, n)
			return applyCond(g, cons, n, true)
		}
		return unreachable(n, via)

	case blocks.For:
		switch via {
		case n.Body:
			cons.assign(n.Name, n.Type)
			resetAssigned(g, cons, n)
			return nil
		case n.Next:
			resetAssigned(g, cons, n)
			return nil
		}
		return unreachable(n, via)
	}
	return diagnostic.Errorf(diagnostic.UnrecognizedNode, "Unrecognized block '%s'", n.Kind).At(uint32(n.ID))
}

// applyCond ANDs the branch condition, or its negation, into every
// variable the condition references
func applyCond(g *blocks.Graph, cons Constraints, n *blocks.Node, negate bool) error {
	cond, err := ComposeExpr(g, n.Slot(blocks.SlotCond))
	if err != nil {
		return at(err, n)
	}
	if negate {
		cond = symbolic.Neg(cond)
	}
	cons.restrict(cond)
	return nil
}

func seedDevices(g *blocks.Graph, cons Constraints) {
	for _, d := range g.Devices {
		cons.seed(d.Name, d.Type)
	}
}

// resetAssigned forgets everything known about variables a loop body may
// assign, and every condition relating other variables to them
func resetAssigned(g *blocks.Graph, cons Constraints, loop *blocks.Node) {
	g.Walk(loop.Body, func(n *blocks.Node) bool {
		if n.Kind == blocks.SetVar || n.Kind == blocks.Input {
			if target := g.SlotNode(n, blocks.SlotVar); isVariable(target) {
				cons.assign(target.Name, refType(g, target))
			}
		}
		return true
	})
}

func isVariable(n *blocks.Node) bool {
	return n != nil && (n.Kind == blocks.VarRef || n.Kind == blocks.ForIndexRef)
}
