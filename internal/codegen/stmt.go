package codegen

import (
	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/logger"
	"github.com/lhaig/blockc/internal/scope"
	"github.com/lhaig/blockc/internal/types"
)

// compileChain compiles the statements starting at first, in order
func (g *generator) compileChain(first blocks.NodeID, sc *scope.Scope) (*Result, error) {
	res := newResult()
	for _, n := range g.graph.ChainOf(first) {
		stmt, err := g.compileStmt(n, sc)
		if err != nil {
			return nil, err
		}
		res.Lines = append(res.Lines, stmt.Lines...)
		res.Requires.Merge(stmt.Requires)
	}
	return res, nil
}

func (g *generator) compileStmt(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	switch n.Kind {
	case blocks.Variable:
		return g.declare(n, sc)
	case blocks.SetVar:
		return g.assign(n, sc)
	case blocks.Print:
		return g.print(n, sc)
	case blocks.Input:
		return g.input(n, sc)
	case blocks.If, blocks.IfElse:
		return g.branch(n, sc)
	case blocks.While:
		return g.loop(n, sc)
	case blocks.For:
		return g.forLoop(n, sc)
	}
	return nil, g.errorf(n, diagnostic.UnrecognizedNode, "Unrecognized block '%s' in statement position", n.Kind)
}

func (g *generator) declare(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	if n.Type == nil {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Variable %s has no type", n.Name)
	}
	code, requires := n.Type.Compile()
	sc.Declare(n)

	res := newResult()
	res.Requires.Add(requires...)
	res.Lines = []string{code + " " + n.Name + ";"}
	return res, nil
}

func (g *generator) assign(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	target := g.graph.SlotNode(n, blocks.SlotVar)
	if target == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "Missing variable to set")
	}
	valueNode := g.graph.SlotNode(n, blocks.SlotValue)
	if valueNode == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "Missing value to set")
	}
	value, err := g.compileExpr(valueNode, sc)
	if err != nil {
		return nil, err
	}
	variable, err := g.compileExpr(target, sc)
	if err != nil {
		return nil, err
	}
	if !variable.Attributes.LValue {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Cannot assign to '%s'", variable.Code)
	}
	if variable.Attributes.ResolvedType != value.Attributes.ResolvedType {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Mismatch of variable and value type")
	}

	res := newResult()
	res.Requires.Merge(value.Requires)
	res.Requires.Merge(variable.Requires)
	checks := append(append([]Check(nil), value.Checks...), variable.Checks...)
	res.Lines = g.hoist(res, n, checks, false)
	res.Lines = append(res.Lines, variable.Code+" = "+parenthesize(value, PrecAssignment, true)+";")
	return res, nil
}

func (g *generator) print(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	valueNode := g.graph.SlotNode(n, blocks.SlotValue)
	if valueNode == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "Missing value to print")
	}
	value, err := g.compileExpr(valueNode, sc)
	if err != nil {
		return nil, err
	}
	res := newResult()
	res.Requires.Merge(value.Requires)
	res.Requires.Add("iostream")
	res.Lines = g.hoist(res, n, value.Checks, false)
	res.Lines = append(res.Lines, "std::cout << "+parenthesize(value, PrecShift, true)+" << std::endl;")
	return res, nil
}

func (g *generator) input(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	target := g.graph.SlotNode(n, blocks.SlotVar)
	if target == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "Missing variable to read into")
	}
	variable, err := g.compileExpr(target, sc)
	if err != nil {
		return nil, err
	}
	if !variable.Attributes.LValue {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Cannot read into '%s'", variable.Code)
	}

	res := newResult()
	res.Requires.Merge(variable.Requires)
	res.Requires.Add("iostream")
	res.Lines = g.hoist(res, n, variable.Checks, false)
	if variable.Attributes.ResolvedType == types.Byte {
		// chars are read as numbers
		res.Lines = append(res.Lines,
			"{",
			indentUnit+"int __tmp;",
			indentUnit+"std::cin >> __tmp;",
			indentUnit+variable.Code+" = (char)__tmp;",
			"}",
		)
	} else {
		res.Lines = append(res.Lines, "std::cin >> "+parenthesize(variable, PrecShift, true)+";")
	}
	return res, nil
}

// condition compiles the predicate slot of a branch, loop or handler
func (g *generator) condition(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	cn := g.graph.SlotNode(n, blocks.SlotCond)
	if cn == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "'%s' block without condition", n.Kind)
	}
	cond, err := g.compileExpr(cn, sc)
	if err != nil {
		return nil, err
	}
	if cond.Attributes.ResolvedType != types.Bool {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Condition of '%s' block must be a predicate", n.Kind)
	}
	return cond, nil
}

// body compiles a nested chain in a fresh child scope
func (g *generator) body(first blocks.NodeID, sc *scope.Scope) (*Result, error) {
	return g.compileChain(first, scope.New(sc))
}

func (g *generator) branch(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	cond, err := g.condition(n, sc)
	if err != nil {
		return nil, err
	}
	then, err := g.body(n.Body, sc)
	if err != nil {
		return nil, err
	}

	res := newResult()
	res.Requires.Merge(cond.Requires)
	res.Requires.Merge(then.Requires)
	res.Lines = g.hoist(res, n, cond.Checks, false)
	res.Lines = append(res.Lines, "if ("+cond.Code+") {")
	res.Lines = append(res.Lines, indent(then.Lines)...)

	if n.Kind == blocks.IfElse {
		els, err := g.body(n.Else, sc)
		if err != nil {
			return nil, err
		}
		res.Requires.Merge(els.Requires)
		res.Lines = append(res.Lines, "} else {")
		res.Lines = append(res.Lines, indent(els.Lines)...)
	}
	res.Lines = append(res.Lines, "}")
	return res, nil
}

func (g *generator) loop(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	cond, err := g.condition(n, sc)
	if err != nil {
		return nil, err
	}
	body, err := g.body(n.Body, sc)
	if err != nil {
		return nil, err
	}

	res := newResult()
	res.Requires.Merge(cond.Requires)
	res.Requires.Merge(body.Requires)
	guards := g.hoist(res, n, cond.Checks, true)
	res.Lines = append(res.Lines, guards...)
	res.Lines = append(res.Lines, "while ("+cond.Code+") {")
	res.Lines = append(res.Lines, indent(body.Lines)...)
	// the condition is evaluated again after every iteration
	res.Lines = append(res.Lines, indent(guards)...)
	res.Lines = append(res.Lines, "}")
	return res, nil
}

func (g *generator) forLoop(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	inner := scope.New(sc)
	inner.Declare(n)
	body, err := g.compileChain(n.Body, inner)
	if err != nil {
		return nil, err
	}
	if g.diags != nil {
		g.diags.WarnNode(uint32(n.ID), n.Pos.Line, n.Pos.Column,
			"for loop over '%s' has its bounds ignored and never terminates on its own", n.Name)
	}

	res := newResult()
	res.Requires.Merge(body.Requires)
	res.Lines = append(res.Lines, "for (;true;) {")
	res.Lines = append(res.Lines, indent(body.Lines)...)
	res.Lines = append(res.Lines, "}")
	return res, nil
}

// hoist consults the guard policy for every check ahead of stmt and returns
// the lines of the guards that must be emitted. Requirements of emitted
// guards are added to res.
func (g *generator) hoist(res *Result, stmt *blocks.Node, checks []Check, condition bool) []string {
	var lines []string
	for _, check := range checks {
		if check.Site == nil {
			lines = append(lines, check.Lines...)
			res.Requires.Add(check.Requires...)
			continue
		}
		site := *check.Site
		site.Stmt = stmt.ID
		site.Condition = condition

		decision := g.policy.Decide(g.graph, site)
		g.guards = append(g.guards, decision)
		logger.LogGuard(uint32(site.Node), site.Kind.String(), site.Variable, decision.Status)

		if decision.Emit {
			lines = append(lines, check.Lines...)
			res.Requires.Add(check.Requires...)
		}
	}
	return lines
}
