// Package analyzer derives symbolic constraints on variables at program
// points of a block graph and solves them into value sets.
package analyzer

import (
	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/symbolic"
	"github.com/lhaig/blockc/internal/types"
)

var binaryOps = map[blocks.Kind]symbolic.Op{
	blocks.Add:  symbolic.OpAdd,
	blocks.Sub:  symbolic.OpSub,
	blocks.Mult: symbolic.OpMult,
	blocks.Div:  symbolic.OpDiv,
	blocks.Mod:  symbolic.OpRem,
	blocks.And:  symbolic.OpAnd,
	blocks.Or:   symbolic.OpOr,
	blocks.Eq:   symbolic.OpEq,
	blocks.Lt:   symbolic.OpLt,
	blocks.Gt:   symbolic.OpGt,
}

// ComposeExpr lowers the value or predicate tree rooted at id into the
// expression IR
func ComposeExpr(g *blocks.Graph, id blocks.NodeID) (*symbolic.Expr, error) {
	n := g.Node(id)
	if n == nil {
		return nil, diagnostic.Errorf(diagnostic.MissingOperand, "Missing operand")
	}

	switch n.Kind {
	case blocks.Literal:
		switch v := n.Value.(type) {
		case float64:
			return symbolic.Num(v), nil
		case string:
			return symbolic.Str(v), nil
		case bool:
			return symbolic.Bool(v), nil
		}
		return nil, diagnostic.Errorf(diagnostic.UnrecognizedExpression, "Unrecognized literal %v", n.Value).At(uint32(n.ID))

	case blocks.VarRef, blocks.ForIndexRef:
		return symbolic.Var(n.Name, refType(g, n)), nil

	case blocks.DeviceRef:
		d, ok := g.FindDevice(n.Name)
		if !ok {
			return nil, diagnostic.Errorf(diagnostic.UnresolvedVariable, "Device %s not declared", n.Name).At(uint32(n.ID))
		}
		return symbolic.Var(d.Name, d.Type), nil

	case blocks.Not:
		operand, err := ComposeExpr(g, n.Slot(blocks.SlotOperand))
		if err != nil {
			return nil, at(err, n)
		}
		return symbolic.Neg(operand), nil

	case blocks.Lte, blocks.Gte:
		l, r, err := composeOperands(g, n)
		if err != nil {
			return nil, err
		}
		op := symbolic.OpLt
		if n.Kind == blocks.Gte {
			op = symbolic.OpGt
		}
		return symbolic.Or(symbolic.Binary(op, l, r), symbolic.Eq(l, r)), nil
	}

	if op, ok := binaryOps[n.Kind]; ok {
		l, r, err := composeOperands(g, n)
		if err != nil {
			return nil, err
		}
		return symbolic.Binary(op, l, r), nil
	}
	return nil, diagnostic.Errorf(diagnostic.UnrecognizedExpression, "Unrecognized expression block '%s'", n.Kind).At(uint32(n.ID))
}

func composeOperands(g *blocks.Graph, n *blocks.Node) (l, r *symbolic.Expr, err error) {
	if l, err = ComposeExpr(g, n.Slot(blocks.SlotLeft)); err != nil {
		return nil, nil, at(err, n)
	}
	if r, err = ComposeExpr(g, n.Slot(blocks.SlotRight)); err != nil {
		return nil, nil, at(err, n)
	}
	return l, r, nil
}

// refType returns the declared type behind a variable or loop index
// reference
func refType(g *blocks.Graph, ref *blocks.Node) types.Type {
	if decl := g.Node(ref.Decl); decl != nil {
		return decl.Type
	}
	return nil
}

// at attributes an error without a node to n
func at(err error, n *blocks.Node) error {
	if e, ok := diagnostic.AsError(err); ok {
		return e.At(uint32(n.ID))
	}
	return err
}
