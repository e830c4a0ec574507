package analyzer

import (
	"github.com/lhaig/blockc/internal/symbolic"
	"github.com/lhaig/blockc/internal/types"
)

// maxRewrites bounds the inner simplification loop of one solver round
const maxRewrites = 32

// normalize pushes negations down to the comparisons and removes them
// there, so that later folding never sits under a negation
func normalize(e *symbolic.Expr) *symbolic.Expr {
	switch e.Op {
	case symbolic.OpAnd, symbolic.OpOr:
		return symbolic.Binary(e.Op, normalize(e.Left), normalize(e.Right))
	case symbolic.OpNeg:
		return negate(e.Left)
	default:
		return e
	}
}

func negate(e *symbolic.Expr) *symbolic.Expr {
	switch e.Op {
	case symbolic.OpTrue:
		return symbolic.False()
	case symbolic.OpFalse:
		return symbolic.True()
	case symbolic.OpNeg:
		return normalize(e.Left)
	case symbolic.OpAnd:
		return symbolic.Or(negate(e.Left), negate(e.Right))
	case symbolic.OpOr:
		return symbolic.And(negate(e.Left), negate(e.Right))
	case symbolic.OpGt:
		return symbolic.Or(symbolic.Lt(e.Left, e.Right), symbolic.Eq(e.Left, e.Right))
	case symbolic.OpLt:
		return symbolic.Or(symbolic.Gt(e.Left, e.Right), symbolic.Eq(e.Left, e.Right))
	case symbolic.OpEq:
		return symbolic.Or(symbolic.Lt(e.Left, e.Right), symbolic.Gt(e.Left, e.Right))
	default:
		return symbolic.Neg(e)
	}
}

// simplify folds ground arithmetic and comparisons and applies the boolean
// identities until nothing changes
func simplify(e *symbolic.Expr, domain types.Type) *symbolic.Expr {
	for i := 0; i < maxRewrites; i++ {
		next := symbolic.Rewrite(e, func(n *symbolic.Expr) *symbolic.Expr {
			return fold(n, domain)
		})
		if next.Equal(e) {
			return next
		}
		e = next
	}
	return e
}

func fold(n *symbolic.Expr, domain types.Type) *symbolic.Expr {
	switch n.Op {
	case symbolic.OpAdd, symbolic.OpSub:
		if symbolic.FindVar(n) != nil {
			return n
		}
		s, err := symbolic.Simplify(n, domain)
		if err != nil {
			return n
		}
		return symbolic.Of(s)

	case symbolic.OpGt, symbolic.OpLt, symbolic.OpEq:
		if symbolic.FindVar(n) != nil {
			return n
		}
		return foldComparison(n, domain)

	case symbolic.OpAnd:
		l, r := n.Left.Op, n.Right.Op
		switch {
		case l == symbolic.OpFalse || r == symbolic.OpFalse:
			return symbolic.False()
		case l == symbolic.OpTrue:
			return n.Right
		case r == symbolic.OpTrue:
			return n.Left
		}

	case symbolic.OpOr:
		l, r := n.Left.Op, n.Right.Op
		switch {
		case l == symbolic.OpTrue || r == symbolic.OpTrue:
			return symbolic.True()
		case l == symbolic.OpFalse:
			return n.Right
		case r == symbolic.OpFalse:
			return n.Left
		}

	case symbolic.OpNeg:
		switch n.Left.Op {
		case symbolic.OpTrue:
			return symbolic.False()
		case symbolic.OpFalse:
			return symbolic.True()
		}
	}
	return n
}

// foldComparison decides a ground comparison from the extents of its sides.
// Undecided comparisons are returned unchanged.
func foldComparison(n *symbolic.Expr, domain types.Type) *symbolic.Expr {
	ls, err := symbolic.Simplify(n.Left, domain)
	if err != nil {
		return n
	}
	rs, err := symbolic.Simplify(n.Right, domain)
	if err != nil {
		return n
	}
	if ls.Kind() == symbolic.SetEmpty || rs.Kind() == symbolic.SetEmpty {
		return symbolic.False()
	}
	llo, lhi, lok := symbolic.Extent(ls)
	rlo, rhi, rok := symbolic.Extent(rs)
	if !lok || !rok {
		return n
	}

	switch n.Op {
	case symbolic.OpGt:
		if llo > rhi {
			return symbolic.True()
		}
		if lhi <= rlo {
			return symbolic.False()
		}
	case symbolic.OpLt:
		if lhi < rlo {
			return symbolic.True()
		}
		if llo >= rhi {
			return symbolic.False()
		}
	case symbolic.OpEq:
		if llo == lhi && rlo == rhi && llo == rlo {
			return symbolic.True()
		}
		if lhi < rlo || rhi < llo {
			return symbolic.False()
		}
	}
	return n
}
