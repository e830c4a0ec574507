package symbolic

import (
	"github.com/lhaig/blockc/internal/types"
)

// Op discriminates the expression IR
type Op int

const (
	OpVal Op = iota
	OpTrue
	OpFalse
	OpNeg
	OpAnd
	OpOr
	OpEq
	OpLt
	OpGt
	OpAdd
	OpSub
	OpMult
	OpDiv
	OpRem
)

var opSymbols = [...]string{
	OpVal:   "val",
	OpTrue:  "true",
	OpFalse: "false",
	OpNeg:   "~",
	OpAnd:   "∧",
	OpOr:    "∨",
	OpEq:    "=",
	OpLt:    "<",
	OpGt:    ">",
	OpAdd:   "+",
	OpSub:   "-",
	OpMult:  "×",
	OpDiv:   "÷",
	OpRem:   "%",
}

// String returns the operator symbol used when serializing
func (op Op) String() string {
	if op < 0 || int(op) >= len(opSymbols) {
		return "?"
	}
	return opSymbols[op]
}

// Binary reports whether the operator has two operands
func (op Op) Binary() bool {
	return op >= OpAnd
}

// Comparison reports whether the operator compares two values
func (op Op) Comparison() bool {
	return op == OpEq || op == OpLt || op == OpGt
}

// LeafKind discriminates the payload of a Val leaf
type LeafKind int

const (
	LeafNum LeafKind = iota
	LeafStr
	LeafRef
	LeafSet
)

// Ref names a variable, loop index or device inside an expression
type Ref struct {
	Name string
	Type types.Type
}

// Leaf is the payload of an OpVal expression
type Leaf struct {
	Kind LeafKind
	Num  float64
	Str  string
	Ref  Ref
	Set  Set
}

func (l Leaf) equal(o Leaf) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case LeafNum:
		return l.Num == o.Num
	case LeafStr:
		return l.Str == o.Str
	case LeafRef:
		return l.Ref == o.Ref
	default:
		return l.Set.Equal(o.Set)
	}
}

// Expr is an immutable node of the constraint IR. Neg keeps its operand in
// Left.
type Expr struct {
	Op    Op
	Left  *Expr
	Right *Expr
	Leaf  Leaf
}

var (
	trueExpr  = &Expr{Op: OpTrue}
	falseExpr = &Expr{Op: OpFalse}
)

// Num is a numeric constant
func Num(v float64) *Expr { return &Expr{Op: OpVal, Leaf: Leaf{Kind: LeafNum, Num: v}} }

// Str is a string constant
func Str(s string) *Expr { return &Expr{Op: OpVal, Leaf: Leaf{Kind: LeafStr, Str: s}} }

// Var is a reference to a named variable
func Var(name string, t types.Type) *Expr {
	return &Expr{Op: OpVal, Leaf: Leaf{Kind: LeafRef, Ref: Ref{Name: name, Type: t}}}
}

// Of wraps a value set as a ground leaf
func Of(s Set) *Expr { return &Expr{Op: OpVal, Leaf: Leaf{Kind: LeafSet, Set: s}} }

func True() *Expr  { return trueExpr }
func False() *Expr { return falseExpr }

// Bool returns True or False
func Bool(b bool) *Expr {
	if b {
		return trueExpr
	}
	return falseExpr
}

func Neg(e *Expr) *Expr     { return &Expr{Op: OpNeg, Left: e} }
func And(l, r *Expr) *Expr  { return Binary(OpAnd, l, r) }
func Or(l, r *Expr) *Expr   { return Binary(OpOr, l, r) }
func Eq(l, r *Expr) *Expr   { return Binary(OpEq, l, r) }
func Lt(l, r *Expr) *Expr   { return Binary(OpLt, l, r) }
func Gt(l, r *Expr) *Expr   { return Binary(OpGt, l, r) }
func Add(l, r *Expr) *Expr  { return Binary(OpAdd, l, r) }
func Sub(l, r *Expr) *Expr  { return Binary(OpSub, l, r) }
func Mult(l, r *Expr) *Expr { return Binary(OpMult, l, r) }
func Div(l, r *Expr) *Expr  { return Binary(OpDiv, l, r) }
func Rem(l, r *Expr) *Expr  { return Binary(OpRem, l, r) }

// Binary builds a two-operand node
func Binary(op Op, l, r *Expr) *Expr {
	return &Expr{Op: op, Left: l, Right: r}
}

// IsRef reports whether e is a leaf holding a variable reference
func (e *Expr) IsRef() bool {
	return e.Op == OpVal && e.Leaf.Kind == LeafRef
}

// Equal compares structurally: And(a, b) never equals And(b, a)
func (e *Expr) Equal(o *Expr) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil || e.Op != o.Op {
		return false
	}
	switch e.Op {
	case OpVal:
		return e.Leaf.equal(o.Leaf)
	case OpTrue, OpFalse:
		return true
	case OpNeg:
		return e.Left.Equal(o.Left)
	default:
		return e.Left.Equal(o.Left) && e.Right.Equal(o.Right)
	}
}

// with rebuilds e around new children, reusing e when nothing changed
func (e *Expr) with(left, right *Expr) *Expr {
	if left == e.Left && right == e.Right {
		return e
	}
	return &Expr{Op: e.Op, Left: left, Right: right}
}

// Replace rewrites e bottom-up, applying f only at Val leaves
func Replace(e *Expr, f func(*Expr) *Expr) *Expr {
	switch e.Op {
	case OpVal:
		return f(e)
	case OpTrue, OpFalse:
		return e
	case OpNeg:
		return e.with(Replace(e.Left, f), nil)
	default:
		return e.with(Replace(e.Left, f), Replace(e.Right, f))
	}
}

// Rewrite rewrites e bottom-up, applying f at every node once its
// children have been rewritten
func Rewrite(e *Expr, f func(*Expr) *Expr) *Expr {
	switch e.Op {
	case OpVal, OpTrue, OpFalse:
		return f(e)
	case OpNeg:
		return f(e.with(Rewrite(e.Left, f), nil))
	default:
		return f(e.with(Rewrite(e.Left, f), Rewrite(e.Right, f)))
	}
}

// FindVar returns the first leaf holding a reference, depth first, or nil
// when e is ground
func FindVar(e *Expr) *Expr {
	switch e.Op {
	case OpVal:
		if e.IsRef() {
			return e
		}
		return nil
	case OpTrue, OpFalse:
		return nil
	case OpNeg:
		return FindVar(e.Left)
	default:
		if v := FindVar(e.Left); v != nil {
			return v
		}
		return FindVar(e.Right)
	}
}

// Refs lists the distinct references in e in first-seen order
func Refs(e *Expr) []Ref {
	var out []Ref
	seen := make(map[string]bool)
	Replace(e, func(leaf *Expr) *Expr {
		if leaf.IsRef() && !seen[leaf.Leaf.Ref.Name] {
			seen[leaf.Leaf.Ref.Name] = true
			out = append(out, leaf.Leaf.Ref)
		}
		return leaf
	})
	return out
}

// Collate flattens a nested chain of op (OpAnd or OpOr) into its operands
func Collate(e *Expr, op Op) []*Expr {
	if e.Op != op {
		return []*Expr{e}
	}
	return append(Collate(e.Left, op), Collate(e.Right, op)...)
}
