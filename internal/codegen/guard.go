package codegen

import (
	"fmt"
	"math"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/types"
)

// GuardKind is the failure a runtime guard protects against
type GuardKind int

const (
	GuardOverflow GuardKind = iota
	GuardZeroDivisor
)

func (k GuardKind) String() string {
	if k == GuardZeroDivisor {
		return "zero-divisor"
	}
	return "overflow"
}

// GuardSite describes one guardable operation
type GuardSite struct {
	Kind      GuardKind
	Op        blocks.Kind
	Node      blocks.NodeID // the guarded operation
	Stmt      blocks.NodeID // the statement the guard is hoisted ahead of
	Variable  string        // the checked variable
	Other     string        // the other operand as written in C++
	Type      types.Type    // the checked variable's type
	Left      blocks.NodeID
	Right     blocks.NodeID
	Condition bool // guards a loop or handler condition evaluated repeatedly
}

// Guard statuses
const (
	StatusProven  = "proven"
	StatusGuarded = "guarded"
	StatusError   = "error"
)

// GuardDecision records whether a guard was emitted and why
type GuardDecision struct {
	Site   GuardSite
	Emit   bool
	Status string
	Reason string
}

// GuardPolicy decides whether a guard must be emitted at a site
type GuardPolicy interface {
	Decide(g *blocks.Graph, site GuardSite) GuardDecision
}

// AlwaysGuard emits every guard without analysis
type AlwaysGuard struct{}

func (AlwaysGuard) Decide(_ *blocks.Graph, site GuardSite) GuardDecision {
	return GuardDecision{Site: site, Emit: true, Status: StatusGuarded, Reason: "not analyzed"}
}

// checkedDecl returns the declaration behind n when n references a variable
// opted into runtime checks
func (g *generator) checkedDecl(n *blocks.Node) *blocks.Node {
	if n == nil || n.Kind != blocks.VarRef {
		return nil
	}
	decl := g.graph.Node(n.Decl)
	if decl == nil || decl.Kind != blocks.Variable || !decl.Checked {
		return nil
	}
	return decl
}

func isReference(n *blocks.Node) bool {
	return n != nil && (n.Kind == blocks.VarRef || n.Kind == blocks.ForIndexRef)
}

func numericLiteral(n *blocks.Node) (float64, bool) {
	if n == nil || n.Kind != blocks.Literal {
		return 0, false
	}
	return n.Number()
}

// valueOf renders a variable for a diagnostic message; chars print as
// numbers
func valueOf(name string, t types.Type) string {
	if t == types.Byte {
		return "(int)" + name
	}
	return name
}

func (g *generator) abort() string {
	if g.handler {
		return "return;"
	}
	return "return 1;"
}

func (g *generator) guardBlock(cond, message string) []string {
	return []string{
		"if (" + cond + ") {",
		indentUnit + "std::cerr << " + message + " << std::endl;",
		indentUnit + g.abort(),
		"}",
	}
}

// overflowGuard builds the width check for an addition or subtraction with
// a checked variable operand and a literal or checked variable partner. It
// returns nil when the operation is not guardable.
func (g *generator) overflowGuard(n, left, right *blocks.Node, l, r *Result) *Check {
	ldecl, rdecl := g.checkedDecl(left), g.checkedDecl(right)
	lval, lok := numericLiteral(left)
	rval, rok := numericLiteral(right)

	var decl *blocks.Node
	var other string
	var otherType types.Type
	switch {
	case ldecl != nil && rok:
		decl, other = ldecl, r.Code
	case ldecl != nil && isReference(right):
		decl, other, otherType = ldecl, r.Code, r.Attributes.ResolvedType
	case rdecl != nil && lok:
		decl, other = rdecl, l.Code
	case rdecl != nil && isReference(left):
		decl, other, otherType = rdecl, l.Code, l.Attributes.ResolvedType
	default:
		return nil
	}

	t := decl.Type
	tcode, _ := t.Compile()
	x := decl.Name
	shown := "\"Variable '" + x + "' (value \" << " + valueOf(x, t) + " << \")"

	var cond, message string
	switch {
	case n.Kind == blocks.Add && otherType != nil:
		cond = fmt.Sprintf("!lellib::addition<%s>::safe(%s, %s)", tcode, x, other)
		message = shown + " would overflow upon adding '" + other + "' (value \" << " + valueOf(other, otherType) + " << \")\""

	case n.Kind == blocks.Add:
		val := lval
		if ldecl != nil {
			val = rval
		}
		lit := formatNumber(val, t)
		switch {
		case !t.Integral() || val != math.Trunc(val):
			cond = fmt.Sprintf("!lellib::addition<%s>::safe(%s, %s)", tcode, x, lit)
		case val < 0:
			cond = fmt.Sprintf("%s < lellib::addition<%s>::minNegative<%s>()", x, tcode, lit)
		default:
			cond = fmt.Sprintf("%s > lellib::addition<%s>::maxPositive<%s>()", x, tcode, lit)
		}
		message = shown + " would overflow upon adding " + lit + "\""

	case ldecl != nil && rok && t.Integral() && rval == math.Trunc(rval):
		lit := formatNumber(rval, t)
		if rval < 0 {
			cond = fmt.Sprintf("%s > lellib::subtraction<%s>::maxNegative<%s>()", x, tcode, lit)
		} else {
			cond = fmt.Sprintf("%s < lellib::subtraction<%s>::minPositive<%s>()", x, tcode, lit)
		}
		message = shown + " would overflow upon subtracting " + lit + "\""

	default:
		lcode, rcode := x, other
		if ldecl == nil {
			lcode, rcode = other, x
		}
		cond = fmt.Sprintf("!lellib::subtraction<%s>::safe(%s, %s)", tcode, lcode, rcode)
		if ldecl != nil {
			message = shown + " would overflow upon subtracting " + rcode + "\""
		} else {
			message = shown + " would overflow when subtracted from " + lcode + "\""
		}
	}

	leftID, rightID := blocks.NodeID(0), blocks.NodeID(0)
	if left != nil {
		leftID = left.ID
	}
	if right != nil {
		rightID = right.ID
	}
	return &Check{
		Lines:    g.guardBlock(cond, message),
		Requires: []string{LibPrefix + "RangeChecks", "iostream"},
		Site: &GuardSite{
			Kind:     GuardOverflow,
			Op:       n.Kind,
			Node:     n.ID,
			Variable: x,
			Other:    other,
			Type:     t,
			Left:     leftID,
			Right:    rightID,
		},
	}
}

// zeroGuard builds the divisor test for a division or modulus by a checked
// variable. It returns nil for literal and unchecked divisors.
func (g *generator) zeroGuard(n, left, right *blocks.Node) *Check {
	decl := g.checkedDecl(right)
	if decl == nil {
		return nil
	}
	verb := "division"
	if n.Kind == blocks.Mod {
		verb = "modulus"
	}
	y := decl.Name
	message := fmt.Sprintf("\"Illegal %s by variable '%s' with value 0\"", verb, y)
	return &Check{
		Lines:    g.guardBlock(y+" == 0", message),
		Requires: []string{"iostream"},
		Site: &GuardSite{
			Kind:     GuardZeroDivisor,
			Op:       n.Kind,
			Node:     n.ID,
			Variable: y,
			Type:     decl.Type,
			Left:     left.ID,
			Right:    right.ID,
		},
	}
}
