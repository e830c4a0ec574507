package codegen

import (
	"math"
	"strconv"
	"strings"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/scope"
	"github.com/lhaig/blockc/internal/types"
)

type binaryOp struct {
	code   string     // C++ operator
	symbol string     // operator as named in messages
	prec   Precedence // C++ precedence level
}

var binaryOps = map[blocks.Kind]binaryOp{
	blocks.Add:  {"+", "+", PrecAdditive},
	blocks.Sub:  {"-", "-", PrecAdditive},
	blocks.Mult: {"*", "×", PrecMultiplicative},
	blocks.Div:  {"/", "÷", PrecMultiplicative},
	blocks.Mod:  {"%", "%", PrecMultiplicative},
	blocks.And:  {"&&", "and", PrecLogicalAnd},
	blocks.Or:   {"||", "or", PrecLogicalOr},
	blocks.Eq:   {"==", "=", PrecEquality},
	blocks.Lt:   {"<", "<", PrecRelational},
	blocks.Lte:  {"<=", "≤", PrecRelational},
	blocks.Gt:   {">", ">", PrecRelational},
	blocks.Gte:  {">=", "≥", PrecRelational},
}

// compileExpr compiles a value or predicate node
func (g *generator) compileExpr(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	switch n.Kind {
	case blocks.Literal:
		return g.literal(n)
	case blocks.VarRef, blocks.ForIndexRef:
		return g.reference(n, sc)
	case blocks.DeviceRef:
		return g.device(n)
	case blocks.Add, blocks.Sub, blocks.Mult:
		return g.arithmetic(n, sc)
	case blocks.Div, blocks.Mod:
		return g.division(n, sc)
	case blocks.ElementOf:
		return g.element(n, sc)
	case blocks.And, blocks.Or:
		return g.connective(n, sc)
	case blocks.Not:
		return g.not(n, sc)
	case blocks.Eq, blocks.Lt, blocks.Lte, blocks.Gt, blocks.Gte:
		return g.comparison(n, sc)
	case blocks.Interrupt:
		return nil, g.errorf(n, diagnostic.UnrecognizedNode, "Interrupt '%s' can only trigger a when block", n.Name)
	}
	return nil, g.errorf(n, diagnostic.UnrecognizedNode, "Unrecognized block '%s' in expression position", n.Kind)
}

func (g *generator) literal(n *blocks.Node) (*Result, error) {
	res := newResult()
	t := n.Type
	switch v := n.Value.(type) {
	case float64:
		if t == nil {
			t = types.Int
			if v != math.Trunc(v) {
				t = types.Double
			}
		}
		if !t.Numeric() {
			return nil, g.errorf(n, diagnostic.TypeMismatch, "Literal %s is not a %s", strconv.FormatFloat(v, 'g', -1, 64), t)
		}
		if t.Integral() && v != math.Trunc(v) {
			return nil, g.errorf(n, diagnostic.TypeMismatch, "Literal %s is not integral", strconv.FormatFloat(v, 'g', -1, 64))
		}
		res.Code = formatNumber(v, t)
		res.Precedence = PrecUnary
	case string:
		if t == types.Byte && len(v) == 1 {
			res.Code = quoteChar(v[0])
		} else {
			t = types.String
			res.Code = strconv.Quote(v)
		}
	case bool:
		t = types.Bool
		res.Code = strconv.FormatBool(v)
	default:
		return nil, g.errorf(n, diagnostic.UnrecognizedNode, "Unrecognized literal %v", n.Value)
	}
	res.Attributes.ResolvedType = t
	return res, nil
}

func (g *generator) reference(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	entry := sc.Lookup(n)
	if entry == nil {
		return nil, g.errorf(n, diagnostic.UnresolvedVariable, "Variable %s not declared in current scope!", n.Name)
	}
	res := newResult()
	res.Code = entry.Decl.Name
	res.Attributes = Attributes{LValue: true, ResolvedType: entry.Decl.Type}
	return res, nil
}

func (g *generator) device(n *blocks.Node) (*Result, error) {
	d, ok := g.graph.FindDevice(n.Name)
	if !ok {
		return nil, g.errorf(n, diagnostic.UnresolvedVariable, "Device %s not declared", n.Name)
	}
	res := newResult()
	res.Code = d.Name
	res.Attributes.ResolvedType = d.Type
	return res, nil
}

// operands compiles the left and right slots of a binary node
func (g *generator) operands(n *blocks.Node, sc *scope.Scope) (ln, rn *blocks.Node, l, r *Result, err error) {
	op := binaryOps[n.Kind]
	ln, rn = g.graph.SlotNode(n, blocks.SlotLeft), g.graph.SlotNode(n, blocks.SlotRight)
	if ln == nil {
		return nil, nil, nil, nil, g.errorf(n, diagnostic.MissingOperand, "Operator '%s' missing left operand", op.symbol)
	}
	if rn == nil {
		return nil, nil, nil, nil, g.errorf(n, diagnostic.MissingOperand, "Operator '%s' missing right operand", op.symbol)
	}
	if l, err = g.compileExpr(ln, sc); err != nil {
		return nil, nil, nil, nil, err
	}
	if r, err = g.compileExpr(rn, sc); err != nil {
		return nil, nil, nil, nil, err
	}
	return ln, rn, l, r, nil
}

// combine builds the result of a binary operator: operand requirements
// merged, parentheses where needed and checks in evaluation order
func combine(op binaryOp, l, r *Result) *Result {
	res := newResult()
	res.Requires.Merge(l.Requires)
	res.Requires.Merge(r.Requires)
	res.Precedence = op.prec
	res.Code = parenthesize(l, op.prec, false) + " " + op.code + " " + parenthesize(r, op.prec, true)
	if op.prec.RightToLeft() {
		res.Checks = append(append(res.Checks, r.Checks...), l.Checks...)
	} else {
		res.Checks = append(append(res.Checks, l.Checks...), r.Checks...)
	}
	return res
}

func isNumeric(r *Result) bool {
	t := r.Attributes.ResolvedType
	return t != nil && t.Numeric()
}

func isIntegral(r *Result) bool {
	t := r.Attributes.ResolvedType
	return t != nil && t.Integral()
}

func (g *generator) arithmetic(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	ln, rn, l, r, err := g.operands(n, sc)
	if err != nil {
		return nil, err
	}
	op := binaryOps[n.Kind]
	if !isNumeric(l) || !isNumeric(r) {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Operator '%s' requires numeric operands", op.symbol)
	}
	res := combine(op, l, r)
	res.Attributes.ResolvedType = types.Promote(l.Attributes.ResolvedType, r.Attributes.ResolvedType)
	if n.Kind != blocks.Mult {
		if check := g.overflowGuard(n, ln, rn, l, r); check != nil {
			res.Checks = append(res.Checks, *check)
		}
	}
	return res, nil
}

func (g *generator) division(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	ln, rn, l, r, err := g.operands(n, sc)
	if err != nil {
		return nil, err
	}
	op := binaryOps[n.Kind]
	if !isNumeric(l) || !isNumeric(r) {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Operator '%s' requires numeric operands", op.symbol)
	}
	if n.Kind == blocks.Mod && (!isIntegral(l) || !isIntegral(r)) {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Operator '%s' requires integral operands", op.symbol)
	}

	var res *Result
	if n.Kind == blocks.Div && isIntegral(l) && isIntegral(r) {
		// integral division would truncate
		cast := &Result{Code: "static_cast<double>(" + l.Code + ")", Requires: l.Requires, Precedence: PrecPostfix, Checks: l.Checks}
		res = combine(op, cast, r)
		res.Attributes.ResolvedType = types.Double
	} else {
		res = combine(op, l, r)
		res.Attributes.ResolvedType = types.Promote(l.Attributes.ResolvedType, r.Attributes.ResolvedType)
	}
	if check := g.zeroGuard(n, ln, rn); check != nil {
		res.Checks = append(res.Checks, *check)
	}
	return res, nil
}

func (g *generator) element(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	vn := g.graph.SlotNode(n, blocks.SlotVector)
	if vn == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "Missing vector to take element of")
	}
	in := g.graph.SlotNode(n, blocks.SlotIndex)
	if in == nil && n.LitIndex == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "Missing element index")
	}
	v, err := g.compileExpr(vn, sc)
	if err != nil {
		return nil, err
	}
	var idx *Result
	if n.LitIndex != nil {
		idx = newResult()
		idx.Code = strconv.Itoa(*n.LitIndex)
		idx.Attributes.ResolvedType = types.Long
	} else if idx, err = g.compileExpr(in, sc); err != nil {
		return nil, err
	}

	arr, ok := v.Attributes.ResolvedType.(*types.ArrayType)
	if !ok {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Taking index of non-array type")
	}
	if !isIntegral(idx) {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Indexing into array must use an integral type")
	}

	res := newResult()
	res.Requires.Merge(v.Requires)
	res.Requires.Merge(idx.Requires)
	res.Precedence = PrecPostfix
	res.Code = parenthesize(v, PrecPostfix, false) + "[" + idx.Code + "]"
	res.Checks = append(append(res.Checks, v.Checks...), idx.Checks...)
	res.Attributes = Attributes{LValue: v.Attributes.LValue, ResolvedType: arr.Scalar()}
	return res, nil
}

func (g *generator) connective(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	_, _, l, r, err := g.operands(n, sc)
	if err != nil {
		return nil, err
	}
	op := binaryOps[n.Kind]
	if l.Attributes.ResolvedType != types.Bool || r.Attributes.ResolvedType != types.Bool {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Operator '%s' requires boolean operands", op.symbol)
	}
	res := combine(op, l, r)
	res.Attributes.ResolvedType = types.Bool
	return res, nil
}

func (g *generator) not(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	on := g.graph.SlotNode(n, blocks.SlotOperand)
	if on == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "Operator 'not' missing operand")
	}
	operand, err := g.compileExpr(on, sc)
	if err != nil {
		return nil, err
	}
	if operand.Attributes.ResolvedType != types.Bool {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Operator 'not' requires a boolean operand")
	}
	res := newResult()
	res.Requires.Merge(operand.Requires)
	res.Precedence = PrecUnary
	res.Code = "!" + parenthesize(operand, PrecUnary, true)
	res.Checks = operand.Checks
	res.Attributes.ResolvedType = types.Bool
	return res, nil
}

func (g *generator) comparison(n *blocks.Node, sc *scope.Scope) (*Result, error) {
	_, _, l, r, err := g.operands(n, sc)
	if err != nil {
		return nil, err
	}
	lt, rt := l.Attributes.ResolvedType, r.Attributes.ResolvedType
	if !(isNumeric(l) && isNumeric(r)) && (lt == nil || lt != rt) {
		return nil, g.errorf(n, diagnostic.TypeMismatch, "Cannot compare %s with %s", typeName(lt), typeName(rt))
	}
	res := combine(binaryOps[n.Kind], l, r)
	res.Attributes.ResolvedType = types.Bool
	return res, nil
}

func typeName(t types.Type) string {
	if t == nil {
		return "nothing"
	}
	return t.String()
}

// formatNumber renders a numeric literal; floating types always carry a
// decimal point
func formatNumber(v float64, t types.Type) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if t == nil || t.Integral() {
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if t == types.Float {
		s += "f"
	}
	return s
}

func quoteChar(c byte) string {
	switch c {
	case '\'':
		return `'\''`
	case '\\':
		return `'\\'`
	}
	q := strconv.QuoteRune(rune(c))
	return q
}
