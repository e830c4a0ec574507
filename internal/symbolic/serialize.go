package symbolic

import (
	"math"
	"strconv"
	"strings"
)

// String renders the expression in infix form
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expr) write(sb *strings.Builder) {
	switch e.Op {
	case OpVal:
		switch e.Leaf.Kind {
		case LeafNum:
			sb.WriteString(formatNum(e.Leaf.Num))
		case LeafStr:
			sb.WriteString(strconv.Quote(e.Leaf.Str))
		case LeafRef:
			sb.WriteString(e.Leaf.Ref.Name)
		default:
			sb.WriteString(e.Leaf.Set.String())
		}
	case OpTrue, OpFalse:
		sb.WriteString(e.Op.String())
	case OpNeg:
		sb.WriteString("~")
		sb.WriteString("(")
		e.Left.write(sb)
		sb.WriteString(")")
	default:
		sb.WriteString("(")
		e.Left.write(sb)
		sb.WriteString(" ")
		sb.WriteString(e.Op.String())
		sb.WriteString(" ")
		e.Right.write(sb)
		sb.WriteString(")")
	}
}

func formatNum(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *UniversalSet) String() string {
	if s.Type == nil {
		return "U"
	}
	return "U<" + s.Type.String() + ">"
}

func (s *EmptySet) String() string { return "∅" }

func (s *ValSet) String() string {
	if len(s.Values) == 1 {
		return formatNum(s.Values[0])
	}
	parts := make([]string, len(s.Values))
	for i, v := range s.Values {
		parts[i] = formatNum(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s *IntervalSet) String() string {
	lb, rb := "[", "]"
	if s.LoExclusive || math.IsInf(s.Lo, -1) {
		lb = "("
	}
	if s.HiExclusive || math.IsInf(s.Hi, 1) {
		rb = ")"
	}
	return lb + formatNum(s.Lo) + ", " + formatNum(s.Hi) + rb
}

func (s *UnionSet) String() string        { return joinSets(s.Members, " ∪ ") }
func (s *IntersectionSet) String() string { return joinSets(s.Members, " ∩ ") }

func (s *ExprSet) String() string {
	name := "_"
	if v := FindVar(s.Expr); v != nil {
		name = v.Leaf.Ref.Name
	}
	return "{ " + name + " | " + s.Expr.String() + " }"
}

func joinSets(members []Set, sep string) string {
	if len(members) == 0 {
		return "∅"
	}
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
