package symbolic

import (
	"math"

	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/types"
)

// Cross applies op pairwise over the members of a and b. Operands that
// cannot be enumerated fall back to interval arithmetic over their extents.
func Cross(a, b Set, op Op, domain types.Type) (Set, error) {
	if op != OpAdd && op != OpSub {
		return nil, diagnostic.Errorf(diagnostic.UnsupportedGroundOp, "Unsupported ground operator '%s'", op)
	}
	if a.Kind() == SetEmpty || b.Kind() == SetEmpty {
		return Empty(), nil
	}

	if a.Finite(domain) && b.Finite(domain) {
		av, aerr := a.Enumerate(domain)
		bv, berr := b.Enumerate(domain)
		if aerr == nil && berr == nil && len(av)*len(bv) <= MaxEnumeration {
			out := make([]float64, 0, len(av)*len(bv))
			for _, x := range av {
				for _, y := range bv {
					out = append(out, apply(op, x, y))
				}
			}
			return Values(out...), nil
		}
	}

	alo, ahi, aok := Extent(a)
	blo, bhi, bok := Extent(b)
	if !aok || !bok {
		return Universal(domain), nil
	}
	var lo, hi float64
	if op == OpAdd {
		lo, hi = alo+blo, ahi+bhi
	} else {
		lo, hi = alo-bhi, ahi-blo
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return Universal(domain), nil
	}
	return Interval(lo, hi, false, false), nil
}

func apply(op Op, x, y float64) float64 {
	if op == OpAdd {
		return x + y
	}
	return x - y
}

// Simplify evaluates a ground expression to the set of values it may take
func Simplify(e *Expr, domain types.Type) (Set, error) {
	if v := FindVar(e); v != nil {
		return nil, diagnostic.Errorf(diagnostic.UnrecognizedExpression,
			"Cannot simplify expression referencing '%s'", v.Leaf.Ref.Name)
	}
	switch e.Op {
	case OpVal:
		switch e.Leaf.Kind {
		case LeafNum:
			return Values(e.Leaf.Num), nil
		case LeafSet:
			return e.Leaf.Set, nil
		default:
			return Universal(types.String), nil
		}
	case OpAdd, OpSub:
		l, err := Simplify(e.Left, domain)
		if err != nil {
			return nil, err
		}
		r, err := Simplify(e.Right, domain)
		if err != nil {
			return nil, err
		}
		return Cross(l, r, e.Op, domain)
	default:
		return nil, diagnostic.Errorf(diagnostic.UnsupportedGroundOp, "Unsupported ground operator '%s'", e.Op)
	}
}

// ReduceExpr turns a comparison between a variable and a ground side into
// the set of values the variable may take. The bound is the loosest one
// the ground side allows.
func ReduceExpr(e *Expr, domain types.Type) (Set, error) {
	if !e.Op.Comparison() {
		return nil, diagnostic.Errorf(diagnostic.UnrecognizedExpression, "Cannot reduce '%s' to a set", e)
	}

	varLeft := e.Left.IsRef()
	other := e.Right
	if !varLeft {
		if !e.Right.IsRef() {
			return Universal(domain), nil
		}
		other = e.Left
	}
	if FindVar(other) != nil {
		return Universal(domain), nil
	}
	bound, err := Simplify(other, domain)
	if err != nil {
		return Universal(domain), nil
	}
	if bound.Kind() == SetEmpty {
		return Empty(), nil
	}

	if e.Op == OpEq {
		return bound, nil
	}
	lo, hi, ok := Extent(bound)
	if !ok {
		return Universal(domain), nil
	}

	// x > S and S < x both put the variable above the smallest member
	above := (e.Op == OpGt) == varLeft
	if above {
		return Interval(lo, math.Inf(1), true, false), nil
	}
	return Interval(math.Inf(-1), hi, false, true), nil
}

// ReduceSet normalizes s to its simplest equivalent form
func ReduceSet(s Set, domain types.Type) Set {
	switch s := s.(type) {
	case *IntervalSet:
		return reduceInterval(s, domain)
	case *UnionSet:
		return reduceUnion(s, domain)
	case *IntersectionSet:
		return reduceIntersection(s, domain)
	default:
		return s
	}
}

func reduceInterval(s *IntervalSet, domain types.Type) Set {
	if s.Lo > s.Hi || (s.Lo == s.Hi && (s.LoExclusive || s.HiExclusive)) {
		return Empty()
	}
	if s.Finite(domain) && s.Count() <= MaxEnumeration {
		vals, err := s.Enumerate(domain)
		if err == nil {
			if len(vals) == 0 {
				return Empty()
			}
			return Values(vals...)
		}
	}
	return s
}

func reduceUnion(s *UnionSet, domain types.Type) Set {
	var members []Set
	for _, m := range s.Members {
		m = ReduceSet(m, domain)
		switch m := m.(type) {
		case *EmptySet:
			continue
		case *UniversalSet:
			return m
		case *UnionSet:
			members = append(members, m.Members...)
		default:
			members = append(members, m)
		}
	}
	switch len(members) {
	case 0:
		return Empty()
	case 1:
		return members[0]
	}
	u := Union(members...)
	if u.Finite(domain) {
		if vals, err := u.Enumerate(domain); err == nil {
			return Values(vals...)
		}
	}
	return u
}

func reduceIntersection(s *IntersectionSet, domain types.Type) Set {
	var members []Set
	var bound *IntervalSet
	for _, m := range s.Members {
		m = ReduceSet(m, domain)
		switch m := m.(type) {
		case *EmptySet:
			return m
		case *UniversalSet:
			continue
		case *IntersectionSet:
			members = append(members, m.Members...)
		case *IntervalSet:
			bound = tighten(bound, m)
		default:
			members = append(members, m)
		}
	}
	if bound != nil {
		// distribute the bound over unions so each branch can tighten
		for i, m := range members {
			u, ok := m.(*UnionSet)
			if !ok {
				continue
			}
			parts := make([]Set, len(u.Members))
			for j, um := range u.Members {
				parts[j] = Intersection(bound, um)
			}
			members[i] = ReduceSet(Union(parts...), domain)
			if members[i].Kind() == SetEmpty {
				return members[i]
			}
		}
		reduced := reduceInterval(bound, domain)
		if reduced.Kind() == SetEmpty {
			return reduced
		}
		members = append(members, reduced)
	}
	switch len(members) {
	case 0:
		return Universal(domain)
	case 1:
		return members[0]
	}
	in := Intersection(members...)
	if in.Finite(domain) {
		if vals, err := in.Enumerate(domain); err == nil {
			if len(vals) == 0 {
				return Empty()
			}
			return Values(vals...)
		}
	}
	return in
}

// tighten intersects two intervals. An equal bound stays exclusive if
// either side excludes it.
func tighten(acc, s *IntervalSet) *IntervalSet {
	if acc == nil {
		return Interval(s.Lo, s.Hi, s.LoExclusive, s.HiExclusive)
	}
	out := *acc
	switch {
	case s.Lo > out.Lo:
		out.Lo, out.LoExclusive = s.Lo, s.LoExclusive
	case s.Lo == out.Lo:
		out.LoExclusive = out.LoExclusive || s.LoExclusive
	}
	switch {
	case s.Hi < out.Hi:
		out.Hi, out.HiExclusive = s.Hi, s.HiExclusive
	case s.Hi == out.Hi:
		out.HiExclusive = out.HiExclusive || s.HiExclusive
	}
	return &out
}

// ToSet converts a simplified constraint into the set of values its
// variable may take, then reduces it. Shapes the domain cannot express
// are kept as an opaque ExprSet.
func ToSet(e *Expr, domain types.Type) Set {
	return ReduceSet(toSet(e, domain), domain)
}

func toSet(e *Expr, domain types.Type) Set {
	switch e.Op {
	case OpTrue:
		return Universal(domain)
	case OpFalse:
		return Empty()
	case OpAnd:
		parts := Collate(e, OpAnd)
		members := make([]Set, len(parts))
		for i, p := range parts {
			members[i] = toSet(p, domain)
		}
		return Intersection(members...)
	case OpOr:
		parts := Collate(e, OpOr)
		members := make([]Set, len(parts))
		for i, p := range parts {
			members[i] = toSet(p, domain)
		}
		return Union(members...)
	case OpEq, OpLt, OpGt:
		if FindVar(e) == nil {
			// ground comparisons the solver could not decide may hold
			return Universal(domain)
		}
		s, err := ReduceExpr(e, domain)
		if err != nil {
			return Opaque(e)
		}
		return s
	case OpVal:
		if e.IsRef() {
			return Opaque(e)
		}
		s, err := Simplify(e, domain)
		if err != nil {
			return Opaque(e)
		}
		return s
	default:
		return Opaque(e)
	}
}
