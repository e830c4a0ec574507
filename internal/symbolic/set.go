package symbolic

import (
	"math"

	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/types"
)

// MaxEnumeration caps how many members an interval may enumerate to
const MaxEnumeration = 4096

// SetKind discriminates the value-set domain
type SetKind int

const (
	SetUniversal SetKind = iota
	SetEmpty
	SetValues
	SetInterval
	SetUnion
	SetIntersection
	SetExpr
)

// Set is an abstract set of values a variable may hold at a program point.
// The domain argument tells integral from continuous enumeration.
type Set interface {
	Kind() SetKind
	Equal(other Set) bool
	Finite(domain types.Type) bool
	Enumerate(domain types.Type) ([]float64, error)
	String() string
}

// UniversalSet holds every value of a type
type UniversalSet struct {
	Type types.Type
}

// EmptySet holds nothing
type EmptySet struct{}

// ValSet is a finite set of values kept in insertion order
type ValSet struct {
	Values []float64
}

// IntervalSet is a numeric range; bounds may be infinite
type IntervalSet struct {
	Lo, Hi                   float64
	LoExclusive, HiExclusive bool
}

// UnionSet holds values in any member
type UnionSet struct {
	Members []Set
}

// IntersectionSet holds values in every member
type IntersectionSet struct {
	Members []Set
}

// ExprSet is an opaque constraint that could not be reduced further
type ExprSet struct {
	Expr *Expr
}

func Universal(t types.Type) *UniversalSet { return &UniversalSet{Type: t} }
func Empty() *EmptySet                     { return &EmptySet{} }

// Values builds a ValSet, dropping duplicates but keeping first-seen order
func Values(vs ...float64) *ValSet {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return &ValSet{Values: out}
}

// Interval builds an IntervalSet
func Interval(lo, hi float64, loExclusive, hiExclusive bool) *IntervalSet {
	return &IntervalSet{Lo: lo, Hi: hi, LoExclusive: loExclusive, HiExclusive: hiExclusive}
}

func Union(members ...Set) *UnionSet               { return &UnionSet{Members: members} }
func Intersection(members ...Set) *IntersectionSet { return &IntersectionSet{Members: members} }
func Opaque(e *Expr) *ExprSet                      { return &ExprSet{Expr: e} }

func errInfinite() error {
	return diagnostic.Errorf(diagnostic.InfiniteSet, "Enumerating infinite set")
}

// universal

func (s *UniversalSet) Kind() SetKind { return SetUniversal }

func (s *UniversalSet) Equal(other Set) bool {
	o, ok := other.(*UniversalSet)
	return ok && o.Type == s.Type
}

func (s *UniversalSet) Finite(types.Type) bool { return false }

func (s *UniversalSet) Enumerate(types.Type) ([]float64, error) { return nil, errInfinite() }

// empty

func (s *EmptySet) Kind() SetKind { return SetEmpty }

func (s *EmptySet) Equal(other Set) bool {
	_, ok := other.(*EmptySet)
	return ok
}

func (s *EmptySet) Finite(types.Type) bool { return true }

func (s *EmptySet) Enumerate(types.Type) ([]float64, error) { return nil, nil }

// values

func (s *ValSet) Kind() SetKind { return SetValues }

// Equal ignores order
func (s *ValSet) Equal(other Set) bool {
	o, ok := other.(*ValSet)
	if !ok || len(o.Values) != len(s.Values) {
		return false
	}
	for _, v := range s.Values {
		if !containsValue(o.Values, v) {
			return false
		}
	}
	return true
}

func (s *ValSet) Finite(types.Type) bool { return true }

func (s *ValSet) Enumerate(types.Type) ([]float64, error) { return s.Values, nil }

// interval

func (s *IntervalSet) Kind() SetKind { return SetInterval }

func (s *IntervalSet) Equal(other Set) bool {
	o, ok := other.(*IntervalSet)
	return ok && *o == *s
}

func (s *IntervalSet) Finite(domain types.Type) bool {
	return domain != nil && domain.Integral() && !math.IsInf(s.Lo, 0) && !math.IsInf(s.Hi, 0)
}

// span returns the first and last integer inside the interval
func (s *IntervalSet) span() (first, last float64) {
	first = math.Ceil(s.Lo)
	if s.LoExclusive && first == s.Lo {
		first++
	}
	last = math.Floor(s.Hi)
	if s.HiExclusive && last == s.Hi {
		last--
	}
	return first, last
}

// Count returns the number of integers the interval holds
func (s *IntervalSet) Count() float64 {
	first, last := s.span()
	if last < first {
		return 0
	}
	return last - first + 1
}

// Enumerate walks the integers inside the interval. Exclusive bounds are
// shifted inward by one step.
func (s *IntervalSet) Enumerate(domain types.Type) ([]float64, error) {
	if !s.Finite(domain) {
		return nil, diagnostic.Errorf(diagnostic.InfiniteSet, "Enumerating infinite interval")
	}
	if s.Count() > MaxEnumeration {
		return nil, diagnostic.Errorf(diagnostic.InfiniteSet, "interval %s has more than %d members", s, MaxEnumeration)
	}
	first, last := s.span()
	out := make([]float64, 0, int(s.Count()))
	for v := first; v <= last; v++ {
		out = append(out, v)
	}
	return out, nil
}

// Contains reports whether v lies inside the bounds
func (s *IntervalSet) Contains(v float64) bool {
	if v < s.Lo || (s.LoExclusive && v == s.Lo) {
		return false
	}
	if v > s.Hi || (s.HiExclusive && v == s.Hi) {
		return false
	}
	return true
}

// union

func (s *UnionSet) Kind() SetKind { return SetUnion }

func (s *UnionSet) Equal(other Set) bool {
	o, ok := other.(*UnionSet)
	return ok && membersEqual(s.Members, o.Members)
}

// Finite holds when every member is finite
func (s *UnionSet) Finite(domain types.Type) bool {
	for _, m := range s.Members {
		if !m.Finite(domain) {
			return false
		}
	}
	return true
}

// Enumerate returns the deduplicated union in first-seen order
func (s *UnionSet) Enumerate(domain types.Type) ([]float64, error) {
	if !s.Finite(domain) {
		return nil, diagnostic.Errorf(diagnostic.InfiniteSet, "Enumerating infinite union")
	}
	var out []float64
	for _, m := range s.Members {
		vals, err := m.Enumerate(domain)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if !containsValue(out, v) {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// intersection

func (s *IntersectionSet) Kind() SetKind { return SetIntersection }

func (s *IntersectionSet) Equal(other Set) bool {
	o, ok := other.(*IntersectionSet)
	return ok && membersEqual(s.Members, o.Members)
}

// Finite holds when any member is finite
func (s *IntersectionSet) Finite(domain types.Type) bool {
	for _, m := range s.Members {
		if m.Finite(domain) {
			return true
		}
	}
	return false
}

// Enumerate filters the first enumerable finite member by membership in
// every other member. Members whose membership cannot be decided do not
// filter.
func (s *IntersectionSet) Enumerate(domain types.Type) ([]float64, error) {
	if !s.Finite(domain) {
		return nil, diagnostic.Errorf(diagnostic.InfiniteSet, "Enumerating infinite intersection")
	}
	var lastErr error
	for i, m := range s.Members {
		if !m.Finite(domain) {
			continue
		}
		vals, err := m.Enumerate(domain)
		if err != nil {
			lastErr = err
			continue
		}
		var out []float64
		for _, v := range vals {
			keep := true
			for j, other := range s.Members {
				if j == i {
					continue
				}
				if in, known := contains(other, v, domain); known && !in {
					keep = false
					break
				}
			}
			if keep {
				out = append(out, v)
			}
		}
		return out, nil
	}
	return nil, lastErr
}

// opaque

func (s *ExprSet) Kind() SetKind { return SetExpr }

func (s *ExprSet) Equal(other Set) bool {
	o, ok := other.(*ExprSet)
	return ok && s.Expr.Equal(o.Expr)
}

func (s *ExprSet) Finite(types.Type) bool { return false }

func (s *ExprSet) Enumerate(types.Type) ([]float64, error) { return nil, errInfinite() }

// contains decides membership where the set allows it. known is false for
// opaque constraints.
func contains(s Set, v float64, domain types.Type) (in, known bool) {
	switch s := s.(type) {
	case *UniversalSet:
		return true, true
	case *EmptySet:
		return false, true
	case *ValSet:
		return containsValue(s.Values, v), true
	case *IntervalSet:
		return s.Contains(v), true
	case *UnionSet:
		allKnown := true
		for _, m := range s.Members {
			in, known := contains(m, v, domain)
			if known && in {
				return true, true
			}
			allKnown = allKnown && known
		}
		return false, allKnown
	case *IntersectionSet:
		allKnown := true
		for _, m := range s.Members {
			in, known := contains(m, v, domain)
			if known && !in {
				return false, true
			}
			allKnown = allKnown && known
		}
		return true, allKnown
	default:
		return false, false
	}
}

// Member reports whether v may belong to s. known is false when the answer
// depends on an opaque constraint.
func Member(s Set, v float64, domain types.Type) (in, known bool) {
	return contains(s, v, domain)
}

// Extent returns the smallest and largest value a set may hold. ok is false
// for sets without numeric bounds and for the empty set.
func Extent(s Set) (lo, hi float64, ok bool) {
	switch s := s.(type) {
	case *ValSet:
		if len(s.Values) == 0 {
			return 0, 0, false
		}
		lo, hi = s.Values[0], s.Values[0]
		for _, v := range s.Values[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		return lo, hi, true
	case *IntervalSet:
		return s.Lo, s.Hi, true
	case *UnionSet:
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, m := range s.Members {
			mlo, mhi, mok := Extent(m)
			if !mok {
				if _, empty := m.(*EmptySet); empty {
					continue
				}
				return 0, 0, false
			}
			lo = math.Min(lo, mlo)
			hi = math.Max(hi, mhi)
		}
		return lo, hi, lo <= hi
	case *IntersectionSet:
		lo, hi = math.Inf(-1), math.Inf(1)
		bounded := false
		for _, m := range s.Members {
			if mlo, mhi, mok := Extent(m); mok {
				lo = math.Max(lo, mlo)
				hi = math.Min(hi, mhi)
				bounded = true
			}
		}
		return lo, hi, bounded && lo <= hi
	default:
		return 0, 0, false
	}
}

func containsValue(vals []float64, v float64) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

func membersEqual(a, b []Set) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
