package verify

import (
	"fmt"

	"github.com/lhaig/blockc/internal/analyzer"
	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/codegen"
	"github.com/lhaig/blockc/internal/symbolic"
	"github.com/lhaig/blockc/internal/types"
)

// Prover elides guards whose safety follows from the constraints holding
// at the guarded statement. Anything the analyzer cannot decide keeps the
// guard.
type Prover struct {
	MaxIterations int
}

// Decide implements codegen.GuardPolicy
func (p Prover) Decide(g *blocks.Graph, site codegen.GuardSite) codegen.GuardDecision {
	d := codegen.GuardDecision{Site: site, Emit: true, Status: codegen.StatusGuarded}
	if site.Condition {
		d.Reason = "condition is re-evaluated on every iteration"
		return d
	}

	cons, err := analyzer.AnalyzeEntry(g, site.Stmt)
	if err != nil {
		d.Status, d.Reason = codegen.StatusError, err.Error()
		return d
	}
	sets, err := analyzer.Satisfy(nil, cons, analyzer.Options{MaxIterations: p.MaxIterations})
	if err != nil {
		d.Status, d.Reason = codegen.StatusError, err.Error()
		return d
	}

	var proven bool
	switch site.Kind {
	case codegen.GuardZeroDivisor:
		proven, d.Reason = proveNonZero(sets, site)
	default:
		proven, d.Reason = proveInRange(g, sets, site)
	}
	if proven {
		d.Emit, d.Status = false, codegen.StatusProven
	}
	return d
}

func proveNonZero(sets map[string]symbolic.Set, site codegen.GuardSite) (bool, string) {
	s := valuesOf(sets, site.Variable, site.Type)
	in, known := symbolic.Member(s, 0, site.Type)
	switch {
	case !known:
		return false, fmt.Sprintf("cannot decide whether %s ∋ 0", s)
	case in:
		return false, fmt.Sprintf("%s may be 0: %s", site.Variable, s)
	}
	return true, fmt.Sprintf("%s ∈ %s", site.Variable, s)
}

func proveInRange(g *blocks.Graph, sets map[string]symbolic.Set, site codegen.GuardSite) (bool, string) {
	bounded, ok := site.Type.(interface {
		Bounds() (lo, hi float64, ok bool)
	})
	if !ok {
		return false, fmt.Sprintf("%s has no numeric bounds", site.Type)
	}
	lo, hi, ok := bounded.Bounds()
	if !ok {
		return false, fmt.Sprintf("%s has no numeric bounds", site.Type)
	}

	a, aok := operandSet(g, sets, site.Left, site.Type)
	b, bok := operandSet(g, sets, site.Right, site.Type)
	if !aok || !bok {
		return false, "operand is not a variable or literal"
	}
	op := symbolic.OpAdd
	if site.Op == blocks.Sub {
		op = symbolic.OpSub
	}
	result, err := symbolic.Cross(a, b, op, site.Type)
	if err != nil {
		return false, err.Error()
	}
	if result.Kind() == symbolic.SetEmpty {
		return true, "statement is never reached"
	}
	rlo, rhi, ok := symbolic.Extent(result)
	if !ok {
		return false, fmt.Sprintf("%s %s %s is unbounded", a, op, b)
	}
	if rlo < lo || rhi > hi {
		return false, fmt.Sprintf("%s %s %s may leave %s", a, op, b, site.Type)
	}
	return true, fmt.Sprintf("%s %s %s ⊆ %s", a, op, b, site.Type)
}

// operandSet returns the values an operand may take: a literal's value or
// the solved set of a referenced name
func operandSet(g *blocks.Graph, sets map[string]symbolic.Set, id blocks.NodeID, domain types.Type) (symbolic.Set, bool) {
	n := g.Node(id)
	if n == nil {
		return nil, false
	}
	switch n.Kind {
	case blocks.Literal:
		v, ok := n.Number()
		if !ok {
			return nil, false
		}
		return symbolic.Values(v), true
	case blocks.VarRef, blocks.ForIndexRef, blocks.DeviceRef:
		t := domain
		if decl := g.Node(n.Decl); decl != nil && decl.Type != nil {
			t = decl.Type
		}
		return valuesOf(sets, n.Name, t), true
	}
	return nil, false
}

func valuesOf(sets map[string]symbolic.Set, name string, t types.Type) symbolic.Set {
	if s, ok := sets[name]; ok {
		return s
	}
	return symbolic.Universal(t)
}
