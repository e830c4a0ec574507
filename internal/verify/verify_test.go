package verify

import (
	"strings"
	"testing"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/codegen"
	"github.com/lhaig/blockc/internal/types"
)

func generate(t *testing.T, g *blocks.Graph, p Prover) *codegen.Program {
	t.Helper()
	prog, err := codegen.Generate(g, codegen.Options{Policy: p})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return prog
}

// divisionProgram reads y and divides by it, optionally inside if (y > 0)
func divisionProgram(guarded bool) *blocks.Graph {
	g := blocks.New()
	a := g.Variable("a", types.Int, false)
	y := g.Variable("y", types.Int, true)
	r := g.Variable("r", types.Double, false)
	div := g.Set(g.Ref(r), g.Binary(blocks.Div, g.Ref(a), g.Ref(y)))
	if guarded {
		div = g.If(g.Binary(blocks.Gt, g.Ref(y), g.Literal(0, types.Int)), div)
	}
	g.Start(a, y, r, g.Input(g.Ref(y)), div)
	return g
}

func TestProverElidesConstrainedDivisor(t *testing.T) {
	prog := generate(t, divisionProgram(true), Prover{})
	if strings.Contains(prog.Main, "if (y == 0)") {
		t.Errorf("divisor guarded by y > 0 should be elided:\n%s", prog.Main)
	}
	if len(prog.Guards) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(prog.Guards))
	}
	d := prog.Guards[0]
	if d.Status != codegen.StatusProven || d.Emit {
		t.Errorf("expected proven decision, got %+v", d)
	}
}

func TestProverKeepsUnconstrainedDivisor(t *testing.T) {
	prog := generate(t, divisionProgram(false), Prover{})
	if !strings.Contains(prog.Main, "if (y == 0) {") {
		t.Errorf("unconstrained divisor should keep its guard:\n%s", prog.Main)
	}
	d := prog.Guards[0]
	if d.Status != codegen.StatusGuarded || !strings.Contains(d.Reason, "may be 0") {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestProverKeepsDivisorAfterReassignment(t *testing.T) {
	// y > x says nothing about y once x has been overwritten
	g := blocks.New()
	a := g.Variable("a", types.Int, false)
	x := g.Variable("x", types.Int, false)
	y := g.Variable("y", types.Int, true)
	r := g.Variable("r", types.Double, false)
	branch := g.If(g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)),
		g.Set(g.Ref(x), g.Literal(0, types.Int)),
		g.Set(g.Ref(r), g.Binary(blocks.Div, g.Ref(a), g.Ref(y))),
	)
	g.Start(a, x, y, r, g.Input(g.Ref(x)), g.Input(g.Ref(y)), branch)

	prog := generate(t, g, Prover{})
	if len(prog.Guards) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(prog.Guards))
	}
	d := prog.Guards[0]
	if d.Status != codegen.StatusGuarded || !d.Emit {
		t.Errorf("expected the divisor guard to be kept, got %+v", d)
	}
	if !strings.Contains(prog.Main, "if (y == 0) {") {
		t.Errorf("expected zero-divisor guard:\n%s", prog.Main)
	}
}

func TestProverOverflow(t *testing.T) {
	tests := []struct {
		name   string
		start  int
		status string
		reason string
	}{
		{"small constant", 5, codegen.StatusProven, "⊆ int"},
		{"at the limit", 2147483647, codegen.StatusGuarded, "may leave int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := blocks.New()
			x := g.Variable("x", types.Int, true)
			g.Start(x,
				g.Set(g.Ref(x), g.Literal(tt.start, types.Int)),
				g.Set(g.Ref(x), g.Binary(blocks.Add, g.Ref(x), g.Literal(1, types.Int))),
			)

			prog := generate(t, g, Prover{})
			if len(prog.Guards) != 1 {
				t.Fatalf("expected 1 decision, got %d", len(prog.Guards))
			}
			d := prog.Guards[0]
			if d.Status != tt.status {
				t.Errorf("got status %s (%s), want %s", d.Status, d.Reason, tt.status)
			}
			if !strings.Contains(d.Reason, tt.reason) {
				t.Errorf("expected reason containing %q, got %q", tt.reason, d.Reason)
			}
			emitted := strings.Contains(prog.Main, "lellib::addition")
			if emitted != (tt.status != codegen.StatusProven) {
				t.Errorf("guard emitted = %v for status %s:\n%s", emitted, d.Status, prog.Main)
			}
		})
	}
}

func TestProverKeepsLoopConditionGuards(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, true)
	cond := g.Binary(blocks.Lt, g.Binary(blocks.Add, g.Ref(x), g.Literal(1, types.Int)), g.Literal(10, types.Int))
	g.Start(x, g.Set(g.Ref(x), g.Literal(0, types.Int)), g.While(cond, g.Set(g.Ref(x), g.Literal(1, types.Int))))

	prog := generate(t, g, Prover{})
	d := prog.Guards[0]
	if d.Status != codegen.StatusGuarded || !strings.Contains(d.Reason, "re-evaluated") {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestProverErrorKeepsGuard(t *testing.T) {
	prog := generate(t, divisionProgram(true), Prover{MaxIterations: 1})
	d := prog.Guards[0]
	if d.Status != codegen.StatusError || !d.Emit {
		t.Errorf("solver failure should keep the guard, got %+v", d)
	}
	if !strings.Contains(d.Reason, "did not converge") {
		t.Errorf("unexpected reason %q", d.Reason)
	}
	if !strings.Contains(prog.Main, "if (y == 0) {") {
		t.Errorf("expected guard to be emitted:\n%s", prog.Main)
	}
}

func TestFormatReport(t *testing.T) {
	if got := FormatReport(nil); got != "" {
		t.Errorf("expected empty report, got %q", got)
	}

	decisions := []codegen.GuardDecision{
		{
			Site:   codegen.GuardSite{Kind: codegen.GuardZeroDivisor, Node: 7, Variable: "y"},
			Status: codegen.StatusProven,
			Reason: "y ∈ (0, ∞)",
		},
		{
			Site:   codegen.GuardSite{Kind: codegen.GuardOverflow, Node: 9, Variable: "x"},
			Emit:   true,
			Status: codegen.StatusGuarded,
		},
	}
	report := FormatReport(decisions)
	for _, want := range []string{
		"Guard Verification Report",
		"#7 zero-divisor y",
		"PROVEN",
		"#9 overflow x",
		"GUARDED",
		"y ∈ (0, ∞)",
		"Status: 1 of 2 guards proven and elided",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("expected %q in report:\n%s", want, report)
		}
	}

	if got := Worst(decisions); got != codegen.StatusGuarded {
		t.Errorf("Worst = %s, want %s", got, codegen.StatusGuarded)
	}
	if s := Summarize(decisions); s.Proven != 1 || s.Guarded != 1 || s.Errors != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
}
