package diagnostic

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFormatPositions(t *testing.T) {
	d := New()
	d.AddError(Errorf(UnresolvedVariable, "Variable %s not declared in current scope!", "x").Pos(3, 10))
	d.WarnNode(12, 0, 0, "variable '%s' is declared but never used", "z")

	out := d.Format("graph.yaml")
	if !strings.Contains(out, "error[graph.yaml:3:10]: Variable x not declared in current scope!") {
		t.Errorf("missing positioned error, got:\n%s", out)
	}
	if !strings.Contains(out, "warning[graph.yaml#12]: variable 'z' is declared but never used") {
		t.Errorf("missing node warning, got:\n%s", out)
	}
	if d.ErrorCount() != 1 || d.WarningCount() != 1 {
		t.Errorf("expected 1 error and 1 warning, got %d and %d", d.ErrorCount(), d.WarningCount())
	}
}

func TestAddErrorKeepsKind(t *testing.T) {
	base := Errorf(UnresolvedVariable, "Variable %s not declared in current scope!", "y").At(7)
	wrapped := fmt.Errorf("compile: %w", base)

	d := New()
	d.AddError(wrapped)

	items := d.Errors()
	if len(items) != 1 {
		t.Fatalf("expected 1 error, got %d", len(items))
	}
	if items[0].Kind != UnresolvedVariable {
		t.Errorf("expected kind UnresolvedVariable, got %s", items[0].Kind)
	}
	if items[0].Node != 7 {
		t.Errorf("expected node 7, got %d", items[0].Node)
	}
	if items[0].Message != "compile: Variable y not declared in current scope!" {
		t.Errorf("unexpected message %q", items[0].Message)
	}
}

func TestHints(t *testing.T) {
	d := New()
	d.AddError(fmt.Errorf("load: %w",
		Errorf(UnresolvedVariable, "Variable %s is never declared", "n").Pos(4, 7).Suggest("declare n with a var statement")))
	d.WarnNodeWithHint(9, 2, 5, "remove checked", "checked variable '%s' is never guarded", "m")

	items := d.All()
	if len(items) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(items))
	}
	if items[0].Hint != "declare n with a var statement" {
		t.Errorf("hint not carried through AddError, got %q", items[0].Hint)
	}

	out := d.Format("graph.yaml")
	want := "error[graph.yaml:4:7]: load: Variable n is never declared\n  hint: declare n with a var statement\n" +
		"warning[graph.yaml:2:5]: checked variable 'm' is never guarded\n  hint: remove checked"
	if out != want {
		t.Errorf("unexpected format:\n%s\nwant:\n%s", out, want)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{Errorf(InfiniteSet, "Enumerating infinite set"), InfiniteSet},
		{fmt.Errorf("outer: %w", Errorf(DidNotConverge, "x")), DidNotConverge},
		{errors.New("plain"), KindNone},
		{nil, KindNone},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Errorf(UnreachableEdge, "Disjoint conjunction not implemented"))
	if !errors.Is(err, &Failure{Kind: UnreachableEdge}) {
		t.Error("expected errors.Is to match on kind")
	}
	if errors.Is(err, &Failure{Kind: UnanchoredChain}) {
		t.Error("expected errors.Is to reject a different kind")
	}
}

func TestKindString(t *testing.T) {
	if MissingOperand.String() != "MissingOperand" {
		t.Errorf("got %q", MissingOperand.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("got %q", Kind(99).String())
	}
}
