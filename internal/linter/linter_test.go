package linter

import (
	"strings"
	"testing"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/loader"
	"github.com/lhaig/blockc/internal/types"
)

func loadAndLint(t *testing.T, source string) []string {
	t.Helper()
	g, err := loader.Load([]byte(source))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return lintGraph(g)
}

func lintGraph(g *blocks.Graph) []string {
	diag := Lint(g)
	var warnings []string
	for _, d := range diag.All() {
		warnings = append(warnings, d.Message)
	}
	return warnings
}

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestCleanProgram(t *testing.T) {
	source := `
main:
  - var: x
    type: int
    checked: true
  - input: {ref: x}
  - set: {ref: x}
    to: {add: [{ref: x}, 1]}
  - print: {ref: x}
`
	warnings := loadAndLint(t, source)
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got: %v", warnings)
	}
}

func TestUnusedVariables(t *testing.T) {
	source := `
main:
  - var: unused
    type: int
  - var: sink
    type: int
  - var: source
    type: int
  - set: {ref: sink}
    to: {ref: source}
`
	warnings := loadAndLint(t, source)
	for _, want := range []string{
		"variable 'unused' is declared but never used",
		"variable 'sink' is assigned but never read",
		"variable 'source' is read but never assigned",
	} {
		if !containsWarning(warnings, want) {
			t.Errorf("Expected %q, got: %v", want, warnings)
		}
	}
}

func TestCheckedVariableNeverGuarded(t *testing.T) {
	source := `
main:
  - var: x
    type: int
    checked: true
  - var: y
    type: int
    checked: true
  - input: {ref: x}
  - input: {ref: y}
  - print: {mul: [{ref: x}, 2]}
  - print: {div: [10, {ref: y}]}
`
	warnings := loadAndLint(t, source)
	if !containsWarning(warnings, "checked variable 'x' is never an operand of a guarded operation") {
		t.Errorf("Expected warning for x, got: %v", warnings)
	}
	if containsWarning(warnings, "checked variable 'y'") {
		t.Errorf("Divisor y should count as guarded, got: %v", warnings)
	}
}

func TestEmptyBodies(t *testing.T) {
	source := `
main:
  - if: {eq: [1, 1]}
    then: []
    else: []
  - while: {lt: [1, 2]}
handlers:
  - when: {interrupt: button}
    times: 0
`
	warnings := loadAndLint(t, source)
	for _, want := range []string{
		"'ifelse' block has an empty body",
		"'ifelse' block has an empty else branch",
		"'while' block has an empty body",
		"'when' block has an empty body",
		"handler is limited to 0 runs and never executes",
	} {
		if !containsWarning(warnings, want) {
			t.Errorf("Expected %q, got: %v", want, warnings)
		}
	}
}

func TestNaming(t *testing.T) {
	g := blocks.New()
	bad := g.Variable("2fast", types.Int, false)
	reserved := g.Variable("__tmp", types.Int, false)
	ok := g.Variable("speed_2", types.Int, false)
	g.Start(bad, reserved, ok,
		g.Set(g.Ref(bad), g.Ref(reserved)),
		g.Set(g.Ref(reserved), g.Ref(ok)),
		g.Set(g.Ref(ok), g.Ref(bad)),
	)

	warnings := lintGraph(g)
	if !containsWarning(warnings, "'2fast' is not a valid C++ identifier") {
		t.Errorf("Expected identifier warning, got: %v", warnings)
	}
	if !containsWarning(warnings, "'__tmp' uses the reserved '__' prefix") {
		t.Errorf("Expected reserved prefix warning, got: %v", warnings)
	}
	if containsWarning(warnings, "speed_2") {
		t.Errorf("Unexpected warning for speed_2: %v", warnings)
	}
}

func TestUnusedDevice(t *testing.T) {
	source := `
devices:
  - {name: temp, type: int}
  - {name: light, type: bool}
main:
  - print: {device: temp}
`
	warnings := loadAndLint(t, source)
	if !containsWarning(warnings, "device 'light' is declared but never used") {
		t.Errorf("Expected unused device warning, got: %v", warnings)
	}
	if containsWarning(warnings, "device 'temp'") {
		t.Errorf("temp is used, got: %v", warnings)
	}
}

func TestWarningsOnly(t *testing.T) {
	g, err := loader.Load([]byte("main:\n  - var: x\n    type: int\n"))
	if err != nil {
		t.Fatal(err)
	}
	diag := Lint(g)
	if diag.HasErrors() {
		t.Error("Linter should never report errors")
	}
	if diag.WarningCount() != 1 {
		t.Errorf("Expected 1 warning, got %d", diag.WarningCount())
	}
	if !strings.Contains(diag.Format("prog.yaml"), "prog.yaml:2:5") {
		t.Errorf("Expected position in output, got:\n%s", diag.Format("prog.yaml"))
	}
}

func TestHints(t *testing.T) {
	g, err := loader.Load([]byte("main:\n  - var: x\n    type: int\n    checked: true\n  - print: {ref: x}\n"))
	if err != nil {
		t.Fatal(err)
	}
	out := Lint(g).Format("prog.yaml")
	for _, want := range []string{
		"variable 'x' is read but never assigned\n  hint: set it or read it with an input block first",
		"never an operand of a guarded operation\n  hint: drop 'checked' or use it in add, sub, div or mod",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
