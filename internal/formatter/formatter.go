package formatter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/types"
)

// Format takes a block graph and returns its canonical document form.
// Loading the result yields an equivalent graph.
func Format(g *blocks.Graph) string {
	f := &formatter{g: g}
	f.formatGraph()
	return f.sb.String()
}

type formatter struct {
	g      *blocks.Graph
	sb     strings.Builder
	indent int
}

// --- helpers (same pattern as codegen emitter) ---

func (f *formatter) emitLine(s string) {
	f.sb.WriteString(f.indentStr())
	f.sb.WriteString(s)
	f.sb.WriteString("\n")
}

func (f *formatter) emitLinef(format string, args ...any) {
	f.emitLine(fmt.Sprintf(format, args...))
}

func (f *formatter) incIndent() { f.indent++ }
func (f *formatter) decIndent() { f.indent-- }

func (f *formatter) indentStr() string {
	return strings.Repeat("  ", f.indent)
}

// --- document-level ---

func (f *formatter) formatGraph() {
	if len(f.g.Devices) > 0 {
		f.emitLine("devices:")
		f.incIndent()
		for _, d := range f.g.Devices {
			f.emitLinef("- {name: %s, type: %s}", name(d.Name), typeName(d.Type))
		}
		f.decIndent()
	}

	if start := f.g.Node(f.g.Main); start != nil {
		f.formatBody("main", start.Next)
	}

	if len(f.g.Handlers) > 0 {
		f.emitLine("handlers:")
		f.incIndent()
		for _, id := range f.g.Handlers {
			f.formatStmt(f.g.Node(id))
		}
		f.decIndent()
	}
}

// formatBody writes key followed by the chain starting at first
func (f *formatter) formatBody(key string, first blocks.NodeID) {
	if first == 0 {
		f.emitLinef("%s: []", key)
		return
	}
	f.emitLinef("%s:", key)
	f.incIndent()
	for _, n := range f.g.ChainOf(first) {
		f.formatStmt(n)
	}
	f.decIndent()
}

// formatStmt writes one list item. Modifier keys line up under the keyword.
func (f *formatter) formatStmt(n *blocks.Node) {
	switch n.Kind {
	case blocks.Variable:
		f.emitLinef("- var: %s", name(n.Name))
		f.incIndent()
		f.emitLinef("type: %s", typeName(n.Type))
		if n.Checked {
			f.emitLine("checked: true")
		}
	case blocks.SetVar:
		f.emitLinef("- set: %s", f.slot(n, blocks.SlotVar))
		f.incIndent()
		f.emitLinef("to: %s", f.slot(n, blocks.SlotValue))
	case blocks.Print:
		f.emitLinef("- print: %s", f.slot(n, blocks.SlotValue))
		f.incIndent()
	case blocks.Input:
		f.emitLinef("- input: %s", f.slot(n, blocks.SlotVar))
		f.incIndent()
	case blocks.If, blocks.IfElse:
		f.emitLinef("- if: %s", f.slot(n, blocks.SlotCond))
		f.incIndent()
		f.formatBody("then", n.Body)
		if n.Kind == blocks.IfElse {
			f.formatBody("else", n.Else)
		}
	case blocks.While:
		f.emitLinef("- while: %s", f.slot(n, blocks.SlotCond))
		f.incIndent()
		f.formatBody("do", n.Body)
	case blocks.For:
		f.formatFor(n)
	case blocks.When:
		f.emitLinef("- when: %s", f.slot(n, blocks.SlotCond))
		f.incIndent()
		if n.Times != blocks.Unbounded {
			f.emitLinef("times: %d", n.Times)
		}
		f.formatBody("do", n.Body)
	default:
		f.emitLinef("- %s: ~", n.Kind)
		f.incIndent()
	}
	f.decIndent()
}

// formatFor always writes the key that selects the iteration mode, even
// when its slot is empty
func (f *formatter) formatFor(n *blocks.Node) {
	f.emitLinef("- for: %s", name(n.Name))
	f.incIndent()
	if n.Type != nil && n.Type != types.Int {
		f.emitLinef("type: %s", typeName(n.Type))
	}

	type bound struct {
		key, slot string
		always    bool
	}
	var bounds []bound
	switch n.Iteration {
	case blocks.IterGenerator:
		bounds = []bound{{"start", blocks.SlotFrom, false}, {"step", blocks.SlotStep, false}, {"until", blocks.SlotUntil, true}}
	case blocks.IterIterable:
		bounds = []bound{{"in", blocks.SlotIn, true}}
	default:
		bounds = []bound{{"from", blocks.SlotFrom, false}, {"to", blocks.SlotTo, false}, {"step", blocks.SlotStep, false}}
	}
	for _, b := range bounds {
		if b.always || n.Slot(b.slot) != 0 {
			f.emitLinef("%s: %s", b.key, f.slot(n, b.slot))
		}
	}
	f.formatBody("do", n.Body)
}

// --- expressions ---

func (f *formatter) slot(n *blocks.Node, slot string) string {
	return f.formatExpr(f.g.SlotNode(n, slot))
}

// formatExpr renders a value or predicate in flow style. Empty slots
// render as ~.
func (f *formatter) formatExpr(n *blocks.Node) string {
	if n == nil {
		return "~"
	}
	switch n.Kind {
	case blocks.Literal:
		return formatLiteral(n)
	case blocks.VarRef, blocks.ForIndexRef:
		return fmt.Sprintf("{ref: %s}", name(n.Name))
	case blocks.DeviceRef:
		return fmt.Sprintf("{device: %s}", name(n.Name))
	case blocks.Interrupt:
		return fmt.Sprintf("{interrupt: %s}", name(n.Name))
	case blocks.Not:
		return fmt.Sprintf("{not: %s}", f.slot(n, blocks.SlotOperand))
	case blocks.ElementOf:
		index := f.slot(n, blocks.SlotIndex)
		if n.LitIndex != nil {
			index = strconv.Itoa(*n.LitIndex)
		}
		return fmt.Sprintf("{elem: [%s, %s]}", f.slot(n, blocks.SlotVector), index)
	default:
		return fmt.Sprintf("{%s: [%s, %s]}", n.Kind, f.slot(n, blocks.SlotLeft), f.slot(n, blocks.SlotRight))
	}
}

// formatLiteral writes a bare scalar when loading it back would infer the
// same type, and a {lit, type} mapping otherwise
func formatLiteral(n *blocks.Node) string {
	switch v := n.Value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case string:
		if n.Type == types.String || n.Type == nil {
			return strconv.Quote(v)
		}
		return fmt.Sprintf("{lit: %s, type: %s}", strconv.Quote(v), typeName(n.Type))
	case float64:
		text := formatNumber(v)
		if n.Type == types.Double {
			if !strings.Contains(text, ".") {
				text += ".0"
			}
			return text
		}
		if inferred(v) == n.Type {
			return text
		}
		return fmt.Sprintf("{lit: %s, type: %s}", text, typeName(n.Type))
	default:
		return "~"
	}
}

// inferred is the type the loader gives an untyped number
func inferred(v float64) types.Type {
	switch {
	case v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v):
		return types.Double
	case v < math.MinInt32 || v > math.MaxInt32:
		return types.Long
	default:
		return types.Int
	}
}

func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var plainName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// name quotes identifiers that would not survive as plain scalars
func name(s string) string {
	if plainName.MatchString(s) && s != "true" && s != "false" && s != "null" {
		return s
	}
	return strconv.Quote(s)
}

func typeName(t types.Type) string {
	if t == nil {
		return "~"
	}
	if _, ok := t.(*types.ArrayType); ok {
		return strconv.Quote(t.String())
	}
	return t.String()
}
