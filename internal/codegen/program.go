package codegen

import (
	"fmt"
	"strings"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/logger"
	"github.com/lhaig/blockc/internal/scope"
)

// TickISR names the handler group that polls non-interrupt conditions
const TickISR = "tick"

// HeaderName is the file the generated program includes for devices and
// handler prototypes
const HeaderName = "devices.h"

// Options configures generation
type Options struct {
	// Policy decides which guards are emitted. Nil emits all of them.
	Policy GuardPolicy
}

// Program is a generated C++ translation unit and its companion header
type Program struct {
	Main        string
	Header      string
	Requires    Requires
	Libraries   []string
	ISRs        []string
	Guards      []GuardDecision
	Diagnostics *diagnostic.Diagnostics
	// Scopes is the root of the scope tree. main is its first child, each
	// handler body follows in order.
	Scopes *scope.Scope
}

type generator struct {
	graph   *blocks.Graph
	policy  GuardPolicy
	handler bool // compiling a handler body, guards return without a value
	guards  []GuardDecision
	diags   *diagnostic.Diagnostics
}

func (g *generator) errorf(n *blocks.Node, kind diagnostic.Kind, format string, args ...interface{}) error {
	return diagnostic.Errorf(kind, format, args...).At(uint32(n.ID)).Pos(n.Pos.Line, n.Pos.Column)
}

// Generate compiles a block graph into C++. The first error aborts
// generation and no output is produced.
func Generate(graph *blocks.Graph, opts Options) (*Program, error) {
	g := &generator{
		graph:  graph,
		policy: opts.Policy,
		diags:  diagnostic.New(),
	}
	if g.policy == nil {
		g.policy = AlwaysGuard{}
	}

	start := graph.Node(graph.Main)
	if start == nil || start.Kind != blocks.Start {
		return nil, diagnostic.Errorf(diagnostic.UnanchoredChain, "Program has no start block")
	}

	root := scope.New(nil)
	main, err := g.compileChain(start.Next, scope.New(root))
	if err != nil {
		return nil, err
	}
	requires := newResult().Requires
	requires.Merge(main.Requires)

	g.handler = true
	var handlers []*Result
	for _, id := range graph.Handlers {
		h, err := g.compileHandler(graph.Node(id), root)
		if err != nil {
			return nil, err
		}
		requires.Merge(h.Requires)
		handlers = append(handlers, h)
	}
	isrs, groups := groupHandlers(handlers)
	logger.Debug("grouped handlers", "handlers", len(handlers), "isrs", len(isrs))

	prog := &Program{
		Requires:    requires,
		Libraries:   requires.Libraries(),
		ISRs:        isrs,
		Guards:      g.guards,
		Diagnostics: g.diags,
		Scopes:      root,
	}
	prog.Main = g.renderMain(requires, main.Lines, isrs, groups)
	prog.Header = g.renderHeader(isrs)
	return prog, nil
}

// compileHandler compiles a When block into the body of its ISR. The
// result's ParentISR names the interrupt it is attached to.
func (g *generator) compileHandler(n *blocks.Node, root *scope.Scope) (*Result, error) {
	if n == nil || n.Kind != blocks.When {
		return nil, diagnostic.Errorf(diagnostic.UnrecognizedNode, "Handler is not a when block")
	}
	cn := g.graph.SlotNode(n, blocks.SlotCond)
	if cn == nil {
		return nil, g.errorf(n, diagnostic.MissingOperand, "When check without condition")
	}

	sc := scope.New(root)
	var counter []string
	if n.Times != blocks.Unbounded {
		counter = []string{
			"static int __isr_exec_ct = 0;",
			fmt.Sprintf("if (__isr_exec_ct >= %d) return;", n.Times),
			"__isr_exec_ct++;",
		}
	}

	if cn.Kind == blocks.Interrupt {
		body, err := g.compileChain(n.Body, sc)
		if err != nil {
			return nil, err
		}
		body.Lines = append(counter, body.Lines...)
		body.ParentISR = cn.Name
		return body, nil
	}

	cond, err := g.condition(n, sc)
	if err != nil {
		return nil, err
	}
	body, err := g.compileChain(n.Body, sc)
	if err != nil {
		return nil, err
	}
	res := newResult()
	res.Requires.Merge(cond.Requires)
	res.Requires.Merge(body.Requires)
	// polled conditions are re-evaluated on every tick
	lines := g.hoist(res, n, cond.Checks, true)
	lines = append(lines, "if ("+cond.Code+") {")
	lines = append(lines, indent(counter)...)
	lines = append(lines, indent(body.Lines)...)
	lines = append(lines, "}")
	res.Lines = lines
	res.ParentISR = TickISR
	return res, nil
}

// groupHandlers buckets handlers by ISR, keeping the order in which each
// ISR is first used
func groupHandlers(handlers []*Result) ([]string, map[string][]*Result) {
	var order []string
	groups := make(map[string][]*Result)
	for _, h := range handlers {
		if _, ok := groups[h.ParentISR]; !ok {
			order = append(order, h.ParentISR)
		}
		groups[h.ParentISR] = append(groups[h.ParentISR], h)
	}
	return order, groups
}

// emitter accumulates indented output lines
type emitter struct {
	sb     strings.Builder
	indent int
}

func (e *emitter) emitLine(s string) {
	if s == "" {
		e.sb.WriteString("\n")
		return
	}
	e.sb.WriteString(strings.Repeat(indentUnit, e.indent))
	e.sb.WriteString(s)
	e.sb.WriteString("\n")
}

func (e *emitter) emitLinef(format string, args ...any) {
	e.emitLine(fmt.Sprintf(format, args...))
}

func (e *emitter) emitLines(lines []string) {
	for _, line := range lines {
		e.emitLine(line)
	}
}

func (e *emitter) incIndent() { e.indent++ }
func (e *emitter) decIndent() { e.indent-- }

func (g *generator) renderMain(requires Requires, body []string, isrs []string, groups map[string][]*Result) string {
	var e emitter
	for _, name := range requires.System() {
		e.emitLinef("#include <%s>", name)
	}
	for _, name := range requires.Libraries() {
		e.emitLinef("#include \"lib/%s.h\"", name)
	}
	if len(g.graph.Devices) > 0 || len(isrs) > 0 {
		e.emitLinef("#include \"%s\"", HeaderName)
	}
	e.emitLine("")

	for _, isr := range isrs {
		group := groups[isr]
		if len(group) == 1 {
			e.emitLinef("void __isr_%s() {", isr)
			e.incIndent()
			e.emitLines(group[0].Lines)
			e.decIndent()
			e.emitLine("}")
			e.emitLine("")
			continue
		}
		// each handler keeps its own repeat counter
		for i, h := range group {
			e.emitLinef("static void __isr_%s_%d() {", isr, i)
			e.incIndent()
			e.emitLines(h.Lines)
			e.decIndent()
			e.emitLine("}")
			e.emitLine("")
		}
		e.emitLinef("void __isr_%s() {", isr)
		e.incIndent()
		for i := range group {
			e.emitLinef("__isr_%s_%d();", isr, i)
		}
		e.decIndent()
		e.emitLine("}")
		e.emitLine("")
	}

	e.emitLine("int main() {")
	e.incIndent()
	e.emitLines(body)
	e.emitLine("return 0;")
	e.decIndent()
	e.emitLine("}")
	return e.sb.String()
}

func (g *generator) renderHeader(isrs []string) string {
	var e emitter
	e.emitLine("#pragma once")

	requires := make(Requires)
	for _, d := range g.graph.Devices {
		_, req := d.Type.Compile()
		requires.Add(req...)
	}
	if headers := requires.System(); len(headers) > 0 {
		e.emitLine("")
		for _, name := range headers {
			e.emitLinef("#include <%s>", name)
		}
	}

	if len(g.graph.Devices) > 0 {
		e.emitLine("")
		for _, d := range g.graph.Devices {
			code, _ := d.Type.Compile()
			e.emitLinef("extern %s %s;", code, d.Name)
		}
	}

	for _, isr := range isrs {
		e.emitLine("")
		e.emitLinef("#define BLOCKC_USES_ISR_%s 1", macroName(isr))
		e.emitLinef("void __isr_%s();", isr)
	}
	return e.sb.String()
}

func macroName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
