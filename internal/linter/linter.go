package linter

import (
	"strings"
	"unicode"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
)

// Linter performs style and best-practice checks on a block graph.
// It reports warnings (never errors) using the diagnostic system.
type Linter struct {
	g    *blocks.Graph
	diag *diagnostic.Diagnostics

	nodes    []*blocks.Node // reachable nodes in walk order
	read     map[blocks.NodeID]bool
	written  map[blocks.NodeID]bool
	guarded  map[blocks.NodeID]bool
	devices  map[string]bool
	assigned map[blocks.NodeID]bool // slot nodes that are assignment targets
}

// Lint runs all lint rules on the given graph and returns diagnostics.
func Lint(g *blocks.Graph) *diagnostic.Diagnostics {
	l := &Linter{
		g:        g,
		diag:     diagnostic.New(),
		read:     make(map[blocks.NodeID]bool),
		written:  make(map[blocks.NodeID]bool),
		guarded:  make(map[blocks.NodeID]bool),
		devices:  make(map[string]bool),
		assigned: make(map[blocks.NodeID]bool),
	}

	l.collect()
	for _, n := range l.nodes {
		switch n.Kind {
		case blocks.Variable:
			l.checkNaming(n)
			l.checkUnusedVariable(n)
			l.checkCheckedVariable(n)
		case blocks.For:
			l.checkNaming(n)
			l.checkEmptyBody(n)
		case blocks.If, blocks.IfElse, blocks.While:
			l.checkEmptyBody(n)
		case blocks.When:
			l.checkEmptyBody(n)
			l.checkHandlerTimes(n)
		}
	}
	l.checkUnusedDevices()

	return l.diag
}

// --- Collection ---

// collect walks every root once and records how each declaration is used
func (l *Linter) collect() {
	for _, root := range l.g.Roots() {
		l.g.Walk(root, func(n *blocks.Node) bool {
			l.nodes = append(l.nodes, n)
			switch n.Kind {
			case blocks.SetVar, blocks.Input:
				if target := l.g.SlotNode(n, blocks.SlotVar); target != nil {
					l.assigned[target.ID] = true
					if target.Kind == blocks.VarRef {
						l.written[target.Decl] = true
					}
				}
			case blocks.VarRef, blocks.ForIndexRef:
				if !l.assigned[n.ID] {
					l.read[n.Decl] = true
				}
			case blocks.DeviceRef:
				l.devices[n.Name] = true
			case blocks.Add, blocks.Sub:
				l.markGuarded(l.g.SlotNode(n, blocks.SlotLeft))
				l.markGuarded(l.g.SlotNode(n, blocks.SlotRight))
			case blocks.Div, blocks.Mod:
				l.markGuarded(l.g.SlotNode(n, blocks.SlotRight))
			}
			return true
		})
	}
}

func (l *Linter) markGuarded(n *blocks.Node) {
	if n != nil && n.Kind == blocks.VarRef {
		l.guarded[n.Decl] = true
	}
}

// --- Lint rules ---

// checkUnusedVariable warns about variables that are never read, and about
// variables that are read without ever being assigned.
func (l *Linter) checkUnusedVariable(n *blocks.Node) {
	switch {
	case !l.read[n.ID] && !l.written[n.ID]:
		l.warnHint(n, "remove the declaration", "variable '%s' is declared but never used", n.Name)
	case !l.read[n.ID]:
		l.warn(n, "variable '%s' is assigned but never read", n.Name)
	case !l.written[n.ID]:
		l.warnHint(n, "set it or read it with an input block first", "variable '%s' is read but never assigned", n.Name)
	}
}

// checkCheckedVariable warns when a checked variable never appears where a
// guard could be placed.
func (l *Linter) checkCheckedVariable(n *blocks.Node) {
	if n.Checked && !l.guarded[n.ID] {
		l.warnHint(n, "drop 'checked' or use it in add, sub, div or mod",
			"checked variable '%s' is never an operand of a guarded operation", n.Name)
	}
}

// checkEmptyBody warns about branches and loops without statements.
func (l *Linter) checkEmptyBody(n *blocks.Node) {
	if n.Body == 0 {
		l.warn(n, "'%s' block has an empty body", n.Kind)
	}
	if n.Kind == blocks.IfElse && n.Else == 0 {
		l.warn(n, "'%s' block has an empty else branch", n.Kind)
	}
}

func (l *Linter) checkHandlerTimes(n *blocks.Node) {
	if n.Times == 0 {
		l.warn(n, "handler is limited to 0 runs and never executes")
	}
}

// checkNaming warns about names that are not usable C++ identifiers or that
// collide with generated names.
func (l *Linter) checkNaming(n *blocks.Node) {
	switch {
	case !isIdentifier(n.Name):
		l.warn(n, "'%s' is not a valid C++ identifier", n.Name)
	case strings.HasPrefix(n.Name, "__"):
		l.warnHint(n, "generated interrupt handlers are named __isr_<name>", "'%s' uses the reserved '__' prefix", n.Name)
	}
}

func (l *Linter) checkUnusedDevices() {
	for _, d := range l.g.Devices {
		if !l.devices[d.Name] {
			l.diag.Warningf(0, 0, "device '%s' is declared but never used", d.Name)
		}
	}
}

func (l *Linter) warn(n *blocks.Node, format string, args ...interface{}) {
	l.diag.WarnNode(uint32(n.ID), n.Pos.Line, n.Pos.Column, format, args...)
}

func (l *Linter) warnHint(n *blocks.Node, hint, format string, args ...interface{}) {
	l.diag.WarnNodeWithHint(uint32(n.ID), n.Pos.Line, n.Pos.Column, hint, format, args...)
}

// isIdentifier returns true if the name is an ASCII word that does not
// start with a digit.
func isIdentifier(name string) bool {
	if len(name) == 0 {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
