package blocks

import (
	"fmt"
	"strings"
)

// Dump returns a tree-like string representation of the graph for debugging
func Dump(g *Graph) string {
	var sb strings.Builder
	sb.WriteString("Graph\n")
	for _, d := range g.Devices {
		sb.WriteString(fmt.Sprintf("  Device: %s:%s\n", d.Name, d.Type))
	}
	for _, root := range g.Roots() {
		printChain(&sb, g, root, 1)
	}
	return sb.String()
}

// DumpNode renders one node and everything below it
func DumpNode(g *Graph, id NodeID) string {
	var sb strings.Builder
	printNode(&sb, g, g.Node(id), 0, "")
	return sb.String()
}

func printChain(sb *strings.Builder, g *Graph, id NodeID, indent int) {
	for n := g.Node(id); n != nil; n = g.Node(n.Next) {
		printNode(sb, g, n, indent, "")
		if n.Kind == Start {
			return
		}
	}
}

func printNode(sb *strings.Builder, g *Graph, n *Node, indent int, label string) {
	if n == nil {
		return
	}

	prefix := strings.Repeat("  ", indent)
	if label != "" {
		prefix += label + ": "
	}
	sb.WriteString(prefix + n.String())

	switch n.Kind {
	case When:
		if n.Times != Unbounded {
			sb.WriteString(fmt.Sprintf(" times=%d", n.Times))
		}
	case For:
		sb.WriteString(fmt.Sprintf(" %s:%s %s", n.Name, n.Type, n.Iteration))
	case ElementOf:
		if n.LitIndex != nil {
			sb.WriteString(fmt.Sprintf(" [%d]", *n.LitIndex))
		}
	}
	sb.WriteString("\n")

	for _, spec := range slotSpecs[n.Kind] {
		if child := g.Node(n.Slot(spec.Name)); child != nil {
			printNode(sb, g, child, indent+1, spec.Name)
		}
	}

	if n.Body != 0 {
		sb.WriteString(strings.Repeat("  ", indent+1) + "do:\n")
		printChain(sb, g, n.Body, indent+2)
	}
	if n.Else != 0 {
		sb.WriteString(strings.Repeat("  ", indent+1) + "else:\n")
		printChain(sb, g, n.Else, indent+2)
	}
	// Start owns the main chain through Next
	if n.Kind == Start {
		printChain(sb, g, n.Next, indent+1)
	}
}
