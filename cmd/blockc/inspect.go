package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/lhaig/blockc/internal/analyzer"
	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/compiler"
	"github.com/lhaig/blockc/internal/formatter"
	"github.com/lhaig/blockc/internal/linter"
	"github.com/lhaig/blockc/internal/scope"
	"github.com/lhaig/blockc/internal/verify"
)

const (
	historyFile = ".blockc_history"
	promptMain  = "blockc> "
)

const inspectHelp = `Commands:
  :dump            Print the block tree
  :node <id>       Print one block and everything below it
  :ranges <id>     Solve the value ranges known on entry to a statement
  :guards          Show the guard verification report (with proving)
  :scopes          Show the lexical scopes and what each declares
  :cpp             Show the generated main.cpp
  :header          Show the generated devices.h
  :fmt             Show the canonical document
  :lint            Run lint checks
  :reload          Reload the document from disk
  :help            Show this help
  :quit            Leave the shell
`

// session is the state of an inspect shell
type session struct {
	path          string
	graph         *blocks.Graph
	maxIterations int
}

func runInspect(opts cliOptions) int {
	s := &session{path: opts.file, maxIterations: compileOptions(opts).MaxIterations}
	if err := s.reload(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	fmt.Printf("Inspecting %s (%d blocks). Type :help for commands.\n", s.path, s.graph.Len())

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt(promptMain)
		if err != nil { // Ctrl+D, Ctrl+C or EOF
			fmt.Println()
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		out, quit := s.exec(line)
		fmt.Print(out)
		if quit {
			break
		}
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

func (s *session) reload() error {
	g, err := compiler.LoadFile(s.path)
	if err != nil {
		return err
	}
	s.graph = g
	return nil
}

// exec runs one shell command and returns its output
func (s *session) exec(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	switch fields[0] {
	case ":quit", ":q":
		return "", true
	case ":help":
		return inspectHelp, false
	case ":dump":
		return blocks.Dump(s.graph), false
	case ":node":
		n, errOut := s.nodeArg(fields)
		if n == nil {
			return errOut, false
		}
		return blocks.DumpNode(s.graph, n.ID), false
	case ":ranges":
		n, errOut := s.nodeArg(fields)
		if n == nil {
			return errOut, false
		}
		return s.ranges(n), false
	case ":guards":
		res := compiler.Compile(s.graph, compiler.Options{Prove: true, MaxIterations: s.maxIterations})
		if res.Failed() {
			return res.Diagnostics.Format(s.path) + "\n", false
		}
		if len(res.Guards) == 0 {
			return "no guards\n", false
		}
		return verify.FormatReport(res.Guards), false
	case ":scopes":
		res := compiler.Compile(s.graph, compiler.DefaultOptions())
		if res.Failed() {
			return res.Diagnostics.Format(s.path) + "\n", false
		}
		return formatScopes(res.Scopes), false
	case ":cpp", ":header":
		res := compiler.Compile(s.graph, compiler.DefaultOptions())
		if res.Failed() {
			return res.Diagnostics.Format(s.path) + "\n", false
		}
		if fields[0] == ":cpp" {
			return res.Main, false
		}
		if !res.NeedsHeader() {
			return "program has no devices or handlers\n", false
		}
		return res.Header, false
	case ":fmt":
		return formatter.Format(s.graph), false
	case ":lint":
		diag := linter.Lint(s.graph)
		if diag.Count() == 0 {
			return "No lint warnings.\n", false
		}
		return diag.Format(s.path) + "\n", false
	case ":reload":
		if err := s.reload(); err != nil {
			return fmt.Sprintf("error: %s\n", err), false
		}
		return fmt.Sprintf("reloaded %d blocks\n", s.graph.Len()), false
	default:
		return fmt.Sprintf("unknown command %q. Type :help for commands.\n", fields[0]), false
	}
}

func (s *session) nodeArg(fields []string) (*blocks.Node, string) {
	if len(fields) != 2 {
		return nil, fmt.Sprintf("usage: %s <id>\n", fields[0])
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "#"), 10, 32)
	if err != nil {
		return nil, fmt.Sprintf("invalid block id %q\n", fields[1])
	}
	n := s.graph.Node(blocks.NodeID(id))
	if n == nil {
		return nil, fmt.Sprintf("no block #%d\n", id)
	}
	return n, ""
}

func (s *session) ranges(n *blocks.Node) string {
	if n.Kind.Category() != blocks.CategoryStatement {
		return fmt.Sprintf("#%d is a %s, not a statement\n", n.ID, n.Kind)
	}
	cons, err := analyzer.AnalyzeEntry(s.graph, n.ID)
	if err != nil {
		return fmt.Sprintf("error: %s\n", err)
	}
	sets, err := analyzer.Satisfy(nil, cons, analyzer.Options{MaxIterations: s.maxIterations})
	if err != nil {
		return fmt.Sprintf("error: %s\n", err)
	}

	var sb strings.Builder
	for _, name := range cons.Names() {
		set, ok := sets[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s ∈ %s\n", name, cons[name].Type, set)
	}
	if sb.Len() == 0 {
		return "nothing is known here\n"
	}
	return sb.String()
}

// formatScopes prints the scope tree, one level of indentation per depth
func formatScopes(root *scope.Scope) string {
	var sb strings.Builder
	var walk func(sc *scope.Scope)
	walk = func(sc *scope.Scope) {
		pad := strings.Repeat("  ", sc.Depth())
		label := "body"
		if sc.Parent() == nil {
			label = "program"
		}
		fmt.Fprintf(&sb, "%s%s: %d declared\n", pad, label, sc.Len())
		for _, e := range sc.Entries() {
			fmt.Fprintf(&sb, "%s  #%d %s %s\n", pad, e.Decl.ID, e.Decl.Type, e.Decl.Name)
		}
		for _, child := range sc.Children() {
			walk(child)
		}
	}
	walk(root)
	return sb.String()
}
