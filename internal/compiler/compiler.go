package compiler

import (
	"fmt"
	"os"

	"github.com/lhaig/blockc/internal/analyzer"
	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/codegen"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/loader"
	"github.com/lhaig/blockc/internal/logger"
	"github.com/lhaig/blockc/internal/scope"
	"github.com/lhaig/blockc/internal/verify"
)

// Options configures a compilation
type Options struct {
	// Prove elides guards the constraint analyzer can show to be redundant
	Prove bool
	// MaxIterations bounds the constraint solver when Prove is set
	MaxIterations int
}

// DefaultOptions returns options that emit every guard
func DefaultOptions() Options {
	return Options{MaxIterations: analyzer.DefaultMaxIterations}
}

// Result holds the output of a compilation. On failure only Diagnostics is
// set.
type Result struct {
	Main        string
	Header      string
	Libraries   []string
	Requires    []string
	ISRs        []string
	Devices     []blocks.Device
	Guards      []codegen.GuardDecision
	Scopes      *scope.Scope
	Diagnostics *diagnostic.Diagnostics
}

// Failed reports whether compilation produced errors
func (r *Result) Failed() bool {
	return r.Diagnostics != nil && r.Diagnostics.HasErrors()
}

// Compile generates C++ for a block graph
func Compile(g *blocks.Graph, opts Options) *Result {
	res := &Result{Diagnostics: diagnostic.New()}

	var policy codegen.GuardPolicy = codegen.AlwaysGuard{}
	if opts.Prove {
		policy = verify.Prover{MaxIterations: opts.MaxIterations}
	}

	logger.LogPhase("codegen")
	prog, err := codegen.Generate(g, codegen.Options{Policy: policy})
	if err != nil {
		res.Diagnostics.AddError(err)
		logger.Error("code generation failed", "error", err)
		return res
	}
	res.Diagnostics.Merge(prog.Diagnostics)

	res.Main = prog.Main
	res.Header = prog.Header
	res.Libraries = prog.Libraries
	res.Requires = prog.Requires.System()
	res.ISRs = prog.ISRs
	res.Devices = g.Devices
	res.Guards = prog.Guards
	res.Scopes = prog.Scopes

	summary := verify.Summarize(prog.Guards)
	logger.LogPhaseComplete("codegen",
		"guards", summary.Total(),
		"elided", summary.Proven,
		"isrs", len(prog.ISRs))
	return res
}

// Check runs generation and returns diagnostics only
func Check(g *blocks.Graph) *diagnostic.Diagnostics {
	return Compile(g, DefaultOptions()).Diagnostics
}

// CompileSource loads a graph document and compiles it
func CompileSource(data []byte, opts Options) *Result {
	logger.LogPhase("load")
	g, err := loader.Load(data)
	if err != nil {
		res := &Result{Diagnostics: diagnostic.New()}
		res.Diagnostics.AddError(err)
		return res
	}
	logger.LogPhaseComplete("load", "nodes", g.Len(), "handlers", len(g.Handlers))
	return Compile(g, opts)
}

// LoadFile reads and loads a graph document from disk
func LoadFile(path string) (*blocks.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return loader.Load(data)
}

// CompileFile loads a graph document from disk and compiles it
func CompileFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return CompileSource(data, opts), nil
}
