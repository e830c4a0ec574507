package codegen

import (
	"sort"
	"strings"

	"github.com/lhaig/blockc/internal/types"
)

// LibPrefix marks a requirement served by the bundled header library
// rather than the C++ standard library
const LibPrefix = "$lib:"

// Requires is the unordered set of headers generated code depends on
type Requires map[string]struct{}

// Add inserts header names
func (r Requires) Add(names ...string) {
	for _, name := range names {
		r[name] = struct{}{}
	}
}

// Merge inserts every header of other
func (r Requires) Merge(other Requires) {
	for name := range other {
		r[name] = struct{}{}
	}
}

// System returns the standard headers in sorted order
func (r Requires) System() []string {
	var out []string
	for name := range r {
		if !strings.HasPrefix(name, LibPrefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Libraries returns the bundled library names in sorted order
func (r Requires) Libraries() []string {
	var out []string
	for name := range r {
		if strings.HasPrefix(name, LibPrefix) {
			out = append(out, strings.TrimPrefix(name, LibPrefix))
		}
	}
	sort.Strings(out)
	return out
}

// Attributes describe the value an expression produces
type Attributes struct {
	LValue       bool
	ResolvedType types.Type
}

// Check is a guard fragment hoisted ahead of the statement consuming the
// guarded expression
type Check struct {
	Lines    []string
	Requires []string
	Site     *GuardSite
}

// Result is the output of compiling one node. Expressions fill Code,
// statements fill Lines.
type Result struct {
	Code       string
	Lines      []string
	Requires   Requires
	Precedence Precedence
	Checks     []Check
	Attributes Attributes

	// interrupt a compiled When block is attached to
	ParentISR string
}

func newResult() *Result {
	return &Result{Requires: make(Requires)}
}

// indent prefixes every line with one level of indentation
func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = indentUnit + line
	}
	return out
}

const indentUnit = "    "
