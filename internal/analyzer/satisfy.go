package analyzer

import (
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/logger"
	"github.com/lhaig/blockc/internal/symbolic"
	"github.com/lhaig/blockc/internal/types"
)

// DefaultMaxIterations bounds the solver when no limit is configured
const DefaultMaxIterations = 64

// Options configures Satisfy
type Options struct {
	MaxIterations int
}

// DefaultOptions returns the solver defaults
func DefaultOptions() Options {
	return Options{MaxIterations: DefaultMaxIterations}
}

// Satisfy solves constraints to a fixed point, returning the set of values
// each name may take. Names in known are fixed to their value and
// substituted into every other constraint.
func Satisfy(known map[string]float64, cons Constraints, opts Options) (map[string]symbolic.Set, error) {
	limit := opts.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}

	estimates := make(map[string]symbolic.Set, len(cons)+len(known))
	for name, v := range known {
		estimates[name] = symbolic.Values(v)
	}

	var names []string
	exprs := make(map[string]*symbolic.Expr, len(cons))
	for _, name := range cons.Names() {
		if _, fixed := known[name]; fixed {
			continue
		}
		names = append(names, name)
		exprs[name] = symbolic.Replace(normalize(cons[name].Expr), func(leaf *symbolic.Expr) *symbolic.Expr {
			if leaf.IsRef() {
				if v, ok := known[leaf.Leaf.Ref.Name]; ok {
					return symbolic.Num(v)
				}
			}
			return leaf
		})
	}

	for round := 1; round <= limit; round++ {
		var narrowed []string
		for _, name := range names {
			domain := domainOf(cons[name].Type)
			e := substitute(exprs[name], name, estimates)
			s := symbolic.ToSet(simplify(e, domain), domain)
			if prev, ok := estimates[name]; !ok || !prev.Equal(s) {
				estimates[name] = s
				narrowed = append(narrowed, name)
			}
		}
		logger.LogSolverRound(round, narrowed)
		if len(narrowed) == 0 {
			return estimates, nil
		}
	}
	return nil, diagnostic.Errorf(diagnostic.DidNotConverge, "Constraint solver did not converge after %d iterations", limit)
}

// substitute replaces every reference other than self with the current
// estimate of that name, or its type's universal set
func substitute(e *symbolic.Expr, self string, estimates map[string]symbolic.Set) *symbolic.Expr {
	return symbolic.Replace(e, func(leaf *symbolic.Expr) *symbolic.Expr {
		if !leaf.IsRef() || leaf.Leaf.Ref.Name == self {
			return leaf
		}
		if s, ok := estimates[leaf.Leaf.Ref.Name]; ok {
			return symbolic.Of(s)
		}
		return symbolic.Of(symbolic.Universal(leaf.Leaf.Ref.Type))
	})
}

func domainOf(t types.Type) types.Type {
	if t == nil {
		return types.Double
	}
	return t
}
