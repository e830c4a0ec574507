package verify

import (
	"fmt"
	"strings"

	"github.com/lhaig/blockc/internal/codegen"
)

// Summary counts guard decisions by status
type Summary struct {
	Proven  int
	Guarded int
	Errors  int
}

// Total returns the number of guard sites
func (s Summary) Total() int {
	return s.Proven + s.Guarded + s.Errors
}

// Summarize counts decisions by status
func Summarize(decisions []codegen.GuardDecision) Summary {
	var s Summary
	for _, d := range decisions {
		switch d.Status {
		case codegen.StatusProven:
			s.Proven++
		case codegen.StatusError:
			s.Errors++
		default:
			s.Guarded++
		}
	}
	return s
}

// statusWorse returns true if a is worse than b in the ordering:
// proven < guarded < error
func statusWorse(a, b string) bool {
	return statusRank(a) > statusRank(b)
}

func statusRank(s string) int {
	switch s {
	case codegen.StatusProven:
		return 0
	case codegen.StatusGuarded:
		return 1
	case codegen.StatusError:
		return 2
	default:
		return 3
	}
}

// Worst returns the worst status among decisions, proven when there are none
func Worst(decisions []codegen.GuardDecision) string {
	worst := codegen.StatusProven
	for _, d := range decisions {
		if statusWorse(d.Status, worst) {
			worst = d.Status
		}
	}
	return worst
}

// FormatReport produces human-readable output for guard decisions
func FormatReport(decisions []codegen.GuardDecision) string {
	if len(decisions) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("Guard Verification Report\n")
	sb.WriteString("=========================\n\n")

	for _, d := range decisions {
		site := fmt.Sprintf("#%d %s %s", d.Site.Node, d.Site.Kind, d.Site.Variable)
		fmt.Fprintf(&sb, "  %-32s %s\n", site, strings.ToUpper(d.Status))
		if d.Reason != "" {
			fmt.Fprintf(&sb, "      %s\n", d.Reason)
		}
	}

	s := Summarize(decisions)
	sb.WriteString("\n")
	if s.Proven == s.Total() {
		fmt.Fprintf(&sb, "Status: all %d guards proven and elided\n", s.Total())
	} else {
		fmt.Fprintf(&sb, "Status: %d of %d guards proven and elided\n", s.Proven, s.Total())
	}
	return sb.String()
}
