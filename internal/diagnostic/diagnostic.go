package diagnostic

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic message
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single compiler error, warning, or info message
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Line     int
	Column   int
	Node     uint32 // block id, 0 when the message is not tied to a block
	File     string // optional document path
	Hint     string // optional suggestion
}

// Diagnostics manages a collection of diagnostic messages
type Diagnostics struct {
	items []Diagnostic
}

// New creates a new empty Diagnostics collection
func New() *Diagnostics {
	return &Diagnostics{
		items: make([]Diagnostic, 0),
	}
}

// Warningf adds a warning diagnostic with formatted message
func (d *Diagnostics) Warningf(line, col int, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   col,
	})
}

// HasErrors returns true if there are any error-level diagnostics
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns only the error-level diagnostics
func (d *Diagnostics) Errors() []Diagnostic {
	errors := make([]Diagnostic, 0)
	for _, item := range d.items {
		if item.Severity == Error {
			errors = append(errors, item)
		}
	}
	return errors
}

// All returns all diagnostics regardless of severity
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Count returns the total number of diagnostics
func (d *Diagnostics) Count() int {
	return len(d.items)
}

// ErrorCount returns the number of error-level diagnostics
func (d *Diagnostics) ErrorCount() int {
	count := 0
	for _, item := range d.items {
		if item.Severity == Error {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-level diagnostics
func (d *Diagnostics) WarningCount() int {
	count := 0
	for _, item := range d.items {
		if item.Severity == Warning {
			count++
		}
	}
	return count
}

// WarnNode adds a warning attached to a block rather than a source position
func (d *Diagnostics) WarnNode(node uint32, line, col int, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   col,
		Node:     node,
	})
}

// WarnNodeWithHint adds a block warning together with a suggested fix
func (d *Diagnostics) WarnNodeWithHint(node uint32, line, col int, hint, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   col,
		Node:     node,
		Hint:     hint,
	})
}

// AddError records err as an error diagnostic. Kind, block, position and
// hint are recovered when err wraps a *Failure.
func (d *Diagnostics) AddError(err error) {
	if err == nil {
		return
	}
	item := Diagnostic{Severity: Error, Message: err.Error()}
	if e, ok := AsError(err); ok {
		item.Kind = e.Kind
		item.Node = e.Node
		item.Line = e.Line
		item.Column = e.Column
		item.Hint = e.Hint
	}
	d.items = append(d.items, item)
}

// Merge appends every diagnostic of other
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// Format returns human-readable error messages
// Output format:
//
//	error[graph.yaml:3:10]: Variable x not declared in current scope!
//	  hint: declare it in an enclosing body
//	warning[graph.yaml#12]: variable 'z' is declared but never used
func (d *Diagnostics) Format(filename string) string {
	if len(d.items) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, item := range d.items {
		// Use item.File if set, otherwise use the filename parameter
		fileToUse := filename
		if item.File != "" {
			fileToUse = item.File
		}

		// Format the main diagnostic line
		location := fileToUse
		switch {
		case item.Line > 0:
			location = fmt.Sprintf("%s:%d:%d", fileToUse, item.Line, item.Column)
		case item.Node != 0:
			location = fmt.Sprintf("%s#%d", fileToUse, item.Node)
		}
		builder.WriteString(fmt.Sprintf("%s[%s]: %s",
			item.Severity.String(),
			location,
			item.Message,
		))

		// Add hint if present
		if item.Hint != "" {
			builder.WriteString(fmt.Sprintf("\n  hint: %s", item.Hint))
		}

		// Add newline unless it's the last item
		if i < len(d.items)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
