package diagnostic

import (
	"errors"
	"fmt"
)

// Kind classifies an unrecoverable compilation failure
type Kind int

const (
	KindNone Kind = iota
	MissingOperand
	TypeMismatch
	UnresolvedVariable
	UnrecognizedNode
	UnrecognizedExpression
	UnsupportedGroundOp
	InfiniteSet
	UnreachableEdge
	UnanchoredChain
	DidNotConverge
	DimensionOutOfRange
	InvalidDocument
)

var kindNames = [...]string{
	KindNone:               "none",
	MissingOperand:         "MissingOperand",
	TypeMismatch:           "TypeMismatch",
	UnresolvedVariable:     "UnresolvedVariable",
	UnrecognizedNode:       "UnrecognizedNode",
	UnrecognizedExpression: "UnrecognizedExpression",
	UnsupportedGroundOp:    "UnsupportedGroundOp",
	InfiniteSet:            "InfiniteSet",
	UnreachableEdge:        "UnreachableEdge",
	UnanchoredChain:        "UnanchoredChain",
	DidNotConverge:         "DidNotConverge",
	DimensionOutOfRange:    "DimensionOutOfRange",
	InvalidDocument:        "InvalidDocument",
}

// String returns the name of the error kind
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Failure is a classified compilation failure. The message is shown to the
// user verbatim.
type Failure struct {
	Kind    Kind
	Message string
	Node    uint32
	Line    int
	Column  int
	Hint    string
}

func (e *Failure) Error() string {
	return e.Message
}

// Is reports whether target is a *Failure of the same kind, so callers can
// write errors.Is(err, &diagnostic.Failure{Kind: diagnostic.InfiniteSet}).
func (e *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == e.Kind
}

// Errorf builds a classified error with a formatted message
func Errorf(kind Kind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At attaches the offending block to the error when none is set yet
func (e *Failure) At(node uint32) *Failure {
	if e.Node == 0 {
		e.Node = node
	}
	return e
}

// Pos attaches a document position
func (e *Failure) Pos(line, col int) *Failure {
	e.Line = line
	e.Column = col
	return e
}

// Suggest attaches a hint shown under the message
func (e *Failure) Suggest(hint string) *Failure {
	e.Hint = hint
	return e
}

// AsError unwraps err to the first *Failure in its chain
func AsError(err error) (*Failure, bool) {
	var e *Failure
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindNone when err is not classified
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindNone
}
