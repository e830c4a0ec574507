package blocks

import (
	"fmt"

	"github.com/lhaig/blockc/internal/types"
)

// NodeID addresses a node in a Graph. The zero value means "no node".
type NodeID uint32

// Category is the family a node kind belongs to
type Category int

const (
	CategoryNone Category = iota
	CategoryValue
	CategoryPredicate
	CategoryStatement
)

// String returns the string representation of the category
func (c Category) String() string {
	switch c {
	case CategoryValue:
		return "value"
	case CategoryPredicate:
		return "predicate"
	case CategoryStatement:
		return "statement"
	default:
		return "none"
	}
}

// Kind discriminates the node sum type
type Kind int

const (
	KindInvalid Kind = iota

	// values
	Literal
	VarRef
	ForIndexRef
	DeviceRef
	Add
	Sub
	Mult
	Div
	Mod
	ElementOf

	// predicates
	And
	Or
	Not
	Eq
	Lt
	Lte
	Gt
	Gte
	Interrupt

	// statements
	Start
	Variable
	SetVar
	Print
	Input
	If
	IfElse
	While
	For
	When
)

var kindNames = map[Kind]string{
	Literal:     "literal",
	VarRef:      "ref",
	ForIndexRef: "index",
	DeviceRef:   "device",
	Add:         "add",
	Sub:         "sub",
	Mult:        "mul",
	Div:         "div",
	Mod:         "mod",
	ElementOf:   "elem",
	And:         "and",
	Or:          "or",
	Not:         "not",
	Eq:          "eq",
	Lt:          "lt",
	Lte:         "lte",
	Gt:          "gt",
	Gte:         "gte",
	Interrupt:   "interrupt",
	Start:       "start",
	Variable:    "var",
	SetVar:      "set",
	Print:       "print",
	Input:       "input",
	If:          "if",
	IfElse:      "ifelse",
	While:       "while",
	For:         "for",
	When:        "when",
}

// String returns the document keyword of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Category returns the family of the kind
func (k Kind) Category() Category {
	switch {
	case k >= Literal && k <= ElementOf:
		return CategoryValue
	case k >= And && k <= Interrupt:
		return CategoryPredicate
	case k >= Start && k <= When:
		return CategoryStatement
	default:
		return CategoryNone
	}
}

// IsBranch reports whether statements of this kind own a nested body
func (k Kind) IsBranch() bool {
	switch k {
	case If, IfElse, While, For, When:
		return true
	}
	return false
}

// IsTop reports whether the kind begins a chain that needs no parent
func (k Kind) IsTop() bool {
	return k == Start || k == When
}

// Slot names
const (
	SlotLeft    = "left"
	SlotRight   = "right"
	SlotOperand = "operand"
	SlotVector  = "vector"
	SlotIndex   = "index"
	SlotVar     = "var"
	SlotValue   = "value"
	SlotCond    = "cond"
	SlotFrom    = "from"
	SlotTo      = "to"
	SlotStep    = "step"
	SlotUntil   = "until"
	SlotIn      = "in"
)

// SlotSpec declares a named slot and the category it accepts
type SlotSpec struct {
	Name    string
	Accepts Category
}

var slotSpecs = map[Kind][]SlotSpec{
	Add:       {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Sub:       {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Mult:      {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Div:       {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Mod:       {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	ElementOf: {{SlotVector, CategoryValue}, {SlotIndex, CategoryValue}},
	And:       {{SlotLeft, CategoryPredicate}, {SlotRight, CategoryPredicate}},
	Or:        {{SlotLeft, CategoryPredicate}, {SlotRight, CategoryPredicate}},
	Not:       {{SlotOperand, CategoryPredicate}},
	Eq:        {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Lt:        {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Lte:       {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Gt:        {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	Gte:       {{SlotLeft, CategoryValue}, {SlotRight, CategoryValue}},
	SetVar:    {{SlotVar, CategoryValue}, {SlotValue, CategoryValue}},
	Print:     {{SlotValue, CategoryValue}},
	Input:     {{SlotVar, CategoryValue}},
	If:        {{SlotCond, CategoryPredicate}},
	IfElse:    {{SlotCond, CategoryPredicate}},
	While:     {{SlotCond, CategoryPredicate}},
	When:      {{SlotCond, CategoryPredicate}},
	For: {
		{SlotFrom, CategoryValue}, {SlotTo, CategoryValue}, {SlotStep, CategoryValue},
		{SlotUntil, CategoryPredicate}, {SlotIn, CategoryValue},
	},
}

// Slots returns the slot declarations of a kind
func Slots(k Kind) []SlotSpec {
	return slotSpecs[k]
}

// Iteration selects how a For block walks its index
type Iteration int

const (
	IterInterval  Iteration = iota // from, to, step
	IterGenerator                  // from (start), step, until
	IterIterable                   // in
)

// String returns the string representation of the iteration mode
func (it Iteration) String() string {
	switch it {
	case IterGenerator:
		return "generator"
	case IterIterable:
		return "iterable"
	default:
		return "interval"
	}
}

// Unbounded marks a When handler without a repeat limit
const Unbounded = -1

// Pos is a position in the source document, zero when built in code
type Pos struct {
	Line   int
	Column int
}

// Node is one block of the graph. Which fields are meaningful depends on
// Kind; chain links are only set on statements.
type Node struct {
	ID   NodeID
	Kind Kind
	Pos  Pos

	// chain links
	Parent NodeID // previous statement, or the branch owning this body
	Next   NodeID // successor in the same chain
	Body   NodeID // affirmative branch or loop body
	Else   NodeID // negative branch of IfElse

	slots map[string]NodeID

	Name      string     // variable, device, interrupt or loop index name
	Type      types.Type // declared type, literal type, or loop index type
	Checked   bool       // variable opted into runtime guards
	Value     any        // literal payload: float64, string or bool
	Decl      NodeID     // declaring Variable or For for references
	Times     int        // When repeat limit, Unbounded when absent
	LitIndex  *int       // ElementOf constant index
	Iteration Iteration  // For iteration mode
}

// Slot returns the child held by a named slot, or 0
func (n *Node) Slot(name string) NodeID {
	return n.slots[name]
}

// slotSpec returns the declaration of a named slot for a kind, or nil
func slotSpec(k Kind, name string) *SlotSpec {
	for i := range slotSpecs[k] {
		if slotSpecs[k][i].Name == name {
			return &slotSpecs[k][i]
		}
	}
	return nil
}

// Children returns the filled slots in declaration order
func (n *Node) Children() []NodeID {
	var out []NodeID
	for _, spec := range slotSpecs[n.Kind] {
		if id := n.slots[spec.Name]; id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// Number returns the numeric payload of a literal
func (n *Node) Number() (float64, bool) {
	v, ok := n.Value.(float64)
	return v, ok
}

func (n *Node) String() string {
	switch n.Kind {
	case Literal:
		return fmt.Sprintf("#%d %s %v:%s", n.ID, n.Kind, n.Value, n.Type)
	case VarRef, ForIndexRef, DeviceRef, Interrupt:
		return fmt.Sprintf("#%d %s %s", n.ID, n.Kind, n.Name)
	case Variable:
		checked := ""
		if n.Checked {
			checked = " checked"
		}
		return fmt.Sprintf("#%d %s %s:%s%s", n.ID, n.Kind, n.Name, n.Type, checked)
	default:
		return fmt.Sprintf("#%d %s", n.ID, n.Kind)
	}
}
