// Package loader reads block graph documents. A document is YAML (JSON is
// accepted as a subset) with three top-level keys:
//
//	devices:  [{name: temp, type: int}]
//	main:     [statement, ...]
//	handlers: [{when: predicate, times: 3, do: [statement, ...]}]
//
// Statements are mappings keyed by their keyword (var, set, print, input,
// if, while, for, when); values and predicates are scalars or single-key
// mappings such as {add: [l, r]} and {ref: x}. A null operand leaves the
// slot empty.
package loader

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/types"
)

// statement keywords with the modifier keys each accepts
var statementKeys = map[string][]string{
	"var":   {"type", "checked"},
	"set":   {"to"},
	"print": nil,
	"input": nil,
	"if":    {"then", "else"},
	"while": {"do"},
	"for":   {"type", "from", "to", "step", "start", "until", "in", "do"},
	"when":  {"times", "do"},
}

var binaryKeys = map[string]blocks.Kind{
	"add": blocks.Add,
	"sub": blocks.Sub,
	"mul": blocks.Mult,
	"div": blocks.Div,
	"mod": blocks.Mod,
	"and": blocks.And,
	"or":  blocks.Or,
	"eq":  blocks.Eq,
	"lt":  blocks.Lt,
	"lte": blocks.Lte,
	"gt":  blocks.Gt,
	"gte": blocks.Gte,
}

// frame holds the declarations of one body
type frame struct {
	parent *frame
	decls  []*blocks.Node
}

type loader struct {
	g     *blocks.Graph
	scope *frame
	all   []*blocks.Node // every declaration seen so far
}

// Load parses a graph document
func Load(data []byte) (*blocks.Graph, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, diagnostic.Errorf(diagnostic.InvalidDocument, "invalid document: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, diagnostic.Errorf(diagnostic.InvalidDocument, "empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errAt(root, "document must be a mapping")
	}

	l := &loader{g: blocks.New()}
	fields, err := l.fields(root)
	if err != nil {
		return nil, err
	}
	for key := range fields {
		if key != "devices" && key != "main" && key != "handlers" {
			k := fields[key].key
			return nil, diagnostic.Errorf(diagnostic.InvalidDocument, "unknown top-level key '%s'", key).
				Pos(k.Line, k.Column).Suggest("a document holds only devices, main and handlers")
		}
	}

	if f, ok := fields["devices"]; ok {
		if err := l.devices(f.value); err != nil {
			return nil, err
		}
	}
	if f, ok := fields["main"]; ok {
		l.scope = &frame{}
		stmts, err := l.chain(f.value)
		if err != nil {
			return nil, err
		}
		start := l.g.Start(stmts...)
		start.Pos = pos(f.key)
	}
	if f, ok := fields["handlers"]; ok {
		if err := l.handlers(f.value); err != nil {
			return nil, err
		}
	}
	return l.g, nil
}

// field is one key/value pair of a mapping
type field struct {
	key   *yaml.Node
	value *yaml.Node
}

// fields indexes a mapping by key, rejecting duplicates and non-scalar keys
func (l *loader) fields(n *yaml.Node) (map[string]field, error) {
	out := make(map[string]field, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, errAt(k, "mapping keys must be scalars")
		}
		if _, dup := out[k.Value]; dup {
			return nil, errAt(k, "duplicate key '%s'", k.Value)
		}
		out[k.Value] = field{key: k, value: v}
	}
	return out, nil
}

// keyOrder returns the keys of a mapping in document order
func keyOrder(n *yaml.Node) []string {
	var keys []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

func (l *loader) devices(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return errAt(n, "devices must be a list")
	}
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return errAt(item, "device must be a mapping with name and type")
		}
		fields, err := l.fields(item)
		if err != nil {
			return err
		}
		name, ok := fields["name"]
		if !ok || name.value.Kind != yaml.ScalarNode || name.value.Value == "" {
			return errAt(item, "device needs a name")
		}
		t, err := l.typeOf(fields, item)
		if err != nil {
			return err
		}
		if _, dup := l.g.FindDevice(name.value.Value); dup {
			return errAt(name.value, "device '%s' declared twice", name.value.Value)
		}
		l.g.AddDevice(name.value.Value, t)
	}
	return nil
}

func (l *loader) handlers(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return errAt(n, "handlers must be a list")
	}
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return errAt(item, "handler must be a when statement")
		}
		fields, err := l.fields(item)
		if err != nil {
			return err
		}
		if _, ok := fields["when"]; !ok {
			return errAt(item, "handler must be a when statement")
		}
		l.scope = &frame{}
		if _, err := l.statement(item, fields, true); err != nil {
			return err
		}
	}
	return nil
}

// chain loads a list of statements in the current scope
func (l *loader) chain(n *yaml.Node) ([]*blocks.Node, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errAt(n, "expected a list of statements")
	}
	var stmts []*blocks.Node
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return nil, errAt(item, "statement must be a mapping")
		}
		fields, err := l.fields(item)
		if err != nil {
			return nil, err
		}
		stmt, err := l.statement(item, fields, false)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// body loads a nested chain in a fresh scope and attaches it
func (l *loader) body(n *yaml.Node) (*blocks.Node, error) {
	l.scope = &frame{parent: l.scope}
	defer func() { l.scope = l.scope.parent }()
	stmts, err := l.chain(n)
	if err != nil {
		return nil, err
	}
	return l.g.Chain(stmts...), nil
}

func (l *loader) statement(item *yaml.Node, fields map[string]field, top bool) (*blocks.Node, error) {
	var keyword string
	for _, key := range keyOrder(item) {
		if _, ok := statementKeys[key]; ok {
			keyword = key
			break
		}
	}
	if keyword == "" {
		return nil, errAt(item, "statement has no keyword")
	}
	allowed := map[string]bool{keyword: true}
	for _, key := range statementKeys[keyword] {
		allowed[key] = true
	}
	for key, f := range fields {
		if !allowed[key] {
			return nil, errAt(f.key, "unknown key '%s' in '%s' statement", key, keyword)
		}
	}
	if keyword == "when" && !top {
		return nil, errAt(item, "when blocks must be listed under handlers")
	}

	head := fields[keyword].value
	switch keyword {
	case "var":
		return l.variable(item, head, fields)
	case "set":
		n := l.node(blocks.SetVar, item)
		if err := l.slot(n, blocks.SlotVar, head); err != nil {
			return nil, err
		}
		if f, ok := fields["to"]; ok {
			if err := l.slot(n, blocks.SlotValue, f.value); err != nil {
				return nil, err
			}
		}
		return n, nil
	case "print":
		n := l.node(blocks.Print, item)
		return n, l.slot(n, blocks.SlotValue, head)
	case "input":
		n := l.node(blocks.Input, item)
		return n, l.slot(n, blocks.SlotVar, head)
	case "if":
		return l.branch(item, head, fields)
	case "while":
		n := l.node(blocks.While, item)
		if err := l.slot(n, blocks.SlotCond, head); err != nil {
			return nil, err
		}
		return n, l.attachBody(n, fields)
	case "for":
		return l.forLoop(item, head, fields)
	default:
		return l.handler(item, head, fields)
	}
}

func (l *loader) node(kind blocks.Kind, at *yaml.Node) *blocks.Node {
	n := l.g.NewNode(kind)
	n.Pos = pos(at)
	return n
}

func (l *loader) variable(item, head *yaml.Node, fields map[string]field) (*blocks.Node, error) {
	if head.Kind != yaml.ScalarNode || head.Value == "" {
		return nil, errAt(head, "variable needs a name")
	}
	t, err := l.typeOf(fields, item)
	if err != nil {
		return nil, err
	}
	n := l.node(blocks.Variable, item)
	n.Name = head.Value
	n.Type = t
	if f, ok := fields["checked"]; ok {
		if err := f.value.Decode(&n.Checked); err != nil {
			return nil, errAt(f.value, "checked must be true or false")
		}
	}
	l.declare(n)
	return n, nil
}

func (l *loader) typeOf(fields map[string]field, at *yaml.Node) (types.Type, error) {
	f, ok := fields["type"]
	if !ok {
		return nil, errAt(at, "missing type")
	}
	t, err := l.g.Types.Parse(f.value.Value)
	if err != nil {
		return nil, withPos(err, f.value)
	}
	return t, nil
}

func (l *loader) branch(item, head *yaml.Node, fields map[string]field) (*blocks.Node, error) {
	kind := blocks.If
	if _, ok := fields["else"]; ok {
		kind = blocks.IfElse
	}
	n := l.node(kind, item)
	if err := l.slot(n, blocks.SlotCond, head); err != nil {
		return nil, err
	}
	if f, ok := fields["then"]; ok {
		first, err := l.body(f.value)
		if err != nil {
			return nil, err
		}
		l.g.SetBody(n, first)
	}
	if f, ok := fields["else"]; ok {
		first, err := l.body(f.value)
		if err != nil {
			return nil, err
		}
		l.g.SetElse(n, first)
	}
	return n, nil
}

func (l *loader) attachBody(n *blocks.Node, fields map[string]field) error {
	f, ok := fields["do"]
	if !ok {
		return nil
	}
	first, err := l.body(f.value)
	if err != nil {
		return err
	}
	l.g.SetBody(n, first)
	return nil
}

func (l *loader) forLoop(item, head *yaml.Node, fields map[string]field) (*blocks.Node, error) {
	if head.Kind != yaml.ScalarNode || head.Value == "" {
		return nil, errAt(head, "for loop needs an index name")
	}
	n := l.node(blocks.For, item)
	n.Name = head.Value
	n.Type = types.Int
	if _, ok := fields["type"]; ok {
		t, err := l.typeOf(fields, item)
		if err != nil {
			return nil, err
		}
		n.Type = t
	}

	var bounds map[string]string
	switch {
	case has(fields, "in"):
		n.Iteration = blocks.IterIterable
		bounds = map[string]string{"in": blocks.SlotIn}
	case has(fields, "until"):
		n.Iteration = blocks.IterGenerator
		bounds = map[string]string{"start": blocks.SlotFrom, "step": blocks.SlotStep, "until": blocks.SlotUntil}
	default:
		n.Iteration = blocks.IterInterval
		bounds = map[string]string{"from": blocks.SlotFrom, "to": blocks.SlotTo, "step": blocks.SlotStep}
	}
	// the index is visible to the bounds and the body, not after the loop
	l.scope = &frame{parent: l.scope}
	l.declare(n)
	err := l.forBounds(n, fields, bounds)
	if err == nil {
		err = l.attachBody(n, fields)
	}
	l.scope = l.scope.parent
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (l *loader) forBounds(n *blocks.Node, fields map[string]field, bounds map[string]string) error {
	for _, key := range []string{"from", "to", "step", "start", "until", "in"} {
		f, ok := fields[key]
		if !ok {
			continue
		}
		slot, valid := bounds[key]
		if !valid {
			return errAt(f.key, "'%s' does not apply to a %s for loop", key, n.Iteration)
		}
		if err := l.slot(n, slot, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) handler(item, head *yaml.Node, fields map[string]field) (*blocks.Node, error) {
	n := l.node(blocks.When, item)
	if err := l.slot(n, blocks.SlotCond, head); err != nil {
		return nil, err
	}
	if f, ok := fields["times"]; ok {
		var times int
		if err := f.value.Decode(&times); err != nil || times < 0 {
			return nil, errAt(f.value, "times must be a non-negative integer")
		}
		n.Times = times
	}
	if err := l.attachBody(n, fields); err != nil {
		return nil, err
	}
	l.g.Handlers = append(l.g.Handlers, n.ID)
	return n, nil
}

// slot loads an operand into a named slot. Null leaves the slot empty.
func (l *loader) slot(n *blocks.Node, name string, v *yaml.Node) error {
	if v.Kind == yaml.ScalarNode && v.ShortTag() == "!!null" {
		return nil
	}
	child, err := l.operand(v)
	if err != nil {
		return err
	}
	if err := l.g.SetSlot(n, name, child); err != nil {
		return withPos(err, v)
	}
	return nil
}

// operand loads a value or predicate
func (l *loader) operand(v *yaml.Node) (*blocks.Node, error) {
	switch v.Kind {
	case yaml.ScalarNode:
		return l.scalar(v, nil)
	case yaml.MappingNode:
	default:
		return nil, errAt(v, "expected a value or predicate")
	}

	fields, err := l.fields(v)
	if err != nil {
		return nil, err
	}
	if f, ok := fields["lit"]; ok {
		if len(fields) != 2 || !has(fields, "type") {
			return nil, errAt(v, "typed literal needs exactly lit and type")
		}
		t, err := l.typeOf(fields, v)
		if err != nil {
			return nil, err
		}
		return l.scalar(f.value, t)
	}
	if len(fields) != 1 {
		return nil, errAt(v, "expression must have exactly one key")
	}

	key := v.Content[0].Value
	arg := v.Content[1]
	switch key {
	case "ref":
		return l.reference(arg)
	case "device":
		if arg.Kind != yaml.ScalarNode || arg.Value == "" {
			return nil, errAt(arg, "device reference needs a name")
		}
		n := l.node(blocks.DeviceRef, v)
		n.Name = arg.Value
		return n, nil
	case "interrupt":
		if arg.Kind != yaml.ScalarNode || arg.Value == "" {
			return nil, errAt(arg, "interrupt needs a name")
		}
		n := l.node(blocks.Interrupt, v)
		n.Name = arg.Value
		return n, nil
	case "not":
		n := l.node(blocks.Not, v)
		return n, l.slot(n, blocks.SlotOperand, arg)
	case "elem":
		return l.element(v, arg)
	}
	if kind, ok := binaryKeys[key]; ok {
		if arg.Kind != yaml.SequenceNode || len(arg.Content) != 2 {
			return nil, errAt(arg, "'%s' takes a list of two operands", key)
		}
		n := l.node(kind, v)
		if err := l.slot(n, blocks.SlotLeft, arg.Content[0]); err != nil {
			return nil, err
		}
		return n, l.slot(n, blocks.SlotRight, arg.Content[1])
	}
	return nil, errAt(v.Content[0], "unknown expression '%s'", key)
}

func (l *loader) element(v, arg *yaml.Node) (*blocks.Node, error) {
	if arg.Kind != yaml.SequenceNode || len(arg.Content) != 2 {
		return nil, errAt(arg, "'elem' takes a vector and an index")
	}
	n := l.node(blocks.ElementOf, v)
	if err := l.slot(n, blocks.SlotVector, arg.Content[0]); err != nil {
		return nil, err
	}
	index := arg.Content[1]
	if index.Kind == yaml.ScalarNode && index.ShortTag() == "!!int" {
		var i int
		if err := index.Decode(&i); err != nil || i < 0 {
			return nil, errAt(index, "element index must be a non-negative integer")
		}
		n.LitIndex = &i
		return n, nil
	}
	return n, l.slot(n, blocks.SlotIndex, index)
}

// scalar builds a literal. Untyped scalars take their type from the YAML
// tag; integers that do not fit an int become long.
func (l *loader) scalar(v *yaml.Node, t types.Type) (*blocks.Node, error) {
	if v.Kind != yaml.ScalarNode {
		return nil, errAt(v, "literal must be a scalar")
	}
	n := l.node(blocks.Literal, v)
	tag := v.ShortTag()

	switch {
	case t == types.String || (t == nil && tag == "!!str"):
		n.Value, n.Type = v.Value, types.String
	case t == types.Bool || (t == nil && tag == "!!bool"):
		var b bool
		if err := v.Decode(&b); err != nil {
			return nil, errAt(v, "'%s' is not a boolean", v.Value)
		}
		n.Value, n.Type = b, types.Bool
	case t == types.Byte && tag == "!!str":
		if len(v.Value) != 1 {
			return nil, errAt(v, "byte literal '%s' must be a single character", v.Value)
		}
		n.Value, n.Type = v.Value, types.Byte
	case t == nil && tag == "!!int":
		var i int64
		if err := v.Decode(&i); err != nil {
			return nil, errAt(v, "'%s' is not an integer", v.Value)
		}
		n.Value, n.Type = float64(i), types.Int
		if i < math.MinInt32 || i > math.MaxInt32 {
			n.Type = types.Long
		}
	case t == nil && tag == "!!float":
		var f float64
		if err := v.Decode(&f); err != nil {
			return nil, errAt(v, "'%s' is not a number", v.Value)
		}
		n.Value, n.Type = f, types.Double
	case t != nil && t.Numeric():
		var f float64
		if err := v.Decode(&f); err != nil {
			return nil, errAt(v, "'%s' is not a number", v.Value)
		}
		n.Value, n.Type = f, t
	case t != nil:
		return nil, errAt(v, "literals of type %s are not supported", t)
	default:
		return nil, errAt(v, "unsupported literal '%s'", v.Value)
	}
	return n, nil
}

func (l *loader) declare(decl *blocks.Node) {
	l.scope.decls = append(l.scope.decls, decl)
	l.all = append(l.all, decl)
}

// reference resolves a name to the innermost visible declaration. Names
// declared only in a scope that is no longer open fall back to their latest
// declaration, so the code generator reports the scope violation.
func (l *loader) reference(arg *yaml.Node) (*blocks.Node, error) {
	if arg.Kind != yaml.ScalarNode || arg.Value == "" {
		return nil, errAt(arg, "reference needs a name")
	}
	name := arg.Value
	decl := l.resolve(name)
	if decl == nil {
		return nil, diagnostic.Errorf(diagnostic.UnresolvedVariable,
			"Variable %s is never declared", name).Pos(arg.Line, arg.Column).
			Suggest(fmt.Sprintf("add '- var: %s' with its type before the first use", name))
	}
	ref := l.g.Ref(decl)
	ref.Pos = pos(arg)
	return ref, nil
}

func (l *loader) resolve(name string) *blocks.Node {
	for f := l.scope; f != nil; f = f.parent {
		for i := len(f.decls) - 1; i >= 0; i-- {
			if f.decls[i].Name == name {
				return f.decls[i]
			}
		}
	}
	for i := len(l.all) - 1; i >= 0; i-- {
		if l.all[i].Name == name {
			return l.all[i]
		}
	}
	return nil
}

func has(fields map[string]field, key string) bool {
	_, ok := fields[key]
	return ok
}

func pos(n *yaml.Node) blocks.Pos {
	return blocks.Pos{Line: n.Line, Column: n.Column}
}

func errAt(n *yaml.Node, format string, args ...interface{}) error {
	return diagnostic.Errorf(diagnostic.InvalidDocument, format, args...).Pos(n.Line, n.Column)
}

// withPos attaches a document position to a classified error that has none
func withPos(err error, n *yaml.Node) error {
	if e, ok := diagnostic.AsError(err); ok && e.Line == 0 {
		return e.Pos(n.Line, n.Column)
	}
	return err
}
