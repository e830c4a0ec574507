package analyzer

import (
	"math"
	"testing"

	"github.com/lhaig/blockc/internal/blocks"
	"github.com/lhaig/blockc/internal/diagnostic"
	"github.com/lhaig/blockc/internal/symbolic"
	"github.com/lhaig/blockc/internal/types"
)

func intVar(name string) *symbolic.Expr { return symbolic.Var(name, types.Int) }

func TestComposeExpr(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)

	gte := g.Binary(blocks.Gte, g.Ref(x), g.Literal(2, types.Int))
	got, err := ComposeExpr(g, gte.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := symbolic.Or(symbolic.Gt(intVar("x"), symbolic.Num(2)), symbolic.Eq(intVar("x"), symbolic.Num(2)))
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}

	not := g.Not(g.Binary(blocks.Lt, g.Ref(x), g.Literal(0, types.Int)))
	got, err = ComposeExpr(g, not.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := symbolic.Neg(symbolic.Lt(intVar("x"), symbolic.Num(0))); !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestComposeExprErrors(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)

	tests := []struct {
		name string
		node *blocks.Node
		want diagnostic.Kind
	}{
		{"missing operand", g.Binary(blocks.Add, g.Ref(x), nil), diagnostic.MissingOperand},
		{"interrupt", g.InterruptOn("timer"), diagnostic.UnrecognizedExpression},
		{"element", g.ElementAt(g.Ref(x), 0), diagnostic.UnrecognizedExpression},
		{"undeclared device", g.DeviceRef("nope"), diagnostic.UnresolvedVariable},
	}
	for _, tt := range tests {
		_, err := ComposeExpr(g, tt.node.ID)
		if got := diagnostic.KindOf(err); got != tt.want {
			t.Errorf("%s: got %s (%v), want %s", tt.name, got, err, tt.want)
		}
	}
}

func TestAnalyzeIfElseBranches(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)
	a := g.Print(g.Ref(x))
	b := g.Print(g.Literal("neg", types.String))
	branch := g.IfElse(g.Binary(blocks.Gt, g.Ref(x), g.Literal(0, types.Int)), []*blocks.Node{a}, []*blocks.Node{b})
	g.Start(x, branch)

	cond := symbolic.Gt(intVar("x"), symbolic.Num(0))

	cons, err := Analyze(g, branch.ID, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := cons["x"].Expr; !got.Equal(cond) {
		t.Errorf("affirmative branch: got %s, want %s", got, cond)
	}

	cons, err = Analyze(g, branch.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := cons["x"].Expr; !got.Equal(symbolic.Neg(cond)) {
		t.Errorf("negative branch: got %s, want ~%s", got, cond)
	}
	if cons["x"].Type != types.Int {
		t.Errorf("constraint must carry the declared type, got %v", cons["x"].Type)
	}
}

func TestAnalyzeContinuationOfBranchIsUnreachable(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)
	after := g.Print(g.Ref(x))
	branch := g.If(g.Binary(blocks.Gt, g.Ref(x), g.Literal(0, types.Int)), g.Print(g.Ref(x)))
	g.Start(x, branch, after)

	_, err := AnalyzeEntry(g, after.ID)
	if diagnostic.KindOf(err) != diagnostic.UnreachableEdge {
		t.Errorf("expected UnreachableEdge, got %v", err)
	}
}

func TestAnalyzeUnanchoredChain(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)
	p := g.Print(g.Ref(x))
	g.Chain(x, p)

	_, err := Analyze(g, x.ID, p.ID)
	if diagnostic.KindOf(err) != diagnostic.UnanchoredChain {
		t.Fatalf("expected UnanchoredChain, got %v", err)
	}
	if err.Error() != "Block chain has no starting point, and so will never be executed!" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAnalyzeLoopResetsAssignedVariables(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)
	y := g.Variable("y", types.Int, false)
	first := g.Print(g.Ref(x))
	loop := g.While(g.Binary(blocks.Lt, g.Ref(x), g.Literal(10, types.Int)),
		first,
		g.Set(g.Ref(x), g.Binary(blocks.Add, g.Ref(x), g.Literal(1, types.Int))),
	)
	after := g.Print(g.Ref(y))
	g.Start(x, y,
		g.Set(g.Ref(x), g.Literal(5, types.Int)),
		g.Set(g.Ref(y), g.Literal(2, types.Int)),
		loop, after)

	cons, err := AnalyzeEntry(g, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := symbolic.Lt(intVar("x"), symbolic.Num(10)); !cons["x"].Expr.Equal(want) {
		t.Errorf("inside loop: got %s, want %s", cons["x"].Expr, want)
	}
	if want := symbolic.Eq(intVar("y"), symbolic.Num(2)); !cons["y"].Expr.Equal(want) {
		t.Errorf("unassigned variable must keep its value: got %s", cons["y"].Expr)
	}

	cons, err = AnalyzeEntry(g, after.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := symbolic.Neg(symbolic.Lt(intVar("x"), symbolic.Num(10))); !cons["x"].Expr.Equal(want) {
		t.Errorf("after loop: got %s, want %s", cons["x"].Expr, want)
	}
}

func TestAnalyzeSeedsDevicesAndLoopIndex(t *testing.T) {
	g := blocks.New()
	g.AddDevice("temp", types.Int)
	loop := g.For("i", types.Long, blocks.IterInterval)
	body := g.Print(g.Ref(loop))
	g.SetBody(loop, body)
	inner := g.Print(g.DeviceRef("temp"))
	g.Start(loop, g.If(g.Binary(blocks.Gt, g.DeviceRef("temp"), g.Literal(0, types.Int)), inner))

	cons, err := AnalyzeEntry(g, body.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := cons["i"]; !ok || c.Expr.Op != symbolic.OpTrue || c.Type != types.Long {
		t.Errorf("loop index must be seeded unconstrained, got %+v", c)
	}
	if c, ok := cons["temp"]; !ok || c.Expr.Op != symbolic.OpTrue {
		t.Errorf("device must be seeded, got %+v", c)
	}

	cons, err = AnalyzeEntry(g, inner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if want := symbolic.Gt(intVar("temp"), symbolic.Num(0)); !cons["temp"].Expr.Equal(want) {
		t.Errorf("device condition: got %s, want %s", cons["temp"].Expr, want)
	}
}

func TestSatisfyBoundedConjunction(t *testing.T) {
	cons := Constraints{
		"x": {Expr: symbolic.And(symbolic.Gt(intVar("x"), symbolic.Num(0)), symbolic.Lt(intVar("x"), symbolic.Num(5))), Type: types.Int},
	}
	got, err := Satisfy(nil, cons, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !got["x"].Equal(symbolic.Values(1, 2, 3, 4)) {
		t.Errorf("got %s, want {1, 2, 3, 4}", got["x"])
	}
}

func TestSatisfyKnownValues(t *testing.T) {
	cons := Constraints{
		"x": {Expr: symbolic.Gt(intVar("x"), intVar("y")), Type: types.Int},
		"y": {Expr: symbolic.True(), Type: types.Int},
	}
	got, err := Satisfy(map[string]float64{"y": 3}, cons, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !got["y"].Equal(symbolic.Values(3)) {
		t.Errorf("known value must be kept, got %s", got["y"])
	}
	if want := symbolic.Interval(3, math.Inf(1), true, false); !got["x"].Equal(want) {
		t.Errorf("got %s, want %s", got["x"], want)
	}
}

func TestSatisfyPropagatesEstimates(t *testing.T) {
	cons := Constraints{
		"x": {Expr: symbolic.And(symbolic.Gt(intVar("x"), symbolic.Num(0)), symbolic.Lt(intVar("x"), symbolic.Num(3))), Type: types.Int},
		"y": {Expr: symbolic.Gt(intVar("y"), intVar("x")), Type: types.Int},
	}
	got, err := Satisfy(nil, cons, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !got["x"].Equal(symbolic.Values(1, 2)) {
		t.Errorf("x: got %s", got["x"])
	}
	if want := symbolic.Interval(1, math.Inf(1), true, false); !got["y"].Equal(want) {
		t.Errorf("y: got %s, want %s", got["y"], want)
	}
}

func TestSatisfyNegatedBranch(t *testing.T) {
	cons := Constraints{
		"x": {Expr: symbolic.And(
			symbolic.Gt(intVar("x"), symbolic.Num(-3)),
			symbolic.Neg(symbolic.Gt(intVar("x"), symbolic.Num(0))),
		), Type: types.Int},
	}
	got, err := Satisfy(nil, cons, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !got["x"].Equal(symbolic.Values(-2, -1, 0)) {
		t.Errorf("got %s, want {-2, -1, 0}", got["x"])
	}
}

func TestSatisfyGroundComparisons(t *testing.T) {
	tests := []struct {
		name string
		expr *symbolic.Expr
		want symbolic.Set
	}{
		{"true conjunct dropped", symbolic.And(symbolic.Gt(symbolic.Num(3), symbolic.Num(1)), symbolic.Eq(intVar("x"), symbolic.Num(4))), symbolic.Values(4)},
		{"false conjunct empties", symbolic.And(symbolic.Gt(symbolic.Num(1), symbolic.Num(3)), symbolic.Eq(intVar("x"), symbolic.Num(4))), symbolic.Empty()},
		{"true disjunct", symbolic.Or(symbolic.Lt(symbolic.Num(1), symbolic.Num(3)), symbolic.Eq(intVar("x"), symbolic.Num(4))), symbolic.Universal(types.Int)},
		{"negated true", symbolic.Neg(symbolic.True()), symbolic.Empty()},
	}
	for _, tt := range tests {
		got, err := Satisfy(nil, Constraints{"x": {Expr: tt.expr, Type: types.Int}}, DefaultOptions())
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !got["x"].Equal(tt.want) {
			t.Errorf("%s: got %s, want %s", tt.name, got["x"], tt.want)
		}
	}
}

func TestSatisfyIterationCeiling(t *testing.T) {
	cons := Constraints{"x": {Expr: symbolic.Gt(intVar("x"), symbolic.Num(0)), Type: types.Int}}
	_, err := Satisfy(nil, cons, Options{MaxIterations: 1})
	if diagnostic.KindOf(err) != diagnostic.DidNotConverge {
		t.Errorf("expected DidNotConverge, got %v", err)
	}
}

func TestAnalyzeThenSatisfy(t *testing.T) {
	g := blocks.New()
	y := g.Variable("y", types.Int, true)
	use := g.Print(g.Binary(blocks.Div, g.Literal(10, types.Int), g.Ref(y)))
	g.Start(y, g.Set(g.Ref(y), g.Literal(4, types.Int)), use)

	cons, err := AnalyzeEntry(g, use.ID)
	if err != nil {
		t.Fatal(err)
	}
	sets, err := Satisfy(nil, cons, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !sets["y"].Equal(symbolic.Values(4)) {
		t.Errorf("got %s, want 4", sets["y"])
	}
}

func TestAnalyzeReassignmentDropsRelations(t *testing.T) {
	yGtX := symbolic.Gt(intVar("y"), intVar("x"))
	yLt10 := symbolic.Lt(intVar("y"), symbolic.Num(10))
	xIs0 := symbolic.Eq(intVar("x"), symbolic.Num(0))

	// each case builds the statement following input x; input y and the
	// statement whose entry is inspected
	tests := []struct {
		name  string
		build func(g *blocks.Graph, x, y *blocks.Node) (stmt, point *blocks.Node)
		x, y  *symbolic.Expr
	}{
		{
			name: "relation holds before the assignment",
			build: func(g *blocks.Graph, x, y *blocks.Node) (*blocks.Node, *blocks.Node) {
				point := g.Print(g.Ref(y))
				return g.If(g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)), point, g.Set(g.Ref(x), g.Literal(0, types.Int))), point
			},
			x: yGtX, y: yGtX,
		},
		{
			name: "set to a literal",
			build: func(g *blocks.Graph, x, y *blocks.Node) (*blocks.Node, *blocks.Node) {
				point := g.Print(g.Ref(y))
				return g.If(g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)), g.Set(g.Ref(x), g.Literal(0, types.Int)), point), point
			},
			x: xIs0, y: symbolic.True(),
		},
		{
			name: "set to an expression",
			build: func(g *blocks.Graph, x, y *blocks.Node) (*blocks.Node, *blocks.Node) {
				point := g.Print(g.Ref(y))
				sum := g.Binary(blocks.Add, g.Ref(y), g.Literal(1, types.Int))
				return g.If(g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)), g.Set(g.Ref(x), sum), point), point
			},
			x: symbolic.True(), y: symbolic.True(),
		},
		{
			name: "input",
			build: func(g *blocks.Graph, x, y *blocks.Node) (*blocks.Node, *blocks.Node) {
				point := g.Print(g.Ref(y))
				return g.If(g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)), g.Input(g.Ref(x)), point), point
			},
			x: symbolic.True(), y: symbolic.True(),
		},
		{
			name: "unrelated conjunct kept",
			build: func(g *blocks.Graph, x, y *blocks.Node) (*blocks.Node, *blocks.Node) {
				point := g.Print(g.Ref(y))
				cond := g.Binary(blocks.And,
					g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)),
					g.Binary(blocks.Lt, g.Ref(y), g.Literal(10, types.Int)))
				return g.If(cond, g.Set(g.Ref(x), g.Literal(0, types.Int)), point), point
			},
			x: xIs0, y: yLt10,
		},
		{
			name: "assigned in an enclosing loop body",
			build: func(g *blocks.Graph, x, y *blocks.Node) (*blocks.Node, *blocks.Node) {
				point := g.Print(g.Ref(y))
				loop := g.While(g.Binary(blocks.Lt, g.Ref(y), g.Literal(10, types.Int)),
					point, g.Set(g.Ref(x), g.Literal(0, types.Int)))
				return g.If(g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)), loop), point
			},
			x: symbolic.True(), y: yLt10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := blocks.New()
			x := g.Variable("x", types.Int, false)
			y := g.Variable("y", types.Int, true)
			stmt, point := tt.build(g, x, y)
			g.Start(x, y, g.Input(g.Ref(x)), g.Input(g.Ref(y)), stmt)

			cons, err := AnalyzeEntry(g, point.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got := cons["x"].Expr; !got.Equal(tt.x) {
				t.Errorf("x: got %s, want %s", got, tt.x)
			}
			if got := cons["y"].Expr; !got.Equal(tt.y) {
				t.Errorf("y: got %s, want %s", got, tt.y)
			}
		})
	}
}

func TestSatisfyAfterReassignment(t *testing.T) {
	g := blocks.New()
	x := g.Variable("x", types.Int, false)
	y := g.Variable("y", types.Int, true)
	point := g.Print(g.Ref(y))
	g.Start(x, y, g.Input(g.Ref(x)), g.Input(g.Ref(y)),
		g.If(g.Binary(blocks.Gt, g.Ref(y), g.Ref(x)), g.Set(g.Ref(x), g.Literal(0, types.Int)), point))

	cons, err := AnalyzeEntry(g, point.ID)
	if err != nil {
		t.Fatal(err)
	}
	sets, err := Satisfy(nil, cons, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !sets["x"].Equal(symbolic.Values(0)) {
		t.Errorf("x: got %s, want {0}", sets["x"])
	}
	if in, _ := symbolic.Member(sets["y"], 0, types.Int); !in {
		t.Errorf("y must still admit 0 once x is reassigned, got %s", sets["y"])
	}
}
