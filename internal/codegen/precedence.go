package codegen

// Precedence is a C++ operator precedence level. Lower binds tighter; zero
// marks atoms that never need parentheses.
//
//	 1: ::
//	 2: postfix, subscript
//	 3: unary + -, !, casts
//	 5: * / %
//	 6: + -
//	 7: << >>
//	 9: < <= > >=
//	10: == !=
//	14: &&
//	15: ||
//	16: assignment
//	17: ,
type Precedence int

const (
	PrecNone           Precedence = 0
	PrecScope          Precedence = 1
	PrecPostfix        Precedence = 2
	PrecUnary          Precedence = 3
	PrecMultiplicative Precedence = 5
	PrecAdditive       Precedence = 6
	PrecShift          Precedence = 7
	PrecRelational     Precedence = 9
	PrecEquality       Precedence = 10
	PrecLogicalAnd     Precedence = 14
	PrecLogicalOr      Precedence = 15
	PrecAssignment     Precedence = 16
	PrecComma          Precedence = 17
)

// RightToLeft reports whether operators of this level group from the right
func (p Precedence) RightToLeft() bool {
	return p == PrecUnary || p == PrecAssignment
}

// parenthesize returns the operand code, wrapped when it binds looser than
// the enclosing operator. An operand at the same level is wrapped only on
// the side the operator does not group from.
func parenthesize(operand *Result, enclosing Precedence, rightSide bool) string {
	p := operand.Precedence
	if p == PrecNone || p < enclosing {
		return operand.Code
	}
	if p == enclosing && rightSide == enclosing.RightToLeft() {
		return operand.Code
	}
	return "(" + operand.Code + ")"
}
