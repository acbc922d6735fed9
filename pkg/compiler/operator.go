package compiler

import "fmt"

// BinaryOperator enumerates every infix operator of the language.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpAnd
	OpOr
	OpXor
	OpLeftShift
	OpRightShift
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpEqual
	OpNotEqual
	OpAndAlso
	OpOrElse
)

var binaryOperatorSymbols = [...]string{
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
	OpModulo:             "%",
	OpAnd:                "&",
	OpOr:                 "|",
	OpXor:                "^",
	OpLeftShift:          "<<",
	OpRightShift:         ">>",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpEqual:              "==",
	OpNotEqual:           "!=",
	OpAndAlso:            "&&",
	OpOrElse:             "||",
}

func (op BinaryOperator) String() string {
	if int(op) >= 0 && int(op) < len(binaryOperatorSymbols) {
		return binaryOperatorSymbols[op]
	}
	return fmt.Sprintf("BinaryOperator(%d)", int(op))
}

// tokenOperators maps infix tokens to the operator they denote.
var tokenOperators = map[TokenType]BinaryOperator{
	PLUS:        OpAdd,
	MINUS:       OpSubtract,
	STAR:        OpMultiply,
	SLASH:       OpDivide,
	PERCENT:     OpModulo,
	AND:         OpAnd,
	PIPE:        OpOr,
	CARET:       OpXor,
	SHL_OP:      OpLeftShift,
	SHR_OP:      OpRightShift,
	GREATER:     OpGreaterThan,
	GREATER_EQ:  OpGreaterThanOrEqual,
	LESS:        OpLessThan,
	LESS_EQ:     OpLessThanOrEqual,
	EQUALS:      OpEqual,
	NOT_EQ:      OpNotEqual,
	AND_LOGICAL: OpAndAlso,
	OR_LOGICAL:  OpOrElse,
}

func (op BinaryOperator) isArithmetic() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo,
		OpAnd, OpOr, OpXor, OpLeftShift, OpRightShift:
		return true
	}
	return false
}

func (op BinaryOperator) isRelational() bool {
	switch op {
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return true
	}
	return false
}

func (op BinaryOperator) isEquality() bool {
	return op == OpEqual || op == OpNotEqual
}

func (op BinaryOperator) isLogical() bool {
	return op == OpAndAlso || op == OpOrElse
}

// isComparison reports whether op is lowered through branches rather than an
// ALU instruction.
func (op BinaryOperator) isComparison() bool {
	return op.isRelational() || op.isEquality() || op.isLogical()
}

// builtinResult returns the result type of a builtin operator applied to the
// given operand types, or false when no builtin accepts them.
func builtinResult(op BinaryOperator, left, right LanguageType) (LanguageType, bool) {
	switch {
	case op.isArithmetic():
		if left.Equal(Int) && right.Equal(Int) {
			return Int, true
		}
	case op.isRelational():
		if left.Equal(Int) && right.Equal(Int) {
			return Bool, true
		}
	case op.isEquality():
		if left.Equal(right) && left.IsScalar() {
			return Bool, true
		}
	case op.isLogical():
		if left.Equal(Bool) && right.Equal(Bool) {
			return Bool, true
		}
	}
	return LanguageType{}, false
}

// UnaryOperator enumerates the prefix operators.
type UnaryOperator int

const (
	OpNot UnaryOperator = iota
	OpNegate
)

func (op UnaryOperator) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNegate:
		return "-"
	}
	return fmt.Sprintf("UnaryOperator(%d)", int(op))
}
