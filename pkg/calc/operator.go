package calc

import (
	"errors"
	"fmt"
)

// Operator is a binary calculator operator.
type Operator int

const (
	// OpNone means no operator is pending.
	OpNone Operator = iota
	// OpAdd is addition.
	OpAdd
	// OpSubtract is subtraction.
	OpSubtract
	// OpMultiply is multiplication.
	OpMultiply
	// OpDivide is division.
	OpDivide
	// OpPercent is the extended keypad's percent key. It has no arithmetic
	// meaning and is rejected by the engine.
	OpPercent
)

// ErrUnknownOperator is returned by ParseOperator for unrecognized symbols.
var ErrUnknownOperator = errors.New("unknown operator")

// Symbol returns the display symbol for the operator.
func (o Operator) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "×"
	case OpDivide:
		return "÷"
	case OpPercent:
		return "%"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (o Operator) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	case OpPercent:
		return "percent"
	default:
		return "none"
	}
}

// ParseOperator resolves an operator symbol or name.
// Accepts the display symbols plus the usual ASCII spellings.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "+", "add", "plus":
		return OpAdd, nil
	case "-", "−", "subtract", "minus":
		return OpSubtract, nil
	case "*", "×", "x", "X", "multiply", "times":
		return OpMultiply, nil
	case "/", "÷", "divide":
		return OpDivide, nil
	case "%", "percent":
		return OpPercent, nil
	}
	return OpNone, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}
