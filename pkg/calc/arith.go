package calc

import (
	"errors"
	"math"
	"strconv"
)

// Arithmetic faults. The engine absorbs them into the Error display state;
// they are exported so callers can inspect State.Fault with errors.Is.
var (
	ErrDivisionByZero      = errors.New("division by zero")
	ErrNonFinite           = errors.New("non-finite result")
	ErrUnsupportedOperator = errors.New("operator has no arithmetic")
	ErrInvalidOperand      = errors.New("invalid operand")
)

// maxExact bounds values that can be scaled for rounding without losing
// integer precision.
const maxExact = 1 << 53

// Compute applies op to a and b.
func Compute(a, b float64, op Operator) (float64, error) {
	var r float64
	switch op {
	case OpAdd:
		r = a + b
	case OpSubtract:
		r = a - b
	case OpMultiply:
		r = a * b
	case OpDivide:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		r = a / b
	default:
		return 0, ErrUnsupportedOperator
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, ErrNonFinite
	}
	return r, nil
}

// significantDigits is the precision a float64 result is trusted to;
// digits past it are binary residue.
const significantDigits = 15

// Round rounds x to the given number of decimal places, then drops binary
// residue beyond significantDigits. Decimal rounding is skipped when x is
// too large to scale exactly; the significant-digit cap still applies.
func Round(x float64, places int) float64 {
	if places < 0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	r := x
	p := math.Pow(10, float64(places))
	if scaled := x * p; math.Abs(scaled) < maxExact {
		r = math.Round(scaled) / p
	}
	r = trimResidue(r)
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}

// trimResidue rounds a fractional x to significantDigits, widened so no
// integer digit is lost. Integral values are exact and returned as is.
func trimResidue(x float64) float64 {
	if x == math.Trunc(x) {
		return x
	}
	digits := significantDigits
	if n := len(strconv.FormatFloat(math.Abs(math.Trunc(x)), 'f', 0, 64)); n > digits {
		digits = n
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'g', digits, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// FormatNumber renders x as a plain decimal numeral without exponent.
func FormatNumber(x float64) string {
	if x == 0 {
		return "0"
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// ParseOperand parses a display numeral. A trailing "." is accepted.
func ParseOperand(s string) (float64, error) {
	if s == "" || s == ErrorMarker {
		return 0, ErrInvalidOperand
	}
	v, err := strconv.ParseFloat(s, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrNonFinite
	}
	if err != nil {
		return 0, ErrInvalidOperand
	}
	return v, nil
}
