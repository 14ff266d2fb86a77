// Package calc implements the calculator engine: a pure state machine that
// turns digit, operator and command inputs into a display string and a
// bounded history of completed calculations.
//
// Operators fold eagerly from left to right with no precedence, so
// "2 + 3 × 4 =" yields 20. Arithmetic faults never escape as Go errors;
// they move the state into Error, which a clear, a delete or a fresh digit
// leaves again.
package calc

import "strings"

// Engine applies inputs to a State under a fixed Profile. An Engine holds
// no per-session data and is safe for concurrent use.
type Engine struct {
	profile Profile
}

// New creates an engine for the given profile.
func New(p Profile) *Engine {
	return &Engine{profile: p.withDefaults()}
}

// Profile returns the engine's profile.
func (e *Engine) Profile() Profile {
	return e.profile
}

// Initial returns the session start state.
func (e *Engine) Initial() State {
	return State{Display: "0", Overwrite: true}
}

// Apply dispatches a translated key.
func (e *Engine) Apply(s State, k Key) State {
	switch k.Kind {
	case KeyDigit:
		return e.InputDigit(s, k.Digit)
	case KeyOperator:
		return e.InputOperator(s, k.Op)
	case KeyEquals:
		return e.Equals(s)
	case KeyClear:
		return e.Clear(s)
	case KeyDelete:
		return e.DeleteLast(s)
	case KeyClearHistory:
		return e.ClearHistory(s)
	default:
		return s
	}
}

// InputDigit enters a digit or decimal point. Malformed input (a second
// point, a numeral past MaxDigits, an unknown token) leaves s unchanged.
func (e *Engine) InputDigit(s State, d byte) State {
	if !isDigitToken(d) {
		return s
	}

	if s.IsError() || s.Overwrite {
		s.Display = freshNumeral(d)
		s.Overwrite = false
		s.Fault = nil
		return s
	}

	if d == '.' {
		if strings.Contains(s.Display, ".") {
			return s
		}
		s.Display += "."
		return s
	}

	if e.profile.MaxDigits > 0 && countDigits(s.Display) >= e.profile.MaxDigits {
		return s
	}

	switch s.Display {
	case "0":
		s.Display = string(d)
	case "-0":
		s.Display = "-" + string(d)
	default:
		s.Display += string(d)
	}
	return s
}

// InputOperator records op as pending, folding any pending operation whose
// right-hand operand has been entered.
func (e *Engine) InputOperator(s State, op Operator) State {
	if s.IsError() {
		return s
	}
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
	default:
		// OpPercent has no defined arithmetic.
		return s
	}

	if !s.HasPending() {
		s.Previous = s.Display
		s.Pending = op
		s.Overwrite = true
		s.Chain = []string{operandText(s.Display), op.Symbol()}
		return s
	}

	if s.Overwrite {
		// Operator pressed twice: the newer one wins.
		s.Pending = op
		s.Chain = extend(s.Chain[:len(s.Chain)-1], op.Symbol())
		return s
	}

	result, err := e.fold(s.Previous, s.Display, s.Pending)
	if err != nil {
		return fail(s, err)
	}
	s.Chain = extend(s.Chain, operandText(s.Display), op.Symbol())
	s.Previous = result
	s.Display = result
	s.Pending = op
	s.Overwrite = true
	return s
}

// Equals resolves the pending operation and records it in history.
func (e *Engine) Equals(s State) State {
	if s.IsError() || !s.HasPending() {
		return s
	}

	result, err := e.fold(s.Previous, s.Display, s.Pending)
	if err != nil {
		return fail(s, err)
	}

	entry := Entry{
		Expression: chainText(s.Chain, operandText(s.Display)),
		Result:     result,
	}
	s.History = pushHistory(s.History, entry, e.profile.HistorySize)
	s.Display = result
	s.Previous = ""
	s.Pending = OpNone
	s.Chain = nil
	s.Overwrite = true
	return s
}

// Clear returns to the initial state, keeping history.
func (e *Engine) Clear(s State) State {
	next := e.Initial()
	next.History = s.History
	return next
}

// ClearHistory empties the history and leaves everything else alone.
func (e *Engine) ClearHistory(s State) State {
	s.History = nil
	return s
}

// DeleteLast removes the last typed character.
func (e *Engine) DeleteLast(s State) State {
	if s.IsError() {
		return e.Clear(s)
	}

	if s.Overwrite {
		if e.profile.DeleteOnFresh == DeleteIgnore {
			return s
		}
		s.Display = "0"
		return s
	}

	d := s.Display[:len(s.Display)-1]
	if d == "" || d == "-" {
		s.Display = "0"
		s.Overwrite = true
		return s
	}
	s.Display = d
	return s
}

// Display returns the formatted display text.
func (e *Engine) Display(s State) string {
	return Group(s.Display, e.profile.Grouping)
}

// Annotation returns the expression entered so far, e.g. "2 + 3 ×".
func (e *Engine) Annotation(s State) string {
	return strings.Join(s.Chain, " ")
}

// History returns a copy of the history, most recent first.
func (e *Engine) History(s State) []Entry {
	out := make([]Entry, len(s.History))
	copy(out, s.History)
	return out
}

// fold evaluates "a op b" and formats the rounded result.
func (e *Engine) fold(a, b string, op Operator) (string, error) {
	x, err := ParseOperand(a)
	if err != nil {
		return "", err
	}
	y, err := ParseOperand(b)
	if err != nil {
		return "", err
	}
	r, err := Compute(x, y, op)
	if err != nil {
		return "", err
	}
	return FormatNumber(Round(r, e.profile.Precision)), nil
}

func fail(s State, err error) State {
	s.Display = ErrorMarker
	s.Previous = ""
	s.Pending = OpNone
	s.Chain = nil
	s.Overwrite = true
	s.Fault = err
	return s
}

func isDigitToken(d byte) bool {
	return d == '.' || (d >= '0' && d <= '9')
}

func freshNumeral(d byte) string {
	if d == '.' {
		return "0."
	}
	return string(d)
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}
