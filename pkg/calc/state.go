package calc

import "strings"

// ErrorMarker is the display text of the Error state.
const ErrorMarker = "Error"

// Entry is one completed calculation.
type Entry struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

func (e Entry) String() string {
	return e.Expression + " = " + e.Result
}

// State is the complete calculator state for one session. It is a value:
// every engine operation returns a new State and never mutates the slices
// of the one it was given.
type State struct {
	// Display is the operand being typed, the last result, or ErrorMarker.
	Display string

	// Pending is the operator awaiting its right-hand operand.
	Pending Operator

	// Previous is the left-hand operand of Pending.
	Previous string

	// Chain is the expression text entered since the last equals, e.g.
	// ["2", "+", "3", "×"].
	Chain []string

	// Overwrite means the next digit starts a new numeral.
	Overwrite bool

	// History holds completed calculations, most recent first.
	History []Entry

	// Fault records why the state is in Error. Nil otherwise.
	Fault error
}

// IsError reports whether the state shows the error marker.
func (s State) IsError() bool {
	return s.Display == ErrorMarker
}

// HasPending reports whether an operator is waiting for its operand.
func (s State) HasPending() bool {
	return s.Pending != OpNone
}

// Phase names the state machine node a State is in.
type Phase int

const (
	PhaseValue Phase = iota
	PhaseAwaitingOperand
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingOperand:
		return "awaiting-operand"
	case PhaseError:
		return "error"
	default:
		return "value"
	}
}

// Phase returns the state machine node of s.
func (s State) Phase() Phase {
	switch {
	case s.IsError():
		return PhaseError
	case s.HasPending() && s.Overwrite:
		return PhaseAwaitingOperand
	default:
		return PhaseValue
	}
}

// chainText renders a chain plus an optional trailing operand.
func chainText(chain []string, operand string) string {
	parts := make([]string, 0, len(chain)+1)
	parts = append(parts, chain...)
	if operand != "" {
		parts = append(parts, operand)
	}
	return strings.Join(parts, " ")
}

// extend returns chain with items appended on a fresh backing array.
func extend(chain []string, items ...string) []string {
	out := make([]string, 0, len(chain)+len(items))
	out = append(out, chain...)
	return append(out, items...)
}

// pushHistory returns h with e in front, truncated to limit entries.
func pushHistory(h []Entry, e Entry, limit int) []Entry {
	n := len(h) + 1
	if n > limit {
		n = limit
	}
	out := make([]Entry, 0, n)
	out = append(out, e)
	return append(out, h[:n-1]...)
}

// operandText normalizes a display numeral for use in expression text.
func operandText(display string) string {
	t := strings.TrimSuffix(display, ".")
	if t == "" || t == "-" {
		return "0"
	}
	return t
}
