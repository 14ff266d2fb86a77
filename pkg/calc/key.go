package calc

import "fmt"

// KeyKind identifies which engine operation a Key invokes.
type KeyKind int

const (
	KeyDigit KeyKind = iota + 1
	KeyOperator
	KeyEquals
	KeyClear
	KeyDelete
	KeyClearHistory
)

// Key is a translated input event.
type Key struct {
	Kind KeyKind
	// Digit is '0'-'9' or '.' for KeyDigit.
	Digit byte
	// Op is set for KeyOperator.
	Op Operator
}

// Digit returns the key for a digit or decimal point.
func Digit(d byte) Key { return Key{Kind: KeyDigit, Digit: d} }

// Op returns the key for an operator.
func Op(op Operator) Key { return Key{Kind: KeyOperator, Op: op} }

// Convenience keys.
var (
	Equals       = Key{Kind: KeyEquals}
	Clear        = Key{Kind: KeyClear}
	Delete       = Key{Kind: KeyDelete}
	ClearHistory = Key{Kind: KeyClearHistory}
)

func (k Key) String() string {
	switch k.Kind {
	case KeyDigit:
		return string(k.Digit)
	case KeyOperator:
		return k.Op.Symbol()
	case KeyEquals:
		return "="
	case KeyClear:
		return "clear"
	case KeyDelete:
		return "delete"
	case KeyClearHistory:
		return "clear-history"
	default:
		return fmt.Sprintf("key(%d)", int(k.Kind))
	}
}
