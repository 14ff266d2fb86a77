// Package keymap translates presentation-layer input events (button labels,
// keyboard key names, typed characters) into calculator keys. Translation
// happens once at the edge; the engine only ever sees calc.Key values.
package keymap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/abacus/pkg/calc"
)

// ErrUnboundKey is returned when a token has no binding.
var ErrUnboundKey = errors.New("unbound key")

// ErrUnknownAction is returned when a binding names no calculator action.
var ErrUnknownAction = errors.New("unknown action")

// Keymap maps input tokens to calculator keys.
type Keymap struct {
	bindings map[string]calc.Key
	// separator is the display grouping separator. Unbound occurrences
	// inside a sequence are skipped so displayed numerals can be replayed.
	separator string
}

// New returns an empty keymap.
func New() *Keymap {
	return &Keymap{bindings: make(map[string]calc.Key)}
}

// Default returns the standard bindings for a profile. The percent key is
// bound only when the profile enables it, clear-history only when the
// profile has a history panel. "," is a decimal point unless it is the
// profile's grouping separator.
func Default(p calc.Profile) *Keymap {
	m := New()

	for d := byte('0'); d <= '9'; d++ {
		m.Bind(string(d), calc.Digit(d))
	}
	m.separator = p.Grouping
	m.Bind(".", calc.Digit('.'))
	if p.Grouping != "," {
		m.Bind(",", calc.Digit('.'))
	}
	m.Bind("Decimal", calc.Digit('.'))

	for _, tok := range []string{"+", "plus", "Add"} {
		m.Bind(tok, calc.Op(calc.OpAdd))
	}
	for _, tok := range []string{"-", "−", "minus", "Subtract"} {
		m.Bind(tok, calc.Op(calc.OpSubtract))
	}
	for _, tok := range []string{"*", "×", "x", "X", "Multiply"} {
		m.Bind(tok, calc.Op(calc.OpMultiply))
	}
	for _, tok := range []string{"/", "÷", "Divide"} {
		m.Bind(tok, calc.Op(calc.OpDivide))
	}
	if p.Percent {
		m.Bind("%", calc.Op(calc.OpPercent))
	}

	for _, tok := range []string{"=", "Enter", "equals"} {
		m.Bind(tok, calc.Equals)
	}
	for _, tok := range []string{"Backspace", "Delete", "del", "⌫"} {
		m.Bind(tok, calc.Delete)
	}
	for _, tok := range []string{"Escape", "c", "C", "clear", "ac", "AC"} {
		m.Bind(tok, calc.Clear)
	}
	if p.HistoryPanel {
		m.Bind("ch", calc.ClearHistory)
		m.Bind("clear-history", calc.ClearHistory)
	}

	return m
}

// Bind maps token to k, replacing any previous binding.
func (m *Keymap) Bind(token string, k calc.Key) {
	m.bindings[token] = k
}

// Unbind removes a binding.
func (m *Keymap) Unbind(token string) {
	delete(m.bindings, token)
}

// Len returns the number of bindings.
func (m *Keymap) Len() int {
	return len(m.bindings)
}

// Tokens returns the bound tokens, sorted.
func (m *Keymap) Tokens() []string {
	out := make([]string, 0, len(m.bindings))
	for tok := range m.bindings {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Translate resolves one token.
func (m *Keymap) Translate(token string) (calc.Key, error) {
	if k, ok := m.bindings[token]; ok {
		return k, nil
	}
	return calc.Key{}, fmt.Errorf("%w: %q", ErrUnboundKey, token)
}

// TranslateAll resolves a list of tokens, stopping at the first unbound one.
func (m *Keymap) TranslateAll(tokens []string) ([]calc.Key, error) {
	keys := make([]calc.Key, 0, len(tokens))
	for _, tok := range tokens {
		k, err := m.Translate(tok)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// ParseSequence splits a line such as "12 + 3 =" or "12+3=" into keys.
// Whitespace separates words; a bound word maps directly, anything else is
// translated rune by rune, skipping unbound grouping separators.
func (m *Keymap) ParseSequence(line string) ([]calc.Key, error) {
	var keys []calc.Key
	for _, word := range strings.Fields(line) {
		if k, ok := m.bindings[word]; ok {
			keys = append(keys, k)
			continue
		}
		for i, w := 0, 0; i < len(word); i += w {
			r, width := utf8.DecodeRuneInString(word[i:])
			w = width
			if _, bound := m.bindings[string(r)]; !bound && string(r) == m.separator {
				continue
			}
			k, err := m.Translate(string(r))
			if err != nil {
				return nil, fmt.Errorf("in %q: %w", word, err)
			}
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// ParseAction resolves an action name used in keymap files: a digit or
// ".", an operator symbol or name, or one of "equals", "clear", "delete",
// "clear-history".
func ParseAction(action string) (calc.Key, error) {
	switch action {
	case "=", "equals":
		return calc.Equals, nil
	case "clear":
		return calc.Clear, nil
	case "delete", "backspace":
		return calc.Delete, nil
	case "clear-history":
		return calc.ClearHistory, nil
	}
	if len(action) == 1 && (action[0] == '.' || (action[0] >= '0' && action[0] <= '9')) {
		return calc.Digit(action[0]), nil
	}
	if op, err := calc.ParseOperator(action); err == nil {
		return calc.Op(op), nil
	}
	return calc.Key{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}
