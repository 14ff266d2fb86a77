// Package expr evaluates whole arithmetic expressions such as "2 + 3 × 4"
// with the usual precedence, unary minus and parentheses. Arithmetic is
// delegated to package calc so faults match the keypad engine.
package expr

import (
	"errors"
	"fmt"

	"github.com/ternarybob/abacus/pkg/calc"
)

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports malformed input at a rune offset.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Msg)
}

// Unwrap lets errors.Is match ErrSyntax.
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Node is a parsed expression.
type Node interface {
	Eval() (float64, error)
	String() string
}

type number struct {
	text  string
	value float64
}

func (n number) Eval() (float64, error) { return n.value, nil }
func (n number) String() string         { return n.text }

type negate struct {
	operand Node
}

func (n negate) Eval() (float64, error) {
	v, err := n.operand.Eval()
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n negate) String() string { return "-" + n.operand.String() }

type binary struct {
	op          calc.Operator
	left, right Node
}

func (b binary) Eval() (float64, error) {
	x, err := b.left.Eval()
	if err != nil {
		return 0, err
	}
	y, err := b.right.Eval()
	if err != nil {
		return 0, err
	}
	return calc.Compute(x, y, b.op)
}

func (b binary) String() string {
	return "(" + b.left.String() + " " + b.op.Symbol() + " " + b.right.String() + ")"
}

// Parse parses src into a Node.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expression()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return n, nil
}

// Evaluate parses and evaluates src.
func Evaluate(src string) (float64, error) {
	n, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return n.Eval()
}

// Eval evaluates src and formats the result rounded to places decimals,
// the way the keypad engine formats results.
func Eval(src string, places int) (string, error) {
	v, err := Evaluate(src)
	if err != nil {
		return "", err
	}
	return calc.FormatNumber(calc.Round(v, places)), nil
}
