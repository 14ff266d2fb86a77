package expr

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"github.com/ternarybob/abacus/pkg/calc"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokOperator
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
	op   calc.Operator
}

func lex(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '.' || isDigit(r):
			start := i
			points := 0
			for i < len(runes) && (runes[i] == '.' || isDigit(runes[i])) {
				if runes[i] == '.' {
					points++
				}
				i++
			}
			text := string(runes[start:i])
			if points > 1 || text == "." {
				return nil, &SyntaxError{Pos: start, Msg: fmt.Sprintf("malformed number %q", text)}
			}
			toks = append(toks, token{kind: tokNumber, text: text, pos: start})
		default:
			op, err := calc.ParseOperator(string(r))
			if err != nil || op == calc.OpPercent {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
			}
			toks = append(toks, token{kind: tokOperator, text: string(r), pos: i, op: op})
			i++
		}
	}

	return append(toks, token{kind: tokEOF, pos: len(runes)}), nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// maxDepth bounds nesting of parentheses and unary signs.
const maxDepth = 256

// parser is a recursive-descent parser over:
//
//	expression = term { ("+" | "-") term }
//	term       = unary { ("×" | "÷") unary }
//	unary      = ("-" | "+") unary | primary
//	primary    = number | "(" expression ")"
type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expression() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOperator || (t.op != calc.OpAdd && t.op != calc.OpSubtract) {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = binary{op: t.op, left: left, right: right}
	}
}

func (p *parser) term() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOperator || (t.op != calc.OpMultiply && t.op != calc.OpDivide) {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binary{op: t.op, left: left, right: right}
	}
}

func (p *parser) unary() (Node, error) {
	t := p.peek()
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, &SyntaxError{Pos: t.pos, Msg: "expression nested too deeply"}
	}
	if t.kind == tokOperator {
		switch t.op {
		case calc.OpSubtract:
			p.next()
			n, err := p.unary()
			if err != nil {
				return nil, err
			}
			return negate{operand: n}, nil
		case calc.OpAdd:
			p.next()
			return p.unary()
		}
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if errors.Is(err, strconv.ErrRange) {
			return nil, calc.ErrNonFinite
		}
		if err != nil {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("malformed number %q", t.text)}
		}
		return number{text: t.text, value: v}, nil
	case tokLParen:
		n, err := p.expression()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "missing )"}
		}
		return n, nil
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of expression"}
	default:
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
}
