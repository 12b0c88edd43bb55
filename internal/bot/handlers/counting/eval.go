package counting

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrBadExpression marks input that does not parse as arithmetic.
	ErrBadExpression = errors.New("invalid expression")
	// ErrDivisionByZero marks a division or modulo by zero.
	ErrDivisionByZero = errors.New("division by zero")
)

// IsExpression reports whether the content only contains characters that
// can appear in a counting expression. Anything else is regular chatter
// and must not touch the game state.
func IsExpression(content string) bool {
	if content == "" {
		return false
	}
	for _, r := range content {
		if r >= '0' && r <= '9' {
			continue
		}
		if !strings.ContainsRune("*/+-%(). ", r) {
			return false
		}
	}
	return true
}

// Evaluate parses and computes an arithmetic expression with the usual
// operator precedence. Supported are + - * / % and parentheses over
// decimal numbers.
func Evaluate(content string) (float64, error) {
	p := &parser{input: []rune(content)}
	value, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: trailing input at %d", ErrBadExpression, p.pos)
	}
	return value, nil
}

type parser struct {
	input []rune
	pos   int
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() (rune, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++

		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/' && op != '%') {
			return left, nil
		}
		p.pos++

		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		case '%':
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *parser) unary() (float64, error) {
	op, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrBadExpression)
	}
	if op == '+' || op == '-' {
		p.pos++
		value, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == '-' {
			return -value, nil
		}
		return value, nil
	}
	return p.primary()
}

func (p *parser) primary() (float64, error) {
	r, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrBadExpression)
	}

	if r == '(' {
		p.pos++
		value, err := p.expr()
		if err != nil {
			return 0, err
		}
		if closing, ok := p.peek(); !ok || closing != ')' {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrBadExpression)
		}
		p.pos++
		return value, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		if (r < '0' || r > '9') && r != '.' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("%w: unexpected %q", ErrBadExpression, r)
	}

	value, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrBadExpression, string(p.input[start:p.pos]))
	}
	return value, nil
}
