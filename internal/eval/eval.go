// Package eval implements a safe evaluator for a restricted arithmetic
// expression language: floating-point literals, the four basic operators,
// unary minus, and parentheses with standard precedence. Input is parsed
// by recursive descent over a closed token set; anything outside that set
// is rejected before it can mean anything, so untrusted expressions can
// never reach an interpreter.
package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind classifies why an evaluation failed.
type Kind int

const (
	// KindSyntax covers malformed input: unexpected tokens, unmatched
	// parentheses, trailing input, empty input.
	KindSyntax Kind = iota

	// KindDivisionByZero is returned when a division's right operand
	// evaluates to zero.
	KindDivisionByZero

	// KindDisallowedToken is returned for any character outside the
	// accepted token set. Letters, quotes, semicolons and the like are
	// rejected here rather than parsed.
	KindDisallowedToken
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindDivisionByZero:
		return "division by zero"
	case KindDisallowedToken:
		return "disallowed token"
	default:
		return "unknown error"
	}
}

// Error describes an evaluation failure with the byte position of the
// offending input, so callers can produce an actionable message.
type Error struct {
	Kind Kind
	Pos  int
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.msg)
}

func errorf(kind Kind, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, msg: fmt.Sprintf(format, args...)}
}

// Evaluate parses and evaluates an arithmetic expression, returning its
// value in double precision. It is a pure function: no shared state, no
// side effects, safe to call from any number of goroutines.
func Evaluate(expression string) (float64, error) {
	// The whole input is screened against the whitelist before any
	// parsing, so a character outside the token set is always reported
	// as disallowed, never misread as a syntax problem.
	for i := 0; i < len(expression); i++ {
		if !allowed(expression[i]) {
			return 0, errorf(KindDisallowedToken, i, "character %q is not allowed", expression[i])
		}
	}

	p := &parser{input: expression}
	p.skipSpaces()
	if p.eof() {
		return 0, errorf(KindSyntax, p.pos, "empty expression")
	}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if !p.eof() {
		return 0, errorf(KindSyntax, p.pos, "unexpected %q after expression", p.input[p.pos])
	}
	return v, nil
}

// allowed reports whether c belongs to the closed token set. Whitespace
// is tolerated between tokens; everything else is a hard reject.
func allowed(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '(' || c == ')':
		return true
	case c == '+' || c == '-' || c == '*' || c == '/':
		return true
	case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		return true
	}
	return false
}

type parser struct {
	input string
	pos   int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) skipSpaces() {
	for !p.eof() {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// peek returns the next non-space byte without consuming it, or 0 at EOF.
func (p *parser) peek() byte {
	p.skipSpaces()
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

// expr := term (('+' | '-') term)*
func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

// term := factor (('*' | '/') factor)*
func (p *parser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			opPos := p.pos
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, errorf(KindDivisionByZero, opPos, "division by zero")
			}
			v /= rhs
		default:
			return v, nil
		}
	}
}

// factor := NUMBER | '(' expr ')' | '-' factor
func (p *parser) factor() (float64, error) {
	c := p.peek()
	switch {
	case c == 0:
		return 0, errorf(KindSyntax, p.pos, "unexpected end of expression")
	case c == '-':
		p.pos++
		v, err := p.factor()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case c == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errorf(KindSyntax, p.pos, "unmatched parenthesis")
		}
		p.pos++
		return v, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.number()
	default:
		return 0, errorf(KindSyntax, p.pos, "unexpected %q", c)
	}
}

// number scans a floating-point literal: digits with at most one decimal
// point. Exponents are not part of the grammar.
func (p *parser) number() (float64, error) {
	start := p.pos
	for !p.eof() {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	lit := p.input[start:p.pos]
	if lit == "." || strings.Count(lit, ".") > 1 {
		return 0, errorf(KindSyntax, start, "malformed number %q", lit)
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, errorf(KindSyntax, start, "malformed number %q", lit)
	}
	return v, nil
}

// FormatNumber renders v in its shortest decimal form that round-trips:
// integer-exact values print without a fractional part ("14", not "14.0")
// and ordinary magnitudes stay in plain decimal ("1000000", not "1e+06").
// Only extreme magnitudes switch to exponent form.
func FormatNumber(v float64) string {
	if abs := math.Abs(v); abs != 0 && (abs >= 1e21 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
