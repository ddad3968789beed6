package qasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/theapemachine/qsim"
)

/*
Eval evaluates a gate parameter expression: numbers, pi, unary minus,
parentheses and the four arithmetic operators with the usual precedence.
*/
func Eval(expr string) (float64, error) {
	e := &evaluator{src: strings.TrimSpace(expr)}
	if e.src == "" {
		return 0, fmt.Errorf("%w: empty parameter", qsim.ErrMalformedCircuit)
	}

	v, err := e.sum()
	if err != nil {
		return 0, err
	}
	e.skip()
	if e.pos < len(e.src) {
		return 0, e.fail("unexpected %q", e.src[e.pos:])
	}
	return v, nil
}

type evaluator struct {
	src string
	pos int
}

func (e *evaluator) fail(format string, args ...any) error {
	return fmt.Errorf("%w: parameter %q: %s", qsim.ErrMalformedCircuit, e.src, fmt.Sprintf(format, args...))
}

func (e *evaluator) skip() {
	for e.pos < len(e.src) && e.src[e.pos] == ' ' {
		e.pos++
	}
}

func (e *evaluator) peek() byte {
	e.skip()
	if e.pos >= len(e.src) {
		return 0
	}
	return e.src[e.pos]
}

func (e *evaluator) sum() (float64, error) {
	v, err := e.product()
	if err != nil {
		return 0, err
	}

	for {
		switch e.peek() {
		case '+':
			e.pos++
			r, err := e.product()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			e.pos++
			r, err := e.product()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (e *evaluator) product() (float64, error) {
	v, err := e.unary()
	if err != nil {
		return 0, err
	}

	for {
		switch e.peek() {
		case '*':
			e.pos++
			r, err := e.unary()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			e.pos++
			r, err := e.unary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, e.fail("division by zero")
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (e *evaluator) unary() (float64, error) {
	switch e.peek() {
	case '-':
		e.pos++
		v, err := e.unary()
		return -v, err
	case '+':
		e.pos++
		return e.unary()
	}
	return e.atom()
}

func (e *evaluator) atom() (float64, error) {
	c := e.peek()

	switch {
	case c == '(':
		e.pos++
		v, err := e.sum()
		if err != nil {
			return 0, err
		}
		if e.peek() != ')' {
			return 0, e.fail("missing ')'")
		}
		e.pos++
		return v, nil
	case c == '.' || unicode.IsDigit(rune(c)):
		start := e.pos
		for e.pos < len(e.src) && isNumberByte(e.src, e.pos) {
			e.pos++
		}
		v, err := strconv.ParseFloat(e.src[start:e.pos], 64)
		if err != nil {
			return 0, e.fail("bad number %q", e.src[start:e.pos])
		}
		return v, nil
	case unicode.IsLetter(rune(c)):
		start := e.pos
		for e.pos < len(e.src) && (unicode.IsLetter(rune(e.src[e.pos])) || unicode.IsDigit(rune(e.src[e.pos]))) {
			e.pos++
		}
		name := e.src[start:e.pos]
		if name != "pi" {
			return 0, e.fail("unknown identifier %q", name)
		}
		return math.Pi, nil
	case c == 0:
		return 0, e.fail("unexpected end")
	}

	return 0, e.fail("unexpected %q", string(c))
}

// isNumberByte accepts digits, '.', and an exponent with optional sign.
func isNumberByte(s string, i int) bool {
	c := s[i]
	switch {
	case c >= '0' && c <= '9', c == '.':
		return true
	case c == 'e' || c == 'E':
		return true
	case (c == '+' || c == '-') && i > 0 && (s[i-1] == 'e' || s[i-1] == 'E'):
		return true
	}
	return false
}
