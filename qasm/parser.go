package qasm

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/gates"
)

// Pre-compiled regexps for QASM parsing.
var (
	headerRegex  = regexp.MustCompile(`^OPENQASM\s+2(\.\d+)?$`)
	includeRegex = regexp.MustCompile(`^include\s+"[^"]*"$`)
	qregRegex    = regexp.MustCompile(`^qreg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	cregRegex    = regexp.MustCompile(`^creg\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	measureRegex = regexp.MustCompile(`^measure\s+(\w+)\s*\[\s*(\d+)\s*\]\s*->\s*(\w+)\s*\[\s*(\d+)\s*\]$`)
	measureAll   = regexp.MustCompile(`^measure\s+(\w+)\s*->\s*(\w+)$`)
	resetRegex   = regexp.MustCompile(`^reset\s+(\w+)\s*\[\s*(\d+)\s*\]$`)
	barrierRegex = regexp.MustCompile(`^barrier\b`)
	ifRegex      = regexp.MustCompile(`^if\s*\(\s*(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*==\s*(\d+)\s*\)\s*(.+)$`)
	gateRegex    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?:\((.*)\))?\s+([^()]+)$`)
	argRegex     = regexp.MustCompile(`^(\w+)\s*(?:\[\s*(\d+)\s*\])?$`)
)

type statement struct {
	line int
	text string
}

type parser struct {
	qreg    string
	creg    string
	circuit *qsim.Circuit
}

/*
Parse reads an OpenQASM 2.0 program into a circuit. It supports a single
qreg and at most one creg, the gates of the gates table, measure, reset,
barrier (ignored) and single-bit conditionals of the form if(c[j]==v).
Errors wrap the qsim sentinel matching the fault.
*/
func Parse(src string) (*qsim.Circuit, error) {
	stmts, err := split(src)
	if err != nil {
		return nil, err
	}

	p := &parser{}
	for _, st := range stmts {
		if err := p.statement(st.text); err != nil {
			return nil, fmt.Errorf("line %d: %w", st.line, err)
		}
	}

	if p.circuit == nil {
		return nil, fmt.Errorf("%w: no qreg declared", qsim.ErrMalformedCircuit)
	}
	return p.circuit, nil
}

// split strips comments and cuts the source into ';'-terminated statements.
func split(src string) ([]statement, error) {
	var (
		stmts []statement
		buf   strings.Builder
		start int
	)

	scanner := bufio.NewScanner(strings.NewReader(src))
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}

		for {
			i := strings.IndexByte(text, ';')
			chunk := text
			if i >= 0 {
				chunk = text[:i]
			}
			if strings.TrimSpace(chunk) != "" && strings.TrimSpace(buf.String()) == "" {
				start = line
			}
			buf.WriteString(chunk)
			buf.WriteByte(' ')

			if i < 0 {
				break
			}

			if s := strings.TrimSpace(buf.String()); s != "" {
				stmts = append(stmts, statement{line: start, text: strings.Join(strings.Fields(s), " ")})
			}
			buf.Reset()
			text = text[i+1:]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		return nil, fmt.Errorf("%w: line %d: statement %q is missing ';'", qsim.ErrMalformedCircuit, start, s)
	}

	return stmts, nil
}

func (p *parser) statement(s string) error {
	switch {
	case headerRegex.MatchString(s), includeRegex.MatchString(s), barrierRegex.MatchString(s):
		return nil
	case qregRegex.MatchString(s):
		return p.declareQreg(qregRegex.FindStringSubmatch(s))
	case cregRegex.MatchString(s):
		return p.declareCreg(cregRegex.FindStringSubmatch(s))
	}

	if p.circuit == nil {
		return fmt.Errorf("%w: %q before qreg", qsim.ErrMalformedCircuit, s)
	}

	if m := ifRegex.FindStringSubmatch(s); m != nil {
		return p.conditional(m)
	}

	return p.operation(s, nil)
}

func (p *parser) declareQreg(m []string) error {
	if p.circuit != nil {
		return fmt.Errorf("%w: only one qreg is supported", qsim.ErrMalformedCircuit)
	}
	n, _ := strconv.Atoi(m[2])
	p.qreg = m[1]
	p.circuit = qsim.NewCircuit(n, 0)
	return nil
}

func (p *parser) declareCreg(m []string) error {
	if p.creg != "" {
		return fmt.Errorf("%w: only one creg is supported", qsim.ErrMalformedCircuit)
	}
	if p.circuit == nil {
		return fmt.Errorf("%w: creg before qreg", qsim.ErrMalformedCircuit)
	}
	n, _ := strconv.Atoi(m[2])
	p.creg = m[1]
	p.circuit.NumClbits = n
	return nil
}

func (p *parser) conditional(m []string) error {
	if m[1] != p.creg {
		return fmt.Errorf("%w: unknown creg %q", qsim.ErrMalformedCircuit, m[1])
	}
	if m[2] == "" {
		return fmt.Errorf("%w: whole-register conditions are not supported, use if(%s[j]==v)", qsim.ErrMalformedCircuit, p.creg)
	}

	clbit, _ := strconv.Atoi(m[2])
	value, _ := strconv.Atoi(m[3])
	return p.operation(m[4], &qsim.Condition{Clbit: clbit, Value: value})
}

func (p *parser) operation(s string, cond *qsim.Condition) error {
	if m := measureRegex.FindStringSubmatch(s); m != nil {
		q, err := p.index(m[1], m[2], p.qreg)
		if err != nil {
			return err
		}
		cb, err := p.index(m[3], m[4], p.creg)
		if err != nil {
			return err
		}
		return p.circuit.Append(qsim.Operation{Kind: qsim.OpMeasure, Qubits: []int{q}, Clbit: cb, Condition: cond})
	}

	if m := measureAll.FindStringSubmatch(s); m != nil {
		if m[1] != p.qreg || m[2] != p.creg {
			return fmt.Errorf("%w: unknown register in %q", qsim.ErrMalformedCircuit, s)
		}
		if p.circuit.NumClbits < p.circuit.NumQubits {
			return fmt.Errorf("%w: creg %s is smaller than qreg %s", qsim.ErrMalformedCircuit, p.creg, p.qreg)
		}
		for q := 0; q < p.circuit.NumQubits; q++ {
			if err := p.circuit.Append(qsim.Operation{Kind: qsim.OpMeasure, Qubits: []int{q}, Clbit: q, Condition: cond}); err != nil {
				return err
			}
		}
		return nil
	}

	if m := resetRegex.FindStringSubmatch(s); m != nil {
		q, err := p.index(m[1], m[2], p.qreg)
		if err != nil {
			return err
		}
		return p.circuit.Append(qsim.Operation{Kind: qsim.OpReset, Qubits: []int{q}, Condition: cond})
	}

	m := gateRegex.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("%w: cannot parse %q", qsim.ErrMalformedCircuit, s)
	}
	return p.gate(m[1], m[2], m[3], cond)
}

func (p *parser) gate(name, paramList, argList string, cond *qsim.Condition) error {
	var params []float64
	if strings.TrimSpace(paramList) != "" {
		for _, expr := range strings.Split(paramList, ",") {
			v, err := Eval(expr)
			if err != nil {
				return err
			}
			params = append(params, v)
		}
	}

	d, ok := gates.Get(name)
	if !ok {
		return fmt.Errorf("%w: unknown gate %q", qsim.ErrInvalidGate, name)
	}
	mat, err := gates.Lookup(name, params...)
	if err != nil {
		return err
	}

	var (
		qubits    []int
		broadcast bool
	)
	for _, arg := range strings.Split(argList, ",") {
		am := argRegex.FindStringSubmatch(strings.TrimSpace(arg))
		if am == nil {
			return fmt.Errorf("%w: bad argument %q", qsim.ErrMalformedCircuit, arg)
		}
		if am[2] == "" {
			if am[1] != p.qreg {
				return fmt.Errorf("%w: unknown qreg %q", qsim.ErrMalformedCircuit, am[1])
			}
			broadcast = true
			continue
		}
		q, err := p.index(am[1], am[2], p.qreg)
		if err != nil {
			return err
		}
		qubits = append(qubits, q)
	}

	op := qsim.Operation{Kind: qsim.OpGate, Name: d.Name, Params: params, Matrix: mat, Condition: cond}

	if broadcast {
		if d.Qubits != 1 || len(qubits) > 0 {
			return fmt.Errorf("%w: only single-qubit gates may be applied to a whole register", qsim.ErrMalformedCircuit)
		}
		for q := 0; q < p.circuit.NumQubits; q++ {
			op.Qubits = []int{q}
			if err := p.circuit.Append(op); err != nil {
				return err
			}
		}
		return nil
	}

	op.Qubits = qubits
	return p.circuit.Append(op)
}

// index resolves reg[idx], checking reg is the expected register name.
func (p *parser) index(reg, idx, want string) (int, error) {
	if want == "" || reg != want {
		return 0, fmt.Errorf("%w: unknown register %q", qsim.ErrMalformedCircuit, reg)
	}
	return strconv.Atoi(idx)
}
