// Package qasm reads and writes the OpenQASM 2.0 subset the simulator supports.
package qasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/gates"
)

// Builder builds OpenQASM 2.0 programs line by line.
type Builder struct {
	version     string
	includeStmt string
	registers   []string
	body        []string
	condition   string
}

// NewBuilder creates a builder with one quantum and one classical register.
func NewBuilder(numQubits int, numClassical int) *Builder {
	builder := &Builder{
		version:     "OPENQASM 2.0;",
		includeStmt: "include \"qelib1.inc\";",
		registers:   make([]string, 0, 2),
		body:        make([]string, 0),
	}

	builder.registers = append(builder.registers, fmt.Sprintf("qreg q[%d];", numQubits))
	if numClassical > 0 {
		builder.registers = append(builder.registers, fmt.Sprintf("creg c[%d];", numClassical))
	}

	return builder
}

// If makes the next statement conditional on classical bit clbit equal to value.
func (b *Builder) If(clbit int, value int) *Builder {
	b.condition = fmt.Sprintf("if(c[%d]==%d) ", clbit, value)
	return b
}

func (b *Builder) add(stmt string) {
	b.body = append(b.body, b.condition+stmt)
	b.condition = ""
}

// AddGate adds a gate statement such as "h q[0];".
func (b *Builder) AddGate(gate string) {
	b.add(gate)
}

// AddMeasurement adds a measurement of qubit into classical bit.
func (b *Builder) AddMeasurement(qubit int, classical int) {
	b.add(fmt.Sprintf("measure q[%d] -> c[%d];", qubit, classical))
}

func (b *Builder) AddReset(qubit int) {
	b.add(fmt.Sprintf("reset q[%d];", qubit))
}

// Build generates the complete program.
func (b *Builder) Build() string {
	var program strings.Builder

	program.WriteString(b.version + "\n")
	program.WriteString(b.includeStmt + "\n")
	program.WriteString("\n")

	for _, reg := range b.registers {
		program.WriteString(reg + "\n")
	}
	program.WriteString("\n")

	for _, stmt := range b.body {
		program.WriteString(stmt + "\n")
	}

	return program.String()
}

/*
Export renders c as OpenQASM. Every gate must carry a name from the gates
table with a matching qubit count; gates added as bare matrices cannot be
written and fail with qsim.ErrInvalidGate.
*/
func Export(c *qsim.Circuit) (string, error) {
	b := NewBuilder(c.NumQubits, c.NumClbits)

	for i, op := range c.Ops {
		if op.Condition != nil {
			b.If(op.Condition.Clbit, op.Condition.Value)
		}

		switch op.Kind {
		case qsim.OpMeasure:
			b.AddMeasurement(op.Qubits[0], op.Clbit)
		case qsim.OpReset:
			b.AddReset(op.Qubits[0])
		case qsim.OpGate:
			stmt, err := gateStatement(op)
			if err != nil {
				return "", fmt.Errorf("op %d: %w", i, err)
			}
			b.AddGate(stmt)
		}
	}

	return b.Build(), nil
}

func gateStatement(op qsim.Operation) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("%w: unnamed %d-qubit matrix has no QASM form", qsim.ErrInvalidGate, len(op.Qubits))
	}

	d, ok := gates.Get(op.Name)
	if !ok {
		return "", fmt.Errorf("%w: gate %q has no QASM form", qsim.ErrInvalidGate, op.Name)
	}
	if d.Qubits != len(op.Qubits) || d.Params != len(op.Params) {
		return "", fmt.Errorf("%w: gate %s used with %d qubits and %d params", qsim.ErrInvalidGate, d.Name, len(op.Qubits), len(op.Params))
	}

	var sb strings.Builder
	sb.WriteString(d.Name)

	if len(op.Params) > 0 {
		params := make([]string, len(op.Params))
		for i, p := range op.Params {
			params[i] = strconv.FormatFloat(p, 'g', -1, 64)
		}
		sb.WriteString("(" + strings.Join(params, ",") + ")")
	}

	args := make([]string, len(op.Qubits))
	for i, q := range op.Qubits {
		args[i] = fmt.Sprintf("q[%d]", q)
	}
	sb.WriteString(" " + strings.Join(args, ",") + ";")

	return sb.String(), nil
}
