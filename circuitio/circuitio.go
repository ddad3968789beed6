/*
Package circuitio reads circuits from operation-record files and writes
execution results as JSON or YAML.

A circuit file lists its register sizes and one record per operation:

	name: bell
	qubits: 2
	clbits: 2
	ops:
	  - {gate: h, qubits: [0]}
	  - {gate: cx, qubits: [0, 1]}
	  - {measure: 0, clbit: 0}
	  - {measure: 1, clbit: 1}

JSON files use the same field names. Matrix records give each entry as a
[re, im] pair. In terms of the {type, qubit, classical_bit} operation record,
{measure: q, clbit: c} is type measure on qubit q into classical_bit c and
{reset: q} is type reset on qubit q; gate and matrix records are type gate.
*/
package circuitio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/gates"
	"github.com/theapemachine/qsim/qasm"
	"gopkg.in/yaml.v3"
)

// File is the document form of a circuit.
type File struct {
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
	Qubits int      `yaml:"qubits" json:"qubits"`
	Clbits int      `yaml:"clbits,omitempty" json:"clbits,omitempty"`
	Ops    []Record `yaml:"ops" json:"ops"`
}

// Record is one operation. Exactly one of Gate, Matrix, Measure or Reset is set.
type Record struct {
	Gate    string        `yaml:"gate,omitempty" json:"gate,omitempty"`
	Params  []float64     `yaml:"params,omitempty" json:"params,omitempty"`
	Matrix  [][][]float64 `yaml:"matrix,omitempty" json:"matrix,omitempty"`
	Qubits  []int         `yaml:"qubits,omitempty" json:"qubits,omitempty"`
	Measure *int          `yaml:"measure,omitempty" json:"measure,omitempty"`
	Clbit   *int          `yaml:"clbit,omitempty" json:"clbit,omitempty"`
	Reset   *int          `yaml:"reset,omitempty" json:"reset,omitempty"`
	If      *Condition    `yaml:"if,omitempty" json:"if,omitempty"`
}

type Condition struct {
	Clbit int `yaml:"clbit" json:"clbit"`
	Value int `yaml:"value" json:"value"`
}

/*
Decode reads a YAML or JSON circuit document. Unknown fields are rejected.
Structural problems wrap qsim.ErrMalformedCircuit; gate and index problems
wrap the sentinel the circuit reports.
*/
func Decode(r io.Reader, opts ...Option) (*qsim.Circuit, error) {
	var f File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", qsim.ErrMalformedCircuit)
		}
		return nil, fmt.Errorf("%w: %v", qsim.ErrMalformedCircuit, err)
	}

	return f.Circuit(opts...)
}

// DecodeJSON is Decode for JSON documents.
func DecodeJSON(r io.Reader, opts ...Option) (*qsim.Circuit, error) {
	var f File

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", qsim.ErrMalformedCircuit)
		}
		return nil, fmt.Errorf("%w: %v", qsim.ErrMalformedCircuit, err)
	}

	return f.Circuit(opts...)
}

// Load reads a circuit file, choosing the format from its extension.
func Load(path string, opts ...Option) (*qsim.Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c *qsim.Circuit
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		c, err = Decode(bytes.NewReader(data), opts...)
	case ".json":
		c, err = DecodeJSON(bytes.NewReader(data), opts...)
	case ".qasm":
		c, err = qasm.Parse(string(data))
	default:
		return nil, fmt.Errorf("unsupported circuit file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, nil
}

// Option adjusts how documents become circuits.
type Option func(*options)

type options struct {
	tolerance float64
}

// WithTolerance sets the unitarity tolerance applied to matrix records.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		o.tolerance = tol
	}
}

func newOptions(opts []Option) options {
	o := options{tolerance: qsim.DefaultTolerance}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Circuit converts the document into a validated-on-append circuit.
func (f *File) Circuit(opts ...Option) (*qsim.Circuit, error) {
	if f.Qubits < 1 {
		return nil, fmt.Errorf("%w: qubits must be at least 1, got %d", qsim.ErrMalformedCircuit, f.Qubits)
	}
	if f.Clbits < 0 {
		return nil, fmt.Errorf("%w: clbits must not be negative, got %d", qsim.ErrMalformedCircuit, f.Clbits)
	}

	c := qsim.NewCircuit(f.Qubits, f.Clbits)
	c.Name = f.Name
	c.SetTolerance(newOptions(opts).tolerance)

	for i, rec := range f.Ops {
		op, err := rec.operation()
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		if err := c.Append(op); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (r Record) operation() (qsim.Operation, error) {
	set := 0
	for _, ok := range []bool{r.Gate != "" && r.Matrix == nil, r.Matrix != nil, r.Measure != nil, r.Reset != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return qsim.Operation{}, fmt.Errorf("%w: record needs exactly one of gate, matrix, measure or reset", qsim.ErrMalformedCircuit)
	}

	var op qsim.Operation
	if r.If != nil {
		op.Condition = &qsim.Condition{Clbit: r.If.Clbit, Value: r.If.Value}
	}

	switch {
	case r.Matrix != nil:
		m, err := decodeMatrix(r.Matrix)
		if err != nil {
			return op, err
		}
		op.Kind = qsim.OpGate
		op.Name = r.Gate
		op.Matrix = m
		op.Qubits = r.Qubits
	case r.Gate != "":
		m, err := gates.Lookup(r.Gate, r.Params...)
		if err != nil {
			return op, err
		}
		d, _ := gates.Get(r.Gate)
		op.Kind = qsim.OpGate
		op.Name = d.Name
		op.Params = r.Params
		op.Matrix = m
		op.Qubits = r.Qubits
	case r.Measure != nil:
		if r.Clbit == nil {
			return op, fmt.Errorf("%w: measure of qubit %d has no clbit", qsim.ErrMalformedCircuit, *r.Measure)
		}
		op.Kind = qsim.OpMeasure
		op.Qubits = []int{*r.Measure}
		op.Clbit = *r.Clbit
	case r.Reset != nil:
		op.Kind = qsim.OpReset
		op.Qubits = []int{*r.Reset}
	}

	if op.Kind == qsim.OpGate && len(op.Qubits) == 0 {
		return op, fmt.Errorf("%w: gate record has no qubits", qsim.ErrMalformedCircuit)
	}

	return op, nil
}

func decodeMatrix(rows [][][]float64) (qsim.Matrix, error) {
	m := make(qsim.Matrix, len(rows))
	for i, row := range rows {
		m[i] = make([]complex128, len(row))
		for j, entry := range row {
			if len(entry) != 2 {
				return nil, fmt.Errorf("%w: matrix entry [%d][%d] needs [re, im], got %d numbers", qsim.ErrInvalidGate, i, j, len(entry))
			}
			m[i][j] = complex(entry[0], entry[1])
		}
	}
	return m, nil
}

func encodeMatrix(m qsim.Matrix) [][][]float64 {
	rows := make([][][]float64, len(m))
	for i, row := range m {
		rows[i] = make([][]float64, len(row))
		for j, v := range row {
			rows[i][j] = []float64{real(v), imag(v)}
		}
	}
	return rows
}

/*
FromCircuit converts a circuit back into its document form. Gates known to
the gates table are written by name, anything else as a matrix.
*/
func FromCircuit(c *qsim.Circuit) File {
	f := File{
		Name:   c.Name,
		Qubits: c.NumQubits,
		Clbits: c.NumClbits,
		Ops:    make([]Record, 0, len(c.Ops)),
	}

	for _, op := range c.Ops {
		var rec Record
		if op.Condition != nil {
			rec.If = &Condition{Clbit: op.Condition.Clbit, Value: op.Condition.Value}
		}

		switch op.Kind {
		case qsim.OpMeasure:
			q, cb := op.Qubits[0], op.Clbit
			rec.Measure, rec.Clbit = &q, &cb
		case qsim.OpReset:
			q := op.Qubits[0]
			rec.Reset = &q
		case qsim.OpGate:
			rec.Qubits = op.Qubits
			if d, ok := gates.Get(op.Name); ok && d.Qubits == len(op.Qubits) && d.Params == len(op.Params) {
				rec.Gate = d.Name
				rec.Params = op.Params
			} else {
				rec.Gate = op.Name
				rec.Matrix = encodeMatrix(op.Matrix)
			}
		}

		f.Ops = append(f.Ops, rec)
	}

	return f
}

// Encode writes c as a YAML circuit document.
func Encode(w io.Writer, c *qsim.Circuit) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromCircuit(c)); err != nil {
		return err
	}
	return enc.Close()
}
