package qsim

import (
	"fmt"
	"sync"
)

// OpKind tags the operations a circuit can hold.
type OpKind int

const (
	OpGate OpKind = iota
	OpMeasure
	OpReset
)

func (k OpKind) String() string {
	switch k {
	case OpGate:
		return "gate"
	case OpMeasure:
		return "measure"
	case OpReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Condition gates an operation on the value of one classical bit.
type Condition struct {
	Clbit int
	Value int
}

/*
Operation is one step of a circuit. Gate operations carry a unitary and the
ordered qubits it acts on; measurements read Qubits[0] into Clbit; resets
return Qubits[0] to |0⟩. Name is informational and is used by the QASM
builder when present.
*/
type Operation struct {
	Kind      OpKind
	Name      string
	Params    []float64
	Matrix    Matrix
	Qubits    []int
	Clbit     int
	Condition *Condition
}

/*
Circuit is an ordered list of operations over NumQubits qubits and NumClbits
classical bits. Operations execute in the order they were appended.
*/
type Circuit struct {
	Name      string
	NumQubits int
	NumClbits int
	Ops       []Operation

	tol      float64
	verified *verifiedMatrices
}

/*
verifiedMatrices remembers which gate matrices already passed the unitarity
check and at what tolerance, keyed by the address of their first entry. Large
gates are usually appended many times by reference, so each is checked once.
*/
type verifiedMatrices struct {
	mu  sync.Mutex
	tol map[*complex128]float64
}

func newVerifiedMatrices() *verifiedMatrices {
	return &verifiedMatrices{tol: make(map[*complex128]float64)}
}

func (v *verifiedMatrices) passed(m Matrix, tol float64) bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.tol[&m[0][0]]
	return ok && t <= tol
}

func (v *verifiedMatrices) record(m Matrix, tol float64) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if t, ok := v.tol[&m[0][0]]; !ok || tol < t {
		v.tol[&m[0][0]] = tol
	}
}

func (v *verifiedMatrices) merge(o *verifiedMatrices) {
	if v == nil || o == nil || v == o {
		return
	}
	o.mu.Lock()
	entries := make(map[*complex128]float64, len(o.tol))
	for k, t := range o.tol {
		entries[k] = t
	}
	o.mu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	for k, t := range entries {
		if cur, ok := v.tol[k]; !ok || t < cur {
			v.tol[k] = t
		}
	}
}

// NewCircuit returns an empty circuit with the given register sizes.
func NewCircuit(numQubits, numClbits int) *Circuit {
	return &Circuit{
		NumQubits: numQubits,
		NumClbits: numClbits,
		Ops:       make([]Operation, 0),
		tol:       DefaultTolerance,
		verified:  newVerifiedMatrices(),
	}
}

/*
SetTolerance changes the unitarity tolerance used when appending gates. Set it
before appending matrices with rounded entries; execution checks again with
the simulator's Config.Tolerance.
*/
func (c *Circuit) SetTolerance(tol float64) {
	c.tol = tol
}

// Tolerance returns the unitarity tolerance applied on append.
func (c *Circuit) Tolerance() float64 {
	if c.tol <= 0 {
		return DefaultTolerance
	}
	return c.tol
}

// checkMatrix validates the shape of m and, unless already done at tol or tighter, its unitarity.
func (c *Circuit) checkMatrix(m Matrix, k int, tol float64) error {
	if err := m.validateShape(k); err != nil {
		return err
	}
	if c.verified.passed(m, tol) {
		return nil
	}
	if !m.IsUnitary(tol) {
		return fmt.Errorf("%w: matrix is not unitary within %g", ErrInvalidGate, tol)
	}
	c.verified.record(m, tol)
	return nil
}

// Gate appends a unitary acting on the given qubits.
func (c *Circuit) Gate(m Matrix, qubits ...int) error {
	return c.Append(Operation{Kind: OpGate, Matrix: m, Qubits: qubits})
}

// NamedGate appends a unitary and records its name and parameters.
func (c *Circuit) NamedGate(name string, params []float64, m Matrix, qubits ...int) error {
	return c.Append(Operation{Kind: OpGate, Name: name, Params: params, Matrix: m, Qubits: qubits})
}

// Measure appends a computational-basis measurement of qubit into clbit.
func (c *Circuit) Measure(qubit, clbit int) error {
	return c.Append(Operation{Kind: OpMeasure, Qubits: []int{qubit}, Clbit: clbit})
}

// MeasureAll measures qubit i into clbit i for every qubit.
func (c *Circuit) MeasureAll() error {
	for q := 0; q < c.NumQubits; q++ {
		if err := c.Measure(q, q); err != nil {
			return err
		}
	}
	return nil
}

// Reset appends a reset of qubit to |0⟩.
func (c *Circuit) Reset(qubit int) error {
	return c.Append(Operation{Kind: OpReset, Qubits: []int{qubit}})
}

// Append validates op against the circuit and appends it.
func (c *Circuit) Append(op Operation) error {
	if err := c.checkOp(op, len(c.Ops), c.Tolerance()); err != nil {
		return err
	}
	c.Ops = append(c.Ops, op)
	return nil
}

func (c *Circuit) checkOp(op Operation, idx int, tol float64) error {
	seen := make(map[int]struct{}, len(op.Qubits))
	for _, q := range op.Qubits {
		if q < 0 || q >= c.NumQubits {
			return fmt.Errorf("%w: op %d (%s): qubit %d out of range [0, %d)", ErrQubitIndex, idx, op.Kind, q, c.NumQubits)
		}
		if _, dup := seen[q]; dup {
			return fmt.Errorf("%w: op %d (%s): qubit %d repeated", ErrQubitIndex, idx, op.Kind, q)
		}
		seen[q] = struct{}{}
	}

	if op.Condition != nil {
		if op.Condition.Clbit < 0 || op.Condition.Clbit >= c.NumClbits {
			return fmt.Errorf("%w: op %d: condition on clbit %d out of range [0, %d)", ErrMalformedCircuit, idx, op.Condition.Clbit, c.NumClbits)
		}
		if op.Condition.Value != 0 && op.Condition.Value != 1 {
			return fmt.Errorf("%w: op %d: condition value %d is not a bit", ErrMalformedCircuit, idx, op.Condition.Value)
		}
	}

	switch op.Kind {
	case OpGate:
		if len(op.Qubits) == 0 {
			return fmt.Errorf("%w: op %d: gate has no target qubits", ErrQubitIndex, idx)
		}
		if err := c.checkMatrix(op.Matrix, len(op.Qubits), tol); err != nil {
			return fmt.Errorf("op %d (%s): %w", idx, op.Name, err)
		}
	case OpMeasure:
		if len(op.Qubits) != 1 {
			return fmt.Errorf("%w: op %d: measurement takes one qubit, got %d", ErrQubitIndex, idx, len(op.Qubits))
		}
		if op.Clbit < 0 || op.Clbit >= c.NumClbits {
			return fmt.Errorf("%w: op %d: clbit %d out of range [0, %d)", ErrMalformedCircuit, idx, op.Clbit, c.NumClbits)
		}
	case OpReset:
		if len(op.Qubits) != 1 {
			return fmt.Errorf("%w: op %d: reset takes one qubit, got %d", ErrQubitIndex, idx, len(op.Qubits))
		}
	default:
		return fmt.Errorf("%w: op %d: unknown kind %d", ErrMalformedCircuit, idx, op.Kind)
	}

	return nil
}

/*
Validate re-checks every operation and confirms that each declared classical
bit is written by at least one measurement, so that a sampled bitstring never
contains an unassigned bit. Matrices already verified on append at the same
tolerance or tighter are not checked for unitarity again.
*/
func (c *Circuit) Validate() error {
	return c.ValidateTolerance(c.Tolerance())
}

// ValidateTolerance is Validate with an explicit unitarity tolerance.
func (c *Circuit) ValidateTolerance(tol float64) error {
	if c.NumQubits < 1 {
		return fmt.Errorf("%w: circuit needs at least one qubit, got %d", ErrMalformedCircuit, c.NumQubits)
	}
	if c.NumClbits < 0 {
		return fmt.Errorf("%w: negative clbit count %d", ErrMalformedCircuit, c.NumClbits)
	}

	written := make([]bool, c.NumClbits)
	for i, op := range c.Ops {
		if err := c.checkOp(op, i, tol); err != nil {
			return err
		}
		if op.Kind == OpMeasure {
			written[op.Clbit] = true
		}
	}

	for cb, ok := range written {
		if !ok {
			return fmt.Errorf("%w: clbit %d is never measured", ErrMalformedCircuit, cb)
		}
	}

	return nil
}

// HasMeasurements reports whether any op measures or resets a qubit.
func (c *Circuit) HasMeasurements() bool {
	for _, op := range c.Ops {
		if op.Kind != OpGate {
			return true
		}
	}
	return false
}

/*
terminalMeasurements reports whether every measurement comes after every gate
and reset, with no conditional operations. Such a circuit can be evolved once
and sampled from its final distribution.
*/
func (c *Circuit) terminalMeasurements() bool {
	measuring := false
	for _, op := range c.Ops {
		if op.Condition != nil {
			return false
		}
		switch op.Kind {
		case OpMeasure:
			measuring = true
		case OpGate, OpReset:
			if measuring || op.Kind == OpReset {
				return false
			}
		}
	}
	return true
}

// Inverse returns the adjoint circuit. It fails if the circuit measures or resets.
func (c *Circuit) Inverse() (*Circuit, error) {
	if c.HasMeasurements() {
		return nil, fmt.Errorf("%w: cannot invert a circuit with measurements", ErrMalformedCircuit)
	}

	inv := NewCircuit(c.NumQubits, c.NumClbits)
	inv.tol = c.tol
	if c.Name != "" {
		inv.Name = c.Name + "_dg"
	}

	for i := len(c.Ops) - 1; i >= 0; i-- {
		op := c.Ops[i]
		if op.Condition != nil {
			return nil, fmt.Errorf("%w: cannot invert conditional op %d", ErrMalformedCircuit, i)
		}
		name := op.Name
		if name != "" {
			name += "_dg"
		}
		inv.Ops = append(inv.Ops, Operation{
			Kind:   OpGate,
			Name:   name,
			Matrix: op.Matrix.Dagger(),
			Qubits: append([]int(nil), op.Qubits...),
		})
	}

	return inv, nil
}

// Compose appends the operations of o, which must fit inside c's registers.
func (c *Circuit) Compose(o *Circuit) error {
	c.verified.merge(o.verified)
	for _, op := range o.Ops {
		if err := c.Append(op); err != nil {
			return err
		}
	}
	return nil
}
