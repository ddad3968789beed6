// Package circuits builds the standard example circuits used by the CLI demos and tests.
package circuits

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/gates"
)

/*
builder keeps the first error from a sequence of appends so the constructors
below read as straight-line circuits.
*/
type builder struct {
	c   *qsim.Circuit
	err error
}

func newBuilder(name string, qubits, clbits int) *builder {
	c := qsim.NewCircuit(qubits, clbits)
	c.Name = name
	return &builder{c: c}
}

func (b *builder) gate(name string, params []float64, qubits ...int) {
	if b.err != nil {
		return
	}
	b.err = gates.Append(b.c, name, params, qubits...)
}

func (b *builder) matrix(name string, m qsim.Matrix, qubits ...int) {
	if b.err != nil {
		return
	}
	b.err = b.c.NamedGate(name, nil, m, qubits...)
}

// gateIf appends a named gate that only fires when clbit reads value.
func (b *builder) gateIf(clbit, value int, name string, params []float64, qubits ...int) {
	if b.err != nil {
		return
	}
	m, err := gates.Lookup(name, params...)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.c.Append(qsim.Operation{
		Kind:      qsim.OpGate,
		Name:      name,
		Params:    params,
		Matrix:    m,
		Qubits:    qubits,
		Condition: &qsim.Condition{Clbit: clbit, Value: value},
	})
}

func (b *builder) measure(qubit, clbit int) {
	if b.err != nil {
		return
	}
	b.err = b.c.Measure(qubit, clbit)
}

func (b *builder) done() (*qsim.Circuit, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.c, nil
}

/*
Measured returns a copy of c with one classical bit per qubit and a terminal
measurement of qubit i into clbit i.
*/
func Measured(c *qsim.Circuit) (*qsim.Circuit, error) {
	out := qsim.NewCircuit(c.NumQubits, c.NumQubits)
	out.Name = c.Name
	out.SetTolerance(c.Tolerance())
	if err := out.Compose(c); err != nil {
		return nil, err
	}
	if err := out.MeasureAll(); err != nil {
		return nil, err
	}
	return out, nil
}

// Bell prepares (|00⟩ + |11⟩)/√2 on two qubits.
func Bell() (*qsim.Circuit, error) {
	b := newBuilder("bell", 2, 0)
	b.gate("h", nil, 0)
	b.gate("cx", nil, 0, 1)
	return b.done()
}

// GHZ prepares (|0…0⟩ + |1…1⟩)/√2 on n qubits.
func GHZ(n int) (*qsim.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: ghz needs at least one qubit", qsim.ErrMalformedCircuit)
	}

	b := newBuilder(fmt.Sprintf("ghz_%d", n), n, 0)
	b.gate("h", nil, 0)
	for q := 1; q < n; q++ {
		b.gate("cx", nil, q-1, q)
	}
	return b.done()
}

/*
QFT maps basis state |x⟩ to Σ_k e^{2πi·xk/2^n}|k⟩/√2^n, with x and k read
with qubit 0 as the least significant bit. The final swaps are included.
*/
func QFT(n int) (*qsim.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: qft needs at least one qubit", qsim.ErrMalformedCircuit)
	}

	b := newBuilder(fmt.Sprintf("qft_%d", n), n, 0)
	for j := n - 1; j >= 0; j-- {
		b.gate("h", nil, j)
		for k := j - 1; k >= 0; k-- {
			b.gate("cp", []float64{math.Pi * math.Pow(2, float64(k-j))}, j, k)
		}
	}
	for i := 0; i < n/2; i++ {
		b.gate("swap", nil, i, n-1-i)
	}
	return b.done()
}

// InverseQFT is the adjoint of QFT(n).
func InverseQFT(n int) (*qsim.Circuit, error) {
	c, err := QFT(n)
	if err != nil {
		return nil, err
	}
	inv, err := c.Inverse()
	if err != nil {
		return nil, err
	}
	inv.Name = fmt.Sprintf("iqft_%d", n)
	return inv, nil
}

/*
Teleport moves the state U3(theta, phi, 0)|0⟩ from qubit 0 to qubit 2 using a
Bell pair, two mid-circuit measurements and classically controlled
corrections. Qubit 2 is then rotated back and measured into clbit 2, which
reads 0 on every shot when the teleport succeeded.
*/
func Teleport(theta, phi float64) (*qsim.Circuit, error) {
	b := newBuilder("teleport", 3, 3)

	b.gate("u3", []float64{theta, phi, 0}, 0)

	b.gate("h", nil, 1)
	b.gate("cx", nil, 1, 2)

	b.gate("cx", nil, 0, 1)
	b.gate("h", nil, 0)
	b.measure(0, 0)
	b.measure(1, 1)

	b.gateIf(1, 1, "x", nil, 2)
	b.gateIf(0, 1, "z", nil, 2)

	// U3(θ, φ, λ)† = U3(-θ, -λ, -φ)
	b.gate("u3", []float64{-theta, 0, -phi}, 2)
	b.measure(2, 2)

	return b.done()
}

// GroverIterations is ⌊π/4·√(2^n)⌋, the iteration count that maximizes the
// success probability for a single marked item.
func GroverIterations(n int) int {
	return int(math.Floor(math.Pi / 4 * math.Sqrt(float64(int(1)<<n))))
}

/*
Grover searches n qubits for the basis state marked. The oracle is a diagonal
phase flip on marked and the diffuser reflects about the uniform
superposition. Qubits are not measured.
*/
func Grover(n, marked int) (*qsim.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: grover needs at least one qubit", qsim.ErrMalformedCircuit)
	}
	dim := 1 << n
	if marked < 0 || marked >= dim {
		return nil, fmt.Errorf("%w: marked state %d outside [0, %d)", qsim.ErrMalformedCircuit, marked, dim)
	}

	// Listed most significant first so the matrix index equals the basis index.
	all := make([]int, n)
	for i := range all {
		all[i] = n - 1 - i
	}

	phases := make([]complex128, dim)
	for i := range phases {
		phases[i] = 1
	}
	phases[marked] = -1
	oracle := gates.Diagonal(phases...)
	reflect := gates.Controlled(gates.Z(), n-1)

	b := newBuilder(fmt.Sprintf("grover_%d", n), n, 0)
	for q := 0; q < n; q++ {
		b.gate("h", nil, q)
	}

	for it := GroverIterations(n); it > 0; it-- {
		b.matrix("oracle", oracle, all...)

		for q := 0; q < n; q++ {
			b.gate("h", nil, q)
			b.gate("x", nil, q)
		}
		b.matrix(mczName(n), reflect, all...)
		for q := 0; q < n; q++ {
			b.gate("x", nil, q)
			b.gate("h", nil, q)
		}
	}

	return b.done()
}

func mczName(n int) string {
	switch n {
	case 1:
		return "z"
	case 2:
		return "cz"
	case 3:
		return "ccz"
	default:
		return "mcz"
	}
}

/*
BB84 encodes aliceBits on one qubit each, in the computational basis (0) or
the Hadamard basis (1), and measures qubit i into clbit i in bobBases[i]. All
three slices must have the same length and hold only 0 or 1.
*/
func BB84(aliceBits, aliceBases, bobBases []int) (*qsim.Circuit, error) {
	n := len(aliceBits)
	if n == 0 || len(aliceBases) != n || len(bobBases) != n {
		return nil, fmt.Errorf("%w: bb84 needs equal, non-empty bit and basis lists", qsim.ErrMalformedCircuit)
	}

	for i := 0; i < n; i++ {
		for _, v := range []int{aliceBits[i], aliceBases[i], bobBases[i]} {
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("%w: bb84 position %d holds %d, want 0 or 1", qsim.ErrMalformedCircuit, i, v)
			}
		}
	}

	b := newBuilder("bb84", n, n)
	for i := 0; i < n; i++ {
		if aliceBits[i] == 1 {
			b.gate("x", nil, i)
		}
		if aliceBases[i] == 1 {
			b.gate("h", nil, i)
		}
		if bobBases[i] == 1 {
			b.gate("h", nil, i)
		}
		b.measure(i, i)
	}
	return b.done()
}

/*
Sift keeps the bits of Bob's bitstring at the positions where both parties
chose the same basis. The bitstring uses the usual layout, clbit 0 rightmost.
*/
func Sift(bits string, aliceBases, bobBases []int) ([]int, error) {
	n := len(bits)
	if len(aliceBases) != n || len(bobBases) != n {
		return nil, fmt.Errorf("%w: bitstring has %d bits, bases %d and %d", qsim.ErrMalformedCircuit, n, len(aliceBases), len(bobBases))
	}

	key := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if aliceBases[i] != bobBases[i] {
			continue
		}
		key = append(key, int(bits[n-1-i]-'0'))
	}
	return key, nil
}

/*
Random builds a layered circuit of depth layers on n qubits: every layer
applies a random single-qubit rotation to each qubit, then a ladder of CX
gates starting at an offset that alternates between layers.
*/
func Random(n, depth int, rng *rand.Rand) (*qsim.Circuit, error) {
	if n < 1 || depth < 0 {
		return nil, fmt.Errorf("%w: random circuit needs n >= 1 and depth >= 0", qsim.ErrMalformedCircuit)
	}

	b := newBuilder(fmt.Sprintf("random_%dx%d", n, depth), n, 0)
	for layer := 0; layer < depth; layer++ {
		for q := 0; q < n; q++ {
			switch rng.IntN(3) {
			case 0:
				b.gate("rx", []float64{rng.Float64() * 2 * math.Pi}, q)
			case 1:
				b.gate("ry", []float64{rng.Float64() * 2 * math.Pi}, q)
			default:
				b.gate("rz", []float64{rng.Float64() * 2 * math.Pi}, q)
			}
		}
		for q := layer % 2; q+1 < n; q += 2 {
			b.gate("cx", nil, q, q+1)
		}
	}
	return b.done()
}
