/*
Package gates maps gate names to their canonical unitaries. The simulator core
only understands matrices; this table is where names such as "h" or "ccx" are
turned into one, so builders and parsers share a single definition of each
gate.
*/
package gates

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"
	"strings"

	"github.com/theapemachine/qsim"
)

// Definition describes one named gate.
type Definition struct {
	Name   string
	Qubits int
	Params int
	Doc    string
	Build  func(params []float64) qsim.Matrix
}

var (
	table   = map[string]Definition{}
	aliases = map[string]string{}
)

func register(d Definition, alias ...string) {
	table[d.Name] = d
	for _, a := range alias {
		aliases[a] = d.Name
	}
}

func fixed(m func() qsim.Matrix) func([]float64) qsim.Matrix {
	return func([]float64) qsim.Matrix { return m() }
}

func init() {
	register(Definition{Name: "id", Qubits: 1, Doc: "identity", Build: fixed(I)}, "i")
	register(Definition{Name: "x", Qubits: 1, Doc: "Pauli X (NOT)", Build: fixed(X)}, "not")
	register(Definition{Name: "y", Qubits: 1, Doc: "Pauli Y", Build: fixed(Y)})
	register(Definition{Name: "z", Qubits: 1, Doc: "Pauli Z", Build: fixed(Z)})
	register(Definition{Name: "h", Qubits: 1, Doc: "Hadamard", Build: fixed(H)})
	register(Definition{Name: "s", Qubits: 1, Doc: "phase π/2", Build: fixed(S)})
	register(Definition{Name: "sdg", Qubits: 1, Doc: "phase -π/2", Build: fixed(Sdg)})
	register(Definition{Name: "t", Qubits: 1, Doc: "phase π/4", Build: fixed(T)})
	register(Definition{Name: "tdg", Qubits: 1, Doc: "phase -π/4", Build: fixed(Tdg)})
	register(Definition{Name: "sx", Qubits: 1, Doc: "square root of X", Build: fixed(SX)})
	register(Definition{Name: "sxdg", Qubits: 1, Doc: "inverse square root of X", Build: fixed(SXdg)})

	register(Definition{Name: "rx", Qubits: 1, Params: 1, Doc: "rotation about X by θ", Build: func(p []float64) qsim.Matrix { return RX(p[0]) }})
	register(Definition{Name: "ry", Qubits: 1, Params: 1, Doc: "rotation about Y by θ", Build: func(p []float64) qsim.Matrix { return RY(p[0]) }})
	register(Definition{Name: "rz", Qubits: 1, Params: 1, Doc: "rotation about Z by θ", Build: func(p []float64) qsim.Matrix { return RZ(p[0]) }})
	register(Definition{Name: "p", Qubits: 1, Params: 1, Doc: "phase λ on |1⟩", Build: func(p []float64) qsim.Matrix { return Phase(p[0]) }}, "u1")
	register(Definition{Name: "u2", Qubits: 1, Params: 2, Doc: "U3(π/2, φ, λ)", Build: func(p []float64) qsim.Matrix { return U3(math.Pi/2, p[0], p[1]) }})
	register(Definition{Name: "u3", Qubits: 1, Params: 3, Doc: "generic single-qubit U3(θ, φ, λ)", Build: func(p []float64) qsim.Matrix { return U3(p[0], p[1], p[2]) }}, "u")

	register(Definition{Name: "cx", Qubits: 2, Doc: "controlled X, [control, target]", Build: fixed(CX)}, "cnot")
	register(Definition{Name: "cy", Qubits: 2, Doc: "controlled Y", Build: func([]float64) qsim.Matrix { return Controlled(Y(), 1) }})
	register(Definition{Name: "cz", Qubits: 2, Doc: "controlled Z", Build: func([]float64) qsim.Matrix { return Controlled(Z(), 1) }})
	register(Definition{Name: "ch", Qubits: 2, Doc: "controlled Hadamard", Build: func([]float64) qsim.Matrix { return Controlled(H(), 1) }})
	register(Definition{Name: "swap", Qubits: 2, Doc: "exchange two qubits", Build: fixed(Swap)})
	register(Definition{Name: "iswap", Qubits: 2, Doc: "swap with i phase", Build: fixed(ISwap)})
	register(Definition{Name: "crx", Qubits: 2, Params: 1, Doc: "controlled RX", Build: func(p []float64) qsim.Matrix { return Controlled(RX(p[0]), 1) }})
	register(Definition{Name: "cry", Qubits: 2, Params: 1, Doc: "controlled RY", Build: func(p []float64) qsim.Matrix { return Controlled(RY(p[0]), 1) }})
	register(Definition{Name: "crz", Qubits: 2, Params: 1, Doc: "controlled RZ", Build: func(p []float64) qsim.Matrix { return Controlled(RZ(p[0]), 1) }})
	register(Definition{Name: "cp", Qubits: 2, Params: 1, Doc: "controlled phase", Build: func(p []float64) qsim.Matrix { return Controlled(Phase(p[0]), 1) }}, "cu1")
	register(Definition{Name: "rzz", Qubits: 2, Params: 1, Doc: "ZZ interaction exp(-iθ/2 Z⊗Z)", Build: func(p []float64) qsim.Matrix { return RZZ(p[0]) }})

	register(Definition{Name: "ccx", Qubits: 3, Doc: "Toffoli, [control, control, target]", Build: func([]float64) qsim.Matrix { return Controlled(X(), 2) }}, "toffoli")
	register(Definition{Name: "ccz", Qubits: 3, Doc: "doubly controlled Z", Build: func([]float64) qsim.Matrix { return Controlled(Z(), 2) }})
	register(Definition{Name: "cswap", Qubits: 3, Doc: "Fredkin, [control, a, b]", Build: func([]float64) qsim.Matrix { return Controlled(Swap(), 1) }}, "fredkin")
}

// Get returns the definition registered under name or one of its aliases.
func Get(name string) (Definition, bool) {
	name = strings.ToLower(name)
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	d, ok := table[name]
	return d, ok
}

// Names returns the canonical gate names in sorted order.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup builds the matrix of a named gate. Errors wrap qsim.ErrInvalidGate.
func Lookup(name string, params ...float64) (qsim.Matrix, error) {
	d, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown gate %q", qsim.ErrInvalidGate, name)
	}
	if len(params) != d.Params {
		return nil, fmt.Errorf("%w: gate %s takes %d parameters, got %d", qsim.ErrInvalidGate, d.Name, d.Params, len(params))
	}
	return d.Build(params), nil
}

// Append looks up a named gate and appends it to c, keeping the name for export.
func Append(c *qsim.Circuit, name string, params []float64, qubits ...int) error {
	m, err := Lookup(name, params...)
	if err != nil {
		return err
	}
	d, _ := Get(name)
	return c.NamedGate(d.Name, params, m, qubits...)
}

func I() qsim.Matrix { return qsim.Identity(2) }

func X() qsim.Matrix {
	return qsim.Matrix{
		{0, 1},
		{1, 0},
	}
}

func Y() qsim.Matrix {
	return qsim.Matrix{
		{0, -1i},
		{1i, 0},
	}
}

func Z() qsim.Matrix {
	return qsim.Matrix{
		{1, 0},
		{0, -1},
	}
}

func H() qsim.Matrix {
	h := complex(1/math.Sqrt2, 0)
	return qsim.Matrix{
		{h, h},
		{h, -h},
	}
}

func S() qsim.Matrix   { return Phase(math.Pi / 2) }
func Sdg() qsim.Matrix { return Phase(-math.Pi / 2) }
func T() qsim.Matrix   { return Phase(math.Pi / 4) }
func Tdg() qsim.Matrix { return Phase(-math.Pi / 4) }

func SX() qsim.Matrix {
	return qsim.Matrix{
		{0.5 + 0.5i, 0.5 - 0.5i},
		{0.5 - 0.5i, 0.5 + 0.5i},
	}
}

func SXdg() qsim.Matrix { return SX().Dagger() }

func RX(theta float64) qsim.Matrix {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return qsim.Matrix{
		{complex(c, 0), complex(0, -s)},
		{complex(0, -s), complex(c, 0)},
	}
}

func RY(theta float64) qsim.Matrix {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return qsim.Matrix{
		{complex(c, 0), complex(-s, 0)},
		{complex(s, 0), complex(c, 0)},
	}
}

func RZ(theta float64) qsim.Matrix {
	return qsim.Matrix{
		{cmplx.Exp(complex(0, -theta/2)), 0},
		{0, cmplx.Exp(complex(0, theta/2))},
	}
}

// Phase is diag(1, e^{iλ}).
func Phase(lambda float64) qsim.Matrix {
	return qsim.Matrix{
		{1, 0},
		{0, cmplx.Exp(complex(0, lambda))},
	}
}

// U3 is the generic single-qubit rotation used by OpenQASM 2.0.
func U3(theta, phi, lambda float64) qsim.Matrix {
	c, s := math.Cos(theta/2), math.Sin(theta/2)
	return qsim.Matrix{
		{complex(c, 0), -cmplx.Exp(complex(0, lambda)) * complex(s, 0)},
		{cmplx.Exp(complex(0, phi)) * complex(s, 0), cmplx.Exp(complex(0, phi+lambda)) * complex(c, 0)},
	}
}

func CX() qsim.Matrix { return Controlled(X(), 1) }

func Swap() qsim.Matrix {
	return qsim.Matrix{
		{1, 0, 0, 0},
		{0, 0, 1, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 1},
	}
}

func ISwap() qsim.Matrix {
	return qsim.Matrix{
		{1, 0, 0, 0},
		{0, 0, 1i, 0},
		{0, 1i, 0, 0},
		{0, 0, 0, 1},
	}
}

func RZZ(theta float64) qsim.Matrix {
	a := cmplx.Exp(complex(0, -theta/2))
	b := cmplx.Exp(complex(0, theta/2))
	return Diagonal(a, b, b, a)
}

/*
Controlled adds n control qubits in front of m. The controls occupy the
leading target positions, so the result acts on [c1, …, cn, targets…] and
applies m only when every control reads 1.
*/
func Controlled(m qsim.Matrix, n int) qsim.Matrix {
	d := m.Dim()
	dim := d << n
	out := qsim.Identity(dim)
	off := dim - d
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			out[off+i][off+j] = m[i][j]
		}
	}
	return out
}

// Diagonal builds a diagonal matrix from its entries.
func Diagonal(entries ...complex128) qsim.Matrix {
	out := qsim.NewMatrix(len(entries))
	for i, e := range entries {
		out[i][i] = e
	}
	return out
}
