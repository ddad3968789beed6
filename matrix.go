package qsim

import (
	"fmt"
	"math/bits"
	"math/cmplx"
)

// DefaultTolerance bounds the unitarity check and the normalization drift.
const DefaultTolerance = 1e-9

/*
Matrix is a dense square complex matrix in row-major order. A gate acting on k
qubits is a 2^k×2^k Matrix; its row and column index treat the first target
qubit as the most significant bit, so CX on [control, target] has the familiar
textbook layout.
*/
type Matrix [][]complex128

// Identity returns the dim×dim identity matrix.
func Identity(dim int) Matrix {
	m := NewMatrix(dim)
	for i := range m {
		m[i][i] = 1
	}
	return m
}

// NewMatrix allocates a zeroed dim×dim matrix.
func NewMatrix(dim int) Matrix {
	m := make(Matrix, dim)
	for i := range m {
		m[i] = make([]complex128, dim)
	}
	return m
}

// Dim returns the number of rows.
func (m Matrix) Dim() int {
	return len(m)
}

/*
Qubits returns log2 of the dimension after checking the matrix is square and
a power of two in size. It does not check unitarity.
*/
func (m Matrix) Qubits() (int, error) {
	dim := len(m)
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty matrix", ErrInvalidGate)
	}

	for i, row := range m {
		if len(row) != dim {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidGate, i, len(row), dim)
		}
	}

	if dim&(dim-1) != 0 {
		return 0, fmt.Errorf("%w: dimension %d is not a power of two", ErrInvalidGate, dim)
	}

	return bits.TrailingZeros(uint(dim)), nil
}

// Dagger returns the conjugate transpose.
func (m Matrix) Dagger() Matrix {
	out := NewMatrix(len(m))
	for i := range m {
		for j := range m[i] {
			out[j][i] = cmplx.Conj(m[i][j])
		}
	}
	return out
}

// Mul returns m·o. Both operands must have the same dimension.
func (m Matrix) Mul(o Matrix) Matrix {
	dim := len(m)
	out := NewMatrix(dim)
	for i := 0; i < dim; i++ {
		for k := 0; k < dim; k++ {
			a := m[i][k]
			if a == 0 {
				continue
			}
			for j := 0; j < dim; j++ {
				out[i][j] += a * o[k][j]
			}
		}
	}
	return out
}

// Kron returns the Kronecker product m⊗o; m occupies the high-order bits.
func (m Matrix) Kron(o Matrix) Matrix {
	dm, do := len(m), len(o)
	out := NewMatrix(dm * do)
	for i := 0; i < dm; i++ {
		for j := 0; j < dm; j++ {
			if m[i][j] == 0 {
				continue
			}
			for k := 0; k < do; k++ {
				for l := 0; l < do; l++ {
					out[i*do+k][j*do+l] = m[i][j] * o[k][l]
				}
			}
		}
	}
	return out
}

/*
IsUnitary reports whether m·m† equals the identity within tol, entrywise. Only
the non-zero entries of each row are visited, so diagonal and permutation
gates cost O(dim²) rather than O(dim³).
*/
func (m Matrix) IsUnitary(tol float64) bool {
	dim := len(m)

	nonzero := make([][]int, dim)
	for i, row := range m {
		for k, v := range row {
			if v != 0 {
				nonzero[i] = append(nonzero[i], k)
			}
		}
	}

	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			var sum complex128
			for _, k := range nonzero[i] {
				sum += m[i][k] * cmplx.Conj(m[j][k])
			}
			if i == j {
				sum--
			}
			if cmplx.Abs(sum) > tol {
				return false
			}
		}
	}
	return true
}

/*
Validate checks that m is a well-formed unitary acting on exactly k qubits.
The error wraps ErrInvalidGate.
*/
func (m Matrix) Validate(k int, tol float64) error {
	if err := m.validateShape(k); err != nil {
		return err
	}

	if !m.IsUnitary(tol) {
		return fmt.Errorf("%w: matrix is not unitary within %g", ErrInvalidGate, tol)
	}

	return nil
}

// validateShape checks that m is a square power-of-two matrix acting on k qubits.
func (m Matrix) validateShape(k int) error {
	n, err := m.Qubits()
	if err != nil {
		return err
	}
	if n != k {
		return fmt.Errorf("%w: %d×%d matrix acts on %d qubits, got %d targets", ErrInvalidGate, len(m), len(m), n, k)
	}
	return nil
}

// ApproxEqual compares two matrices entrywise within tol.
func (m Matrix) ApproxEqual(o Matrix, tol float64) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if len(m[i]) != len(o[i]) {
			return false
		}
		for j := range m[i] {
			if cmplx.Abs(m[i][j]-o[i][j]) > tol {
				return false
			}
		}
	}
	return true
}
