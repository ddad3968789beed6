package qsim

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

/*
StateVector holds the 2^N complex amplitudes of an N-qubit register. The basis
index of an amplitude has qubit 0 as its least significant bit.

A StateVector is owned by a single shot and is not safe for concurrent use.
*/
type StateVector struct {
	NumQubits  int
	Amplitudes []complex128

	tol float64
}

// NewStateVector returns the ground state |0…0⟩ on n qubits.
func NewStateVector(n int) *StateVector {
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &StateVector{NumQubits: n, Amplitudes: amps, tol: DefaultTolerance}
}

// Clone returns a deep copy.
func (sv *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(sv.Amplitudes))
	copy(amps, sv.Amplitudes)
	return &StateVector{NumQubits: sv.NumQubits, Amplitudes: amps, tol: sv.tol}
}

// SetTolerance changes the tolerance used by gate and measurement checks.
func (sv *StateVector) SetTolerance(tol float64) {
	sv.tol = tol
}

// Probabilities returns |a_i|^2 for every basis state.
func (sv *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(sv.Amplitudes))
	for i, a := range sv.Amplitudes {
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return probs
}

// Norm returns the sum of squared magnitudes, 1 for a valid state.
func (sv *StateVector) Norm() float64 {
	return floats.Sum(sv.Probabilities())
}

func (sv *StateVector) checkQubit(q int) error {
	if q < 0 || q >= sv.NumQubits {
		return fmt.Errorf("%w: qubit %d out of range [0, %d)", ErrQubitIndex, q, sv.NumQubits)
	}
	return nil
}

func (sv *StateVector) checkTargets(qubits []int) error {
	seen := make(map[int]struct{}, len(qubits))
	for _, q := range qubits {
		if err := sv.checkQubit(q); err != nil {
			return err
		}
		if _, dup := seen[q]; dup {
			return fmt.Errorf("%w: qubit %d repeated in %v", ErrQubitIndex, q, qubits)
		}
		seen[q] = struct{}{}
	}
	return nil
}

/*
ApplyGate contracts the unitary m with the target axes of the state. The k
target qubits are gathered into a 2^k local vector for every assignment of the
remaining N-k qubits, multiplied by m, and scattered back, so the full
2^N×2^N operator is never built.
*/
func (sv *StateVector) ApplyGate(m Matrix, qubits ...int) error {
	if err := sv.checkTargets(qubits); err != nil {
		return err
	}

	if err := m.Validate(len(qubits), sv.tol); err != nil {
		return err
	}

	sv.apply(m, qubits)
	return nil
}

// apply is ApplyGate without validation; callers have already checked m and qubits.
func (sv *StateVector) apply(m Matrix, qubits []int) {
	k := len(qubits)
	dim := 1 << k

	offsets := make([]int, dim)
	mask := 0
	for j, q := range qubits {
		bit := 1 << q
		mask |= bit
		shift := k - 1 - j
		for l := 0; l < dim; l++ {
			if (l>>shift)&1 == 1 {
				offsets[l] |= bit
			}
		}
	}

	local := make([]complex128, dim)
	amps := sv.Amplitudes
	for base := range amps {
		if base&mask != 0 {
			continue
		}

		for l, off := range offsets {
			local[l] = amps[base|off]
		}

		for r, off := range offsets {
			var sum complex128
			row := m[r]
			for c, a := range local {
				if a != 0 {
					sum += row[c] * a
				}
			}
			amps[base|off] = sum
		}
	}
}

// marginalZero returns the probability of reading 0 on qubit q.
func (sv *StateVector) marginalZero(q int) float64 {
	bit := 1 << q
	p0 := 0.0
	for i, a := range sv.Amplitudes {
		if i&bit == 0 {
			p0 += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	return p0
}

/*
Measure samples qubit q in the computational basis and collapses the state
onto the observed outcome. When the outcome is certain within tolerance, no
random number is drawn.
*/
func (sv *StateVector) Measure(q int, rng *rand.Rand) (int, error) {
	if err := sv.checkQubit(q); err != nil {
		return 0, err
	}

	p0 := sv.marginalZero(q)

	var outcome int
	switch {
	case p0 >= 1-sv.tol:
		outcome = 0
	case p0 <= sv.tol:
		outcome = 1
	default:
		if rng.Float64() >= p0 {
			outcome = 1
		}
	}

	p := p0
	if outcome == 1 {
		p = 1 - p0
	}
	sv.project(q, outcome, p)

	return outcome, nil
}

// project zeroes amplitudes inconsistent with outcome and rescales by 1/sqrt(p).
func (sv *StateVector) project(q, outcome int, p float64) {
	bit := 1 << q
	scale := complex(1/math.Sqrt(p), 0)
	for i := range sv.Amplitudes {
		if (i&bit != 0) == (outcome == 1) {
			sv.Amplitudes[i] *= scale
		} else {
			sv.Amplitudes[i] = 0
		}
	}
}

// Reset measures q and flips it back to |0⟩ if it read 1.
func (sv *StateVector) Reset(q int, rng *rand.Rand) error {
	outcome, err := sv.Measure(q, rng)
	if err != nil {
		return err
	}

	if outcome == 1 {
		bit := 1 << q
		for i := range sv.Amplitudes {
			if i&bit == 0 {
				sv.Amplitudes[i], sv.Amplitudes[i|bit] = sv.Amplitudes[i|bit], 0
			}
		}
	}

	return nil
}

// ApproxEqual compares amplitudes entrywise within tol.
func (sv *StateVector) ApproxEqual(o *StateVector, tol float64) bool {
	if sv.NumQubits != o.NumQubits {
		return false
	}
	for i := range sv.Amplitudes {
		if cmplx.Abs(sv.Amplitudes[i]-o.Amplitudes[i]) > tol {
			return false
		}
	}
	return true
}
