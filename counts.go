package qsim

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

/*
Counts maps an outcome bitstring to the number of shots that produced it.
Keys are NumClbits characters wide with classical bit 0 as the rightmost
character.
*/
type Counts map[string]int

// Total returns the number of shots recorded.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Merge adds every entry of o into c. Merging is associative and commutative.
func (c Counts) Merge(o Counts) {
	for k, n := range o {
		c[k] += n
	}
}

// Keys returns the observed bitstrings in lexical order.
func (c Counts) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Probabilities normalizes the histogram by the total shot count.
func (c Counts) Probabilities() map[string]float64 {
	total := float64(c.Total())
	out := make(map[string]float64, len(c))
	if total == 0 {
		return out
	}
	for k, n := range c {
		out[k] = float64(n) / total
	}
	return out
}

// MostFrequent returns the bitstring with the highest count, ties broken lexically.
func (c Counts) MostFrequent() (string, int) {
	best, bestN := "", -1
	for _, k := range c.Keys() {
		if c[k] > bestN {
			best, bestN = k, c[k]
		}
	}
	return best, bestN
}

/*
Marginal sums the histogram down to the given classical bits, listed in the
order they should appear from right to left. A bit outside the width of any
outcome is a classical reference outside the register and wraps
ErrMalformedCircuit.
*/
func (c Counts) Marginal(clbits ...int) (Counts, error) {
	out := make(Counts)
	for k, n := range c {
		var sb strings.Builder
		for i := len(clbits) - 1; i >= 0; i-- {
			cb := clbits[i]
			if cb < 0 || cb >= len(k) {
				return nil, fmt.Errorf("%w: clbit %d outside %d-bit outcome %q", ErrMalformedCircuit, cb, len(k), k)
			}
			sb.WriteByte(k[len(k)-1-cb])
		}
		out[sb.String()] += n
	}
	return out, nil
}

// bitstring renders a classical register with bit 0 rightmost.
func bitstring(reg []byte) string {
	buf := make([]byte, len(reg))
	for i, b := range reg {
		buf[len(reg)-1-i] = '0' + b
	}
	return string(buf)
}

// BasisLabel renders basis index i of an n-qubit state with qubit 0 rightmost.
func BasisLabel(i, n int) string {
	buf := make([]byte, n)
	for q := 0; q < n; q++ {
		buf[n-1-q] = '0' + byte((i>>q)&1)
	}
	return string(buf)
}
