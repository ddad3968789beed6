package circuitio

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/circuits"
	"gopkg.in/yaml.v3"
)

const bellYAML = `name: bell
qubits: 2
clbits: 2
ops:
  - {gate: h, qubits: [0]}
  - {gate: cnot, qubits: [0, 1]}
  - {gate: rz, params: [0.5], qubits: [1]}
  - {matrix: [[[0, 0], [1, 0]], [[1, 0], [0, 0]]], qubits: [0]}
  - {matrix: [[[0, 0], [1, 0]], [[1, 0], [0, 0]]], qubits: [0]}
  - {measure: 0, clbit: 0}
  - {reset: 1}
  - {gate: x, qubits: [1], if: {clbit: 0, value: 1}}
  - {measure: 1, clbit: 1}
`

func TestDecode(t *testing.T) {
	c, err := Decode(strings.NewReader(bellYAML))
	require.NoError(t, err)

	assert.Equal(t, "bell", c.Name)
	assert.Equal(t, 2, c.NumQubits)
	assert.Equal(t, 2, c.NumClbits)
	require.Len(t, c.Ops, 9)

	assert.Equal(t, "cx", c.Ops[1].Name)
	assert.Equal(t, []float64{0.5}, c.Ops[2].Params)
	assert.Equal(t, complex(1, 0), c.Ops[3].Matrix[0][1])
	assert.Equal(t, qsim.OpMeasure, c.Ops[5].Kind)
	assert.Equal(t, []int{0}, c.Ops[5].Qubits)
	assert.Equal(t, 0, c.Ops[5].Clbit)
	assert.Equal(t, qsim.OpReset, c.Ops[6].Kind)
	assert.Equal(t, &qsim.Condition{Clbit: 0, Value: 1}, c.Ops[7].Condition)
	assert.NoError(t, c.Validate())
}

func TestDecodedCircuitRuns(t *testing.T) {
	c, err := Decode(strings.NewReader(bellYAML))
	require.NoError(t, err)

	sim := qsim.NewSimulator(context.Background(), nil, qsim.WithLogger(qsim.NewLogger("error")))
	defer sim.Close()

	// q1 is reset then flipped when q0 read 1, so both bits always agree.
	counts, err := sim.Run(context.Background(), c, 500, qsim.WithSeed(4))
	require.NoError(t, err)
	assert.Equal(t, 500, counts.Total())
	assert.ElementsMatch(t, []string{"00", "11"}, counts.Keys())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", qsim.ErrMalformedCircuit},
		{"unknown field", "qubits: 1\nops:\n  - {gate: h, qubit: [0]}\n", qsim.ErrMalformedCircuit},
		{"no qubits", "qubits: 0\nops: []\n", qsim.ErrMalformedCircuit},
		{"two kinds", "qubits: 1\nclbits: 1\nops:\n  - {gate: h, measure: 0, clbit: 0}\n", qsim.ErrMalformedCircuit},
		{"nothing set", "qubits: 1\nops:\n  - {qubits: [0]}\n", qsim.ErrMalformedCircuit},
		{"measure without clbit", "qubits: 1\nclbits: 1\nops:\n  - {measure: 0}\n", qsim.ErrMalformedCircuit},
		{"gate without qubits", "qubits: 1\nops:\n  - {gate: h}\n", qsim.ErrMalformedCircuit},
		{"bad condition value", "qubits: 1\nclbits: 1\nops:\n  - {measure: 0, clbit: 0}\n  - {gate: x, qubits: [0], if: {clbit: 0, value: 2}}\n", qsim.ErrMalformedCircuit},
		{"unknown gate", "qubits: 1\nops:\n  - {gate: warp, qubits: [0]}\n", qsim.ErrInvalidGate},
		{"non-unitary matrix", "qubits: 1\nops:\n  - {matrix: [[[1, 0], [1, 0]], [[0, 0], [1, 0]]], qubits: [0]}\n", qsim.ErrInvalidGate},
		{"bad matrix entry", "qubits: 1\nops:\n  - {matrix: [[[1], [0, 0]], [[0, 0], [1, 0]]], qubits: [0]}\n", qsim.ErrInvalidGate},
		{"qubit out of range", "qubits: 2\nops:\n  - {gate: cx, qubits: [0, 2]}\n", qsim.ErrQubitIndex},
		{"reset out of range", "qubits: 1\nops:\n  - {reset: 3}\n", qsim.ErrQubitIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeTolerance(t *testing.T) {
	doc := "qubits: 1\nops:\n  - {matrix: [[[0.7071, 0], [0.7071, 0]], [[0.7071, 0], [-0.7071, 0]]], qubits: [0]}\n"

	_, err := Decode(strings.NewReader(doc))
	assert.ErrorIs(t, err, qsim.ErrInvalidGate)

	c, err := Decode(strings.NewReader(doc), WithTolerance(1e-3))
	require.NoError(t, err)
	assert.Equal(t, 1e-3, c.Tolerance())

	dir := t.TempDir()
	path := filepath.Join(dir, "rounded.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err = Load(path)
	assert.ErrorIs(t, err, qsim.ErrInvalidGate)
	_, err = Load(path, WithTolerance(1e-3))
	assert.NoError(t, err)
}

func TestDecodeJSON(t *testing.T) {
	doc := `{
	"qubits": 1,
	"clbits": 1,
	"ops": [
		{"gate": "ry", "params": [1.2], "qubits": [0]},
		{"measure": 0, "clbit": 0}
	]
}`
	c, err := DecodeJSON(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, c.Ops, 2)
	assert.Equal(t, "ry", c.Ops[0].Name)

	_, err = DecodeJSON(strings.NewReader(`{"qubits": 1, "extra": true}`))
	assert.ErrorIs(t, err, qsim.ErrMalformedCircuit)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "bell.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(bellYAML), 0o644))

	qasmPath := filepath.Join(dir, "flip.qasm")
	require.NoError(t, os.WriteFile(qasmPath, []byte("OPENQASM 2.0;\nqreg q[1];\ncreg c[1];\nx q[0];\nmeasure q[0] -> c[0];\n"), 0o644))

	c, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "bell", c.Name)

	c, err = Load(qasmPath)
	require.NoError(t, err)
	assert.Equal(t, "flip", c.Name)
	assert.Len(t, c.Ops, 2)

	_, err = Load(filepath.Join(dir, "circuit.txt"))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	grover, err := circuits.Grover(2, 3)
	require.NoError(t, err)
	teleport, err := circuits.Teleport(0.3, 0.8)
	require.NoError(t, err)

	for _, c := range []*qsim.Circuit{grover, teleport} {
		t.Run(c.Name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, c))

			back, err := Decode(&buf)
			require.NoError(t, err)
			require.Len(t, back.Ops, len(c.Ops))

			for i := range c.Ops {
				assert.Equal(t, c.Ops[i].Kind, back.Ops[i].Kind, "op %d", i)
				assert.Equal(t, c.Ops[i].Name, back.Ops[i].Name, "op %d", i)
				assert.Equal(t, c.Ops[i].Condition, back.Ops[i].Condition, "op %d", i)
				if c.Ops[i].Kind == qsim.OpGate {
					assert.True(t, c.Ops[i].Matrix.ApproxEqual(back.Ops[i].Matrix, 1e-12), "op %d", i)
				}
			}
		})
	}
}

func TestWriteResult(t *testing.T) {
	sim := qsim.NewSimulator(context.Background(), nil, qsim.WithLogger(qsim.NewLogger("error")))
	defer sim.Close()

	bell, err := circuits.Bell()
	require.NoError(t, err)

	res, err := sim.Execute(context.Background(), bell, qsim.WithMode(qsim.ModeStatevector))
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteResult(&buf, res, "json"))

		var doc ResultDoc
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, "statevector", doc.Mode)
		require.Len(t, doc.Statevector, 4)
		assert.InDelta(t, 0.70710678, doc.Statevector[0][0], 1e-6)
		assert.InDelta(t, 0.70710678, doc.Statevector[3][0], 1e-6)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteResult(&buf, res, "yaml"))

		var doc ResultDoc
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, res.ID, doc.ID)
		assert.Equal(t, 2, doc.Qubits)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, WriteResult(&bytes.Buffer{}, res, "xml"))
	})
}
