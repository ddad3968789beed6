package qasm

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/circuits"
	"github.com/theapemachine/qsim/gates"
)

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"0.5", 0.5},
		{"pi", math.Pi},
		{"pi/2", math.Pi / 2},
		{"-pi/4", -math.Pi / 4},
		{"2*pi/3", 2 * math.Pi / 3},
		{"(1+1)*pi", 2 * math.Pi},
		{"1e-3", 0.001},
		{"3 - -1", 4},
		{"1.5e+2", 150},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	for _, expr := range []string{"", "tau", "pi/0", "(1+2", "2 3", "*"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Eval(expr)
			assert.ErrorIs(t, err, qsim.ErrMalformedCircuit)
		})
	}
}

func TestParse(t *testing.T) {
	src := `OPENQASM 2.0;
include "qelib1.inc";

// teleport-style fragment
qreg q[3];
creg c[3];

h q[1];
cx q[1],q[2];
u3(pi/2, 0, pi) q[0];
barrier q;
measure q[0] -> c[0];
measure q[1] -> c[1];
if(c[1]==1) x q[2];
if(c[0]==1) z q[2];
reset q[0];
measure q[2] -> c[2];`

	c, err := Parse(src)
	require.NoError(t, err)

	assert.Equal(t, 3, c.NumQubits)
	assert.Equal(t, 3, c.NumClbits)
	require.Len(t, c.Ops, 9)

	assert.Equal(t, "cx", c.Ops[1].Name)
	assert.Equal(t, []int{1, 2}, c.Ops[1].Qubits)

	assert.Equal(t, "u3", c.Ops[2].Name)
	assert.InDelta(t, math.Pi/2, c.Ops[2].Params[0], 1e-12)
	assert.InDelta(t, math.Pi, c.Ops[2].Params[2], 1e-12)

	assert.Equal(t, qsim.OpMeasure, c.Ops[3].Kind)
	assert.Equal(t, 0, c.Ops[3].Clbit)

	require.NotNil(t, c.Ops[5].Condition)
	assert.Equal(t, qsim.Condition{Clbit: 1, Value: 1}, *c.Ops[5].Condition)
	assert.Equal(t, "x", c.Ops[5].Name)

	assert.Equal(t, qsim.OpReset, c.Ops[7].Kind)
	assert.NoError(t, c.Validate())
}

func TestParseBroadcast(t *testing.T) {
	c, err := Parse("qreg q[3]; creg c[3]; h q; measure q -> c;")
	require.NoError(t, err)
	require.Len(t, c.Ops, 6)

	for q := 0; q < 3; q++ {
		assert.Equal(t, "h", c.Ops[q].Name)
		assert.Equal(t, []int{q}, c.Ops[q].Qubits)
		assert.Equal(t, q, c.Ops[3+q].Clbit)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown gate", "qreg q[1]; warp q[0];", qsim.ErrInvalidGate},
		{"wrong parameter count", "qreg q[1]; rz q[0];", qsim.ErrInvalidGate},
		{"qubit out of range", "qreg q[2]; h q[2];", qsim.ErrQubitIndex},
		{"repeated target", "qreg q[2]; cx q[1],q[1];", qsim.ErrQubitIndex},
		{"gate before qreg", "h q[0]; qreg q[1];", qsim.ErrMalformedCircuit},
		{"missing semicolon", "qreg q[1]; h q[0]", qsim.ErrMalformedCircuit},
		{"unknown register", "qreg q[1]; h r[0];", qsim.ErrMalformedCircuit},
		{"whole register condition", "qreg q[1]; creg c[1]; measure q[0] -> c[0]; if(c==1) x q[0];", qsim.ErrMalformedCircuit},
		{"clbit out of range", "qreg q[1]; creg c[1]; measure q[0] -> c[3];", qsim.ErrMalformedCircuit},
		{"measure without creg", "qreg q[1]; measure q[0] -> c[0];", qsim.ErrMalformedCircuit},
		{"second qreg", "qreg q[1]; qreg r[1];", qsim.ErrMalformedCircuit},
		{"no qreg", "OPENQASM 2.0;", qsim.ErrMalformedCircuit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseReportsLine(t *testing.T) {
	_, err := Parse("qreg q[1];\n\nh q[5];")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "line 3:"), err.Error())
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(2, 2)
	b.AddGate("h q[0];")
	b.AddGate("cx q[0],q[1];")
	b.AddMeasurement(0, 0)
	b.AddMeasurement(1, 1)

	want := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[2];
creg c[2];

h q[0];
cx q[0],q[1];
measure q[0] -> c[0];
measure q[1] -> c[1];
`
	assert.Equal(t, want, b.Build())
}

func TestBuilderConditionsAndResets(t *testing.T) {
	b := NewBuilder(1, 1)
	b.AddMeasurement(0, 0)
	b.If(0, 1).AddGate("x q[0];")
	b.AddReset(0)
	b.If(0, 0).AddReset(0)

	assert.True(t, strings.HasSuffix(b.Build(), `measure q[0] -> c[0];
if(c[0]==1) x q[0];
reset q[0];
if(c[0]==0) reset q[0];
`), b.Build())
}

func TestExportResets(t *testing.T) {
	c := qsim.NewCircuit(2, 1)
	require.NoError(t, c.NamedGate("x", nil, gates.X(), 1))
	require.NoError(t, c.Reset(1))
	require.NoError(t, c.Measure(1, 0))

	src, err := Export(c)
	require.NoError(t, err)
	assert.Contains(t, src, "x q[1];\nreset q[1];\nmeasure q[1] -> c[0];\n")

	back, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, back.Ops, 3)
	assert.Equal(t, qsim.OpReset, back.Ops[1].Kind)
	assert.Equal(t, []int{1}, back.Ops[1].Qubits)
}

func TestRoundTrip(t *testing.T) {
	teleport, err := circuits.Teleport(0.7, 1.9)
	require.NoError(t, err)
	qft, err := circuits.QFT(3)
	require.NoError(t, err)

	for _, c := range []*qsim.Circuit{teleport, qft} {
		t.Run(c.Name, func(t *testing.T) {
			src, err := Export(c)
			require.NoError(t, err)

			back, err := Parse(src)
			require.NoError(t, err)

			require.Len(t, back.Ops, len(c.Ops))
			assert.Equal(t, c.NumQubits, back.NumQubits)
			assert.Equal(t, c.NumClbits, back.NumClbits)

			for i := range c.Ops {
				assert.Equal(t, c.Ops[i].Kind, back.Ops[i].Kind, "op %d", i)
				assert.Equal(t, c.Ops[i].Qubits, back.Ops[i].Qubits, "op %d", i)
				assert.Equal(t, c.Ops[i].Condition, back.Ops[i].Condition, "op %d", i)
				if c.Ops[i].Kind == qsim.OpGate {
					assert.True(t, c.Ops[i].Matrix.ApproxEqual(back.Ops[i].Matrix, 1e-12), "op %d", i)
				}
			}
		})
	}
}

func TestExportRejectsBareMatrices(t *testing.T) {
	c, err := circuits.Grover(2, 1)
	require.NoError(t, err)

	_, err = Export(c)
	assert.ErrorIs(t, err, qsim.ErrInvalidGate)
}

func TestParsedCircuitRuns(t *testing.T) {
	c, err := Parse(`OPENQASM 2.0;
qreg q[2];
creg c[2];
h q[0];
cx q[0],q[1];
measure q[0] -> c[0];
measure q[1] -> c[1];`)
	require.NoError(t, err)

	sim := qsim.NewSimulator(context.Background(), nil, qsim.WithLogger(qsim.NewLogger("error")))
	defer sim.Close()

	counts, err := sim.Run(context.Background(), c, 400, qsim.WithSeed(21))
	require.NoError(t, err)
	assert.Equal(t, 400, counts.Total())
	assert.ElementsMatch(t, []string{"00", "11"}, counts.Keys())
}
