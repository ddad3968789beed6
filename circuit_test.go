package qsim

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCircuitAppend(t *testing.T) {
	Convey("Given an empty circuit", t, func() {
		c := NewCircuit(2, 1)

		Convey("Gates on valid qubits should be appended in order", func() {
			So(c.NamedGate("h", nil, hadamard, 0), ShouldBeNil)
			So(c.NamedGate("cx", nil, cnot, 0, 1), ShouldBeNil)
			So(c.Ops, ShouldHaveLength, 2)
			So(c.Ops[1].Name, ShouldEqual, "cx")
			So(c.Ops[1].Qubits, ShouldResemble, []int{0, 1})
		})

		Convey("Bad qubit references should be index errors", func() {
			So(errors.Is(c.Gate(hadamard, 2), ErrQubitIndex), ShouldBeTrue)
			So(errors.Is(c.Gate(cnot, 1, 1), ErrQubitIndex), ShouldBeTrue)
			So(errors.Is(c.Gate(hadamard), ErrQubitIndex), ShouldBeTrue)
			So(errors.Is(c.Measure(5, 0), ErrQubitIndex), ShouldBeTrue)
			So(c.Ops, ShouldBeEmpty)
		})

		Convey("Bad matrices should be gate errors", func() {
			So(errors.Is(c.Gate(cnot, 0), ErrInvalidGate), ShouldBeTrue)
			So(errors.Is(c.Gate(Matrix{{1, 1}, {1, 1}}, 0), ErrInvalidGate), ShouldBeTrue)
		})

		Convey("Classical references outside the register should be malformed", func() {
			So(errors.Is(c.Measure(0, 1), ErrMalformedCircuit), ShouldBeTrue)

			op := Operation{Kind: OpGate, Matrix: pauliX, Qubits: []int{1}, Condition: &Condition{Clbit: 3, Value: 1}}
			So(errors.Is(c.Append(op), ErrMalformedCircuit), ShouldBeTrue)

			op.Condition = &Condition{Clbit: 0, Value: 2}
			So(errors.Is(c.Append(op), ErrMalformedCircuit), ShouldBeTrue)
		})
	})
}

func TestCircuitValidate(t *testing.T) {
	Convey("Given circuits with structural problems", t, func() {
		Convey("A circuit without qubits should be malformed", func() {
			So(errors.Is(NewCircuit(0, 0).Validate(), ErrMalformedCircuit), ShouldBeTrue)
		})

		Convey("A declared clbit that is never written should be malformed", func() {
			c := NewCircuit(2, 2)
			So(c.Measure(0, 0), ShouldBeNil)
			So(errors.Is(c.Validate(), ErrMalformedCircuit), ShouldBeTrue)

			So(c.Measure(1, 1), ShouldBeNil)
			So(c.Validate(), ShouldBeNil)
		})

		Convey("Ops edited after appending should be checked again", func() {
			c := bellCircuit(false)
			c.Ops[1].Qubits = []int{0, 7}
			So(errors.Is(c.Validate(), ErrQubitIndex), ShouldBeTrue)
		})
	})
}

func TestCircuitVerifiedMatrices(t *testing.T) {
	Convey("Given a circuit that appends one matrix twice", t, func() {
		c := NewCircuit(2, 0)
		So(c.Gate(cnot, 0, 1), ShouldBeNil)
		So(c.Gate(cnot, 1, 0), ShouldBeNil)

		Convey("The matrix should be remembered at the append tolerance", func() {
			So(c.verified.passed(cnot, DefaultTolerance), ShouldBeTrue)
			So(c.verified.passed(cnot, 1e-3), ShouldBeTrue)
			So(c.verified.passed(hadamard, DefaultTolerance), ShouldBeFalse)
		})

		Convey("A stricter tolerance should check it again", func() {
			So(c.verified.passed(cnot, 1e-12), ShouldBeFalse)
			So(c.ValidateTolerance(1e-12), ShouldBeNil)
			So(c.verified.passed(cnot, 1e-12), ShouldBeTrue)
		})

		Convey("A loosely verified matrix should fail a stricter check", func() {
			rounded := Matrix{
				{0.7071, 0.7071},
				{0.7071, -0.7071},
			}
			l := NewCircuit(1, 0)
			l.SetTolerance(1e-3)
			So(l.Gate(rounded, 0), ShouldBeNil)
			So(errors.Is(l.ValidateTolerance(DefaultTolerance), ErrInvalidGate), ShouldBeTrue)
		})

		Convey("Composing should carry the verified matrices over", func() {
			out := NewCircuit(2, 0)
			So(out.Compose(c), ShouldBeNil)
			So(out.verified.passed(cnot, DefaultTolerance), ShouldBeTrue)
		})

		Convey("A circuit built as a literal should still validate", func() {
			lit := &Circuit{NumQubits: 2, Ops: c.Ops}
			So(lit.Validate(), ShouldBeNil)
		})
	})
}

func TestCircuitShape(t *testing.T) {
	Convey("Given a measured Bell circuit", t, func() {
		c := bellCircuit(true)

		Convey("It should report measurements at the end", func() {
			So(c.HasMeasurements(), ShouldBeTrue)
			So(c.terminalMeasurements(), ShouldBeTrue)
		})

		Convey("A gate after a measurement should leave the fast path", func() {
			So(c.Gate(pauliX, 0), ShouldBeNil)
			So(c.terminalMeasurements(), ShouldBeFalse)
		})

		Convey("It should refuse to invert", func() {
			_, err := c.Inverse()
			So(errors.Is(err, ErrMalformedCircuit), ShouldBeTrue)
		})
	})

	Convey("Given a mid-circuit reset", t, func() {
		c := NewCircuit(1, 1)
		So(c.Reset(0), ShouldBeNil)
		So(c.Measure(0, 0), ShouldBeNil)
		So(c.terminalMeasurements(), ShouldBeFalse)
	})

	Convey("Given an unmeasured circuit", t, func() {
		c := NewCircuit(2, 0)
		c.Name = "prep"
		So(c.NamedGate("ry", []float64{0.7}, rotationY(0.7), 1), ShouldBeNil)
		So(c.NamedGate("p", []float64{0.3}, phase(0.3), 0), ShouldBeNil)
		So(c.NamedGate("cx", nil, cnot, 1, 0), ShouldBeNil)

		Convey("Its inverse should reverse and adjoint every gate", func() {
			inv, err := c.Inverse()
			So(err, ShouldBeNil)
			So(inv.Name, ShouldEqual, "prep_dg")
			So(inv.Ops, ShouldHaveLength, 3)
			So(inv.Ops[0].Name, ShouldEqual, "cx_dg")
			So(inv.Ops[2].Qubits, ShouldResemble, []int{1})
			So(inv.Ops[1].Matrix.ApproxEqual(phase(-0.3), 1e-12), ShouldBeTrue)
		})

		Convey("Composing it with its inverse should give the identity", func() {
			inv, err := c.Inverse()
			So(err, ShouldBeNil)
			So(c.Compose(inv), ShouldBeNil)

			sim := newTestSimulator()
			defer sim.Close()

			u, err := sim.Unitary(context.Background(), c)
			So(err, ShouldBeNil)
			So(u.ApproxEqual(Identity(4), 1e-9), ShouldBeTrue)
		})

		Convey("Composing a wider circuit should fail", func() {
			wide := NewCircuit(3, 0)
			So(wide.Gate(pauliX, 2), ShouldBeNil)
			So(errors.Is(c.Compose(wide), ErrQubitIndex), ShouldBeTrue)
		})
	})
}
