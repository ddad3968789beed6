package gates

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/qsim"
)

const tol = 1e-9

func TestTable(t *testing.T) {
	Convey("Given the gate table", t, func() {
		Convey("Every registered gate should be unitary for sample parameters", func() {
			params := []float64{0.3, -1.2, 2.5}
			for _, name := range Names() {
				d, ok := Get(name)
				So(ok, ShouldBeTrue)

				m, err := Lookup(name, params[:d.Params]...)
				So(err, ShouldBeNil)
				So(m.Dim(), ShouldEqual, 1<<d.Qubits)
				So(m.IsUnitary(tol), ShouldBeTrue)
			}
		})

		Convey("Aliases should resolve to the canonical gate", func() {
			for alias, canonical := range map[string]string{
				"cnot": "cx", "toffoli": "ccx", "fredkin": "cswap", "u1": "p", "U": "u3", "CX": "cx",
			} {
				d, ok := Get(alias)
				So(ok, ShouldBeTrue)
				So(d.Name, ShouldEqual, canonical)
			}
		})

		Convey("Names should be sorted and exclude aliases", func() {
			names := Names()
			So(names, ShouldContain, "h")
			So(names, ShouldNotContain, "cnot")
			for i := 1; i < len(names); i++ {
				So(names[i-1] < names[i], ShouldBeTrue)
			}
		})

		Convey("An unknown gate should fail with ErrInvalidGate", func() {
			_, err := Lookup("warp")
			So(errors.Is(err, qsim.ErrInvalidGate), ShouldBeTrue)
		})

		Convey("A wrong parameter count should fail with ErrInvalidGate", func() {
			_, err := Lookup("rz")
			So(errors.Is(err, qsim.ErrInvalidGate), ShouldBeTrue)

			_, err = Lookup("h", 1.0)
			So(errors.Is(err, qsim.ErrInvalidGate), ShouldBeTrue)
		})
	})
}

func TestIdentities(t *testing.T) {
	Convey("Given the standard gates", t, func() {
		Convey("H·H should be the identity", func() {
			So(H().Mul(H()).ApproxEqual(I(), tol), ShouldBeTrue)
		})

		Convey("S·S should equal Z and T·T should equal S", func() {
			So(S().Mul(S()).ApproxEqual(Z(), tol), ShouldBeTrue)
			So(T().Mul(T()).ApproxEqual(S(), tol), ShouldBeTrue)
		})

		Convey("SX·SX should equal X", func() {
			So(SX().Mul(SX()).ApproxEqual(X(), tol), ShouldBeTrue)
		})

		Convey("Sdg and Tdg should invert S and T", func() {
			So(S().Mul(Sdg()).ApproxEqual(I(), tol), ShouldBeTrue)
			So(T().Mul(Tdg()).ApproxEqual(I(), tol), ShouldBeTrue)
		})

		Convey("RX(π) should equal X up to a global phase of -i", func() {
			m := RX(math.Pi)
			So(real(m[0][0]), ShouldAlmostEqual, 0)
			So(imag(m[0][1]), ShouldAlmostEqual, -1)
			So(imag(m[1][0]), ShouldAlmostEqual, -1)
		})

		Convey("U3(π/2, 0, π) should equal H", func() {
			So(U3(math.Pi/2, 0, math.Pi).ApproxEqual(H(), tol), ShouldBeTrue)
		})

		Convey("CX should have the textbook layout", func() {
			want := qsim.Matrix{
				{1, 0, 0, 0},
				{0, 1, 0, 0},
				{0, 0, 0, 1},
				{0, 0, 1, 0},
			}
			So(CX().ApproxEqual(want, tol), ShouldBeTrue)
		})

		Convey("Controlled should only touch the all-controls-set block", func() {
			ccx := Controlled(X(), 2)
			So(ccx.Dim(), ShouldEqual, 8)
			So(ccx[6][7], ShouldEqual, complex(1, 0))
			So(ccx[7][6], ShouldEqual, complex(1, 0))
			So(ccx[5][5], ShouldEqual, complex(1, 0))
		})
	})
}

func TestAppend(t *testing.T) {
	Convey("Given an empty circuit", t, func() {
		c := qsim.NewCircuit(2, 0)

		Convey("Appending by alias should record the canonical name", func() {
			So(Append(c, "cnot", nil, 0, 1), ShouldBeNil)
			So(c.Ops, ShouldHaveLength, 1)
			So(c.Ops[0].Name, ShouldEqual, "cx")
		})

		Convey("Appending with a bad qubit should fail with ErrQubitIndex", func() {
			err := Append(c, "h", nil, 2)
			So(errors.Is(err, qsim.ErrQubitIndex), ShouldBeTrue)
		})
	})
}
