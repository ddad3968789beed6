package qsim

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCounts(t *testing.T) {
	Convey("Given a histogram over three classical bits", t, func() {
		counts := Counts{"000": 5, "101": 3, "110": 2}

		Convey("It should total and normalize", func() {
			So(counts.Total(), ShouldEqual, 10)
			So(counts.Probabilities()["101"], ShouldAlmostEqual, 0.3, 1e-12)
			So(counts.Keys(), ShouldResemble, []string{"000", "101", "110"})
		})

		Convey("The most frequent outcome should win, ties going lexically", func() {
			key, n := counts.MostFrequent()
			So(key, ShouldEqual, "000")
			So(n, ShouldEqual, 5)

			key, _ = Counts{"11": 4, "01": 4}.MostFrequent()
			So(key, ShouldEqual, "01")
		})

		Convey("Marginal should keep the chosen bits with the first rightmost", func() {
			cases := []struct {
				clbits []int
				want   Counts
			}{
				{[]int{0}, Counts{"0": 7, "1": 3}},
				{[]int{2}, Counts{"0": 5, "1": 5}},
				{[]int{0, 1}, Counts{"00": 5, "01": 3, "10": 2}},
				{[]int{1, 0}, Counts{"00": 5, "10": 3, "01": 2}},
			}
			for _, tc := range cases {
				got, err := counts.Marginal(tc.clbits...)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, tc.want)
			}
		})

		Convey("Marginal should reject bits outside the outcomes", func() {
			for _, cb := range []int{3, -1} {
				var err error
				So(func() {
					_, err = counts.Marginal(0, cb)
				}, ShouldNotPanic)
				So(errors.Is(err, ErrMalformedCircuit), ShouldBeTrue)
			}
		})

		Convey("Merge should add entrywise", func() {
			counts.Merge(Counts{"000": 1, "111": 4})
			So(counts, ShouldResemble, Counts{"000": 6, "101": 3, "110": 2, "111": 4})
		})
	})

	Convey("Given an empty histogram", t, func() {
		So(Counts{}.Probabilities(), ShouldBeEmpty)
		So(Counts{}.Total(), ShouldEqual, 0)
	})

	Convey("Given basis indices", t, func() {
		So(BasisLabel(1, 3), ShouldEqual, "001")
		So(BasisLabel(6, 3), ShouldEqual, "110")
		So(bitstring([]byte{1, 0, 0}), ShouldEqual, "001")
	})
}
