package goslam

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func assertPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func TestIdentity(t *testing.T) {
	n := 3
	i33 := Identity(n)
	if r, c := i33.Dims(); r != n || r != c {
		t.Fatalf("i33 has dimensions (%dx%d)", r, c)
	}
	for i := 0; i < n; i++ {
		if i33.At(i, i) != 1 {
			t.Fatalf("i33(%d,%d) != 1", i, i)
		}
		for j := 0; j < n; j++ {
			if i != j && i33.At(i, j) != 0 {
				t.Fatalf("i33(%d,%d) != 0", i, j)
			}
		}
	}
}

func TestCheckDims(t *testing.T) {
	i22 := Identity(2)
	i33 := Identity(3)
	methods := []DimensionAgreement{rows2cols, cols2rows, cols2cols, rows2rows, rowsAndcols}
	for _, meth := range methods {
		if err := checkMatDims(i22, i22, "i22", "i22", meth); err != nil {
			t.Fatalf("method %+v fails: %s", meth, err)
		}
		if err := checkMatDims(i22, i33, "i22", "i33", meth); err == nil {
			t.Fatalf("method %+v does not error when using i22 and i33", meth)
		}
	}
}

func TestAsSymDense(t *testing.T) {
	if _, err := AsSymDense(mat.NewDense(2, 3, nil)); err == nil {
		t.Fatal("non-square matrix did not error")
	}
	if _, err := AsSymDense(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err == nil {
		t.Fatal("asymmetric matrix did not error")
	}
	sym, err := AsSymDense(mat.NewDense(2, 2, []float64{1, 2, 2, 4}))
	if err != nil {
		t.Fatal(err)
	}
	if sym.At(0, 1) != 2 {
		t.Fatal("symmetric conversion lost a value")
	}
}

func TestSymmetrize(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2 + 1e-14, 2, 4})
	s := Symmetrize(m)
	if !scalar.EqualWithinAbs(s.At(0, 1), 2, 1e-13) {
		t.Fatalf("got %g", s.At(0, 1))
	}
	if s.At(0, 1) != s.At(1, 0) {
		t.Fatal("result is not symmetric")
	}
	assertPanic(t, func() { Symmetrize(mat.NewDense(2, 3, nil)) })
}

func TestInvert(t *testing.T) {
	inv, err := Invert(mat.NewDense(2, 2, []float64{2, 0, 0, 4}))
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(inv.At(0, 0), 0.5, 1e-12) || !scalar.EqualWithinAbs(inv.At(1, 1), 0.25, 1e-12) {
		t.Fatalf("bad inverse: %v", mat.Formatted(inv))
	}
	if _, err := Invert(mat.NewDense(2, 3, nil)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("non-square inversion returned %v", err)
	}
	// Rank-deficient: second row is a multiple of the first.
	if _, err := Invert(mat.NewDense(2, 2, []float64{1, 2, 2, 4})); !errors.Is(err, ErrSingularMatrix) {
		t.Fatalf("singular inversion returned %v", err)
	}
	if _, err := Invert(mat.NewDense(2, 2, nil)); !errors.Is(err, ErrSingularMatrix) {
		t.Fatalf("zero-matrix inversion returned %v", err)
	}
}

func TestWrapAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-6.2, -6.2 + 2*math.Pi},
		{7 * math.Pi, math.Pi},
	}
	for _, c := range cases {
		if got := wrapAngle(c.in); !scalar.EqualWithinAbs(got, c.want, 1e-12) {
			t.Fatalf("wrapAngle(%g) = %g, want %g", c.in, got, c.want)
		}
	}
}
