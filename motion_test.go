package goslam

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

func testQ() mat.Symmetric {
	return mat.NewSymDense(3, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.001})
}

func TestPredictRejectsBadInput(t *testing.T) {
	s, _ := NewJointState(mat.NewVecDense(3, nil), Identity(3))
	for _, Δt := range []float64{0, -0.1} {
		if err := predictState(s, Control{V: 1}, Δt, testQ()); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Δt=%g accepted", Δt)
		}
	}
	if err := predictState(s, Control{V: math.NaN()}, 0.1, testQ()); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("NaN control accepted")
	}
	if x, y, θ := s.Pose(); x != 0 || y != 0 || θ != 0 {
		t.Fatal("rejected predict mutated the pose")
	}
	if !mat.Equal(s.Covariance(), Identity(3)) {
		t.Fatal("rejected predict mutated the covariance")
	}
}

func TestPredictExactIntegration(t *testing.T) {
	s, _ := NewJointState(mat.NewVecDense(3, nil), mat.NewSymDense(3, nil))
	if err := predictState(s, Control{V: 1, Omega: 0.5}, 0.1, mat.NewSymDense(3, nil)); err != nil {
		t.Fatal(err)
	}
	x, y, θ := s.Pose()
	// Closed-form circular arc from the origin: r = v/ω = 2.
	wantX := 2 * math.Sin(0.05)
	wantY := 2 * (1 - math.Cos(0.05))
	if !scalar.EqualWithinAbs(x, wantX, 1e-12) || !scalar.EqualWithinAbs(y, wantY, 1e-12) || !scalar.EqualWithinAbs(θ, 0.05, 1e-12) {
		t.Fatalf("pose = (%g, %g, %g), want (%g, %g, 0.05)", x, y, θ, wantX, wantY)
	}
}

func TestPredictStraightLineLimit(t *testing.T) {
	// ω = 0 must not divide by zero and must match the limit of a tiny ω.
	s0, _ := NewJointState(mat.NewVecDense(3, []float64{0, 0, 0.3}), mat.NewSymDense(3, nil))
	if err := predictState(s0, Control{V: 2}, 0.5, mat.NewSymDense(3, nil)); err != nil {
		t.Fatal(err)
	}
	x0, y0, θ0 := s0.Pose()
	if !scalar.EqualWithinAbs(x0, math.Cos(0.3), 1e-12) || !scalar.EqualWithinAbs(y0, math.Sin(0.3), 1e-12) || θ0 != 0.3 {
		t.Fatalf("straight-line pose = (%g, %g, %g)", x0, y0, θ0)
	}

	s1, _ := NewJointState(mat.NewVecDense(3, []float64{0, 0, 0.3}), mat.NewSymDense(3, nil))
	if err := predictState(s1, Control{V: 2, Omega: 1e-7}, 0.5, mat.NewSymDense(3, nil)); err != nil {
		t.Fatal(err)
	}
	x1, y1, _ := s1.Pose()
	if !scalar.EqualWithinAbs(x0, x1, 1e-6) || !scalar.EqualWithinAbs(y0, y1, 1e-6) {
		t.Fatalf("ω→0 limit mismatch: (%g, %g) vs (%g, %g)", x0, y0, x1, y1)
	}
}

func TestZeroMotionIdempotence(t *testing.T) {
	P0 := mat.NewSymDense(3, []float64{1, 0.1, 0, 0.1, 2, 0, 0, 0, 0.5})
	s, _ := NewJointState(mat.NewVecDense(3, []float64{4, 5, 1}), P0)
	Q := testQ()
	if err := predictState(s, Control{}, 0.1, Q); err != nil {
		t.Fatal(err)
	}
	x, y, θ := s.Pose()
	if x != 4 || y != 5 || θ != 1 {
		t.Fatalf("stationary command drifted the pose to (%g, %g, %g)", x, y, θ)
	}
	// With v = ω = 0 the Jacobian is identity: P ← P + Q, nothing else.
	want := mat.NewSymDense(3, nil)
	want.AddSym(P0, Q)
	if !mat.EqualApprox(s.Covariance(), want, 1e-12) {
		t.Fatal("stationary covariance is not P + Q")
	}
}

func TestPredictLeavesLandmarksAlone(t *testing.T) {
	s, _ := NewJointState(mat.NewVecDense(3, nil), Identity(3))
	pll := mat.NewSymDense(2, []float64{1000, 0, 0, 1000})
	if _, err := s.AppendLandmark(3, 4, pll, mat.NewDense(3, 2, nil), nil); err != nil {
		t.Fatal(err)
	}
	if err := predictState(s, Control{V: 1, Omega: 0.2}, 0.1, testQ()); err != nil {
		t.Fatal(err)
	}
	if s.NumLandmarks() != 1 {
		t.Fatal("prediction changed N")
	}
	lx, ly, _ := s.Landmark(0)
	if lx != 3 || ly != 4 {
		t.Fatal("prediction moved a landmark")
	}
	cov := s.Covariance()
	if cov.At(3, 3) != 1000 || cov.At(4, 4) != 1000 {
		t.Fatal("prediction inflated a landmark's own block")
	}
	// Symmetry invariant after prediction.
	n, _ := cov.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if cov.At(i, j) != cov.At(j, i) {
				t.Fatalf("covariance asymmetric at (%d,%d)", i, j)
			}
		}
	}
}
