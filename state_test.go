package goslam

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewJointStateErrors(t *testing.T) {
	if _, err := NewJointState(mat.NewVecDense(2, nil), mat.NewSymDense(3, nil)); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("2-row pose did not fail")
	}
	if _, err := NewJointState(mat.NewVecDense(3, nil), mat.NewSymDense(2, nil)); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("pose and covariance of incompatible sizes did not fail")
	}
}

func TestJointStateAccessors(t *testing.T) {
	pose := mat.NewVecDense(3, []float64{1, 2, 0.5})
	s, err := NewJointState(pose, mat.NewSymDense(3, []float64{1, 0, 0, 0, 2, 0, 0, 0, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if s.Dim() != 3 || s.NumLandmarks() != 0 {
		t.Fatalf("fresh state has dim=%d N=%d", s.Dim(), s.NumLandmarks())
	}
	x, y, θ := s.Pose()
	if x != 1 || y != 2 || θ != 0.5 {
		t.Fatalf("pose = (%g, %g, %g)", x, y, θ)
	}
	// Snapshots must not alias the internal storage.
	s.Mean().SetVec(0, 99)
	cov := s.Covariance()
	cov.SetSym(0, 0, 99)
	if x, _, _ = s.Pose(); x != 1 {
		t.Fatal("Mean snapshot aliases internal storage")
	}
	if s.covar.At(0, 0) != 1 {
		t.Fatal("Covariance snapshot aliases internal storage")
	}
	if _, _, err := s.Landmark(0); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("landmark 0 of an empty map did not fail")
	}
}

func TestAppendLandmark(t *testing.T) {
	s, err := NewJointState(mat.NewVecDense(3, nil), Identity(3))
	if err != nil {
		t.Fatal(err)
	}
	pll := mat.NewSymDense(2, []float64{1000, 0, 0, 1000})
	prl := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	idx, err := s.AppendLandmark(7, 8, pll, prl, nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 || s.NumLandmarks() != 1 || s.Dim() != 5 {
		t.Fatalf("after append: idx=%d N=%d dim=%d", idx, s.NumLandmarks(), s.Dim())
	}
	lx, ly, err := s.Landmark(0)
	if err != nil || lx != 7 || ly != 8 {
		t.Fatalf("landmark 0 = (%g, %g), err=%v", lx, ly, err)
	}
	cov := s.Covariance()
	if cov.At(3, 3) != 1000 || cov.At(4, 4) != 1000 {
		t.Fatal("landmark diagonal block not installed")
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			if cov.At(i, 3+j) != prl.At(i, j) || cov.At(3+j, i) != prl.At(i, j) {
				t.Fatalf("cross block not symmetric at (%d,%d)", i, j)
			}
		}
	}

	// Second landmark exercises the landmark-landmark cross block.
	plm := mat.NewDense(2, 2, []float64{0.1, 0.2, 0.3, 0.4})
	if _, err := s.AppendLandmark(9, 10, pll, prl, plm); err != nil {
		t.Fatal(err)
	}
	cov = s.Covariance()
	if s.Dim() != 7 {
		t.Fatalf("dim=%d after second append", s.Dim())
	}
	if cov.At(5, 3) != 0.1 || cov.At(3, 5) != 0.1 || cov.At(6, 4) != 0.4 || cov.At(4, 6) != 0.4 {
		t.Fatal("landmark cross block not installed symmetrically")
	}
}

func TestAppendLandmarkBadBlocks(t *testing.T) {
	s, _ := NewJointState(mat.NewVecDense(3, nil), Identity(3))
	if _, err := s.AppendLandmark(0, 0, mat.NewSymDense(3, nil), mat.NewDense(3, 2, nil), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("3x3 landmark block accepted")
	}
	if _, err := s.AppendLandmark(0, 0, mat.NewSymDense(2, nil), mat.NewDense(2, 2, nil), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("2x2 pose cross block accepted")
	}
	if s.Dim() != 3 {
		t.Fatal("failed append mutated the state")
	}
}

func TestDimensionMismatchIsFatal(t *testing.T) {
	s, _ := NewJointState(mat.NewVecDense(3, nil), Identity(3))
	assertPanic(t, func() {
		s.replace(mat.NewVecDense(5, nil), mat.NewSymDense(5, nil))
	})
	assertPanic(t, func() {
		s.replaceCovariance(mat.NewSymDense(4, nil))
	})
	// Direct corruption must be caught on the next access.
	s.mean = mat.NewVecDense(4, nil)
	assertPanic(t, func() { s.Dim() })
}
