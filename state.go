package goslam

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// poseDim is the size of the pose block (x, y, θ) and landmarkDim the number
// of state entries per landmark (x, y). Landmark signatures are association
// metadata held by the filter, never state dimensions, so the joint state is
// always of size poseDim + landmarkDim·N.
const (
	poseDim     = 3
	landmarkDim = 2
)

// JointState owns the joint mean vector and covariance matrix of the agent
// pose and all known landmarks. It is the filter's entire persistent memory.
// All mutations go through its methods so that the dimensional and symmetry
// invariants are enforced in exactly one place; in particular AppendLandmark
// is the only sanctioned way to grow the landmark count.
//
// A JointState is a single-writer resource: one estimator mutates it from one
// goroutine at a time. Distinct agents own distinct JointStates and need no
// synchronization between them.
type JointState struct {
	mean  *mat.VecDense
	covar *mat.SymDense
}

// NewJointState returns a landmark-free joint state from the provided initial
// pose and 3x3 pose covariance.
func NewJointState(pose *mat.VecDense, covar0 mat.Symmetric) (*JointState, error) {
	if r, _ := pose.Dims(); r != poseDim {
		return nil, errors.Wrapf(ErrInvalidInput, "initial pose must have %d rows, not %d", poseDim, r)
	}
	if err := checkMatDims(pose, covar0, "pose", "covar0", rows2cols); err != nil {
		return nil, err
	}
	mean := mat.NewVecDense(poseDim, nil)
	mean.CopyVec(pose)
	covar := mat.NewSymDense(poseDim, nil)
	covar.CopySym(covar0)
	return &JointState{mean, covar}, nil
}

// Dim returns the joint state dimension 3 + 2N.
func (s *JointState) Dim() int {
	s.checkConsistent()
	return s.mean.Len()
}

// NumLandmarks returns N, the number of committed landmarks.
func (s *JointState) NumLandmarks() int {
	return (s.Dim() - poseDim) / landmarkDim
}

// Pose returns the pose block (x, y, θ) of the mean.
func (s *JointState) Pose() (x, y, θ float64) {
	s.checkConsistent()
	return s.mean.AtVec(0), s.mean.AtVec(1), s.mean.AtVec(2)
}

// Landmark returns the estimated position of landmark i.
func (s *JointState) Landmark(i int) (lx, ly float64, err error) {
	if i < 0 || i >= s.NumLandmarks() {
		return 0, 0, errors.Wrapf(ErrInvalidInput, "no landmark %d (N=%d)", i, s.NumLandmarks())
	}
	base := poseDim + landmarkDim*i
	return s.mean.AtVec(base), s.mean.AtVec(base + 1), nil
}

// Mean returns a copy of the joint mean vector.
func (s *JointState) Mean() *mat.VecDense {
	s.checkConsistent()
	out := mat.NewVecDense(s.mean.Len(), nil)
	out.CopyVec(s.mean)
	return out
}

// Covariance returns a copy of the joint covariance matrix.
func (s *JointState) Covariance() *mat.SymDense {
	s.checkConsistent()
	n, _ := s.covar.Dims()
	out := mat.NewSymDense(n, nil)
	out.CopySym(s.covar)
	return out
}

// setPose overwrites the pose block of the mean. N is unaffected.
func (s *JointState) setPose(x, y, θ float64) {
	s.checkConsistent()
	s.mean.SetVec(0, x)
	s.mean.SetVec(1, y)
	s.mean.SetVec(2, wrapAngle(θ))
}

// replace swaps in a corrected mean and covariance together. The two must
// already agree with the current dimension: replace never changes N.
func (s *JointState) replace(mean *mat.VecDense, covar *mat.SymDense) {
	cr, cc := covar.Dims()
	mustMatchDims(mean.Len(), cr, cc)
	mustMatchDims(s.mean.Len(), cr, cc)
	s.mean = mean
	s.covar = covar
	s.mean.SetVec(2, wrapAngle(s.mean.AtVec(2)))
}

// replaceCovariance swaps in a new covariance of the current dimension,
// leaving the mean untouched (prediction only moves the pose block).
func (s *JointState) replaceCovariance(covar *mat.SymDense) {
	cr, cc := covar.Dims()
	mustMatchDims(s.mean.Len(), cr, cc)
	s.covar = covar
}

// AppendLandmark grows the joint state by one landmark, atomically resizing
// mean and covariance together. pll is the new landmark's own 2x2 covariance
// block, prl the 3x2 pose–landmark cross block, and plm the 2x2N cross block
// with the previously committed landmarks (nil when N was zero). The result
// is filled symmetrically. Returns the new landmark's index.
func (s *JointState) AppendLandmark(lx, ly float64, pll *mat.SymDense, prl, plm *mat.Dense) (int, error) {
	s.checkConsistent()
	dim := s.mean.Len()
	grown := dim + landmarkDim

	if r, c := pll.Dims(); r != landmarkDim || c != landmarkDim {
		return 0, errors.Wrapf(ErrInvalidInput, "landmark covariance block must be %dx%d, got %dx%d", landmarkDim, landmarkDim, r, c)
	}
	if r, c := prl.Dims(); r != poseDim || c != landmarkDim {
		return 0, errors.Wrapf(ErrInvalidInput, "pose cross block must be %dx%d, got %dx%d", poseDim, landmarkDim, r, c)
	}
	if plm != nil {
		if r, c := plm.Dims(); r != landmarkDim || c != dim-poseDim {
			return 0, errors.Wrapf(ErrInvalidInput, "landmark cross block must be %dx%d, got %dx%d", landmarkDim, dim-poseDim, r, c)
		}
	}

	mean := mat.NewVecDense(grown, nil)
	for i := 0; i < dim; i++ {
		mean.SetVec(i, s.mean.AtVec(i))
	}
	mean.SetVec(dim, lx)
	mean.SetVec(dim+1, ly)

	covar := mat.NewSymDense(grown, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			covar.SetSym(i, j, s.covar.At(i, j))
		}
	}
	for i := 0; i < landmarkDim; i++ {
		for j := i; j < landmarkDim; j++ {
			covar.SetSym(dim+i, dim+j, pll.At(i, j))
		}
	}
	for i := 0; i < poseDim; i++ {
		for j := 0; j < landmarkDim; j++ {
			covar.SetSym(i, dim+j, prl.At(i, j))
		}
	}
	if plm != nil {
		for i := 0; i < landmarkDim; i++ {
			for j := 0; j < dim-poseDim; j++ {
				covar.SetSym(dim+i, poseDim+j, plm.At(i, j))
			}
		}
	}

	// Only now that both grew successfully does the state change.
	s.mean = mean
	s.covar = covar
	return s.NumLandmarks() - 1, nil
}

// checkConsistent enforces the invariant mean.length == covariance rows ==
// covariance cols == 3 + 2N. Violations are fatal.
func (s *JointState) checkConsistent() {
	cr, cc := s.covar.Dims()
	mustMatchDims(s.mean.Len(), cr, cc)
	if (s.mean.Len()-poseDim)%landmarkDim != 0 {
		panic(errors.Wrapf(ErrDimensionMismatch, "state length %d is not %d+%dN", s.mean.Len(), poseDim, landmarkDim))
	}
}

func (s *JointState) String() string {
	mean := mat.Formatted(s.mean, mat.Prefix("  "))
	covar := mat.Formatted(s.covar, mat.Prefix("  "))
	return fmt.Sprintf("JointState{N=%d\nx=%v\nP=%v\n}", s.NumLandmarks(), mean, covar)
}
