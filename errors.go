package goslam

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// The estimator distinguishes four failure kinds. ErrSingularMatrix and
// ErrDegenerateObservation are recoverable: Observe skips the offending
// observation and leaves the joint state untouched. ErrInvalidInput rejects
// the whole call with no mutation. A dimension mismatch between the mean and
// the covariance indicates state corruption and is never returned: it panics.
var (
	// ErrInvalidInput flags a malformed control or observation (e.g. Δt ≤ 0).
	ErrInvalidInput = errors.New("goslam: invalid input")
	// ErrSingularMatrix flags a non-invertible matrix (determinant below ε).
	ErrSingularMatrix = errors.New("goslam: singular matrix")
	// ErrDegenerateObservation flags a zero-range self-observation.
	ErrDegenerateObservation = errors.New("goslam: degenerate observation")
	// ErrDimensionMismatch flags a mean/covariance size disagreement. It is
	// only ever seen inside a panic value.
	ErrDimensionMismatch = errors.New("goslam: dimension mismatch")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "dimensions must agree: "
	rows2cols DimensionAgreement = iota + 1
	cols2rows
	cols2cols
	rows2rows
	rowsAndcols
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement.
// Returns an ErrInvalidInput-wrapped error if not.
func checkMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case rows2cols:
		if r1 != c2 {
			return errors.Wrapf(ErrInvalidInput, "%s%s(%dx...) %s(...x%d)", dimErrMsg, name1, r1, name2, c2)
		}
	case cols2rows:
		if c1 != r2 {
			return errors.Wrapf(ErrInvalidInput, "%s%s(...x%d) %s(%dx...)", dimErrMsg, name1, c1, name2, r2)
		}
	case cols2cols:
		if c1 != c2 {
			return errors.Wrapf(ErrInvalidInput, "%s%s(...x%d) %s(...x%d)", dimErrMsg, name1, c1, name2, c2)
		}
	case rows2rows:
		if r1 != r2 {
			return errors.Wrapf(ErrInvalidInput, "%s%s(%dx...) %s(%dx...)", dimErrMsg, name1, r1, name2, r2)
		}
	case rowsAndcols:
		if c1 != c2 || r1 != r2 {
			return errors.Wrapf(ErrInvalidInput, "%s%s(%dx%d) %s(%dx%d)", dimErrMsg, name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}

// mustMatchDims panics with an ErrDimensionMismatch-wrapped error when the
// joint state invariant mean.length == covariance rows == covariance cols is
// broken. Reaching it means the state was corrupted by a programming defect,
// which must not be silently continued.
func mustMatchDims(meanLen, covRows, covCols int) {
	if meanLen != covRows || covRows != covCols {
		panic(errors.Wrapf(ErrDimensionMismatch, "mean(%d) covariance(%dx%d)", meanLen, covRows, covCols))
	}
}
