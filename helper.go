package goslam

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// singularEps is the determinant magnitude below which a square matrix is
// treated as non-invertible.
const singularEps = 1e-12

// Identity returns an identity matrix of the provided size.
func Identity(n int) mat.Symmetric {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j++ {
		if j%(n+1) == 0 {
			vals[j] = 1
		}
	}
	return mat.NewSymDense(n, vals)
}

// IsNil returns whether the provided matrix only has zero values.
func IsNil(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// AsSymDense attempts to return a SymDense from the provided Dense.
func AsSymDense(m *mat.Dense) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.Wrap(ErrInvalidInput, "matrix must be square")
	}
	mT := m.T()
	vals := make([]float64, r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if mT.At(i, j) != m.At(i, j) {
				return nil, errors.Wrap(ErrInvalidInput, "matrix is not symmetric")
			}
			vals[idx] = m.At(i, j)
			idx++
		}
	}
	return mat.NewSymDense(r, vals), nil
}

// Symmetrize returns (m + mᵀ)/2 as a SymDense. Unlike AsSymDense it accepts
// matrices whose asymmetry is pure floating-point drift, which is exactly the
// case after a covariance product chain.
func Symmetrize(m *mat.Dense) *mat.SymDense {
	r, c := m.Dims()
	mustMatchDims(r, r, c)
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return sym
}

// Invert returns the inverse of the provided square matrix, or an
// ErrSingularMatrix-wrapped error when its determinant magnitude is below
// singularEps. Callers recover by skipping the update that needed the
// inverse; a silently propagated NaN inverse must never reach the mean.
func Invert(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.Wrapf(ErrInvalidInput, "cannot invert %dx%d matrix", r, c)
	}
	if d := mat.Det(m); math.Abs(d) < singularEps || math.IsNaN(d) {
		return nil, errors.Wrapf(ErrSingularMatrix, "determinant=%g", d)
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, errors.Wrapf(ErrSingularMatrix, "inversion failed: %v", err)
	}
	return &inv, nil
}

// wrapAngle normalizes an angle into (−π, π]. Mandatory for bearing
// residuals: a naive subtraction near the ±π boundary produces a spurious
// innovation of nearly 2π.
func wrapAngle(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
