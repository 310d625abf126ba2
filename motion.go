package goslam

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// omegaEps is the angular rate magnitude below which the exact-integration
// motion model degrades to straight-line motion. The v/ω form divides by ω,
// so the limit must be substituted explicitly.
const omegaEps = 1e-9

// Control is a differential-drive command: linear velocity v and angular
// velocity ω. The elapsed time Δt is supplied per call.
type Control struct {
	V     float64 // linear velocity
	Omega float64 // angular velocity
}

// propagatePose integrates the pose forward by Δt under the control, using
// the exact circular-arc form when ω is non-negligible.
func propagatePose(x, y, θ float64, u Control, Δt float64) (nx, ny, nθ float64) {
	if math.Abs(u.Omega) < omegaEps {
		return x + u.V*Δt*math.Cos(θ), y + u.V*Δt*math.Sin(θ), θ
	}
	r := u.V / u.Omega
	nx = x + r*(-math.Sin(θ)+math.Sin(θ+u.Omega*Δt))
	ny = y + r*(math.Cos(θ)-math.Cos(θ+u.Omega*Δt))
	nθ = θ + u.Omega*Δt
	return nx, ny, nθ
}

// motionJacobian returns the 3x3 pose block of the state transition Jacobian
// G. Only the ∂x/∂θ and ∂y/∂θ entries differ from identity; all landmark
// rows and columns of the full G are identity, reflecting the static-landmark
// assumption.
func motionJacobian(θ float64, u Control, Δt float64) *mat.Dense {
	g := mat.NewDense(poseDim, poseDim, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	if math.Abs(u.Omega) < omegaEps {
		g.Set(0, 2, -u.V*Δt*math.Sin(θ))
		g.Set(1, 2, u.V*Δt*math.Cos(θ))
		return g
	}
	r := u.V / u.Omega
	g.Set(0, 2, r*(-math.Cos(θ)+math.Cos(θ+u.Omega*Δt)))
	g.Set(1, 2, r*(-math.Sin(θ)+math.Sin(θ+u.Omega*Δt)))
	return g
}

// predictState advances the pose block of the mean and pushes the full joint
// covariance through the linearized process model:
//
//	P ← G·P·Gᵀ + F·Q·Fᵀ
//
// where F projects the 3x3 process noise Q into the joint dimension (zero in
// all landmark rows). N is unchanged by prediction.
func predictState(s *JointState, u Control, Δt float64, Q mat.Symmetric) error {
	if Δt <= 0 {
		return errors.Wrapf(ErrInvalidInput, "Δt must be positive, got %g", Δt)
	}
	if math.IsNaN(u.V) || math.IsNaN(u.Omega) {
		return errors.Wrap(ErrInvalidInput, "control contains NaN")
	}
	if err := checkMatDims(Q, mat.NewSymDense(poseDim, nil), "Q", "pose block", rowsAndcols); err != nil {
		return err
	}

	dim := s.Dim()
	x, y, θ := s.Pose()

	// Full state transition Jacobian: identity outside the pose block.
	G := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		G.Set(i, i, 1)
	}
	g3 := motionJacobian(θ, u, Δt)
	G.Set(0, 2, g3.At(0, 2))
	G.Set(1, 2, g3.At(1, 2))

	var GP, GPGt mat.Dense
	GP.Mul(G, s.covar)
	GPGt.Mul(&GP, G.T())
	// F·Q·Fᵀ only touches the pose block.
	for i := 0; i < poseDim; i++ {
		for j := 0; j < poseDim; j++ {
			GPGt.Set(i, j, GPGt.At(i, j)+Q.At(i, j))
		}
	}

	nx, ny, nθ := propagatePose(x, y, θ, u, Δt)
	s.setPose(nx, ny, nθ)
	s.replaceCovariance(Symmetrize(&GPGt))
	return nil
}
