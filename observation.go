package goslam

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// measDim is the size of a range/bearing measurement.
const measDim = 2

// NoIndex marks an observation that carries no explicit landmark index; the
// association then falls back to the tag, and an unknown tag commits a new
// landmark.
const NoIndex = -1

// degenerateQ is the squared-distance below which a landmark is considered
// coincident with the agent. The observation Jacobian divides by q, so such
// observations are rejected instead of propagating a division by zero.
const degenerateQ = 1e-12

// Observation is a range/bearing measurement of a landmark, relative to the
// agent's current pose estimate. Association is index- or tag-driven: set
// Index to address a committed landmark directly, or leave it at NoIndex and
// carry a Tag. There is no geometric nearest-neighbor gating; the association
// hint in the observation itself is authoritative.
type Observation struct {
	Range   float64
	Bearing float64
	Tag     string // signature used for tag-driven association
	Index   int    // explicit landmark index, or NoIndex
}

// NewObservation returns a tag-associated observation.
func NewObservation(rng, bearing float64, tag string) Observation {
	return Observation{Range: rng, Bearing: bearing, Tag: tag, Index: NoIndex}
}

// predictObservation computes the predicted range/bearing of landmark i from
// the current joint state. The bearing is wrapped into (−π, π].
func predictObservation(s *JointState, i int) (rng, bearing float64, err error) {
	x, y, θ := s.Pose()
	lx, ly, err := s.Landmark(i)
	if err != nil {
		return 0, 0, err
	}
	Δx := lx - x
	Δy := ly - y
	q := Δx*Δx + Δy*Δy
	if q < degenerateQ {
		return 0, 0, errors.Wrapf(ErrDegenerateObservation, "landmark %d coincides with agent position", i)
	}
	return math.Sqrt(q), wrapAngle(math.Atan2(Δy, Δx) - θ), nil
}

// observationJacobian returns the 2x(3+2N) measurement Jacobian H of
// landmark i. Its only non-zero blocks are the pose columns and the observed
// landmark's own columns; every other landmark's columns are structurally
// zero, which is what keeps the correction cost from growing with the map.
func observationJacobian(s *JointState, i int) (*mat.Dense, error) {
	x, y, _ := s.Pose()
	lx, ly, err := s.Landmark(i)
	if err != nil {
		return nil, err
	}
	Δx := lx - x
	Δy := ly - y
	q := Δx*Δx + Δy*Δy
	if q < degenerateQ {
		return nil, errors.Wrapf(ErrDegenerateObservation, "landmark %d coincides with agent position", i)
	}
	sq := math.Sqrt(q)

	H := mat.NewDense(measDim, s.Dim(), nil)
	base := poseDim + landmarkDim*i
	// Range row.
	H.Set(0, 0, -Δx/sq)
	H.Set(0, 1, -Δy/sq)
	H.Set(0, base, Δx/sq)
	H.Set(0, base+1, Δy/sq)
	// Bearing row.
	H.Set(1, 0, Δy/q)
	H.Set(1, 1, -Δx/q)
	H.Set(1, 2, -1)
	H.Set(1, base, -Δy/q)
	H.Set(1, base+1, Δx/q)
	return H, nil
}
