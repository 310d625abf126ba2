package goslam

import "gonum.org/v1/gonum/mat"

// FilterType allows for quick comparison of estimators.
type FilterType uint8

const (
	// EKFSLAMType is the single-hypothesis extended Kalman filter estimator.
	EKFSLAMType FilterType = iota + 1
	// FastSLAMType is reserved for a multi-hypothesis particle estimator
	// satisfying the same StateEstimator interface (weighted JointState
	// particles plus resampling). Not implemented.
	FastSLAMType
)

// StateEstimator is the capability interface of a SLAM estimator: it fuses
// motion commands with range/bearing observations into one joint estimate of
// the agent pose and every landmark seen so far.
//
// An estimator is synchronous and single-writer: Predict and Observe must be
// serialized by the caller. Estimators for distinct agents share nothing and
// may run concurrently.
type StateEstimator interface {
	Predict(u Control, Δt float64) error
	Observe(obs Observation) (Estimate, error)
	Snapshot() Estimate
	NumLandmarks() int
	Type() FilterType
	Reset()
	String() string
}

// Estimate is an immutable snapshot of the estimator, returned from Observe
// and Snapshot. It never aliases the filter's internal state.
type Estimate interface {
	State() *mat.VecDense        // Returns the joint mean (pose then landmarks)
	Pose() (x, y, θ float64)     // Returns the pose block of the mean
	Landmark(i int) (lx, ly float64, err error)
	NumLandmarks() int
	Innovation() *mat.VecDense // Returns z − ẑ for the correction that produced this estimate
	Covariance() mat.Symmetric // Returns the joint covariance
	IsWithinNσ(N float64) bool // Whether each state entry lies within N·σ of zero (for error estimates)
	String() string            // Must implement the stringer interface.
}
