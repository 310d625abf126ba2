package goslam

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Option configures an EKFSLAM at construction.
type Option func(*EKFSLAM)

// WithLogger attaches a logger; recovered observation skips are reported at
// Warn. The default is a no-op logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(kf *EKFSLAM) { kf.logger = logger }
}

// WithLandmarkVariance overrides the diagonal uncertainty assigned to a
// freshly committed landmark (default DefaultLandmarkVariance).
func WithLandmarkVariance(σ2 float64) Option {
	return func(kf *EKFSLAM) { kf.initVar = σ2 }
}

// NewEKFSLAM returns a new single-hypothesis EKF-SLAM estimator.
// Parameters:
// - x0: initial pose (x, y, θ)
// - covar0: initial 3x3 pose covariance
// - noise: process and measurement noise configuration
// The estimator starts with an empty map (N=0); landmarks are committed as
// unrecognized observations arrive.
func NewEKFSLAM(x0 *mat.VecDense, covar0 mat.Symmetric, noise Noise, opts ...Option) (*EKFSLAM, error) {
	state, err := NewJointState(x0, covar0)
	if err != nil {
		return nil, err
	}
	kf := &EKFSLAM{
		state:     state,
		noise:     noise,
		landmarks: newLandmarkTable(),
		initVar:   DefaultLandmarkVariance,
		logger:    zap.NewNop().Sugar(),
		initPose:  mat.VecDenseCopyOf(x0),
	}
	kf.initCovar = mat.NewSymDense(poseDim, nil)
	kf.initCovar.CopySym(covar0)
	for _, opt := range opts {
		opt(kf)
	}
	return kf, nil
}

// EKFSLAM is a single-hypothesis EKF-SLAM estimator. Use NewEKFSLAM to
// initialize. It owns one JointState and must be driven from a single
// goroutine; the whole predict/observe pipeline is synchronous.
type EKFSLAM struct {
	state     *JointState
	noise     Noise
	landmarks *landmarkTable
	initVar   float64
	logger    *zap.SugaredLogger
	step      int

	initPose  *mat.VecDense
	initCovar *mat.SymDense
}

// Type implements the StateEstimator interface.
func (kf *EKFSLAM) Type() FilterType {
	return EKFSLAMType
}

// GetNoise returns the noise configuration.
func (kf *EKFSLAM) GetNoise() Noise {
	return kf.noise
}

// SetNoise updates the noise configuration.
func (kf *EKFSLAM) SetNoise(n Noise) {
	kf.noise = n
}

// NumLandmarks returns the number of committed landmarks. It never decreases.
func (kf *EKFSLAM) NumLandmarks() int {
	return kf.state.NumLandmarks()
}

// LandmarkIndex returns the index under which the given tag was committed.
func (kf *EKFSLAM) LandmarkIndex(tag string) (int, bool) {
	i, ok := kf.landmarks.byTag[tag]
	return i, ok
}

// Reset reinitializes the estimator to its initial pose and covariance with
// an empty map.
func (kf *EKFSLAM) Reset() {
	state, err := NewJointState(kf.initPose, kf.initCovar)
	if err != nil {
		panic(err)
	}
	kf.state = state
	kf.landmarks = newLandmarkTable()
	kf.step = 0
}

// Predict advances the pose estimate and the joint covariance by Δt under
// the control. A Δt ≤ 0 or NaN control rejects the whole call with
// ErrInvalidInput and no state mutation.
func (kf *EKFSLAM) Predict(u Control, Δt float64) error {
	if err := predictState(kf.state, u, Δt, kf.noise.ProcessMatrix()); err != nil {
		return err
	}
	kf.step++
	return nil
}

// Observe runs data association on the observation and either corrects the
// joint estimate against the resolved landmark or commits a new one.
//
// Recoverable failures (singular innovation covariance, degenerate zero-range
// observation) skip this observation: the joint state is left untouched, the
// skip is logged at Warn, and the error is returned wrapped around its
// sentinel so that callers can errors.Is it. One bad observation never
// corrupts the filter.
func (kf *EKFSLAM) Observe(obs Observation) (Estimate, error) {
	idx, isNew, err := kf.landmarks.resolve(kf.state, obs)
	if err != nil {
		return nil, err
	}
	if isNew {
		idx, err = kf.landmarks.commit(kf.state, obs, kf.noise.MeasurementMatrix(obs.Range), kf.initVar)
		if err != nil {
			kf.logger.Warnw("skipping observation: cannot seed landmark", "tag", obs.Tag, "error", err)
			return nil, err
		}
		kf.logger.Debugw("committed landmark", "tag", obs.Tag, "index", idx)
		return kf.estimate(mat.NewVecDense(measDim, nil), nil), nil
	}
	est, err := kf.correct(idx, obs)
	if err != nil {
		kf.logger.Warnw("skipping observation", "landmark", idx, "error", err)
		return nil, err
	}
	return est, nil
}

// correct performs the Kalman innovation, gain computation, and joint
// state/covariance correction for one resolved observation.
func (kf *EKFSLAM) correct(idx int, obs Observation) (Estimate, error) {
	zr, zb, err := predictObservation(kf.state, idx)
	if err != nil {
		return nil, err
	}
	H, err := observationJacobian(kf.state, idx)
	if err != nil {
		return nil, err
	}
	R := kf.noise.MeasurementMatrix(obs.Range)

	// Innovation, with the bearing residual wrapped into (−π, π]: a naive
	// subtraction near the ±π boundary yields a spurious ~2π residual.
	innov := mat.NewVecDense(measDim, []float64{
		obs.Range - zr,
		wrapAngle(obs.Bearing - zb),
	})

	// S = H·P·Hᵀ + R
	var PHt, S mat.Dense
	PHt.Mul(kf.state.covar, H.T())
	S.Mul(H, &PHt)
	S.Add(&S, R)

	Sinv, err := Invert(&S)
	if err != nil {
		return nil, errors.Wrap(err, "innovation covariance not invertible")
	}

	// K = P·Hᵀ·S⁻¹
	var K mat.Dense
	K.Mul(&PHt, Sinv)

	var corr, mean mat.VecDense
	corr.MulVec(&K, innov)
	mean.AddVec(kf.state.mean, &corr)

	// Joseph form keeps the covariance symmetric positive semi-definite over
	// long runs where the bare (I−KH)·P drifts.
	dim := kf.state.Dim()
	var KH, APAt, AP, KR, KRKt mat.Dense
	KH.Mul(&K, H)
	KH.Sub(Identity(dim), &KH)
	AP.Mul(&KH, kf.state.covar)
	APAt.Mul(&AP, KH.T())
	KR.Mul(&K, R)
	KRKt.Mul(&KR, K.T())
	APAt.Add(&APAt, &KRKt)

	meanOut := mat.NewVecDense(dim, nil)
	meanOut.CopyVec(&mean)
	kf.state.replace(meanOut, Symmetrize(&APAt))
	kf.step++
	return kf.estimate(innov, &K), nil
}

// Snapshot implements the StateEstimator interface: an immutable copy of the
// current joint estimate for consumption by a planner or controller.
func (kf *EKFSLAM) Snapshot() Estimate {
	return kf.estimate(mat.NewVecDense(measDim, nil), nil)
}

func (kf *EKFSLAM) estimate(innov *mat.VecDense, gain mat.Matrix) SLAMEstimate {
	return SLAMEstimate{
		state:      kf.state.Mean(),
		innovation: innov,
		covar:      kf.state.Covariance(),
		gain:       gain,
	}
}

func (kf *EKFSLAM) String() string {
	return fmt.Sprintf("EKFSLAM[k=%d N=%d]\n%s", kf.step, kf.NumLandmarks(), kf.noise)
}

// SLAMEstimate is the output of each Observe call and of Snapshot. It
// implements the Estimate interface and shares no storage with the filter.
type SLAMEstimate struct {
	state      *mat.VecDense
	innovation *mat.VecDense
	covar      mat.Symmetric
	gain       mat.Matrix
}

// State implements the Estimate interface.
func (e SLAMEstimate) State() *mat.VecDense {
	return e.state
}

// Pose implements the Estimate interface.
func (e SLAMEstimate) Pose() (x, y, θ float64) {
	return e.state.AtVec(0), e.state.AtVec(1), e.state.AtVec(2)
}

// Landmark implements the Estimate interface.
func (e SLAMEstimate) Landmark(i int) (lx, ly float64, err error) {
	if i < 0 || i >= e.NumLandmarks() {
		return 0, 0, errors.Wrapf(ErrInvalidInput, "no landmark %d (N=%d)", i, e.NumLandmarks())
	}
	base := poseDim + landmarkDim*i
	return e.state.AtVec(base), e.state.AtVec(base + 1), nil
}

// NumLandmarks implements the Estimate interface.
func (e SLAMEstimate) NumLandmarks() int {
	return (e.state.Len() - poseDim) / landmarkDim
}

// Innovation implements the Estimate interface.
func (e SLAMEstimate) Innovation() *mat.VecDense {
	return e.innovation
}

// Covariance implements the Estimate interface.
func (e SLAMEstimate) Covariance() mat.Symmetric {
	return e.covar
}

// Gain returns the Kalman gain of the correction that produced this
// estimate, or nil for snapshots and landmark commits.
func (e SLAMEstimate) Gain() mat.Matrix {
	return e.gain
}

// IsWithinNσ returns whether each state entry lies within the N·σ bounds.
// Meaningful on error estimates (see TruthWorld.Error).
func (e SLAMEstimate) IsWithinNσ(N float64) bool {
	for i := 0; i < e.state.Len(); i++ {
		Nσ := N * math.Sqrt(e.covar.At(i, i))
		if e.state.AtVec(i) > Nσ || e.state.AtVec(i) < -Nσ {
			return false
		}
	}
	return true
}

func (e SLAMEstimate) String() string {
	state := mat.Formatted(e.State(), mat.Prefix("  "))
	covar := mat.Formatted(e.Covariance(), mat.Prefix("  "))
	innov := mat.Formatted(e.Innovation(), mat.Prefix("  "))
	return fmt.Sprintf("{\ns=%v\nP=%v\ni=%v\n}", state, covar, innov)
}
