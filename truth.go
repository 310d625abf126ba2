package goslam

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Point is a true landmark position in the world frame.
type Point struct {
	X, Y float64
}

// TruthWorld holds a ground-truth agent pose and landmark map and generates
// the controls' true effect and (optionally noisy) range/bearing observations
// of its landmarks. It exists for testing and Monte Carlo analysis: the
// estimator under test only ever sees controls and observations, never the
// truth.
type TruthWorld struct {
	x, y, θ   float64
	landmarks []Point
	tags      []string
	noise     Noise
	step      int
}

// NewTruthWorld returns a ground truth world at the given pose. Landmark i is
// tagged "L<i>" for tag-driven association.
func NewTruthWorld(x, y, θ float64, landmarks []Point, noise Noise) *TruthWorld {
	tags := make([]string, len(landmarks))
	for i := range landmarks {
		tags[i] = fmt.Sprintf("L%d", i)
	}
	if noise == nil {
		noise = Noiseless{}
	}
	return &TruthWorld{x: x, y: y, θ: θ, landmarks: landmarks, tags: tags, noise: noise}
}

// Pose returns the true agent pose.
func (w *TruthWorld) Pose() (x, y, θ float64) {
	return w.x, w.y, w.θ
}

// Tag returns the association tag of landmark i.
func (w *TruthWorld) Tag(i int) string {
	return w.tags[i]
}

// NumLandmarks returns the number of true landmarks.
func (w *TruthWorld) NumLandmarks() int {
	return len(w.landmarks)
}

// Advance moves the true pose by the control over Δt using the same
// exact-integration motion equations the estimator linearizes.
func (w *TruthWorld) Advance(u Control, Δt float64) {
	w.x, w.y, w.θ = propagatePose(w.x, w.y, w.θ, u, Δt)
	w.θ = wrapAngle(w.θ)
	w.step++
}

// ObservationOf returns a range/bearing observation of true landmark i from
// the true pose, corrupted by one measurement noise draw.
func (w *TruthWorld) ObservationOf(i int) (Observation, error) {
	if i < 0 || i >= len(w.landmarks) {
		return Observation{}, errors.Wrapf(ErrInvalidInput, "no true landmark %d", i)
	}
	lm := w.landmarks[i]
	Δx := lm.X - w.x
	Δy := lm.Y - w.y
	rng := math.Hypot(Δx, Δy)
	bearing := wrapAngle(math.Atan2(Δy, Δx) - w.θ)
	v := w.noise.Measurement(w.step)
	obs := NewObservation(rng+v.AtVec(0), wrapAngle(bearing+v.AtVec(1)), w.tags[i])
	if obs.Range < 0 {
		obs.Range = 0
	}
	return obs, nil
}

// Error compares an estimate against the truth and returns an error
// estimate: its state holds the estimation errors (estimated − true, pose
// heading wrapped) under the estimate's own covariance, so IsWithinNσ and
// NEES read directly off it. Landmarks the estimate carries beyond the truth
// map are an error in themselves and panic, since they indicate a test
// wiring defect.
func (w *TruthWorld) Error(est Estimate) Estimate {
	n := est.NumLandmarks()
	if n > len(w.landmarks) {
		panic(errors.Wrapf(ErrDimensionMismatch, "estimate has %d landmarks, truth has %d", n, len(w.landmarks)))
	}
	errState := mat.NewVecDense(poseDim+landmarkDim*n, nil)
	ex, ey, eθ := est.Pose()
	errState.SetVec(0, ex-w.x)
	errState.SetVec(1, ey-w.y)
	errState.SetVec(2, wrapAngle(eθ-w.θ))
	// Estimator landmark i is the i-th first-sighted landmark. Drive the
	// run by observing truth landmarks in index order and the two agree.
	for i := 0; i < n; i++ {
		lx, ly, _ := est.Landmark(i)
		errState.SetVec(poseDim+landmarkDim*i, lx-w.landmarks[i].X)
		errState.SetVec(poseDim+landmarkDim*i+1, ly-w.landmarks[i].Y)
	}
	return SLAMEstimate{
		state:      errState,
		innovation: est.Innovation(),
		covar:      est.Covariance(),
	}
}
