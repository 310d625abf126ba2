package goslam

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultLandmarkVariance is the diagonal uncertainty assigned to a freshly
// committed landmark, on top of the pose-correlated terms: unknown until
// observed again.
const DefaultLandmarkVariance = 1000.0

// landmarkTable maps observation tags to landmark indices. Association is
// purely tag/index driven; there is no Mahalanobis gating (a deliberate
// simplification carried over from the sensing design, where the association
// tag travels with the broadcast observation).
type landmarkTable struct {
	byTag map[string]int
	tags  []string
}

func newLandmarkTable() *landmarkTable {
	return &landmarkTable{byTag: make(map[string]int)}
}

// resolve decides whether the observation refers to a committed landmark.
// An explicit index wins over the tag; an unknown tag means a new landmark.
func (t *landmarkTable) resolve(s *JointState, obs Observation) (idx int, isNew bool, err error) {
	if obs.Index != NoIndex {
		if obs.Index < 0 || obs.Index >= s.NumLandmarks() {
			return 0, false, errors.Wrapf(ErrInvalidInput, "observation addresses landmark %d but N=%d", obs.Index, s.NumLandmarks())
		}
		return obs.Index, false, nil
	}
	if i, ok := t.byTag[obs.Tag]; ok {
		return i, false, nil
	}
	return 0, true, nil
}

// tagOf returns the tag under which landmark i was committed.
func (t *landmarkTable) tagOf(i int) string {
	if i < 0 || i >= len(t.tags) {
		return ""
	}
	return t.tags[i]
}

// commit appends the observed landmark to the joint state and registers its
// tag. The new mean entries are the observation transformed through the
// current pose estimate into the world frame, never raw sensor units. The
// new covariance rows/columns are built from the inverse-observation
// Jacobians so that the landmark's uncertainty stays correlated with the
// pose uncertainty at first sighting:
//
//	P_LL    = Jxr·P_rr·Jxrᵀ + Jz·R·Jzᵀ + σ₀²·I
//	P_rL    = P_rr·Jxrᵀ
//	P_L,old = Jxr·P_r,old
//
// σ₀² is the configured large-uncertainty prior (DefaultLandmarkVariance).
// The append is atomic and symmetric: mean and covariance grow together.
func (t *landmarkTable) commit(s *JointState, obs Observation, R mat.Symmetric, initVar float64) (int, error) {
	if obs.Range < 0 || math.IsNaN(obs.Range) || math.IsNaN(obs.Bearing) {
		return 0, errors.Wrapf(ErrInvalidInput, "malformed observation range=%g bearing=%g", obs.Range, obs.Bearing)
	}
	if obs.Range*obs.Range < degenerateQ {
		return 0, errors.Wrap(ErrDegenerateObservation, "zero-range observation cannot seed a landmark")
	}

	x, y, θ := s.Pose()
	φ := θ + obs.Bearing
	sinφ, cosφ := math.Sin(φ), math.Cos(φ)
	lx := x + obs.Range*cosφ
	ly := y + obs.Range*sinφ

	// ∂landmark/∂pose and ∂landmark/∂measurement at first sighting.
	Jxr := mat.NewDense(landmarkDim, poseDim, []float64{
		1, 0, -obs.Range * sinφ,
		0, 1, obs.Range * cosφ,
	})
	Jz := mat.NewDense(landmarkDim, measDim, []float64{
		cosφ, -obs.Range * sinφ,
		sinφ, obs.Range * cosφ,
	})

	dim := s.Dim()
	Prr := mat.NewDense(poseDim, poseDim, nil)
	for i := 0; i < poseDim; i++ {
		for j := 0; j < poseDim; j++ {
			Prr.Set(i, j, s.covar.At(i, j))
		}
	}

	var JxrP, Pll mat.Dense
	JxrP.Mul(Jxr, Prr)
	Pll.Mul(&JxrP, Jxr.T())
	var JzR, JzRJzt mat.Dense
	JzR.Mul(Jz, R)
	JzRJzt.Mul(&JzR, Jz.T())
	Pll.Add(&Pll, &JzRJzt)
	for i := 0; i < landmarkDim; i++ {
		Pll.Set(i, i, Pll.At(i, i)+initVar)
	}

	var Prl mat.Dense
	Prl.Mul(Prr, Jxr.T())

	var Plm *mat.Dense
	if dim > poseDim {
		Prm := mat.NewDense(poseDim, dim-poseDim, nil)
		for i := 0; i < poseDim; i++ {
			for j := poseDim; j < dim; j++ {
				Prm.Set(i, j-poseDim, s.covar.At(i, j))
			}
		}
		Plm = &mat.Dense{}
		Plm.Mul(Jxr, Prm)
	}

	idx, err := s.AppendLandmark(lx, ly, Symmetrize(&Pll), &Prl, Plm)
	if err != nil {
		return 0, err
	}
	t.byTag[obs.Tag] = idx
	t.tags = append(t.tags, obs.Tag)
	return idx, nil
}
