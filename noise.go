package goslam

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Noise parameterizes the process (Q, 3x3 in pose space) and measurement
// (R, 2x2 range/bearing) uncertainty of the filter. Q and R are configuration
// inputs, not mutable state. The sampled Process and Measurement draws only
// matter for simulation (TruthWorld, Monte Carlo); the filter itself uses the
// matrices only.
type Noise interface {
	Process(k int) *mat.VecDense                 // Returns a process noise draw w at step k
	Measurement(k int) *mat.VecDense             // Returns a measurement noise draw v at step k
	ProcessMatrix() mat.Symmetric                // Returns the process noise matrix Q
	MeasurementMatrix(rng float64) mat.Symmetric // Returns the measurement noise matrix R for a given range
	String() string                              // Stringer interface implementation
}

// Noiseless is noiseless and implements the Noise interface.
type Noiseless struct{}

// Process returns a zero vector of the pose dimension.
func (n Noiseless) Process(k int) *mat.VecDense {
	return mat.NewVecDense(poseDim, nil)
}

// Measurement returns a zero vector of the measurement dimension.
func (n Noiseless) Measurement(k int) *mat.VecDense {
	return mat.NewVecDense(measDim, nil)
}

// ProcessMatrix implements the Noise interface.
func (n Noiseless) ProcessMatrix() mat.Symmetric {
	return mat.NewSymDense(poseDim, nil)
}

// MeasurementMatrix implements the Noise interface.
func (n Noiseless) MeasurementMatrix(rng float64) mat.Symmetric {
	return mat.NewSymDense(measDim, nil)
}

// String implements the Stringer interface.
func (n Noiseless) String() string {
	return "Noiseless{}"
}

// Static holds fixed Q and R matrices and implements the Noise interface.
// Its draws are zero: use AWGN to actually sample.
type Static struct {
	Q, R mat.Symmetric
}

// NewStatic creates a fixed noise configuration from the provided Q and R.
func NewStatic(Q, R mat.Symmetric) *Static {
	if Q == nil || R == nil {
		panic("Q and R must be specified")
	}
	if r, _ := Q.Dims(); r != poseDim {
		panic(fmt.Sprintf("Q must be %dx%d", poseDim, poseDim))
	}
	if r, _ := R.Dims(); r != measDim {
		panic(fmt.Sprintf("R must be %dx%d", measDim, measDim))
	}
	return &Static{Q, R}
}

// Process returns a zero vector of the pose dimension.
func (n Static) Process(k int) *mat.VecDense {
	return mat.NewVecDense(poseDim, nil)
}

// Measurement returns a zero vector of the measurement dimension.
func (n Static) Measurement(k int) *mat.VecDense {
	return mat.NewVecDense(measDim, nil)
}

// ProcessMatrix implements the Noise interface.
func (n Static) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface.
func (n Static) MeasurementMatrix(rng float64) mat.Symmetric {
	return n.R
}

// String implements the Stringer interface.
func (n Static) String() string {
	return fmt.Sprintf("Static{\nQ=%v\nR=%v}\n", mat.Formatted(n.Q, mat.Prefix("  ")), mat.Formatted(n.R, mat.Prefix("  ")))
}

// RangeScaled implements the Noise interface with a sensor model whose range
// variance grows linearly with the measured range: R = diag(ρ·range, β).
type RangeScaled struct {
	Q          mat.Symmetric
	RangeCoeff float64 // ρ, variance per unit range
	BearingVar float64 // β, fixed bearing variance
}

// NewRangeScaled creates a range-dependent noise configuration.
func NewRangeScaled(Q mat.Symmetric, rangeCoeff, bearingVar float64) *RangeScaled {
	if Q == nil {
		panic("Q must be specified")
	}
	if r, _ := Q.Dims(); r != poseDim {
		panic(fmt.Sprintf("Q must be %dx%d", poseDim, poseDim))
	}
	return &RangeScaled{Q, rangeCoeff, bearingVar}
}

// Process returns a zero vector of the pose dimension.
func (n RangeScaled) Process(k int) *mat.VecDense {
	return mat.NewVecDense(poseDim, nil)
}

// Measurement returns a zero vector of the measurement dimension.
func (n RangeScaled) Measurement(k int) *mat.VecDense {
	return mat.NewVecDense(measDim, nil)
}

// ProcessMatrix implements the Noise interface.
func (n RangeScaled) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface.
func (n RangeScaled) MeasurementMatrix(rng float64) mat.Symmetric {
	R := mat.NewSymDense(measDim, nil)
	R.SetSym(0, 0, n.RangeCoeff*rng)
	R.SetSym(1, 1, n.BearingVar)
	return R
}

// String implements the Stringer interface.
func (n RangeScaled) String() string {
	return fmt.Sprintf("RangeScaled{\nQ=%v\nR=diag(%g·range, %g)}\n", mat.Formatted(n.Q, mat.Prefix("  ")), n.RangeCoeff, n.BearingVar)
}

// AWGN implements the Noise interface and generates an Additive White
// Gaussian Noise with fixed Q and R. Used by the truth world and Monte Carlo
// machinery to corrupt simulated controls and observations.
type AWGN struct {
	Q, R        mat.Symmetric
	process     *distmv.Normal
	measurement *distmv.Normal
}

// NewAWGN creates new AWGN noise from the provided Q and R and seed. Q and R
// must be positive definite for the underlying normal to exist.
func NewAWGN(Q, R mat.Symmetric, seed uint64) *AWGN {
	src := rand.New(rand.NewSource(seed))
	sizeQ, _ := Q.Dims()
	process, ok := distmv.NewNormal(make([]float64, sizeQ), Q, src)
	if !ok {
		panic("process noise invalid")
	}
	sizeR, _ := R.Dims()
	meas, ok := distmv.NewNormal(make([]float64, sizeR), R, src)
	if !ok {
		panic("measurement noise invalid")
	}
	return &AWGN{Q, R, process, meas}
}

// ProcessMatrix implements the Noise interface.
func (n AWGN) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface.
func (n AWGN) MeasurementMatrix(rng float64) mat.Symmetric {
	return n.R
}

// Process implements the Noise interface.
func (n AWGN) Process(k int) *mat.VecDense {
	r := n.process.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Measurement implements the Noise interface.
func (n AWGN) Measurement(k int) *mat.VecDense {
	r := n.measurement.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// String implements the Stringer interface.
func (n AWGN) String() string {
	return fmt.Sprintf("AWGN{\nQ=%v\nR=%v}\n", mat.Formatted(n.Q, mat.Prefix("  ")), mat.Formatted(n.R, mat.Prefix("  ")))
}
