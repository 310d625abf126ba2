package goslam

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NEES computes the normalized estimation error squared eᵀ·P⁻¹·e of an error
// estimate (see TruthWorld.Error). For a consistent filter the NEES of the
// pose-and-map error is Chi-squared distributed with dim degrees of freedom.
func NEES(errEst Estimate) (float64, error) {
	e := errEst.State()
	PInv, err := Invert(errEst.Covariance())
	if err != nil {
		return 0, errors.Wrap(err, "error covariance not invertible")
	}
	var Pe mat.VecDense
	Pe.MulVec(PInv, e)
	return mat.Dot(e, &Pe), nil
}

// NEESMeans returns the across-run NEES sample mean for every step of the
// Monte Carlo runs. Steps whose error covariance is singular (e.g. a zero
// initial covariance before the first observation) are reported as NaN-free
// zeros and should be excluded from bound checks by the caller.
func NEESMeans(runs MonteCarloRuns) []float64 {
	means := make([]float64, runs.steps)
	samples := make([]float64, 0, runs.runs)
	for k := 0; k < runs.steps; k++ {
		samples = samples[:0]
		for _, run := range runs.Runs {
			nees, err := NEES(run.Estimates[k])
			if err != nil {
				continue
			}
			samples = append(samples, nees)
		}
		if len(samples) > 0 {
			means[k] = stat.Mean(samples, nil)
		}
	}
	return means
}

// NEESBounds returns the two-sided acceptance interval for the mean of runs
// NEES samples with dof degrees of freedom at the given significance level α
// (e.g. 0.05): [χ²_{runs·dof}(α/2), χ²_{runs·dof}(1−α/2)] / runs. A mean
// outside the interval flags an inconsistent (over- or under-confident)
// filter.
func NEESBounds(dof, runs int, α float64) (lo, hi float64) {
	dist := distuv.ChiSquared{K: float64(runs * dof)}
	return dist.Quantile(α / 2) / float64(runs), dist.Quantile(1 - α/2) / float64(runs)
}
