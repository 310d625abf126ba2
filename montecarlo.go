package goslam

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Scenario builds one independent world/estimator pair for a Monte Carlo
// run. Each run must get its own noise stream (seed on the run number) so
// that the samples are independent.
type Scenario func(run int) (*TruthWorld, *EKFSLAM)

// MonteCarloRuns stores MC runs of an estimator against its truth world.
// Each stored estimate is an error estimate (estimated − true) so that the
// consistency statistics read directly off it.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []MonteCarloRun
}

// MonteCarloRun stores the per-step error estimates of one run.
type MonteCarloRun struct {
	Estimates []Estimate
}

// NewMonteCarloRuns drives the scenario samples times for len(controls)
// steps. Each step predicts with the control, advances the truth, then
// observes every truth landmark in index order. Observation skips
// (recoverable errors) are tolerated: the recorded estimate is the post-step
// snapshot either way.
func NewMonteCarloRuns(samples int, controls []Control, Δt float64, scenario Scenario) MonteCarloRuns {
	if len(controls) < 1 {
		panic("must provide at least one control")
	}
	steps := len(controls)
	runs := make([]MonteCarloRun, samples)
	for sample := 0; sample < samples; sample++ {
		world, kf := scenario(sample)
		mcRun := MonteCarloRun{Estimates: make([]Estimate, steps)}
		for k := 0; k < steps; k++ {
			if err := kf.Predict(controls[k], Δt); err != nil {
				panic(err)
			}
			world.Advance(controls[k], Δt)
			for i := 0; i < world.NumLandmarks(); i++ {
				obs, err := world.ObservationOf(i)
				if err != nil {
					panic(err)
				}
				kf.Observe(obs) // recoverable skips leave the state intact
			}
			mcRun.Estimates[k] = world.Error(kf.Snapshot())
		}
		runs[sample] = mcRun
	}
	return MonteCarloRuns{samples, steps, runs}
}

// Mean returns the mean of all the samples for the given time step.
func (mc MonteCarloRuns) Mean(step int) []float64 {
	rows := mc.Runs[0].Estimates[step].State().Len()
	states := make(map[int][]float64)
	for i := 0; i < rows; i++ {
		states[i] = make([]float64, len(mc.Runs))
	}
	for r, run := range mc.Runs {
		state := run.Estimates[step].State()
		for i := 0; i < rows; i++ {
			states[i][r] = state.AtVec(i)
		}
	}
	means := make([]float64, rows)
	for i := 0; i < rows; i++ {
		means[i] = stat.Mean(states[i], nil)
	}
	return means
}

// StdDev returns the standard deviation of all the samples for the given
// time step.
func (mc MonteCarloRuns) StdDev(step int) []float64 {
	rows := mc.Runs[0].Estimates[step].State().Len()
	states := make(map[int][]float64)
	for i := 0; i < rows; i++ {
		states[i] = make([]float64, len(mc.Runs))
	}
	for r, run := range mc.Runs {
		state := run.Estimates[step].State()
		for i := 0; i < rows; i++ {
			states[i][r] = state.AtVec(i)
		}
	}
	devs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		devs[i] = stat.StdDev(states[i], nil)
	}
	return devs
}

// AsCSV serializes the pose error rows, one column set per run plus mean and
// stddev. The pose block is the only part of the state whose size is fixed
// across steps, so it is the part exported. Does not include a file header.
func (mc MonteCarloRuns) AsCSV(headers [poseDim]string) []string {
	rtn := make([]string, poseDim)
	for i := 0; i < poseDim; i++ {
		header := headers[i]
		lines := make([]string, mc.steps+1)
		for rNo := 0; rNo < mc.runs; rNo++ {
			lines[0] += fmt.Sprintf("%s-%d,", header, rNo)
		}
		lines[0] += header + "-mean," + header + "-stddev"

		for k := 0; k < mc.steps; k++ {
			for rNo, run := range mc.Runs {
				lines[k+1] += fmt.Sprintf("%f,", run.Estimates[k].State().AtVec(i))
				if rNo == mc.runs-1 {
					mean := mc.Mean(k)
					stddev := mc.StdDev(k)
					lines[k+1] += fmt.Sprintf("%f,%f", mean[i], stddev[i])
				}
			}
		}
		rtn[i] = strings.Join(lines, "\n")
	}
	return rtn
}
