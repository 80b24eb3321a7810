// Package diffusion estimates a self-diffusion coefficient from a mean squared
// displacement sequence through the Einstein relation.
//
// The coefficient is the slope of the MSD against time divided by Divisor.
// Divisor must be set explicitly. DefaultDivisor (4) is what the command line
// uses; the textbook value is 2d for d dimensions (6 in 3D).
package diffusion

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultDivisor is the denominator applied to the MSD slope.
const DefaultDivisor = 4.

// Method is the way the MSD is turned into a slope.
type Method string

// Accepted methods. MFit fits a straight line with ordinary least squares.
// MEndpoint uses the last MSD value divided by the last time.
const (
	MFit      Method = "fit"
	MEndpoint Method = "endpoint"
)

var (
	// ErrInsufficientFrames is returned when less than 2 frames are available.
	ErrInsufficientFrames = errors.New("diffusion: at least 2 frames are required")

	// ErrInvalidParameter is returned when the estimator is misconfigured.
	ErrInvalidParameter = errors.New("diffusion: invalid parameter")
)

// Estimator holds the parameters needed to go from frame indexes to physical
// time and from a slope to a coefficient.
type Estimator struct {
	// Stride is the number of simulation steps between two frames
	Stride int

	// Dt is the physical time of one simulation step
	Dt float64

	// Divisor is applied to the slope. It must be greater than 0
	Divisor float64

	// Start and End bound the frames used by the fit, End excluded. End = 0
	// means up to the last frame
	Start int
	End   int

	// Method defaults to MFit
	Method Method
}

// Fit is the outcome of an estimation.
type Fit struct {
	Slope       float64
	Intercept   float64
	R2          float64 // NaN when the MSD is constant
	Coefficient float64
	Points      int
}

// Times returns the physical time of frames 0..n-1.
func (e *Estimator) Times(n int) []float64 {
	t := make([]float64, n)
	for k := range t {
		t[k] = float64(k)
	}
	floats.Scale(float64(e.Stride)*e.Dt, t)
	return t
}

// Check checks the parameters of the estimator.
func (e *Estimator) Check() error {
	if e.Stride <= 0 {
		return fmt.Errorf("%w: stride must be greater than 0, got %d", ErrInvalidParameter, e.Stride)
	}
	if e.Dt <= 0 || math.IsNaN(e.Dt) || math.IsInf(e.Dt, 0) {
		return fmt.Errorf("%w: dt must be a positive number, got %g", ErrInvalidParameter, e.Dt)
	}
	if e.Divisor <= 0 || math.IsNaN(e.Divisor) || math.IsInf(e.Divisor, 0) {
		return fmt.Errorf("%w: divisor must be a positive number, got %g", ErrInvalidParameter, e.Divisor)
	}
	if e.Start < 0 || e.End < 0 || (e.End != 0 && e.End <= e.Start) {
		return fmt.Errorf("%w: bad fit window [%d, %d)", ErrInvalidParameter, e.Start, e.End)
	}
	switch e.Method {
	case "", MFit, MEndpoint:
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidParameter, e.Method)
	}
	return nil
}

// Estimate derives the diffusion coefficient from msd, frame i being sampled
// at i*Stride*Dt.
func (e *Estimator) Estimate(msd []float64) (Fit, error) {
	if err := e.Check(); err != nil {
		return Fit{}, err
	}
	if len(msd) < 2 {
		return Fit{}, fmt.Errorf("%w: got %d", ErrInsufficientFrames, len(msd))
	}

	t := e.Times(len(msd))

	end := e.End
	if end == 0 {
		end = len(msd)
	}
	if end > len(msd) {
		return Fit{}, fmt.Errorf("%w: fit window ends at %d but there are %d frames", ErrInvalidParameter, end, len(msd))
	}
	if end-e.Start < 2 {
		return Fit{}, fmt.Errorf("%w: fit window [%d, %d) holds less than 2 frames", ErrInsufficientFrames, e.Start, end)
	}

	x, y := t[e.Start:end], msd[e.Start:end]

	var fit Fit
	switch e.Method {
	case MEndpoint:
		fit = endpoint(x, y)
	default:
		fit = ols(x, y)
	}

	fit.Coefficient = fit.Slope / e.Divisor
	return fit, nil
}

// ols fits y = Intercept + Slope*x.
func ols(x, y []float64) Fit {
	alpha, beta := stat.LinearRegression(x, y, nil, false)

	r2 := math.NaN()
	if floats.Min(y) != floats.Max(y) {
		r2 = stat.RSquared(x, y, nil, alpha, beta)
	}

	return Fit{Slope: beta, Intercept: alpha, R2: r2, Points: len(x)}
}

// endpoint takes the slope of the line going through the origin and the last
// point.
func endpoint(x, y []float64) Fit {
	n := len(x) - 1
	return Fit{Slope: y[n] / x[n], R2: math.NaN(), Points: len(x)}
}
