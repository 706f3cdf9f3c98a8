// Package bisection implements a bounded interval-halving root search for
// functions that are monotonic over the search bracket.
//
// The search is best-effort: it always returns a value inside [low, high],
// even when the target cannot be reached there. Result.Converged tells the
// caller whether the returned point actually sits on the target (within
// tolerance) or merely on the closest bound.
package bisection

import "math"

// Defaults used when Options leaves a field at zero.
const (
	DefaultMaxIterations = 100
	DefaultMinWidth      = 0.5
)

// Direction is the monotonicity of the evaluated function over the bracket.
type Direction int

const (
	// Increasing: f grows as x grows.
	Increasing Direction = iota
	// Decreasing: f shrinks as x grows.
	Decreasing
)

func (d Direction) String() string {
	if d == Decreasing {
		return "decreasing"
	}
	return "increasing"
}

// Func is the scalar function being searched.
type Func func(x float64) float64

// Options bounds the search. Zero values fall back to the defaults.
type Options struct {
	// Tolerance is the accepted |f(x) − target|. Zero disables the early exit.
	Tolerance float64
	// MaxIterations caps the number of midpoint evaluations.
	MaxIterations int
	// MinWidth stops the search once the bracket is this narrow.
	MinWidth float64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MinWidth <= 0 {
		o.MinWidth = DefaultMinWidth
	}
	return o
}

// Result is the outcome of a search.
type Result struct {
	// X is the returned point: the midpoint that met the tolerance, or the
	// midpoint of the final bracket.
	X float64
	// Iterations is the number of midpoints evaluated.
	Iterations int
	// Residual is f(X) − target.
	Residual float64
	// Converged is true when the tolerance was met, or when the bracket was
	// narrowed to MinWidth and still straddles the target (X is as close as
	// MinWidth allows). It is false when the target lies outside what the
	// bracket can reach or when MaxIterations stopped a wider bracket.
	Converged bool
}

// Solve searches [low, high] for x with f(x) ≈ target. low must not exceed
// high. The loop runs at most MaxIterations times and stops once the bracket
// is no wider than MinWidth, so it terminates for any input.
func Solve(f Func, target, low, high float64, dir Direction, opts Options) Result {
	opts = opts.withDefaults()

	iterations := 0
	for iterations < opts.MaxIterations && high-low > opts.MinWidth {
		mid := (low + high) / 2
		v := f(mid)
		iterations++

		if math.Abs(v-target) < opts.Tolerance {
			return Result{X: mid, Iterations: iterations, Residual: v - target, Converged: true}
		}

		if (v < target) == (dir == Increasing) {
			low = mid
		} else {
			high = mid
		}
	}

	x := (low + high) / 2
	v := f(x)
	narrowed := high-low <= opts.MinWidth
	return Result{
		X:          x,
		Iterations: iterations,
		Residual:   v - target,
		Converged:  math.Abs(v-target) < opts.Tolerance || (narrowed && straddles(f(low), f(high), target)),
	}
}

// straddles reports whether target lies between a and b inclusive.
func straddles(a, b, target float64) bool {
	return (a-target)*(b-target) <= 0
}
