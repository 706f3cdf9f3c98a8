// Package pricing exposes the validated Black-Scholes entry points used by the
// hedging workflows and the HTTP API: greeks, premium, and the two inverse
// searches that find a strike for a target delta or a target premium.
//
// Inputs use caller units: volatility and rate in percent, expiry in days.
// Invalid inputs are rejected with the sentinel errors below instead of
// letting NaN or Inf leak out of the engine.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/atmx/hedge-engine/internal/bisection"
	"github.com/atmx/hedge-engine/internal/blackscholes"
	"github.com/atmx/hedge-engine/internal/model"
)

var (
	ErrInvalidSpot       = errors.New("pricing: spot must be positive")
	ErrInvalidVolatility = errors.New("pricing: volatility must be positive")
	ErrInvalidStrike     = errors.New("pricing: strike must be positive")
	ErrInvalidKind       = errors.New("pricing: option kind must be call or put")
	ErrInvalidBounds     = errors.New("pricing: strike bounds must satisfy 0 < min <= max")
	ErrInvalidTarget     = errors.New("pricing: target is not a finite number")
	ErrNotFinite         = errors.New("pricing: market parameters must be finite")
)

// Search tolerances per use case.
const (
	DeltaTolerance   = 0.001 // delta units
	PremiumTolerance = 0.01  // currency units
)

// kindRule holds the per-kind monotonicity of the two searched functions.
type kindRule struct {
	absDelta bisection.Direction // |delta| as strike rises
	premium  bisection.Direction // premium as strike rises
}

var kindRules = map[model.OptionKind]kindRule{
	model.Call: {absDelta: bisection.Decreasing, premium: bisection.Decreasing},
	model.Put:  {absDelta: bisection.Increasing, premium: bisection.Increasing},
}

// DeltaDirection returns how |delta| moves with strike for kind.
func DeltaDirection(kind model.OptionKind) bisection.Direction {
	return kindRules[kind].absDelta
}

// PremiumDirection returns how the premium moves with strike for kind.
func PremiumDirection(kind model.OptionKind) bisection.Direction {
	return kindRules[kind].premium
}

// Strike is the outcome of an inverse search.
type Strike struct {
	Value float64
	Solve model.SolveInfo
}

// Option adjusts a strike search.
type Option func(*bisection.Options)

// WithTolerance overrides the search tolerance.
func WithTolerance(tol float64) Option {
	return func(o *bisection.Options) {
		if tol > 0 {
			o.Tolerance = tol
		}
	}
}

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) Option {
	return func(o *bisection.Options) {
		if n > 0 {
			o.MaxIterations = n
		}
	}
}

// WithMinWidth overrides the bracket-width floor.
func WithMinWidth(w float64) Option {
	return func(o *bisection.Options) {
		if w > 0 {
			o.MinWidth = w
		}
	}
}

// ValidateMarket checks the market parameters the engine divides by.
func ValidateMarket(mp model.MarketParameters) error {
	if !isFinite(mp.Spot) || !isFinite(mp.VolatilityPct) || !isFinite(mp.RiskFreeRatePct) {
		return ErrNotFinite
	}
	if mp.Spot <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidSpot, mp.Spot)
	}
	if mp.VolatilityPct <= 0 {
		return fmt.Errorf("%w: %g%%", ErrInvalidVolatility, mp.VolatilityPct)
	}
	return nil
}

func validate(mp model.MarketParameters, strike float64, kind model.OptionKind) error {
	if err := ValidateMarket(mp); err != nil {
		return err
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if !isFinite(strike) || strike <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidStrike, strike)
	}
	return nil
}

// Greeks returns delta, d1 and d2 for one option.
func Greeks(mp model.MarketParameters, strike float64, kind model.OptionKind) (model.Greeks, error) {
	if err := validate(mp, strike, kind); err != nil {
		return model.Greeks{}, err
	}
	return blackscholes.Compute(mp.Spot, strike, mp.Years(), mp.Rate(), mp.Sigma(), kind), nil
}

// Price returns the theoretical premium of one option.
func Price(mp model.MarketParameters, strike float64, kind model.OptionKind) (float64, error) {
	if err := validate(mp, strike, kind); err != nil {
		return 0, err
	}
	return blackscholes.Price(mp.Spot, strike, mp.Years(), mp.Rate(), mp.Sigma(), kind), nil
}

// Evaluate returns greeks and premium for one option under a single
// validation.
func Evaluate(mp model.MarketParameters, strike float64, kind model.OptionKind) (model.Greeks, float64, error) {
	if err := validate(mp, strike, kind); err != nil {
		return model.Greeks{}, 0, err
	}
	s, t, r, v := mp.Spot, mp.Years(), mp.Rate(), mp.Sigma()
	return blackscholes.Compute(s, strike, t, r, v, kind), blackscholes.Price(s, strike, t, r, v, kind), nil
}

// FindStrikeForDelta searches [minStrike, maxStrike] for the strike whose
// |delta| equals |targetDelta|. The sign of targetDelta is ignored, so a put
// target may be passed as either −0.3 or 0.3.
func FindStrikeForDelta(
	mp model.MarketParameters,
	targetDelta float64,
	kind model.OptionKind,
	minStrike, maxStrike float64,
	opts ...Option,
) (Strike, error) {
	if err := validateSearch(mp, targetDelta, kind, minStrike, maxStrike); err != nil {
		return Strike{}, err
	}

	s, t, r, v := mp.Spot, mp.Years(), mp.Rate(), mp.Sigma()
	f := func(k float64) float64 {
		return math.Abs(blackscholes.Delta(s, k, t, r, v, kind))
	}

	o := searchOptions(DeltaTolerance, opts)
	res := bisection.Solve(f, math.Abs(targetDelta), minStrike, maxStrike, DeltaDirection(kind), o)
	return toStrike(res), nil
}

// FindStrikeForPremium searches [minStrike, maxStrike] for the strike whose
// premium equals targetPremium. Tolerance and iteration cap default to
// PremiumTolerance and bisection.DefaultMaxIterations.
func FindStrikeForPremium(
	mp model.MarketParameters,
	targetPremium float64,
	kind model.OptionKind,
	minStrike, maxStrike float64,
	opts ...Option,
) (Strike, error) {
	if err := validateSearch(mp, targetPremium, kind, minStrike, maxStrike); err != nil {
		return Strike{}, err
	}

	s, t, r, v := mp.Spot, mp.Years(), mp.Rate(), mp.Sigma()
	f := func(k float64) float64 {
		return blackscholes.Price(s, k, t, r, v, kind)
	}

	o := searchOptions(PremiumTolerance, opts)
	res := bisection.Solve(f, targetPremium, minStrike, maxStrike, PremiumDirection(kind), o)
	return toStrike(res), nil
}

func validateSearch(mp model.MarketParameters, target float64, kind model.OptionKind, minStrike, maxStrike float64) error {
	if err := ValidateMarket(mp); err != nil {
		return err
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if !isFinite(target) {
		return ErrInvalidTarget
	}
	if !isFinite(minStrike) || !isFinite(maxStrike) || minStrike <= 0 || minStrike > maxStrike {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidBounds, minStrike, maxStrike)
	}
	return nil
}

func searchOptions(tol float64, opts []Option) bisection.Options {
	o := bisection.Options{
		Tolerance:     tol,
		MaxIterations: bisection.DefaultMaxIterations,
		MinWidth:      bisection.DefaultMinWidth,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func toStrike(res bisection.Result) Strike {
	return Strike{
		Value: res.X,
		Solve: model.SolveInfo{
			Iterations: res.Iterations,
			Residual:   res.Residual,
			Converged:  res.Converged,
		},
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
