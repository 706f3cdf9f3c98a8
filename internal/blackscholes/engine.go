// Package blackscholes implements European option pricing under the
// Black-Scholes model.
//
// The functions here are plain float64 math with no validation: a zero
// volatility or strike yields Inf/NaN. Callers that accept user input go
// through the pricing package, which rejects such values first. Time to
// expiry is the one input that is repaired rather than rejected: anything
// not strictly positive is floored at model.MinYears.
package blackscholes

import (
	"math"

	"github.com/atmx/hedge-engine/internal/model"
)

// clampYears floors t at model.MinYears.
func clampYears(t float64) float64 {
	if t <= 0 {
		return model.MinYears
	}
	return t
}

// D1D2 computes the standardized Black-Scholes terms:
//
//	d1 = (ln(S/K) + (r + σ²/2)·T) / (σ·√T)
//	d2 = d1 − σ·√T
func D1D2(spot, strike, t, rate, vol float64) (d1, d2 float64) {
	t = clampYears(t)
	volSqrtT := vol * math.Sqrt(t)
	d1 = (math.Log(spot/strike) + (rate+0.5*vol*vol)*t) / volSqrtT
	d2 = d1 - volSqrtT
	return d1, d2
}

// Delta returns the raw per-unit delta: N(d1) for calls, N(d1) − 1 for puts.
// It is not signed by position side.
func Delta(spot, strike, t, rate, vol float64, kind model.OptionKind) float64 {
	d1, _ := D1D2(spot, strike, t, rate, vol)
	return deltaFromD1(d1, kind)
}

func deltaFromD1(d1 float64, kind model.OptionKind) float64 {
	if kind == model.Put {
		return NormalCDF(d1) - 1
	}
	return NormalCDF(d1)
}

// Price returns the Black-Scholes premium:
//
//	call = S·N(d1) − K·e^(−rT)·N(d2)
//	put  = K·e^(−rT)·N(−d2) − S·N(−d1)
//
// Deep out-of-the-money tails can come out a hair below zero through the CDF
// approximation; the result is floored at zero.
func Price(spot, strike, t, rate, vol float64, kind model.OptionKind) float64 {
	t = clampYears(t)
	d1, d2 := D1D2(spot, strike, t, rate, vol)
	discounted := strike * math.Exp(-rate*t)

	var p float64
	if kind == model.Put {
		p = discounted*NormalCDF(-d2) - spot*NormalCDF(-d1)
	} else {
		p = spot*NormalCDF(d1) - discounted*NormalCDF(d2)
	}
	return math.Max(0, p)
}

// Compute returns delta, d1 and d2 in one pass.
func Compute(spot, strike, t, rate, vol float64, kind model.OptionKind) model.Greeks {
	d1, d2 := D1D2(spot, strike, t, rate, vol)
	return model.Greeks{
		Delta: deltaFromD1(d1, kind),
		D1:    d1,
		D2:    d2,
	}
}
