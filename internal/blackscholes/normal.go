package blackscholes

import "math"

// Zelen-Severo coefficients (Abramowitz & Stegun 26.2.17, truncated to 7
// significant digits). Existing quotes were produced with these exact values;
// swapping in math.Erf would shift every delta by up to ~1e-6.
const (
	cdfP  = 0.2316419
	cdfD  = 0.3989423
	cdfB1 = 0.3193815
	cdfB2 = -0.3565638
	cdfB3 = 1.781478
	cdfB4 = -1.821256
	cdfB5 = 1.330274
)

// NormalCDF approximates the standard normal cumulative distribution function.
// The polynomial is evaluated on |x| and reflected for positive x.
func NormalCDF(x float64) float64 {
	t := 1 / (1 + cdfP*math.Abs(x))
	d := cdfD * math.Exp(-x*x/2)
	prob := d * t * (cdfB1 + t*(cdfB2+t*(cdfB3+t*(cdfB4+t*cdfB5))))
	if x > 0 {
		return 1 - prob
	}
	return prob
}
