package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/atmx/hedge-engine/internal/bisection"
	"github.com/atmx/hedge-engine/internal/blackscholes"
	"github.com/atmx/hedge-engine/internal/model"
)

// market is the near-month desk market: spot 828, 18 days, 20% vol, 6.5% rate.
func market() model.MarketParameters {
	return model.MarketParameters{
		Spot:            828,
		DaysToExpiry:    18,
		VolatilityPct:   20,
		RiskFreeRatePct: 6.5,
	}
}

// --- Direction table ---

func TestDirections(t *testing.T) {
	tests := []struct {
		kind           model.OptionKind
		delta, premium bisection.Direction
	}{
		{model.Call, bisection.Decreasing, bisection.Decreasing},
		{model.Put, bisection.Increasing, bisection.Increasing},
	}
	for _, tt := range tests {
		if got := DeltaDirection(tt.kind); got != tt.delta {
			t.Errorf("%s delta direction: got %s, want %s", tt.kind, got, tt.delta)
		}
		if got := PremiumDirection(tt.kind); got != tt.premium {
			t.Errorf("%s premium direction: got %s, want %s", tt.kind, got, tt.premium)
		}
	}
}

// --- Greeks / Price ---

func TestGreeks_ConvertsPercentUnits(t *testing.T) {
	g, err := Greeks(market(), 850, model.Call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := blackscholes.Compute(828, 850, 18.0/365.0, 0.065, 0.20, model.Call)
	if g != want {
		t.Errorf("got %+v, want %+v", g, want)
	}
	if g.Delta < 0.30 || g.Delta > 0.35 {
		t.Errorf("850 call delta out of range: %.4f", g.Delta)
	}
}

func TestGreeks_ExpiredClampsTime(t *testing.T) {
	mp := market()
	mp.DaysToExpiry = -3
	g, err := Greeks(mp, 850, model.Call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(g.D1) || math.IsInf(g.D1, 0) {
		t.Errorf("expired contract should still price, got d1=%g", g.D1)
	}
}

func TestPrice_Valid(t *testing.T) {
	p, err := Price(market(), 770, model.Put)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p <= 0 || p > 10 {
		t.Errorf("expected small positive OTM put premium, got %g", p)
	}
}

func TestEvaluate_MatchesParts(t *testing.T) {
	g, p, err := Evaluate(market(), 850, model.Call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantG, _ := Greeks(market(), 850, model.Call)
	wantP, _ := Price(market(), 850, model.Call)
	if g != wantG || p != wantP {
		t.Errorf("Evaluate = (%+v, %g), want (%+v, %g)", g, p, wantG, wantP)
	}

	bad := market()
	bad.VolatilityPct = 0
	if _, _, err := Evaluate(bad, 850, model.Call); !errors.Is(err, ErrInvalidVolatility) {
		t.Errorf("expected ErrInvalidVolatility, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	zeroVol := market()
	zeroVol.VolatilityPct = 0
	negSpot := market()
	negSpot.Spot = -1
	nanRate := market()
	nanRate.RiskFreeRatePct = math.NaN()

	tests := []struct {
		name   string
		mp     model.MarketParameters
		strike float64
		kind   model.OptionKind
		want   error
	}{
		{"zero volatility", zeroVol, 850, model.Call, ErrInvalidVolatility},
		{"negative spot", negSpot, 850, model.Call, ErrInvalidSpot},
		{"nan rate", nanRate, 850, model.Call, ErrNotFinite},
		{"zero strike", market(), 0, model.Put, ErrInvalidStrike},
		{"bad kind", market(), 850, model.OptionKind("straddle"), ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Greeks(tt.mp, tt.strike, tt.kind); !errors.Is(err, tt.want) {
				t.Errorf("Greeks: expected %v, got %v", tt.want, err)
			}
			if _, err := Price(tt.mp, tt.strike, tt.kind); !errors.Is(err, tt.want) {
				t.Errorf("Price: expected %v, got %v", tt.want, err)
			}
		})
	}
}

// --- FindStrikeForDelta ---

func TestFindStrikeForDelta_RoundTrip(t *testing.T) {
	mp := market()
	for _, k0 := range []float64{780, 810, 850, 880} {
		for _, kind := range []model.OptionKind{model.Call, model.Put} {
			g, _ := Greeks(mp, k0, kind)
			res, err := FindStrikeForDelta(mp, g.Delta, kind, 0.7*mp.Spot, 1.5*mp.Spot)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(res.Value-k0) > 0.5 {
				t.Errorf("%s K0=%g: solved strike %g not within 0.5", kind, k0, res.Value)
			}
			if !res.Solve.Converged {
				t.Errorf("%s K0=%g: expected converged", kind, k0)
			}
		}
	}
}

func TestFindStrikeForDelta_SignIgnored(t *testing.T) {
	mp := market()
	neg, _ := FindStrikeForDelta(mp, -0.3, model.Put, 580, 1242)
	pos, _ := FindStrikeForDelta(mp, 0.3, model.Put, 580, 1242)
	if neg.Value != pos.Value {
		t.Errorf("put search should ignore target sign: %g vs %g", neg.Value, pos.Value)
	}
}

func TestFindStrikeForDelta_Unreachable(t *testing.T) {
	mp := market()
	// |delta| never exceeds 1; best effort drives the strike to the lower bound.
	res, err := FindStrikeForDelta(mp, 1.5, model.Call, 0.7*mp.Spot, 1.5*mp.Spot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value > 0.7*mp.Spot+0.5 {
		t.Errorf("expected strike clamped near lower bound, got %g", res.Value)
	}
	if res.Solve.Converged {
		t.Error("unreachable target must not report converged")
	}
	if res.Solve.Iterations > bisection.DefaultMaxIterations {
		t.Errorf("iterations exceeded cap: %d", res.Solve.Iterations)
	}
}

func TestFindStrikeForDelta_InvalidBounds(t *testing.T) {
	tests := []struct{ lo, hi float64 }{
		{900, 800},
		{0, 800},
		{-5, 800},
		{math.NaN(), 800},
	}
	for _, tt := range tests {
		_, err := FindStrikeForDelta(market(), 0.3, model.Call, tt.lo, tt.hi)
		if !errors.Is(err, ErrInvalidBounds) {
			t.Errorf("[%g,%g]: expected ErrInvalidBounds, got %v", tt.lo, tt.hi, err)
		}
	}
}

func TestFindStrikeForDelta_InvalidTarget(t *testing.T) {
	_, err := FindStrikeForDelta(market(), math.Inf(1), model.Call, 600, 1200)
	if !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
}

// --- FindStrikeForPremium ---

func TestFindStrikeForPremium_RoundTrip(t *testing.T) {
	mp := market()
	for _, k0 := range []float64{760, 800, 840, 870} {
		for _, kind := range []model.OptionKind{model.Call, model.Put} {
			p0, _ := Price(mp, k0, kind)
			res, err := FindStrikeForPremium(mp, p0, kind, 0.5*mp.Spot, 1.8*mp.Spot)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(res.Value-k0) > 1 {
				t.Errorf("%s K0=%g: solved strike %g not within 1", kind, k0, res.Value)
			}
		}
	}
}

func TestFindStrikeForPremium_CallForPutLTP(t *testing.T) {
	mp := market()
	res, err := FindStrikeForPremium(mp, 6.5, model.Call, 0.5*mp.Spot, 1.8*mp.Spot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value <= mp.Spot {
		t.Errorf("a 6.5 call should be out of the money, got strike %g", res.Value)
	}
	p, _ := Price(mp, res.Value, model.Call)
	// The final bracket is narrower than 0.5 and the call slope is below 1.
	if math.Abs(p-6.5) > 0.25 {
		t.Errorf("premium at solved strike %g is %g, want ≈ 6.5", res.Value, p)
	}
	if !res.Solve.Converged {
		t.Error("6.5 is reachable and should report converged")
	}
}

func TestFindStrikeForPremium_Options(t *testing.T) {
	mp := market()
	res, err := FindStrikeForPremium(mp, 6.5, model.Call, 0.5*mp.Spot, 1.8*mp.Spot,
		WithMaxIterations(3), WithTolerance(0.001))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Solve.Iterations != 3 {
		t.Errorf("expected 3 iterations, got %d", res.Solve.Iterations)
	}
	if res.Solve.Converged {
		t.Error("three halvings of a 1076-wide bracket must not report converged")
	}
}

func TestFindStrikeForPremium_IterationCapNotConverged(t *testing.T) {
	mp := market()
	res, err := FindStrikeForPremium(mp, 6.5, model.Call, 0.5*mp.Spot, 1.8*mp.Spot, WithMaxIterations(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Solve.Iterations != 1 {
		t.Errorf("expected 1 iteration, got %d", res.Solve.Iterations)
	}
	// The single midpoint leaves the strike far from the 6.50 call.
	if math.Abs(res.Solve.Residual) < 1 {
		t.Fatalf("expected a large residual after one step, got %g", res.Solve.Residual)
	}
	if res.Solve.Converged {
		t.Errorf("search stopped by the iteration cap reported converged: strike=%g residual=%g",
			res.Value, res.Solve.Residual)
	}
}

func TestFindStrikeForPremium_Unreachable(t *testing.T) {
	mp := market()
	// No call in [0.5, 1.8] × spot is worth more than spot itself.
	res, err := FindStrikeForPremium(mp, 10_000, model.Call, 0.5*mp.Spot, 1.8*mp.Spot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value > 0.5*mp.Spot+0.5 {
		t.Errorf("expected strike at lower bound, got %g", res.Value)
	}
	if res.Solve.Converged {
		t.Error("unreachable premium must not report converged")
	}
}
