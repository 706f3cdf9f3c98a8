package hedge

import (
	"fmt"
	"math"

	"github.com/atmx/hedge-engine/internal/blackscholes"
	"github.com/atmx/hedge-engine/internal/model"
	"github.com/atmx/hedge-engine/internal/pricing"
)

// MatchPremium finds the strike of the opposite option kind (put ↔ call)
// whose theoretical premium equals the observed LTP. The search runs over
// Config.PremiumMatch.Bounds × spot; the premium is recomputed at the rounded
// strike for the report.
func (h *Hedger) MatchPremium(in model.PremiumQuote, mp model.MarketParameters) (*model.PremiumMatchResult, error) {
	if !in.Kind.Valid() {
		return nil, pricing.ErrInvalidKind
	}
	if math.IsNaN(in.LTP) || math.IsInf(in.LTP, 0) || in.LTP <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidLTP, in.LTP)
	}
	if err := pricing.ValidateMarket(mp); err != nil {
		return nil, err
	}

	target := in.Kind.Opposite()
	cfg := h.cfg.PremiumMatch
	lo, hi := cfg.Bounds.Strikes(mp.Spot)

	found, err := pricing.FindStrikeForPremium(mp, in.LTP, target, lo, hi, cfg.options()...)
	if err != nil {
		return nil, err
	}

	strike := math.Round(found.Value)
	premium := blackscholes.Price(mp.Spot, strike, mp.Years(), mp.Rate(), mp.Sigma(), target)

	return &model.PremiumMatchResult{
		TargetKind:      target,
		Strike:          strike,
		ComputedPremium: premium,
		Input:           in,
		Solve:           found.Solve,
	}, nil
}
