package hedge

import (
	"fmt"
	"math"

	"github.com/atmx/hedge-engine/internal/blackscholes"
	"github.com/atmx/hedge-engine/internal/model"
	"github.com/atmx/hedge-engine/internal/pricing"
)

// PositionDelta scales a raw per-unit delta by quantity and signs it by side.
func PositionDelta(rawDelta float64, quantity int, side model.PositionSide) float64 {
	return rawDelta * float64(quantity) * side.Sign()
}

// Rebalance finds the strike of a second leg that brings the combined
// position delta to zero.
//
// The new leg takes the existing leg's quantity. Its required raw delta is
// −existingPositionDelta / quantity, sign-flipped for a short leg. The strike
// search compares |delta| over Config.Rebalance.Bounds × spot. The solved
// strike is rounded to an integer before the reported deltas are computed, so
// NetDelta is near zero but not exactly zero.
//
// A leg whose delta sign cannot cancel the existing delta (e.g. a long put
// against a short call) is still solved on |delta|; the result then has
// Offsets false and NetDelta roughly doubles the exposure.
func (h *Hedger) Rebalance(existing model.OptionLeg, find model.LegSpec, mp model.MarketParameters) (*model.RebalanceResult, error) {
	if err := validateLeg(existing); err != nil {
		return nil, fmt.Errorf("existing leg: %w", err)
	}
	if !find.Kind.Valid() {
		return nil, fmt.Errorf("leg to find: %w", pricing.ErrInvalidKind)
	}
	if !find.Side.Valid() {
		return nil, fmt.Errorf("leg to find: %w", ErrInvalidSide)
	}
	if err := pricing.ValidateMarket(mp); err != nil {
		return nil, err
	}

	s, t, r, v := mp.Spot, mp.Years(), mp.Rate(), mp.Sigma()

	existingRaw := blackscholes.Delta(s, existing.Strike, t, r, v, existing.Kind)
	existingPos := PositionDelta(existingRaw, existing.Quantity, existing.Side)

	qty := existing.Quantity
	targetPos := -existingPos
	targetRaw := targetPos / float64(qty) * find.Side.Sign()

	cfg := h.cfg.Rebalance
	lo, hi := cfg.Bounds.Strikes(s)
	found, err := pricing.FindStrikeForDelta(mp, targetRaw, find.Kind, lo, hi, cfg.options()...)
	if err != nil {
		return nil, err
	}

	strike := math.Round(found.Value)
	newRaw := blackscholes.Delta(s, strike, t, r, v, find.Kind)
	newPos := PositionDelta(newRaw, qty, find.Side)

	return &model.RebalanceResult{
		Existing:              existing,
		ExistingRawDelta:      existingRaw,
		ExistingPositionDelta: existingPos,
		NewLeg: model.OptionLeg{
			Kind:     find.Kind,
			Strike:   strike,
			Quantity: qty,
			Side:     find.Side,
		},
		NewRawDelta:      newRaw,
		NewPositionDelta: newPos,
		NetDelta:         existingPos + newPos,
		Offsets:          reachableSign(targetRaw, find.Kind),
		Solve:            found.Solve,
	}, nil
}

// reachableSign reports whether kind can produce a raw delta of target's
// sign: calls are non-negative, puts non-positive.
func reachableSign(target float64, kind model.OptionKind) bool {
	if target == 0 {
		return true
	}
	if kind == model.Call {
		return target > 0
	}
	return target < 0
}

func validateLeg(leg model.OptionLeg) error {
	if !leg.Kind.Valid() {
		return pricing.ErrInvalidKind
	}
	if !leg.Side.Valid() {
		return ErrInvalidSide
	}
	if leg.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, leg.Quantity)
	}
	if math.IsNaN(leg.Strike) || math.IsInf(leg.Strike, 0) || leg.Strike <= 0 {
		return fmt.Errorf("%w: %g", pricing.ErrInvalidStrike, leg.Strike)
	}
	return nil
}
