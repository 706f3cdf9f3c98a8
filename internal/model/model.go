// Package model defines the core domain types shared across the hedge engine.
// Engine math runs on float64; monetary values crossing the API boundary are
// converted to shopspring/decimal by the quote package.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinYears is the floor applied to time to expiry. Expired or same-day
// contracts are priced as if 0.001 years remained instead of failing.
const MinYears = 0.001

// DaysPerYear converts calendar days to years.
const DaysPerYear = 365.0

// OptionKind is either a call or a put.
type OptionKind string

const (
	Call OptionKind = "call"
	Put  OptionKind = "put"
)

// Valid reports whether k is one of the two supported kinds.
func (k OptionKind) Valid() bool {
	return k == Call || k == Put
}

// Opposite returns put for call and call for put.
func (k OptionKind) Opposite() OptionKind {
	if k == Call {
		return Put
	}
	return Call
}

// PositionSide is long or short.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// Valid reports whether s is long or short.
func (s PositionSide) Valid() bool {
	return s == Long || s == Short
}

// Sign is the multiplier applied to a raw per-unit delta: -1 for short, +1 for long.
func (s PositionSide) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// MarketParameters are the market inputs of one computation. Volatility and
// rate are carried in percent, the way callers supply them.
type MarketParameters struct {
	Spot            float64 `json:"spot"`
	DaysToExpiry    int     `json:"days_to_expiry"`
	VolatilityPct   float64 `json:"volatility_pct"`
	RiskFreeRatePct float64 `json:"risk_free_rate_pct"`
}

// Years returns time to expiry in years, floored at MinYears.
func (m MarketParameters) Years() float64 {
	t := float64(m.DaysToExpiry) / DaysPerYear
	if t <= 0 {
		return MinYears
	}
	return t
}

// Sigma returns annualized volatility as a fraction.
func (m MarketParameters) Sigma() float64 {
	return m.VolatilityPct / 100
}

// Rate returns the annualized risk-free rate as a fraction.
func (m MarketParameters) Rate() float64 {
	return m.RiskFreeRatePct / 100
}

// OptionLeg is one real or hypothetical holding.
type OptionLeg struct {
	Kind     OptionKind   `json:"kind"`
	Strike   float64      `json:"strike"`
	Quantity int          `json:"quantity"`
	Side     PositionSide `json:"side"`
}

// LegSpec describes a leg whose strike is still unknown.
type LegSpec struct {
	Kind OptionKind   `json:"kind"`
	Side PositionSide `json:"side"`
}

// PremiumQuote is an observed option price (last traded price).
type PremiumQuote struct {
	Kind   OptionKind `json:"kind"`
	Strike float64    `json:"strike"`
	LTP    float64    `json:"ltp"`
}

// Greeks holds the raw delta and the Black-Scholes auxiliary terms.
type Greeks struct {
	Delta float64 `json:"delta"`
	D1    float64 `json:"d1"`
	D2    float64 `json:"d2"`
}

// SolveInfo reports how a strike search ended.
type SolveInfo struct {
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
	Converged  bool    `json:"converged"`
}

// RebalanceResult is the outcome of a delta-neutral rebalance.
type RebalanceResult struct {
	Existing              OptionLeg `json:"existing"`
	ExistingRawDelta      float64   `json:"existing_raw_delta"`
	ExistingPositionDelta float64   `json:"existing_position_delta"`
	NewLeg                OptionLeg `json:"new_leg"` // strike rounded to an integer
	NewRawDelta           float64   `json:"new_raw_delta"`
	NewPositionDelta      float64   `json:"new_position_delta"`
	NetDelta              float64   `json:"net_delta"`
	Offsets               bool      `json:"offsets"` // false when the new leg adds to the existing delta
	Solve                 SolveInfo `json:"solve"`
}

// PremiumMatchResult is the outcome of matching an observed premium with the
// opposite option kind.
type PremiumMatchResult struct {
	TargetKind      OptionKind   `json:"target_kind"`
	Strike          float64      `json:"strike"` // rounded to an integer
	ComputedPremium float64      `json:"computed_premium"`
	Input           PremiumQuote `json:"input"`
	Solve           SolveInfo    `json:"solve"`
}

// Workflow names used for stored quotes, metrics and broadcasts.
const (
	WorkflowRebalance    = "rebalance"
	WorkflowPremiumMatch = "premium_match"
)

// Quote is a workflow result as served and stored by the API. Prices and
// deltas are rounded decimals.
type Quote struct {
	ID        string           `json:"id"`
	Workflow  string           `json:"workflow"`
	Market    MarketParameters `json:"market"`
	CreatedAt time.Time        `json:"created_at"`

	Rebalance    *RebalanceQuote    `json:"rebalance,omitempty"`
	PremiumMatch *PremiumMatchQuote `json:"premium_match,omitempty"`
}

// LegQuote is one leg of a rebalance quote.
type LegQuote struct {
	Kind          OptionKind      `json:"kind"`
	Side          PositionSide    `json:"side"`
	Strike        decimal.Decimal `json:"strike"`
	Quantity      int             `json:"quantity"`
	RawDelta      decimal.Decimal `json:"raw_delta"`
	PositionDelta decimal.Decimal `json:"position_delta"`
}

// RebalanceQuote is the wire form of RebalanceResult.
type RebalanceQuote struct {
	Existing  LegQuote        `json:"existing_leg"`
	NewLeg    LegQuote        `json:"new_leg"`
	NetDelta  decimal.Decimal `json:"net_delta"`
	Offsets   bool            `json:"offsets"`
	Converged bool            `json:"converged"`
}

// PremiumMatchQuote is the wire form of PremiumMatchResult.
type PremiumMatchQuote struct {
	TargetKind      OptionKind      `json:"target_kind"`
	MatchingStrike  decimal.Decimal `json:"matching_strike"`
	ComputedPremium decimal.Decimal `json:"computed_premium"`
	InputKind       OptionKind      `json:"input_kind"`
	InputStrike     decimal.Decimal `json:"input_strike"`
	InputLTP        decimal.Decimal `json:"input_ltp"`
	Converged       bool            `json:"converged"`
}
