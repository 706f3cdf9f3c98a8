// Package contract handles option symbol parsing and validation.
//
// Symbols follow {UNDERLYING}-{YYYYMMDD}-{STRIKE}-{CE|PE}, for example
// NIFTY-20250828-850-CE. CE is a call, PE a put.
package contract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/hedge-engine/internal/model"
)

// Exchange suffixes for the two option kinds.
const (
	SuffixCall = "CE"
	SuffixPut  = "PE"
)

var suffixKinds = map[string]model.OptionKind{
	SuffixCall: model.Call,
	SuffixPut:  model.Put,
}

// symbolRegex matches: {UNDERLYING}-{YYYYMMDD}-{STRIKE}-{CE|PE}
var symbolRegex = regexp.MustCompile(
	`^([A-Z][A-Z0-9&]*)-(\d{8})-(\d+(?:\.\d+)?)-([A-Z]{2})$`,
)

var (
	ErrInvalidSymbol = errors.New("contract: invalid symbol format")
	ErrInvalidKind   = errors.New("contract: unsupported option suffix")
)

// Contract is a parsed option symbol.
type Contract struct {
	Symbol     string           `json:"symbol"`
	Underlying string           `json:"underlying"`
	Expiry     time.Time        `json:"expiry"`
	Strike     decimal.Decimal  `json:"strike"`
	Kind       model.OptionKind `json:"kind"`
}

// ParseSymbol parses and validates an option symbol. Lower-case input is
// accepted and normalized.
func ParseSymbol(symbol string) (*Contract, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	matches := symbolRegex.FindStringSubmatch(normalized)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected {UNDERLYING}-{YYYYMMDD}-{STRIKE}-{CE|PE})",
			ErrInvalidSymbol, symbol)
	}

	underlying := matches[1]
	dateStr := matches[2]
	strikeStr := matches[3]
	suffix := matches[4]

	kind, ok := suffixKinds[suffix]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, suffix)
	}

	expiry, err := time.Parse("20060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidSymbol, dateStr)
	}

	strike, err := decimal.NewFromString(strikeStr)
	if err != nil || !strike.IsPositive() {
		return nil, fmt.Errorf("%w: invalid strike %s", ErrInvalidSymbol, strikeStr)
	}

	return &Contract{
		Symbol:     normalized,
		Underlying: underlying,
		Expiry:     expiry,
		Strike:     strike,
		Kind:       kind,
	}, nil
}

// Format builds the symbol for the given fields.
func Format(underlying string, expiry time.Time, strike decimal.Decimal, kind model.OptionKind) string {
	suffix := SuffixCall
	if kind == model.Put {
		suffix = SuffixPut
	}
	return fmt.Sprintf("%s-%s-%s-%s", strings.ToUpper(underlying), expiry.Format("20060102"), strike.String(), suffix)
}

// StrikeFloat returns the strike as float64 for the pricing engine.
func (c *Contract) StrikeFloat() float64 {
	return c.Strike.InexactFloat64()
}

// DaysToExpiry returns whole calendar days from now until expiry, counted on
// UTC dates. It is negative for expired contracts; the engine clamps time to
// expiry on its own.
func (c *Contract) DaysToExpiry(now time.Time) int {
	n := now.UTC()
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(c.Expiry.Sub(today).Hours() / 24))
}
