// Package hedge implements the two two-leg workflows built on the strike
// solvers: delta-neutral rebalancing and premium matching.
//
// A Hedger is stateless apart from its Config and is safe for concurrent use.
package hedge

import (
	"errors"
	"fmt"

	"github.com/atmx/hedge-engine/internal/bisection"
	"github.com/atmx/hedge-engine/internal/pricing"
)

var (
	ErrInvalidSide     = errors.New("hedge: position side must be long or short")
	ErrInvalidQuantity = errors.New("hedge: quantity must be positive")
	ErrInvalidLTP      = errors.New("hedge: observed premium must be positive")
)

// Bounds are strike search limits expressed as fractions of spot.
type Bounds struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Strikes converts the bounds to absolute strikes for spot.
func (b Bounds) Strikes(spot float64) (float64, float64) {
	return b.Low * spot, b.High * spot
}

// Search configures one family of strike searches.
type Search struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	MinWidth      float64 `yaml:"min_width"`
	Bounds        Bounds  `yaml:"bounds"`
}

func (s Search) options() []pricing.Option {
	return []pricing.Option{
		pricing.WithTolerance(s.Tolerance),
		pricing.WithMaxIterations(s.MaxIterations),
		pricing.WithMinWidth(s.MinWidth),
	}
}

// Config holds the search settings of both workflows.
type Config struct {
	Rebalance    Search `yaml:"rebalance"`
	PremiumMatch Search `yaml:"premium_match"`
}

// DefaultConfig returns the desk defaults: delta searches over 0.7–1.5× spot
// to 0.001, premium searches over 0.5–1.8× spot to 0.01, both capped at 100
// iterations and a 0.5 strike bracket.
func DefaultConfig() Config {
	return Config{
		Rebalance: Search{
			Tolerance:     pricing.DeltaTolerance,
			MaxIterations: bisection.DefaultMaxIterations,
			MinWidth:      bisection.DefaultMinWidth,
			Bounds:        Bounds{Low: 0.7, High: 1.5},
		},
		PremiumMatch: Search{
			Tolerance:     pricing.PremiumTolerance,
			MaxIterations: bisection.DefaultMaxIterations,
			MinWidth:      bisection.DefaultMinWidth,
			Bounds:        Bounds{Low: 0.5, High: 1.8},
		},
	}
}

// Validate checks that both bound pairs are usable, rebalance first.
func (c Config) Validate() error {
	sections := []struct {
		name   string
		search Search
	}{
		{"rebalance", c.Rebalance},
		{"premium_match", c.PremiumMatch},
	}
	for _, sec := range sections {
		b := sec.search.Bounds
		if b.Low <= 0 || b.Low > b.High {
			return fmt.Errorf("%s: %w: [%g, %g]", sec.name, pricing.ErrInvalidBounds, b.Low, b.High)
		}
	}
	return nil
}

// Hedger runs the rebalance and premium-match workflows.
type Hedger struct {
	cfg Config
}

// New creates a Hedger. Zero-valued search fields fall back to the
// bisection defaults; zero bounds fall back to DefaultConfig bounds.
func New(cfg Config) *Hedger {
	def := DefaultConfig()
	if cfg.Rebalance.Bounds == (Bounds{}) {
		cfg.Rebalance.Bounds = def.Rebalance.Bounds
	}
	if cfg.PremiumMatch.Bounds == (Bounds{}) {
		cfg.PremiumMatch.Bounds = def.PremiumMatch.Bounds
	}
	if cfg.Rebalance.Tolerance <= 0 {
		cfg.Rebalance.Tolerance = def.Rebalance.Tolerance
	}
	if cfg.PremiumMatch.Tolerance <= 0 {
		cfg.PremiumMatch.Tolerance = def.PremiumMatch.Tolerance
	}
	return &Hedger{cfg: cfg}
}

// Config returns the effective configuration.
func (h *Hedger) Config() Config {
	return h.cfg
}
