package contract

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/hedge-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestParseSymbol_Valid(t *testing.T) {
	c, err := ParseSymbol("NIFTY-20250828-850-CE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Underlying != "NIFTY" {
		t.Errorf("expected underlying=NIFTY, got %s", c.Underlying)
	}
	if c.Kind != model.Call {
		t.Errorf("expected kind=call, got %s", c.Kind)
	}
	if !c.Strike.Equal(d(850)) {
		t.Errorf("expected strike=850, got %s", c.Strike)
	}
	expected := time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)
	if !c.Expiry.Equal(expected) {
		t.Errorf("expected expiry=%v, got %v", expected, c.Expiry)
	}
}

func TestParseSymbol_PutAndDecimalStrike(t *testing.T) {
	c, err := ParseSymbol("m&m-20250828-772.5-pe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind != model.Put {
		t.Errorf("expected kind=put, got %s", c.Kind)
	}
	if c.StrikeFloat() != 772.5 {
		t.Errorf("expected strike=772.5, got %g", c.StrikeFloat())
	}
	if c.Symbol != "M&M-20250828-772.5-PE" {
		t.Errorf("symbol should be normalized, got %s", c.Symbol)
	}
}

func TestParseSymbol_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"INVALID",
		"NIFTY-20250828",
		"NIFTY-20250828-850",
		"NIFTY-2025082-850-CE",
		"NIFTY-20251340-850-CE", // no 13th month
		"NIFTY-20250828-0-CE",   // zero strike
		"NIFTY-20250828--850-CE",
		"1NIFTY-20250828-850-CE",
	}
	for _, symbol := range tests {
		_, err := ParseSymbol(symbol)
		if !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("expected ErrInvalidSymbol for %q, got %v", symbol, err)
		}
	}
}

func TestParseSymbol_InvalidKind(t *testing.T) {
	_, err := ParseSymbol("NIFTY-20250828-850-FU")
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	expiry := time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)
	symbol := Format("nifty", expiry, d(770), model.Put)
	if symbol != "NIFTY-20250828-770-PE" {
		t.Fatalf("unexpected symbol %s", symbol)
	}
	c, err := ParseSymbol(symbol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Kind != model.Put || !c.Strike.Equal(d(770)) || !c.Expiry.Equal(expiry) {
		t.Errorf("round trip mismatch: %+v", c)
	}
}

func TestDaysToExpiry(t *testing.T) {
	c, _ := ParseSymbol("NIFTY-20250828-850-CE")

	tests := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2025, 8, 10, 9, 15, 0, 0, time.UTC), 18},
		{time.Date(2025, 8, 28, 15, 30, 0, 0, time.UTC), 0},
		{time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC), -2},
	}
	for _, tt := range tests {
		if got := c.DaysToExpiry(tt.now); got != tt.want {
			t.Errorf("now=%v: got %d days, want %d", tt.now, got, tt.want)
		}
	}
}
