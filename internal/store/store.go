// Package store defines the persistence interface for computed quotes.
// Implementations include Redis (shared, expiring) and in-memory (for
// testing and single-instance deployments).
package store

import (
	"context"
	"errors"

	"github.com/atmx/hedge-engine/internal/model"
)

// ErrNotFound is returned when a quote is unknown or has expired.
var ErrNotFound = errors.New("store: quote not found")

// Store is the quote persistence interface. Quotes are written once and
// expire after the configured TTL.
type Store interface {
	// SaveQuote persists a computed quote.
	SaveQuote(ctx context.Context, q *model.Quote) error

	// GetQuote retrieves a quote by its ID.
	GetQuote(ctx context.Context, id string) (*model.Quote, error)

	// ListQuotes returns up to limit of the most recent quotes, newest first.
	ListQuotes(ctx context.Context, limit int) ([]model.Quote, error)
}
