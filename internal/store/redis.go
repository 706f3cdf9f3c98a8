package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/hedge-engine/internal/model"
)

const recentKey = "quotes:recent"

// RedisStore keeps quotes in Redis. Each quote is a JSON value under its own
// key with the store TTL; a capped list holds the most recent IDs.
type RedisStore struct {
	rdb       *redis.Client
	ttl       time.Duration
	maxRecent int
}

// NewRedisStore creates a Redis-backed quote store.
func NewRedisStore(rdb *redis.Client, ttl time.Duration, maxRecent int) *RedisStore {
	if maxRecent <= 0 {
		maxRecent = 100
	}
	return &RedisStore{
		rdb:       rdb,
		ttl:       ttl,
		maxRecent: maxRecent,
	}
}

func (s *RedisStore) SaveQuote(ctx context.Context, q *model.Quote) error {
	if q == nil || q.ID == "" {
		return fmt.Errorf("store: quote id required")
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, quoteKey(q.ID), data, s.ttl)
	pipe.LPush(ctx, recentKey, q.ID)
	pipe.LTrim(ctx, recentKey, 0, int64(s.maxRecent-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save quote %s: %w", q.ID, err)
	}
	return nil
}

func (s *RedisStore) GetQuote(ctx context.Context, id string) (*model.Quote, error) {
	data, err := s.rdb.Get(ctx, quoteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", id, err)
	}

	var q model.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", id, err)
	}
	return &q, nil
}

// ListQuotes walks the recent list and skips IDs whose quote has expired.
func (s *RedisStore) ListQuotes(ctx context.Context, limit int) ([]model.Quote, error) {
	if limit <= 0 || limit > s.maxRecent {
		limit = s.maxRecent
	}
	ids, err := s.rdb.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent quotes: %w", err)
	}
	if len(ids) == 0 {
		return []model.Quote{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = quoteKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load recent quotes: %w", err)
	}

	quotes := make([]model.Quote, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // expired
		}
		var q model.Quote
		if json.Unmarshal([]byte(raw), &q) == nil {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

func quoteKey(id string) string { return fmt.Sprintf("quote:%s", id) }
