package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/curvelabs/bondengine/internal/domain"
)

// QuoteCache implements domain.QuoteCache. Each quote is stored as a JSON
// blob at key "quote:{bondID}:{side}:{units}" with a TTL, so quotes expire on
// their own shortly after the supply they were computed against moves.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(bond domain.BondID, side string, units uint64) string {
	return "quote:" + bond.String() + ":" + side + ":" + strconv.FormatUint(units, 10)
}

// SetQuote stores a quote with the given TTL.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote, ttl time.Duration) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: marshal quote %s: %w", q.Bond, err)
	}
	if err := qc.rdb.Set(ctx, quoteKey(q.Bond, q.Side, q.Units), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.Bond, err)
	}
	return nil
}

// GetQuote retrieves a cached quote, returning domain.ErrNotFound on a miss.
func (qc *QuoteCache) GetQuote(ctx context.Context, bond domain.BondID, side string, units uint64) (domain.Quote, error) {
	payload, err := qc.rdb.Get(ctx, quoteKey(bond, side, units)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quote{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", bond, err)
	}
	var q domain.Quote
	if err := json.Unmarshal(payload, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: unmarshal quote %s: %w", bond, err)
	}
	return q, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
