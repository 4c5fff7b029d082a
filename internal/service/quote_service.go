package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/engine"
)

// QuoteService serves spot quotes, caching them briefly so bursts of
// identical price checks do not all take the engine lock. Cached quotes go
// stale the moment supply moves, so the TTL stays short and quotes are
// advisory; the slippage bounds on buy and sell are the real protection.
type QuoteService struct {
	engine *engine.Engine
	cache  domain.QuoteCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewQuoteService creates a QuoteService. The cache is optional.
func NewQuoteService(eng *engine.Engine, cache domain.QuoteCache, ttl time.Duration, logger *slog.Logger) *QuoteService {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &QuoteService{engine: eng, cache: cache, ttl: ttl, logger: logger}
}

// QuoteBuy returns the price of minting units of the bond at current supply.
func (qs *QuoteService) QuoteBuy(ctx context.Context, bond domain.BondID, units uint64) (domain.Quote, error) {
	return qs.quote(ctx, bond, "buy", units, qs.engine.QuoteBuy)
}

// QuoteSell returns the proceeds of burning units of the bond at current
// supply, split into gross value, beneficiary fee, and seller net.
func (qs *QuoteService) QuoteSell(ctx context.Context, bond domain.BondID, units uint64) (domain.Quote, error) {
	return qs.quote(ctx, bond, "sell", units, qs.engine.QuoteSell)
}

func (qs *QuoteService) quote(
	ctx context.Context,
	bond domain.BondID,
	side string,
	units uint64,
	compute func(domain.BondID, uint64) (domain.Quote, error),
) (domain.Quote, error) {
	if qs.cache != nil {
		q, err := qs.cache.GetQuote(ctx, bond, side, units)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			qs.logger.Warn("quote cache read failed",
				slog.String("bond", bond.String()),
				slog.Any("error", err))
		}
	}

	q, err := compute(bond, units)
	if err != nil {
		return domain.Quote{}, err
	}

	if qs.cache != nil {
		if err := qs.cache.SetQuote(ctx, q, qs.ttl); err != nil {
			qs.logger.Warn("quote cache write failed",
				slog.String("bond", bond.String()),
				slog.Any("error", err))
		}
	}
	return q, nil
}
