package service

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/engine"
	"github.com/curvelabs/bondengine/internal/transfer"
)

type fakeQuoteCache struct {
	store map[string]domain.Quote
	sets  int
	hits  int
}

func newFakeQuoteCache() *fakeQuoteCache {
	return &fakeQuoteCache{store: make(map[string]domain.Quote)}
}

func (f *fakeQuoteCache) key(bond domain.BondID, side string, units uint64) string {
	return bond.String() + side + strconv.FormatUint(units, 10)
}

func (f *fakeQuoteCache) SetQuote(_ context.Context, q domain.Quote, _ time.Duration) error {
	f.sets++
	f.store[f.key(q.Bond, q.Side, q.Units)] = q
	return nil
}

func (f *fakeQuoteCache) GetQuote(_ context.Context, bond domain.BondID, side string, units uint64) (domain.Quote, error) {
	q, ok := f.store[f.key(bond, side, units)]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	f.hits++
	return q, nil
}

func newQuoteTestEngine(t *testing.T) (*engine.Engine, domain.BondID) {
	t.Helper()
	eng, err := engine.New(engine.Config{Treasury: "treasury"}, transfer.NewMemoryBank(), nil, nil, slog.Default())
	require.NoError(t, err)

	id := domain.BondID{1}
	require.NoError(t, eng.CreateBond(context.Background(), id, "ben", 500, 0))
	return eng, id
}

func TestQuoteServiceComputesAndCaches(t *testing.T) {
	ctx := context.Background()
	eng, id := newQuoteTestEngine(t)
	cache := newFakeQuoteCache()
	qs := NewQuoteService(eng, cache, time.Second, slog.Default())

	q, err := qs.QuoteBuy(ctx, id, 100)
	require.NoError(t, err)
	// price(0, 100) = 100*101/2 = 5050; 5% beneficiary fee floors to 252.
	assert.Equal(t, uint64(5050), q.Total)
	assert.Equal(t, uint64(252), q.Fee)
	assert.Equal(t, uint64(4798), q.Net)
	assert.Equal(t, 1, cache.sets)

	// Second identical request is served from the cache.
	q2, err := qs.QuoteBuy(ctx, id, 100)
	require.NoError(t, err)
	assert.Equal(t, q, q2)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, cache.sets)
}

func TestQuoteServiceSellUnknownBond(t *testing.T) {
	eng, _ := newQuoteTestEngine(t)
	qs := NewQuoteService(eng, nil, time.Second, slog.Default())

	_, err := qs.QuoteSell(context.Background(), domain.BondID{9}, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteServiceWorksWithoutCache(t *testing.T) {
	eng, id := newQuoteTestEngine(t)
	qs := NewQuoteService(eng, nil, 0, slog.Default())

	q, err := qs.QuoteBuy(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), q.Total)
}
