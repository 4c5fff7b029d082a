package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curvelabs/bondengine/internal/domain"
)

// ParamStore implements domain.ParamStore using a single-row table.
type ParamStore struct {
	pool *pgxpool.Pool
}

// NewParamStore creates a new ParamStore.
func NewParamStore(pool *pgxpool.Pool) *ParamStore {
	return &ParamStore{pool: pool}
}

// Save persists the global engine parameters.
func (s *ParamStore) Save(ctx context.Context, networkFeeBasisPoints uint32, stopped bool) error {
	const upsert = `
		INSERT INTO engine_params (singleton, network_fee_bps, stopped, updated_at)
		VALUES (TRUE, $1, $2, NOW())
		ON CONFLICT (singleton) DO UPDATE SET
			network_fee_bps = EXCLUDED.network_fee_bps,
			stopped = EXCLUDED.stopped,
			updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, upsert, int32(networkFeeBasisPoints), stopped); err != nil {
		return fmt.Errorf("postgres: save params: %w", err)
	}
	return nil
}

// Load returns the persisted parameters, or domain.ErrNotFound when the
// engine has never saved them.
func (s *ParamStore) Load(ctx context.Context) (uint32, bool, error) {
	var (
		feeBps  int32
		stopped bool
	)
	err := s.pool.QueryRow(ctx,
		`SELECT network_fee_bps, stopped FROM engine_params WHERE singleton`,
	).Scan(&feeBps, &stopped)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, domain.ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: load params: %w", err)
	}
	return uint32(feeBps), stopped, nil
}

// Compile-time interface check.
var _ domain.ParamStore = (*ParamStore)(nil)
