package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curvelabs/bondengine/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// UpsertBatch writes every withdrawable balance in one transaction. Zero
// balances are written too: an account drained by a withdrawal must not
// rehydrate with its stale pre-withdrawal credit.
func (s *AccountStore) UpsertBatch(ctx context.Context, withdrawable map[domain.Account]uint64) error {
	if len(withdrawable) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin upsert accounts: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `
		INSERT INTO accounts (account, withdrawable, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account) DO UPDATE SET
			withdrawable = EXCLUDED.withdrawable,
			updated_at = NOW()`
	for account, amount := range withdrawable {
		if _, err := tx.Exec(ctx, upsert, string(account), formatU64(amount)); err != nil {
			return fmt.Errorf("postgres: upsert account %s: %w", account, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit upsert accounts: %w", err)
	}
	return nil
}

// List returns every account's withdrawable balance.
func (s *AccountStore) List(ctx context.Context) (map[domain.Account]uint64, error) {
	rows, err := s.pool.Query(ctx, `SELECT account, withdrawable::text FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list accounts: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Account]uint64)
	for rows.Next() {
		var account, amountTx string
		if err := rows.Scan(&account, &amountTx); err != nil {
			return nil, fmt.Errorf("postgres: scan account: %w", err)
		}
		amount, err := parseU64(amountTx)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse withdrawable %s: %w", account, err)
		}
		out[domain.Account(account)] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list accounts rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.AccountStore = (*AccountStore)(nil)
