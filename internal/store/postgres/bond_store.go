package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curvelabs/bondengine/internal/domain"
)

// Bond amounts are full-range uint64, so they live in NUMERIC(20,0) columns
// and cross the wire as decimal strings.
func formatU64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseU64(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// BondStore implements domain.BondStore using PostgreSQL.
type BondStore struct {
	pool *pgxpool.Pool
}

// NewBondStore creates a new BondStore.
func NewBondStore(pool *pgxpool.Pool) *BondStore {
	return &BondStore{pool: pool}
}

// Upsert writes the bond row and replaces its balance rows in one
// transaction.
func (s *BondStore) Upsert(ctx context.Context, bond domain.Bond) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin upsert bond %s: %w", bond.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := upsertBondTx(ctx, tx, bond); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit upsert bond %s: %w", bond.ID, err)
	}
	return nil
}

// UpsertBatch writes all bonds in one transaction.
func (s *BondStore) UpsertBatch(ctx context.Context, bonds []domain.Bond) error {
	if len(bonds) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin upsert bonds: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, bond := range bonds {
		if err := upsertBondTx(ctx, tx, bond); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit upsert bonds: %w", err)
	}
	return nil
}

func upsertBondTx(ctx context.Context, tx pgx.Tx, bond domain.Bond) error {
	const upsert = `
		INSERT INTO bonds (id, beneficiary, basis_points, purchase_price, supply, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			purchase_price = EXCLUDED.purchase_price,
			supply = EXCLUDED.supply,
			updated_at = NOW()`
	_, err := tx.Exec(ctx, upsert,
		bond.ID[:], string(bond.Beneficiary), int32(bond.BeneficiaryBasisPoints),
		formatU64(bond.PurchasePrice), formatU64(bond.Supply),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert bond %s: %w", bond.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM bond_balances WHERE bond_id = $1`, bond.ID[:]); err != nil {
		return fmt.Errorf("postgres: clear balances %s: %w", bond.ID, err)
	}
	for holder, amount := range bond.Balances {
		_, err := tx.Exec(ctx,
			`INSERT INTO bond_balances (bond_id, holder, amount) VALUES ($1, $2, $3)`,
			bond.ID[:], string(holder), formatU64(amount),
		)
		if err != nil {
			return fmt.Errorf("postgres: insert balance %s/%s: %w", bond.ID, holder, err)
		}
	}
	return nil
}

// GetByID returns a bond with its balances, or domain.ErrNotFound.
func (s *BondStore) GetByID(ctx context.Context, id domain.BondID) (domain.Bond, error) {
	const query = `
		SELECT beneficiary, basis_points, purchase_price::text, supply::text
		FROM bonds WHERE id = $1`

	var (
		beneficiary             string
		basisPoints             int32
		purchasePrice, supplyTx string
	)
	err := s.pool.QueryRow(ctx, query, id[:]).Scan(&beneficiary, &basisPoints, &purchasePrice, &supplyTx)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Bond{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Bond{}, fmt.Errorf("postgres: get bond %s: %w", id, err)
	}

	bond := domain.Bond{
		ID:                     id,
		Beneficiary:            domain.Account(beneficiary),
		BeneficiaryBasisPoints: uint32(basisPoints),
		Balances:               make(map[domain.Account]uint64),
	}
	if bond.PurchasePrice, err = parseU64(purchasePrice); err != nil {
		return domain.Bond{}, fmt.Errorf("postgres: parse purchase_price %s: %w", id, err)
	}
	if bond.Supply, err = parseU64(supplyTx); err != nil {
		return domain.Bond{}, fmt.Errorf("postgres: parse supply %s: %w", id, err)
	}

	if err := s.loadBalances(ctx, &bond); err != nil {
		return domain.Bond{}, err
	}
	return bond, nil
}

// List returns every bond with its balances.
func (s *BondStore) List(ctx context.Context) ([]domain.Bond, error) {
	const query = `
		SELECT id, beneficiary, basis_points, purchase_price::text, supply::text
		FROM bonds ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bonds: %w", err)
	}
	defer rows.Close()

	var bonds []domain.Bond
	for rows.Next() {
		var (
			raw                     []byte
			beneficiary             string
			basisPoints             int32
			purchasePrice, supplyTx string
		)
		if err := rows.Scan(&raw, &beneficiary, &basisPoints, &purchasePrice, &supplyTx); err != nil {
			return nil, fmt.Errorf("postgres: scan bond: %w", err)
		}
		bond := domain.Bond{
			Beneficiary:            domain.Account(beneficiary),
			BeneficiaryBasisPoints: uint32(basisPoints),
			Balances:               make(map[domain.Account]uint64),
		}
		copy(bond.ID[:], raw)
		if bond.PurchasePrice, err = parseU64(purchasePrice); err != nil {
			return nil, fmt.Errorf("postgres: parse purchase_price %s: %w", bond.ID, err)
		}
		if bond.Supply, err = parseU64(supplyTx); err != nil {
			return nil, fmt.Errorf("postgres: parse supply %s: %w", bond.ID, err)
		}
		bonds = append(bonds, bond)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bonds rows: %w", err)
	}

	for i := range bonds {
		if err := s.loadBalances(ctx, &bonds[i]); err != nil {
			return nil, err
		}
	}
	return bonds, nil
}

func (s *BondStore) loadBalances(ctx context.Context, bond *domain.Bond) error {
	rows, err := s.pool.Query(ctx,
		`SELECT holder, amount::text FROM bond_balances WHERE bond_id = $1`, bond.ID[:])
	if err != nil {
		return fmt.Errorf("postgres: balances %s: %w", bond.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var holder, amountTx string
		if err := rows.Scan(&holder, &amountTx); err != nil {
			return fmt.Errorf("postgres: scan balance %s: %w", bond.ID, err)
		}
		amount, err := parseU64(amountTx)
		if err != nil {
			return fmt.Errorf("postgres: parse balance %s/%s: %w", bond.ID, holder, err)
		}
		bond.Balances[domain.Account(holder)] = amount
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: balances rows %s: %w", bond.ID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BondStore = (*BondStore)(nil)
