// Package engine holds the serialized core of the bond engine: the bond
// registry, the withdrawable-balance ledger, and the Engine that orchestrates
// buys, sells, and withdrawals over them under a single lock.
package engine

import (
	"math"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/fees"
)

// Registry owns bond definitions and their supply/balance accounting. It is
// not safe for concurrent use on its own; the Engine serializes access.
type Registry struct {
	bonds map[domain.BondID]*domain.Bond
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bonds: make(map[domain.BondID]*domain.Bond)}
}

// Create registers a new bond with zero supply and empty balances. Bond
// identifiers are never reused; creation of a duplicate fails.
func (r *Registry) Create(id domain.BondID, beneficiary domain.Account, basisPoints uint32, purchasePrice uint64) error {
	if beneficiary == domain.ZeroAccount {
		return domain.ErrInvalidAddress
	}
	if !fees.Valid(basisPoints) {
		return domain.ErrBasisPointsOutOfRange
	}
	if _, ok := r.bonds[id]; ok {
		return domain.ErrBondAlreadyExists
	}
	r.bonds[id] = &domain.Bond{
		ID:                     id,
		Beneficiary:            beneficiary,
		BeneficiaryBasisPoints: basisPoints,
		PurchasePrice:          purchasePrice,
		Balances:               make(map[domain.Account]uint64),
	}
	return nil
}

// Get returns the live bond record, or false when unregistered. Callers
// outside this package receive clones via the Engine accessors instead.
func (r *Registry) Get(id domain.BondID) (*domain.Bond, bool) {
	b, ok := r.bonds[id]
	return b, ok
}

// SetPurchasePrice replaces the informational purchase price through an
// optimistic compare-and-swap: the caller must be the beneficiary and must
// present the current price, otherwise a concurrent change has won the race
// and the update is rejected.
func (r *Registry) SetPurchasePrice(id domain.BondID, caller domain.Account, expectedCurrent, newPrice uint64) error {
	b, ok := r.bonds[id]
	if !ok {
		return domain.ErrNotFound
	}
	if caller != b.Beneficiary {
		return domain.ErrUnauthorized
	}
	if expectedCurrent != b.PurchasePrice {
		return domain.ErrPriceMismatch
	}
	b.PurchasePrice = newPrice
	return nil
}

// CanMint reports whether minting units to holder would overflow either the
// supply or the holder balance. The Engine checks this before pulling funds
// so that Mint itself cannot fail after the external transfer.
func (r *Registry) CanMint(id domain.BondID, holder domain.Account, units uint64) error {
	b, ok := r.bonds[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Supply > math.MaxUint64-units {
		return domain.ErrArithmeticOverflow
	}
	if b.Balances[holder] > math.MaxUint64-units {
		return domain.ErrArithmeticOverflow
	}
	return nil
}

// Mint credits units to holder and grows the supply, returning the supply
// after the mint. Callers must have verified CanMint.
func (r *Registry) Mint(id domain.BondID, holder domain.Account, units uint64) (uint64, error) {
	if err := r.CanMint(id, holder, units); err != nil {
		return 0, err
	}
	b := r.bonds[id]
	b.Balances[holder] += units
	b.Supply += units
	return b.Supply, nil
}

// Burn debits units from holder and shrinks the supply. Zero balances are
// removed so the balance map only carries active holders.
func (r *Registry) Burn(id domain.BondID, holder domain.Account, units uint64) error {
	b, ok := r.bonds[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Balances[holder] < units {
		return domain.ErrInsufficientBalance
	}
	b.Balances[holder] -= units
	b.Supply -= units
	if b.Balances[holder] == 0 {
		delete(b.Balances, holder)
	}
	return nil
}

// Bonds returns deep copies of every registered bond.
func (r *Registry) Bonds() []domain.Bond {
	out := make([]domain.Bond, 0, len(r.bonds))
	for _, b := range r.bonds {
		out = append(out, b.Clone())
	}
	return out
}

// Restore replaces the registry contents with the given snapshot records.
func (r *Registry) Restore(bonds []domain.Bond) {
	r.bonds = make(map[domain.BondID]*domain.Bond, len(bonds))
	for _, b := range bonds {
		clone := b.Clone()
		r.bonds[b.ID] = &clone
	}
}
