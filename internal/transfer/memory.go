// Package transfer provides reserve-asset transfer collaborators: an
// in-process bank for dev mode and tests, and an ERC-20 adapter that moves a
// token on an Ethereum-compatible chain.
package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/curvelabs/bondengine/internal/domain"
)

// MemoryBank is an in-process reserve-asset bank. The engine's custody is
// modelled as a vault balance; TransferIn moves funds from an account into
// the vault and TransferOut pays them back out.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[domain.Account]uint64
	vault    uint64
}

// NewMemoryBank returns an empty bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[domain.Account]uint64)}
}

// Deposit funds an account. Used to seed balances in dev mode and tests.
func (b *MemoryBank) Deposit(account domain.Account, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
}

// TransferIn moves amount from the account into the vault.
func (b *MemoryBank) TransferIn(ctx context.Context, from domain.Account, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return fmt.Errorf("transfer: account %s holds %d, need %d", from, b.balances[from], amount)
	}
	b.balances[from] -= amount
	b.vault += amount
	return nil
}

// TransferOut pays amount from the vault to the account.
func (b *MemoryBank) TransferOut(ctx context.Context, to domain.Account, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.vault < amount {
		return fmt.Errorf("transfer: vault holds %d, need %d", b.vault, amount)
	}
	b.vault -= amount
	b.balances[to] += amount
	return nil
}

// BalanceOf returns an account's reserve balance.
func (b *MemoryBank) BalanceOf(account domain.Account) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// VaultBalance returns the funds currently held in engine custody.
func (b *MemoryBank) VaultBalance() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vault
}

// Compile-time interface check.
var _ domain.Transfer = (*MemoryBank)(nil)
