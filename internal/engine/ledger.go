package engine

import (
	"math"

	"github.com/curvelabs/bondengine/internal/domain"
)

// Ledger owns the withdrawable fee credits per beneficiary/treasury account.
// Accounts are created implicitly on first credit and persist after draining
// to zero. Like the Registry, it relies on the Engine for serialization.
type Ledger struct {
	withdrawable map[domain.Account]uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{withdrawable: make(map[domain.Account]uint64)}
}

// CanCredit reports whether crediting amount would overflow the account.
func (l *Ledger) CanCredit(account domain.Account, amount uint64) error {
	if l.withdrawable[account] > math.MaxUint64-amount {
		return domain.ErrArithmeticOverflow
	}
	return nil
}

// Credit increases the account's withdrawable balance.
func (l *Ledger) Credit(account domain.Account, amount uint64) error {
	if err := l.CanCredit(account, amount); err != nil {
		return err
	}
	l.withdrawable[account] += amount
	return nil
}

// Withdraw atomically reads and zeroes the account's balance, returning the
// amount for the caller to disburse. Zeroing happens before any external
// transfer is attempted so a second withdrawal can never observe a stale
// non-zero balance.
func (l *Ledger) Withdraw(account domain.Account) (uint64, error) {
	amount := l.withdrawable[account]
	if amount == 0 {
		return 0, domain.ErrNothingToWithdraw
	}
	l.withdrawable[account] = 0
	return amount, nil
}

// Balance returns the account's current withdrawable balance.
func (l *Ledger) Balance(account domain.Account) uint64 {
	return l.withdrawable[account]
}

// Accounts returns a copy of every balance, including zeroed records.
func (l *Ledger) Accounts() map[domain.Account]uint64 {
	out := make(map[domain.Account]uint64, len(l.withdrawable))
	for account, amount := range l.withdrawable {
		out[account] = amount
	}
	return out
}

// Restore replaces the ledger contents with the given snapshot balances.
func (l *Ledger) Restore(withdrawable map[domain.Account]uint64) {
	l.withdrawable = make(map[domain.Account]uint64, len(withdrawable))
	for account, amount := range withdrawable {
		l.withdrawable[account] = amount
	}
}
