package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBankRoundTrip(t *testing.T) {
	ctx := context.Background()
	bank := NewMemoryBank()
	bank.Deposit("alice", 100)

	require.NoError(t, bank.TransferIn(ctx, "alice", 60))
	assert.Equal(t, uint64(40), bank.BalanceOf("alice"))
	assert.Equal(t, uint64(60), bank.VaultBalance())

	require.NoError(t, bank.TransferOut(ctx, "bob", 25))
	assert.Equal(t, uint64(25), bank.BalanceOf("bob"))
	assert.Equal(t, uint64(35), bank.VaultBalance())
}

func TestMemoryBankInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	bank := NewMemoryBank()
	bank.Deposit("alice", 10)

	err := bank.TransferIn(ctx, "alice", 11)
	require.Error(t, err)
	// A failed pull must not move anything.
	assert.Equal(t, uint64(10), bank.BalanceOf("alice"))
	assert.Equal(t, uint64(0), bank.VaultBalance())

	err = bank.TransferOut(ctx, "bob", 1)
	require.Error(t, err)
	assert.Equal(t, uint64(0), bank.BalanceOf("bob"))
}
