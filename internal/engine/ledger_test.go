package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
)

func TestLedgerCreditAndWithdraw(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Credit("ben", 100))
	require.NoError(t, l.Credit("ben", 50))
	assert.Equal(t, uint64(150), l.Balance("ben"))

	amount, err := l.Withdraw("ben")
	require.NoError(t, err)
	assert.Equal(t, uint64(150), amount)
	assert.Equal(t, uint64(0), l.Balance("ben"))

	// A second withdrawal immediately after sees the zeroed balance.
	_, err = l.Withdraw("ben")
	assert.ErrorIs(t, err, domain.ErrNothingToWithdraw)

	// The account record persists for future credits.
	require.NoError(t, l.Credit("ben", 7))
	assert.Equal(t, uint64(7), l.Balance("ben"))
}

func TestLedgerWithdrawUnknownAccount(t *testing.T) {
	l := NewLedger()
	_, err := l.Withdraw("nobody")
	assert.ErrorIs(t, err, domain.ErrNothingToWithdraw)
}

func TestLedgerCreditOverflow(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Credit("ben", math.MaxUint64))
	err := l.Credit("ben", 1)
	assert.ErrorIs(t, err, domain.ErrArithmeticOverflow)
	assert.Equal(t, uint64(math.MaxUint64), l.Balance("ben"))
}
