package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
)

func TestRegistryCreate(t *testing.T) {
	id := domain.BondID{0x01}

	t.Run("rejects null beneficiary", func(t *testing.T) {
		r := NewRegistry()
		err := r.Create(id, domain.ZeroAccount, 500, 100)
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	})

	t.Run("rejects out-of-range basis points", func(t *testing.T) {
		r := NewRegistry()
		err := r.Create(id, "ben", 10001, 100)
		assert.ErrorIs(t, err, domain.ErrBasisPointsOutOfRange)
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Create(id, "ben", 500, 100))
		err := r.Create(id, "other", 100, 7)
		assert.ErrorIs(t, err, domain.ErrBondAlreadyExists)
	})

	t.Run("starts at zero supply", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Create(id, "ben", 500, 100))
		b, ok := r.Get(id)
		require.True(t, ok)
		assert.Equal(t, uint64(0), b.Supply)
		assert.Empty(t, b.Balances)
	})
}

func TestRegistrySetPurchasePrice(t *testing.T) {
	id := domain.BondID{0x02}
	newRegistry := func(t *testing.T) *Registry {
		r := NewRegistry()
		require.NoError(t, r.Create(id, "ben", 500, 100))
		return r
	}

	t.Run("unregistered bond", func(t *testing.T) {
		r := NewRegistry()
		err := r.SetPurchasePrice(id, "ben", 100, 200)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("non-beneficiary caller", func(t *testing.T) {
		r := newRegistry(t)
		err := r.SetPurchasePrice(id, "mallory", 100, 200)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("stale expected price", func(t *testing.T) {
		r := newRegistry(t)
		err := r.SetPurchasePrice(id, "ben", 99, 200)
		assert.ErrorIs(t, err, domain.ErrPriceMismatch)
		b, _ := r.Get(id)
		assert.Equal(t, uint64(100), b.PurchasePrice, "failed CAS must not change the price")
	})

	t.Run("successful swap", func(t *testing.T) {
		r := newRegistry(t)
		require.NoError(t, r.SetPurchasePrice(id, "ben", 100, 200))
		b, _ := r.Get(id)
		assert.Equal(t, uint64(200), b.PurchasePrice)

		// The old expected value is now stale.
		err := r.SetPurchasePrice(id, "ben", 100, 300)
		assert.ErrorIs(t, err, domain.ErrPriceMismatch)
	})
}

func TestRegistryMintBurn(t *testing.T) {
	id := domain.BondID{0x03}
	r := NewRegistry()
	require.NoError(t, r.Create(id, "ben", 500, 100))

	supply, err := r.Mint(id, "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), supply)

	supply, err = r.Mint(id, "bob", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), supply)

	requireSupplyInvariant(t, r, id)

	err = r.Burn(id, "alice", 4)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	require.NoError(t, r.Burn(id, "alice", 3))
	requireSupplyInvariant(t, r, id)

	b, _ := r.Get(id)
	assert.Equal(t, uint64(2), b.Supply)
	assert.NotContains(t, b.Balances, domain.Account("alice"))

	err = r.Burn(domain.BondID{0xff}, "alice", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// requireSupplyInvariant asserts sum(balances) == supply for the bond.
func requireSupplyInvariant(t *testing.T, r *Registry, id domain.BondID) {
	t.Helper()
	b, ok := r.Get(id)
	require.True(t, ok)
	var sum uint64
	for _, amount := range b.Balances {
		sum += amount
	}
	require.Equal(t, b.Supply, sum, "sum of balances must equal supply")
}
