package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
)

// fakeTransfer records transfer calls and can be scripted to fail.
type fakeTransfer struct {
	failIn  bool
	failOut bool
	ins     []uint64
	outs    map[domain.Account]uint64
}

func newFakeTransfer() *fakeTransfer {
	return &fakeTransfer{outs: make(map[domain.Account]uint64)}
}

func (f *fakeTransfer) TransferIn(_ context.Context, from domain.Account, amount uint64) error {
	if f.failIn {
		return errors.New("scripted pull failure")
	}
	f.ins = append(f.ins, amount)
	return nil
}

func (f *fakeTransfer) TransferOut(_ context.Context, to domain.Account, amount uint64) error {
	if f.failOut {
		return errors.New("scripted payout failure")
	}
	f.outs[to] += amount
	return nil
}

// adminList authorizes exactly the listed accounts.
type adminList []domain.Account

func (a adminList) IsAdmin(_ context.Context, account domain.Account) bool {
	for _, admin := range a {
		if admin == account {
			return true
		}
	}
	return false
}

// collectSink gathers emitted events in commit order.
type collectSink struct {
	events []domain.Event
}

func (c *collectSink) Emit(_ context.Context, evt domain.Event) {
	c.events = append(c.events, evt)
}

const (
	admin    = domain.Account("admin")
	treasury = domain.Account("treasury")
	ben      = domain.Account("ben")
	alice    = domain.Account("alice")
)

func newTestEngine(t *testing.T) (*Engine, *fakeTransfer, *collectSink) {
	t.Helper()
	xfer := newFakeTransfer()
	sink := &collectSink{}
	e, err := New(Config{
		Treasury:              treasury,
		NetworkFeeBasisPoints: 1000, // 10%
	}, xfer, adminList{admin}, sink, slog.Default())
	require.NoError(t, err)
	return e, xfer, sink
}

func requireInvariant(t *testing.T, e *Engine, id domain.BondID) {
	t.Helper()
	b, err := e.Bond(id)
	require.NoError(t, err)
	var sum uint64
	for _, amount := range b.Balances {
		sum += amount
	}
	require.Equal(t, b.Supply, sum, "sum of balances must equal supply")
}

func TestEngineNew(t *testing.T) {
	_, err := New(Config{Treasury: domain.ZeroAccount}, newFakeTransfer(), nil, nil, slog.Default())
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = New(Config{Treasury: treasury, NetworkFeeBasisPoints: 10001}, newFakeTransfer(), nil, nil, slog.Default())
	assert.ErrorIs(t, err, domain.ErrBasisPointsOutOfRange)

	_, err = New(Config{Treasury: treasury}, nil, nil, nil, slog.Default())
	assert.Error(t, err)
}

func TestEngineBuy(t *testing.T) {
	ctx := context.Background()
	id := domain.BondID{0xaa}

	t.Run("unknown bond", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, err := e.Buy(ctx, alice, id, 1, 100)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("slippage aborts with no state change", func(t *testing.T) {
		e, xfer, _ := newTestEngine(t)
		require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))

		// price(0,2) == 3 > maxPrice 2.
		_, err := e.Buy(ctx, alice, id, 2, 2)
		assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

		b, _ := e.Bond(id)
		assert.Equal(t, uint64(0), b.Supply)
		assert.Empty(t, xfer.ins, "no funds pulled on abort")
	})

	t.Run("successful buy mints and credits the beneficiary", func(t *testing.T) {
		e, xfer, sink := newTestEngine(t)
		require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))

		paid, err := e.Buy(ctx, alice, id, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), paid)

		b, _ := e.Bond(id)
		assert.Equal(t, uint64(2), b.Supply)
		assert.Equal(t, uint64(2), b.BalanceOf(alice))
		// split(500, 3) floors to a zero fee.
		assert.Equal(t, uint64(0), e.Withdrawable(ben))
		assert.Equal(t, []uint64{3}, xfer.ins)
		requireInvariant(t, e, id)

		last := sink.events[len(sink.events)-1]
		assert.Equal(t, domain.EventPurchased, last.Kind)
		assert.Equal(t, uint64(3), last.Paid)
		assert.Equal(t, uint64(100), last.PurchasePrice)
	})

	t.Run("fee computed over the payment amount", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))

		// price(0,100) == 5050; 5% of 5050 == 252 (floored).
		paid, err := e.Buy(ctx, alice, id, 100, 10_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(5050), paid)
		assert.Equal(t, uint64(252), e.Withdrawable(ben))
		requireInvariant(t, e, id)
	})

	t.Run("transfer failure aborts atomically", func(t *testing.T) {
		e, xfer, _ := newTestEngine(t)
		require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))

		xfer.failIn = true
		_, err := e.Buy(ctx, alice, id, 2, 10)
		assert.ErrorIs(t, err, domain.ErrTransferFailed)

		b, _ := e.Bond(id)
		assert.Equal(t, uint64(0), b.Supply)
		assert.Equal(t, uint64(0), e.Withdrawable(ben))
	})
}

func TestEngineSell(t *testing.T) {
	ctx := context.Background()
	id := domain.BondID{0xbb}

	seed := func(t *testing.T) (*Engine, *fakeTransfer, *collectSink) {
		e, xfer, sink := newTestEngine(t)
		require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))
		_, err := e.Buy(ctx, alice, id, 2, 3)
		require.NoError(t, err)
		return e, xfer, sink
	}

	t.Run("round trip returns supply to zero", func(t *testing.T) {
		e, xfer, _ := seed(t)

		received, err := e.Sell(ctx, alice, id, 2, 0)
		require.NoError(t, err)
		// Redemption subtotal is price(0,2) == 3; fee floors to 0.
		assert.Equal(t, uint64(3), received)

		b, _ := e.Bond(id)
		assert.Equal(t, uint64(0), b.Supply)
		assert.Equal(t, uint64(0), b.BalanceOf(alice))
		assert.Equal(t, uint64(3), xfer.outs[alice])
		requireInvariant(t, e, id)
	})

	t.Run("insufficient supply", func(t *testing.T) {
		e, _, _ := seed(t)
		_, err := e.Sell(ctx, alice, id, 3, 0)
		assert.ErrorIs(t, err, domain.ErrInsufficientSupply)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		e, _, _ := seed(t)
		_, err := e.Buy(ctx, "bob", id, 5, 100)
		require.NoError(t, err)
		// Alice holds 2 of 7; asking for 3 exceeds her balance but not supply.
		_, err = e.Sell(ctx, alice, id, 3, 0)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})

	t.Run("slippage on net value", func(t *testing.T) {
		e, _, _ := seed(t)
		_, err := e.Sell(ctx, alice, id, 2, 4)
		assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
		requireInvariant(t, e, id)
	})

	t.Run("transfer failure aborts atomically", func(t *testing.T) {
		e, xfer, _ := seed(t)
		before := e.Withdrawable(ben)

		xfer.failOut = true
		_, err := e.Sell(ctx, alice, id, 2, 0)
		assert.ErrorIs(t, err, domain.ErrTransferFailed)

		b, _ := e.Bond(id)
		assert.Equal(t, uint64(2), b.Supply)
		assert.Equal(t, uint64(2), b.BalanceOf(alice))
		assert.Equal(t, before, e.Withdrawable(ben))
	})
}

func TestEngineWithdraw(t *testing.T) {
	ctx := context.Background()
	id := domain.BondID{0xcc}

	seed := func(t *testing.T) (*Engine, *fakeTransfer) {
		e, xfer, _ := newTestEngine(t)
		require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))
		// price(0,100) == 5050 -> beneficiary fee 252.
		_, err := e.Buy(ctx, alice, id, 100, 10_000)
		require.NoError(t, err)
		return e, xfer
	}

	t.Run("splits the network fee to the treasury", func(t *testing.T) {
		e, xfer := seed(t)

		net, networkFee, err := e.Withdraw(ctx, ben)
		require.NoError(t, err)
		// 10% network fee on 252: fee 25, net 227.
		assert.Equal(t, uint64(227), net)
		assert.Equal(t, uint64(25), networkFee)
		assert.Equal(t, uint64(227), xfer.outs[ben])
		assert.Equal(t, uint64(25), xfer.outs[treasury])
		assert.Equal(t, uint64(0), e.Withdrawable(ben))
	})

	t.Run("second withdrawal finds nothing", func(t *testing.T) {
		e, _ := seed(t)
		_, _, err := e.Withdraw(ctx, ben)
		require.NoError(t, err)
		_, _, err = e.Withdraw(ctx, ben)
		assert.ErrorIs(t, err, domain.ErrNothingToWithdraw)
	})

	t.Run("payout failure restores the balance", func(t *testing.T) {
		e, xfer := seed(t)
		xfer.failOut = true
		_, _, err := e.Withdraw(ctx, ben)
		assert.ErrorIs(t, err, domain.ErrTransferFailed)
		assert.Equal(t, uint64(252), e.Withdrawable(ben))
	})

	t.Run("empty account", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, _, err := e.Withdraw(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNothingToWithdraw)
	})
}

func TestEngineStop(t *testing.T) {
	ctx := context.Background()
	id := domain.BondID{0xdd}
	e, _, sink := newTestEngine(t)
	require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))
	_, err := e.Buy(ctx, alice, id, 2, 3)
	require.NoError(t, err)

	assert.ErrorIs(t, e.Stop(ctx, "mallory"), domain.ErrUnauthorized)
	require.NoError(t, e.Stop(ctx, admin))
	assert.True(t, e.Stopped())
	assert.ErrorIs(t, e.Stop(ctx, admin), domain.ErrAlreadyStopped)

	// Buys are rejected once stopped.
	_, err = e.Buy(ctx, alice, id, 1, 100)
	assert.ErrorIs(t, err, domain.ErrExperimentStopped)

	// Sells still work so holders can exit.
	_, err = e.Sell(ctx, alice, id, 2, 0)
	require.NoError(t, err)

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, domain.EventSold, last.Kind)
}

func TestEngineSetNetworkFee(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	assert.ErrorIs(t, e.SetNetworkFeeBasisPoints(ctx, "mallory", 1000, 500), domain.ErrUnauthorized)
	assert.ErrorIs(t, e.SetNetworkFeeBasisPoints(ctx, admin, 1000, 10001), domain.ErrBasisPointsOutOfRange)
	assert.ErrorIs(t, e.SetNetworkFeeBasisPoints(ctx, admin, 999, 500), domain.ErrPriceMismatch)
	assert.Equal(t, uint32(1000), e.NetworkFeeBasisPoints())

	require.NoError(t, e.SetNetworkFeeBasisPoints(ctx, admin, 1000, 500))
	assert.Equal(t, uint32(500), e.NetworkFeeBasisPoints())
}

func TestEngineQuotes(t *testing.T) {
	ctx := context.Background()
	id := domain.BondID{0xee}
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.CreateBond(ctx, id, ben, 1000, 100))
	_, err := e.Buy(ctx, alice, id, 10, 100)
	require.NoError(t, err)

	q, err := e.QuoteBuy(id, 5)
	require.NoError(t, err)
	// price(10,5) == 11+12+13+14+15 == 65; 10% fee == 6.
	assert.Equal(t, uint64(65), q.Total)
	assert.Equal(t, uint64(6), q.Fee)
	assert.Equal(t, uint64(59), q.Net)

	q, err = e.QuoteSell(id, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(55), q.Total)

	_, err = e.QuoteSell(id, 11)
	assert.ErrorIs(t, err, domain.ErrInsufficientSupply)

	_, err = e.QuoteBuy(domain.BondID{0x99}, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngineSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	id := domain.BondID{0x11}
	e, _, _ := newTestEngine(t)
	require.NoError(t, e.CreateBond(ctx, id, ben, 500, 100))
	_, err := e.Buy(ctx, alice, id, 100, 10_000)
	require.NoError(t, err)
	require.NoError(t, e.Stop(ctx, admin))

	snap := e.Snapshot()

	restored, _, _ := newTestEngine(t)
	require.NoError(t, restored.Restore(snap))

	b, err := restored.Bond(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), b.Supply)
	assert.Equal(t, uint64(100), b.BalanceOf(alice))
	assert.Equal(t, uint64(252), restored.Withdrawable(ben))
	assert.True(t, restored.Stopped())

	// The snapshot is a deep copy: mutating it must not touch the engine.
	snap.Bonds[0].Balances[alice] = 1
	b, _ = restored.Bond(id)
	assert.Equal(t, uint64(100), b.BalanceOf(alice))
}
