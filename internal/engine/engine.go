package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/curvelabs/bondengine/internal/curve"
	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/fees"
)

// Config carries the engine's global parameters.
type Config struct {
	// Treasury receives the network fee share of every withdrawal.
	Treasury domain.Account
	// NetworkFeeBasisPoints is the initial platform fee rate.
	NetworkFeeBasisPoints uint32
	// Curve prices buys and sells. Defaults to curve.Linear.
	Curve curve.Curve
}

// Engine orchestrates buys, sells, and withdrawals over the registry and
// ledger. Every operation runs to completion under one mutex, so operations
// observe a total order and no reads/writes ever interleave. State mutations
// are staged after all preconditions and committed only once the external
// transfer has succeeded; any failure leaves state untouched.
type Engine struct {
	mu       sync.Mutex
	registry *Registry
	ledger   *Ledger

	curve    curve.Curve
	transfer domain.Transfer
	authz    domain.Authorizer
	sink     domain.EventSink

	treasury      domain.Account
	networkFeeBps uint32
	stopped       bool

	logger *slog.Logger
}

// New creates an Engine. The transfer collaborator is required; authz and
// sink may be nil (no admin operations / no observers).
func New(cfg Config, transfer domain.Transfer, authz domain.Authorizer, sink domain.EventSink, logger *slog.Logger) (*Engine, error) {
	if cfg.Treasury == domain.ZeroAccount {
		return nil, fmt.Errorf("engine: treasury: %w", domain.ErrInvalidAddress)
	}
	if !fees.Valid(cfg.NetworkFeeBasisPoints) {
		return nil, fmt.Errorf("engine: network fee: %w", domain.ErrBasisPointsOutOfRange)
	}
	if transfer == nil {
		return nil, fmt.Errorf("engine: transfer collaborator is required")
	}
	c := cfg.Curve
	if c == nil {
		c = curve.Linear{}
	}
	return &Engine{
		registry:      NewRegistry(),
		ledger:        NewLedger(),
		curve:         c,
		transfer:      transfer,
		authz:         authz,
		sink:          sink,
		treasury:      cfg.Treasury,
		networkFeeBps: cfg.NetworkFeeBasisPoints,
		logger:        logger.With(slog.String("component", "engine")),
	}, nil
}

// CreateBond registers a new bond. The identifier is chosen by the creator
// and must be unused.
func (e *Engine) CreateBond(ctx context.Context, id domain.BondID, beneficiary domain.Account, basisPoints uint32, purchasePrice uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Create(id, beneficiary, basisPoints, purchasePrice); err != nil {
		return err
	}
	e.emit(ctx, domain.Event{
		Kind:          domain.EventBondCreated,
		Bond:          id,
		Beneficiary:   beneficiary,
		BasisPoints:   basisPoints,
		PurchasePrice: purchasePrice,
	})
	return nil
}

// SetPurchasePrice updates a bond's informational purchase price via
// compare-and-swap; only the beneficiary may change it.
func (e *Engine) SetPurchasePrice(ctx context.Context, caller domain.Account, id domain.BondID, expectedCurrent, newPrice uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.SetPurchasePrice(id, caller, expectedCurrent, newPrice); err != nil {
		return err
	}
	e.emit(ctx, domain.Event{
		Kind:          domain.EventPurchasePriceChanged,
		Bond:          id,
		Actor:         caller,
		PurchasePrice: newPrice,
	})
	return nil
}

// Buy mints units of the bond to the buyer at the curve price over the
// current supply. The buyer pays the gross price; the beneficiary's
// basis-point share of the payment is credited to their withdrawable balance
// and the rest stays in the pool backing redemptions. maxPrice bounds
// slippage. Rejected in the stopped state.
func (e *Engine) Buy(ctx context.Context, buyer domain.Account, id domain.BondID, units, maxPrice uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return 0, domain.ErrExperimentStopped
	}
	bond, ok := e.registry.Get(id)
	if !ok {
		return 0, domain.ErrNotFound
	}

	total, err := e.curve.Price(bond.Supply, units)
	if err != nil {
		return 0, err
	}
	if total > maxPrice {
		return 0, domain.ErrSlippageExceeded
	}
	beneficiaryFee, _ := fees.Split(bond.BeneficiaryBasisPoints, total)

	// Every staged mutation must be proven committable before funds move,
	// so the commit below cannot fail after the external transfer.
	if err := e.registry.CanMint(id, buyer, units); err != nil {
		return 0, err
	}
	if err := e.ledger.CanCredit(bond.Beneficiary, beneficiaryFee); err != nil {
		return 0, err
	}

	if err := e.transfer.TransferIn(ctx, buyer, total); err != nil {
		return 0, fmt.Errorf("%w: pull %d from %s: %s", domain.ErrTransferFailed, total, buyer, err)
	}

	_ = e.ledger.Credit(bond.Beneficiary, beneficiaryFee)
	supplyAfter, _ := e.registry.Mint(id, buyer, units)

	e.emit(ctx, domain.Event{
		Kind:          domain.EventPurchased,
		Bond:          id,
		Actor:         buyer,
		Units:         units,
		Paid:          total,
		Fee:           beneficiaryFee,
		PurchasePrice: bond.PurchasePrice,
	})
	e.logger.InfoContext(ctx, "buy committed",
		slog.String("bond", id.String()),
		slog.String("buyer", string(buyer)),
		slog.Uint64("units", units),
		slog.Uint64("paid", total),
		slog.Uint64("supply", supplyAfter),
	)
	return total, nil
}

// Sell burns units of the seller's holding and redeems them at the curve
// integral over the removed range, minus the beneficiary fee. minValue bounds
// slippage on the net proceeds. Deliberately not gated by Stop so holders can
// always exit.
func (e *Engine) Sell(ctx context.Context, seller domain.Account, id domain.BondID, units, minValue uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bond, ok := e.registry.Get(id)
	if !ok {
		return 0, domain.ErrNotFound
	}
	if bond.Supply < units {
		return 0, domain.ErrInsufficientSupply
	}
	if bond.Balances[seller] < units {
		return 0, domain.ErrInsufficientBalance
	}

	subtotal, err := e.curve.Price(bond.Supply-units, units)
	if err != nil {
		return 0, err
	}
	beneficiaryFee, netValue := fees.Split(bond.BeneficiaryBasisPoints, subtotal)
	if netValue < minValue {
		return 0, domain.ErrSlippageExceeded
	}
	if err := e.ledger.CanCredit(bond.Beneficiary, beneficiaryFee); err != nil {
		return 0, err
	}

	if err := e.transfer.TransferOut(ctx, seller, netValue); err != nil {
		return 0, fmt.Errorf("%w: pay %d to %s: %s", domain.ErrTransferFailed, netValue, seller, err)
	}

	_ = e.registry.Burn(id, seller, units)
	_ = e.ledger.Credit(bond.Beneficiary, beneficiaryFee)

	e.emit(ctx, domain.Event{
		Kind:  domain.EventSold,
		Bond:  id,
		Actor: seller,
		Units: units,
		Value: netValue,
		Fee:   beneficiaryFee,
	})
	e.logger.InfoContext(ctx, "sell committed",
		slog.String("bond", id.String()),
		slog.String("seller", string(seller)),
		slog.Uint64("units", units),
		slog.Uint64("net_value", netValue),
	)
	return netValue, nil
}

// Withdraw drains the account's accumulated fee credits. The internal balance
// is zeroed before any external transfer is attempted; the network fee share
// of the drained amount goes to the treasury. Valid in any state.
func (e *Engine) Withdraw(ctx context.Context, account domain.Account) (net, networkFee uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	amount, err := e.ledger.Withdraw(account)
	if err != nil {
		return 0, 0, err
	}
	networkFee, net = fees.Split(e.networkFeeBps, amount)

	if err := e.transfer.TransferOut(ctx, account, net); err != nil {
		// Nothing has left custody: restore the balance and abort.
		_ = e.ledger.Credit(account, amount)
		return 0, 0, fmt.Errorf("%w: pay %d to %s: %s", domain.ErrTransferFailed, net, account, err)
	}
	if networkFee > 0 {
		if err := e.transfer.TransferOut(ctx, e.treasury, networkFee); err != nil {
			// The account's payout already settled and cannot be unwound.
			// Keep the fee claimable by crediting it back to the treasury's
			// withdrawable balance.
			_ = e.ledger.Credit(e.treasury, networkFee)
			e.logger.WarnContext(ctx, "treasury transfer failed, fee re-credited",
				slog.String("treasury", string(e.treasury)),
				slog.Uint64("network_fee", networkFee),
				slog.String("error", err.Error()),
			)
		}
	}

	e.emit(ctx, domain.Event{
		Kind:       domain.EventWithdrawn,
		Actor:      account,
		Value:      net,
		NetworkFee: networkFee,
	})
	return net, networkFee, nil
}

// Stop latches the engine into the terminal stopped state. Buys are rejected
// afterwards; sells and withdrawals keep working. Admin only.
func (e *Engine) Stop(ctx context.Context, caller domain.Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isAdmin(ctx, caller) {
		return domain.ErrUnauthorized
	}
	if e.stopped {
		return domain.ErrAlreadyStopped
	}
	e.stopped = true
	e.emit(ctx, domain.Event{
		Kind:  domain.EventExperimentStopped,
		Actor: caller,
	})
	e.logger.InfoContext(ctx, "engine stopped", slog.String("by", string(caller)))
	return nil
}

// SetNetworkFeeBasisPoints updates the platform fee rate via the same
// compare-and-swap discipline as bond purchase prices. Admin only.
func (e *Engine) SetNetworkFeeBasisPoints(ctx context.Context, caller domain.Account, expectedCurrent, newValue uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isAdmin(ctx, caller) {
		return domain.ErrUnauthorized
	}
	if !fees.Valid(newValue) {
		return domain.ErrBasisPointsOutOfRange
	}
	if expectedCurrent != e.networkFeeBps {
		return domain.ErrPriceMismatch
	}
	e.networkFeeBps = newValue
	e.emit(ctx, domain.Event{
		Kind:        domain.EventNetworkFeeChanged,
		Actor:       caller,
		BasisPoints: newValue,
	})
	return nil
}

// QuoteBuy previews the gross price and fee split for buying units.
func (e *Engine) QuoteBuy(id domain.BondID, units uint64) (domain.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bond, ok := e.registry.Get(id)
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	total, err := e.curve.Price(bond.Supply, units)
	if err != nil {
		return domain.Quote{}, err
	}
	fee, net := fees.Split(bond.BeneficiaryBasisPoints, total)
	return domain.Quote{
		Bond: id, Side: "buy", Units: units, Supply: bond.Supply,
		Total: total, Fee: fee, Net: net,
	}, nil
}

// QuoteSell previews the redemption value and fee split for selling units.
func (e *Engine) QuoteSell(id domain.BondID, units uint64) (domain.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bond, ok := e.registry.Get(id)
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	if bond.Supply < units {
		return domain.Quote{}, domain.ErrInsufficientSupply
	}
	subtotal, err := e.curve.Price(bond.Supply-units, units)
	if err != nil {
		return domain.Quote{}, err
	}
	fee, net := fees.Split(bond.BeneficiaryBasisPoints, subtotal)
	return domain.Quote{
		Bond: id, Side: "sell", Units: units, Supply: bond.Supply,
		Total: subtotal, Fee: fee, Net: net,
	}, nil
}

// Bond returns a copy of the bond record.
func (e *Engine) Bond(id domain.BondID) (domain.Bond, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bond, ok := e.registry.Get(id)
	if !ok {
		return domain.Bond{}, domain.ErrNotFound
	}
	return bond.Clone(), nil
}

// Withdrawable returns the account's current fee credit balance.
func (e *Engine) Withdrawable(account domain.Account) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance(account)
}

// NetworkFeeBasisPoints returns the current platform fee rate.
func (e *Engine) NetworkFeeBasisPoints() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.networkFeeBps
}

// Stopped reports whether the engine has been stopped.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Treasury returns the treasury account.
func (e *Engine) Treasury() domain.Account {
	return e.treasury
}

// Snapshot produces a consistent copy of all engine state for persistence.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Snapshot{
		Bonds:                 e.registry.Bonds(),
		Withdrawable:          e.ledger.Accounts(),
		NetworkFeeBasisPoints: e.networkFeeBps,
		Stopped:               e.stopped,
	}
}

// Restore replaces engine state from a persisted snapshot. Intended for
// startup rehydration, before the engine starts serving requests.
func (e *Engine) Restore(snap domain.Snapshot) error {
	if !fees.Valid(snap.NetworkFeeBasisPoints) {
		return domain.ErrBasisPointsOutOfRange
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Restore(snap.Bonds)
	e.ledger.Restore(snap.Withdrawable)
	e.networkFeeBps = snap.NetworkFeeBasisPoints
	e.stopped = snap.Stopped
	return nil
}

func (e *Engine) isAdmin(ctx context.Context, caller domain.Account) bool {
	return e.authz != nil && e.authz.IsAdmin(ctx, caller)
}

// emit hands a committed event to the sink. The sink is an observer; it runs
// inside the lock so sinks see events in exact commit order.
func (e *Engine) emit(ctx context.Context, evt domain.Event) {
	if e.sink == nil {
		return
	}
	evt.At = time.Now().UTC()
	e.sink.Emit(ctx, evt)
}
