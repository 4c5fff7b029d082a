package domain

import (
	"context"
	"time"
)

// EventKind discriminates journal events.
type EventKind string

const (
	EventBondCreated          EventKind = "bond_created"
	EventPurchasePriceChanged EventKind = "purchase_price_changed"
	EventPurchased            EventKind = "purchased"
	EventSold                 EventKind = "sold"
	EventWithdrawn            EventKind = "withdrawn"
	EventNetworkFeeChanged    EventKind = "network_fee_changed"
	EventExperimentStopped    EventKind = "experiment_stopped"
)

// Event is one entry of the append-only journal. Each event carries enough
// data for an external observer to reconstruct engine state without
// re-deriving it. ID and Seq are assigned by the journal; the remaining
// fields are filled by the engine at commit time.
type Event struct {
	ID   string    `json:"id"`
	Seq  uint64    `json:"seq"`
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`

	Bond  BondID  `json:"bond,omitzero"`
	Actor Account `json:"actor,omitempty"`

	Beneficiary Account `json:"beneficiary,omitempty"`
	BasisPoints uint32  `json:"basis_points,omitempty"`

	// Purchased / Sold.
	Units uint64 `json:"units,omitempty"`
	Paid  uint64 `json:"paid,omitempty"`
	Value uint64 `json:"value,omitempty"`
	Fee   uint64 `json:"fee,omitempty"`

	// PurchasePriceChanged carries the new price; Purchased carries the
	// informational purchase price in effect at the time of the trade.
	PurchasePrice uint64 `json:"purchase_price,omitempty"`

	// Withdrawn.
	NetworkFee uint64 `json:"network_fee,omitempty"`
}

// EventSink receives every committed engine operation, in commit order.
// Sinks are observers: they must not influence whether an operation commits.
type EventSink interface {
	Emit(ctx context.Context, evt Event)
}

// StreamMessage is a single entry read back from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}
