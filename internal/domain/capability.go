package domain

import (
	"context"
	"time"
)

// Transfer moves the reserve asset between external accounts and the engine's
// custody. A non-nil error means the asset did not move; the calling
// operation must abort with no state change.
type Transfer interface {
	// TransferIn pulls amount of the reserve asset from the given account
	// into the engine's custody.
	TransferIn(ctx context.Context, from Account, amount uint64) error
	// TransferOut pays amount of the reserve asset out of the engine's
	// custody to the given account.
	TransferOut(ctx context.Context, to Account, amount uint64) error
}

// Authorizer gates administrative operations (stop, network fee changes).
type Authorizer interface {
	IsAdmin(ctx context.Context, account Account) bool
}

// BondStore persists bond snapshots (definition plus holder balances).
type BondStore interface {
	Upsert(ctx context.Context, bond Bond) error
	UpsertBatch(ctx context.Context, bonds []Bond) error
	GetByID(ctx context.Context, id BondID) (Bond, error)
	List(ctx context.Context) ([]Bond, error)
}

// AccountStore persists withdrawable balances.
type AccountStore interface {
	UpsertBatch(ctx context.Context, withdrawable map[Account]uint64) error
	List(ctx context.Context) (map[Account]uint64, error)
}

// ParamStore persists the global engine parameters that survive restarts.
type ParamStore interface {
	Save(ctx context.Context, networkFeeBasisPoints uint32, stopped bool) error
	// Load returns ErrNotFound when no parameters have been saved yet.
	Load(ctx context.Context) (networkFeeBasisPoints uint32, stopped bool, err error)
}

// EventStore persists the append-only, ordered event journal.
type EventStore interface {
	Append(ctx context.Context, evt Event) error
	// ListRange returns up to limit events with Seq > afterSeq, in ascending
	// sequence order.
	ListRange(ctx context.Context, afterSeq uint64, limit int) ([]Event, error)
	LastSeq(ctx context.Context) (uint64, error)
	// DeleteThrough removes events with Seq <= seq and returns the number
	// deleted. Used after journal segments have been archived.
	DeleteThrough(ctx context.Context, seq uint64) (int64, error)
}

// QuoteCache caches spot quotes keyed by bond, side, and size.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote, ttl time.Duration) error
	// GetQuote returns ErrNotFound on a cache miss.
	GetQuote(ctx context.Context, bond BondID, side string, units uint64) (Quote, error)
}

// SignalBus publishes committed events to live subscribers and appends them
// to a durable stream for replay.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter bounds request rates per key across all instances.
type RateLimiter interface {
	// Allow reports whether another request under key fits inside the
	// limit-per-window budget.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion so that background jobs
// (snapshots, archival) run on at most one instance at a time.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when the
	// lock is held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter uploads sealed journal segments to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
