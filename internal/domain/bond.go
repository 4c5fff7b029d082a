// Package domain defines the core types of the bond engine: bonds, accounts,
// events, the error taxonomy, and the capability/store interfaces implemented
// elsewhere. It has no dependencies on any infrastructure package.
package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// BasisPointsDenominator is the fixed denominator for all basis-point rates.
// Both the beneficiary rate and the network fee rate are expressed against it.
const BasisPointsDenominator = 10_000

// Account identifies a holder, beneficiary, or the treasury. The zero value
// is the null account and is never a valid participant.
type Account string

// ZeroAccount is the null account.
const ZeroAccount Account = ""

// BondID is the fixed-size opaque identifier of a bond. IDs are assigned by
// the creator and never reused.
type BondID [32]byte

// ParseBondID decodes a hex-encoded bond identifier, with or without a 0x
// prefix. The input must encode exactly 32 bytes.
func ParseBondID(s string) (BondID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return BondID{}, fmt.Errorf("domain: parse bond id %q: %w", s, err)
	}
	if len(raw) != len(BondID{}) {
		return BondID{}, fmt.Errorf("domain: bond id must be %d bytes, got %d", len(BondID{}), len(raw))
	}
	var id BondID
	copy(id[:], raw)
	return id, nil
}

// String returns the 0x-prefixed hex encoding of the identifier.
func (id BondID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalText encodes the identifier as hex, so JSON payloads carry the
// human-readable form rather than a byte array.
func (id BondID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex identifier.
func (id *BondID) UnmarshalText(text []byte) error {
	parsed, err := ParseBondID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Bond is a mintable/redeemable position priced along the engine's curve.
// Identity, beneficiary, and rate are immutable after creation; PurchasePrice
// changes only through a compare-and-swap by the beneficiary.
type Bond struct {
	ID                     BondID
	Beneficiary            Account
	BeneficiaryBasisPoints uint32
	PurchasePrice          uint64
	Supply                 uint64
	Balances               map[Account]uint64
}

// Clone returns a deep copy so callers can hand bonds across goroutine
// boundaries without aliasing the engine's balance map.
func (b Bond) Clone() Bond {
	out := b
	out.Balances = make(map[Account]uint64, len(b.Balances))
	for holder, amount := range b.Balances {
		out.Balances[holder] = amount
	}
	return out
}

// BalanceOf returns the holder's balance on this bond (0 when absent).
func (b Bond) BalanceOf(holder Account) uint64 {
	return b.Balances[holder]
}

// Snapshot is a consistent point-in-time copy of the whole engine state,
// produced under the engine lock and safe to persist outside it.
type Snapshot struct {
	Bonds                 []Bond
	Withdrawable          map[Account]uint64
	NetworkFeeBasisPoints uint32
	Stopped               bool
}

// Quote is a spot price preview for a prospective buy or sell, including the
// beneficiary fee split the engine would apply.
type Quote struct {
	Bond   BondID `json:"bond"`
	Side   string `json:"side"` // "buy" or "sell"
	Units  uint64 `json:"units"`
	Supply uint64 `json:"supply"`
	// Total is the gross curve price over the quoted range.
	Total uint64 `json:"total"`
	// Fee is the beneficiary share of Total.
	Fee uint64 `json:"fee"`
	// Net is Total minus Fee: what the pool retains on a buy, or what the
	// seller receives on a sell.
	Net uint64 `json:"net"`
}
