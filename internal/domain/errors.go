package domain

import "errors"

// Operation-scoped failures. Every error aborts the triggering operation
// atomically; nothing is retried automatically and there is no fatal-process
// category.
var (
	ErrInvalidAddress        = errors.New("invalid address")
	ErrBasisPointsOutOfRange = errors.New("basis points out of range")
	ErrBondAlreadyExists     = errors.New("bond already exists")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrPriceMismatch         = errors.New("price mismatch")
	ErrInsufficientSupply    = errors.New("insufficient supply")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrNothingToWithdraw     = errors.New("nothing to withdraw")
	ErrAlreadyStopped        = errors.New("already stopped")
	ErrExperimentStopped     = errors.New("experiment stopped")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
	ErrLockHeld              = errors.New("lock already held")
)
