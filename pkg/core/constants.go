package core

import "errors"

// Errors
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrPriceMismatch     = errors.New("order price does not match level price")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrNonexistentOrder  = errors.New("nonexistent order")
	ErrBookFrozen        = errors.New("order book frozen after invariant violation")
	ErrInvariantViolated = errors.New("book invariant violated")
)

// DefaultTradeLogCapacity bounds the per-book ring of recent trades.
const DefaultTradeLogCapacity = 100
