package core

import (
	"encoding/json"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is a limit order resting in, or matching against, a book.
// Identity fields are fixed at creation; only the remaining quantity
// decreases as the order fills.
type Order struct {
	id          uint64
	side        Side
	symbol      string
	quantity    fpdecimal.Decimal
	originalQty fpdecimal.Decimal
	price       fpdecimal.Decimal
	submittedAt time.Time

	// intrusive FIFO links, owned by the level holding the order
	next *Order
	prev *Order
}

// NewLimitOrder creates an Order, validating price and quantity.
func NewLimitOrder(id uint64, side Side, symbol string, quantity, price fpdecimal.Decimal, submittedAt time.Time) (*Order, error) {
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	if price.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidPrice
	}

	return &Order{
		id:          id,
		side:        side,
		symbol:      symbol,
		quantity:    quantity,
		originalQty: quantity,
		price:       price,
		submittedAt: submittedAt,
	}, nil
}

// ID returns the order id
func (o *Order) ID() uint64 {
	return o.id
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Symbol returns the instrument symbol
func (o *Order) Symbol() string {
	return o.symbol
}

// Quantity returns the remaining quantity
func (o *Order) Quantity() fpdecimal.Decimal {
	return o.quantity
}

// OriginalQty returns the quantity requested at submission
func (o *Order) OriginalQty() fpdecimal.Decimal {
	return o.originalQty
}

// Price returns the limit price
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// SubmittedAt returns the submission timestamp
func (o *Order) SubmittedAt() time.Time {
	return o.submittedAt
}

// DecreaseQuantity reduces the remaining quantity by the filled amount
func (o *Order) DecreaseQuantity(quantity fpdecimal.Decimal) {
	o.quantity = o.quantity.Sub(quantity)
}

// IsFilled reports whether no quantity remains
func (o *Order) IsFilled() bool {
	return o.quantity.Equal(fpdecimal.Zero)
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	type OrderJSON struct {
		ID          uint64 `json:"id"`
		Side        string `json:"side"`
		Symbol      string `json:"symbol"`
		Quantity    string `json:"quantity"`
		OriginalQty string `json:"originalQty"`
		Price       string `json:"price"`
		SubmittedAt int64  `json:"submittedAt"`
	}

	return json.Marshal(OrderJSON{
		ID:          o.id,
		Side:        o.side.String(),
		Symbol:      o.symbol,
		Quantity:    o.quantity.String(),
		OriginalQty: o.originalQty.String(),
		Price:       o.price.String(),
		SubmittedAt: o.submittedAt.UnixNano(),
	})
}

// String implements fmt.Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
