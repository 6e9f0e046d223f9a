package core

import (
	"github.com/google/btree"
	"github.com/nikolaydubina/fpdecimal"
)

// Fill records how much of one resting order was consumed by a match pass.
type Fill struct {
	Order    *Order
	Quantity fpdecimal.Decimal
}

// PriceLevel is a FIFO queue of resting orders at one exact price.
// The aggregate quantity always equals the sum of the members'
// remaining quantities.
type PriceLevel struct {
	price      fpdecimal.Decimal
	head       *Order
	tail       *Order
	totalQty   fpdecimal.Decimal
	orderCount int
}

// NewPriceLevel creates an empty level at the given price
func NewPriceLevel(price fpdecimal.Decimal) *PriceLevel {
	return &PriceLevel{
		price:    price,
		totalQty: fpdecimal.Zero,
	}
}

// Price returns the level price
func (pl *PriceLevel) Price() fpdecimal.Decimal {
	return pl.price
}

// TotalQty returns the aggregate remaining quantity across the queue
func (pl *PriceLevel) TotalQty() fpdecimal.Decimal {
	return pl.totalQty
}

// OrderCount returns the number of resting orders at this level
func (pl *PriceLevel) OrderCount() int {
	return pl.orderCount
}

// IsEmpty reports whether the queue holds no orders
func (pl *PriceLevel) IsEmpty() bool {
	return pl.head == nil
}

// Enqueue appends an order at the queue tail. The order price must match
// the level price exactly.
func (pl *PriceLevel) Enqueue(order *Order) error {
	if !order.Price().Equal(pl.price) {
		return ErrPriceMismatch
	}

	if pl.head == nil {
		pl.head = order
		pl.tail = order
	} else {
		pl.tail.next = order
		order.prev = pl.tail
		pl.tail = order
	}

	pl.totalQty = pl.totalQty.Add(order.Quantity())
	pl.orderCount++
	return nil
}

// MatchAgainst consumes resting orders from the head of the queue in
// arrival order until quantity is exhausted or the queue empties.
// Fully filled orders are dequeued; a partially filled head keeps its
// position. Returns the total filled and the per-order breakdown.
func (pl *PriceLevel) MatchAgainst(quantity fpdecimal.Decimal) (fpdecimal.Decimal, []Fill) {
	filled := fpdecimal.Zero
	var fills []Fill

	for pl.head != nil && quantity.GreaterThan(fpdecimal.Zero) {
		maker := pl.head

		matchQty := quantity
		if maker.Quantity().LessThan(matchQty) {
			matchQty = maker.Quantity()
		}

		maker.DecreaseQuantity(matchQty)
		quantity = quantity.Sub(matchQty)
		filled = filled.Add(matchQty)
		pl.totalQty = pl.totalQty.Sub(matchQty)
		fills = append(fills, Fill{Order: maker, Quantity: matchQty})

		if maker.IsFilled() {
			pl.unlink(maker)
		}
	}

	return filled, fills
}

// Remove unlinks a specific resting order from the queue.
func (pl *PriceLevel) Remove(order *Order) bool {
	for o := pl.head; o != nil; o = o.next {
		if o == order {
			pl.totalQty = pl.totalQty.Sub(o.Quantity())
			pl.unlink(o)
			return true
		}
	}
	return false
}

func (pl *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		pl.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		pl.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	pl.orderCount--
}

// checkAggregate recomputes the member sum and compares it to the
// maintained total. Used by the book's invariant sweep.
func (pl *PriceLevel) checkAggregate() bool {
	sum := fpdecimal.Zero
	for o := pl.head; o != nil; o = o.next {
		sum = sum.Add(o.Quantity())
	}
	return sum.Equal(pl.totalQty)
}

// Less orders levels by raw price for btree storage; the side decides
// which end of the tree is best.
func (pl *PriceLevel) Less(than btree.Item) bool {
	return pl.price.LessThan(than.(*PriceLevel).price)
}
