package core

import (
	"github.com/google/btree"
	"github.com/nikolaydubina/fpdecimal"
)

// LevelSummary is a read-only view of one price level, used for snapshots.
type LevelSummary struct {
	Price    fpdecimal.Decimal
	Quantity fpdecimal.Decimal
	Orders   int
}

// BookSide holds the price levels for one side of a book, ordered by
// price. Bids iterate best-to-worst descending, asks ascending.
type BookSide struct {
	side   Side
	levels *btree.BTree
}

// NewBookSide creates an empty side
func NewBookSide(side Side) *BookSide {
	return &BookSide{
		side:   side,
		levels: btree.New(32),
	}
}

// Side returns which side of the book this is
func (bs *BookSide) Side() Side {
	return bs.side
}

// Len returns the number of price levels
func (bs *BookSide) Len() int {
	return bs.levels.Len()
}

// BestLevel returns the level nearest the opposing side: the maximum
// price for bids, the minimum for asks. Nil when the side is empty.
func (bs *BookSide) BestLevel() *PriceLevel {
	var item btree.Item
	if bs.side == Buy {
		item = bs.levels.Max()
	} else {
		item = bs.levels.Min()
	}

	if item == nil {
		return nil
	}
	return item.(*PriceLevel)
}

// Insert enqueues the order at its price level, creating the level if
// it does not exist yet.
func (bs *BookSide) Insert(order *Order) error {
	level := bs.getOrCreateLevel(order.Price())
	return level.Enqueue(order)
}

// Level returns the level at an exact price, or nil
func (bs *BookSide) Level(price fpdecimal.Decimal) *PriceLevel {
	item := bs.levels.Get(&PriceLevel{price: price})
	if item == nil {
		return nil
	}
	return item.(*PriceLevel)
}

// RemoveIfEmpty deletes the level at price when its queue has drained,
// so BestLevel never reports a zero-quantity placeholder.
func (bs *BookSide) RemoveIfEmpty(price fpdecimal.Decimal) {
	level := bs.Level(price)
	if level != nil && level.IsEmpty() {
		bs.levels.Delete(level)
	}
}

// EachLevel visits levels from best to worst price until fn returns
// false. Iteration does not mutate the side.
func (bs *BookSide) EachLevel(fn func(*PriceLevel) bool) {
	iter := func(item btree.Item) bool {
		return fn(item.(*PriceLevel))
	}
	if bs.side == Buy {
		bs.levels.Descend(iter)
	} else {
		bs.levels.Ascend(iter)
	}
}

// TopN summarizes up to n levels from best to worst price.
func (bs *BookSide) TopN(n int) []LevelSummary {
	if n <= 0 {
		return nil
	}

	out := make([]LevelSummary, 0, n)
	bs.EachLevel(func(level *PriceLevel) bool {
		out = append(out, LevelSummary{
			Price:    level.Price(),
			Quantity: level.TotalQty(),
			Orders:   level.OrderCount(),
		})
		return len(out) < n
	})
	return out
}

func (bs *BookSide) getOrCreateLevel(price fpdecimal.Decimal) *PriceLevel {
	if item := bs.levels.Get(&PriceLevel{price: price}); item != nil {
		return item.(*PriceLevel)
	}

	level := NewPriceLevel(price)
	bs.levels.ReplaceOrInsert(level)
	return level
}
