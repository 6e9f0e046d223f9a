package core

import (
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOrder(t *testing.T, id uint64, side Side, qty, price float64) *Order {
	t.Helper()
	order, err := NewLimitOrder(id, side, "AAPL", fpdecimal.FromFloat(qty), fpdecimal.FromFloat(price), time.Now())
	require.NoError(t, err)
	return order
}

func TestPriceLevelEnqueue(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))

	require.NoError(t, level.Enqueue(mustOrder(t, 1, Buy, 10, 100)))
	require.NoError(t, level.Enqueue(mustOrder(t, 2, Buy, 5, 100)))

	assert.Equal(t, 2, level.OrderCount())
	assert.Equal(t, fpdecimal.FromInt(15), level.TotalQty())
	assert.False(t, level.IsEmpty())
}

func TestPriceLevelEnqueuePriceMismatch(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))

	err := level.Enqueue(mustOrder(t, 1, Buy, 10, 101))
	assert.ErrorIs(t, err, ErrPriceMismatch)
	assert.True(t, level.IsEmpty())
}

func TestMatchAgainstFIFO(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))
	first := mustOrder(t, 1, Sell, 10, 100)
	second := mustOrder(t, 2, Sell, 10, 100)
	require.NoError(t, level.Enqueue(first))
	require.NoError(t, level.Enqueue(second))

	filled, fills := level.MatchAgainst(fpdecimal.FromInt(15))

	assert.Equal(t, fpdecimal.FromInt(15), filled)
	require.Len(t, fills, 2)
	assert.Equal(t, uint64(1), fills[0].Order.ID(), "earliest order fills first")
	assert.Equal(t, fpdecimal.FromInt(10), fills[0].Quantity)
	assert.Equal(t, uint64(2), fills[1].Order.ID())
	assert.Equal(t, fpdecimal.FromInt(5), fills[1].Quantity)

	// The filled maker left the queue; the partial one kept its spot.
	assert.Equal(t, 1, level.OrderCount())
	assert.Equal(t, fpdecimal.FromInt(5), level.TotalQty())
	assert.True(t, first.IsFilled())
	assert.Equal(t, fpdecimal.FromInt(5), second.Quantity())
}

func TestMatchAgainstPartialHead(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))
	maker := mustOrder(t, 1, Sell, 10, 100)
	require.NoError(t, level.Enqueue(maker))

	filled, fills := level.MatchAgainst(fpdecimal.FromInt(3))

	assert.Equal(t, fpdecimal.FromInt(3), filled)
	require.Len(t, fills, 1)
	assert.Equal(t, fpdecimal.FromInt(7), maker.Quantity())
	assert.Equal(t, 1, level.OrderCount(), "partially filled head keeps priority")
	assert.True(t, level.checkAggregate())
}

func TestMatchAgainstDrainsLevel(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))
	require.NoError(t, level.Enqueue(mustOrder(t, 1, Sell, 4, 100)))
	require.NoError(t, level.Enqueue(mustOrder(t, 2, Sell, 6, 100)))

	filled, fills := level.MatchAgainst(fpdecimal.FromInt(50))

	assert.Equal(t, fpdecimal.FromInt(10), filled, "fills stop at available quantity")
	assert.Len(t, fills, 2)
	assert.True(t, level.IsEmpty())
	assert.Equal(t, fpdecimal.Zero, level.TotalQty())
	assert.Equal(t, 0, level.OrderCount())
}

func TestRemove(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))
	first := mustOrder(t, 1, Buy, 10, 100)
	middle := mustOrder(t, 2, Buy, 5, 100)
	last := mustOrder(t, 3, Buy, 7, 100)
	for _, o := range []*Order{first, middle, last} {
		require.NoError(t, level.Enqueue(o))
	}

	assert.True(t, level.Remove(middle))
	assert.Equal(t, 2, level.OrderCount())
	assert.Equal(t, fpdecimal.FromInt(17), level.TotalQty())
	assert.True(t, level.checkAggregate())

	// Remaining orders keep FIFO order.
	_, fills := level.MatchAgainst(fpdecimal.FromInt(17))
	require.Len(t, fills, 2)
	assert.Equal(t, uint64(1), fills[0].Order.ID())
	assert.Equal(t, uint64(3), fills[1].Order.ID())
}

func TestRemoveMissingOrder(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))
	require.NoError(t, level.Enqueue(mustOrder(t, 1, Buy, 10, 100)))

	stranger := mustOrder(t, 99, Buy, 1, 100)
	assert.False(t, level.Remove(stranger))
	assert.Equal(t, 1, level.OrderCount())
}

func TestCheckAggregate(t *testing.T) {
	level := NewPriceLevel(fpdecimal.FromInt(100))
	require.NoError(t, level.Enqueue(mustOrder(t, 1, Buy, 10, 100)))
	assert.True(t, level.checkAggregate())

	// Corrupt the running total to make sure the sweep catches it.
	level.totalQty = level.totalQty.Add(fpdecimal.FromInt(1))
	assert.False(t, level.checkAggregate())
}
