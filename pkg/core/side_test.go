package core

import (
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestLevelBids(t *testing.T) {
	side := NewBookSide(Buy)
	assert.Nil(t, side.BestLevel())

	require.NoError(t, side.Insert(mustOrder(t, 1, Buy, 10, 99)))
	require.NoError(t, side.Insert(mustOrder(t, 2, Buy, 10, 101)))
	require.NoError(t, side.Insert(mustOrder(t, 3, Buy, 10, 100)))

	best := side.BestLevel()
	require.NotNil(t, best)
	assert.Equal(t, fpdecimal.FromInt(101), best.Price(), "highest bid is best")
}

func TestBestLevelAsks(t *testing.T) {
	side := NewBookSide(Sell)

	require.NoError(t, side.Insert(mustOrder(t, 1, Sell, 10, 102)))
	require.NoError(t, side.Insert(mustOrder(t, 2, Sell, 10, 100)))
	require.NoError(t, side.Insert(mustOrder(t, 3, Sell, 10, 101)))

	best := side.BestLevel()
	require.NotNil(t, best)
	assert.Equal(t, fpdecimal.FromInt(100), best.Price(), "lowest ask is best")
}

func TestInsertSamePriceShareLevel(t *testing.T) {
	side := NewBookSide(Buy)

	require.NoError(t, side.Insert(mustOrder(t, 1, Buy, 10, 100)))
	require.NoError(t, side.Insert(mustOrder(t, 2, Buy, 5, 100)))

	assert.Equal(t, 1, side.Len())
	level := side.Level(fpdecimal.FromInt(100))
	require.NotNil(t, level)
	assert.Equal(t, 2, level.OrderCount())
	assert.Equal(t, fpdecimal.FromInt(15), level.TotalQty())
}

func TestRemoveIfEmpty(t *testing.T) {
	side := NewBookSide(Sell)
	order := mustOrder(t, 1, Sell, 10, 100)
	require.NoError(t, side.Insert(order))

	level := side.Level(fpdecimal.FromInt(100))
	require.NotNil(t, level)

	// A populated level stays.
	side.RemoveIfEmpty(fpdecimal.FromInt(100))
	assert.Equal(t, 1, side.Len())

	level.MatchAgainst(fpdecimal.FromInt(10))
	side.RemoveIfEmpty(fpdecimal.FromInt(100))
	assert.Equal(t, 0, side.Len())
	assert.Nil(t, side.BestLevel())
}

func TestEachLevelOrdering(t *testing.T) {
	bids := NewBookSide(Buy)
	asks := NewBookSide(Sell)
	for i, price := range []float64{100, 102, 101} {
		require.NoError(t, bids.Insert(mustOrder(t, uint64(i+1), Buy, 10, price)))
		require.NoError(t, asks.Insert(mustOrder(t, uint64(i+10), Sell, 10, price)))
	}

	var bidPrices []string
	bids.EachLevel(func(l *PriceLevel) bool {
		bidPrices = append(bidPrices, l.Price().String())
		return true
	})
	assert.Equal(t, []string{"102.000", "101.000", "100.000"}, bidPrices, "bids descend")

	var askPrices []string
	asks.EachLevel(func(l *PriceLevel) bool {
		askPrices = append(askPrices, l.Price().String())
		return true
	})
	assert.Equal(t, []string{"100.000", "101.000", "102.000"}, askPrices, "asks ascend")
}

func TestTopN(t *testing.T) {
	side := NewBookSide(Buy)
	for i, price := range []float64{98, 99, 100, 101} {
		require.NoError(t, side.Insert(mustOrder(t, uint64(i+1), Buy, 10, price)))
	}

	top := side.TopN(2)
	require.Len(t, top, 2)
	assert.Equal(t, fpdecimal.FromInt(101), top[0].Price)
	assert.Equal(t, fpdecimal.FromInt(100), top[1].Price)

	assert.Len(t, side.TopN(10), 4, "TopN caps at available levels")
	assert.Nil(t, side.TopN(0))
}
