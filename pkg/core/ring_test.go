package core

import (
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ringTrade(id uint64) Trade {
	return Trade{ID: id, Symbol: "AAPL", Price: fpdecimal.FromInt(100), Quantity: fpdecimal.FromInt(1)}
}

func TestTradeRingAppend(t *testing.T) {
	r := newTradeRing(3)
	assert.Equal(t, 0, r.Len())

	r.Append(ringTrade(1))
	r.Append(ringTrade(2))
	assert.Equal(t, 2, r.Len())

	recent := r.Recent(3)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(2), recent[0].ID, "newest first")
	assert.Equal(t, uint64(1), recent[1].ID)
}

func TestTradeRingRecentNonPositive(t *testing.T) {
	r := newTradeRing(3)
	r.Append(ringTrade(1))

	assert.Empty(t, r.Recent(0))
	assert.Empty(t, r.Recent(-1))
}

func TestTradeRingEvictsOldest(t *testing.T) {
	r := newTradeRing(3)
	for id := uint64(1); id <= 5; id++ {
		r.Append(ringTrade(id))
	}

	assert.Equal(t, 3, r.Len())
	recent := r.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, uint64(5), recent[0].ID)
	assert.Equal(t, uint64(4), recent[1].ID)
	assert.Equal(t, uint64(3), recent[2].ID, "oldest surviving entry")
}

func TestTradeRingRecentLimit(t *testing.T) {
	r := newTradeRing(10)
	for id := uint64(1); id <= 6; id++ {
		r.Append(ringTrade(id))
	}

	recent := r.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(6), recent[0].ID)
	assert.Equal(t, uint64(5), recent[1].ID)

	assert.Len(t, r.Recent(100), 6)
}

func TestTradeRingDefaultCapacity(t *testing.T) {
	r := newTradeRing(0)
	for id := uint64(1); id <= DefaultTradeLogCapacity+10; id++ {
		r.Append(ringTrade(id))
	}
	assert.Equal(t, DefaultTradeLogCapacity, r.Len())
}
