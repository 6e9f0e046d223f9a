package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideString(t *testing.T) {
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "UNKNOWN", Side(42).String())
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestNewLimitOrder(t *testing.T) {
	now := time.Now()
	order, err := NewLimitOrder(1, Buy, "AAPL", fpdecimal.FromInt(100), fpdecimal.FromFloat(175.50), now)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), order.ID())
	assert.Equal(t, Buy, order.Side())
	assert.Equal(t, "AAPL", order.Symbol())
	assert.Equal(t, fpdecimal.FromInt(100), order.Quantity())
	assert.Equal(t, fpdecimal.FromInt(100), order.OriginalQty())
	assert.Equal(t, fpdecimal.FromFloat(175.50), order.Price())
	assert.Equal(t, now, order.SubmittedAt())
	assert.False(t, order.IsFilled())
}

func TestNewLimitOrderValidation(t *testing.T) {
	now := time.Now()

	_, err := NewLimitOrder(1, Buy, "AAPL", fpdecimal.Zero, fpdecimal.FromInt(100), now)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewLimitOrder(1, Buy, "AAPL", fpdecimal.FromInt(-5), fpdecimal.FromInt(100), now)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewLimitOrder(1, Buy, "AAPL", fpdecimal.FromInt(5), fpdecimal.Zero, now)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewLimitOrder(1, Sell, "AAPL", fpdecimal.FromInt(5), fpdecimal.FromInt(-1), now)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestDecreaseQuantity(t *testing.T) {
	order, err := NewLimitOrder(1, Sell, "MSFT", fpdecimal.FromInt(10), fpdecimal.FromInt(380), time.Now())
	require.NoError(t, err)

	order.DecreaseQuantity(fpdecimal.FromInt(4))
	assert.Equal(t, fpdecimal.FromInt(6), order.Quantity())
	assert.Equal(t, fpdecimal.FromInt(10), order.OriginalQty(), "original quantity never changes")
	assert.False(t, order.IsFilled())

	order.DecreaseQuantity(fpdecimal.FromInt(6))
	assert.True(t, order.IsFilled())
}

func TestOrderJSON(t *testing.T) {
	order, err := NewLimitOrder(7, Buy, "NVDA", fpdecimal.FromInt(25), fpdecimal.FromFloat(450.25), time.Now())
	require.NoError(t, err)

	data, err := json.Marshal(order)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(7), decoded["id"])
	assert.Equal(t, "BUY", decoded["side"])
	assert.Equal(t, "NVDA", decoded["symbol"])
	assert.Equal(t, "450.250", decoded["price"])
}
