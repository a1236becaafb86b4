package pricing

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallex_bot/internal/models"
)

func calc() *Calculator {
	return NewCalculator(Config{TickValue: 0.01, StopLossBuffer: 0.1, PipAllowance: 0.2, MinRewardToRisk: 2})
}

func TestComputeEmptyEpisode(t *testing.T) {
	_, err := calc().Compute(nil, models.SideBuy)
	assert.True(t, errors.Is(err, models.ErrInvalidEpisode))
}

func TestComputeBuy(t *testing.T) {
	candles := []models.Candle{
		{Low: 98.5, High: 101.5, Close: 99, BBHigh: 120, BBLow: 100},
		{Low: 99.5, High: 103, Close: 102, BBHigh: 119, BBLow: 100},
	}
	d, err := calc().Compute(candles, models.SideBuy)
	require.NoError(t, err)

	assert.InDelta(t, 98.4, d.StopLossPrice, 1e-9)
	assert.InDelta(t, 120.0, d.TakeProfitPrice, 1e-9)
	// min(98.4 + 0.2, 102)
	assert.InDelta(t, 98.6, d.OrderPrice, 1e-9)
	assert.Less(t, d.StopLossPrice, d.OrderPrice)
	assert.Greater(t, d.TakeProfitPrice, d.OrderPrice)
}

func TestComputeBuyClampedByClose(t *testing.T) {
	candles := []models.Candle{{Low: 99.9, High: 100.5, Close: 100.05, BBHigh: 104}}
	d, err := NewCalculator(Config{TickValue: 0.01, StopLossBuffer: 0.05, PipAllowance: 1}).Compute(candles, models.SideBuy)
	require.NoError(t, err)
	assert.InDelta(t, 100.05, d.OrderPrice, 1e-9)
}

func TestComputeSell(t *testing.T) {
	candles := []models.Candle{
		{Low: 118.5, High: 121.5, Close: 121, BBHigh: 120, BBLow: 100},
		{Low: 117, High: 120.5, Close: 118, BBHigh: 120, BBLow: 101},
	}
	d, err := calc().Compute(candles, models.SideSell)
	require.NoError(t, err)

	assert.InDelta(t, 121.6, d.StopLossPrice, 1e-9)
	assert.InDelta(t, 100.0, d.TakeProfitPrice, 1e-9)
	// max(121.6 - 0.2, 118)
	assert.InDelta(t, 121.4, d.OrderPrice, 1e-9)
	assert.Greater(t, d.StopLossPrice, d.OrderPrice)
	assert.Less(t, d.TakeProfitPrice, d.OrderPrice)
}

func TestComputeRejectsNonMonotonic(t *testing.T) {
	// верхняя полоса ниже цены входа
	candles := []models.Candle{{Low: 99, High: 101, Close: 100, BBHigh: 98}}
	_, err := calc().Compute(candles, models.SideBuy)
	assert.True(t, errors.Is(err, models.ErrNonMonotonicPrices))

	candles = []models.Candle{{Low: 99, High: 101, Close: 100, BBHigh: math.NaN()}}
	_, err = calc().Compute(candles, models.SideBuy)
	assert.True(t, errors.Is(err, models.ErrNonMonotonicPrices))
}

func TestRewardToRisk(t *testing.T) {
	c := calc()

	d := models.PriceDecision{Side: models.SideBuy, OrderPrice: 100, StopLossPrice: 90, TakeProfitPrice: 130}
	assert.InDelta(t, 3.0, RewardToRisk(d), 1e-9)
	assert.True(t, c.Accept(d))

	d.TakeProfitPrice = 140
	assert.InDelta(t, 4.0, RewardToRisk(d), 1e-9)

	d.TakeProfitPrice = 105
	assert.InDelta(t, 0.5, RewardToRisk(d), 1e-9)
	assert.False(t, c.Accept(d))

	assert.True(t, NewCalculator(Config{}).Accept(d), "zero minimum disables the filter")
}

func TestRewardToRiskZeroRisk(t *testing.T) {
	d := models.PriceDecision{OrderPrice: 100, StopLossPrice: 100, TakeProfitPrice: 101}
	assert.False(t, math.IsInf(RewardToRisk(d), 0))
}

func TestFormatPrice(t *testing.T) {
	c := NewCalculator(Config{TickValue: 0.0001})
	assert.Equal(t, "0.0125", c.FormatPrice(0.01249999))
	assert.Equal(t, "98.60", calc().FormatPrice(98.6))
}
