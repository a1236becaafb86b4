package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallex_bot/internal/models"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func at(i int) time.Time { return t0.Add(time.Duration(i) * time.Minute) }

// neutral: свеча внутри полос без сигналов.
func neutral(i int) models.Candle {
	return models.Candle{Time: at(i), Open: 110, High: 111, Low: 109, Close: 110, RSI: 50, BBHigh: 120, BBLow: 100, BBMid: 110}
}

// buyAnchor: RSI < 30 и закрытие под нижней полосой.
func buyAnchor(i int) models.Candle {
	return models.Candle{Time: at(i), Open: 101, High: 101.5, Low: 98.5, Close: 99, RSI: 25, BBHigh: 120, BBLow: 100, BBMid: 110}
}

// buyFollow: бычья свеча над нижней полосой.
func buyFollow(i int) models.Candle {
	return models.Candle{Time: at(i), Open: 100, High: 103, Low: 99.5, Close: 102, RSI: 40, BBHigh: 120, BBLow: 100, BBMid: 110}
}

func sellAnchor(i int) models.Candle {
	return models.Candle{Time: at(i), Open: 119, High: 121.5, Low: 118.5, Close: 121, RSI: 75, BBHigh: 120, BBLow: 100, BBMid: 110}
}

func TestComponentSignals(t *testing.T) {
	d := NewDetector(Thresholds{})

	c := d.Evaluate(buyAnchor(0))
	assert.Equal(t, models.SideBuy, c.FirstStage())
	assert.Equal(t, models.SideSell, c.SecondStage())

	c = d.Evaluate(sellAnchor(0))
	assert.Equal(t, models.SideSell, c.FirstStage())

	c = d.Evaluate(buyFollow(0))
	assert.Equal(t, models.SideNone, c.FirstStage())
	assert.Equal(t, models.SideBuy, c.SecondStage())
}

func TestMissingIndicatorsYieldNoSignal(t *testing.T) {
	d := NewDetector(Thresholds{})
	c := buyAnchor(0)
	c.RSI, c.BBHigh, c.BBLow = math.NaN(), math.NaN(), math.NaN()

	comp := d.Evaluate(c)
	assert.Equal(t, models.SideNone, comp.FirstStage())

	tbl := models.NewTable("X", []models.Candle{c})
	assert.Equal(t, EpisodeNone, d.Detect(Episode{}, tbl, -1).State)
}

func TestEpisodeConfirmedAtTail(t *testing.T) {
	d := NewDetector(Thresholds{})
	tbl := models.NewTable("X", []models.Candle{
		neutral(0), neutral(1), buyAnchor(2), buyFollow(3), buyFollow(4), buyFollow(5),
	})

	ep := Episode{}
	ep = d.Detect(ep, tbl, -4)
	require.Equal(t, EpisodePending, ep.State)
	assert.Equal(t, models.SideBuy, ep.Side)

	ep = d.Detect(ep, tbl, -3)
	ep = d.Detect(ep, tbl, -2)
	require.Equal(t, EpisodePending, ep.State, "backlog rows never confirm")

	ep = d.Detect(ep, tbl, -1)
	require.True(t, ep.Confirmed())
	assert.Equal(t, models.SideBuy, ep.Side)
	assert.Equal(t, at(2), ep.Start)
	assert.Equal(t, at(5), ep.End)
	assert.Len(t, ep.Candles(tbl), 4)
}

func TestBreakoutInvalidatesEpisode(t *testing.T) {
	d := NewDetector(Thresholds{})
	breakout := buyFollow(3)
	breakout.High = 121

	tbl := models.NewTable("X", []models.Candle{neutral(0), buyAnchor(1), buyFollow(2), breakout})
	ep := d.Detect(Episode{}, tbl, -3)
	ep = d.Detect(ep, tbl, -2)
	require.True(t, ep.Open())

	ep = d.Detect(ep, tbl, -1)
	assert.Equal(t, EpisodeNone, ep.State)
	assert.Equal(t, models.SideNone, ep.Side)
}

func TestSellBreakdownInvalidatesConfirmed(t *testing.T) {
	d := NewDetector(Thresholds{})
	breakdown := neutral(2)
	breakdown.Low = 99

	tbl := models.NewTable("X", []models.Candle{neutral(0), sellAnchor(1), breakdown})
	ep := Episode{State: EpisodeConfirmed, Side: models.SideSell, Start: at(1), End: at(1)}

	ep = d.Detect(ep, tbl, -1)
	assert.Equal(t, EpisodeNone, ep.State)
}

func TestConflictingStagesStayUnconfirmed(t *testing.T) {
	d := NewDetector(Thresholds{})
	bearish := neutral(2)
	bearish.Open, bearish.Close = 112, 108

	tbl := models.NewTable("X", []models.Candle{neutral(0), buyAnchor(1), bearish})
	ep := d.Detect(Episode{}, tbl, -2)
	ep = d.Detect(ep, tbl, -1)

	assert.Equal(t, EpisodePending, ep.State)
	assert.False(t, ep.Confirmed())
	assert.Equal(t, at(2), ep.End)
}

func TestOppositeSignalInvalidatesThenAnchorsLater(t *testing.T) {
	d := NewDetector(Thresholds{})
	tbl := models.NewTable("X", []models.Candle{buyAnchor(0), neutral(1), sellAnchor(2), sellAnchor(3)})

	ep := d.Detect(Episode{}, tbl, -4)
	ep = d.Detect(ep, tbl, -3)
	require.Equal(t, models.SideBuy, ep.Side)

	// закрытие над верхней полосой сначала ломает BUY
	ep = d.Detect(ep, tbl, -2)
	require.Equal(t, EpisodeNone, ep.State)

	ep = d.Detect(ep, tbl, -1)
	assert.Equal(t, EpisodePending, ep.State)
	assert.Equal(t, models.SideSell, ep.Side)
	assert.Equal(t, at(3), ep.Start)
}
