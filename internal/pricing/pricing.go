package pricing

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"wallex_bot/internal/models"
)

const rewardToRiskEpsilon = 1e-9

// Config: параметры расчёта цен в единицах цены (не тиках).
type Config struct {
	TickValue       float64 // шаг цены инструмента
	StopLossBuffer  float64 // отступ стопа за экстремум эпизода
	PipAllowance    float64 // допуск входа от стопа
	MinRewardToRisk float64 // 0 выключает фильтр
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute derives order, stop-loss and take-profit prices for the episode candles.
// The last candle of the range is treated as the latest close.
func (c *Calculator) Compute(candles []models.Candle, side models.Side) (models.PriceDecision, error) {
	if len(candles) == 0 {
		return models.PriceDecision{}, models.ErrInvalidEpisode
	}
	lastClose := candles[len(candles)-1].Close

	d := models.PriceDecision{Side: side}
	switch side {
	case models.SideBuy:
		d.StopLossPrice = minOf(candles, func(k models.Candle) float64 { return k.Low }) - c.cfg.StopLossBuffer
		d.TakeProfitPrice = maxOf(candles, func(k models.Candle) float64 { return k.BBHigh })
		d.OrderPrice = math.Min(d.StopLossPrice+c.cfg.PipAllowance, lastClose)
	case models.SideSell:
		d.StopLossPrice = maxOf(candles, func(k models.Candle) float64 { return k.High }) + c.cfg.StopLossBuffer
		d.TakeProfitPrice = minOf(candles, func(k models.Candle) float64 { return k.BBLow })
		d.OrderPrice = math.Max(d.StopLossPrice-c.cfg.PipAllowance, lastClose)
	default:
		return models.PriceDecision{}, errors.Wrapf(models.ErrInvalidEpisode, "unknown side %q", side)
	}

	d.OrderPrice = c.round(d.OrderPrice)
	d.StopLossPrice = c.round(d.StopLossPrice)
	d.TakeProfitPrice = c.round(d.TakeProfitPrice)

	if err := Validate(d); err != nil {
		return models.PriceDecision{}, err
	}
	return d, nil
}

// Validate checks that stop-loss sits on the losing side of the order price
// and take-profit on the winning side.
func Validate(d models.PriceDecision) error {
	if math.IsNaN(d.OrderPrice) || math.IsNaN(d.StopLossPrice) || math.IsNaN(d.TakeProfitPrice) {
		return errors.Wrap(models.ErrNonMonotonicPrices, "missing price")
	}
	ok := false
	switch d.Side {
	case models.SideBuy:
		ok = d.StopLossPrice < d.OrderPrice && d.OrderPrice < d.TakeProfitPrice
	case models.SideSell:
		ok = d.TakeProfitPrice < d.OrderPrice && d.OrderPrice < d.StopLossPrice
	}
	if !ok {
		return errors.Wrapf(models.ErrNonMonotonicPrices, "%s sl=%v order=%v tp=%v",
			d.Side, d.StopLossPrice, d.OrderPrice, d.TakeProfitPrice)
	}
	return nil
}

// RewardToRisk = |tp - order| / max(|order - sl|, eps).
func RewardToRisk(d models.PriceDecision) float64 {
	risk := math.Max(math.Abs(d.OrderPrice-d.StopLossPrice), rewardToRiskEpsilon)
	return math.Abs(d.TakeProfitPrice-d.OrderPrice) / risk
}

// Accept applies the configured minimum reward-to-risk.
func (c *Calculator) Accept(d models.PriceDecision) bool {
	if c.cfg.MinRewardToRisk <= 0 {
		return true
	}
	return RewardToRisk(d) >= c.cfg.MinRewardToRisk
}

// FormatPrice renders a price with the precision of the instrument tick.
func (c *Calculator) FormatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(c.places())
}

func (c *Calculator) round(p float64) float64 {
	if c.cfg.TickValue <= 0 || math.IsNaN(p) {
		return p
	}
	tick := decimal.NewFromFloat(c.cfg.TickValue)
	v := decimal.NewFromFloat(p).Div(tick).Round(0).Mul(tick)
	f, _ := v.Float64()
	return f
}

func (c *Calculator) places() int32 {
	if c.cfg.TickValue <= 0 {
		return 8
	}
	exp := decimal.NewFromFloat(c.cfg.TickValue).Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}

func minOf(cs []models.Candle, f func(models.Candle) float64) float64 {
	out := math.NaN()
	for _, k := range cs {
		v := f(k)
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v < out {
			out = v
		}
	}
	return out
}

func maxOf(cs []models.Candle, f func(models.Candle) float64) float64 {
	out := math.NaN()
	for _, k := range cs {
		v := f(k)
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v > out {
			out = v
		}
	}
	return out
}
