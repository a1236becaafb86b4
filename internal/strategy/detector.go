package strategy

import (
	"wallex_bot/internal/models"
)

// Thresholds: пороги RSI для компонентного сигнала.
type Thresholds struct {
	RSILow  float64
	RSIHigh float64
}

// Components: сигналы отдельных компонент на одной свече.
type Components struct {
	RSI       models.Side
	Bollinger models.Side
	Candle    models.Side
}

// FirstStage: RSI и Боллинджер согласны по стороне.
func (c Components) FirstStage() models.Side {
	if c.RSI != models.SideNone && c.RSI == c.Bollinger {
		return c.RSI
	}
	return models.SideNone
}

// SecondStage: направление свечи относительно полос.
func (c Components) SecondStage() models.Side { return c.Candle }

// Detector: машина состояний эпизода. Состояние не хранит: получает
// предыдущий эпизод и возвращает следующий.
type Detector struct {
	th Thresholds
}

func NewDetector(th Thresholds) *Detector {
	if th.RSILow <= 0 {
		th.RSILow = 30
	}
	if th.RSIHigh <= 0 {
		th.RSIHigh = 70
	}
	return &Detector{th: th}
}

// Evaluate computes the component signals for a single candle.
// Missing indicator values produce no signal for that component.
func (d *Detector) Evaluate(c models.Candle) Components {
	return Components{
		RSI:       d.rsiSignal(c.RSI),
		Bollinger: bollingerSignal(c),
		Candle:    candleSignal(c),
	}
}

// Detect advances the episode using the row at index (tail indexing).
func (d *Detector) Detect(prev Episode, t *models.Table, index int) Episode {
	c, ok := t.At(index)
	if !ok {
		return prev
	}
	comp := d.Evaluate(c)
	first := comp.FirstStage()

	switch prev.State {
	case EpisodeNone:
		if first == models.SideNone {
			return none()
		}
		return d.maybeConfirm(pending(first, c.Time), comp, index)

	default:
		if !c.Time.After(prev.Start) {
			// та же якорная свеча, пересчитывать нечего
			return prev
		}
		if invalidated(prev.Side, c) {
			return none()
		}
		next := prev.extend(c.Time)
		if next.State == EpisodePending {
			next = d.maybeConfirm(next, comp, index)
		}
		return next
	}
}

// Подтверждение только на живой свече (-1) и только второй стадией той же стороны.
func (d *Detector) maybeConfirm(e Episode, comp Components, index int) Episode {
	if index != -1 || e.State != EpisodePending {
		return e
	}
	if comp.SecondStage() == e.Side {
		return e.confirm(e.End)
	}
	return e
}

// Пробой противоположной полосы ломает гипотезу возврата к среднему.
func invalidated(side models.Side, c models.Candle) bool {
	switch side {
	case models.SideBuy:
		return c.High >= c.BBHigh
	case models.SideSell:
		return c.Low <= c.BBLow
	}
	return false
}

func (d *Detector) rsiSignal(rsi float64) models.Side {
	switch {
	case rsi < d.th.RSILow:
		return models.SideBuy
	case rsi > d.th.RSIHigh:
		return models.SideSell
	}
	return models.SideNone
}

func bollingerSignal(c models.Candle) models.Side {
	switch {
	case c.Open > c.BBLow && c.Close < c.BBLow:
		return models.SideBuy
	case c.Open < c.BBHigh && c.Close > c.BBHigh:
		return models.SideSell
	}
	return models.SideNone
}

func candleSignal(c models.Candle) models.Side {
	switch {
	case c.Close > c.Open && c.Close > c.BBLow:
		return models.SideBuy
	case c.Close < c.Open && c.Close < c.BBHigh:
		return models.SideSell
	}
	return models.SideNone
}
