package indicators

import (
	"math"

	"wallex_bot/internal/models"
)

// Source считает индикаторы по таблице свечей. Чистая функция от входных данных.
type Source struct {
	RSIPeriod    int
	BBPeriod     int
	BBDeviations float64
}

func NewSource(rsiPeriod, bbPeriod int, bbDeviations float64) *Source {
	if rsiPeriod <= 0 {
		rsiPeriod = 13
	}
	if bbPeriod <= 0 {
		bbPeriod = 20
	}
	if bbDeviations <= 0 {
		bbDeviations = 2
	}
	return &Source{RSIPeriod: rsiPeriod, BBPeriod: bbPeriod, BBDeviations: bbDeviations}
}

// Apply заполняет RSI (по typical price) и полосы Боллинджера (по close) на месте.
func (s *Source) Apply(candles []models.Candle) {
	if len(candles) == 0 {
		return
	}
	typical := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		typical[i] = c.TypicalPrice()
		closes[i] = c.Close
	}

	rsi := RSI(typical, s.RSIPeriod)
	upper, middle, lower := Bollinger(closes, s.BBPeriod, s.BBDeviations)
	for i := range candles {
		candles[i].RSI = rsi[i]
		candles[i].BBHigh = upper[i]
		candles[i].BBMid = middle[i]
		candles[i].BBLow = lower[i]
	}
}

// RSI is Wilder's RSI: EMA c alpha=1/period, первое значение ряда служит затравкой,
// значения до period-1 включительно не определены (NaN).
func RSI(src []float64, period int) []float64 {
	out := nanSlice(len(src))
	if period <= 0 || len(src) == 0 {
		return out
	}
	alpha := 1.0 / float64(period)

	var avgGain, avgLoss float64
	for i := range src {
		gain, loss := 0.0, 0.0
		if i > 0 {
			delta := src[i] - src[i-1]
			if delta > 0 {
				gain = delta
			} else {
				loss = -delta
			}
		}
		if i == 0 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		if i < period-1 {
			continue
		}
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// Bollinger returns upper, middle and lower bands per row.
// Uses population standard deviation over a full window; earlier rows are NaN.
func Bollinger(src []float64, period int, deviations float64) (upper, middle, lower []float64) {
	n := len(src)
	upper, middle, lower = nanSlice(n), nanSlice(n), nanSlice(n)
	if period <= 0 || n < period {
		return upper, middle, lower
	}
	for i := period - 1; i < n; i++ {
		window := src[i-period+1 : i+1]
		m := mean(window)
		sd := stdDev(window, m)
		middle[i] = m
		upper[i] = m + deviations*sd
		lower[i] = m - deviations*sd
	}
	return upper, middle, lower
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, m float64) float64 {
	var sum float64
	for _, v := range xs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
