package models

import (
	"math"
	"time"
)

// Candle: минутная свеча с посчитанными индикаторами.
// Индикаторные поля равны NaN, пока не хватает свечей на прогрев.
type Candle struct {
	Time   time.Time // начало свечи, выровнено по минуте
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	RSI    float64
	BBHigh float64
	BBLow  float64
	BBMid  float64
}

// TypicalPrice is (high + low + close) / 3.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// HasIndicators reports whether RSI and Bollinger values are present.
func (c Candle) HasIndicators() bool {
	return !math.IsNaN(c.RSI) && !math.IsNaN(c.BBHigh) && !math.IsNaN(c.BBLow)
}

// Table: упорядоченная по времени таблица свечей, последняя строка самая свежая.
type Table struct {
	Symbol  string
	Candles []Candle
}

func NewTable(symbol string, candles []Candle) *Table {
	return &Table{Symbol: symbol, Candles: candles}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Candles)
}

// At supports tail indexing: At(-1) is the newest row, At(0) the oldest.
func (t *Table) At(idx int) (Candle, bool) {
	n := t.Len()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return Candle{}, false
	}
	return t.Candles[idx], true
}

// Range returns rows with from <= Time <= to.
func (t *Table) Range(from, to time.Time) []Candle {
	if t.Len() == 0 {
		return nil
	}
	out := make([]Candle, 0)
	for _, c := range t.Candles {
		if c.Time.Before(from) || c.Time.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Last returns the newest row.
func (t *Table) Last() (Candle, bool) {
	return t.At(-1)
}
