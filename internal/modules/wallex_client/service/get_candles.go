package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wallex_bot/internal/models"
)

// MarketHistory returns candles of the given resolution ("1" = 1 minute)
// between from and to, oldest first.
func (c *Client) MarketHistory(ctx context.Context, symbol, resolution string, from, to time.Time) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", resolution)
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))

	var r udfHistory
	if err := c.do(ctx, "MarketHistory", http.MethodGet, historyPath, q, nil, &r); err != nil {
		return nil, err
	}
	switch r.Status {
	case "ok":
	case "no_data":
		return nil, nil
	default:
		return nil, models.Transient("MarketHistory", fmt.Errorf("udf status=%q msg=%s", r.Status, r.ErrMsg))
	}

	n := len(r.Time)
	if len(r.Open) != n || len(r.High) != n || len(r.Low) != n || len(r.Close) != n {
		return nil, models.Transient("MarketHistory", fmt.Errorf("udf arrays length mismatch: t=%d o=%d h=%d l=%d c=%d",
			n, len(r.Open), len(r.High), len(r.Low), len(r.Close)))
	}

	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		closep := float64(r.Close[i])
		if closep <= 0 {
			continue
		}
		var vol float64
		if i < len(r.Volume) {
			vol = float64(r.Volume[i])
		}
		out = append(out, models.Candle{
			Time:   time.Unix(r.Time[i], 0).UTC(),
			Open:   float64(r.Open[i]),
			High:   float64(r.High[i]),
			Low:    float64(r.Low[i]),
			Close:  closep,
			Volume: vol,
			RSI:    math.NaN(),
			BBHigh: math.NaN(),
			BBLow:  math.NaN(),
			BBMid:  math.NaN(),
		})
	}
	return out, nil
}
