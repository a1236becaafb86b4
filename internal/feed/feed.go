// Package feed pulls minute candles from the exchange and prepares the
// indicator table the strategy works on.
package feed

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"wallex_bot/internal/indicators"
	"wallex_bot/internal/models"
)

type HistoryClient interface {
	MarketHistory(ctx context.Context, symbol, resolution string, from, to time.Time) ([]models.Candle, error)
}

const (
	candleLen  = time.Minute
	resolution = "1"
)

type Feed struct {
	client HistoryClient
	source *indicators.Source
	symbol string
	rows   int
}

func New(client HistoryClient, source *indicators.Source, symbol string, rows int) *Feed {
	if rows <= 0 {
		rows = 400
	}
	return &Feed{client: client, source: source, symbol: symbol, rows: rows}
}

// Fetch returns the last closed candles with indicators. The candle that
// is still forming at now is dropped, so At(-1) is always a closed candle.
func (f *Feed) Fetch(ctx context.Context, now time.Time) (*models.Table, error) {
	to := now.UTC()
	from := to.Add(-time.Duration(f.rows+2) * candleLen)

	raw, err := f.client.MarketHistory(ctx, f.symbol, resolution, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "fetch candles")
	}

	closed := make([]models.Candle, 0, len(raw))
	var prev time.Time
	for _, c := range raw {
		if c.Time.Add(candleLen).After(to) {
			continue
		}
		// биржа иногда дублирует последнюю свечу
		if !prev.IsZero() && !c.Time.After(prev) {
			continue
		}
		prev = c.Time
		closed = append(closed, c)
	}
	if len(closed) > f.rows {
		closed = closed[len(closed)-f.rows:]
	}

	f.source.Apply(closed)
	return models.NewTable(f.symbol, closed), nil
}
