package service

import (
	"context"
	"net/http"
	"net/url"

	"wallex_bot/internal/models"
)

// OpenOrders lists open orders, optionally filtered by symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var r envelope[openOrdersResult]
	if err := c.do(ctx, "OpenOrders", http.MethodGet, openOrdersPath, q, nil, &r); err != nil {
		return nil, err
	}
	out := make([]models.OpenOrder, 0, len(r.Result.Orders))
	for _, o := range r.Result.Orders {
		out = append(out, o.toOpenOrder())
	}
	return out, nil
}
