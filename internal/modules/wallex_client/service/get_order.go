package service

import (
	"context"
	"net/http"
	"net/url"

	"wallex_bot/internal/models"
)

func (c *Client) GetOrder(ctx context.Context, clientOrderID string) (models.Order, error) {
	var r envelope[wireOrder]
	path := ordersPath + "/" + url.PathEscape(clientOrderID)
	if err := c.do(ctx, "GetOrder", http.MethodGet, path, nil, nil, &r); err != nil {
		return models.Order{}, err
	}
	return r.Result.toModel(), nil
}
