package service

import (
	"context"
	"net/http"

	"wallex_bot/internal/models"
)

// PlaceOrder creates an order. The client id is validated before any network call.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	if req.ClientOrderID != "" {
		if err := models.ValidateClientID(req.ClientOrderID); err != nil {
			return models.Order{}, err
		}
	}
	body := orderPayload{
		Symbol:   req.Symbol,
		Type:     req.Type,
		Side:     string(req.Side),
		Price:    req.Price,
		Quantity: req.Quantity,
		ClientID: req.ClientOrderID,
	}

	var r envelope[wireOrder]
	if err := c.do(ctx, "PlaceOrder", http.MethodPost, ordersPath, nil, body, &r); err != nil {
		return models.Order{}, err
	}
	o := r.Result.toModel()
	if o.ClientOrderID == "" {
		o.ClientOrderID = req.ClientOrderID
	}
	return o, nil
}
