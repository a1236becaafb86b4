package service

import (
	"context"
	"net/http"
	"net/url"
)

// CancelOrder only acknowledges the request; the order leaves the open list later.
func (c *Client) CancelOrder(ctx context.Context, clientOrderID string) error {
	var r envelope[wireOrder]
	path := ordersPath + "/" + url.PathEscape(clientOrderID)
	return c.do(ctx, "CancelOrder", http.MethodDelete, path, nil, nil, &r)
}
