package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"wallex_bot/internal/models"
	"wallex_bot/internal/modules/config"
)

const defaultBaseURL = "https://api.wallex.ir/"

// Endpoints
const (
	ordersPath     = "v1/account/orders"
	openOrdersPath = "v1/account/openOrders"
	historyPath    = "v1/udf/history"
)

// Client: REST-клиент Wallex: история свечей и управление ордерами.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewClient(cfg *config.Config) *Client {
	return New(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.RequestTimeout)
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// do выполняет запрос и раскладывает result из конверта {success,message,result}.
// Любой сбой оборачивается в TransientError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "%s marshal", op)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.Wrapf(err, "%s new request", op)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Transient(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Transient(op, errors.Wrap(err, "read body"))
	}
	if resp.StatusCode/100 != 2 {
		return models.Transient(op, fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return models.Transient(op, errors.Wrapf(err, "decode body=%s", string(data)))
	}
	if env, ok := out.(enveloped); ok && !env.ok() {
		return models.Transient(op, fmt.Errorf("wallex error: %s", env.message()))
	}
	return nil
}
