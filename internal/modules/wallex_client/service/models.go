package service

import (
	"strconv"
	"strings"

	"wallex_bot/internal/models"
)

type enveloped interface {
	ok() bool
	message() string
}

// envelope: общий конверт ответов приватного API.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func (e *envelope[T]) ok() bool        { return e.Success }
func (e *envelope[T]) message() string { return e.Message }

// flexFloat принимает и "0.0123", и 0.0123.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type orderPayload struct {
	Symbol   string `json:"symbol"`
	Type     string `json:"type"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	ClientID string `json:"client_id,omitempty"`
}

type wireOrder struct {
	Symbol        string    `json:"symbol"`
	Type          string    `json:"type"`
	Side          string    `json:"side"`
	Price         flexFloat `json:"price"`
	OrigQty       flexFloat `json:"origQty"`
	ExecutedQty   flexFloat `json:"executedQty"`
	Status        string    `json:"status"`
	ClientOrderID string    `json:"clientOrderId"`
	Active        bool      `json:"active"`
}

func (o wireOrder) toModel() models.Order {
	return models.Order{
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          models.Side(strings.ToUpper(o.Side)),
		Type:          o.Type,
		Status:        strings.ToUpper(o.Status),
		Price:         float64(o.Price),
		Quantity:      float64(o.OrigQty),
		ExecutedQty:   float64(o.ExecutedQty),
	}
}

func (o wireOrder) toOpenOrder() models.OpenOrder {
	return models.OpenOrder{
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          models.Side(strings.ToUpper(o.Side)),
		Status:        strings.ToUpper(o.Status),
		Price:         float64(o.Price),
		Quantity:      float64(o.OrigQty),
	}
}

type openOrdersResult struct {
	Orders []wireOrder `json:"orders"`
}

// udfHistory: TradingView UDF: параллельные массивы.
type udfHistory struct {
	Status string      `json:"s"`
	Time   []int64     `json:"t"`
	Open   []flexFloat `json:"o"`
	High   []flexFloat `json:"h"`
	Low    []flexFloat `json:"l"`
	Close  []flexFloat `json:"c"`
	Volume []flexFloat `json:"v"`
	ErrMsg string      `json:"errmsg"`
}
