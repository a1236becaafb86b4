package models

import (
	"regexp"
	"strings"
)

// Статусы ордера на бирже.
const (
	OrderStatusNew             = "NEW"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusFilled          = "FILLED"
	OrderStatusCanceled        = "CANCELED"
	OrderStatusRejected        = "REJECTED"
	OrderStatusExpired         = "EXPIRED"
)

const OrderTypeLimit = "LIMIT"

// буквы, цифры, '.', ':', '-' и '_'
var clientIDPattern = regexp.MustCompile(`^[\w.:-]+$`)

// ValidateClientID returns ErrInvalidClientID for ids the exchange would reject.
func ValidateClientID(id string) error {
	if !clientIDPattern.MatchString(id) {
		return ErrInvalidClientID
	}
	return nil
}

// OpenOrder: ордер из списка открытых (принадлежит бирже, мы только читаем).
type OpenOrder struct {
	ClientOrderID string
	Symbol        string
	Side          Side
	Status        string
	Price         float64
	Quantity      float64
}

// HasPrefix reports whether the order belongs to the given namespace.
func (o OpenOrder) HasPrefix(prefix string) bool {
	return prefix != "" && strings.HasPrefix(o.ClientOrderID, prefix)
}

// OrderRequest: параметры нового лимитного ордера.
type OrderRequest struct {
	Symbol        string
	Type          string
	Side          Side
	Price         string
	Quantity      string
	ClientOrderID string
}

// Order: ответ биржи на размещение / запрос ордера.
type Order struct {
	ClientOrderID string
	Symbol        string
	Side          Side
	Type          string
	Status        string
	Price         float64
	Quantity      float64
	ExecutedQty   float64
}

// IsTerminal reports whether the order can no longer change state.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// OutcomeReason объясняет, почему ордер был или не был поставлен.
type OutcomeReason string

const (
	ReasonPlaced          OutcomeReason = "placed"
	ReasonNotAccepted     OutcomeReason = "not_accepted"
	ReasonStaleOrderOpen  OutcomeReason = "stale_order_open"
	ReasonNoPrice         OutcomeReason = "no_price"
	ReasonInvalidClientID OutcomeReason = "invalid_client_id"
)

// OrderOutcome: результат одного цикла сверки.
type OrderOutcome struct {
	Placed        bool
	ClientOrderID string
	Status        string
	Reason        OutcomeReason
	Cancelled     []string
}
