// Package reconciler brings the exchange's open-order book in line with the
// latest price decision: stale namespaced orders are cancelled, the book is
// re-checked, and at most one new limit order is placed.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wallex_bot/internal/models"
)

type OrderExchange interface {
	OpenOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error)
	CancelOrder(ctx context.Context, clientOrderID string) error
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
	GetOrder(ctx context.Context, clientOrderID string) (models.Order, error)
}

// PriceFormatter renders a price with the instrument's tick precision.
type PriceFormatter interface {
	FormatPrice(p float64) string
}

// SettlePolicy: как долго ждать, пока отменённые ордера уйдут из стакана.
type SettlePolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

type Params struct {
	Symbol    string
	OrderType string
	Quantity  string
	Settle    SettlePolicy
}

type Reconciler struct {
	ex     OrderExchange
	prices PriceFormatter
	p      Params
	log    *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(ex OrderExchange, prices PriceFormatter, p Params, log *zap.Logger) *Reconciler {
	if p.OrderType == "" {
		p.OrderType = models.OrderTypeLimit
	}
	if p.Settle.Interval <= 0 {
		p.Settle.Interval = 250 * time.Millisecond
	}
	if p.Settle.Timeout <= 0 {
		p.Settle.Timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		ex:     ex,
		prices: prices,
		p:      p,
		log:    log,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Reconcile runs one cancel → settle → re-verify → place cycle.
// Exchange failures come back as *models.TransientError and are not retried here.
func (r *Reconciler) Reconcile(ctx context.Context, d models.PriceDecision, side models.Side, prefix string) (models.OrderOutcome, error) {
	out := models.OrderOutcome{}

	open, err := r.ex.OpenOrders(ctx, r.p.Symbol)
	if err != nil {
		return out, err
	}
	for _, o := range open {
		if !o.HasPrefix(prefix) {
			continue
		}
		if err := r.ex.CancelOrder(ctx, o.ClientOrderID); err != nil {
			return out, err
		}
		out.Cancelled = append(out.Cancelled, o.ClientOrderID)
		r.log.Info("cancel stale order", zap.String("client_order_id", o.ClientOrderID), zap.String("side", string(o.Side)))
	}

	if len(out.Cancelled) > 0 {
		if err := r.settle(ctx, prefix); err != nil {
			return out, err
		}
	}

	// повторная проверка: отмена могла не дойти
	open, err = r.ex.OpenOrders(ctx, r.p.Symbol)
	if err != nil {
		return out, err
	}
	for _, o := range open {
		if o.HasPrefix(prefix) {
			r.log.Warn("namespaced order still open, skip placement", zap.String("client_order_id", o.ClientOrderID))
			out.Reason = models.ReasonStaleOrderOpen
			out.Status = o.Status
			return out, nil
		}
	}

	if d.OrderPrice <= 0 {
		out.Reason = models.ReasonNoPrice
		return out, nil
	}

	id := ClientOrderID(prefix, r.p.OrderType, side, r.now())
	req := models.OrderRequest{
		Symbol:        r.p.Symbol,
		Type:          r.p.OrderType,
		Side:          side,
		Price:         r.prices.FormatPrice(d.OrderPrice),
		Quantity:      r.p.Quantity,
		ClientOrderID: id,
	}
	out.ClientOrderID = id

	if err := models.ValidateClientID(id); err != nil {
		r.log.Error("client order id rejected", zap.String("client_order_id", id), zap.Error(err))
		out.Reason = models.ReasonInvalidClientID
		return out, nil
	}

	order, err := r.ex.PlaceOrder(ctx, req)
	if err != nil {
		return out, err
	}
	out.Status = order.Status
	if order.Status == models.OrderStatusNew {
		out.Placed = true
		out.Reason = models.ReasonPlaced
	} else {
		out.Reason = models.ReasonNotAccepted
	}
	r.log.Info("order placed",
		zap.String("client_order_id", id),
		zap.String("side", string(side)),
		zap.String("price", req.Price),
		zap.String("status", order.Status),
	)
	return out, nil
}

// Status reads a previously placed order by its client id.
func (r *Reconciler) Status(ctx context.Context, clientOrderID string) (models.Order, error) {
	return r.ex.GetOrder(ctx, clientOrderID)
}

// settle ждёт исчезновения namespaced ордеров с экспоненциальной паузой.
// По таймауту просто выходим: решение примет повторная проверка.
func (r *Reconciler) settle(ctx context.Context, prefix string) error {
	deadline := r.now().Add(r.p.Settle.Timeout)
	wait := r.p.Settle.Interval
	for {
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
		open, err := r.ex.OpenOrders(ctx, r.p.Symbol)
		if err != nil {
			return err
		}
		if !anyPrefixed(open, prefix) {
			return nil
		}
		if !r.now().Before(deadline) {
			r.log.Warn("settle timeout", zap.Duration("timeout", r.p.Settle.Timeout))
			return nil
		}
		wait *= 2
		if left := deadline.Sub(r.now()); wait > left {
			wait = left
		}
	}
}

func anyPrefixed(orders []models.OpenOrder, prefix string) bool {
	for _, o := range orders {
		if o.HasPrefix(prefix) {
			return true
		}
	}
	return false
}

// ClientOrderID builds "<prefix>-<type>-<side>-Time-<unix seconds>.<micros>".
func ClientOrderID(prefix, orderType string, side models.Side, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s-Time-%d.%06d", prefix, orderType, side, at.Unix(), at.Nanosecond()/1000)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
