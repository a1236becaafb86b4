// Package journal appends one audit row per reconciliation to Postgres.
// Rows are never read back by the bot.
package journal

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"wallex_bot/internal/models"
	"wallex_bot/pkg/db"
)

const createTable = `
CREATE TABLE IF NOT EXISTS order_journal (
    id              BIGSERIAL PRIMARY KEY,
    tick_id         TEXT        NOT NULL,
    symbol          TEXT        NOT NULL,
    side            TEXT        NOT NULL,
    order_price     NUMERIC     NOT NULL,
    stop_loss       NUMERIC     NOT NULL,
    take_profit     NUMERIC     NOT NULL,
    client_order_id TEXT        NOT NULL DEFAULT '',
    status          TEXT        NOT NULL DEFAULT '',
    reason          TEXT        NOT NULL,
    cancelled       TEXT        NOT NULL DEFAULT '',
    error           TEXT        NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL
)`

const insertEntry = `
INSERT INTO order_journal
    (tick_id, symbol, side, order_price, stop_loss, take_profit,
     client_order_id, status, reason, cancelled, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

type Entry struct {
	TickID   string
	Symbol   string
	Decision models.PriceDecision
	Outcome  models.OrderOutcome
	Err      error
	At       time.Time
}

func (e Entry) args() []any {
	errText := ""
	if e.Err != nil {
		errText = e.Err.Error()
	}
	return []any{
		e.TickID,
		e.Symbol,
		string(e.Decision.Side),
		e.Decision.OrderPrice,
		e.Decision.StopLossPrice,
		e.Decision.TakeProfitPrice,
		e.Outcome.ClientOrderID,
		e.Outcome.Status,
		string(e.Outcome.Reason),
		strings.Join(e.Outcome.Cancelled, ","),
		errText,
		e.At.UTC(),
	}
}

type Journal struct {
	tx *db.PgTxManager
}

// New: tx может быть nil, тогда журнал ничего не пишет.
func New(tx *db.PgTxManager) *Journal {
	return &Journal{tx: tx}
}

func (j *Journal) Enabled() bool { return j != nil && j.tx != nil }

func (j *Journal) Migrate(ctx context.Context) error {
	if !j.Enabled() {
		return nil
	}
	_, err := j.tx.Conn().Exec(ctx, createTable)
	return errors.Wrap(err, "create order_journal")
}

func (j *Journal) Record(ctx context.Context, e Entry) error {
	if !j.Enabled() {
		return nil
	}
	return j.tx.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, insertEntry, e.args()...)
		return errors.Wrap(err, "insert order_journal")
	})
}
