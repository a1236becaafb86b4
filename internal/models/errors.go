package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidClientID: client order id не прошёл проверку допустимых символов.
	ErrInvalidClientID = errors.New("invalid client order id: only letters, digits, '.', ':', '-' and '_' are allowed")
	// ErrInvalidEpisode: расчёт цен вызван с пустым набором свечей.
	ErrInvalidEpisode = errors.New("invalid episode: no candles")
	// ErrNonMonotonicPrices: stop/order/take не упорядочены относительно стороны.
	ErrNonMonotonicPrices = errors.New("non-monotonic price triple")
)

// TransientError: сбой вызова биржи (таймаут, 5xx, кривой ответ).
// Внутри тика не ретраится, следующий тик пересобирает состояние с нуля.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for op.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err carries a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
