// Package lease guards the order namespace against a second bot instance
// reconciling the same prefix at the same time.
package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrHeld: namespace сейчас сверяет другой процесс.
var ErrHeld = errors.New("namespace lease is held by another instance")

// удаляем ключ, только если он всё ещё наш
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

type Lease struct {
	rdb      *redis.Client
	ttl      time.Duration
	unlockSc *redis.Script
}

// New returns a lease backed by rdb. A nil client gives a lease that is
// always granted (single-instance mode).
func New(rdb *redis.Client, ttl time.Duration) *Lease {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lease{rdb: rdb, ttl: ttl, unlockSc: redis.NewScript(unlockLua)}
}

func Key(prefix string) string {
	return "wallex_bot:lease:" + prefix
}

// Acquire takes the lease for prefix. The returned release func is safe to
// call more than once.
func (l *Lease) Acquire(ctx context.Context, prefix string) (func(), error) {
	if l == nil || l.rdb == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	key := Key(prefix)

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "acquire lease %s", key)
	}
	if !ok {
		return nil, ErrHeld
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// отпускаем даже если контекст тика уже отменён
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{key}, token).Err()
	}, nil
}
