// Package runner drives the trading loop: one tick fetches candles, moves the
// row cursor, advances the episode and, when caught up, reconciles orders.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"wallex_bot/internal/journal"
	"wallex_bot/internal/lease"
	"wallex_bot/internal/metrics"
	"wallex_bot/internal/models"
	healthsvc "wallex_bot/internal/modules/health/service"
	tgsvc "wallex_bot/internal/modules/telegram_bot/service"
	"wallex_bot/internal/pricing"
	"wallex_bot/internal/strategy"
	"wallex_bot/internal/timeidx"
	"wallex_bot/pkg/tracing"
)

type Fetcher interface {
	Fetch(ctx context.Context, now time.Time) (*models.Table, error)
}

type OrderReconciler interface {
	Reconcile(ctx context.Context, d models.PriceDecision, side models.Side, prefix string) (models.OrderOutcome, error)
	Status(ctx context.Context, clientOrderID string) (models.Order, error)
}

type Leaser interface {
	Acquire(ctx context.Context, prefix string) (func(), error)
}

type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
}

type Notifier interface {
	Send(ctx context.Context, msg string) error
}

type Options struct {
	Symbol       string
	Prefix       string
	BacklogDelay time.Duration
	RetryDelay   time.Duration
	// CallTimeout ограничивает журнал, уведомления и опрос статуса.
	CallTimeout time.Duration
}

const reasonRRRejected = "rr_rejected"

var errEmptyTable = errors.New("exchange returned no closed candles")

// loopState живёт только в памяти процесса.
type loopState struct {
	index   timeidx.State
	episode strategy.Episode
	tracked string // client id последнего выставленного ордера
}

type Runner struct {
	opt      Options
	feed     Fetcher
	sync     *timeidx.Synchronizer
	detector *strategy.Detector
	calc     *pricing.Calculator
	rec      OrderReconciler
	lease    Leaser
	journal  Journal
	notify   Notifier
	health   *healthsvc.State
	log      *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	state loopState
}

type Deps struct {
	Feed       Fetcher
	Detector   *strategy.Detector
	Calculator *pricing.Calculator
	Reconciler OrderReconciler
	Lease      Leaser
	Journal    Journal
	Notifier   Notifier
	Health     *healthsvc.State
	Log        *zap.Logger
}

func New(opt Options, d Deps) *Runner {
	if opt.BacklogDelay <= 0 {
		opt.BacklogDelay = 200 * time.Millisecond
	}
	if opt.RetryDelay <= 0 {
		opt.RetryDelay = 5 * time.Second
	}
	if opt.CallTimeout <= 0 {
		opt.CallTimeout = 10 * time.Second
	}
	if d.Lease == nil {
		d.Lease = lease.New(nil, 0)
	}
	if d.Journal == nil {
		d.Journal = journal.New(nil)
	}
	if d.Health == nil {
		d.Health = healthsvc.NewState()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Runner{
		opt:      opt,
		feed:     d.Feed,
		sync:     timeidx.NewSynchronizer(),
		detector: d.Detector,
		calc:     d.Calculator,
		rec:      d.Reconciler,
		lease:    d.Lease,
		journal:  d.Journal,
		notify:   d.Notifier,
		health:   d.Health,
		log:      d.Log.With(zap.String("symbol", opt.Symbol)),
		now:      time.Now,
		sleep:    sleepCtx,
		state:    loopState{index: timeidx.NewState()},
	}
}

// Run ticks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("trading loop started", zap.String("prefix", r.opt.Prefix))
	for {
		wait := r.Tick(ctx)
		if err := r.sleep(ctx, wait); err != nil {
			r.log.Info("trading loop stopped")
			return nil
		}
	}
}

// Tick runs FETCH → SYNC → DETECT → (caught up) PRICE → RECONCILE and
// returns how long to wait before the next tick.
func (r *Runner) Tick(ctx context.Context) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickID := uuid.NewString()
	span, ctx := opentracing.StartSpanFromContext(ctx, "tick")
	span.SetTag("tick_id", tickID)
	span.SetTag("symbol", r.opt.Symbol)
	defer span.Finish()

	log := r.log.With(zap.String("tick_id", tickID))
	now := r.now()
	r.health.TouchTick(now)

	tbl, err := r.fetch(ctx, now)
	if err != nil {
		return r.fail(span, log, "fetch", err)
	}

	st := r.sync.ComputeIndex(r.state.index, now)
	if oldest := -tbl.Len(); st.Index < oldest {
		log.Warn("table shorter than backlog, cursor clamped",
			zap.Int("index", st.Index), zap.Int("rows", tbl.Len()))
		st.Index = oldest
	}
	row, ok := tbl.At(st.Index)
	if !ok {
		return r.fail(span, log, "sync", errors.Errorf("index %d outside table of %d rows", st.Index, tbl.Len()))
	}
	st.LastTimestamp = row.Time
	r.state.index = st

	mode := "live"
	if !st.CaughtUp() {
		mode = "backlog"
	}
	metrics.TicksTotal.WithLabelValues(r.opt.Symbol, mode).Inc()
	metrics.CandleIndex.WithLabelValues(r.opt.Symbol).Set(float64(st.Index))
	span.SetTag("index", st.Index)

	log = log.With(
		zap.Int("index", st.Index),
		zap.Int("raw_index", st.RawIndex),
		zap.Duration("drift", st.Drift),
		zap.Time("candle", row.Time),
	)

	prev := r.state.episode
	ep := r.detect(ctx, tbl, st.Index)
	r.state.episode = ep
	if ep.State != prev.State || ep.Side != prev.Side {
		log.Info("episode changed", zap.Stringer("from", prev), zap.Stringer("to", ep))
		metrics.EpisodesTotal.WithLabelValues(r.opt.Symbol, string(ep.Side), ep.State.String()).Inc()
	}
	log.Info("tick", zap.String("mode", mode), zap.Stringer("episode", ep))

	if st.CaughtUp() {
		r.trackOrder(ctx, log)
		if ep.Confirmed() {
			if err := r.act(ctx, log, tickID, tbl, ep); err != nil {
				return r.fail(span, log, "reconcile", err)
			}
		}
	}

	r.health.SetReady(true)
	r.health.SetIndex(st.Index)
	r.health.SetEpisode(r.state.episode.String())

	if !st.CaughtUp() {
		return r.opt.BacklogDelay
	}
	return r.sync.Sleep(st)
}

func (r *Runner) fetch(ctx context.Context, now time.Time) (*models.Table, error) {
	span, ctx := tracing.StartStage(ctx, "fetch")
	defer span.Finish()

	tbl, err := r.feed.Fetch(ctx, now)
	if err == nil && tbl.Len() == 0 {
		err = errEmptyTable
	}
	tracing.Fail(span, err)
	if err != nil {
		return nil, err
	}
	span.SetTag("rows", tbl.Len())
	return tbl, nil
}

func (r *Runner) detect(ctx context.Context, tbl *models.Table, index int) strategy.Episode {
	span, _ := tracing.StartStage(ctx, "detect", opentracing.Tag{Key: "index", Value: index})
	defer span.Finish()

	ep := r.detector.Detect(r.state.episode, tbl, index)
	span.SetTag("episode", ep.String())
	return ep
}

// act: цены, политика RR, аренда namespace и сверка ордеров.
func (r *Runner) act(ctx context.Context, log *zap.Logger, tickID string, tbl *models.Table, ep strategy.Episode) error {
	span, _ := tracing.StartStage(ctx, "price")
	decision, err := r.calc.Compute(ep.Candles(tbl), ep.Side)
	tracing.Fail(span, err)
	span.Finish()
	if err != nil {
		log.Warn("no price decision, episode dropped", zap.Stringer("episode", ep), zap.Error(err))
		r.state.episode = strategy.Episode{}
		return nil
	}

	rr := pricing.RewardToRisk(decision)
	log = log.With(
		zap.String("side", string(decision.Side)),
		zap.Float64("order", decision.OrderPrice),
		zap.Float64("stop_loss", decision.StopLossPrice),
		zap.Float64("take_profit", decision.TakeProfitPrice),
		zap.Float64("rr", rr),
	)
	if !r.calc.Accept(decision) {
		log.Info("reward to risk below minimum, episode dropped")
		metrics.OrdersTotal.WithLabelValues(r.opt.Symbol, string(decision.Side), reasonRRRejected).Inc()
		r.health.SetOutcome(reasonRRRejected)
		r.state.episode = strategy.Episode{}
		return nil
	}

	release, err := r.lease.Acquire(ctx, r.opt.Prefix)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			log.Warn("namespace lease held elsewhere, skip reconcile")
			return nil
		}
		return err
	}
	defer release()

	span, rctx := tracing.StartStage(ctx, "reconcile")
	outcome, err := r.rec.Reconcile(rctx, decision, decision.Side, r.opt.Prefix)
	tracing.Fail(span, err)
	span.Finish()

	r.record(ctx, log, journal.Entry{
		TickID:   tickID,
		Symbol:   r.opt.Symbol,
		Decision: decision,
		Outcome:  outcome,
		Err:      err,
		At:       r.now(),
	})
	if n := len(outcome.Cancelled); n > 0 {
		metrics.CancelledTotal.WithLabelValues(r.opt.Symbol).Add(float64(n))
	}
	if err != nil {
		return errors.Wrap(err, "reconcile")
	}

	metrics.OrdersTotal.WithLabelValues(r.opt.Symbol, string(decision.Side), string(outcome.Reason)).Inc()
	r.health.SetOutcome(string(outcome.Reason))
	log.Info("reconciled",
		zap.Bool("placed", outcome.Placed),
		zap.String("reason", string(outcome.Reason)),
		zap.String("status", outcome.Status),
		zap.String("client_order_id", outcome.ClientOrderID),
		zap.Strings("cancelled", outcome.Cancelled),
	)
	r.send(ctx, log, tgsvc.FormatOutcome(r.opt.Symbol, decision, outcome, r.calc.FormatPrice(decision.OrderPrice)))

	if outcome.Placed {
		r.state.episode = strategy.Episode{}
		r.handOff(ctx, log, outcome.ClientOrderID)
		r.state.tracked = outcome.ClientOrderID
		r.health.SetTrackedOrder(outcome.ClientOrderID)
	}
	return nil
}

// trackOrder опрашивает последний выставленный ордер до терминального статуса.
func (r *Runner) trackOrder(ctx context.Context, log *zap.Logger) {
	id := r.state.tracked
	if id == "" {
		return
	}
	span, ctx := tracing.StartStage(ctx, "track", opentracing.Tag{Key: "client_order_id", Value: id})
	defer span.Finish()

	o, err := r.status(ctx, id)
	if err != nil {
		tracing.Fail(span, err)
		log.Warn("order status unavailable", zap.String("client_order_id", id), zap.Error(err))
		return
	}
	if o.ClientOrderID == "" {
		o.ClientOrderID = id
	}
	if !o.IsTerminal() {
		log.Info("tracked order open", zap.String("client_order_id", id), zap.String("status", o.Status))
		return
	}

	log.Info("tracked order finished",
		zap.String("client_order_id", id),
		zap.String("status", o.Status),
		zap.Float64("executed", o.ExecutedQty),
	)
	r.send(ctx, log, tgsvc.FormatOrderDone(o))
	r.state.tracked = ""
	r.health.SetTrackedOrder("")
}

// handOff: новый ордер вытесняет отслеживаемый. Прежний опрашиваем последний
// раз, чтобы его итог не потерялся.
func (r *Runner) handOff(ctx context.Context, log *zap.Logger, next string) {
	prev := r.state.tracked
	if prev == "" || prev == next {
		return
	}
	log = log.With(zap.String("client_order_id", prev), zap.String("replaced_by", next))

	o, err := r.status(ctx, prev)
	if err != nil {
		log.Warn("tracked order replaced, last status unavailable", zap.Error(err))
		return
	}
	if o.ClientOrderID == "" {
		o.ClientOrderID = prev
	}
	log.Info("tracked order replaced", zap.String("status", o.Status))
	if o.IsTerminal() {
		r.send(ctx, log, tgsvc.FormatOrderDone(o))
	}
}

func (r *Runner) status(ctx context.Context, id string) (models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opt.CallTimeout)
	defer cancel()
	return r.rec.Status(ctx, id)
}

func (r *Runner) record(ctx context.Context, log *zap.Logger, e journal.Entry) {
	ctx, cancel := context.WithTimeout(ctx, r.opt.CallTimeout)
	defer cancel()
	if err := r.journal.Record(ctx, e); err != nil {
		log.Warn("journal write failed", zap.Error(err))
	}
}

func (r *Runner) send(ctx context.Context, log *zap.Logger, msg string) {
	if r.notify == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.opt.CallTimeout)
	defer cancel()
	if err := r.notify.Send(ctx, msg); err != nil {
		log.Warn("notify failed", zap.Error(err))
	}
}

func (r *Runner) fail(span opentracing.Span, log *zap.Logger, stage string, err error) time.Duration {
	tracing.Fail(span, err)
	metrics.TickErrorsTotal.WithLabelValues(r.opt.Symbol, stage).Inc()
	r.health.TickFailed()
	log.Error("tick failed",
		zap.String("stage", stage),
		zap.Bool("transient", models.IsTransient(err)),
		zap.Error(err),
	)
	return r.opt.RetryDelay
}

// Episode returns the current episode.
func (r *Runner) Episode() strategy.Episode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.episode
}

// Index returns the current cursor state.
func (r *Runner) Index() timeidx.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.index
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
