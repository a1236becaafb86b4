package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wallex_bot_ticks_total", Help: "Trading loop ticks by mode (live/backlog)"},
		[]string{"symbol", "mode"},
	)
	TickErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wallex_bot_tick_errors_total", Help: "Failed ticks by stage"},
		[]string{"symbol", "stage"},
	)
	EpisodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wallex_bot_episodes_total", Help: "Episode transitions"},
		[]string{"symbol", "side", "state"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wallex_bot_orders_total", Help: "Reconciliation outcomes"},
		[]string{"symbol", "side", "reason"},
	)
	CancelledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wallex_bot_cancelled_orders_total", Help: "Stale namespaced orders cancelled"},
		[]string{"symbol"},
	)
	CandleIndex = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "wallex_bot_candle_index", Help: "Row index evaluated on the last tick (-1 is live)"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, TickErrorsTotal, EpisodesTotal, OrdersTotal, CancelledTotal, CandleIndex)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
