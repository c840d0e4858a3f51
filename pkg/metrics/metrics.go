package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-level engine metrics, registered on a private registry so
// tests can run without collisions.
var (
	OrdersSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_submitted_total", Help: "Orders accepted for processing"})
	OrdersCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_cancelled_total", Help: "Orders cancelled"})
	OrdersModifiedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_modified_total", Help: "Orders modified in place"})
	OrdersKilledTotal    = prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_killed_total", Help: "Fill-and-kill orders discarded with unmatched remainder"})
	OrdersRejectedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_rejected_total", Help: "Orders rejected by validation or duplicate id"})
	TradesExecutedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "trades_executed_total", Help: "Trades emitted by the matching loop"})
	TradeQuantityTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "trade_quantity_total", Help: "Total quantity executed across all trades"})

	SubmitLatencyMs = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "submit_latency_ms", Help: "Order submit latency", Buckets: prometheus.ExponentialBuckets(0.01, 2, 16)})
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		OrdersSubmittedTotal,
		OrdersCancelledTotal,
		OrdersModifiedTotal,
		OrdersKilledTotal,
		OrdersRejectedTotal,
		TradesExecutedTotal,
		TradeQuantityTotal,
		SubmitLatencyMs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
