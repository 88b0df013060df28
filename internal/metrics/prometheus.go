package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics は HTTP と台帳操作のメトリクスをまとめて持つ。
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	ledgerOpsTotal      *prometheus.CounterVec
	ledgerOpDuration    *prometheus.HistogramVec
}

// New は専用の Registry に登録する（テストで何度作っても衝突しない）。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request durations.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint", "status"},
		),
		ledgerOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_ledger_operations_total",
				Help: "Ledger mutations by operation and result code.",
			},
			[]string{"op", "code"},
		),
		ledgerOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketplace_ledger_operation_duration_seconds",
				Help:    "Histogram of ledger mutation durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ledgerOpsTotal,
		m.ledgerOpDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest はリクエスト1件分を記録する。
func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// ObserveLedgerOperation は usecase.Observer を満たす。
func (m *Metrics) ObserveLedgerOperation(op string, code string, elapsed time.Duration) {
	m.ledgerOpsTotal.WithLabelValues(op, code).Inc()
	m.ledgerOpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Registry はテストで値を読むために公開する
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler は /metrics 用
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func classifyStatus(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
