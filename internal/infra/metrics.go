package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds the cash module collectors. A nil *Metrics is valid and
// records nothing, so services can be built without a registry in tests.
type Metrics struct {
	registry        *prometheus.Registry
	sessionsOpened  prometheus.Counter
	sessionsClosed  *prometheus.CounterVec
	closeRejected   *prometheus.CounterVec
	varianceAbs     prometheus.Histogram
	sideEffectFails *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "caja",
			Name:      "sessions_opened_total",
			Help:      "Cash sessions opened.",
		}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caja",
			Name:      "sessions_closed_total",
			Help:      "Cash sessions closed, by variance classification.",
		}, []string{"classification"}),
		closeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caja",
			Name:      "close_rejected_total",
			Help:      "Close attempts rejected, by error kind.",
		}, []string{"reason"}),
		varianceAbs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "caja",
			Name:      "close_variance_abs",
			Help:      "Absolute counted-vs-expected variance at close.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 500},
		}),
		sideEffectFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caja",
			Name:      "post_close_failures_total",
			Help:      "Post-commit side effects that failed after a successful close.",
		}, []string{"effect"}),
	}
	reg.MustRegister(
		m.sessionsOpened, m.sessionsClosed, m.closeRejected, m.varianceAbs, m.sideEffectFails,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsOpened.Inc()
}

func (m *Metrics) SessionClosed(classification string, variance decimal.Decimal) {
	if m == nil {
		return
	}
	m.sessionsClosed.WithLabelValues(classification).Inc()
	m.varianceAbs.Observe(variance.Abs().InexactFloat64())
}

func (m *Metrics) CloseRejected(reason string) {
	if m == nil {
		return
	}
	m.closeRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) PostCloseFailure(effect string) {
	if m == nil {
		return
	}
	m.sideEffectFails.WithLabelValues(effect).Inc()
}
