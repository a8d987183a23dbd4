package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector owns a private registry. A nil *Collector records nothing.
type Collector struct {
	registry        *prometheus.Registry
	goalsCreated    prometheus.Counter
	deposits        prometheus.Counter
	withdrawals     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	penaltiesTotal  prometheus.Counter
	versionRetries  prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		goalsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "venus_goals_created_total",
			Help: "Total number of savings goals created",
		}),
		deposits: factory.NewCounter(prometheus.CounterOpts{
			Name: "venus_deposits_total",
			Help: "Total number of deposits into locked goals",
		}),
		withdrawals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "venus_withdrawals_total",
			Help: "Committed withdrawals by kind",
		}, []string{"kind"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "venus_withdrawals_rejected_total",
			Help: "Rejected withdrawals by reason",
		}, []string{"reason"}),
		penaltiesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "venus_penalties_amount_total",
			Help: "Sum of penalties charged on emergency withdrawals",
		}),
		versionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "venus_version_conflict_retries_total",
			Help: "Goal mutations retried after a concurrent modification",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "venus_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
}

func (m *Collector) GoalCreated() {
	if m == nil {
		return
	}
	m.goalsCreated.Inc()
}

func (m *Collector) Deposit() {
	if m == nil {
		return
	}
	m.deposits.Inc()
}

func (m *Collector) Withdrawal(emergency bool, penalty decimal.Decimal) {
	if m == nil {
		return
	}
	kind := "scheduled"
	if emergency {
		kind = "emergency"
	}
	m.withdrawals.WithLabelValues(kind).Inc()
	m.penaltiesTotal.Add(penalty.InexactFloat64())
}

func (m *Collector) WithdrawalRejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Collector) VersionRetry() {
	if m == nil {
		return
	}
	m.versionRetries.Inc()
}

func (m *Collector) ObserveRequest(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (m *Collector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
