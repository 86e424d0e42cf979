package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики шлюза. Нулевой указатель отключает сбор.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	refreshes    *prometheus.CounterVec
	authFailures *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil — без регистрации).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_client_requests_total",
			Help: "Outgoing API calls by HTTP method and response code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quiz_client_request_duration_seconds",
			Help:    "Latency of outgoing API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_client_refresh_total",
			Help: "Credential refresh attempts by result.",
		}, []string{"result"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_client_auth_failures_total",
			Help: "Terminal authentication failures by reason.",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.refreshes, m.authFailures)
	}

	return m
}

// code — "error" для транспортной ошибки, иначе числовой статус.
func (m *Metrics) observeRequest(method string, status int, dur time.Duration) {
	if m == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}

	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(dur.Seconds())
}

func (m *Metrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) observeAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}
