package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the two money ledgers.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	paymentsCreated   prometheus.Counter
	paymentsReverted  prometheus.Counter
	paymentAmount     prometheus.Counter
	payrollRuns       prometheus.Counter
	payrollTransition *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tuition_payments_created_total",
		Help: "Total tuition payments created",
	})

	paymentsReverted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tuition_payments_reverted_total",
		Help: "Total tuition payments reverted",
	})

	paymentAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tuition_payment_amount_total",
		Help: "Total amount of created tuition payments",
	})

	payrollRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payroll_runs_generated_total",
		Help: "Total payroll runs generated",
	})

	payrollTransition := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_run_transitions_total",
		Help: "Total payroll run lifecycle transitions",
	}, []string{"to"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite,
		cacheHits, cacheMisses, paymentsCreated, paymentsReverted, paymentAmount,
		payrollRuns, payrollTransition, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		paymentsCreated:   paymentsCreated,
		paymentsReverted:  paymentsReverted,
		paymentAmount:     paymentAmount,
		payrollRuns:       payrollRuns,
		payrollTransition: payrollTransition,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheOperation tracks a cache lookup outcome.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if s == nil {
		return
	}
	s.cacheLatency.Observe(duration.Seconds())
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks a cache set.
func (s *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if s == nil {
		return
	}
	s.cacheWrite.Observe(duration.Seconds())
}

// RecordPaymentCreated increments the payment counters.
func (s *MetricsService) RecordPaymentCreated(amount int64) {
	if s == nil {
		return
	}
	s.paymentsCreated.Inc()
	s.paymentAmount.Add(float64(amount))
}

// RecordPaymentReverted increments the reversal counter.
func (s *MetricsService) RecordPaymentReverted() {
	if s == nil {
		return
	}
	s.paymentsReverted.Inc()
}

// RecordPayrollRunGenerated increments the run counter.
func (s *MetricsService) RecordPayrollRunGenerated() {
	if s == nil {
		return
	}
	s.payrollRuns.Inc()
}

// RecordPayrollTransition counts a lifecycle transition by target state.
func (s *MetricsService) RecordPayrollTransition(to string) {
	if s == nil {
		return
	}
	s.payrollTransition.WithLabelValues(to).Inc()
}
