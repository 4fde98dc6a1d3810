package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// background notification and reminder machinery.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	deliveryTotal   *prometheus.CounterVec
	reminderMatched prometheus.Counter
	reminderDeduped prometheus.Counter
	transitionTotal *prometheus.CounterVec
	conversionTotal prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
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

	deliveryTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Outbound notification attempts by channel and outcome",
	}, []string{"channel", "outcome"})

	reminderMatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_matches_total",
		Help: "Reminder rule matches produced by evaluation passes",
	})

	reminderDeduped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_deduped_total",
		Help: "Reminder matches suppressed by the dedupe marker",
	})

	transitionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "case_transitions_total",
		Help: "Case status transitions by target status",
	}, []string{"target"})

	conversionTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lead_conversions_total",
		Help: "Leads converted into cases",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, deliveryTotal,
		reminderMatched, reminderDeduped, transitionTotal, conversionTotal,
		cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		deliveryTotal:   deliveryTotal,
		reminderMatched: reminderMatched,
		reminderDeduped: reminderDeduped,
		transitionTotal: transitionTotal,
		conversionTotal: conversionTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDelivery records an outbound notification attempt.
func (m *MetricsService) ObserveDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.deliveryTotal.WithLabelValues(channel, outcome).Inc()
}

// ObserveReminderMatch counts a rule match, flagged when the dedupe marker
// suppressed the dispatch.
func (m *MetricsService) ObserveReminderMatch(deduped bool) {
	if m == nil {
		return
	}
	m.reminderMatched.Inc()
	if deduped {
		m.reminderDeduped.Inc()
	}
}

// ObserveTransition counts a committed case status transition.
func (m *MetricsService) ObserveTransition(target string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(target).Inc()
}

// ObserveConversion counts a committed lead conversion.
func (m *MetricsService) ObserveConversion() {
	if m == nil {
		return
	}
	m.conversionTotal.Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
