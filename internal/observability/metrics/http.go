package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ingestTotal          *prometheus.CounterVec
	ingestDuration       *prometheus.HistogramVec
	externalCallDuration *prometheus.HistogramVec
	ledgerAppendsTotal   *prometheus.CounterVec
	riskProfilesTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxintake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxintake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rxintake",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxintake",
			Subsystem: "pipeline",
			Name:      "ingests_total",
			Help:      "Total ingestion pipeline runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxintake",
			Subsystem: "pipeline",
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end ingestion pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	externalCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rxintake",
			Subsystem: "external",
			Name:      "call_duration_seconds",
			Help:      "External dependency call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "target"},
	)
	ledgerAppendsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxintake",
			Subsystem: "pipeline",
			Name:      "ledger_appends_total",
			Help:      "Total successful ledger appends.",
		},
		[]string{"service", "stream"},
	)
	riskProfilesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rxintake",
			Subsystem: "pipeline",
			Name:      "risk_profiles_total",
			Help:      "Total risk profile generations by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ingestTotal,
		ingestDuration,
		externalCallDuration,
		ledgerAppendsTotal,
		riskProfilesTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		ingestTotal:          ingestTotal,
		ingestDuration:       ingestDuration,
		externalCallDuration: externalCallDuration,
		ledgerAppendsTotal:   ledgerAppendsTotal,
		riskProfilesTotal:    riskProfilesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps path-parameter endpoints from exploding label
// cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/get_prescriptions/"):
		return "/get_prescriptions/{patient_id}"
	case strings.HasPrefix(path, "/generate_patient_risk_profile/"):
		return "/generate_patient_risk_profile/{patient_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordIngest(service, outcome string, duration time.Duration) {
	m.ingestTotal.WithLabelValues(service, outcome).Inc()
	m.ingestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordExternalCall(service, target string, duration time.Duration) {
	m.externalCallDuration.WithLabelValues(service, target).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordLedgerAppend(service, stream string) {
	m.ledgerAppendsTotal.WithLabelValues(service, stream).Inc()
}

func (m *HTTPServerMetrics) RecordRiskProfile(service, outcome string) {
	m.riskProfilesTotal.WithLabelValues(service, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
