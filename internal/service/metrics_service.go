package service

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cybergutta/akademitrack-agent/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the monitoring
// loop and provides lightweight snapshots for the control API.
type MetricsService struct {
	registry      *prometheus.Registry
	handler       http.Handler
	cycles        prometheus.Counter
	fetches       *prometheus.CounterVec
	registrations *prometheus.CounterVec
	reauths       *prometheus.CounterVec
	openWindows   prometheus.Gauge
	waiting       prometheus.Gauge

	cycleCount        uint64
	registrationCount uint64
}

// NewMetricsService registers the agent's collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	cycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "automation_cycles_total",
		Help: "Total monitoring loop cycles executed",
	})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_fetches_total",
		Help: "Timetable fetch attempts by result",
	}, []string{"result"})

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Registration calls by outcome",
	}, []string{"outcome"})

	reauths := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reauthentications_total",
		Help: "Credential refresh attempts by outcome",
	}, []string{"outcome"})

	openWindows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "open_registration_windows",
		Help: "Registration windows open in the latest cycle",
	})

	waiting := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "waiting_registration_windows",
		Help: "Registration windows not yet open in the latest cycle",
	})

	registry.MustRegister(cycles, fetches, registrations, reauths, openWindows, waiting)

	return &MetricsService{
		registry:      registry,
		handler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cycles:        cycles,
		fetches:       fetches,
		registrations: registrations,
		reauths:       reauths,
		openWindows:   openWindows,
		waiting:       waiting,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// RecordCycle notes one completed poll cycle and its window counts.
func (m *MetricsService) RecordCycle(open, waiting int) {
	m.cycles.Inc()
	m.openWindows.Set(float64(open))
	m.waiting.Set(float64(waiting))
	atomic.AddUint64(&m.cycleCount, 1)
}

// RecordFetch notes one timetable fetch attempt.
func (m *MetricsService) RecordFetch(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.fetches.WithLabelValues(result).Inc()
}

// RecordRegistration notes one registration call.
func (m *MetricsService) RecordRegistration(outcome models.RegistrationOutcome) {
	m.registrations.WithLabelValues(outcome.String()).Inc()
	if outcome == models.RegistrationSuccess {
		atomic.AddUint64(&m.registrationCount, 1)
	}
}

// RecordReauth notes one credential refresh attempt.
func (m *MetricsService) RecordReauth(outcome models.AuthOutcome) {
	m.reauths.WithLabelValues(outcome.String()).Inc()
}

// Snapshot reports cumulative counters for the status endpoint.
func (m *MetricsService) Snapshot() (cycles, registrations uint64) {
	return atomic.LoadUint64(&m.cycleCount), atomic.LoadUint64(&m.registrationCount)
}
