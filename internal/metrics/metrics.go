// Package metrics exposes the latest vehicle readings and poller health to
// Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results.
const (
	ResultRecorded = "recorded"
	ResultSkipped  = "skipped"
	// ResultUnstored counts samples that were published but failed to append.
	ResultUnstored = "unstored"
)

// Snapshot is the set of values most recently published.
type Snapshot struct {
	ChargingLevel float64
	Mileage       float64
	BatteryHealth float64
	DrivingRange  float64
}

// Publisher owns a dedicated registry. Gauges are overwritten on every
// successful poll and keep no history.
type Publisher struct {
	registry *prometheus.Registry

	chargingLevel prometheus.Gauge
	mileage       prometheus.Gauge
	batteryHealth prometheus.Gauge
	drivingRange  prometheus.Gauge

	// PollCycles counts finished cycles by result (recorded/skipped).
	pollCycles *prometheus.CounterVec

	// PollFailures counts vendor failures by kind and operation.
	pollFailures *prometheus.CounterVec

	forcedRefresh prometheus.Counter
	lastSample    prometheus.Gauge

	// Phase is 1 for the poller's current phase and 0 for the others.
	phase *prometheus.GaugeVec

	mu   sync.RWMutex
	snap Snapshot
}

// New builds a publisher with every collector registered.
func New() *Publisher {
	p := &Publisher{
		registry: prometheus.NewRegistry(),
		chargingLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_data_charging_level",
			Help: "Charging level of the vehicle in percent.",
		}),
		mileage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_data_mileage",
			Help: "Odometer reading of the vehicle.",
		}),
		batteryHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_data_battery_health",
			Help: "Battery state of health in percent.",
		}),
		drivingRange: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_data_ev_driving_range",
			Help: "Estimated electric driving range.",
		}),
		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visioniq_poll_cycles_total",
			Help: "Total number of poll cycles by result.",
		}, []string{"result"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visioniq_poll_failures_total",
			Help: "Total number of vendor failures by kind and operation.",
		}, []string{"kind", "op"}),
		forcedRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visioniq_forced_refresh_total",
			Help: "Total number of forced (non-cached) vehicle refreshes.",
		}),
		lastSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "visioniq_last_sample_timestamp_seconds",
			Help: "Unix time of the last recorded sample.",
		}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "visioniq_poller_phase",
			Help: "Current poll cycle phase (1 = active).",
		}, []string{"phase"}),
	}

	p.registry.MustRegister(
		p.chargingLevel,
		p.mileage,
		p.batteryHealth,
		p.drivingRange,
		p.pollCycles,
		p.pollFailures,
		p.forcedRefresh,
		p.lastSample,
		p.phase,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, r := range []string{ResultRecorded, ResultSkipped, ResultUnstored} {
		p.pollCycles.WithLabelValues(r)
	}

	return p
}

// Publish overwrites the four vehicle gauges.
func (p *Publisher) Publish(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chargingLevel.Set(s.ChargingLevel)
	p.mileage.Set(s.Mileage)
	p.batteryHealth.Set(s.BatteryHealth)
	p.drivingRange.Set(s.DrivingRange)
	p.snap = s
}

// Snapshot returns the last published values, zero before the first poll.
func (p *Publisher) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Publisher) ObserveCycle(result string) {
	p.pollCycles.WithLabelValues(result).Inc()
}

func (p *Publisher) ObserveFailure(kind, op string) {
	p.pollFailures.WithLabelValues(kind, op).Inc()
}

func (p *Publisher) ObserveForcedRefresh() {
	p.forcedRefresh.Inc()
}

func (p *Publisher) SetLastSample(t time.Time) {
	p.lastSample.Set(float64(t.UnixNano()) / 1e9)
}

// SetPhase marks phase as current. Phases seen before are reset to 0.
func (p *Publisher) SetPhase(phase string) {
	p.phase.Reset()
	p.phase.WithLabelValues(phase).Set(1)
}

// Registry exposes the underlying registry, e.g. for tests.
func (p *Publisher) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the text exposition format.
func (p *Publisher) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
