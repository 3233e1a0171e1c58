// Package metrics provides Prometheus metrics instrumentation for the operator.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector provides metrics recording interface.
// This allows components to record metrics without direct prometheus dependency.
//
//nolint:interfacebloat // All methods are needed for comprehensive metrics coverage
type Collector interface {
	// Reconciliation metrics
	RecordReconcileDuration(ctx context.Context, status string, duration time.Duration)
	RecordReconcileError(ctx context.Context, errorType string)
	RecordConfigApply(ctx context.Context, changed bool)
	RecordServiceRestart(ctx context.Context, status string, duration time.Duration)
	RecordPackageInstall(ctx context.Context, status string, duration time.Duration)

	// Daemon state metrics
	SetConfiguredSources(ctx context.Context, count int)
	SetNTSEnabled(ctx context.Context, enabled bool)
	SetTracking(ctx context.Context, stratum int, offset, rootDelay, rootDispersion float64)
	ClearTracking(ctx context.Context)
	SetSourcesReachable(ctx context.Context, reachable, total int)
}

// prometheusCollector implements Collector using Prometheus metrics.
type prometheusCollector struct {
	// Reconciliation metrics
	reconcileDuration *prometheus.HistogramVec
	reconcileErrors   *prometheus.CounterVec
	configApplies     *prometheus.CounterVec
	restartDuration   *prometheus.HistogramVec
	restartsTotal     *prometheus.CounterVec
	installDuration   *prometheus.HistogramVec
	installsTotal     *prometheus.CounterVec

	// Daemon state metrics
	configuredSources prometheus.Gauge
	ntsEnabled        prometheus.Gauge
	stratum           prometheus.Gauge
	clockOffset       prometheus.Gauge
	rootDelay         prometheus.Gauge
	rootDispersion    prometheus.Gauge
	trackingValid     prometheus.Gauge
	sourcesReachable  prometheus.Gauge
	sourcesObserved   prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector and registers metrics.
func NewCollector(reg prometheus.Registerer) Collector {
	c := &prometheusCollector{}
	c.initReconcileMetrics()
	c.initDaemonMetrics()
	c.register(reg)

	return c
}

// RecordReconcileDuration records the duration of a reconciliation pass.
func (c *prometheusCollector) RecordReconcileDuration(_ context.Context, status string, duration time.Duration) {
	c.reconcileDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordReconcileError records a reconciliation error by type.
func (c *prometheusCollector) RecordReconcileError(_ context.Context, errorType string) {
	c.reconcileErrors.WithLabelValues(errorType).Inc()
}

// RecordConfigApply records a configuration apply and whether it changed disk state.
func (c *prometheusCollector) RecordConfigApply(_ context.Context, changed bool) {
	outcome := "unchanged"
	if changed {
		outcome = "changed"
	}

	c.configApplies.WithLabelValues(outcome).Inc()
}

// RecordServiceRestart records a daemon restart attempt.
func (c *prometheusCollector) RecordServiceRestart(_ context.Context, status string, duration time.Duration) {
	c.restartDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.restartsTotal.WithLabelValues(status).Inc()
}

// RecordPackageInstall records a package installation attempt.
func (c *prometheusCollector) RecordPackageInstall(_ context.Context, status string, duration time.Duration) {
	c.installDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.installsTotal.WithLabelValues(status).Inc()
}

// SetConfiguredSources records the number of configured time sources.
func (c *prometheusCollector) SetConfiguredSources(_ context.Context, count int) {
	c.configuredSources.Set(float64(count))
}

// SetNTSEnabled records whether the applied configuration serves NTS.
func (c *prometheusCollector) SetNTSEnabled(_ context.Context, enabled bool) {
	value := 0.0
	if enabled {
		value = 1.0
	}

	c.ntsEnabled.Set(value)
}

// SetTracking records the daemon's current tracking report.
func (c *prometheusCollector) SetTracking(_ context.Context, stratum int, offset, rootDelay, rootDispersion float64) {
	c.trackingValid.Set(1)
	c.stratum.Set(float64(stratum))
	c.clockOffset.Set(offset)
	c.rootDelay.Set(rootDelay)
	c.rootDispersion.Set(rootDispersion)
}

// ClearTracking zeroes the tracking gauges when the daemon cannot be queried,
// so stale values are never reported as current.
func (c *prometheusCollector) ClearTracking(_ context.Context) {
	c.trackingValid.Set(0)
	c.stratum.Set(0)
	c.clockOffset.Set(0)
	c.rootDelay.Set(0)
	c.rootDispersion.Set(0)
}

// SetSourcesReachable records the reachable and observed upstream source counts.
func (c *prometheusCollector) SetSourcesReachable(_ context.Context, reachable, total int) {
	c.sourcesReachable.Set(float64(reachable))
	c.sourcesObserved.Set(float64(total))
}

func (c *prometheusCollector) initReconcileMetrics() {
	c.reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chronyop_reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	c.reconcileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronyop_reconcile_errors_total",
			Help: "Total reconciliation errors by type",
		},
		[]string{"error_type"},
	)
	c.configApplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronyop_config_applies_total",
			Help: "Configuration apply attempts by outcome",
		},
		[]string{"outcome"},
	)
	c.restartDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chronyop_service_restart_duration_seconds",
			Help:    "Duration of chrony service restarts",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	c.restartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronyop_service_restarts_total",
			Help: "Total chrony service restart attempts",
		},
		[]string{"status"},
	)
	c.installDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chronyop_package_install_duration_seconds",
			Help:    "Duration of package installation",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)
	c.installsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chronyop_package_installs_total",
			Help: "Total package installation attempts",
		},
		[]string{"status"},
	)
}

func (c *prometheusCollector) initDaemonMetrics() {
	c.configuredSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_configured_sources",
			Help: "Number of configured time sources",
		},
	)
	c.ntsEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_nts_enabled",
			Help: "Whether the applied configuration serves NTS (1) or plain NTP only (0)",
		},
	)
	c.stratum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_stratum",
			Help: "Stratum of the local clock as reported by chronyd",
		},
	)
	c.clockOffset = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_clock_offset_seconds",
			Help: "Estimated system clock offset as reported by chronyd",
		},
	)
	c.rootDelay = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_root_delay_seconds",
			Help: "Total network path delay to the stratum-1 source",
		},
	)
	c.rootDispersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_root_dispersion_seconds",
			Help: "Total accumulated dispersion to the stratum-1 source",
		},
	)
	c.trackingValid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_tracking_valid",
			Help: "Whether the tracking gauges reflect a recent successful chronyd query",
		},
	)
	c.sourcesReachable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_sources_reachable",
			Help: "Number of upstream sources that answered their most recent poll",
		},
	)
	c.sourcesObserved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chronyop_sources_observed",
			Help: "Number of upstream sources reported by chronyd",
		},
	)
}

func (c *prometheusCollector) register(reg prometheus.Registerer) {
	reg.MustRegister(
		c.reconcileDuration,
		c.reconcileErrors,
		c.configApplies,
		c.restartDuration,
		c.restartsTotal,
		c.installDuration,
		c.installsTotal,
		c.configuredSources,
		c.ntsEnabled,
		c.stratum,
		c.clockOffset,
		c.rootDelay,
		c.rootDispersion,
		c.trackingValid,
		c.sourcesReachable,
		c.sourcesObserved,
	)
}

// NoopCollector is a no-op implementation of Collector for testing.
type NoopCollector struct{}

// NewNoopCollector creates a new no-op collector.
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

// RecordReconcileDuration is a no-op.
func (c *NoopCollector) RecordReconcileDuration(_ context.Context, _ string, _ time.Duration) {}

// RecordReconcileError is a no-op.
func (c *NoopCollector) RecordReconcileError(_ context.Context, _ string) {}

// RecordConfigApply is a no-op.
func (c *NoopCollector) RecordConfigApply(_ context.Context, _ bool) {}

// RecordServiceRestart is a no-op.
func (c *NoopCollector) RecordServiceRestart(_ context.Context, _ string, _ time.Duration) {}

// RecordPackageInstall is a no-op.
func (c *NoopCollector) RecordPackageInstall(_ context.Context, _ string, _ time.Duration) {}

// SetConfiguredSources is a no-op.
func (c *NoopCollector) SetConfiguredSources(_ context.Context, _ int) {}

// SetNTSEnabled is a no-op.
func (c *NoopCollector) SetNTSEnabled(_ context.Context, _ bool) {}

// SetTracking is a no-op.
func (c *NoopCollector) SetTracking(_ context.Context, _ int, _, _, _ float64) {}

// ClearTracking is a no-op.
func (c *NoopCollector) ClearTracking(_ context.Context) {}

// SetSourcesReachable is a no-op.
func (c *NoopCollector) SetSourcesReachable(_ context.Context, _, _ int) {}
