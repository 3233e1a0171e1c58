package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorInterface(t *testing.T) {
	t.Parallel()

	// Verify that prometheusCollector implements Collector interface
	var _ Collector = (*prometheusCollector)(nil)
	var _ Collector = (*NoopCollector)(nil)
}

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)

	require.NotNil(t, collector)
	assert.IsType(t, &prometheusCollector{}, collector)
}

func TestNoopCollector(t *testing.T) {
	t.Parallel()

	collector := NewNoopCollector()
	require.NotNil(t, collector)

	ctx := context.Background()

	// All methods should not panic
	assert.NotPanics(t, func() {
		collector.RecordReconcileDuration(ctx, "success", time.Second)
		collector.RecordReconcileError(ctx, "configuration")
		collector.RecordConfigApply(ctx, true)
		collector.RecordServiceRestart(ctx, "success", time.Second)
		collector.RecordPackageInstall(ctx, "success", time.Second)
		collector.SetConfiguredSources(ctx, 2)
		collector.SetNTSEnabled(ctx, true)
		collector.SetTracking(ctx, 2, 0.0001, 0.02, 0.03)
		collector.ClearTracking(ctx)
		collector.SetSourcesReachable(ctx, 1, 2)
	})
}

func TestMetricsRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg).(*prometheusCollector)
	ctx := context.Background()

	// Trigger all metrics to be collected at least once
	collector.RecordReconcileDuration(ctx, "success", time.Second)
	collector.RecordReconcileError(ctx, "configuration")
	collector.RecordConfigApply(ctx, true)
	collector.RecordServiceRestart(ctx, "success", time.Second)
	collector.RecordPackageInstall(ctx, "success", time.Second)
	collector.SetConfiguredSources(ctx, 2)
	collector.SetNTSEnabled(ctx, true)
	collector.SetTracking(ctx, 2, 0.0001, 0.02, 0.03)
	collector.SetSourcesReachable(ctx, 1, 2)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	expectedMetrics := []string{
		"chronyop_reconcile_duration_seconds",
		"chronyop_reconcile_errors_total",
		"chronyop_config_applies_total",
		"chronyop_service_restart_duration_seconds",
		"chronyop_service_restarts_total",
		"chronyop_package_install_duration_seconds",
		"chronyop_package_installs_total",
		"chronyop_configured_sources",
		"chronyop_nts_enabled",
		"chronyop_stratum",
		"chronyop_clock_offset_seconds",
		"chronyop_root_delay_seconds",
		"chronyop_root_dispersion_seconds",
		"chronyop_tracking_valid",
		"chronyop_sources_reachable",
		"chronyop_sources_observed",
	}

	registeredMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		registeredMetrics[mf.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		assert.True(t, registeredMetrics[expected], "metric %s should be registered", expected)
	}
}

func TestRecordReconcileError(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg).(*prometheusCollector)
	ctx := context.Background()

	collector.RecordReconcileError(ctx, "configuration")
	collector.RecordReconcileError(ctx, "configuration")
	collector.RecordReconcileError(ctx, "service")

	configCount := testutil.ToFloat64(collector.reconcileErrors.WithLabelValues("configuration"))
	serviceCount := testutil.ToFloat64(collector.reconcileErrors.WithLabelValues("service"))

	assert.Equal(t, float64(2), configCount)
	assert.Equal(t, float64(1), serviceCount)
}

func TestRecordConfigApply(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg).(*prometheusCollector)
	ctx := context.Background()

	collector.RecordConfigApply(ctx, true)
	collector.RecordConfigApply(ctx, false)
	collector.RecordConfigApply(ctx, false)

	changed := testutil.ToFloat64(collector.configApplies.WithLabelValues("changed"))
	unchanged := testutil.ToFloat64(collector.configApplies.WithLabelValues("unchanged"))

	assert.Equal(t, float64(1), changed)
	assert.Equal(t, float64(2), unchanged)
}

func TestSetNTSEnabled(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg).(*prometheusCollector)
	ctx := context.Background()

	collector.SetNTSEnabled(ctx, true)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.ntsEnabled))

	collector.SetNTSEnabled(ctx, false)
	assert.Equal(t, float64(0), testutil.ToFloat64(collector.ntsEnabled))
}

func TestSetTrackingAndClear(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg).(*prometheusCollector)
	ctx := context.Background()

	collector.SetTracking(ctx, 3, -0.000123, 0.021, 0.034)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.trackingValid))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.stratum))
	assert.InDelta(t, -0.000123, testutil.ToFloat64(collector.clockOffset), 1e-12)
	assert.InDelta(t, 0.021, testutil.ToFloat64(collector.rootDelay), 1e-12)
	assert.InDelta(t, 0.034, testutil.ToFloat64(collector.rootDispersion), 1e-12)

	collector.ClearTracking(ctx)

	assert.Equal(t, float64(0), testutil.ToFloat64(collector.trackingValid))
	assert.Equal(t, float64(0), testutil.ToFloat64(collector.stratum))
}

func TestSetSourcesReachable(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg).(*prometheusCollector)
	ctx := context.Background()

	collector.SetSourcesReachable(ctx, 3, 4)

	assert.Equal(t, float64(3), testutil.ToFloat64(collector.sourcesReachable))
	assert.Equal(t, float64(4), testutil.ToFloat64(collector.sourcesObserved))
}

func TestRecordServiceRestart(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := NewCollector(reg).(*prometheusCollector)
	ctx := context.Background()

	collector.RecordServiceRestart(ctx, "success", time.Second)

	durationCount := testutil.CollectAndCount(collector.restartDuration)
	restarts := testutil.ToFloat64(collector.restartsTotal.WithLabelValues("success"))

	assert.Equal(t, 1, durationCount)
	assert.Equal(t, float64(1), restarts)
}
