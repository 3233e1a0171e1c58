package controller

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/lexfrei/chrony-operator/api/v1alpha1"
	"github.com/lexfrei/chrony-operator/internal/certs"
	"github.com/lexfrei/chrony-operator/internal/chrony"
	"github.com/lexfrei/chrony-operator/internal/errdefs"
	"github.com/lexfrei/chrony-operator/internal/metrics"
	"github.com/lexfrei/chrony-operator/internal/observe"
	"github.com/lexfrei/chrony-operator/internal/system"
)

const (
	// trackingRefreshDelay is how often a settled TimeService re-queries the
	// daemon to refresh its tracking summary.
	trackingRefreshDelay = time.Minute

	// waitingRequeueDelay is the retry delay while a dependency has not
	// arrived yet.
	waitingRequeueDelay = 30 * time.Second

	// ntpPort is the UDP port chronyd serves time on. The daemon binds it
	// itself; it is recorded in status for consumers.
	ntpPort = 123
)

// requiredPackages are installed before anything touches the daemon.
// ca-certificates provides the trust roots chronyd needs to verify NTS
// server certificates upstream.
//
//nolint:gochecknoglobals // static package list
var requiredPackages = []string{"chrony", "ca-certificates"}

// TimeServiceReconciler drives the chrony daemon on the host towards the
// state declared by a TimeService resource.
type TimeServiceReconciler struct {
	client.Client

	Scheme   *runtime.Scheme
	Chrony   *chrony.Service
	Packages system.PackageManager
	Services system.ServiceManager
	Chronyc  system.StatusClient
	Version  system.VersionClient
	Certs    *certs.Resolver
	Metrics  metrics.Collector
	Observe  *observe.Publisher

	// ServiceName is the systemd unit to manage. Defaults to "chrony".
	ServiceName string

	// MetricsTarget is the scrape address advertised through the
	// observability ConfigMap.
	MetricsTarget string

	installed bool
}

func (r *TimeServiceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	start := time.Now()

	var ts v1alpha1.TimeService

	err := r.Get(ctx, req.NamespacedName, &ts)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}

		return ctrl.Result{}, errors.Wrap(err, "failed to get TimeService")
	}

	result, err := r.reconcile(ctx, &ts)

	status := "success"
	if err != nil {
		status = "error"

		r.Metrics.RecordReconcileError(ctx, errdefs.Classify(err))
	}

	r.Metrics.RecordReconcileDuration(ctx, status, time.Since(start))

	return result, err
}

// SetupWithManager sets up the controller with the Manager. Secret events
// funnel into TimeService reconciliations so certificate delivery and
// rotation are picked up immediately.
func (r *TimeServiceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	//nolint:wrapcheck // controller-runtime builder pattern
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.TimeService{}).
		Watches(
			&corev1.Secret{},
			handler.EnqueueRequestsFromMapFunc(r.secretToTimeServices),
		).
		Complete(r)
}

//nolint:cyclop // the pass is a linear pipeline with per-stage error routing
func (r *TimeServiceReconciler) reconcile(ctx context.Context, ts *v1alpha1.TimeService) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	if err := r.ensureInstalled(ctx); err != nil {
		return ctrl.Result{}, err
	}

	sources, err := chrony.ParseSources(ts.Spec.Sources)
	if err != nil {
		return r.markBlocked(ctx, ts, ReasonInvalidSources, err)
	}

	// The server name only matters once secure transport is in play, either
	// as a serving identity (material present) or declared intent (nts://
	// sources). A plain NTP setup is not blocked on it.
	if ts.Spec.CertificatesSecretRef != nil || ts.Spec.NTSCertificates != "" || secureCount(sources) > 0 {
		if err := certs.ValidateServerName(ts.Spec.ServerName); err != nil {
			return r.markBlocked(ctx, ts, ReasonInvalidServerName, err)
		}
	}

	material, err := r.Certs.Resolve(ctx, ts)

	switch {
	case errdefs.IsConfiguration(err):
		return r.markBlocked(ctx, ts, ReasonInvalidCerts, err)
	case err != nil:
		return r.markWaiting(ctx, ts, ReasonAwaitingCerts, err)
	}

	if material == nil && secureCount(sources) > 0 {
		return r.markWaiting(ctx, ts, ReasonAwaitingCerts, errdefs.NewTransientf(
			"%d nts:// sources configured but no certificate material has arrived yet", secureCount(sources)))
	}

	if material != nil {
		version, versionErr := r.Version.DaemonVersion(ctx)
		if versionErr != nil {
			if errdefs.IsConfiguration(versionErr) {
				return r.markBlocked(ctx, ts, ReasonDaemonTooOld, versionErr)
			}

			return ctrl.Result{}, versionErr
		}

		if !system.SupportsNTS(version) {
			return r.markBlocked(ctx, ts, ReasonDaemonTooOld, errdefs.NewConfigurationf(
				"chrony %s cannot serve NTS, 4.0 or later is required", version))
		}
	}

	rendered, err := chrony.Render(sources, material != nil, r.Chrony.CertsDir)
	if err != nil {
		return r.markBlocked(ctx, ts, ReasonInvalidSources, err)
	}

	var pair *chrony.KeyPair
	if material != nil {
		pair = &material.Pair
	}

	changed, err := r.Chrony.Apply(ctx, rendered, pair)
	if err != nil {
		return ctrl.Result{}, err
	}

	r.Metrics.RecordConfigApply(ctx, changed)

	if changed {
		logger.Info("configuration changed, restarting daemon",
			"sources", len(sources), "nts", material != nil)

		if err := r.restartDaemon(ctx); err != nil {
			return ctrl.Result{}, err
		}
	}

	return r.report(ctx, ts, sources, material != nil)
}

// ensureInstalled installs the required packages once per process lifetime.
// Installation is idempotent on the package manager side, this only avoids
// the apt round-trip on every pass.
func (r *TimeServiceReconciler) ensureInstalled(ctx context.Context) error {
	if r.installed {
		return nil
	}

	start := time.Now()

	err := r.Packages.Install(ctx, requiredPackages...)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.Metrics.RecordPackageInstall(ctx, status, time.Since(start))

	if err != nil {
		return err
	}

	r.installed = true

	return nil
}

func (r *TimeServiceReconciler) restartDaemon(ctx context.Context) error {
	start := time.Now()

	err := r.Services.Restart(ctx, r.ServiceName)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.Metrics.RecordServiceRestart(ctx, status, time.Since(start))

	return err
}

// report observes the running daemon and publishes the resulting state to the
// TimeService status, the metrics gauges and the observability ConfigMap.
func (r *TimeServiceReconciler) report(
	ctx context.Context,
	ts *v1alpha1.TimeService,
	sources []chrony.Source,
	ntsEnabled bool,
) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	active, err := r.Services.IsActive(ctx, r.ServiceName)
	if err != nil {
		return ctrl.Result{}, err
	}

	var tracking *chrony.Tracking

	if active && len(sources) > 0 {
		tracking = r.queryTracking(ctx)
		r.querySources(ctx)
	} else {
		r.Metrics.ClearTracking(ctx)
		r.Metrics.SetSourcesReachable(ctx, 0, 0)
	}

	switch {
	case len(sources) == 0:
		ts.Status.Phase = v1alpha1.PhaseUnconfigured
	case active:
		ts.Status.Phase = v1alpha1.PhaseActive
	default:
		ts.Status.Phase = v1alpha1.PhaseConfiguring
	}

	ts.Status.NTSEnabled = ntsEnabled
	ts.Status.SourceCount = len(sources)
	ts.Status.NTPPort = ntpPort
	ts.Status.Tracking = trackingSummary(tracking)
	ts.Status.ObservedGeneration = ts.Generation

	setConfiguredCondition(ts, len(sources))

	if active {
		setCondition(ts, v1alpha1.ConditionReady, metav1.ConditionTrue,
			ReasonDaemonActive, "chronyd is running with the desired configuration")
	} else {
		setCondition(ts, v1alpha1.ConditionReady, metav1.ConditionFalse,
			ReasonDaemonInactive, "chronyd is not active")
	}

	r.Metrics.SetConfiguredSources(ctx, len(sources))
	r.Metrics.SetNTSEnabled(ctx, ntsEnabled)

	if r.Observe != nil {
		// Best effort: a failed descriptor publish never blocks time service.
		if err := r.Observe.Publish(ctx, r.MetricsTarget); err != nil {
			logger.Error(err, "failed to publish observability config map")
		}
	}

	if err := r.updateStatus(ctx, ts); err != nil {
		return ctrl.Result{}, err
	}

	delay := trackingRefreshDelay
	if ts.Status.Phase == v1alpha1.PhaseConfiguring {
		delay = waitingRequeueDelay
	}

	return ctrl.Result{RequeueAfter: delay}, nil
}

// queryTracking fetches and parses the daemon's tracking report. Failures
// clear the gauges and yield a nil summary: the status never carries stale or
// guessed measurements.
func (r *TimeServiceReconciler) queryTracking(ctx context.Context) *chrony.Tracking {
	logger := log.FromContext(ctx)

	raw, err := r.Chronyc.Tracking(ctx)
	if err == nil {
		var tracking *chrony.Tracking

		tracking, err = chrony.ParseTracking(raw)
		if err == nil {
			r.Metrics.SetTracking(ctx, tracking.Stratum,
				tracking.SystemOffsetSeconds, tracking.RootDelaySeconds, tracking.RootDispersionSeconds)

			return tracking
		}
	}

	logger.Error(err, "failed to query chronyd tracking")
	r.Metrics.ClearTracking(ctx)

	return nil
}

// querySources updates the reachability gauges from the daemon's sources
// report, best effort.
func (r *TimeServiceReconciler) querySources(ctx context.Context) {
	raw, err := r.Chronyc.Sources(ctx)
	if err != nil {
		r.Metrics.SetSourcesReachable(ctx, 0, 0)

		return
	}

	reports, err := chrony.ParseSourceReports(raw)
	if err != nil {
		r.Metrics.SetSourcesReachable(ctx, 0, 0)

		return
	}

	reachable := 0

	for _, report := range reports {
		if report.Reachable() {
			reachable++
		}
	}

	r.Metrics.SetSourcesReachable(ctx, reachable, len(reports))
}

// markBlocked records a non-retryable configuration problem: the phase goes
// to Blocked and the pass ends without a retry, operator action is required.
func (r *TimeServiceReconciler) markBlocked(
	ctx context.Context,
	ts *v1alpha1.TimeService,
	reason string,
	cause error,
) (ctrl.Result, error) {
	log.FromContext(ctx).Info("blocked on invalid configuration", "reason", reason, "cause", cause.Error())
	r.Metrics.RecordReconcileError(ctx, errdefs.Classify(cause))

	ts.Status.Phase = v1alpha1.PhaseBlocked
	ts.Status.ObservedGeneration = ts.Generation
	setCondition(ts, v1alpha1.ConditionReady, metav1.ConditionFalse, reason, cause.Error())

	if err := r.updateStatus(ctx, ts); err != nil {
		return ctrl.Result{}, err
	}

	return ctrl.Result{}, nil
}

// markWaiting records a missing dependency: the phase goes to Waiting and the
// pass is retried after a fixed delay. The Secret watch usually gets there
// first when the dependency is certificate material.
func (r *TimeServiceReconciler) markWaiting(
	ctx context.Context,
	ts *v1alpha1.TimeService,
	reason string,
	cause error,
) (ctrl.Result, error) {
	log.FromContext(ctx).Info("waiting on dependency", "reason", reason, "cause", cause.Error())
	r.Metrics.RecordReconcileError(ctx, errdefs.Classify(cause))

	ts.Status.Phase = v1alpha1.PhaseWaiting
	ts.Status.ObservedGeneration = ts.Generation
	setCondition(ts, v1alpha1.ConditionReady, metav1.ConditionFalse, reason, cause.Error())

	if err := r.updateStatus(ctx, ts); err != nil {
		return ctrl.Result{}, err
	}

	return ctrl.Result{RequeueAfter: waitingRequeueDelay}, nil
}

func (r *TimeServiceReconciler) updateStatus(ctx context.Context, ts *v1alpha1.TimeService) error {
	if err := r.Status().Update(ctx, ts); err != nil {
		return errors.Wrap(err, "failed to update TimeService status")
	}

	return nil
}

func secureCount(sources []chrony.Source) int {
	count := 0

	for _, source := range sources {
		if source.Secure() {
			count++
		}
	}

	return count
}

// trackingSummary condenses a full tracking report into the status form.
func trackingSummary(tracking *chrony.Tracking) *v1alpha1.TrackingStatus {
	if tracking == nil {
		return nil
	}

	return &v1alpha1.TrackingStatus{
		ReferenceID:   tracking.ReferenceID,
		ReferenceName: tracking.ReferenceName,
		Stratum:       tracking.Stratum,
		OffsetSeconds: strconv.FormatFloat(tracking.SystemOffsetSeconds, 'f', -1, 64),
		LeapStatus:    tracking.LeapStatus,
	}
}
