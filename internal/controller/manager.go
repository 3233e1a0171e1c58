package controller

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
	"sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/lexfrei/chrony-operator/api/v1alpha1"
	"github.com/lexfrei/chrony-operator/internal/certs"
	"github.com/lexfrei/chrony-operator/internal/chrony"
	"github.com/lexfrei/chrony-operator/internal/metrics"
	"github.com/lexfrei/chrony-operator/internal/observe"
	"github.com/lexfrei/chrony-operator/internal/system"
)

// Config holds all configuration options for the operator manager.
// Values are typically populated from CLI flags or environment variables.
type Config struct {
	// Namespace is the namespace the operator runs in. Used as the default
	// namespace for secret references and for the observability ConfigMap.
	Namespace string `validate:"required"`

	// ServiceName is the systemd unit managed by the operator.
	ServiceName string `validate:"required"`

	// ConfigPath is the chrony configuration file path on the host.
	ConfigPath string `validate:"required"`

	// CertsDir is the directory holding rendered NTS certificate files.
	CertsDir string `validate:"required"`

	// Owner is the system user owning the certificate files. Empty disables
	// ownership handling.
	Owner string

	// MetricsAddr is the bind address for the Prometheus metrics endpoint.
	MetricsAddr string `validate:"required"`

	// MetricsTarget is the scrape address advertised to collection agents.
	// Defaults to MetricsAddr when empty.
	MetricsTarget string

	// HealthAddr is the bind address for health and readiness probes.
	HealthAddr string `validate:"required"`

	// ObserveConfigMap is the name of the observability ConfigMap. Empty
	// disables publishing.
	ObserveConfigMap string

	// LeaderElect enables leader election. Only one operator instance may
	// touch the host daemon at a time.
	LeaderElect bool

	// LeaderElectName is the name of the leader election lease.
	LeaderElectName string
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid operator configuration")
	}

	return nil
}

// Run initializes and starts the operator manager with the provided
// configuration. It wires the host-side collaborators, registers the
// TimeService controller and blocks until the context is cancelled or an
// error occurs.
//
//nolint:funlen // operator setup requires multiple steps
func Run(ctx context.Context, cfg *Config) error {
	logger := log.FromContext(ctx).WithName("manager")
	logger.Info("initializing operator manager")

	if err := cfg.Validate(); err != nil {
		return err
	}

	mgrOptions := ctrl.Options{
		Metrics: server.Options{
			BindAddress: cfg.MetricsAddr,
		},
		HealthProbeBindAddress: cfg.HealthAddr,
	}

	if cfg.LeaderElect {
		mgrOptions.LeaderElection = true
		mgrOptions.LeaderElectionID = cfg.LeaderElectName
		mgrOptions.LeaderElectionNamespace = cfg.Namespace

		logger.Info("leader election enabled",
			"id", cfg.LeaderElectName,
			"namespace", cfg.Namespace,
		)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), mgrOptions)
	if err != nil {
		return errors.Wrap(err, "failed to create manager")
	}

	if err := v1alpha1.AddToScheme(mgr.GetScheme()); err != nil {
		return errors.Wrap(err, "failed to add TimeService scheme")
	}

	chronyService := chrony.NewService()
	chronyService.ConfigPath = cfg.ConfigPath
	chronyService.CertsDir = cfg.CertsDir
	chronyService.Owner = cfg.Owner

	metricsTarget := cfg.MetricsTarget
	if metricsTarget == "" {
		metricsTarget = cfg.MetricsAddr
	}

	var publisher *observe.Publisher
	if cfg.ObserveConfigMap != "" {
		publisher = observe.NewPublisher(mgr.GetClient(), cfg.Namespace, cfg.ObserveConfigMap)
	}

	reconciler := &TimeServiceReconciler{
		Client:        mgr.GetClient(),
		Scheme:        mgr.GetScheme(),
		Chrony:        chronyService,
		Packages:      system.NewAptManager(),
		Services:      system.NewSystemdManager(),
		Chronyc:       system.NewChronyc(),
		Version:       system.NewChronydVersion(),
		Certs:         certs.NewResolver(mgr.GetClient(), cfg.Namespace),
		Metrics:       metrics.NewCollector(ctrlmetrics.Registry),
		Observe:       publisher,
		ServiceName:   cfg.ServiceName,
		MetricsTarget: metricsTarget,
	}

	if err := reconciler.SetupWithManager(mgr); err != nil {
		return errors.Wrap(err, "failed to setup TimeService controller")
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return errors.Wrap(err, "failed to set up health check")
	}

	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return errors.Wrap(err, "failed to set up ready check")
	}

	logger.Info("starting manager")

	if err := mgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start manager")
	}

	return nil
}
