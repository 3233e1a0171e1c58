package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/lexfrei/chrony-operator/internal/chrony"
	"github.com/lexfrei/chrony-operator/internal/controller"
)

//nolint:gochecknoglobals // set by SetVersion from main
var (
	version = "development"
	gitsha  = "development"
)

func SetVersion(ver, sha string) {
	version = ver
	gitsha = sha
}

//nolint:gochecknoglobals // cobra command pattern
var rootCmd = &cobra.Command{
	Use:   "chrony-operator",
	Short: "Kubernetes operator managing a chrony NTP/NTS daemon",
	Long: `An operator that installs, configures and supervises the chrony daemon
on its node. It watches TimeService resources and referenced Secrets,
renders the daemon configuration declaratively and reports the daemon's
synchronization state back through the resource status.`,
	RunE:          runOperator,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	rootCmd.Flags().String("namespace", "", "Namespace the operator runs in")
	rootCmd.Flags().String("service-name", "chrony", "Systemd unit to manage")
	rootCmd.Flags().String("config-path", chrony.DefaultConfigPath, "Chrony configuration file path")
	rootCmd.Flags().String("certs-dir", chrony.DefaultCertsDir, "Directory for rendered NTS certificate files")
	rootCmd.Flags().String("chrony-owner", chrony.DefaultOwner, "System user owning the certificate files")
	rootCmd.Flags().String("metrics-addr", ":8080", "Address for metrics endpoint")
	rootCmd.Flags().String("metrics-target", "", "Scrape address advertised to collection agents (defaults to metrics-addr)")
	rootCmd.Flags().String("health-addr", ":8081", "Address for health probe endpoint")
	rootCmd.Flags().String("observe-configmap", "chrony-operator-observability", "Name of the observability ConfigMap (empty disables publishing)")

	// Leader election flags
	rootCmd.Flags().Bool("leader-elect", false, "Enable leader election")
	rootCmd.Flags().String("leader-election-name", "chrony-operator-leader", "Name of the leader election lease")

	_ = viper.BindPFlags(rootCmd.Flags())
	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	viper.SetEnvPrefix("CHRONY")
	viper.AutomaticEnv()

	viper.SetDefault("service-name", "chrony")
	viper.SetDefault("config-path", chrony.DefaultConfigPath)
	viper.SetDefault("certs-dir", chrony.DefaultCertsDir)
	viper.SetDefault("chrony-owner", chrony.DefaultOwner)
	viper.SetDefault("metrics-addr", ":8080")
	viper.SetDefault("health-addr", ":8081")
	viper.SetDefault("observe-configmap", "chrony-operator-observability")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "json")
	viper.SetDefault("leader-elect", false)
	viper.SetDefault("leader-election-name", "chrony-operator-leader")
}

func Execute() error {
	return errors.Wrap(rootCmd.Execute(), "command execution failed")
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo

	switch viper.GetString("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if viper.GetString("log-format") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

//nolint:noinlineerr // inline error handling is fine here
func runOperator(_ *cobra.Command, _ []string) error {
	logger := setupLogger()
	slog.SetDefault(logger)

	ctrl.SetLogger(logr.FromSlogHandler(logger.Handler()))

	logger.Info("starting chrony-operator",
		"version", version,
		"gitsha", gitsha,
	)

	namespace := viper.GetString("namespace")
	if namespace == "" {
		return errors.New("namespace is required (use --namespace or CHRONY_NAMESPACE env var)")
	}

	cfg := controller.Config{
		Namespace:        namespace,
		ServiceName:      viper.GetString("service-name"),
		ConfigPath:       viper.GetString("config-path"),
		CertsDir:         viper.GetString("certs-dir"),
		Owner:            viper.GetString("chrony-owner"),
		MetricsAddr:      viper.GetString("metrics-addr"),
		MetricsTarget:    viper.GetString("metrics-target"),
		HealthAddr:       viper.GetString("health-addr"),
		ObserveConfigMap: viper.GetString("observe-configmap"),

		LeaderElect:     viper.GetBool("leader-elect"),
		LeaderElectName: viper.GetString("leader-election-name"),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := controller.Run(ctx, &cfg); err != nil {
		return errors.Wrap(err, "failed to run operator")
	}

	return nil
}
