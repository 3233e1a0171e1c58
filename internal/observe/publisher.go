// Package observe publishes the operator's outbound observability surface: a
// ConfigMap carrying the Prometheus scrape-target descriptor and the bundled
// Grafana dashboard, for collection agents to pick up.
package observe

import (
	"context"
	_ "embed"
	"encoding/json"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// ConfigMap data keys.
const (
	ScrapeKey    = "scrape-targets.json"
	DashboardKey = "dashboard.json"
)

//go:embed dashboard.json
var dashboardJSON string

// scrapeConfig is the fixed-shape descriptor consumed by collection agents.
type scrapeConfig struct {
	MetricsPath   string         `json:"metrics_path"`
	StaticConfigs []staticConfig `json:"static_configs"`
}

type staticConfig struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// ntpPortLabels advertise the daemon's own serving port alongside the
// operator's scrape target.
//
//nolint:gochecknoglobals // static label set
var ntpPortLabels = map[string]string{
	"ntp_port":     "123",
	"ntp_protocol": "udp",
}

// Publisher maintains the observability ConfigMap.
type Publisher struct {
	client    client.Client
	namespace string
	name      string
}

// NewPublisher creates a Publisher writing the named ConfigMap.
func NewPublisher(c client.Client, namespace, name string) *Publisher {
	return &Publisher{
		client:    c,
		namespace: namespace,
		name:      name,
	}
}

// Publish upserts the ConfigMap with the current scrape target and the
// bundled dashboard. It is idempotent.
func (p *Publisher) Publish(ctx context.Context, metricsTarget string) error {
	descriptor, err := json.Marshal(scrapeConfig{
		MetricsPath:   "/metrics",
		StaticConfigs: []staticConfig{{Targets: []string{metricsTarget}, Labels: ntpPortLabels}},
	})
	if err != nil {
		return errdefs.WrapService(err, "failed to marshal scrape descriptor")
	}

	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      p.name,
			Namespace: p.namespace,
		},
	}

	_, err = controllerutil.CreateOrUpdate(ctx, p.client, configMap, func() error {
		if configMap.Labels == nil {
			configMap.Labels = map[string]string{}
		}

		configMap.Labels["app.kubernetes.io/managed-by"] = "chrony-operator"
		configMap.Data = map[string]string{
			ScrapeKey:    string(descriptor),
			DashboardKey: dashboardJSON,
		}

		return nil
	})
	if err != nil {
		return errdefs.WrapTransient(err, "failed to publish observability config map")
	}

	return nil
}
