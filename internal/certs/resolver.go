// Package certs resolves the NTS certificate material for a TimeService
// from its two possible origins and validates it before anything touches
// the host.
package certs

import (
	"context"
	"crypto/tls"
	"net"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/lexfrei/chrony-operator/api/v1alpha1"
	"github.com/lexfrei/chrony-operator/internal/chrony"
	"github.com/lexfrei/chrony-operator/internal/errdefs"
)

// Origin records where certificate material came from, for diagnostics.
type Origin string

const (
	// OriginIntegration means the material arrived through the
	// certificatesSecretRef integration Secret.
	OriginIntegration Origin = "integration"
	// OriginSecretReference means the material came from a configured
	// ntsCertificates secret reference.
	OriginSecretReference Origin = "secret-reference"
)

// Secret keys holding the PEM material, matching kubernetes.io/tls Secrets.
const (
	certKey = "tls.crt"
	keyKey  = "tls.key"
)

// Material is the canonical, validated certificate material for one pass.
type Material struct {
	Pair   chrony.KeyPair
	Origin Origin
}

// Resolver resolves certificate material from the integration Secret and the
// configured secret references.
type Resolver struct {
	client           client.Client
	defaultNamespace string
}

// NewResolver creates a Resolver. defaultNamespace is used for secret
// references that do not carry their own namespace.
func NewResolver(c client.Client, defaultNamespace string) *Resolver {
	return &Resolver{
		client:           c,
		defaultNamespace: defaultNamespace,
	}
}

// Resolve produces at most one canonical Material, or nil when neither
// origin yields material (a valid mode: the daemon serves plain NTP only).
//
// Precedence: material delivered through the integration Secret wins
// exclusively; the configured references are then not consulted at all. A
// missing integration Secret only means the provider has not delivered yet,
// so resolution falls back to the references. Among multiple configured
// references the FIRST declared one wins; later entries are ignored.
//
// A missing or unreadable referenced Secret is a transient error (the pass
// is retried); material that fails PEM/keypair validation is a configuration
// error regardless of origin.
func (r *Resolver) Resolve(ctx context.Context, ts *v1alpha1.TimeService) (*Material, error) {
	if ref := ts.Spec.CertificatesSecretRef; ref != nil {
		pair, err := r.readPair(ctx, *ref, ts.Namespace)

		switch {
		case apierrors.IsNotFound(err):
			// The provider has not delivered yet; fall back to references.
		case errdefs.IsConfiguration(err):
			return nil, err
		case err != nil:
			return nil, errdefs.WrapTransient(err, "failed to read integration certificate secret")
		default:
			if err := ValidatePair(pair); err != nil {
				return nil, err
			}

			return &Material{Pair: *pair, Origin: OriginIntegration}, nil
		}
	}

	refs := ts.Spec.NTSCertificateRefs()
	if len(refs) == 0 {
		return nil, nil
	}

	pair, err := r.readPair(ctx, refs[0], ts.Namespace)

	switch {
	case errdefs.IsConfiguration(err):
		return nil, err
	case err != nil:
		return nil, errdefs.WrapTransient(err, "failed to resolve secret reference "+refs[0].Name)
	}

	if err := ValidatePair(pair); err != nil {
		return nil, err
	}

	return &Material{Pair: *pair, Origin: OriginSecretReference}, nil
}

// readPair fetches a Secret and extracts the certificate/key PEM. NotFound
// errors are returned unwrapped so callers can distinguish absence.
func (r *Resolver) readPair(ctx context.Context, ref v1alpha1.SecretReference, defaultNS string) (*chrony.KeyPair, error) {
	namespace := ref.Namespace
	if namespace == "" {
		namespace = defaultNS
	}

	if namespace == "" {
		namespace = r.defaultNamespace
	}

	secret := &corev1.Secret{}

	err := r.client.Get(ctx, types.NamespacedName{Name: ref.Name, Namespace: namespace}, secret)
	if err != nil {
		return nil, err
	}

	cert, ok := secret.Data[certKey]
	if !ok {
		return nil, errdefs.NewConfigurationf("secret %s/%s does not contain key %s", namespace, ref.Name, certKey)
	}

	key, ok := secret.Data[keyKey]
	if !ok {
		return nil, errdefs.NewConfigurationf("secret %s/%s does not contain key %s", namespace, ref.Name, keyKey)
	}

	return &chrony.KeyPair{Certificate: string(cert), Key: string(key)}, nil
}

// ValidatePair rejects mismatched or malformed PEM material wholesale: both
// halves must be present and form a working keypair before anything is
// accepted (fail fast, never partial-apply).
func ValidatePair(pair *chrony.KeyPair) error {
	if pair.Certificate == "" || pair.Key == "" {
		return errdefs.NewConfiguration("certificate material incomplete: both certificate and key are required")
	}

	_, err := tls.X509KeyPair([]byte(pair.Certificate), []byte(pair.Key))
	if err != nil {
		return errdefs.WrapConfiguration(err, "certificate material rejected")
	}

	return nil
}

// ValidateServerName rejects IP literals: the NTS server identity must be a
// DNS name so it can match a name-based certificate.
func ValidateServerName(serverName string) error {
	if serverName == "" {
		return nil
	}

	if net.ParseIP(serverName) != nil {
		return errdefs.NewConfigurationf("server-name %q is an IP literal; a DNS name is required for NTS", serverName)
	}

	return nil
}
