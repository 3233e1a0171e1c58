package v1alpha1

import (
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// SecretReference is a reference to a Kubernetes Secret holding TLS material.
type SecretReference struct {
	// Name of the Secret.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`

	// Namespace of the Secret. Defaults to the namespace of the TimeService.
	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// TimeServiceSpec defines the desired state of TimeService.
type TimeServiceSpec struct {
	// ServerName is the DNS name this NTS server identifies as when serving
	// secure time. Must be a DNS name, not an IP literal.
	// +optional
	// +kubebuilder:validation:MaxLength=253
	ServerName string `json:"serverName,omitempty"`

	// Sources is a comma-separated list of time source URLs. Each entry uses
	// the ntp:// or nts:// scheme, e.g.
	// "ntp://ntp.ubuntu.com?iburst=true,nts://time.cloudflare.com".
	// An empty string means no time source is configured.
	// +optional
	Sources string `json:"sources,omitempty"`

	// NTSCertificates is a comma-separated list of secret references
	// ("name" or "namespace/name") holding TLS certificate/key pairs for
	// serving NTS. Used only when no certificate has been delivered through
	// CertificatesSecretRef. The first declared reference wins; its material
	// must be valid.
	// +optional
	NTSCertificates string `json:"ntsCertificates,omitempty"`

	// CertificatesSecretRef references a TLS Secret delivered by a
	// certificate provider. When the Secret exists and holds valid material
	// it takes precedence over NTSCertificates entirely.
	// +optional
	CertificatesSecretRef *SecretReference `json:"certificatesSecretRef,omitempty"`
}

// TimeServicePhase describes the coarse lifecycle state of the managed daemon.
type TimeServicePhase string

const (
	// PhaseUnconfigured means chrony is installed but no time source is
	// configured. This is a stable state, not an error.
	PhaseUnconfigured TimeServicePhase = "Unconfigured"
	// PhaseConfiguring means a configuration change is being applied.
	PhaseConfiguring TimeServicePhase = "Configuring"
	// PhaseActive means chronyd is running with at least one source.
	PhaseActive TimeServicePhase = "Active"
	// PhaseBlocked means the configuration is invalid and operator action is
	// required.
	PhaseBlocked TimeServicePhase = "Blocked"
	// PhaseWaiting means a dependency (secret, certificate) has not arrived
	// yet and the pass will be retried.
	PhaseWaiting TimeServicePhase = "Waiting"
)

// Condition types reported on TimeService.
const (
	// ConditionReady reports whether chronyd is active with the desired
	// configuration applied.
	ConditionReady = "Ready"
	// ConditionConfigured reports whether at least one time source is
	// configured.
	ConditionConfigured = "Configured"
)

// TrackingStatus is a summary of chronyd's live tracking report.
type TrackingStatus struct {
	// ReferenceID is the reference ID of the selected source.
	// +optional
	ReferenceID string `json:"referenceID,omitempty"`

	// ReferenceName is the name or address of the selected source.
	// +optional
	ReferenceName string `json:"referenceName,omitempty"`

	// Stratum of the local clock.
	// +optional
	Stratum int `json:"stratum,omitempty"`

	// OffsetSeconds is the estimated system clock offset, rendered as a
	// decimal string to avoid float truncation in the API server.
	// +optional
	OffsetSeconds string `json:"offsetSeconds,omitempty"`

	// LeapStatus is chronyd's leap status (Normal, Insert second, ...).
	// +optional
	LeapStatus string `json:"leapStatus,omitempty"`
}

// TimeServiceStatus defines the observed state of TimeService.
type TimeServiceStatus struct {
	// Phase is the coarse lifecycle state of the managed daemon.
	// +optional
	Phase TimeServicePhase `json:"phase,omitempty"`

	// Conditions describe the current state of the TimeService.
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// NTSEnabled reports whether secure transport directives are part of the
	// applied configuration.
	// +optional
	NTSEnabled bool `json:"ntsEnabled,omitempty"`

	// SourceCount is the number of configured time sources.
	// +optional
	SourceCount int `json:"sourceCount,omitempty"`

	// NTPPort is the UDP port the daemon serves time on.
	// +optional
	NTPPort int `json:"ntpPort,omitempty"`

	// Tracking is the last observed chronyd tracking summary. Cleared when
	// the daemon is inactive or the query fails; never stale.
	// +optional
	Tracking *TrackingStatus `json:"tracking,omitempty"`

	// ObservedGeneration is the spec generation last acted on.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=tsvc
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Sources",type=integer,JSONPath=`.status.sourceCount`
// +kubebuilder:printcolumn:name="NTS",type=boolean,JSONPath=`.status.ntsEnabled`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// TimeService is the Schema for the timeservices API. It declares the desired
// configuration of the chrony daemon on the managed host.
type TimeService struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   TimeServiceSpec   `json:"spec,omitempty"`
	Status TimeServiceStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// TimeServiceList contains a list of TimeService.
type TimeServiceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []TimeService `json:"items"`
}

//nolint:gochecknoinits // scheme registration
func init() {
	SchemeBuilder.Register(&TimeService{}, &TimeServiceList{})
}

// NTSCertificateRefs parses the comma-separated NTSCertificates field into
// SecretReferences in declared order. Entries use "name" or "namespace/name"
// form; whitespace around entries is trimmed and empty entries are skipped.
func (s *TimeServiceSpec) NTSCertificateRefs() []SecretReference {
	var refs []SecretReference

	for _, entry := range strings.Split(s.NTSCertificates, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		namespace, name, found := strings.Cut(entry, "/")
		if found {
			refs = append(refs, SecretReference{Name: name, Namespace: namespace})
		} else {
			refs = append(refs, SecretReference{Name: entry})
		}
	}

	return refs
}

// ReferencesSecret reports whether the spec references the given Secret,
// either as the integration certificate Secret or as one of the configured
// fallback references. An empty reference namespace matches defaultNamespace.
func (s *TimeServiceSpec) ReferencesSecret(name, namespace, defaultNamespace string) bool {
	match := func(ref SecretReference) bool {
		refNS := ref.Namespace
		if refNS == "" {
			refNS = defaultNamespace
		}

		return ref.Name == name && refNS == namespace
	}

	if s.CertificatesSecretRef != nil && match(*s.CertificatesSecretRef) {
		return true
	}

	for _, ref := range s.NTSCertificateRefs() {
		if match(ref) {
			return true
		}
	}

	return false
}
