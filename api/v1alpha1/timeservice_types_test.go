package v1alpha1_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/chrony-operator/api/v1alpha1"
)

func TestNTSCertificateRefs(t *testing.T) {
	t.Parallel()

	spec := v1alpha1.TimeServiceSpec{
		NTSCertificates: "local-certs, pki/shared-certs ,, ",
	}

	refs := spec.NTSCertificateRefs()
	require.Len(t, refs, 2)

	assert.Equal(t, v1alpha1.SecretReference{Name: "local-certs"}, refs[0])
	assert.Equal(t, v1alpha1.SecretReference{Name: "shared-certs", Namespace: "pki"}, refs[1])
}

func TestNTSCertificateRefs_Empty(t *testing.T) {
	t.Parallel()

	spec := v1alpha1.TimeServiceSpec{}
	assert.Empty(t, spec.NTSCertificateRefs())
}

func TestNTSCertificateRefs_OrderPreserved(t *testing.T) {
	t.Parallel()

	spec := v1alpha1.TimeServiceSpec{NTSCertificates: "b,a,c"}

	refs := spec.NTSCertificateRefs()
	require.Len(t, refs, 3)
	assert.Equal(t, "b", refs[0].Name)
	assert.Equal(t, "a", refs[1].Name)
	assert.Equal(t, "c", refs[2].Name)
}

func TestReferencesSecret(t *testing.T) {
	t.Parallel()

	spec := v1alpha1.TimeServiceSpec{
		NTSCertificates:       "local-certs,pki/shared-certs",
		CertificatesSecretRef: &v1alpha1.SecretReference{Name: "delivered-certs"},
	}

	// Integration reference, namespace defaulted.
	assert.True(t, spec.ReferencesSecret("delivered-certs", "time-system", "time-system"))
	assert.False(t, spec.ReferencesSecret("delivered-certs", "elsewhere", "time-system"))

	// Fallback references, with and without explicit namespace.
	assert.True(t, spec.ReferencesSecret("local-certs", "time-system", "time-system"))
	assert.True(t, spec.ReferencesSecret("shared-certs", "pki", "time-system"))
	assert.False(t, spec.ReferencesSecret("shared-certs", "time-system", "time-system"))

	assert.False(t, spec.ReferencesSecret("unrelated", "time-system", "time-system"))
}

func TestDeepCopy(t *testing.T) {
	t.Parallel()

	original := &v1alpha1.TimeService{
		Spec: v1alpha1.TimeServiceSpec{
			Sources:               "ntp://ntp.ubuntu.com",
			CertificatesSecretRef: &v1alpha1.SecretReference{Name: "certs"},
		},
		Status: v1alpha1.TimeServiceStatus{
			Phase:    v1alpha1.PhaseActive,
			Tracking: &v1alpha1.TrackingStatus{Stratum: 2},
		},
	}

	clone := original.DeepCopy()
	require.Equal(t, original, clone)

	clone.Spec.CertificatesSecretRef.Name = "changed"
	clone.Status.Tracking.Stratum = 9

	assert.Equal(t, "certs", original.Spec.CertificatesSecretRef.Name)
	assert.Equal(t, 2, original.Status.Tracking.Stratum)
}
