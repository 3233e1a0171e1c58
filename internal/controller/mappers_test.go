package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/lexfrei/chrony-operator/api/v1alpha1"
)

func mapperScheme(t *testing.T) *runtime.Scheme {
	t.Helper()

	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(v1alpha1.AddToScheme(scheme))

	return scheme
}

func secretObj(name, namespace string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}

func TestSecretToTimeServices(t *testing.T) {
	t.Parallel()

	referencing := &v1alpha1.TimeService{
		ObjectMeta: metav1.ObjectMeta{Name: "node-time", Namespace: "time-system"},
		Spec: v1alpha1.TimeServiceSpec{
			CertificatesSecretRef: &v1alpha1.SecretReference{Name: "delivered-certs"},
		},
	}

	unrelated := &v1alpha1.TimeService{
		ObjectMeta: metav1.ObjectMeta{Name: "other-time", Namespace: "time-system"},
		Spec: v1alpha1.TimeServiceSpec{
			NTSCertificates: "some-other-secret",
		},
	}

	fakeClient := fake.NewClientBuilder().
		WithScheme(mapperScheme(t)).
		WithObjects(referencing, unrelated).
		Build()

	r := &TimeServiceReconciler{Client: fakeClient}

	requests := r.secretToTimeServices(context.Background(), secretObj("delivered-certs", "time-system"))
	require.Len(t, requests, 1)
	assert.Equal(t, "node-time", requests[0].Name)
	assert.Equal(t, "time-system", requests[0].Namespace)
}

func TestSecretToTimeServices_FallbackReference(t *testing.T) {
	t.Parallel()

	ts := &v1alpha1.TimeService{
		ObjectMeta: metav1.ObjectMeta{Name: "node-time", Namespace: "time-system"},
		Spec: v1alpha1.TimeServiceSpec{
			NTSCertificates: "pki/shared-certs",
		},
	}

	fakeClient := fake.NewClientBuilder().
		WithScheme(mapperScheme(t)).
		WithObjects(ts).
		Build()

	r := &TimeServiceReconciler{Client: fakeClient}

	requests := r.secretToTimeServices(context.Background(), secretObj("shared-certs", "pki"))
	require.Len(t, requests, 1)
	assert.Equal(t, "node-time", requests[0].Name)
}

func TestSecretToTimeServices_NoMatch(t *testing.T) {
	t.Parallel()

	ts := &v1alpha1.TimeService{
		ObjectMeta: metav1.ObjectMeta{Name: "node-time", Namespace: "time-system"},
		Spec: v1alpha1.TimeServiceSpec{
			CertificatesSecretRef: &v1alpha1.SecretReference{Name: "delivered-certs"},
		},
	}

	fakeClient := fake.NewClientBuilder().
		WithScheme(mapperScheme(t)).
		WithObjects(ts).
		Build()

	r := &TimeServiceReconciler{Client: fakeClient}

	// Same name in a different namespace is a different Secret.
	requests := r.secretToTimeServices(context.Background(), secretObj("delivered-certs", "elsewhere"))
	assert.Empty(t, requests)
}

func TestSecretToTimeServices_NonSecretObject(t *testing.T) {
	t.Parallel()

	fakeClient := fake.NewClientBuilder().WithScheme(mapperScheme(t)).Build()
	r := &TimeServiceReconciler{Client: fakeClient}

	requests := r.secretToTimeServices(context.Background(), &corev1.ConfigMap{})
	assert.Empty(t, requests)
}
