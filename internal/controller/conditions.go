package controller

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/lexfrei/chrony-operator/api/v1alpha1"
)

// Condition reasons reported on TimeService.
const (
	ReasonSourcesConfigured = "SourcesConfigured"
	ReasonNoSources         = "NoSources"
	ReasonDaemonActive      = "DaemonActive"
	ReasonDaemonInactive    = "DaemonInactive"
	ReasonInvalidSources    = "InvalidSources"
	ReasonInvalidServerName = "InvalidServerName"
	ReasonInvalidCerts      = "InvalidCertificates"
	ReasonAwaitingCerts     = "AwaitingCertificates"
	ReasonDaemonTooOld      = "DaemonTooOld"

	// maxConditionMessageLength is the maximum length for condition messages.
	maxConditionMessageLength = 256
)

// setCondition upserts a condition on the TimeService, truncating overly long
// messages so status updates never exceed API server limits.
func setCondition(
	ts *v1alpha1.TimeService,
	condType string,
	status metav1.ConditionStatus,
	reason, message string,
) {
	if len(message) > maxConditionMessageLength {
		message = message[:maxConditionMessageLength-3] + "..."
	}

	meta.SetStatusCondition(&ts.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             status,
		ObservedGeneration: ts.Generation,
		Reason:             reason,
		Message:            message,
	})
}

// setConfiguredCondition reports whether at least one time source is configured.
func setConfiguredCondition(ts *v1alpha1.TimeService, sourceCount int) {
	if sourceCount > 0 {
		setCondition(ts, v1alpha1.ConditionConfigured, metav1.ConditionTrue,
			ReasonSourcesConfigured, "At least one time source is configured")

		return
	}

	setCondition(ts, v1alpha1.ConditionConfigured, metav1.ConditionFalse,
		ReasonNoSources, "No time source is configured")
}
