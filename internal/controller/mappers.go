package controller

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/lexfrei/chrony-operator/api/v1alpha1"
)

// secretToTimeServices maps a Secret event to the TimeServices referencing it,
// so certificate delivery or rotation triggers a reconciliation without
// waiting for the periodic requeue.
func (r *TimeServiceReconciler) secretToTimeServices(
	ctx context.Context,
	obj client.Object,
) []reconcile.Request {
	secret, ok := obj.(*corev1.Secret)
	if !ok {
		return nil
	}

	var list v1alpha1.TimeServiceList

	err := r.List(ctx, &list)
	if err != nil {
		return nil
	}

	var requests []reconcile.Request

	for i := range list.Items {
		ts := &list.Items[i]

		if ts.Spec.ReferencesSecret(secret.Name, secret.Namespace, ts.Namespace) {
			requests = append(requests, reconcile.Request{
				NamespacedName: types.NamespacedName{Name: ts.Name, Namespace: ts.Namespace},
			})
		}
	}

	return requests
}
