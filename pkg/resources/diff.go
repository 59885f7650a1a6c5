package resources

import (
	"github.com/banzaicloud/k8s-objectmatcher/patch"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// hasDrifted reports whether desired differs from current in any field that
// matters for reconciliation, using a strategic-merge-patch diff instead of
// a hand-rolled field-by-field comparison. This is how idempotence (P1) is
// kept cheap: a reconcile that changes nothing issues no write and never
// bumps resourceVersion.
func hasDrifted(current, desired client.Object) (bool, error) {
	result, err := patch.DefaultPatchMaker.Calculate(current, desired, patch.IgnoreStatusFields())
	if err != nil {
		return false, err
	}
	return !result.IsEmpty(), nil
}

// annotateLastApplied records desired's configuration as the last-applied
// annotation so the next reconcile's patch calculation has a baseline to
// diff against.
func annotateLastApplied(obj client.Object) error {
	return patch.DefaultAnnotator.SetLastAppliedAnnotation(obj)
}
