// Package activities implements the Temporal activities behind the
// scanning, enrichment, and maintenance workflows.
package activities

import (
	"go.temporal.io/sdk/temporal"

	"github.com/resilmesh/casm/pkg/faults"
)

// appError converts a fault into a Temporal application error whose type is
// the fault kind, so workflow retry policies can match on kind names.
// Non-retryable kinds become non-retryable application errors outright.
func appError(err error) error {
	if err == nil {
		return nil
	}
	kind := faults.KindOf(err)
	if kind == "" {
		return err
	}
	if kind.Retryable() {
		return temporal.NewApplicationError(err.Error(), kind.String())
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), kind.String(), err)
}
