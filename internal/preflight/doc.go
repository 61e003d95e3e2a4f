// Package preflight checks that amanrag can serve retrievals before it is
// asked to.
//
// The package validates:
//   - Configuration converts into a retrieval configuration
//   - The corpus exists, loads and is not empty
//   - No import currently holds the corpus lock
//   - The configured embedder starts and matches the corpus dimensions
//   - Disk space next to the corpus
//   - The telemetry store, when configured, opens
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if preflight.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
