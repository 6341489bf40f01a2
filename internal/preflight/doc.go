// Package preflight checks that docqa can run in the current environment
// before the user relies on it.
//
// The package validates:
//   - Disk space available for the data directory (minimum 100MB)
//   - Write permissions in the data directory
//   - File descriptor limits (minimum 1024)
//   - The documents folder and how many PDFs it holds
//   - The persisted index: readable, consistent, built with the configured embedder
//   - Embedder reachability
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(cfg, preflight.WithEmbedder(e))
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
