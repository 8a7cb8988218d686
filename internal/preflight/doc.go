// Package preflight provides system validation and pre-flight checks to
// ensure codanna can run successfully before starting an index or serve
// operation.
//
// The package validates:
//   - Disk space availability (minimum 100MB)
//   - Memory availability (minimum 1GB, compared against a fixed 4GB
//     estimate; system memory is not measured)
//   - Write permissions in the project directory
//   - File descriptor limits (minimum 1024)
//   - Embedder reachability (Ollama host, when configured)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, "/path/to/project")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
