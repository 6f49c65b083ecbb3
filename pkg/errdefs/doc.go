// Package errdefs defines the error kinds shared by all RDS surfaces.
// Callers classify failures with errors.Is against the sentinel values
// and wrap them with fmt.Errorf("...: %w", ...) for context.
package errdefs
