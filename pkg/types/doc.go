// Package types defines the RDS entity model: the common envelope, the
// five entity kinds (Job, Dataset, Runtime, UserCode, CustomFunction),
// their Create and Update companion shapes, the job status transition
// table, and the per-kind field schemas the store uses for coercion.
package types
