// Package metrics exposes Prometheus collectors for the RPC server and
// the job runner.
package metrics
