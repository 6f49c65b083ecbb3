// Package store implements the typed persistent entity store: one YAML
// file per record in a kind-scoped directory, with equality filters,
// sorting, case-insensitive text search and schema-driven type coercion.
// Writes are serialised per record through a scoped file lock; reads are
// lock-free load-and-parse snapshots.
package store
