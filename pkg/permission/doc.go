// Package permission derives the caller's role from the request
// identity and decides per-operation authorization. A failed check
// fails with the permission error kind and never silently downgrades
// the operation.
package permission
