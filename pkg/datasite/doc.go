// Package datasite knows the on-disk layout of a synced datasite tree:
// where mock and private dataset copies live, where entity records and
// job artifacts are kept, where the RPC mailbox sits, and how syft://
// URLs map to local paths.
package datasite
