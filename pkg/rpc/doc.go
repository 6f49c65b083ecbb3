// Package rpc implements synchronous request/response over a shared
// filesystem acting as a mailbox. A request is an atomically written
// file under the owner's datasite; the server watches for new request
// files, dispatches them, and writes a response file whose name
// correlates with the request uid. Delivery is at-least-once; a bbolt
// ledger suppresses duplicates, and expired requests are dropped
// silently. A mock transport dispatches in-process for tests and
// co-located clients.
package rpc
