// Package client is the typed facade both parties use against a Data
// Owner's datasite: the Data Scientist submits code and inspects
// results through it, the Data Owner reviews, runs and shares through
// it. All record traffic goes over the RPC caller; file artifacts are
// read and written through the datasite layout.
package client
