// Package server implements the Data Owner side of the control plane:
// one handler set per entity kind registered on the RPC mux, with the
// permission gate evaluated from the request identity before every
// operation. Entity mutations are serialised through the per-kind
// stores; runner failures are recorded onto Job records so the control
// plane stays responsive.
package server
