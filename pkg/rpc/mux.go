package rpc

import (
	"fmt"
	"time"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/metrics"
)

// Handler processes one decoded request and returns the response body.
type Handler func(req *Request) (any, error)

// Mux routes requests to registered endpoint handlers. It is shared by
// the file server and the mock transport so both paths dispatch
// identically.
type Mux struct {
	handlers map[string]Handler
}

// NewMux returns an empty endpoint router.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

// Handle registers a handler for an endpoint. Registering twice is a
// programming error.
func (m *Mux) Handle(endpoint string, h Handler) {
	if _, dup := m.handlers[endpoint]; dup {
		panic(fmt.Sprintf("rpc: duplicate handler for endpoint %q", endpoint))
	}
	m.handlers[endpoint] = h
}

// Endpoints returns all registered endpoint names.
func (m *Mux) Endpoints() []string {
	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch runs the endpoint handler for req and wraps the outcome in a
// response envelope. Handler errors become error responses carrying
// their kind token; they never escape.
func (m *Mux) Dispatch(req *Request) *Response {
	started := time.Now()
	logger := log.WithEndpoint(req.Endpoint)

	h, ok := m.handlers[req.Endpoint]
	if !ok {
		metrics.RPCRequestsTotal.WithLabelValues(req.Endpoint, string(StatusError)).Inc()
		return errResponse(req.UID, fmt.Errorf("no endpoint %q: %w", req.Endpoint, errdefs.ErrNotFound))
	}

	body, err := h(req)
	metrics.RPCRequestDuration.WithLabelValues(req.Endpoint).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.RPCRequestsTotal.WithLabelValues(req.Endpoint, string(StatusError)).Inc()
		logger.Debug().Err(err).Str("sender", req.SenderEmail).Msg("request failed")
		return errResponse(req.UID, err)
	}
	metrics.RPCRequestsTotal.WithLabelValues(req.Endpoint, string(StatusOK)).Inc()
	return okResponse(req.UID, body)
}
