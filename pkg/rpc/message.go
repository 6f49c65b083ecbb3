package rpc

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// Endpoint builds the wire endpoint name for a kind and operation,
// e.g. "job/create".
func Endpoint(kind types.Kind, op string) string {
	return string(kind) + "/" + op
}

// HealthEndpoint is the liveness probe endpoint.
const HealthEndpoint = "health"

// ResponseStatus is the outcome marker of a response.
type ResponseStatus string

const (
	StatusOK    ResponseStatus = "ok"
	StatusError ResponseStatus = "error"
)

// Request is the wire envelope of one RPC call. SenderEmail is stamped
// by the datasite filesystem that owns the mailbox; it is not
// user-controlled and is the sole authentication input.
type Request struct {
	UID         uuid.UUID `yaml:"uid"`
	Endpoint    string    `yaml:"endpoint"`
	Body        []byte    `yaml:"body,omitempty"`
	SenderEmail string    `yaml:"sender_email"`
	SentAt      time.Time `yaml:"sent_at"`
	ExpiresAt   time.Time `yaml:"expires_at"`
}

// NewRequest builds a request with a serialized body and expiry.
func NewRequest(endpoint string, body any, sender string, expiry time.Duration) (*Request, error) {
	raw, err := yaml.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	now := time.Now().UTC()
	return &Request{
		UID:         uuid.New(),
		Endpoint:    endpoint,
		Body:        raw,
		SenderEmail: sender,
		SentAt:      now,
		ExpiresAt:   now.Add(expiry),
	}, nil
}

// Expired reports whether the request's expiry has elapsed.
func (r *Request) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Decode unmarshals the request body into out.
func (r *Request) Decode(out any) error {
	if err := yaml.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// Response is the wire envelope mirrored back for one request.
type Response struct {
	UID    uuid.UUID      `yaml:"uid"`
	Status ResponseStatus `yaml:"status"`
	Body   []byte         `yaml:"body,omitempty"`
	Error  string         `yaml:"error,omitempty"`
}

// okResponse serializes a handler result.
func okResponse(uid uuid.UUID, body any) *Response {
	raw, err := yaml.Marshal(body)
	if err != nil {
		return errResponse(uid, fmt.Errorf("failed to marshal response body: %w", err))
	}
	return &Response{UID: uid, Status: StatusOK, Body: raw}
}

// errResponse encodes a handler failure with its error kind token.
func errResponse(uid uuid.UUID, err error) *Response {
	return &Response{UID: uid, Status: StatusError, Error: errdefs.ToWire(err)}
}

// Decode unmarshals the response body into out, rehydrating the error
// kind on failure responses.
func (r *Response) Decode(out any) error {
	if r.Status == StatusError {
		return errdefs.FromWire(r.Error)
	}
	if out == nil {
		return nil
	}
	if err := yaml.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// GetOneRequest fetches a single record by uid, or by name for kinds
// whose names are unique (datasets, runtimes).
type GetOneRequest struct {
	UID  uuid.UUID `yaml:"uid,omitempty"`
	Name string    `yaml:"name,omitempty"`
}

// GetAllRequest lists records with paging, ordering and equality
// filters. Filter values travel as strings and are coerced server-side.
type GetAllRequest struct {
	Limit     int               `yaml:"limit,omitempty"`
	Offset    int               `yaml:"offset,omitempty"`
	OrderBy   string            `yaml:"order_by,omitempty"`
	SortOrder string            `yaml:"sort_order,omitempty"`
	Filters   map[string]string `yaml:"filters,omitempty"`
}

// DeleteRequest removes one record. DeleteOrphanedUserCode applies to
// jobs only.
type DeleteRequest struct {
	UID                    uuid.UUID `yaml:"uid"`
	DeleteOrphanedUserCode bool      `yaml:"delete_orphaned_user_code,omitempty"`
}

// DeleteResponse reports whether the record existed.
type DeleteResponse struct {
	Deleted bool `yaml:"deleted"`
}

// DeleteAllRequest removes all records matching the filters.
type DeleteAllRequest struct {
	Filters                map[string]string `yaml:"filters,omitempty"`
	DeleteOrphanedUserCode bool              `yaml:"delete_orphaned_user_code,omitempty"`
}

// DeleteAllResponse reports how many records were removed.
type DeleteAllResponse struct {
	Count int `yaml:"count"`
}

// HealthResponse answers the health endpoint.
type HealthResponse struct {
	App     string `yaml:"app"`
	Version string `yaml:"version"`
	Owner   string `yaml:"owner"`
	Status  string `yaml:"status"`
}
