package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a missing entity or resource.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a uid or unique-name collision.
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermission indicates the caller's role is insufficient.
	// Operations never downgrade on a permission failure.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidUpdate indicates an update whose uid or kind does not
	// match the target entity.
	ErrInvalidUpdate = errors.New("invalid update")

	// ErrTransportTimeout indicates an RPC request expired before a
	// response arrived. Callers may retry.
	ErrTransportTimeout = errors.New("transport timeout")

	// ErrRuntimeUnavailable indicates the execution runtime could not be
	// used (docker daemon down, image build failed, unsupported kind).
	ErrRuntimeUnavailable = errors.New("runtime unavailable")

	// ErrJobFailed indicates a job finished with a non-zero return code
	// or was demoted after ERROR-level log output.
	ErrJobFailed = errors.New("job failed")

	// ErrNotReady indicates a resource that will exist later does not
	// exist yet, e.g. logs of a job that has not run.
	ErrNotReady = errors.New("not ready")
)

// wire tokens, stable across the RPC boundary
const (
	tokenNotFound           = "not_found"
	tokenAlreadyExists      = "already_exists"
	tokenPermission         = "permission"
	tokenInvalidUpdate      = "invalid_update"
	tokenTransportTimeout   = "transport_timeout"
	tokenRuntimeUnavailable = "runtime_unavailable"
	tokenJobFailed          = "job_failed"
	tokenNotReady           = "not_ready"
	tokenInternal           = "internal"
)

var tokenToErr = map[string]error{
	tokenNotFound:           ErrNotFound,
	tokenAlreadyExists:      ErrAlreadyExists,
	tokenPermission:         ErrPermission,
	tokenInvalidUpdate:      ErrInvalidUpdate,
	tokenTransportTimeout:   ErrTransportTimeout,
	tokenRuntimeUnavailable: ErrRuntimeUnavailable,
	tokenJobFailed:          ErrJobFailed,
	tokenNotReady:           ErrNotReady,
}

// Token returns the wire token for err's kind, or "internal" when the
// error matches no known kind.
func Token(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return tokenNotFound
	case errors.Is(err, ErrAlreadyExists):
		return tokenAlreadyExists
	case errors.Is(err, ErrPermission):
		return tokenPermission
	case errors.Is(err, ErrInvalidUpdate):
		return tokenInvalidUpdate
	case errors.Is(err, ErrTransportTimeout):
		return tokenTransportTimeout
	case errors.Is(err, ErrRuntimeUnavailable):
		return tokenRuntimeUnavailable
	case errors.Is(err, ErrJobFailed):
		return tokenJobFailed
	case errors.Is(err, ErrNotReady):
		return tokenNotReady
	default:
		return tokenInternal
	}
}

// ToWire encodes err as "<token>: <message>" for the RPC response.
func ToWire(err error) string {
	return fmt.Sprintf("%s: %s", Token(err), err.Error())
}

// FromWire decodes a wire error string back into an error that matches
// the original sentinel under errors.Is.
func FromWire(s string) error {
	token, msg, found := strings.Cut(s, ": ")
	if !found {
		return errors.New(s)
	}
	sentinel, ok := tokenToErr[token]
	if !ok {
		return errors.New(msg)
	}
	if suffix := sentinel.Error(); strings.HasSuffix(msg, suffix) {
		prefix := strings.TrimSuffix(strings.TrimSuffix(msg, suffix), ": ")
		if prefix == "" {
			return sentinel
		}
		return fmt.Errorf("%s: %w", prefix, sentinel)
	}
	return fmt.Errorf("%s (%w)", msg, sentinel)
}
