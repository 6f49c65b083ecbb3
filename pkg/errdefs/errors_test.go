package errdefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenForWrappedErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		token string
	}{
		{"bare not found", ErrNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("job abc: %w", ErrNotFound), "not_found"},
		{"permission", fmt.Errorf("nope: %w", ErrPermission), "permission"},
		{"invalid update", ErrInvalidUpdate, "invalid_update"},
		{"transport timeout", ErrTransportTimeout, "transport_timeout"},
		{"runtime unavailable", ErrRuntimeUnavailable, "runtime_unavailable"},
		{"unknown kind", errors.New("kaboom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.token, Token(tt.err))
		})
	}
}

func TestWireRoundTrip(t *testing.T) {
	orig := fmt.Errorf("job 42: %w", ErrNotFound)
	back := FromWire(ToWire(orig))

	require.Error(t, back)
	assert.True(t, errors.Is(back, ErrNotFound), "kind survives the wire")
	assert.Contains(t, back.Error(), "job 42")
}

func TestWireRoundTripBareSentinel(t *testing.T) {
	back := FromWire(ToWire(ErrPermission))
	assert.True(t, errors.Is(back, ErrPermission))
}

func TestWireRoundTripEveryKind(t *testing.T) {
	for _, sentinel := range []error{
		ErrNotFound, ErrAlreadyExists, ErrPermission, ErrInvalidUpdate,
		ErrTransportTimeout, ErrRuntimeUnavailable, ErrJobFailed, ErrNotReady,
	} {
		wrapped := fmt.Errorf("context: %w", sentinel)
		assert.True(t, errors.Is(FromWire(ToWire(wrapped)), sentinel), sentinel.Error())
	}
}

func TestFromWireUnknownToken(t *testing.T) {
	err := FromWire("weird_token: something happened")
	require.Error(t, err)
	assert.Equal(t, "internal", Token(err))
}

func TestFromWireNoToken(t *testing.T) {
	err := FromWire("just text")
	require.Error(t, err)
	assert.Equal(t, "just text", err.Error())
}
