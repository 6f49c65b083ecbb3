package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
)

type echoBody struct {
	Value string `yaml:"value"`
}

func newEchoMux(t *testing.T) *Mux {
	t.Helper()
	mux := NewMux()
	mux.Handle("echo", func(req *Request) (any, error) {
		var b echoBody
		if err := req.Decode(&b); err != nil {
			return nil, err
		}
		return &echoBody{Value: b.Value + "!"}, nil
	})
	mux.Handle("whoami", func(req *Request) (any, error) {
		return &echoBody{Value: req.SenderEmail}, nil
	})
	mux.Handle("boom", func(req *Request) (any, error) {
		return nil, fmt.Errorf("record 42: %w", errdefs.ErrNotFound)
	})
	return mux
}

func TestMockTransportRoundTrip(t *testing.T) {
	tr := NewMockTransport(newEchoMux(t), "ds@x")

	var out echoBody
	err := tr.Call(context.Background(), "echo", &echoBody{Value: "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi!", out.Value)
}

func TestTransportStampsSender(t *testing.T) {
	tr := NewMockTransport(newEchoMux(t), "ds@x")

	var out echoBody
	require.NoError(t, tr.Call(context.Background(), "whoami", nil, &out))
	assert.Equal(t, "ds@x", out.Value)
}

func TestErrorKindSurvivesTransport(t *testing.T) {
	tr := NewMockTransport(newEchoMux(t), "ds@x")

	err := tr.Call(context.Background(), "boom", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
	assert.Contains(t, err.Error(), "record 42")
}

func TestUnknownEndpoint(t *testing.T) {
	tr := NewMockTransport(newEchoMux(t), "ds@x")

	err := tr.Call(context.Background(), "no/such", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
}

func TestRequestExpiry(t *testing.T) {
	req, err := NewRequest("echo", nil, "ds@x", 10*time.Millisecond)
	require.NoError(t, err)

	assert.False(t, req.Expired(time.Now()))
	assert.True(t, req.Expired(time.Now().Add(time.Second)))
}

func TestLedgerDeduplicates(t *testing.T) {
	ledger, err := OpenLedger(t.TempDir())
	require.NoError(t, err)
	defer ledger.Close()

	uid := uuid.New()
	isNew, err := ledger.MarkSeen(uid)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = ledger.MarkSeen(uid)
	require.NoError(t, err)
	assert.False(t, isNew, "second delivery of the same request is not new")

	isNew, err = ledger.MarkSeen(uuid.New())
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestFileTransportAgainstServer(t *testing.T) {
	layout := datasite.NewLayout(t.TempDir(), "do@x")

	srv, err := NewServer(ServerConfig{Layout: layout, Rescan: 50 * time.Millisecond}, newEchoMux(t))
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	tr := NewFileTransport(layout, "ds@x", WithExpiry(5*time.Second), WithPollInterval(10*time.Millisecond))

	var out echoBody
	err = tr.Call(context.Background(), "echo", &echoBody{Value: "over files"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "over files!", out.Value)

	// Error kinds survive the file mailbox too.
	err = tr.Call(context.Background(), "boom", nil, nil)
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
}

func TestFileTransportTimeout(t *testing.T) {
	layout := datasite.NewLayout(t.TempDir(), "do@x")

	// No server answering.
	tr := NewFileTransport(layout, "ds@x",
		WithExpiry(100*time.Millisecond), WithPollInterval(10*time.Millisecond))

	err := tr.Call(context.Background(), "echo", &echoBody{Value: "x"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrTransportTimeout))
}

func TestEndpointNaming(t *testing.T) {
	assert.Equal(t, "job/create", Endpoint("job", "create"))
}
