package rpc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
)

const (
	defaultExpiry = 30 * time.Second
	defaultPoll   = 100 * time.Millisecond
)

// Caller issues one RPC call and decodes the response body into out.
type Caller interface {
	Call(ctx context.Context, endpoint string, body any, out any) error
}

// FileTransport is the client side of the mailbox: it writes request
// files into the host datasite's endpoint directories and polls for the
// correlated response file until the request expires.
type FileTransport struct {
	layout datasite.Layout // the host (server owner) datasite
	sender string
	expiry time.Duration
	poll   time.Duration
}

// FileTransportOption adjusts transport timing.
type FileTransportOption func(*FileTransport)

// WithExpiry sets the request expiry.
func WithExpiry(d time.Duration) FileTransportOption {
	return func(t *FileTransport) { t.expiry = d }
}

// WithPollInterval sets the response poll interval.
func WithPollInterval(d time.Duration) FileTransportOption {
	return func(t *FileTransport) { t.poll = d }
}

// NewFileTransport builds a transport towards the host's mailbox. The
// sender identity is stamped on every request; the syncing filesystem
// attributes mailbox writes, so the server may trust it.
func NewFileTransport(layout datasite.Layout, sender string, opts ...FileTransportOption) *FileTransport {
	t := &FileTransport{
		layout: layout,
		sender: sender,
		expiry: defaultExpiry,
		poll:   defaultPoll,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call writes the request file and waits for the response. An elapsed
// expiry fails with the transport timeout kind; the stale response, if
// it ever arrives, is never applied.
func (t *FileTransport) Call(ctx context.Context, endpoint string, body any, out any) error {
	req, err := NewRequest(endpoint, body, t.sender, t.expiry)
	if err != nil {
		return err
	}

	dir := t.layout.EndpointDir(endpoint)
	reqPath := filepath.Join(dir, req.UID.String()+requestSuffix)
	respPath := filepath.Join(dir, req.UID.String()+responseSuffix)

	raw, err := yaml.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := datasite.WriteFileAtomic(reqPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			os.Remove(reqPath)
			return ctx.Err()
		case <-ticker.C:
			data, err := os.ReadFile(respPath)
			if os.IsNotExist(err) {
				if time.Now().After(req.ExpiresAt) {
					os.Remove(reqPath)
					return fmt.Errorf("no response for %s after %s: %w", endpoint, t.expiry, errdefs.ErrTransportTimeout)
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}
			var resp Response
			if err := yaml.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			os.Remove(respPath)
			return resp.Decode(out)
		}
	}
}

// MockTransport dispatches requests in-process against a server mux,
// bypassing the filesystem. Used in tests and by co-located clients.
type MockTransport struct {
	mux    *Mux
	sender string
	expiry time.Duration
}

// NewMockTransport builds an in-process transport with a fixed sender
// identity.
func NewMockTransport(mux *Mux, sender string) *MockTransport {
	return &MockTransport{mux: mux, sender: sender, expiry: defaultExpiry}
}

// Call dispatches synchronously through the mux.
func (t *MockTransport) Call(_ context.Context, endpoint string, body any, out any) error {
	req, err := NewRequest(endpoint, body, t.sender, t.expiry)
	if err != nil {
		return err
	}
	resp := t.mux.Dispatch(req)
	return resp.Decode(out)
}
