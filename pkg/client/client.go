package client

import (
	"context"
	"fmt"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/rpc"
)

// Config wires a client to one host datasite.
type Config struct {
	// Root is the local path of the shared datasite tree.
	Root string
	// Host is the Data Owner email whose datasite is addressed.
	Host string
	// Email is the caller's own identity.
	Email string
	// Transport overrides the default file transport. Tests and
	// co-located clients inject an in-process transport here.
	Transport rpc.Caller
}

// Client is the per-datasite facade. The sub-clients share one caller
// and one layout.
type Client struct {
	cfg    Config
	layout datasite.Layout
	caller rpc.Caller

	Jobs            *JobClient
	Datasets        *DatasetClient
	Runtimes        *RuntimeClient
	UserCode        *UserCodeClient
	CustomFunctions *CustomFunctionClient
}

// New builds a client for the host datasite.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("client config needs a host")
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("client config needs a caller email")
	}
	layout := datasite.NewLayout(cfg.Root, cfg.Host)
	caller := cfg.Transport
	if caller == nil {
		caller = rpc.NewFileTransport(layout, cfg.Email)
	}
	c := &Client{cfg: cfg, layout: layout, caller: caller}
	c.Jobs = &JobClient{client: c}
	c.Datasets = &DatasetClient{client: c}
	c.Runtimes = &RuntimeClient{client: c}
	c.UserCode = &UserCodeClient{client: c}
	c.CustomFunctions = &CustomFunctionClient{client: c}
	return c, nil
}

// Host returns the addressed Data Owner email.
func (c *Client) Host() string { return c.cfg.Host }

// Email returns the caller identity.
func (c *Client) Email() string { return c.cfg.Email }

// IsAdmin reports whether the caller owns the host datasite.
func (c *Client) IsAdmin() bool { return c.cfg.Email == c.cfg.Host }

// Layout exposes the host datasite layout for artifact access.
func (c *Client) Layout() datasite.Layout { return c.layout }

// Health probes the host's RPC server.
func (c *Client) Health(ctx context.Context) (*rpc.HealthResponse, error) {
	var out rpc.HealthResponse
	if err := c.caller.Call(ctx, rpc.HealthEndpoint, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
