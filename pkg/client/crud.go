package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// Filters are client-side equality filters, coerced server-side against
// the entity schema.
type Filters map[string]string

// ListOptions pages and orders get_all calls.
type ListOptions struct {
	Limit     int
	Offset    int
	OrderBy   string
	SortOrder string
	Filters   Filters
}

func (o *ListOptions) wire() *rpc.GetAllRequest {
	if o == nil {
		return &rpc.GetAllRequest{}
	}
	return &rpc.GetAllRequest{
		Limit:     o.Limit,
		Offset:    o.Offset,
		OrderBy:   o.OrderBy,
		SortOrder: o.SortOrder,
		Filters:   o.Filters,
	}
}

// call wraps the endpoint naming for one entity kind.
func call[T any](ctx context.Context, c *Client, kind types.Kind, op string, body any) (T, error) {
	var out T
	err := c.caller.Call(ctx, rpc.Endpoint(kind, op), body, &out)
	return out, err
}

func getOne[T any](ctx context.Context, c *Client, kind types.Kind, uid uuid.UUID) (T, error) {
	return call[T](ctx, c, kind, "get_one", &rpc.GetOneRequest{UID: uid})
}

func getOneByName[T any](ctx context.Context, c *Client, kind types.Kind, name string) (T, error) {
	return call[T](ctx, c, kind, "get_one", &rpc.GetOneRequest{Name: name})
}

func getAll[T any](ctx context.Context, c *Client, kind types.Kind, opts *ListOptions) ([]T, error) {
	return call[[]T](ctx, c, kind, "get_all", opts.wire())
}

func deleteOne(ctx context.Context, c *Client, kind types.Kind, req *rpc.DeleteRequest) (bool, error) {
	out, err := call[rpc.DeleteResponse](ctx, c, kind, "delete", req)
	if err != nil {
		return false, err
	}
	return out.Deleted, nil
}
