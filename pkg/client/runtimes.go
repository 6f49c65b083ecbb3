package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// RuntimeClient manages registered runtimes on the host datasite.
type RuntimeClient struct {
	client *Client
}

// Create registers a runtime. Re-registering an identical configuration
// returns the existing record. Owner only.
func (r *RuntimeClient) Create(ctx context.Context, c *types.RuntimeCreate) (*types.Runtime, error) {
	return call[*types.Runtime](ctx, r.client, types.KindRuntime, "create", c)
}

// Get fetches one runtime by its unique name.
func (r *RuntimeClient) Get(ctx context.Context, name string) (*types.Runtime, error) {
	return getOneByName[*types.Runtime](ctx, r.client, types.KindRuntime, name)
}

// GetByUID fetches one runtime by uid.
func (r *RuntimeClient) GetByUID(ctx context.Context, uid uuid.UUID) (*types.Runtime, error) {
	return getOne[*types.Runtime](ctx, r.client, types.KindRuntime, uid)
}

// GetAll lists runtimes.
func (r *RuntimeClient) GetAll(ctx context.Context, opts *ListOptions) ([]*types.Runtime, error) {
	return getAll[*types.Runtime](ctx, r.client, types.KindRuntime, opts)
}

// Update applies a partial update. Owner only.
func (r *RuntimeClient) Update(ctx context.Context, u *types.RuntimeUpdate) (*types.Runtime, error) {
	return call[*types.Runtime](ctx, r.client, types.KindRuntime, "update", u)
}

// Delete removes a runtime no job or dataset references. Owner only.
func (r *RuntimeClient) Delete(ctx context.Context, uid uuid.UUID) (bool, error) {
	return deleteOne(ctx, r.client, types.KindRuntime, &rpc.DeleteRequest{UID: uid})
}
