package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// UserCodeClient reads and manages submitted code bundles.
type UserCodeClient struct {
	client *Client
}

// Get fetches one code bundle record by uid.
func (u *UserCodeClient) Get(ctx context.Context, uid uuid.UUID) (*types.UserCode, error) {
	return getOne[*types.UserCode](ctx, u.client, types.KindUserCode, uid)
}

// GetAll lists code bundle records.
func (u *UserCodeClient) GetAll(ctx context.Context, opts *ListOptions) ([]*types.UserCode, error) {
	return getAll[*types.UserCode](ctx, u.client, types.KindUserCode, opts)
}

// Delete removes a code bundle record and its unpacked tree. Owner only.
func (u *UserCodeClient) Delete(ctx context.Context, uid uuid.UUID) (bool, error) {
	return deleteOne(ctx, u.client, types.KindUserCode, &rpc.DeleteRequest{UID: uid})
}
