package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// DatasetClient manages datasets on the host datasite. Guests see
// redacted records with no private location.
type DatasetClient struct {
	client *Client
}

// Create publishes a dataset from local mock and private source paths.
// Owner only.
func (d *DatasetClient) Create(ctx context.Context, c *types.DatasetCreate) (*types.Dataset, error) {
	return call[*types.Dataset](ctx, d.client, types.KindDataset, "create", c)
}

// Get fetches one dataset by its unique name.
func (d *DatasetClient) Get(ctx context.Context, name string) (*types.Dataset, error) {
	return getOneByName[*types.Dataset](ctx, d.client, types.KindDataset, name)
}

// GetByUID fetches one dataset by uid.
func (d *DatasetClient) GetByUID(ctx context.Context, uid uuid.UUID) (*types.Dataset, error) {
	return getOne[*types.Dataset](ctx, d.client, types.KindDataset, uid)
}

// GetAll lists datasets.
func (d *DatasetClient) GetAll(ctx context.Context, opts *ListOptions) ([]*types.Dataset, error) {
	return getAll[*types.Dataset](ctx, d.client, types.KindDataset, opts)
}

// Update applies a partial update. Owner only.
func (d *DatasetClient) Update(ctx context.Context, u *types.DatasetUpdate) (*types.Dataset, error) {
	return call[*types.Dataset](ctx, d.client, types.KindDataset, "update", u)
}

// Delete removes the record and both data trees. Owner only.
func (d *DatasetClient) Delete(ctx context.Context, uid uuid.UUID) (bool, error) {
	return deleteOne(ctx, d.client, types.KindDataset, &rpc.DeleteRequest{UID: uid})
}

// MockPath resolves the dataset's world-readable mock tree on disk.
func (d *DatasetClient) MockPath(ds *types.Dataset) (string, error) {
	return d.client.layout.URLToPath(ds.MockURL)
}
