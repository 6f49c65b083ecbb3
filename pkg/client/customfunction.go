package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// CustomFunctionClient manages owner-published reusable functions.
type CustomFunctionClient struct {
	client *Client
}

// CustomFunctionCreateParams describes one custom function publication.
type CustomFunctionCreateParams struct {
	Name           string
	Description    string
	Tags           []string
	CodePath       string
	Entrypoint     string
	ReadmeFilename string
}

// Create packages and publishes a custom function. Owner only.
func (f *CustomFunctionClient) Create(ctx context.Context, p CustomFunctionCreateParams) (*types.CustomFunction, error) {
	zipped, err := datasite.ZipPath(p.CodePath)
	if err != nil {
		return nil, err
	}
	return call[*types.CustomFunction](ctx, f.client, types.KindCustomFunction, "create", &types.CustomFunctionCreate{
		Name:           p.Name,
		Description:    p.Description,
		Tags:           p.Tags,
		Entrypoint:     p.Entrypoint,
		ReadmeFilename: p.ReadmeFilename,
		FilesZipped:    zipped,
	})
}

// Get fetches one custom function by uid.
func (f *CustomFunctionClient) Get(ctx context.Context, uid uuid.UUID) (*types.CustomFunction, error) {
	return getOne[*types.CustomFunction](ctx, f.client, types.KindCustomFunction, uid)
}

// GetAll lists custom functions.
func (f *CustomFunctionClient) GetAll(ctx context.Context, opts *ListOptions) ([]*types.CustomFunction, error) {
	return getAll[*types.CustomFunction](ctx, f.client, types.KindCustomFunction, opts)
}

// Delete removes a custom function and its tree. Owner only.
func (f *CustomFunctionClient) Delete(ctx context.Context, uid uuid.UUID) (bool, error) {
	return deleteOne(ctx, f.client, types.KindCustomFunction, &rpc.DeleteRequest{UID: uid})
}
