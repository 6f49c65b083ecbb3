package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/permission"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

func (a *App) registerDatasetEndpoints() {
	a.Mux.Handle(rpc.Endpoint(types.KindDataset, "create"), a.handleDatasetCreate)
	a.Mux.Handle(rpc.Endpoint(types.KindDataset, "get_one"), a.handleDatasetGetOne)
	a.Mux.Handle(rpc.Endpoint(types.KindDataset, "get_all"), a.handleDatasetGetAll)
	a.Mux.Handle(rpc.Endpoint(types.KindDataset, "update"), a.handleDatasetUpdate)
	a.Mux.Handle(rpc.Endpoint(types.KindDataset, "delete"), a.handleDatasetDelete)
}

func (a *App) handleDatasetCreate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindDataset, permission.OpCreate); err != nil {
		return nil, err
	}
	var c types.DatasetCreate
	if err := req.Decode(&c); err != nil {
		return nil, err
	}
	if err := a.validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid dataset create: %s: %w", err, errdefs.ErrInvalidUpdate)
	}

	existing, err := a.Datasets.GetAll(byName(c.Name))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("dataset %q: %w", c.Name, errdefs.ErrAlreadyExists)
	}

	if _, err := os.Stat(c.MockPath); err != nil {
		return nil, fmt.Errorf("mock path %s: %w", c.MockPath, errdefs.ErrNotFound)
	}
	if _, err := os.Stat(c.PrivatePath); err != nil {
		return nil, fmt.Errorf("private path %s: %w", c.PrivatePath, errdefs.ErrNotFound)
	}
	if c.RuntimeID != nil {
		if _, err := a.Runtimes.GetByUID(*c.RuntimeID); err != nil {
			return nil, fmt.Errorf("runtime %s: %w", c.RuntimeID, err)
		}
	}

	mockDir := a.Layout.MockDatasetDir(c.Name)
	privateDir := a.Layout.PrivateDatasetDir(c.Name)
	cleanup := func() {
		os.RemoveAll(mockDir)
		os.RemoveAll(privateDir)
	}

	if err := copyPath(c.MockPath, mockDir); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to stage mock data: %w", err)
	}
	if err := copyPath(c.PrivatePath, privateDir); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to stage private data: %w", err)
	}
	if c.ReadmePath != "" {
		if err := datasite.CopyFile(c.ReadmePath, filepath.Join(mockDir, "README.md")); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to stage readme: %w", err)
		}
	}

	ds := c.ToEntity(req.SenderEmail)
	ds.MockURL = a.Layout.MockDatasetURL(c.Name)
	ds.PrivateURL = a.Layout.PrivateDatasetURL(c.Name)
	ds.Schema = inferSchema(mockDir)

	created, err := a.Datasets.Create(ds)
	if err != nil {
		cleanup()
		return nil, err
	}
	logger := log.WithDataset(created.Name)
	logger.Info().Msg("dataset published")
	return created, nil
}

// getDataset resolves by uid when set, by unique name otherwise.
func (a *App) getDataset(q *rpc.GetOneRequest) (*types.Dataset, error) {
	if q.UID != uuid.Nil {
		return a.Datasets.GetByUID(q.UID)
	}
	matches, err := a.Datasets.GetAll(byName(q.Name))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("dataset %q: %w", q.Name, errdefs.ErrNotFound)
	}
	return matches[0], nil
}

func (a *App) handleDatasetGetOne(req *rpc.Request) (any, error) {
	var q rpc.GetOneRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	ds, err := a.getDataset(&q)
	if err != nil {
		return nil, err
	}
	if a.roleFor(req) != permission.RoleAdmin {
		ds = ds.Redacted()
	}
	return ds, nil
}

func (a *App) handleDatasetGetAll(req *rpc.Request) (any, error) {
	var q rpc.GetAllRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	datasets, err := a.Datasets.GetAll(storeQuery(&q))
	if err != nil {
		return nil, err
	}
	if a.roleFor(req) != permission.RoleAdmin {
		for i, ds := range datasets {
			datasets[i] = ds.Redacted()
		}
	}
	return datasets, nil
}

func (a *App) handleDatasetUpdate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindDataset, permission.OpUpdate); err != nil {
		return nil, err
	}
	var u types.DatasetUpdate
	if err := req.Decode(&u); err != nil {
		return nil, err
	}
	if u.RuntimeID != nil {
		if _, err := a.Runtimes.GetByUID(*u.RuntimeID); err != nil {
			return nil, fmt.Errorf("runtime %s: %w", u.RuntimeID, err)
		}
	}
	return a.Datasets.Update(u.UID, func(current *types.Dataset) (*types.Dataset, error) {
		return current.ApplyUpdate(&u, false)
	})
}

func (a *App) handleDatasetDelete(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindDataset, permission.OpDelete); err != nil {
		return nil, err
	}
	var d rpc.DeleteRequest
	if err := req.Decode(&d); err != nil {
		return nil, err
	}
	ds, err := a.Datasets.GetByUID(d.UID)
	if errors.Is(err, errdefs.ErrNotFound) {
		return &rpc.DeleteResponse{Deleted: false}, nil
	}
	if err != nil {
		return nil, err
	}
	deleted, err := a.Datasets.Delete(ds.UID)
	if err != nil {
		return nil, err
	}
	if deleted {
		// Both trees go with the record.
		os.RemoveAll(a.Layout.MockDatasetDir(ds.Name))
		os.RemoveAll(a.Layout.PrivateDatasetDir(ds.Name))
		logger := log.WithDataset(ds.Name)
		logger.Info().Msg("dataset removed")
	}
	return &rpc.DeleteResponse{Deleted: deleted}, nil
}

// copyPath stages a source file or directory under dst. A single file
// keeps its basename inside the new directory.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return datasite.CopyDir(src, dst)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	return datasite.CopyFile(src, filepath.Join(dst, filepath.Base(src)))
}
