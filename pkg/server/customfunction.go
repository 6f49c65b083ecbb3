package server

import (
	"errors"
	"fmt"
	"os"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/permission"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

func (a *App) registerCustomFunctionEndpoints() {
	a.Mux.Handle(rpc.Endpoint(types.KindCustomFunction, "create"), a.handleCustomFunctionCreate)
	a.Mux.Handle(rpc.Endpoint(types.KindCustomFunction, "get_one"), a.handleCustomFunctionGetOne)
	a.Mux.Handle(rpc.Endpoint(types.KindCustomFunction, "get_all"), a.handleCustomFunctionGetAll)
	a.Mux.Handle(rpc.Endpoint(types.KindCustomFunction, "update"), a.handleCustomFunctionUpdate)
	a.Mux.Handle(rpc.Endpoint(types.KindCustomFunction, "delete"), a.handleCustomFunctionDelete)
}

func (a *App) handleCustomFunctionCreate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindCustomFunction, permission.OpCreate); err != nil {
		return nil, err
	}
	var c types.CustomFunctionCreate
	if err := req.Decode(&c); err != nil {
		return nil, err
	}
	if err := a.validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid custom function create: %s: %w", err, errdefs.ErrInvalidUpdate)
	}

	fn := c.ToEntity(req.SenderEmail)
	dir := a.Layout.CustomFunctionDir(fn.UID)
	if len(c.FilesZipped) > 0 {
		if err := datasite.Unzip(c.FilesZipped, dir); err != nil {
			return nil, fmt.Errorf("failed to unpack custom function bundle: %w", err)
		}
		fn.LocalDir = dir
	}

	created, err := a.CustomFunctions.Create(fn)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return created, nil
}

func (a *App) handleCustomFunctionGetOne(req *rpc.Request) (any, error) {
	var q rpc.GetOneRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	return a.CustomFunctions.GetByUID(q.UID)
}

func (a *App) handleCustomFunctionGetAll(req *rpc.Request) (any, error) {
	var q rpc.GetAllRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	return a.CustomFunctions.GetAll(storeQuery(&q))
}

func (a *App) handleCustomFunctionUpdate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindCustomFunction, permission.OpUpdate); err != nil {
		return nil, err
	}
	var u types.CustomFunctionUpdate
	if err := req.Decode(&u); err != nil {
		return nil, err
	}
	return a.CustomFunctions.Update(u.UID, func(current *types.CustomFunction) (*types.CustomFunction, error) {
		return current.ApplyUpdate(&u, false)
	})
}

func (a *App) handleCustomFunctionDelete(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindCustomFunction, permission.OpDelete); err != nil {
		return nil, err
	}
	var d rpc.DeleteRequest
	if err := req.Decode(&d); err != nil {
		return nil, err
	}
	fn, err := a.CustomFunctions.GetByUID(d.UID)
	if errors.Is(err, errdefs.ErrNotFound) {
		return &rpc.DeleteResponse{Deleted: false}, nil
	}
	if err != nil {
		return nil, err
	}
	deleted, err := a.CustomFunctions.Delete(fn.UID)
	if err != nil {
		return nil, err
	}
	if deleted && fn.LocalDir != "" {
		os.RemoveAll(fn.LocalDir)
	}
	return &rpc.DeleteResponse{Deleted: deleted}, nil
}
