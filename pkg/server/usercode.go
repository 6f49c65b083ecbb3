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

func (a *App) registerUserCodeEndpoints() {
	a.Mux.Handle(rpc.Endpoint(types.KindUserCode, "create"), a.handleUserCodeCreate)
	a.Mux.Handle(rpc.Endpoint(types.KindUserCode, "get_one"), a.handleUserCodeGetOne)
	a.Mux.Handle(rpc.Endpoint(types.KindUserCode, "get_all"), a.handleUserCodeGetAll)
	a.Mux.Handle(rpc.Endpoint(types.KindUserCode, "update"), a.handleUserCodeUpdate)
	a.Mux.Handle(rpc.Endpoint(types.KindUserCode, "delete"), a.handleUserCodeDelete)
}

func (a *App) handleUserCodeCreate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindUserCode, permission.OpCreate); err != nil {
		return nil, err
	}
	var c types.UserCodeCreate
	if err := req.Decode(&c); err != nil {
		return nil, err
	}
	if err := a.validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid user code create: %s: %w", err, errdefs.ErrInvalidUpdate)
	}
	if _, err := types.ParseUserCodeType(string(c.CodeType)); err != nil {
		return nil, fmt.Errorf("%s: %w", err, errdefs.ErrInvalidUpdate)
	}

	code := c.ToEntity(req.SenderEmail)
	dir := a.Layout.CodeDir(code.UID)
	if len(c.FilesZipped) > 0 {
		if err := datasite.Unzip(c.FilesZipped, dir); err != nil {
			return nil, fmt.Errorf("failed to unpack code bundle: %w", err)
		}
		code.LocalDir = dir
	}

	created, err := a.UserCode.Create(code)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return created, nil
}

func (a *App) handleUserCodeGetOne(req *rpc.Request) (any, error) {
	var q rpc.GetOneRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	return a.UserCode.GetByUID(q.UID)
}

func (a *App) handleUserCodeGetAll(req *rpc.Request) (any, error) {
	var q rpc.GetAllRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	return a.UserCode.GetAll(storeQuery(&q))
}

func (a *App) handleUserCodeUpdate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindUserCode, permission.OpUpdate); err != nil {
		return nil, err
	}
	var u types.UserCodeUpdate
	if err := req.Decode(&u); err != nil {
		return nil, err
	}
	return a.UserCode.Update(u.UID, func(current *types.UserCode) (*types.UserCode, error) {
		return current.ApplyUpdate(&u, false)
	})
}

func (a *App) handleUserCodeDelete(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindUserCode, permission.OpDelete); err != nil {
		return nil, err
	}
	var d rpc.DeleteRequest
	if err := req.Decode(&d); err != nil {
		return nil, err
	}
	code, err := a.UserCode.GetByUID(d.UID)
	if errors.Is(err, errdefs.ErrNotFound) {
		return &rpc.DeleteResponse{Deleted: false}, nil
	}
	if err != nil {
		return nil, err
	}
	deleted, err := a.UserCode.Delete(code.UID)
	if err != nil {
		return nil, err
	}
	if deleted && code.LocalDir != "" {
		os.RemoveAll(code.LocalDir)
	}
	return &rpc.DeleteResponse{Deleted: deleted}, nil
}
