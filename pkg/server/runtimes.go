package server

import (
	"errors"
	"fmt"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/permission"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"

	"github.com/google/uuid"
)

func (a *App) registerRuntimeEndpoints() {
	a.Mux.Handle(rpc.Endpoint(types.KindRuntime, "create"), a.handleRuntimeCreate)
	a.Mux.Handle(rpc.Endpoint(types.KindRuntime, "get_one"), a.handleRuntimeGetOne)
	a.Mux.Handle(rpc.Endpoint(types.KindRuntime, "get_all"), a.handleRuntimeGetAll)
	a.Mux.Handle(rpc.Endpoint(types.KindRuntime, "update"), a.handleRuntimeUpdate)
	a.Mux.Handle(rpc.Endpoint(types.KindRuntime, "delete"), a.handleRuntimeDelete)
}

func (a *App) handleRuntimeCreate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindRuntime, permission.OpCreate); err != nil {
		return nil, err
	}
	var c types.RuntimeCreate
	if err := req.Decode(&c); err != nil {
		return nil, err
	}
	if err := a.validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid runtime create: %s: %w", err, errdefs.ErrInvalidUpdate)
	}
	if _, err := types.ParseRuntimeKind(string(c.Kind)); err != nil {
		return nil, fmt.Errorf("%s: %w", err, errdefs.ErrInvalidUpdate)
	}

	rt := c.ToEntity(req.SenderEmail)

	// Runtime names are unique; re-registering the same configuration
	// returns the existing record instead of a duplicate.
	existing, err := a.Runtimes.GetAll(byName(rt.Name))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	return a.Runtimes.Create(rt)
}

func (a *App) handleRuntimeGetOne(req *rpc.Request) (any, error) {
	var q rpc.GetOneRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	if q.UID != uuid.Nil {
		return a.Runtimes.GetByUID(q.UID)
	}
	matches, err := a.Runtimes.GetAll(byName(q.Name))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("runtime %q: %w", q.Name, errdefs.ErrNotFound)
	}
	return matches[0], nil
}

func (a *App) handleRuntimeGetAll(req *rpc.Request) (any, error) {
	var q rpc.GetAllRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	return a.Runtimes.GetAll(storeQuery(&q))
}

func (a *App) handleRuntimeUpdate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindRuntime, permission.OpUpdate); err != nil {
		return nil, err
	}
	var u types.RuntimeUpdate
	if err := req.Decode(&u); err != nil {
		return nil, err
	}
	return a.Runtimes.Update(u.UID, func(current *types.Runtime) (*types.Runtime, error) {
		return current.ApplyUpdate(&u, false)
	})
}

func (a *App) handleRuntimeDelete(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindRuntime, permission.OpDelete); err != nil {
		return nil, err
	}
	var d rpc.DeleteRequest
	if err := req.Decode(&d); err != nil {
		return nil, err
	}
	rt, err := a.Runtimes.GetByUID(d.UID)
	if errors.Is(err, errdefs.ErrNotFound) {
		return &rpc.DeleteResponse{Deleted: false}, nil
	}
	if err != nil {
		return nil, err
	}

	// A runtime still referenced by jobs or datasets must not vanish.
	jobs, err := a.Jobs.GetAll(byField("runtime_id", rt.UID.String()))
	if err != nil {
		return nil, err
	}
	if len(jobs) > 0 {
		return nil, fmt.Errorf("runtime %s is referenced by %d job(s): %w", rt.UID, len(jobs), errdefs.ErrInvalidUpdate)
	}
	datasets, err := a.Datasets.GetAll(byField("runtime_id", rt.UID.String()))
	if err != nil {
		return nil, err
	}
	if len(datasets) > 0 {
		return nil, fmt.Errorf("runtime %s is referenced by %d dataset(s): %w", rt.UID, len(datasets), errdefs.ErrInvalidUpdate)
	}

	deleted, err := a.Runtimes.Delete(rt.UID)
	if err != nil {
		return nil, err
	}
	return &rpc.DeleteResponse{Deleted: deleted}, nil
}
