package server

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/permission"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

func (a *App) registerJobEndpoints() {
	a.Mux.Handle(rpc.Endpoint(types.KindJob, "create"), a.handleJobCreate)
	a.Mux.Handle(rpc.Endpoint(types.KindJob, "get_one"), a.handleJobGetOne)
	a.Mux.Handle(rpc.Endpoint(types.KindJob, "get_all"), a.handleJobGetAll)
	a.Mux.Handle(rpc.Endpoint(types.KindJob, "update"), a.handleJobUpdate)
	a.Mux.Handle(rpc.Endpoint(types.KindJob, "delete"), a.handleJobDelete)
	a.Mux.Handle(rpc.Endpoint(types.KindJob, "delete_all"), a.handleJobDeleteAll)
}

func (a *App) handleJobCreate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindJob, permission.OpCreate); err != nil {
		return nil, err
	}
	var c types.JobCreate
	if err := req.Decode(&c); err != nil {
		return nil, err
	}
	if err := a.validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid job create: %s: %w", err, errdefs.ErrInvalidUpdate)
	}

	// Referenced records must exist before the job is accepted.
	datasets, err := a.Datasets.GetAll(byName(c.DatasetName))
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("dataset %q: %w", c.DatasetName, errdefs.ErrNotFound)
	}
	if _, err := a.UserCode.GetByUID(c.UserCodeID); err != nil {
		return nil, fmt.Errorf("user code %s: %w", c.UserCodeID, err)
	}
	if c.RuntimeID != nil {
		if _, err := a.Runtimes.GetByUID(*c.RuntimeID); err != nil {
			return nil, fmt.Errorf("runtime %s: %w", c.RuntimeID, err)
		}
	}

	job, err := a.Jobs.Create(c.ToEntity(req.SenderEmail))
	if err != nil {
		return nil, err
	}
	logger := log.WithJobID(job.UID.String())
	logger.Info().
		Str("dataset", job.DatasetName).
		Str("created_by", job.CreatedBy).
		Msg("job submitted")
	return job, nil
}

func (a *App) handleJobGetOne(req *rpc.Request) (any, error) {
	var q rpc.GetOneRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	job, err := a.Jobs.GetByUID(q.UID)
	if err != nil {
		return nil, err
	}
	role := a.roleFor(req)
	if !permission.CanReadJob(role, req.SenderEmail, job) {
		return nil, fmt.Errorf("job %s is not readable by %s: %w", job.UID, req.SenderEmail, errdefs.ErrPermission)
	}
	return job, nil
}

func (a *App) handleJobGetAll(req *rpc.Request) (any, error) {
	var q rpc.GetAllRequest
	if err := req.Decode(&q); err != nil {
		return nil, err
	}
	jobs, err := a.Jobs.GetAll(storeQuery(&q))
	if err != nil {
		return nil, err
	}
	role := a.roleFor(req)
	visible := make([]*types.Job, 0, len(jobs))
	for _, job := range jobs {
		if permission.CanReadJob(role, req.SenderEmail, job) {
			visible = append(visible, job)
		}
	}
	return visible, nil
}

func (a *App) handleJobUpdate(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindJob, permission.OpUpdate); err != nil {
		return nil, err
	}
	var u types.JobUpdate
	if err := req.Decode(&u); err != nil {
		return nil, err
	}
	return a.Jobs.Update(u.UID, func(current *types.Job) (*types.Job, error) {
		if u.Status != nil && *u.Status != current.Status &&
			!current.Status.CanTransitionTo(*u.Status) {
			return nil, fmt.Errorf("job %s cannot move from %s to %s: %w",
				current.UID, current.Status, *u.Status, errdefs.ErrInvalidUpdate)
		}
		return current.ApplyUpdate(&u, false)
	})
}

func (a *App) handleJobDelete(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindJob, permission.OpDelete); err != nil {
		return nil, err
	}
	var d rpc.DeleteRequest
	if err := req.Decode(&d); err != nil {
		return nil, err
	}
	deleted, err := a.deleteJob(d.UID, d.DeleteOrphanedUserCode)
	if err != nil {
		return nil, err
	}
	return &rpc.DeleteResponse{Deleted: deleted}, nil
}

func (a *App) handleJobDeleteAll(req *rpc.Request) (any, error) {
	if err := permission.Check(a.roleFor(req), types.KindJob, permission.OpDelete); err != nil {
		return nil, err
	}
	var d rpc.DeleteAllRequest
	if err := req.Decode(&d); err != nil {
		return nil, err
	}
	jobs, err := a.Jobs.GetAll(storeQuery(&rpc.GetAllRequest{Filters: d.Filters}))
	if err != nil {
		return nil, err
	}
	count := 0
	for _, job := range jobs {
		deleted, err := a.deleteJob(job.UID, d.DeleteOrphanedUserCode)
		if err != nil {
			return nil, err
		}
		if deleted {
			count++
		}
	}
	return &rpc.DeleteAllResponse{Count: count}, nil
}

// deleteJob removes the record plus the job's artifact trees, and
// optionally the user code bundle when no surviving job references it.
func (a *App) deleteJob(uid uuid.UUID, deleteOrphanedCode bool) (bool, error) {
	job, err := a.Jobs.GetByUID(uid)
	if errors.Is(err, errdefs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	deleted, err := a.Jobs.Delete(job.UID)
	if err != nil || !deleted {
		return deleted, err
	}

	// Artifact cleanup is best effort; a half-removed tree is repaired
	// on the next delete.
	logger := log.WithJobID(job.UID.String())
	if err := os.RemoveAll(a.Layout.JobDir(job.UID)); err != nil {
		logger.Warn().Err(err).Msg("failed to remove job artifacts")
	}
	if err := os.RemoveAll(a.Layout.SharedJobDir(job.UID)); err != nil {
		logger.Warn().Err(err).Msg("failed to remove shared job artifacts")
	}

	if deleteOrphanedCode {
		if err := a.deleteOrphanedUserCode(job); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (a *App) deleteOrphanedUserCode(job *types.Job) error {
	remaining, err := a.Jobs.GetAll(byField("user_code_id", job.UserCodeID.String()))
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}
	code, err := a.UserCode.GetByUID(job.UserCodeID)
	if errors.Is(err, errdefs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := a.UserCode.Delete(code.UID); err != nil {
		return err
	}
	if code.LocalDir != "" {
		if err := os.RemoveAll(code.LocalDir); err != nil {
			logger := log.WithComponent("server")
			logger.Warn().Err(err).
				Str("dir", code.LocalDir).Msg("failed to remove orphaned code dir")
		}
	}
	return nil
}
