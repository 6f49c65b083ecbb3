package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// JobClient manages the job lifecycle on the host datasite.
type JobClient struct {
	client *Client
}

// SubmitJobParams describes one code submission.
type SubmitJobParams struct {
	Name        string
	Description string
	Tags        []string
	// UserCodePath is a local script file or project folder.
	UserCodePath string
	// Entrypoint is the script to run, relative to the code folder.
	// Defaults to the file's basename for single-file submissions.
	Entrypoint  string
	DatasetName string
	// RuntimeName optionally pins a registered runtime by name.
	RuntimeName string
	RuntimeID   *uuid.UUID
}

// Submit packages the code and creates the job. A runtime name that
// resolves to nothing fails before any record is created.
func (j *JobClient) Submit(ctx context.Context, p SubmitJobParams) (*types.Job, error) {
	if p.UserCodePath == "" {
		return nil, fmt.Errorf("submit needs a user code path")
	}
	if p.DatasetName == "" {
		return nil, fmt.Errorf("submit needs a dataset name")
	}

	runtimeID := p.RuntimeID
	if p.RuntimeName != "" {
		rt, err := j.client.Runtimes.Get(ctx, p.RuntimeName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve runtime %q: %w", p.RuntimeName, err)
		}
		runtimeID = &rt.UID
	}

	info, err := os.Stat(p.UserCodePath)
	if err != nil {
		return nil, fmt.Errorf("user code path %s: %w", p.UserCodePath, err)
	}
	codeType := types.UserCodeTypeFolder
	entrypoint := p.Entrypoint
	if !info.IsDir() {
		codeType = types.UserCodeTypeFile
		if entrypoint == "" {
			entrypoint = filepath.Base(p.UserCodePath)
		}
	}
	if entrypoint == "" {
		return nil, fmt.Errorf("folder submissions need an entrypoint")
	}

	zipped, err := datasite.ZipPath(p.UserCodePath)
	if err != nil {
		return nil, fmt.Errorf("failed to package user code: %w", err)
	}

	code, err := call[*types.UserCode](ctx, j.client, types.KindUserCode, "create", &types.UserCodeCreate{
		Name:        p.Name,
		Entrypoint:  entrypoint,
		CodeType:    codeType,
		FilesZipped: zipped,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload user code: %w", err)
	}

	return call[*types.Job](ctx, j.client, types.KindJob, "create", &types.JobCreate{
		Name:        p.Name,
		Description: p.Description,
		Tags:        p.Tags,
		DatasetName: p.DatasetName,
		UserCodeID:  code.UID,
		RuntimeID:   runtimeID,
	})
}

// Get fetches one job by uid.
func (j *JobClient) Get(ctx context.Context, uid uuid.UUID) (*types.Job, error) {
	return getOne[*types.Job](ctx, j.client, types.KindJob, uid)
}

// GetAll lists jobs visible to the caller.
func (j *JobClient) GetAll(ctx context.Context, opts *ListOptions) ([]*types.Job, error) {
	return getAll[*types.Job](ctx, j.client, types.KindJob, opts)
}

// Update applies a partial update. Owner only.
func (j *JobClient) Update(ctx context.Context, u *types.JobUpdate) (*types.Job, error) {
	return call[*types.Job](ctx, j.client, types.KindJob, "update", u)
}

// Approve moves a pending job to approved.
func (j *JobClient) Approve(ctx context.Context, job *types.Job) (*types.Job, error) {
	return j.Update(ctx, job.UpdateForStatus(types.JobStatusApproved))
}

// Reject moves a pending job to rejected, with an optional reason.
func (j *JobClient) Reject(ctx context.Context, job *types.Job, reason string) (*types.Job, error) {
	u := job.UpdateForStatus(types.JobStatusRejected)
	if reason != "" {
		u.ErrorMessage = &reason
	}
	return j.Update(ctx, u)
}

// Delete removes a job and its artifacts; optionally the code bundle
// too if no other job references it.
func (j *JobClient) Delete(ctx context.Context, uid uuid.UUID, deleteOrphanedCode bool) (bool, error) {
	return deleteOne(ctx, j.client, types.KindJob, &rpc.DeleteRequest{
		UID:                    uid,
		DeleteOrphanedUserCode: deleteOrphanedCode,
	})
}

// DeleteAll removes every job matching the filters and reports the
// count. Unknown filter fields match nothing.
func (j *JobClient) DeleteAll(ctx context.Context, filters Filters, deleteOrphanedCode bool) (int, error) {
	out, err := call[rpc.DeleteAllResponse](ctx, j.client, types.KindJob, "delete_all", &rpc.DeleteAllRequest{
		Filters:                filters,
		DeleteOrphanedUserCode: deleteOrphanedCode,
	})
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}

// GetLogs returns the run's log files keyed by name, preferring the
// shared copy. A job whose logs are not on disk yet is not ready.
func (j *JobClient) GetLogs(ctx context.Context, job *types.Job) (map[string]string, error) {
	layout := j.client.layout
	candidates := []string{
		filepath.Join(layout.SharedJobDir(job.UID), "logs"),
		layout.JobLogsDir(job.UID),
	}
	for _, dir := range candidates {
		logs, err := readDirFiles(dir)
		if err == nil && len(logs) > 0 {
			return logs, nil
		}
	}
	return nil, fmt.Errorf("logs for job %s are not available yet: %w", job.UID, errdefs.ErrNotReady)
}

// GetOutputs lists the shared output files of a finished job.
func (j *JobClient) GetOutputs(ctx context.Context, job *types.Job) ([]string, error) {
	if job.OutputURL == "" {
		return nil, fmt.Errorf("job %s has no shared output: %w", job.UID, errdefs.ErrNotReady)
	}
	root, err := j.client.layout.URLToPath(job.OutputURL)
	if err != nil {
		return nil, err
	}
	outDir := filepath.Join(root, "output")
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("output for job %s is not available yet: %w", job.UID, errdefs.ErrNotReady)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(outDir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// readDirFiles loads every regular file in dir keyed by basename.
func readDirFiles(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		files[e.Name()] = string(data)
	}
	return files, nil
}
