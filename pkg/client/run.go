package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/runner"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// RunConfig tunes one private execution.
type RunConfig struct {
	// Force runs a job that is still pending review. The reviewed path
	// is approve first, then run.
	Force bool
	// Blocking waits for completion and records the final status.
	// Non-blocking runs return with the job in progress.
	Blocking bool
	// Timeout in seconds; zero means no limit.
	Timeout  int
	ExtraEnv map[string]string
	// Handlers overrides the default file plus logger output handlers.
	Handlers []runner.OutputHandler
}

// RunHandle follows a non-blocking private run. Wait blocks until the
// run finishes and returns the job with its final status recorded;
// Kill stops the process early.
type RunHandle struct {
	exec *runner.Execution
	done chan struct{}
	job  *types.Job
	err  error
}

// Kill terminates the running process. The pending Wait still returns.
func (h *RunHandle) Kill() error {
	return h.exec.Kill()
}

// Wait blocks until the run completes and its status has been pushed.
func (h *RunHandle) Wait() (*types.Job, error) {
	<-h.done
	return h.job, h.err
}

// RunPrivate executes the job's code against the private dataset on
// the owner's machine. Only the owner can run it, and only approved
// jobs run unless forced. A blocking run returns the finished job and
// a nil handle; a non-blocking run returns the job in progress plus a
// handle for killing or waiting on it.
func (j *JobClient) RunPrivate(ctx context.Context, job *types.Job, rc RunConfig) (*types.Job, *RunHandle, error) {
	if !j.client.IsAdmin() {
		return nil, nil, fmt.Errorf("only the datasite owner can run private jobs: %w", errdefs.ErrPermission)
	}
	switch {
	case job.Status == types.JobStatusApproved:
	case job.Status == types.JobStatusPendingCodeReview && rc.Force:
	default:
		return nil, nil, fmt.Errorf("job %s is %s, not runnable: %w", job.UID, job.Status, errdefs.ErrInvalidUpdate)
	}

	cfg, err := j.buildJobConfig(ctx, job, rc)
	if err != nil {
		return nil, nil, err
	}

	handlers := rc.Handlers
	if handlers == nil {
		handlers = []runner.OutputHandler{
			runner.NewFileOutputHandler(),
			runner.NewLoggerOutputHandler(job.UID.String()),
		}
	}

	logger := log.WithJobID(job.UID.String())
	onStatus := func(u *types.JobUpdate) {
		if _, err := j.Update(ctx, u); err != nil {
			logger.Error().Err(err).Msg("failed to push job status")
		}
	}

	r, err := runner.New(cfg, handlers, onStatus)
	if err != nil {
		return nil, nil, err
	}
	exec, err := r.Run(ctx, job, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start job %s: %w", job.UID, err)
	}

	if !rc.Blocking {
		h := &RunHandle{exec: exec, done: make(chan struct{})}
		go func() {
			defer close(h.done)
			res, err := exec.Wait()
			if err != nil {
				logger.Error().Err(err).Msg("job run lost")
				h.err = fmt.Errorf("job %s run failed: %w", job.UID, err)
				return
			}
			h.job, h.err = j.Update(ctx, job.UpdateForReturnCode(res.ReturnCode, res.ErrorMessage))
		}()
		current, err := j.Get(ctx, job.UID)
		return current, h, err
	}

	res, err := exec.Wait()
	if err != nil {
		return nil, nil, fmt.Errorf("job %s run failed: %w", job.UID, err)
	}
	final, err := j.Update(ctx, job.UpdateForReturnCode(res.ReturnCode, res.ErrorMessage))
	return final, nil, err
}

// buildJobConfig resolves the job's references into runner inputs.
func (j *JobClient) buildJobConfig(ctx context.Context, job *types.Job, rc RunConfig) (*types.JobConfig, error) {
	code, err := j.client.UserCode.Get(ctx, job.UserCodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user code: %w", err)
	}
	if code.LocalDir == "" {
		return nil, fmt.Errorf("user code %s has no unpacked bundle: %w", code.UID, errdefs.ErrNotReady)
	}

	ds, err := j.client.Datasets.Get(ctx, job.DatasetName)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	if ds.PrivateURL == "" {
		return nil, fmt.Errorf("dataset %q has no private data visible: %w", ds.Name, errdefs.ErrPermission)
	}
	dataPath, err := j.client.layout.URLToPath(ds.PrivateURL)
	if err != nil {
		return nil, err
	}

	rt, err := j.resolveRuntime(ctx, job, ds)
	if err != nil {
		return nil, err
	}

	layout := j.client.layout
	cfg := &types.JobConfig{
		FunctionFolder: code.LocalDir,
		DataPath:       dataPath,
		JobPath:        layout.JobDir(job.UID),
		LogsDir:        layout.JobLogsDir(job.UID),
		OutputDir:      layout.JobOutputDir(job.UID),
		Args:           []string{code.Entrypoint},
		Runtime:        rt,
		Timeout:        rc.Timeout,
		ExtraEnv:       rc.ExtraEnv,
		Blocking:       rc.Blocking,
	}
	if rt.Kind == types.RuntimeKindDocker {
		cfg.DataMountDir = types.ContainerDataDir
	}
	return cfg, nil
}

// resolveRuntime prefers the job's runtime, then the dataset's, then an
// ephemeral default python runtime that is never persisted.
func (j *JobClient) resolveRuntime(ctx context.Context, job *types.Job, ds *types.Dataset) (*types.Runtime, error) {
	id := job.RuntimeID
	if id == nil {
		id = ds.RuntimeID
	}
	if id != nil {
		rt, err := getOne[*types.Runtime](ctx, j.client, types.KindRuntime, *id)
		if err != nil {
			return nil, fmt.Errorf("failed to load runtime: %w", err)
		}
		return rt, nil
	}
	return types.DefaultRuntimeCreate().ToEntity(j.client.Email()), nil
}

// ShareResults copies the finished job's output and logs into the
// synced shared tree and marks the job shared. From that moment the
// submitter can read them.
func (j *JobClient) ShareResults(ctx context.Context, job *types.Job) (*types.Job, error) {
	if !j.client.IsAdmin() {
		return nil, fmt.Errorf("only the datasite owner can share results: %w", errdefs.ErrPermission)
	}
	if job.Status != types.JobStatusRunFinished {
		return nil, fmt.Errorf("job %s is %s, only finished runs are shareable: %w", job.UID, job.Status, errdefs.ErrInvalidUpdate)
	}

	layout := j.client.layout
	sharedDir := layout.SharedJobDir(job.UID)
	if err := os.MkdirAll(sharedDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create shared dir: %w", err)
	}
	if err := datasite.CopyDir(layout.JobOutputDir(job.UID), filepath.Join(sharedDir, "output")); err != nil {
		return nil, fmt.Errorf("failed to share output: %w", err)
	}
	if err := datasite.CopyDir(layout.JobLogsDir(job.UID), filepath.Join(sharedDir, "logs")); err != nil {
		return nil, fmt.Errorf("failed to share logs: %w", err)
	}

	outputURL := layout.SharedJobURL(job.UID)
	status := types.JobStatusShared
	return j.Update(ctx, &types.JobUpdate{
		UID:       job.UID,
		Status:    &status,
		OutputURL: &outputURL,
	})
}
