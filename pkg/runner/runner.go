package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// StatusCallback pushes a job update towards the control plane while a
// run is in flight. Implementations must tolerate being called from the
// runner's goroutine.
type StatusCallback func(update *types.JobUpdate)

// RunResult is the outcome of a finished run.
type RunResult struct {
	ReturnCode   int
	ErrorMessage string
}

// Failed reports whether the run must mark the job failed.
func (r *RunResult) Failed() bool { return r.ReturnCode != 0 }

// Runner starts one job in its runtime. Run returns once the process is
// started; callers Wait on the returned execution (or don't, for
// fire-and-forget runs).
type Runner interface {
	Run(ctx context.Context, job *types.Job, cfg *types.JobConfig) (*Execution, error)
}

// New picks the runner for the job's runtime kind.
func New(cfg *types.JobConfig, handlers []OutputHandler, onStatus StatusCallback) (Runner, error) {
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("job config has no runtime: %w", errdefs.ErrRuntimeUnavailable)
	}
	b := base{
		handlers: handlers,
		onStatus: onStatus,
		logger:   log.WithComponent("runner"),
	}
	switch cfg.Runtime.Kind {
	case types.RuntimeKindPython:
		return &PythonRunner{base: b}, nil
	case types.RuntimeKindDocker:
		return &DockerRunner{base: b}, nil
	default:
		return nil, fmt.Errorf("runtime kind %q has no runner: %w", cfg.Runtime.Kind, errdefs.ErrRuntimeUnavailable)
	}
}

// base carries the shared preparation and subprocess machinery.
type base struct {
	handlers []OutputHandler
	onStatus StatusCallback
	logger   zerolog.Logger
}

// prepare validates the inputs, creates the job folders and moves the
// job to in_progress. The output dir is world-writable so container
// users can write into it.
func (b *base) prepare(job *types.Job, cfg *types.JobConfig) error {
	if _, err := os.Stat(cfg.FunctionFolder); err != nil {
		return fmt.Errorf("function folder %s does not exist: %w", cfg.FunctionFolder, err)
	}
	if _, err := os.Stat(cfg.DataPath); err != nil {
		return fmt.Errorf("dataset path %s does not exist: %w", cfg.DataPath, err)
	}

	for _, dir := range []string{cfg.JobPath, cfg.LogsDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create job dir %s: %w", dir, err)
		}
	}
	if err := os.Chmod(cfg.OutputDir, 0o777); err != nil {
		return fmt.Errorf("failed to open up output dir: %w", err)
	}

	if b.onStatus != nil {
		b.onStatus(job.UpdateForStatus(types.JobStatusInProgress))
	}
	return nil
}
