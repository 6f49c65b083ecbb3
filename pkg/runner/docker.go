package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// DockerRunner executes the entrypoint inside a locked-down container.
// Code and data are mounted read-only; only the output mount is
// writable. The container gets no network and no capabilities.
type DockerRunner struct {
	base
}

func (r *DockerRunner) Run(ctx context.Context, job *types.Job, cfg *types.JobConfig) (*Execution, error) {
	if err := r.prepare(job, cfg); err != nil {
		return nil, err
	}
	if err := r.checkDaemon(ctx, job); err != nil {
		return nil, err
	}
	if err := r.checkOrBuildImage(ctx, job, cfg); err != nil {
		return nil, err
	}
	return r.start(ctx, cfg, r.command(cfg), nil)
}

// checkDaemon probes the docker daemon. An unreachable daemon is
// recorded on the job before the run is aborted.
func (r *DockerRunner) checkDaemon(ctx context.Context, job *types.Job) error {
	if out, err := exec.CommandContext(ctx, "docker", "info").CombinedOutput(); err != nil {
		msg := fmt.Sprintf("docker daemon is not running: %v: %s", err, strings.TrimSpace(string(out)))
		if r.onStatus != nil {
			r.onStatus(job.UpdateForReturnCode(1, msg))
		}
		return fmt.Errorf("%s: %w", msg, errdefs.ErrRuntimeUnavailable)
	}
	return nil
}

// checkOrBuildImage builds the configured image from the runtime's
// inline Dockerfile when it is not already present.
func (r *DockerRunner) checkOrBuildImage(ctx context.Context, job *types.Job, cfg *types.JobConfig) error {
	image := cfg.Runtime.ImageName()
	if err := exec.CommandContext(ctx, "docker", "image", "inspect", image).Run(); err == nil {
		r.logger.Debug().Str("image", image).Msg("docker image present")
		return nil
	}

	var dockerfile string
	if cfg.Runtime.Config.Docker != nil {
		dockerfile = cfg.Runtime.Config.Docker.DockerfileContent
	}
	if dockerfile == "" {
		msg := fmt.Sprintf("docker image %q not found and runtime has no dockerfile", image)
		if r.onStatus != nil {
			r.onStatus(job.UpdateForReturnCode(1, msg))
		}
		return fmt.Errorf("%s: %w", msg, errdefs.ErrRuntimeUnavailable)
	}

	r.logger.Info().Str("image", image).Msg("building docker image")
	build := exec.CommandContext(ctx, "docker", "build", "-t", image, "-f", "-", ".")
	build.Stdin = strings.NewReader(dockerfile)
	var stderr bytes.Buffer
	build.Stderr = &stderr
	if err := build.Run(); err != nil {
		msg := fmt.Sprintf("failed to build docker image %q: %s", image, strings.TrimSpace(stderr.String()))
		if r.onStatus != nil {
			r.onStatus(job.UpdateForReturnCode(1, msg))
		}
		return fmt.Errorf("%s: %w", msg, errdefs.ErrJobFailed)
	}
	return nil
}

// command assembles the docker run argv with the sandbox constraints
// and the in-container environment contract.
func (r *DockerRunner) command(cfg *types.JobConfig) []string {
	image := cfg.Runtime.ImageName()
	entrypoint := types.ContainerCodeDir + "/" + cfg.Entrypoint()

	dataMount := cfg.DataMountDir
	if dataMount == "" {
		dataMount = types.ContainerDataDir
	}

	interpreter := cfg.Runtime.Interpreter()
	if strings.Contains(interpreter, " ") {
		interpreter = `"` + interpreter + `"`
	}

	argv := []string{
		"docker", "run", "--rm",
		"--cap-drop", "ALL",
		"--network", "none",
		"--tmpfs", "/tmp:size=16m,noexec,nosuid,nodev",
		"--memory", "1G",
		"--cpus", "1",
		"--pids-limit", "100",
		"--ulimit", "nproc=4096:4096",
		"--ulimit", "nofile=50:50",
		"--ulimit", "fsize=10000000:10000000",
		"-e", fmt.Sprintf("TIMEOUT=%d", cfg.Timeout),
		"-e", "DATA_DIR=" + dataMount,
		"-e", "OUTPUT_DIR=" + types.ContainerOutputDir,
		"-e", "CODE_DIR=" + types.ContainerCodeDir,
		"-e", "INTERPRETER=" + interpreter,
		"-e", "INPUT_FILE=" + entrypoint,
	}
	argv = append(argv, cfg.ExtraEnvAsDockerArgs()...)

	argv = append(argv,
		"-v", absolute(cfg.FunctionFolder)+":"+types.ContainerCodeDir+":ro",
		"-v", absolute(cfg.DataPath)+":"+types.ContainerDataDir+":ro",
		"-v", absolute(cfg.OutputDir)+":"+types.ContainerOutputDir+":rw",
	)
	for _, m := range r.extraMounts(cfg) {
		argv = append(argv, "-v", absolute(m.Source)+":"+m.Target+":"+m.Mode)
	}

	argv = append(argv, "--workdir", types.ContainerWorkdir, image, entrypoint)
	if len(cfg.Args) > 1 {
		argv = append(argv, cfg.Args[1:]...)
	}
	return argv
}

func (r *DockerRunner) extraMounts(cfg *types.JobConfig) []Mount {
	if cfg.Runtime.Config.Docker == nil || cfg.Runtime.Config.Docker.AppName == "" {
		return nil
	}
	p := mountProviderFor(cfg.Runtime.Config.Docker.AppName)
	if p == nil {
		return nil
	}
	return p.Mounts(cfg)
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

var _ Runner = (*DockerRunner)(nil)
