package runner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/OpenMined/syft-rds/pkg/types"
)

// PythonRunner executes the entrypoint with a host interpreter.
type PythonRunner struct {
	base
}

// Run validates and prepares the job, then starts the interpreter with
// the job's environment contract applied on top of the host's.
func (r *PythonRunner) Run(ctx context.Context, job *types.Job, cfg *types.JobConfig) (*Execution, error) {
	if err := r.prepare(job, cfg); err != nil {
		return nil, err
	}

	env := os.Environ()
	for k, v := range cfg.Env() {
		env = append(env, k+"="+v)
	}
	for k, v := range cfg.ExtraEnv {
		env = append(env, k+"="+v)
	}

	return r.start(ctx, cfg, r.command(cfg), env)
}

// command builds the interpreter argv. When the runtime opts into uv
// and the code ships a pyproject.toml, the run goes through uv so the
// script's own dependencies resolve; otherwise the configured cmd runs
// the script directly. The -u flag keeps output unbuffered.
func (r *PythonRunner) command(cfg *types.JobConfig) []string {
	script := cfg.EntrypointPath()
	var extra []string
	if len(cfg.Args) > 1 {
		extra = cfg.Args[1:]
	}

	useUV := cfg.Runtime.Config.Python != nil && cfg.Runtime.Config.Python.UseUV
	pyproject := filepath.Join(cfg.FunctionFolder, "pyproject.toml")
	if useUV {
		if _, err := os.Stat(pyproject); err == nil {
			r.logger.Debug().Str("pyproject", pyproject).Msg("running through uv")
			argv := []string{"uv", "run", "--directory", cfg.FunctionFolder, "python", "-u", script}
			return append(argv, extra...)
		}
	}

	argv := append([]string{}, cfg.Runtime.Cmd...)
	argv = append(argv, "-u", script)
	return append(argv, extra...)
}

var _ Runner = (*PythonRunner)(nil)
