package types

import (
	"fmt"
	"path/filepath"
	"sort"
)

const (
	// ContainerWorkdir is the fixed working directory inside the sandbox.
	ContainerWorkdir = "/app"
	// ContainerCodeDir is where user code is mounted read-only.
	ContainerCodeDir = ContainerWorkdir + "/code"
	// ContainerDataDir is where the dataset is mounted read-only.
	ContainerDataDir = ContainerWorkdir + "/data"
	// ContainerOutputDir is the writable output mount.
	ContainerOutputDir = ContainerWorkdir + "/output"
)

// JobConfig carries everything a runner needs to execute one job.
// Args[0] is the entrypoint relative to FunctionFolder; the rest are
// forwarded to the user code.
type JobConfig struct {
	FunctionFolder string
	DataPath       string
	JobPath        string
	LogsDir        string
	OutputDir      string
	Args           []string
	Runtime        *Runtime
	Timeout        int
	ExtraEnv       map[string]string
	Blocking       bool
	// DataMountDir is the dataset location as seen by the executed code
	// (the container mount point, or DataPath for host runs).
	DataMountDir string
}

// Entrypoint returns the script path relative to the function folder.
func (c *JobConfig) Entrypoint() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// EntrypointPath resolves the entrypoint on the host filesystem.
func (c *JobConfig) EntrypointPath() string {
	return filepath.Join(c.FunctionFolder, c.Entrypoint())
}

// Env returns the environment contract exposed to executed user code.
func (c *JobConfig) Env() map[string]string {
	dataDir := c.DataMountDir
	if dataDir == "" {
		dataDir = c.DataPath
	}
	env := map[string]string{
		"DATA_DIR":   dataDir,
		"OUTPUT_DIR": c.OutputDir,
		"CODE_DIR":   c.FunctionFolder,
		"INPUT_FILE": c.EntrypointPath(),
		"TIMEOUT":    fmt.Sprintf("%d", c.Timeout),
	}
	if c.Runtime != nil {
		env["INTERPRETER"] = c.Runtime.Interpreter()
	}
	return env
}

// ExtraEnvAsDockerArgs renders ExtraEnv as -e flags in stable order.
func (c *JobConfig) ExtraEnvAsDockerArgs() []string {
	keys := make([]string, 0, len(c.ExtraEnv))
	for k := range c.ExtraEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, c.ExtraEnv[k]))
	}
	return args
}
