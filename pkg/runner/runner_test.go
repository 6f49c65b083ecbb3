package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenMined/syft-rds/pkg/types"
)

// shRuntime runs scripts through the shell so the tests do not depend
// on a python install. The runner only cares about the argv prefix.
func shRuntime() *types.Runtime {
	return (&types.RuntimeCreate{
		Name: "shell",
		Kind: types.RuntimeKindPython,
		Cmd:  []string{"sh"},
	}).ToEntity("do@x")
}

type testEnv struct {
	cfg      *types.JobConfig
	job      *types.Job
	statusMu sync.Mutex
	statuses []*types.JobUpdate
}

func (e *testEnv) onStatus(u *types.JobUpdate) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.statuses = append(e.statuses, u)
}

// newTestEnv lays out a code folder holding script, a data folder and a
// job working directory.
func newTestEnv(t *testing.T, script string) *testEnv {
	t.Helper()
	root := t.TempDir()
	codeDir := filepath.Join(root, "code")
	dataDir := filepath.Join(root, "data")
	jobDir := filepath.Join(root, "job")
	require.NoError(t, os.MkdirAll(codeDir, 0o755))
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(codeDir, "main.sh"), []byte(script), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "data.csv"), []byte("id,value\n1,2\n2,3\n3,4\n"), 0o644))

	job := (&types.JobCreate{
		DatasetName: "census",
		UserCodeID:  shRuntime().UID,
	}).ToEntity("ds@x")
	job.Status = types.JobStatusApproved

	return &testEnv{
		job: job,
		cfg: &types.JobConfig{
			FunctionFolder: codeDir,
			DataPath:       dataDir,
			JobPath:        jobDir,
			LogsDir:        filepath.Join(jobDir, "logs"),
			OutputDir:      filepath.Join(jobDir, "output"),
			Args:           []string{"main.sh"},
			Runtime:        shRuntime(),
			Blocking:       true,
		},
	}
}

func runToCompletion(t *testing.T, env *testEnv, handlers []OutputHandler) *RunResult {
	t.Helper()
	r, err := New(env.cfg, handlers, env.onStatus)
	require.NoError(t, err)
	exec, err := r.Run(context.Background(), env.job, env.cfg)
	require.NoError(t, err)
	res, err := exec.Wait()
	require.NoError(t, err)
	return res
}

func TestRunWritesOutput(t *testing.T) {
	env := newTestEnv(t, `#!/bin/sh
echo "computing"
out="$OUTPUT_DIR/result.csv"
echo "sum" > "$out"
awk -F, 'NR>1 {s+=$2} END {print s}' "$DATA_DIR/data.csv" >> "$out"
`)

	res := runToCompletion(t, env, nil)
	assert.Equal(t, 0, res.ReturnCode)
	assert.Empty(t, res.ErrorMessage)

	got, err := os.ReadFile(filepath.Join(env.cfg.OutputDir, "result.csv"))
	require.NoError(t, err)
	assert.Equal(t, "sum\n9\n", string(got))
}

func TestRunEmitsInProgress(t *testing.T) {
	env := newTestEnv(t, "#!/bin/sh\ntrue\n")
	runToCompletion(t, env, nil)

	require.NotEmpty(t, env.statuses)
	require.NotNil(t, env.statuses[0].Status)
	assert.Equal(t, types.JobStatusInProgress, *env.statuses[0].Status)
}

func TestRunDemotesErrorLogs(t *testing.T) {
	env := newTestEnv(t, `#!/bin/sh
echo "all good on stdout"
echo "ERROR: boom" 1>&2
exit 0
`)

	res := runToCompletion(t, env, nil)
	assert.Equal(t, 1, res.ReturnCode, "clean exit with ERROR stderr is a failure")
	assert.Equal(t, "ERROR: boom\n", res.ErrorMessage)
}

func TestRunKeepsWarningsClean(t *testing.T) {
	env := newTestEnv(t, `#!/bin/sh
echo "WARNING: almost out of tea" 1>&2
exit 0
`)

	res := runToCompletion(t, env, nil)
	assert.Equal(t, 0, res.ReturnCode, "warnings do not fail the run")
	assert.Empty(t, res.ErrorMessage)
}

func TestRunNonZeroExit(t *testing.T) {
	env := newTestEnv(t, `#!/bin/sh
echo "traceback here" 1>&2
exit 3
`)

	res := runToCompletion(t, env, nil)
	assert.Equal(t, 3, res.ReturnCode)
	assert.Contains(t, res.ErrorMessage, "traceback here")
}

func TestFileOutputHandlerCapturesStreams(t *testing.T) {
	env := newTestEnv(t, `#!/bin/sh
echo "to stdout"
echo "to stderr" 1>&2
`)

	res := runToCompletion(t, env, []OutputHandler{NewFileOutputHandler()})
	assert.Equal(t, 0, res.ReturnCode)

	stdout, err := os.ReadFile(filepath.Join(env.cfg.LogsDir, "stdout.log"))
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "to stdout")

	stderr, err := os.ReadFile(filepath.Join(env.cfg.LogsDir, "stderr.log"))
	require.NoError(t, err)
	assert.Contains(t, string(stderr), "to stderr")
}

func TestRunCreatesJobFolders(t *testing.T) {
	env := newTestEnv(t, "#!/bin/sh\ntrue\n")
	runToCompletion(t, env, nil)

	info, err := os.Stat(env.cfg.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm(), "output dir is container-writable")

	_, err = os.Stat(env.cfg.LogsDir)
	assert.NoError(t, err)
}

func TestRunMissingFunctionFolder(t *testing.T) {
	env := newTestEnv(t, "#!/bin/sh\ntrue\n")
	env.cfg.FunctionFolder = filepath.Join(t.TempDir(), "nope")

	r, err := New(env.cfg, nil, env.onStatus)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), env.job, env.cfg)
	assert.Error(t, err)
	assert.Empty(t, env.statuses, "no status change before validation passes")
}

func TestNewRejectsUnsupportedKind(t *testing.T) {
	cfg := &types.JobConfig{Runtime: &types.Runtime{Kind: types.RuntimeKindKubernetes}}
	_, err := New(cfg, nil, nil)
	assert.Error(t, err)
}

// lineCapture records every output line a run produces.
type lineCapture struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCapture) OnJobStart(*types.JobConfig) {}
func (c *lineCapture) OnJobCompletion(int)         {}
func (c *lineCapture) OnJobProgress(stream Stream, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func TestStartInheritsEnvironment(t *testing.T) {
	t.Setenv("RDS_ENV_MARKER", "inherited")

	capture := &lineCapture{}
	b := base{handlers: []OutputHandler{capture}}
	cfg := &types.JobConfig{Runtime: shRuntime()}

	exec, err := b.start(context.Background(), cfg, []string{"sh", "-c", "env"}, nil)
	require.NoError(t, err)
	res, err := exec.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, res.ReturnCode)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	assert.Contains(t, capture.lines, "RDS_ENV_MARKER=inherited",
		"a nil env must mean inherit, not start empty")
	assert.Contains(t, capture.lines, "PYTHONUNBUFFERED=1")

	var hasPath bool
	for _, line := range capture.lines {
		if strings.HasPrefix(line, "PATH=") {
			hasPath = true
		}
	}
	assert.True(t, hasPath, "PATH must survive into the child")
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	env := newTestEnv(t, "#!/bin/sh\nsleep 30\n")
	env.cfg.Timeout = 1

	res := runToCompletion(t, env, nil)
	assert.NotEqual(t, 0, res.ReturnCode, "timed-out run must not look successful")
}
