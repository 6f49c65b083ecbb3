package client_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenMined/syft-rds/pkg/client"
	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/server"
	"github.com/OpenMined/syft-rds/pkg/types"
)

const (
	ownerEmail = "do@x"
	guestEmail = "ds@x"
)

// testBed is one datasite with an in-process server and one client per
// identity, all sharing the same tree on disk.
type testBed struct {
	layout datasite.Layout
	app    *server.App
	owner  *client.Client
	guest  *client.Client
}

func newTestBed(t *testing.T) *testBed {
	t.Helper()
	root := t.TempDir()
	layout := datasite.NewLayout(root, ownerEmail)
	app, err := server.NewApp(layout)
	require.NoError(t, err)

	mkClient := func(email string) *client.Client {
		c, err := client.New(client.Config{
			Root:      root,
			Host:      ownerEmail,
			Email:     email,
			Transport: rpc.NewMockTransport(app.Mux, email),
		})
		require.NoError(t, err)
		return c
	}

	return &testBed{
		layout: layout,
		app:    app,
		owner:  mkClient(ownerEmail),
		guest:  mkClient(guestEmail),
	}
}

// clientFor builds an extra client under a different identity.
func (b *testBed) clientFor(t *testing.T, email string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{
		Root:      b.layout.Root,
		Host:      ownerEmail,
		Email:     email,
		Transport: rpc.NewMockTransport(b.app.Mux, email),
	})
	require.NoError(t, err)
	return c
}

// publishDataset lays out mock and private CSV source trees and creates
// the dataset through the owner client.
func (b *testBed) publishDataset(t *testing.T, name string) *types.Dataset {
	t.Helper()
	src := t.TempDir()
	mockDir := filepath.Join(src, "mock")
	privateDir := filepath.Join(src, "private")
	require.NoError(t, os.MkdirAll(mockDir, 0o755))
	require.NoError(t, os.MkdirAll(privateDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mockDir, "data.csv"),
		[]byte("id,value\n1,0\n2,0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(privateDir, "data.csv"),
		[]byte("id,value\n1,2\n2,3\n3,4\n"), 0o644))
	readme := filepath.Join(src, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("# "+name+"\n"), 0o644))

	ds, err := b.owner.Datasets.Create(context.Background(), &types.DatasetCreate{
		Name:        name,
		Summary:     "two column fixture",
		MockPath:    mockDir,
		PrivatePath: privateDir,
		ReadmePath:  readme,
	})
	require.NoError(t, err)
	return ds
}

// registerShellRuntime registers sh as the interpreter so the suite has
// no python dependency.
func (b *testBed) registerShellRuntime(t *testing.T) *types.Runtime {
	t.Helper()
	rt, err := b.owner.Runtimes.Create(context.Background(), &types.RuntimeCreate{
		Name: "shell",
		Kind: types.RuntimeKindPython,
		Cmd:  []string{"sh"},
	})
	require.NoError(t, err)
	return rt
}

// submitScript writes script to a local file and submits it as guest.
func (b *testBed) submitScript(t *testing.T, script, dataset, runtimeName string) *types.Job {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	job, err := b.guest.Jobs.Submit(context.Background(), client.SubmitJobParams{
		Name:         "sum-values",
		UserCodePath: path,
		DatasetName:  dataset,
		RuntimeName:  runtimeName,
	})
	require.NoError(t, err)
	return job
}

const sumScript = `#!/bin/sh
out="$OUTPUT_DIR/result.csv"
echo "sum" > "$out"
awk -F, 'NR>1 {s+=$2} END {print s}' "$DATA_DIR/data.csv" >> "$out"
`

func TestFullJobLifecycle(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)

	// Data scientist submits against the mock schema.
	job := bed.submitScript(t, sumScript, "census", "shell")
	assert.Equal(t, types.JobStatusPendingCodeReview, job.Status)
	assert.Equal(t, guestEmail, job.CreatedBy)

	// Data owner reviews and approves.
	pending, err := bed.owner.Jobs.GetAll(ctx, &client.ListOptions{
		Filters: client.Filters{"status": string(types.JobStatusPendingCodeReview)},
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := bed.owner.Jobs.Approve(ctx, pending[0])
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusApproved, approved.Status)

	// The run executes against the private data, not the mock.
	finished, _, err := bed.owner.Jobs.RunPrivate(ctx, approved, client.RunConfig{Blocking: true})
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusRunFinished, finished.Status)
	require.NotNil(t, finished.ReturnCode)
	assert.Equal(t, 0, *finished.ReturnCode)

	shared, err := bed.owner.Jobs.ShareResults(ctx, finished)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusShared, shared.Status)
	assert.NotEmpty(t, shared.OutputURL)

	// Data scientist reads the shared results.
	theirs, err := bed.guest.Jobs.Get(ctx, job.UID)
	require.NoError(t, err)
	outputs, err := bed.guest.Jobs.GetOutputs(ctx, theirs)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	got, err := os.ReadFile(outputs[0])
	require.NoError(t, err)
	assert.Equal(t, "sum\n9\n", string(got), "sum over the private rows, not the mock")

	logs, err := bed.guest.Jobs.GetLogs(ctx, theirs)
	require.NoError(t, err)
	assert.Contains(t, logs, "stdout.log")
	assert.Contains(t, logs, "stderr.log")
}

func TestGuestSeesRedactedDataset(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")

	ds, err := bed.guest.Datasets.Get(ctx, "census")
	require.NoError(t, err)
	assert.Empty(t, ds.PrivateURL, "guests never see the private location")
	assert.NotEmpty(t, ds.MockURL)

	mine, err := bed.owner.Datasets.Get(ctx, "census")
	require.NoError(t, err)
	assert.NotEmpty(t, mine.PrivateURL)
}

func TestDuplicateDatasetName(t *testing.T) {
	bed := newTestBed(t)
	bed.publishDataset(t, "census")

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "data.csv"), []byte("id\n1\n"), 0o644))
	_, err := bed.owner.Datasets.Create(context.Background(), &types.DatasetCreate{
		Name:        "census",
		MockPath:    src,
		PrivatePath: src,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrAlreadyExists))
}

func TestSubmitUnknownRuntimeCreatesNothing(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")

	path := filepath.Join(t.TempDir(), "main.sh")
	require.NoError(t, os.WriteFile(path, []byte(sumScript), 0o755))
	_, err := bed.guest.Jobs.Submit(ctx, client.SubmitJobParams{
		UserCodePath: path,
		DatasetName:  "census",
		RuntimeName:  "no-such-runtime",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))

	// The failed resolution must not leave records behind.
	jobs, err := bed.owner.Jobs.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	code, err := bed.owner.UserCode.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestErrorLogsFailTheJob(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)

	job := bed.submitScript(t, "#!/bin/sh\necho \"ERROR: boom\" 1>&2\nexit 0\n", "census", "shell")
	approved, err := bed.owner.Jobs.Approve(ctx, job)
	require.NoError(t, err)

	failed, _, err := bed.owner.Jobs.RunPrivate(ctx, approved, client.RunConfig{Blocking: true})
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusRunFailed, failed.Status)
	require.NotNil(t, failed.ReturnCode)
	assert.Equal(t, 1, *failed.ReturnCode)
	assert.Equal(t, "ERROR: boom\n", failed.ErrorMessage)

	// Failed runs are not shareable.
	_, err = bed.owner.Jobs.ShareResults(ctx, failed)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidUpdate))
}

func TestUnapprovedRunNeedsForce(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)

	job := bed.submitScript(t, sumScript, "census", "shell")

	_, _, err := bed.owner.Jobs.RunPrivate(ctx, job, client.RunConfig{Blocking: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidUpdate))

	forced, _, err := bed.owner.Jobs.RunPrivate(ctx, job, client.RunConfig{Blocking: true, Force: true})
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusRunFinished, forced.Status)
}

func TestRejectRecordsReason(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)

	job := bed.submitScript(t, sumScript, "census", "shell")
	rejected, err := bed.owner.Jobs.Reject(ctx, job, "loops over raw rows")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusRejected, rejected.Status)
	assert.Equal(t, "loops over raw rows", rejected.ErrorMessage)

	// Rejected is terminal.
	_, err = bed.owner.Jobs.Approve(ctx, rejected)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidUpdate))
}

func TestGuestCannotModerate(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)

	job := bed.submitScript(t, sumScript, "census", "shell")

	_, err := bed.guest.Jobs.Approve(ctx, job)
	assert.True(t, errors.Is(err, errdefs.ErrPermission))

	_, _, err = bed.guest.Jobs.RunPrivate(ctx, job, client.RunConfig{Blocking: true})
	assert.True(t, errors.Is(err, errdefs.ErrPermission), "runs are local to the owner")

	_, err = bed.guest.Datasets.Create(ctx, &types.DatasetCreate{
		Name: "sneaky", MockPath: t.TempDir(), PrivatePath: t.TempDir(),
	})
	assert.True(t, errors.Is(err, errdefs.ErrPermission))
}

func TestGuestsOnlySeeOwnJobs(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)
	other := bed.clientFor(t, "ds2@x")

	job := bed.submitScript(t, sumScript, "census", "shell")

	mine, err := bed.guest.Jobs.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := other.Jobs.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, theirs, "other guests do not see the job")

	_, err = other.Jobs.Get(ctx, job.UID)
	assert.True(t, errors.Is(err, errdefs.ErrPermission))

	all, err := bed.owner.Jobs.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1, "the owner sees everything")
}

func TestDeleteAllWithUnknownFilter(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)
	bed.submitScript(t, sumScript, "census", "shell")

	count, err := bed.owner.Jobs.DeleteAll(ctx, client.Filters{"no_such_field": "x"}, false)
	require.NoError(t, err)
	assert.Zero(t, count, "unknown filter fields match nothing")

	count, err = bed.owner.Jobs.DeleteAll(ctx, client.Filters{"dataset_name": "census"}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Orphaned code went with the last job.
	code, err := bed.owner.UserCode.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestDatasetDeleteRemovesBothTrees(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	ds := bed.publishDataset(t, "census")

	mockDir := bed.layout.MockDatasetDir("census")
	privateDir := bed.layout.PrivateDatasetDir("census")
	require.DirExists(t, mockDir)
	require.DirExists(t, privateDir)

	deleted, err := bed.owner.Datasets.Delete(ctx, ds.UID)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.NoDirExists(t, mockDir, "mock tree goes with the record")
	assert.NoDirExists(t, privateDir, "private tree goes with the record")

	_, err = bed.owner.Datasets.Get(ctx, "census")
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
}

func TestNonBlockingRunHandle(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)

	job := bed.submitScript(t, sumScript, "census", "shell")
	approved, err := bed.owner.Jobs.Approve(ctx, job)
	require.NoError(t, err)

	started, handle, err := bed.owner.Jobs.RunPrivate(ctx, approved, client.RunConfig{})
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, types.JobStatusInProgress, started.Status)

	finished, err := handle.Wait()
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusRunFinished, finished.Status)
	require.NotNil(t, finished.ReturnCode)
	assert.Equal(t, 0, *finished.ReturnCode)
}

func TestNonBlockingRunKill(t *testing.T) {
	ctx := context.Background()
	bed := newTestBed(t)
	bed.publishDataset(t, "census")
	bed.registerShellRuntime(t)

	job := bed.submitScript(t, "#!/bin/sh\nsleep 30\n", "census", "shell")
	approved, err := bed.owner.Jobs.Approve(ctx, job)
	require.NoError(t, err)

	_, handle, err := bed.owner.Jobs.RunPrivate(ctx, approved, client.RunConfig{})
	require.NoError(t, err)
	require.NotNil(t, handle)
	require.NoError(t, handle.Kill())

	killed, err := handle.Wait()
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusRunFailed, killed.Status)
	require.NotNil(t, killed.ReturnCode)
	assert.NotZero(t, *killed.ReturnCode)
}

func TestDatasetSchemaInference(t *testing.T) {
	bed := newTestBed(t)
	ds := bed.publishDataset(t, "census")

	assert.Equal(t, "integer", ds.Schema["id"])
	assert.Equal(t, "integer", ds.Schema["value"])
}

func TestHealth(t *testing.T) {
	bed := newTestBed(t)
	h, err := bed.guest.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}
