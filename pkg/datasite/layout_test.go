package datasite

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("/box", "do@x")

	assert.Equal(t, filepath.FromSlash("/box/datasites/do@x"), l.DatasiteDir("do@x"))
	assert.Equal(t, filepath.FromSlash("/box/datasites/do@x/public/datasets/census"), l.MockDatasetDir("census"))
	assert.Equal(t, filepath.FromSlash("/box/.syftbox/private_datasets/do@x/census"), l.PrivateDatasetDir("census"))
	assert.Equal(t, filepath.FromSlash("/box/apps/rds/store/job"), l.StoreDir("job"))
	assert.Equal(t, filepath.FromSlash("/box/datasites/do@x/app_data/rds/rpc/job/create"), l.EndpointDir("job/create"))

	uid := uuid.New()
	assert.Equal(t, filepath.Join(l.JobDir(uid), "logs"), l.JobLogsDir(uid))
	assert.Equal(t, filepath.Join(l.JobDir(uid), "output"), l.JobOutputDir(uid))
}

func TestPrivateTreeOutsideSyncedTree(t *testing.T) {
	l := NewLayout("/box", "do@x")
	private := l.PrivateDatasetDir("census")
	synced := l.DatasiteDir("do@x")

	rel, err := filepath.Rel(synced, private)
	require.NoError(t, err)
	assert.Contains(t, rel, "..", "private data must not live under the synced tree")
}

func TestDatasetURLs(t *testing.T) {
	l := NewLayout("/box", "do@x")

	assert.Equal(t, "syft://do@x/public/datasets/census", l.MockDatasetURL("census"))
	assert.Equal(t, "syft://do@x/.syftbox/private_datasets/do@x/census", l.PrivateDatasetURL("census"))
}

func TestURLToPathRoundTrip(t *testing.T) {
	l := NewLayout("/box", "do@x")

	mock, err := l.URLToPath(l.MockDatasetURL("census"))
	require.NoError(t, err)
	assert.Equal(t, l.MockDatasetDir("census"), mock)

	private, err := l.URLToPath(l.PrivateDatasetURL("census"))
	require.NoError(t, err)
	assert.Equal(t, l.PrivateDatasetDir("census"), private)

	uid := uuid.New()
	shared, err := l.URLToPath(l.SharedJobURL(uid))
	require.NoError(t, err)
	assert.Equal(t, l.SharedJobDir(uid), shared)
}

func TestURLToPathRejectsForeign(t *testing.T) {
	l := NewLayout("/box", "do@x")

	_, err := l.URLToPath("https://example.com/x")
	assert.Error(t, err)

	_, err = l.URLToPath("syft://")
	assert.Error(t, err)
}
