package datasite

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
)

const (
	// AppName is the application namespace inside a datasite.
	AppName = "rds"

	urlScheme          = "syft://"
	privateDatasetsDir = ".syftbox/private_datasets"
)

// Layout resolves well-known locations inside a datasite root. Owner is
// the email of the datasite owner; Root is the local directory the
// syncing filesystem manages.
type Layout struct {
	Root  string
	Owner string
}

// NewLayout builds a layout for a datasite root and owner email.
func NewLayout(root, owner string) Layout {
	return Layout{Root: root, Owner: owner}
}

// DatasiteDir is the synced tree of the given user.
func (l Layout) DatasiteDir(email string) string {
	return filepath.Join(l.Root, "datasites", email)
}

// PublicDatasetsDir holds the synced mock dataset trees.
func (l Layout) PublicDatasetsDir() string {
	return filepath.Join(l.DatasiteDir(l.Owner), "public", "datasets")
}

// MockDatasetDir is the synced mock tree of one dataset.
func (l Layout) MockDatasetDir(name string) string {
	return filepath.Join(l.PublicDatasetsDir(), name)
}

// PrivateDatasetDir is the never-synced private tree of one dataset.
// It lives outside the datasites tree entirely.
func (l Layout) PrivateDatasetDir(name string) string {
	return filepath.Join(l.Root, filepath.FromSlash(privateDatasetsDir), l.Owner, name)
}

// AppDir is the owner-local working directory of the rds app.
func (l Layout) AppDir() string {
	return filepath.Join(l.Root, "apps", AppName)
}

// StoreDir holds the entity records of one kind, one YAML file each.
func (l Layout) StoreDir(kind string) string {
	return filepath.Join(l.AppDir(), "store", kind)
}

// JobDir is the runner working directory of one job.
func (l Layout) JobDir(uid uuid.UUID) string {
	return filepath.Join(l.AppDir(), "jobs", uid.String())
}

// JobLogsDir holds the captured stdout/stderr streams of one job.
func (l Layout) JobLogsDir(uid uuid.UUID) string {
	return filepath.Join(l.JobDir(uid), "logs")
}

// JobOutputDir is the writable output directory of one job.
func (l Layout) JobOutputDir(uid uuid.UUID) string {
	return filepath.Join(l.JobDir(uid), "output")
}

// CodeDir is where an unpacked UserCode bundle lives.
func (l Layout) CodeDir(uid uuid.UUID) string {
	return filepath.Join(l.AppDir(), "code", uid.String())
}

// CustomFunctionDir is where an unpacked CustomFunction bundle lives.
func (l Layout) CustomFunctionDir(uid uuid.UUID) string {
	return filepath.Join(l.AppDir(), "functions", uid.String())
}

// RPCDir is the mailbox root of the owner's rds endpoints.
func (l Layout) RPCDir() string {
	return filepath.Join(l.DatasiteDir(l.Owner), "app_data", AppName, "rpc")
}

// EndpointDir is the mailbox directory of one endpoint.
func (l Layout) EndpointDir(endpoint string) string {
	return filepath.Join(l.RPCDir(), filepath.FromSlash(endpoint))
}

// SharedJobDir is the DS-readable artifact tree of one shared job.
func (l Layout) SharedJobDir(uid uuid.UUID) string {
	return filepath.Join(l.DatasiteDir(l.Owner), "app_data", AppName, "shared", "jobs", uid.String())
}

// MockDatasetURL is the syft:// URL of a dataset's mock tree.
func (l Layout) MockDatasetURL(name string) string {
	return URLFor(l.Owner, "public/datasets/"+name)
}

// PrivateDatasetURL is the syft:// URL of a dataset's private tree. The
// path is rooted outside the synced datasites tree.
func (l Layout) PrivateDatasetURL(name string) string {
	return URLFor(l.Owner, privateDatasetsDir+"/"+l.Owner+"/"+name)
}

// SharedJobURL is the syft:// URL of a job's shared artifact tree.
func (l Layout) SharedJobURL(uid uuid.UUID) string {
	return URLFor(l.Owner, "app_data/"+AppName+"/shared/jobs/"+uid.String())
}

// URLFor builds a syft:// URL for a path inside the user's datasite.
func URLFor(email, rel string) string {
	return urlScheme + email + "/" + strings.TrimPrefix(rel, "/")
}

// URLToPath resolves a syft:// URL to a local path under the layout
// root. Paths under .syftbox resolve against the root itself; anything
// else resolves inside the owner's synced datasite tree.
func (l Layout) URLToPath(url string) (string, error) {
	if !strings.HasPrefix(url, urlScheme) {
		return "", fmt.Errorf("not a syft url %q: %w", url, errdefs.ErrNotFound)
	}
	rest := strings.TrimPrefix(url, urlScheme)
	email, rel, found := strings.Cut(rest, "/")
	if !found || email == "" {
		return "", fmt.Errorf("malformed syft url %q: %w", url, errdefs.ErrNotFound)
	}
	if strings.HasPrefix(rel, ".syftbox/") {
		return filepath.Join(l.Root, filepath.FromSlash(rel)), nil
	}
	return filepath.Join(l.DatasiteDir(email), filepath.FromSlash(rel)), nil
}
