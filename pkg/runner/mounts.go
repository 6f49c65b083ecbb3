package runner

import (
	"sync"

	"github.com/OpenMined/syft-rds/pkg/types"
)

// Mount is one extra bind mount added to a container run.
type Mount struct {
	Source string
	Target string
	// Mode is the docker volume mode, "ro" or "rw".
	Mode string
}

// MountProvider contributes app-specific mounts for docker runtimes
// whose config names the app.
type MountProvider interface {
	Mounts(cfg *types.JobConfig) []Mount
}

var (
	mountMu        sync.RWMutex
	mountProviders = map[string]MountProvider{}
)

// RegisterMountProvider installs a provider under an app name. Later
// registrations for the same name win.
func RegisterMountProvider(appName string, p MountProvider) {
	mountMu.Lock()
	defer mountMu.Unlock()
	mountProviders[appName] = p
}

func mountProviderFor(appName string) MountProvider {
	mountMu.RLock()
	defer mountMu.RUnlock()
	return mountProviders[appName]
}
