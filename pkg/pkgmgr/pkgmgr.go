// SPDX-License-Identifier: Apache-2.0

package pkgmgr

import (
	"sync"

	"github.com/bluet/syspkg"
	"github.com/bluet/syspkg/manager"
	"github.com/joomcode/errorx"
)

var (
	ErrNamespace     = errorx.NewNamespace("pkgmgr")
	UnavailableError = ErrNamespace.NewType("unavailable")
	OperationError   = ErrNamespace.NewType("operation")
)

var (
	pkgManager syspkg.PackageManager
	once       sync.Once
)

// Get returns the system package manager, detected once per process.
func Get() (syspkg.PackageManager, error) {
	var initErr error
	once.Do(func() {
		sysPackageManager, err := syspkg.New(syspkg.IncludeOptions{AllAvailable: true})
		if err != nil {
			initErr = UnavailableError.Wrap(err, "failed to initialize package manager registry")
			return
		}

		// Let syspkg automatically detect the best available package manager
		pm, err := sysPackageManager.GetPackageManager("") // Empty string returns first available
		if err != nil {
			initErr = UnavailableError.Wrap(err, "no usable package manager found")
			return
		}

		pkgManager = pm
	})

	if pkgManager == nil && initErr == nil {
		initErr = UnavailableError.New("no usable package manager found")
	}
	return pkgManager, initErr
}

func defaultOptions() *manager.Options {
	return &manager.Options{DryRun: false, Interactive: false, AssumeYes: true}
}

// Refresh updates the package index, e.g. `apt-get update`.
func Refresh() error {
	pm, err := Get()
	if err != nil {
		return err
	}

	if err = pm.Refresh(defaultOptions()); err != nil {
		return OperationError.Wrap(err, "failed to refresh package index")
	}
	return nil
}

// Install installs the named packages non-interactively.
func Install(names ...string) error {
	pm, err := Get()
	if err != nil {
		return err
	}

	if _, err = pm.Install(names, defaultOptions()); err != nil {
		return OperationError.Wrap(err, "failed to install %v", names)
	}
	return nil
}

// Purge removes the named packages non-interactively.
func Purge(names ...string) error {
	pm, err := Get()
	if err != nil {
		return err
	}

	if _, err = pm.Delete(names, defaultOptions()); err != nil {
		return OperationError.Wrap(err, "failed to remove %v", names)
	}
	return nil
}

// AllUpgrader is implemented by package managers that can upgrade every
// installed package in one transaction.
type AllUpgrader interface {
	UpgradeAll(opts *manager.Options) ([]manager.PackageInfo, error)
}

// UpgradeAll upgrades all installed packages, e.g. `apt-get upgrade -y`.
func UpgradeAll() error {
	pm, err := Get()
	if err != nil {
		return err
	}

	upgrader, ok := pm.(AllUpgrader)
	if !ok {
		return OperationError.New("package manager does not support full upgrade")
	}

	if _, err = upgrader.UpgradeAll(defaultOptions()); err != nil {
		return OperationError.Wrap(err, "failed to upgrade packages")
	}
	return nil
}

// AutoRemover is implemented by package managers that support autoremove.
type AutoRemover interface {
	AutoRemove(opts *manager.Options) ([]manager.PackageInfo, error)
}

// AutoRemove removes orphaned dependencies to free disk space. This is
// equivalent to running `apt autoremove -y` on Debian-based systems.
func AutoRemove() error {
	pm, err := Get()
	if err != nil {
		return err
	}

	autoRemover, ok := pm.(AutoRemover)
	if !ok {
		return OperationError.New("package manager does not support autoremove")
	}

	if _, err = autoRemover.AutoRemove(defaultOptions()); err != nil {
		return OperationError.Wrap(err, "failed to autoremove packages")
	}
	return nil
}

// IsInstalled reports whether the named package is installed. Find is used
// instead of ListInstalled because the apt implementation of the latter
// does not distinguish a removed package with leftover config.
func IsInstalled(name string) (bool, error) {
	pm, err := Get()
	if err != nil {
		return false, err
	}

	resp, err := pm.Find([]string{name}, defaultOptions())
	if err != nil {
		return false, OperationError.Wrap(err, "failed to query package %s", name)
	}

	for _, pkg := range resp {
		if pkg.Name == name && pkg.Status == manager.PackageStatusInstalled {
			return true, nil
		}
	}
	return false, nil
}
