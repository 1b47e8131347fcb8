// SPDX-License-Identifier: Apache-2.0

package detect

import (
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joomcode/errorx"
	"github.com/zcalusic/sysinfo"
)

var (
	ErrNamespace     = errorx.NewNamespace("detect")
	UnsupportedError = ErrNamespace.NewType("unsupported")
)

// minimum supported releases per distribution
var minVersions = map[string]string{
	"debian": "11",
	"ubuntu": "20.04",
}

// use var to allow mocking in tests
var osReleaseFile = "/etc/os-release"

// OSInfo describes the host operating system.
type OSInfo struct {
	Vendor       string `yaml:"vendor" json:"vendor"`
	Version      string `yaml:"version" json:"version"`
	Codename     string `yaml:"codename" json:"codename"`
	Kernel       string `yaml:"kernel" json:"kernel"`
	Hostname     string `yaml:"hostname" json:"hostname"`
	Architecture string `yaml:"architecture" json:"architecture"`
}

// Host inspects the running system. Requires root for full DMI access.
func Host() (*OSInfo, error) {
	var si sysinfo.SysInfo
	si.GetSysInfo()

	info := &OSInfo{
		Vendor:       strings.ToLower(si.OS.Vendor),
		Version:      si.OS.Version,
		Kernel:       si.Kernel.Release,
		Hostname:     si.Node.Hostname,
		Architecture: si.OS.Architecture,
	}

	codename, err := Codename()
	if err == nil {
		info.Codename = codename
	}
	return info, nil
}

// Supported returns an error unless vendor/version is a Debian or Ubuntu
// release the provisioning steps are known to work on.
func Supported(vendor, version string) error {
	minimum, ok := minVersions[strings.ToLower(vendor)]
	if !ok {
		return UnsupportedError.New("unsupported distribution %q, need one of debian, ubuntu", vendor)
	}

	have, err := semver.NewVersion(normalizeVersion(version))
	if err != nil {
		return UnsupportedError.Wrap(err, "cannot parse OS version %q", version)
	}
	want, err := semver.NewVersion(normalizeVersion(minimum))
	if err != nil {
		return UnsupportedError.Wrap(err, "cannot parse minimum version %q", minimum)
	}

	if have.LessThan(want) {
		return UnsupportedError.New("%s %s is below the minimum supported release %s", vendor, version, minimum)
	}
	return nil
}

// Codename returns VERSION_CODENAME from os-release, e.g. "bookworm".
func Codename() (string, error) {
	out, err := os.ReadFile(osReleaseFile)
	if err != nil {
		return "", UnsupportedError.Wrap(err, "cannot read %s", osReleaseFile)
	}

	for _, line := range strings.Split(string(out), "\n") {
		if value, found := strings.CutPrefix(line, "VERSION_CODENAME="); found {
			return strings.Trim(value, `"`), nil
		}
	}
	return "", UnsupportedError.New("no VERSION_CODENAME in %s", osReleaseFile)
}

// normalizeVersion strips trailing decorations like "12 (bookworm)" so the
// remainder parses as a semantic version.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, ' '); i > 0 {
		v = v[:i]
	}
	return v
}
