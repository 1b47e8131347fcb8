package sysctl

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joomcode/errorx"
	"github.com/lorenzosaino/go-sysctl"

	"github.com/groundwork-sh/groundwork/internal/core"
)

const (
	DefaultPath   = sysctl.DefaultPath
	EtcSysctlDir  = "/etc/sysctl.d"
	ConfFileName  = "99-groundwork.conf"
	EtcSysctlConf = "/etc/sysctl.conf"
)

// use var to allow mocking in tests
var (
	sysctlConfigDestinationDir = EtcSysctlDir
	procSysPath                = DefaultPath
)

// HardeningSettings is the kernel parameter set applied to every host.
func HardeningSettings() map[string]string {
	return map[string]string{
		"net.ipv4.conf.all.rp_filter":          "1",
		"net.ipv4.conf.default.rp_filter":      "1",
		"net.ipv4.tcp_syncookies":              "1",
		"net.ipv4.conf.all.accept_redirects":   "0",
		"net.ipv4.conf.all.send_redirects":     "0",
		"net.ipv4.conf.all.accept_source_route": "0",
		"net.ipv6.conf.all.accept_redirects":   "0",
		"kernel.kptr_restrict":                 "2",
		"kernel.dmesg_restrict":                "1",
		"fs.protected_hardlinks":               "1",
		"fs.protected_symlinks":                "1",
	}
}

// BackupSettings backs up the current values of the keys that hardening
// will modify. If the backup file already exists, it will not be
// overwritten. It returns the path to the backup file.
func BackupSettings(backupFile string) (string, error) {
	// if backup file already exists, do not overwrite
	if _, err := os.Stat(backupFile); err == nil {
		return backupFile, nil
	}

	current, err := CurrentCandidateSettings()
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		// important to have spaces around '=' for consistency with sysctl -a output
		lines = append(lines, k+" = "+current[k])
	}

	if err = os.MkdirAll(path.Dir(backupFile), core.DefaultDirOrExecPerm); err != nil {
		return "", err
	}
	if err = os.WriteFile(backupFile, []byte(strings.Join(lines, "\n")+"\n"), core.DefaultFilePerm); err != nil {
		return "", err
	}

	return backupFile, nil
}

// CurrentCandidateSettings returns the live values of the hardening keys.
// Keys absent on this kernel are skipped.
func CurrentCandidateSettings() (map[string]string, error) {
	currentSettings, err := sysctl.GetAll()
	if err != nil {
		return nil, err
	}

	current := make(map[string]string)
	for k := range HardeningSettings() {
		if v, ok := currentSettings[k]; ok {
			current[k] = v
		}
	}
	return current, nil
}

// WriteConfiguration renders the hardening set into the sysctl.d drop-in
// so the settings survive reboots. It returns the written file path.
func WriteConfiguration() (string, error) {
	settings := HardeningSettings()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + " = " + settings[k] + "\n")
	}

	if err := os.MkdirAll(sysctlConfigDestinationDir, core.DefaultDirOrExecPerm); err != nil {
		return "", err
	}

	dest := path.Join(sysctlConfigDestinationDir, ConfFileName)
	if err := os.WriteFile(dest, []byte(b.String()), core.DefaultFilePerm); err != nil {
		return "", err
	}
	return dest, nil
}

// ApplyConfiguration sets the live kernel parameters from the drop-in file.
func ApplyConfiguration(configFile string) error {
	config, err := sysctl.LoadConfig(configFile)
	if err != nil {
		return errorx.IllegalArgument.Wrap(err, "could not read configuration from %s", configFile)
	}
	for k, v := range config {
		if err := Set(k, v); err != nil {
			return errorx.InternalError.Wrap(err, "could not set %s = %s", k, v)
		}
	}
	return nil
}

// RestoreSettings restores the live values recorded in the given backup file.
func RestoreSettings(backupFile string) error {
	if _, err := os.Stat(backupFile); os.IsNotExist(err) {
		return os.ErrNotExist
	}
	return ApplyConfiguration(backupFile)
}

// Set updates the value of a sysctl.
func Set(key, value string) error {
	sysctlPath, err := PathFromKey(key)
	if err != nil {
		return err
	}

	if err := os.WriteFile(sysctlPath, []byte(value), 0o644); err != nil {
		return errorx.InternalError.Wrap(err, "failed to set %s", sysctlPath)
	}
	return nil
}

// PathFromKey returns the /proc/sys file path for a given key.
func PathFromKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "-")
	if key == "" {
		return "", errorx.IllegalArgument.New("key cannot be empty")
	}
	return filepath.Join(procSysPath, strings.ReplaceAll(key, ".", "/")), nil
}
