// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

const (
	// DefaultConfigFile is read when no --config flag is given.
	DefaultConfigFile = "/etc/groundwork/config.yaml"

	envPrefix = "GROUNDWORK"
)

// RetryConfig controls how network-classified failures are retried.
type RetryConfig struct {
	// MaxRetries is the number of re-invocations after the initial attempt.
	MaxRetries uint64 `yaml:"maxRetries" json:"maxRetries"`
	// Policy selects the backoff curve, "exponential" or "linear".
	Policy string `yaml:"policy" json:"policy"`
	// BaseWaitSeconds is the first wait of the backoff curve.
	BaseWaitSeconds int `yaml:"baseWaitSeconds" json:"baseWaitSeconds"`
}

// TimezoneConfig controls the timezone step.
type TimezoneConfig struct {
	// Default is applied without any prompt or lookup when set.
	Default string `yaml:"default" json:"default"`
	// DetectURL returns the IANA timezone of the caller's public IP as a
	// plain text body.
	DetectURL string `yaml:"detectUrl" json:"detectUrl"`
}

// MirrorConfig controls APT mirror selection.
type MirrorConfig struct {
	Candidates          []string `yaml:"candidates" json:"candidates"`
	ProbeTimeoutSeconds int      `yaml:"probeTimeoutSeconds" json:"probeTimeoutSeconds"`
}

// SSHConfig bounds the hardening step.
type SSHConfig struct {
	PortMin int `yaml:"portMin" json:"portMin"`
	PortMax int `yaml:"portMax" json:"portMax"`
	// Port is the listener port to configure. Zero means prompt.
	Port int `yaml:"port" json:"port"`
}

// UserConfig pre-answers the admin user step.
type UserConfig struct {
	Name          string `yaml:"name" json:"name"`
	AuthorizedKey string `yaml:"authorizedKey" json:"authorizedKey"`
}

// BackupConfig controls retention of configuration backups.
type BackupConfig struct {
	RetentionDays int `yaml:"retentionDays" json:"retentionDays"`
}

// DockerConfig gates the container runtime step.
type DockerConfig struct {
	MinVersion string `yaml:"minVersion" json:"minVersion"`
}

// Config is the root configuration document.
type Config struct {
	Log      logx.LoggingConfig `yaml:"log" json:"log"`
	Retry    RetryConfig        `yaml:"retry" json:"retry"`
	Timezone TimezoneConfig     `yaml:"timezone" json:"timezone"`
	Mirror   MirrorConfig       `yaml:"mirror" json:"mirror"`
	SSH      SSHConfig          `yaml:"ssh" json:"ssh"`
	User     UserConfig         `yaml:"user" json:"user"`
	Backup   BackupConfig       `yaml:"backup" json:"backup"`
	Docker   DockerConfig       `yaml:"docker" json:"docker"`

	// NonInteractive suppresses all prompts; unanswered inputs fall back to
	// configured values or defaults.
	NonInteractive bool `yaml:"nonInteractive" json:"nonInteractive"`
}

// Default returns the configuration written to a fresh host.
func Default() Config {
	return Config{
		Log: logx.LoggingConfig{
			Level:          "info",
			ConsoleLogging: true,
			FileLogging:    true,
			Directory:      core.Paths().LogsDir,
			Filename:       "groundwork.log",
			MaxSize:        10,
			MaxBackups:     5,
			MaxAge:         30,
		},
		Retry: RetryConfig{
			MaxRetries:      3,
			Policy:          "exponential",
			BaseWaitSeconds: 5,
		},
		Timezone: TimezoneConfig{
			DetectURL: "https://ipapi.co/timezone",
		},
		Mirror: MirrorConfig{
			Candidates: []string{
				"https://deb.debian.org/debian",
				"https://ftp.de.debian.org/debian",
				"https://mirrors.kernel.org/debian",
			},
			ProbeTimeoutSeconds: 5,
		},
		SSH: SSHConfig{
			PortMin: 1024,
			PortMax: 65535,
		},
		Backup: BackupConfig{
			RetentionDays: 30,
		},
		Docker: DockerConfig{
			MinVersion: "24.0.0",
		},
	}
}

var current = Default()

// Get returns the configuration loaded by Initialize, or the defaults when
// Initialize has not run.
func Get() Config {
	return current
}

// Initialize loads the configuration from configFile, creating it with
// defaults when it does not exist. Environment variables prefixed with
// GROUNDWORK_ override file values, e.g. GROUNDWORK_RETRY_MAXRETRIES.
func Initialize(configFile string) (Config, error) {
	if configFile == "" {
		configFile = DefaultConfigFile
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = writeDefaults(configFile); err != nil {
			// read-only location, run on defaults
			logx.As().Warn().Err(err).Msg("Could not write default configuration, using built-in defaults")
			return current, nil
		}
	}

	viper.SetConfigFile(configFile)
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return Config{}, NotFoundError.Wrap(err, "failed to read config file %s", configFile)
	}

	cfg := Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, InvalidError.Wrap(err, "failed to parse config file %s", configFile)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	current = cfg
	return cfg, nil
}

// Validate rejects values the provisioning steps cannot honor.
func (c Config) Validate() error {
	switch c.Retry.Policy {
	case "exponential", "linear":
	default:
		return InvalidError.New("unknown retry policy %q", c.Retry.Policy)
	}
	if c.Retry.BaseWaitSeconds < 1 {
		return InvalidError.New("retry base wait must be at least 1 second, got %d", c.Retry.BaseWaitSeconds)
	}
	if c.SSH.PortMin < 1 || c.SSH.PortMax > 65535 || c.SSH.PortMin > c.SSH.PortMax {
		return InvalidError.New("ssh port bounds [%d, %d] are invalid", c.SSH.PortMin, c.SSH.PortMax)
	}
	if c.SSH.Port != 0 && (c.SSH.Port < c.SSH.PortMin || c.SSH.Port > c.SSH.PortMax) {
		return InvalidError.New("ssh port %d is outside [%d, %d]", c.SSH.Port, c.SSH.PortMin, c.SSH.PortMax)
	}
	if c.Backup.RetentionDays < 0 {
		return InvalidError.New("backup retention must not be negative, got %d", c.Backup.RetentionDays)
	}
	if len(c.Mirror.Candidates) == 0 {
		return InvalidError.New("at least one mirror candidate is required")
	}
	return nil
}

func writeDefaults(configFile string) error {
	if err := os.MkdirAll(path.Dir(configFile), core.DefaultDirOrExecPerm); err != nil {
		return InvalidError.Wrap(err, "failed to create config directory for %s", configFile)
	}

	out, err := yaml.Marshal(Default())
	if err != nil {
		return InvalidError.Wrap(err, "failed to render default config")
	}

	if err = os.WriteFile(configFile, out, core.DefaultFilePerm); err != nil {
		return InvalidError.Wrap(err, "failed to write default config to %s", configFile)
	}

	logx.As().Info().Str("path", configFile).Msg("Wrote default configuration")
	return nil
}
