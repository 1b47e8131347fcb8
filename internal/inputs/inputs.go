// SPDX-License-Identifier: Apache-2.0

package inputs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/config"
)

var (
	ErrNamespace = errorx.NewNamespace("inputs")
	InvalidError = ErrNamespace.NewType("invalid")
)

var usernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// use var to allow stubbing the interactive form in tests
var runForm = func(f *huh.Form) error {
	return f.Run()
}

// Answers holds every user-provided input of a run. They are collected
// up front, before the first step executes, and are immutable afterwards.
type Answers struct {
	// Timezone is an IANA name. Empty means detect from the public IP.
	Timezone string

	// SSHPort is the hardened listener port. Zero keeps the current port.
	SSHPort int

	// AdminUser is the sudo user to create. Empty skips the user step.
	AdminUser string

	// AuthorizedKey is the SSH public key installed for AdminUser.
	AuthorizedKey string

	InstallDocker bool
}

// Collect resolves all answers from the configuration, prompting only for
// the ones the configuration leaves open. With NonInteractive set, nothing
// is prompted and open inputs keep their zero values.
func Collect(cfg config.Config) (Answers, error) {
	ans := Answers{
		Timezone:      cfg.Timezone.Default,
		SSHPort:       cfg.SSH.Port,
		AdminUser:     cfg.User.Name,
		AuthorizedKey: cfg.User.AuthorizedKey,
		InstallDocker: true,
	}

	if !cfg.NonInteractive {
		if err := prompt(cfg, &ans); err != nil {
			return Answers{}, err
		}
	}

	if err := ans.Validate(cfg); err != nil {
		return Answers{}, err
	}
	return ans, nil
}

// Validate rejects answers the provisioning steps cannot honor.
func (a Answers) Validate(cfg config.Config) error {
	if a.SSHPort != 0 && (a.SSHPort < cfg.SSH.PortMin || a.SSHPort > cfg.SSH.PortMax) {
		return InvalidError.New("ssh port %d is outside [%d, %d]", a.SSHPort, cfg.SSH.PortMin, cfg.SSH.PortMax)
	}
	if a.AdminUser != "" && !usernamePattern.MatchString(a.AdminUser) {
		return InvalidError.New("invalid username %q", a.AdminUser)
	}
	if a.AdminUser != "" && !validPublicKey(a.AuthorizedKey) {
		return InvalidError.New("an SSH public key is required for user %s", a.AdminUser)
	}
	return nil
}

// prompt asks only for answers the configuration did not supply.
func prompt(cfg config.Config, ans *Answers) error {
	var fields []huh.Field

	if ans.Timezone == "" {
		fields = append(fields, huh.NewInput().
			Title("Timezone").
			Description("IANA name, e.g. Europe/Berlin. Leave empty to detect from your public IP.").
			Value(&ans.Timezone))
	}

	var port string
	if ans.SSHPort == 0 {
		fields = append(fields, huh.NewInput().
			Title("SSH port").
			Description("Leave empty to keep the current port.").
			Validate(func(s string) error {
				_, err := parsePort(s, cfg)
				return err
			}).
			Value(&port))
	}

	if ans.AdminUser == "" {
		fields = append(fields, huh.NewInput().
			Title("Admin username").
			Description("Leave empty to skip creating an admin user.").
			Validate(func(s string) error {
				if s != "" && !usernamePattern.MatchString(s) {
					return InvalidError.New("invalid username %q", s)
				}
				return nil
			}).
			Value(&ans.AdminUser))
	}

	if ans.AuthorizedKey == "" {
		fields = append(fields, huh.NewText().
			Title("SSH public key").
			Description("Installed as the admin user's authorized key.").
			Value(&ans.AuthorizedKey))
	}

	fields = append(fields, huh.NewConfirm().
		Title("Install Docker?").
		Value(&ans.InstallDocker))

	if err := runForm(huh.NewForm(huh.NewGroup(fields...))); err != nil {
		return InvalidError.Wrap(err, "input collection aborted")
	}

	if port != "" {
		p, err := parsePort(port, cfg)
		if err != nil {
			return err
		}
		ans.SSHPort = p
	}
	ans.AuthorizedKey = strings.TrimSpace(ans.AuthorizedKey)
	return nil
}

func parsePort(s string, cfg config.Config) (int, error) {
	if s == "" {
		return 0, nil
	}
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, InvalidError.New("port must be a number, got %q", s)
	}
	if p < cfg.SSH.PortMin || p > cfg.SSH.PortMax {
		return 0, InvalidError.New("port %d is outside [%d, %d]", p, cfg.SSH.PortMin, cfg.SSH.PortMax)
	}
	return p, nil
}

func validPublicKey(key string) bool {
	key = strings.TrimSpace(key)
	for _, prefix := range []string{"ssh-ed25519 ", "ssh-rsa ", "ecdsa-sha2-", "sk-ssh-"} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
