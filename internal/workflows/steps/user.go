// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"os"
	"os/user"
	"path"
	"strconv"
	"strings"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

// CreateAdminUserStep creates the sudo-capable admin user and installs the
// authorized SSH key. Skipped when no username was provided.
func CreateAdminUserStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name: "create-admin-user",
		Operation: func(ctx context.Context) error {
			name := rc.Ans.AdminUser
			if name == "" {
				logx.As().Info().Msg("No admin user requested, skipping")
				return nil
			}

			if _, err := user.Lookup(name); err == nil {
				logx.As().Info().Str("user", name).Msg("User already exists")
			} else {
				if err = RunCmd(ctx, "useradd", "--create-home", "--shell", "/bin/bash", name); err != nil {
					return err
				}
				logx.As().Info().Str("user", name).Msg("User created")
			}

			if err := RunCmd(ctx, "usermod", "-aG", "sudo", name); err != nil {
				return err
			}

			return installAuthorizedKey(name, rc.Ans.AuthorizedKey)
		},
	}
}

// installAuthorizedKey appends key to the user's authorized_keys unless it
// is already there, fixing up ownership and permissions on the way.
func installAuthorizedKey(username, key string) error {
	u, err := user.Lookup(username)
	if err != nil {
		return errorx.IllegalState.Wrap(err, "user %s not found after creation", username)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return errorx.IllegalState.Wrap(err, "unexpected uid %q", u.Uid)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return errorx.IllegalState.Wrap(err, "unexpected gid %q", u.Gid)
	}

	sshDir := path.Join(u.HomeDir, ".ssh")
	if err = os.MkdirAll(sshDir, 0o700); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to create %s", sshDir)
	}
	if err = os.Chown(sshDir, uid, gid); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to chown %s", sshDir)
	}

	keysFile := path.Join(sshDir, "authorized_keys")
	existing, err := os.ReadFile(keysFile)
	if err != nil && !os.IsNotExist(err) {
		return errorx.ExternalError.Wrap(err, "failed to read %s", keysFile)
	}

	key = strings.TrimSpace(key)
	if strings.Contains(string(existing), key) {
		logx.As().Info().Str("user", username).Msg("Authorized key already installed")
		return nil
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += key + "\n"

	if err = os.WriteFile(keysFile, []byte(content), 0o600); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to write %s", keysFile)
	}
	if err = os.Chown(keysFile, uid, gid); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to chown %s", keysFile)
	}

	logx.As().Info().Str("user", username).Msg("Authorized key installed")
	return nil
}
