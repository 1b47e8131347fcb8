// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/inputs"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
	"github.com/groundwork-sh/groundwork/pkg/systemd"
)

// use vars to allow mocking in tests
var (
	sshdConfigFile = "/etc/ssh/sshd_config"
	sshdDropInDir  = "/etc/ssh/sshd_config.d"
)

const sshdDropInName = "60-groundwork.conf"

// HardenSSHStep writes the hardening drop-in, validates the combined
// configuration with `sshd -t` and only then restarts the daemon. When
// validation rejects the drop-in it is removed again, so the running
// daemon never sees a broken config.
func HardenSSHStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name: "harden-ssh",
		Operation: func(ctx context.Context) error {
			if _, err := rc.Backups.Save(sshdConfigFile); err != nil && !errorx.HasTrait(err, errorx.NotFound()) {
				return err
			}

			if err := os.MkdirAll(sshdDropInDir, core.DefaultDirOrExecPerm); err != nil {
				return errorx.ExternalError.Wrap(err, "failed to create %s", sshdDropInDir)
			}

			dropIn := path.Join(sshdDropInDir, sshdDropInName)
			doc := renderSSHDropIn(rc.Ans)
			if err := os.WriteFile(dropIn, []byte(doc), core.DefaultFilePerm); err != nil {
				return errorx.ExternalError.Wrap(err, "failed to write %s", dropIn)
			}

			if err := RunCmd(ctx, "sshd", "-t"); err != nil {
				if rmErr := os.Remove(dropIn); rmErr != nil {
					logx.As().Warn().Err(rmErr).Msg("Could not remove rejected drop-in")
				}
				return errorx.Decorate(err, "sshd rejected the hardened configuration")
			}

			return restartSSHD(ctx)
		},
	}
}

// renderSSHDropIn builds the hardening drop-in. Password logins are only
// disabled when a key-equipped admin user exists, so the step can never
// lock the operator out.
func renderSSHDropIn(ans inputs.Answers) string {
	var b strings.Builder
	if ans.SSHPort != 0 {
		fmt.Fprintf(&b, "Port %d\n", ans.SSHPort)
	}

	if ans.AdminUser != "" && ans.AuthorizedKey != "" {
		b.WriteString("PermitRootLogin no\n")
		b.WriteString("PasswordAuthentication no\n")
	} else {
		b.WriteString("PermitRootLogin prohibit-password\n")
	}

	b.WriteString("X11Forwarding no\n")
	b.WriteString("MaxAuthTries 3\n")
	b.WriteString("ClientAliveInterval 300\n")
	b.WriteString("ClientAliveCountMax 2\n")
	return b.String()
}

// restartSSHD handles the unit name split between distributions, where the
// daemon is "ssh" on Debian and "sshd" elsewhere.
var restartSSHD = func(ctx context.Context) error {
	err := systemd.RestartService(ctx, "ssh")
	if err == nil {
		return nil
	}
	if retryErr := systemd.RestartService(ctx, "sshd"); retryErr == nil {
		return nil
	}
	return err
}
