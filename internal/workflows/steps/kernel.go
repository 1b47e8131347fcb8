// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"path"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/internal/sysctl"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

// HardenKernelStep persists the kernel hardening set under /etc/sysctl.d
// and applies it to the running kernel. The pre-change values are backed up
// first; an apply failure restores them.
func HardenKernelStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name: "harden-kernel",
		Operation: func(ctx context.Context) error {
			backupFile := path.Join(core.Paths().BackupDir, "sysctl.backup")
			if _, err := sysctl.BackupSettings(backupFile); err != nil {
				return err
			}

			dest, err := sysctl.WriteConfiguration()
			if err != nil {
				return err
			}

			if err = sysctl.ApplyConfiguration(dest); err != nil {
				if restoreErr := sysctl.RestoreSettings(backupFile); restoreErr != nil {
					logx.As().Warn().Err(restoreErr).Msg("Could not restore previous kernel parameters")
				}
				return err
			}

			logx.As().Info().Str("config", dest).Msg("Kernel parameters hardened")
			return nil
		},
	}
}
