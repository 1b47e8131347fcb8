// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"

	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
	"github.com/groundwork-sh/groundwork/pkg/pkgmgr"
)

// UpgradePackagesStep upgrades every installed package against the fresh
// index, then drops orphaned dependencies. apt reports transient fetch
// problems with exit status 100, which the retry engine picks up.
func UpgradePackagesStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name: "upgrade-packages",
		Operation: func(ctx context.Context) error {
			err := rc.Engine.Do(ctx, orchestrator.Unit{
				Command: "apt-get upgrade -y",
				Run: func(ctx context.Context) error {
					if err := pkgmgr.UpgradeAll(); err != nil {
						return WrapExitError("apt-get upgrade -y", err)
					}
					return nil
				},
			})
			if err != nil {
				return err
			}

			if err = pkgmgr.AutoRemove(); err != nil {
				// not worth failing the run over
				logx.As().Warn().Err(err).Msg("autoremove failed")
			}
			return nil
		},
	}
}
