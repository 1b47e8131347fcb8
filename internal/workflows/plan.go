// SPDX-License-Identifier: Apache-2.0

package workflows

import (
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/internal/workflows/steps"
)

// BuildProvisionPlan assembles the ordered step sequence of a full run.
// Only configure-apt-sources is critical; any other failure is recorded
// and the run moves on.
func BuildProvisionPlan(rc steps.RunContext) []orchestrator.Step {
	return []orchestrator.Step{
		steps.SetTimezoneStep(rc),
		steps.ConfigureAptSourcesStep(rc),
		steps.RemoveSnapdStep(rc),
		steps.UpgradePackagesStep(rc),
		steps.CreateAdminUserStep(rc),
		steps.HardenSSHStep(rc),
		steps.HardenKernelStep(rc),
		steps.InstallDockerStep(rc),
	}
}
