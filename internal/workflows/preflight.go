// SPDX-License-Identifier: Apache-2.0

package workflows

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/automa-saga/automa"
	"github.com/jaypipes/ghw"
	"github.com/joomcode/errorx"
	"golang.org/x/sys/unix"

	"github.com/groundwork-sh/groundwork/internal/doctor"
	"github.com/groundwork-sh/groundwork/internal/network"
	"github.com/groundwork-sh/groundwork/internal/workflows/notify"
	"github.com/groundwork-sh/groundwork/pkg/detect"
	"github.com/groundwork-sh/groundwork/pkg/logx"
	"github.com/groundwork-sh/groundwork/pkg/pkgmgr"
)

const (
	minMemoryBytes   = 1 << 30     // 1 GiB
	minRootFreeBytes = 2 * 1 << 30 // 2 GiB
)

// NewPreflightWorkflow validates that the host can be provisioned at all.
// A failed check here means no provisioning step has run yet and nothing
// needs cleanup.
func NewPreflightWorkflow() *automa.WorkflowBuilder {
	return automa.NewWorkflowBuilder().WithId("preflight").Steps(
		CheckPrivilegesStep(),
		CheckOSStep(),
		CheckPackageManagerStep(),
		CheckNetworkStep(),
		CheckResourcesStep(),
	)
}

// CheckNetworkStep validates that the host has an outbound route, which the
// mirror probe, timezone lookup and package downloads all depend on.
func CheckNetworkStep() automa.Builder {
	return automa.NewStepBuilder().WithId("validate-network").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			ip, err := network.GetMachineIP()
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(
					errorx.Decorate(err, "host has no outbound network route")))
			}

			logx.As().Info().Str("machine_ip", ip).Msg("Outbound network validated")
			return automa.SuccessReport(stp)
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepFailure(ctx, stp, rpt, "Network validation failed")
		})
}

// CheckPrivilegesStep validates that the current user has superuser privileges
func CheckPrivilegesStep() automa.Builder {
	return automa.NewStepBuilder().WithId("validate-privileges").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			current, err := user.Current()
			if err != nil {
				return automa.FailureReport(stp,
					automa.WithError(errorx.IllegalState.Wrap(err, "failed to get current user")))
			}

			if current.Uid != "0" {
				return automa.FailureReport(stp,
					automa.WithError(
						errorx.IllegalState.New("requires superuser privilege").
							WithProperty(doctor.ErrPropertyResolution,
								fmt.Sprintf("Run the command with 'sudo' or as root user: `sudo %s`",
									strings.Join(os.Args, " ")))))
			}

			logx.As().Info().Msg("Superuser privilege validated")
			return automa.SuccessReport(stp)
		}).
		WithPrepare(func(ctx context.Context, stp automa.Step) (context.Context, error) {
			notify.As().StepStart(ctx, stp, "Starting privilege validation")
			return ctx, nil
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepFailure(ctx, stp, rpt, "Privilege validation failed")
		}).
		WithOnCompletion(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepCompletion(ctx, stp, rpt, "Privilege validation step completed successfully")
		})
}

// CheckOSStep validates that the host runs a supported Debian or Ubuntu release
func CheckOSStep() automa.Builder {
	return automa.NewStepBuilder().WithId("validate-os").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			info, err := detect.Host()
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}

			if err = detect.Supported(info.Vendor, info.Version); err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}

			logx.As().Info().
				Str("vendor", info.Vendor).
				Str("version", info.Version).
				Str("codename", info.Codename).
				Msg("OS validated")
			return automa.SuccessReport(stp)
		}).
		WithPrepare(func(ctx context.Context, stp automa.Step) (context.Context, error) {
			notify.As().StepStart(ctx, stp, "Starting OS validation")
			return ctx, nil
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepFailure(ctx, stp, rpt, "OS validation failed")
		}).
		WithOnCompletion(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepCompletion(ctx, stp, rpt, "OS validation step completed successfully")
		})
}

// CheckPackageManagerStep validates that a usable package manager is present
func CheckPackageManagerStep() automa.Builder {
	return automa.NewStepBuilder().WithId("validate-package-manager").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			if _, err := pkgmgr.Get(); err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}
			logx.As().Info().Msg("Package manager validated")
			return automa.SuccessReport(stp)
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepFailure(ctx, stp, rpt, "Package manager validation failed")
		})
}

// CheckResourcesStep validates that memory and root filesystem headroom are
// sufficient for package upgrades and the Docker install.
func CheckResourcesStep() automa.Builder {
	return automa.NewStepBuilder().WithId("validate-resources").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			mem, err := ghw.Memory()
			if err != nil {
				return automa.FailureReport(stp,
					automa.WithError(errorx.ExternalError.Wrap(err, "failed to inspect memory")))
			}
			if mem.TotalPhysicalBytes < minMemoryBytes {
				return automa.FailureReport(stp,
					automa.WithError(errorx.IllegalState.New(
						"insufficient memory: %d bytes, need at least %d", mem.TotalPhysicalBytes, minMemoryBytes)))
			}

			var stat unix.Statfs_t
			if err = unix.Statfs("/", &stat); err != nil {
				return automa.FailureReport(stp,
					automa.WithError(errorx.ExternalError.Wrap(err, "failed to stat root filesystem")))
			}
			free := stat.Bavail * uint64(stat.Bsize)
			if free < minRootFreeBytes {
				return automa.FailureReport(stp,
					automa.WithError(errorx.IllegalState.New(
						"insufficient free space on /: %d bytes, need at least %d", free, minRootFreeBytes).
						WithProperty(doctor.ErrPropertyResolution,
							"Free up disk space on the root filesystem and run again")))
			}

			logx.As().Info().
				Int64("memory_bytes", mem.TotalPhysicalBytes).
				Uint64("root_free_bytes", free).
				Msg("Host resources validated")
			return automa.SuccessReport(stp)
		}).
		WithPrepare(func(ctx context.Context, stp automa.Step) (context.Context, error) {
			notify.As().StepStart(ctx, stp, "Starting resource validation")
			return ctx, nil
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepFailure(ctx, stp, rpt, "Resource validation failed")
		}).
		WithOnCompletion(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			notify.As().StepCompletion(ctx, stp, rpt, "Resource validation step completed successfully")
		})
}
