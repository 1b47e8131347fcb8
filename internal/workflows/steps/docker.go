// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/automa-saga/automa"
	"github.com/joomcode/errorx"
	"pault.ag/go/modprobe"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/network"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
	"github.com/groundwork-sh/groundwork/pkg/pkgmgr"
	"github.com/groundwork-sh/groundwork/pkg/systemd"
)

// use vars to allow mocking in tests
var (
	dockerKeyringFile = "/etc/apt/keyrings/docker.asc"
	dockerRepoFile    = "/etc/apt/sources.list.d/docker.list"
)

const downloadTimeout = 30 * time.Second

var dockerPackages = []string{
	"docker-ce",
	"docker-ce-cli",
	"containerd.io",
	"docker-buildx-plugin",
	"docker-compose-plugin",
}

// InstallDockerStep installs Docker from the upstream repository, loads the
// kernel modules it needs, enables the service and verifies the installed
// version against the configured minimum.
func InstallDockerStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name: "install-docker",
		Operation: func(ctx context.Context) error {
			if !rc.Ans.InstallDocker {
				logx.As().Info().Msg("Docker installation not requested, skipping")
				return nil
			}

			wf, err := automa.NewWorkflowBuilder().WithId("install-docker").Steps(
				installDockerPrereqsStep(rc),
				addDockerRepositoryStep(rc),
				installDockerPackagesStep(rc),
				loadKernelModulesStep(),
				enableDockerServiceStep(),
				verifyDockerVersionStep(rc),
			).Build()
			if err != nil {
				return err
			}

			if report := wf.Execute(ctx); report.Error != nil {
				return report.Error
			}
			return nil
		},
	}
}

func installDockerPrereqsStep(rc RunContext) automa.Builder {
	return automa.NewStepBuilder().WithId("install-docker-prereqs").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			err := rc.Engine.Do(ctx, orchestrator.Unit{
				Command: "apt-get install ca-certificates curl gnupg",
				Run: func(ctx context.Context) error {
					if err := pkgmgr.Install("ca-certificates", "curl", "gnupg"); err != nil {
						return WrapExitError("apt-get install ca-certificates curl gnupg", err)
					}
					return nil
				},
			})
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}
			return automa.SuccessReport(stp)
		}).
		WithPrepare(func(ctx context.Context, stp automa.Step) (context.Context, error) {
			logx.As().Info().Msg("Installing Docker prerequisites")
			return ctx, nil
		})
}

func addDockerRepositoryStep(rc RunContext) automa.Builder {
	return automa.NewStepBuilder().WithId("add-docker-repository").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			keyURL := fmt.Sprintf("https://download.docker.com/linux/%s/gpg", rc.OS.Vendor)

			if err := os.MkdirAll("/etc/apt/keyrings", core.DefaultDirOrExecPerm); err != nil {
				return automa.FailureReport(stp, automa.WithError(
					errorx.ExternalError.Wrap(err, "failed to create keyring directory")))
			}

			err := rc.Engine.Do(ctx, orchestrator.Unit{
				Command: "GET " + keyURL,
				Run: func(ctx context.Context) error {
					return network.Download(ctx, keyURL, dockerKeyringFile, downloadTimeout)
				},
			})
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}

			repo := fmt.Sprintf("deb [arch=%s signed-by=%s] https://download.docker.com/linux/%s %s stable\n",
				dpkgArch(), dockerKeyringFile, rc.OS.Vendor, rc.OS.Codename)
			if err = os.WriteFile(dockerRepoFile, []byte(repo), core.DefaultFilePerm); err != nil {
				return automa.FailureReport(stp, automa.WithError(
					errorx.ExternalError.Wrap(err, "failed to write %s", dockerRepoFile)))
			}

			err = rc.Engine.Do(ctx, orchestrator.Unit{
				Command: "apt-get update",
				Run: func(ctx context.Context) error {
					if err := pkgmgr.Refresh(); err != nil {
						return WrapExitError("apt-get update", err)
					}
					return nil
				},
			})
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}
			return automa.SuccessReport(stp)
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			logx.As().Error().Err(rpt.Error).Msg("Failed to add Docker repository")
		})
}

func installDockerPackagesStep(rc RunContext) automa.Builder {
	return automa.NewStepBuilder().WithId("install-docker-packages").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			err := rc.Engine.Do(ctx, orchestrator.Unit{
				Command: "apt-get install " + strings.Join(dockerPackages, " "),
				Run: func(ctx context.Context) error {
					if err := pkgmgr.Install(dockerPackages...); err != nil {
						return WrapExitError("apt-get install docker-ce", err)
					}
					return nil
				},
			})
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}
			return automa.SuccessReport(stp)
		}).
		WithPrepare(func(ctx context.Context, stp automa.Step) (context.Context, error) {
			logx.As().Info().Strs("packages", dockerPackages).Msg("Installing Docker packages")
			return ctx, nil
		})
}

func loadKernelModulesStep() automa.Builder {
	return automa.NewStepBuilder().WithId("load-kernel-modules").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			for _, module := range []string{"overlay", "br_netfilter"} {
				if err := modprobe.Load(module, ""); err != nil {
					return automa.FailureReport(stp, automa.WithError(
						errorx.ExternalError.Wrap(err, "failed to load kernel module %s", module)))
				}
			}
			return automa.SuccessReport(stp)
		})
}

func enableDockerServiceStep() automa.Builder {
	return automa.NewStepBuilder().WithId("enable-docker-service").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			if err := systemd.EnableService(ctx, "docker"); err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}
			if err := systemd.StartService(ctx, "docker"); err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}
			return automa.SuccessReport(stp)
		})
}

func verifyDockerVersionStep(rc RunContext) automa.Builder {
	return automa.NewStepBuilder().WithId("verify-docker-version").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			out, err := RunCmdOutput(ctx, "docker version --format '{{.Server.Version}}'")
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}

			installed, err := semver.NewVersion(out)
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(
					errorx.IllegalState.Wrap(err, "cannot parse docker version %q", out)))
			}
			minimum, err := semver.NewVersion(rc.Cfg.Docker.MinVersion)
			if err != nil {
				return automa.FailureReport(stp, automa.WithError(
					errorx.IllegalState.Wrap(err, "cannot parse minimum docker version %q", rc.Cfg.Docker.MinVersion)))
			}

			if installed.LessThan(minimum) {
				return automa.FailureReport(stp, automa.WithError(
					errorx.IllegalState.New("docker %s is below the required minimum %s", installed, minimum)))
			}

			logx.As().Info().Str("version", installed.String()).Msg("Docker installed and verified")
			return automa.SuccessReport(stp)
		})
}

// dpkgArch maps the Go architecture onto dpkg's name for it.
func dpkgArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "amd64"
	case "arm64":
		return "arm64"
	case "arm":
		return "armhf"
	default:
		return runtime.GOARCH
	}
}
