// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/network"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
	"github.com/groundwork-sh/groundwork/pkg/pkgmgr"
)

// use var to allow mocking in tests
var aptSourcesFile = "/etc/apt/sources.list"

// ConfigureAptSourcesStep probes the mirror candidates, points the APT
// sources at the fastest responder and refreshes the package index. The
// step is critical: every later package operation depends on a working
// index, so its failure halts the run.
func ConfigureAptSourcesStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name:     "configure-apt-sources",
		Critical: true,
		Operation: func(ctx context.Context) error {
			probeTimeout := time.Duration(rc.Cfg.Mirror.ProbeTimeoutSeconds) * time.Second

			var mirror string
			err := rc.Engine.Do(ctx, orchestrator.Unit{
				Command: "HEAD " + strings.Join(rc.Cfg.Mirror.Candidates, " "),
				Run: func(ctx context.Context) error {
					fastest, err := network.ProbeFastest(ctx, rc.Cfg.Mirror.Candidates, probeTimeout)
					if err != nil {
						return err
					}
					mirror = fastest
					return nil
				},
			})
			if err != nil {
				return err
			}

			if _, err = rc.Backups.Save(aptSourcesFile); err != nil && !errorx.HasTrait(err, errorx.NotFound()) {
				return err
			}

			doc := renderSources(rc.OS.Vendor, rc.OS.Codename, mirror)
			if err = os.WriteFile(aptSourcesFile, []byte(doc), core.DefaultFilePerm); err != nil {
				return errorx.ExternalError.Wrap(err, "failed to write %s", aptSourcesFile)
			}
			logx.As().Info().Str("mirror", mirror).Msg("APT sources configured")

			return rc.Engine.Do(ctx, orchestrator.Unit{
				Command: "apt-get update",
				Run: func(ctx context.Context) error {
					if err := pkgmgr.Refresh(); err != nil {
						return WrapExitError("apt-get update", err)
					}
					return nil
				},
			})
		},
	}
}

// renderSources builds a sources.list for the detected distribution with
// release, updates and security suites.
func renderSources(vendor, codename, mirror string) string {
	components := "main contrib non-free non-free-firmware"
	security := "http://security.debian.org/debian-security"
	if vendor == "ubuntu" {
		components = "main restricted universe multiverse"
		security = "http://security.ubuntu.com/ubuntu"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "deb %s %s %s\n", mirror, codename, components)
	fmt.Fprintf(&b, "deb %s %s-updates %s\n", mirror, codename, components)
	fmt.Fprintf(&b, "deb %s %s-security %s\n", security, codename, components)
	return b.String()
}
