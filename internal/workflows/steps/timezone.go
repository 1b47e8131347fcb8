// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"os"
	"path"
	"time"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/network"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

// use var to allow mocking in tests
var zoneinfoDir = "/usr/share/zoneinfo"

const detectTimeout = 10 * time.Second

// SetTimezoneStep applies the chosen timezone, detecting one from the
// host's public IP when none was given. The detection round trip is a
// network action and goes through the retry engine.
func SetTimezoneStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name: "set-timezone",
		Operation: func(ctx context.Context) error {
			tz := rc.Ans.Timezone
			if tz == "" {
				detected, err := detectTimezone(ctx, rc)
				if err != nil {
					return err
				}
				tz = detected
			}

			if _, err := os.Stat(path.Join(zoneinfoDir, tz)); err != nil {
				return errorx.IllegalArgument.New("unknown timezone %q", tz)
			}

			logx.As().Info().Str("timezone", tz).Msg("Setting timezone")
			return RunCmd(ctx, "timedatectl", "set-timezone", tz)
		},
	}
}

func detectTimezone(ctx context.Context, rc RunContext) (string, error) {
	url := rc.Cfg.Timezone.DetectURL

	var tz string
	err := rc.Engine.Do(ctx, orchestrator.Unit{
		Command: "GET " + url,
		Run: func(ctx context.Context) error {
			detected, err := network.FetchString(ctx, url, detectTimeout)
			if err != nil {
				return err
			}
			tz = detected
			return nil
		},
	})
	if err != nil {
		return "", err
	}

	logx.As().Info().Str("timezone", tz).Msg("Detected timezone from public IP")
	return tz, nil
}
