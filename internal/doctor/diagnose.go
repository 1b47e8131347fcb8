// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/pkg/exit"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

// ErrPropertyResolution carries a human instruction for fixing the failure.
// Attach it at the point where the fix is known, read it here.
var ErrPropertyResolution = errorx.RegisterProperty("resolution")

// Diagnose prints a styled explanation of err with any attached resolution
// hint, followed by extra instruction lines.
func Diagnose(err error, instructions ...string) {
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "%s%sError:%s %s%s%s\n", Bold, Red, Reset, White, err.Error(), Reset)

	if resolution, ok := errorx.ExtractProperty(err, ErrPropertyResolution); ok {
		fmt.Fprintf(os.Stderr, "%sResolution:%s %s\n", Cyan, Reset, resolution)
	}

	for _, line := range instructions {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", Gray, line, Reset)
	}
}

// CheckErr diagnoses err and terminates the process when it is non-nil.
func CheckErr(ctx context.Context, err error, instructions ...string) {
	if err == nil {
		return
	}

	logx.As().Error().Ctx(ctx).Err(err).Msg("Terminating on error")
	Diagnose(err, instructions...)
	exit.GeneralError.TerminateProcess()
}
