// SPDX-License-Identifier: Apache-2.0

package workflows

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/joomcode/errorx"
	"gopkg.in/yaml.v3"

	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/doctor"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
)

type stepReport struct {
	Step     string `yaml:"step"`
	Status   string `yaml:"status"`
	Class    string `yaml:"class,omitempty"`
	Code     int    `yaml:"code,omitempty"`
	Error    string `yaml:"error,omitempty"`
	Duration string `yaml:"duration"`
}

type runReport struct {
	Outcome     string       `yaml:"outcome"`
	Halted      bool         `yaml:"halted,omitempty"`
	Duration    string       `yaml:"duration"`
	FailedSteps []string     `yaml:"failedSteps,omitempty"`
	Ledger      string       `yaml:"ledger,omitempty"`
	Steps       []stepReport `yaml:"steps"`
}

// SaveRunReport renders the run summary to a timestamped YAML file in the
// logs directory and returns its path.
func SaveRunReport(summary *orchestrator.Summary) (string, error) {
	out, err := yaml.Marshal(buildRunReport(summary))
	if err != nil {
		return "", errorx.InternalError.Wrap(err, "failed to render run report")
	}

	if err = os.MkdirAll(core.Paths().LogsDir, core.DefaultDirOrExecPerm); err != nil {
		return "", errorx.ExternalError.Wrap(err, "failed to create logs directory")
	}

	timestamp := time.Now().Format("20060102_150405")
	reportPath := path.Join(core.Paths().LogsDir, fmt.Sprintf("provision_report_%s.yaml", timestamp))
	if err = os.WriteFile(reportPath, out, core.DefaultFilePerm); err != nil {
		return "", errorx.ExternalError.Wrap(err, "failed to write %s", reportPath)
	}
	return reportPath, nil
}

// PrintRunSummary writes a human summary of the run to stdout.
func PrintRunSummary(summary *orchestrator.Summary) {
	fmt.Println()
	for _, res := range summary.Results {
		if res.Success() {
			fmt.Printf("  %s✔%s %s (%s)\n", doctor.Cyan, doctor.Reset, res.Step, res.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Printf("  %s✘%s %s [%s, exit %d]\n", doctor.Red, doctor.Reset, res.Step, res.Class, res.Code)
	}
	fmt.Println()

	if summary.Succeeded() {
		fmt.Printf("%sAll steps completed successfully in %s%s\n",
			doctor.Bold, summary.Duration.Round(time.Second), doctor.Reset)
		return
	}

	fmt.Printf("%s%s%d step(s) failed%s", doctor.Bold, doctor.Red, len(summary.FailedSteps), doctor.Reset)
	if summary.Halted {
		fmt.Printf("%s, run halted by a critical failure%s", doctor.Red, doctor.Reset)
	}
	fmt.Println()
	fmt.Printf("%sFailure details: %s%s\n", doctor.Gray, summary.LedgerPath, doctor.Reset)
}

func buildRunReport(summary *orchestrator.Summary) runReport {
	report := runReport{
		Outcome:     "success",
		Halted:      summary.Halted,
		Duration:    summary.Duration.Round(time.Millisecond).String(),
		FailedSteps: summary.FailedSteps,
	}
	if !summary.Succeeded() {
		report.Outcome = "failed"
		report.Ledger = summary.LedgerPath
	}

	for _, res := range summary.Results {
		sr := stepReport{
			Step:     res.Step,
			Status:   res.Status.String(),
			Duration: res.Duration.Round(time.Millisecond).String(),
		}
		if !res.Success() {
			sr.Class = res.Class.String()
			sr.Code = res.Code
			sr.Error = res.Err.Error()
		}
		report.Steps = append(report.Steps, sr)
	}
	return report
}
