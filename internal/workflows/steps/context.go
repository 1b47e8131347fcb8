// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"github.com/groundwork-sh/groundwork/internal/config"
	"github.com/groundwork-sh/groundwork/internal/inputs"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/backup"
	"github.com/groundwork-sh/groundwork/pkg/detect"
)

// RunContext carries everything a step needs. It is resolved once, before
// the first step runs, and steps treat it as read-only: no step mutates
// configuration or answers mid-run.
type RunContext struct {
	Cfg     config.Config
	Ans     inputs.Answers
	OS      *detect.OSInfo
	Engine  *orchestrator.Engine
	Backups *backup.Store
}
