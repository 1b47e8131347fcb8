// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/core"
)

// RecordSeparator terminates every ledger record, so a record is complete
// exactly when its separator line has been written.
const RecordSeparator = "----------------------------------------"

// Record is one permanently failed step.
type Record struct {
	Step      string
	Class     Class
	Code      int
	Command   string
	Message   string
	Timestamp time.Time
}

// Ledger is the append-only failure log of a single run. It is truncated
// when opened and removed on close when nothing was recorded, so the file's
// presence after a run means at least one step failed during that run.
type Ledger struct {
	path    string
	file    *os.File
	failed  []string
	records int
}

// OpenLedger creates or truncates the ledger file at p.
func OpenLedger(p string) (*Ledger, error) {
	if err := os.MkdirAll(path.Dir(p), core.DefaultDirOrExecPerm); err != nil {
		return nil, errorx.ExternalError.Wrap(err, "failed to create ledger directory for %s", p)
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, core.DefaultFilePerm)
	if err != nil {
		return nil, errorx.ExternalError.Wrap(err, "failed to open ledger %s", p)
	}

	return &Ledger{path: p, file: f}, nil
}

// Append writes one record and flushes it to disk before returning.
func (l *Ledger) Append(rec Record) error {
	if l.file == nil {
		return errorx.IllegalState.New("ledger %s is closed", l.path)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	_, err := fmt.Fprintf(l.file, "step: %s\ntime: %s\nclass: %s\ncode: %d\ncommand: %s\nmessage: %s\n%s\n",
		rec.Step, rec.Timestamp.Format(time.RFC3339), rec.Class, rec.Code, rec.Command, rec.Message, RecordSeparator)
	if err != nil {
		return errorx.ExternalError.Wrap(err, "failed to append to ledger %s", l.path)
	}
	if err = l.file.Sync(); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to sync ledger %s", l.path)
	}

	l.failed = append(l.failed, rec.Step)
	l.records++
	return nil
}

// FailedSteps returns the recorded step names in insertion order.
func (l *Ledger) FailedSteps() []string {
	out := make([]string, len(l.failed))
	copy(out, l.failed)
	return out
}

// Empty reports whether no record has been appended.
func (l *Ledger) Empty() bool {
	return l.records == 0
}

func (l *Ledger) Path() string {
	return l.path
}

// Close closes the file and removes it when no record was written.
func (l *Ledger) Close() error {
	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	if err != nil {
		return errorx.ExternalError.Wrap(err, "failed to close ledger %s", l.path)
	}

	if l.records == 0 {
		if err = os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return errorx.ExternalError.Wrap(err, "failed to remove empty ledger %s", l.path)
		}
	}
	return nil
}
