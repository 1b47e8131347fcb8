// SPDX-License-Identifier: Apache-2.0

// Package backup keeps timestamped copies of configuration files before
// they are modified, so a failed hardening step can put the original back.
package backup

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/core"
)

var (
	ErrNamespace  = errorx.NewNamespace("backup")
	NotFoundError = ErrNamespace.NewType("not_found", errorx.NotFound())
	CopyError     = ErrNamespace.NewType("copy")
)

const timestampLayout = "20060102-150405"

// Store writes backups into a single flat directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save copies src into the store under a timestamped name and returns the
// backup path. The original file is left untouched.
func (s *Store) Save(src string) (string, error) {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return "", NotFoundError.New("nothing to back up at %s", src)
	}

	if err := os.MkdirAll(s.dir, core.DefaultDirOrExecPerm); err != nil {
		return "", CopyError.Wrap(err, "failed to create backup directory %s", s.dir)
	}

	dest := path.Join(s.dir, backupName(src, time.Now()))
	if err := copyFile(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Restore copies the newest backup of src back into place.
func (s *Store) Restore(src string) error {
	latest, err := s.Latest(src)
	if err != nil {
		return err
	}
	return copyFile(latest, src)
}

// Latest returns the newest backup path for src.
func (s *Store) Latest(src string) (string, error) {
	backups, err := s.list(src)
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", NotFoundError.New("no backup of %s in %s", src, s.dir)
	}
	return backups[len(backups)-1], nil
}

// Prune removes backups older than the retention period. Zero retention
// keeps everything.
func (s *Store) Prune(retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, CopyError.Wrap(err, "failed to read backup directory %s", s.dir)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stamp, ok := timestampOf(entry.Name())
		if !ok || !stamp.Before(cutoff) {
			continue
		}
		if err = os.Remove(path.Join(s.dir, entry.Name())); err != nil {
			return removed, CopyError.Wrap(err, "failed to prune backup %s", entry.Name())
		}
		removed++
	}
	return removed, nil
}

// list returns all backups of src, oldest first.
func (s *Store) list(src string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, CopyError.Wrap(err, "failed to read backup directory %s", s.dir)
	}

	prefix := flatten(src) + "."
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, path.Join(s.dir, entry.Name()))
		}
	}
	sort.Strings(backups)
	return backups, nil
}

// backupName is "<flattened-source>.<timestamp>", e.g.
// "etc-ssh-sshd_config.20260824-153000".
func backupName(src string, now time.Time) string {
	return flatten(src) + "." + now.Format(timestampLayout)
}

func flatten(src string) string {
	return strings.ReplaceAll(strings.Trim(src, "/"), "/", "-")
}

func timestampOf(name string) (time.Time, bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return time.Time{}, false
	}
	stamp, err := time.Parse(timestampLayout, name[i+1:])
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return CopyError.Wrap(err, "failed to open %s", src)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return CopyError.Wrap(err, "failed to stat %s", src)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return CopyError.Wrap(err, "failed to create %s", dest)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return CopyError.Wrap(err, "failed to copy %s to %s", src, dest)
	}
	if err = out.Close(); err != nil {
		return CopyError.Wrap(err, "failed to close %s", dest)
	}
	return nil
}
