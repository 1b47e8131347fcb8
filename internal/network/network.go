// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/core"
)

var ErrNamespace = errorx.NewNamespace("network")

// UnreachableError carries the temporary trait so the retry engine treats
// these failures as network-classified.
var UnreachableError = ErrNamespace.NewType("unreachable", errorx.Temporary())

const maxBodySize = 1 << 20 // 1 MiB

// GetMachineIP returns the primary outbound IPv4 address of the host. No
// packet is sent; the kernel picks the route.
func GetMachineIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", UnreachableError.Wrap(err, "failed to determine outbound address")
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", UnreachableError.New("unexpected local address type %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

// FetchString GETs url and returns the trimmed body. The body is bounded,
// so a misbehaving endpoint cannot exhaust memory.
func FetchString(ctx context.Context, url string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errorx.IllegalArgument.Wrap(err, "invalid url %s", url)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", UnreachableError.Wrap(err, "failed to fetch %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", UnreachableError.New("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", UnreachableError.Wrap(err, "failed to read response from %s", url)
	}
	return strings.TrimSpace(string(body)), nil
}

// Download GETs url and writes the body to dest atomically via a temp file
// in the same directory.
func Download(ctx context.Context, url, dest string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errorx.IllegalArgument.Wrap(err, "invalid url %s", url)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return UnreachableError.Wrap(err, "failed to download %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return UnreachableError.New("unexpected status %d from %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(path.Dir(dest), ".download-*")
	if err != nil {
		return errorx.ExternalError.Wrap(err, "failed to create temp file for %s", dest)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return UnreachableError.Wrap(err, "failed to write %s", dest)
	}
	if err = tmp.Close(); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to close temp file for %s", dest)
	}
	if err = os.Chmod(tmp.Name(), core.DefaultFilePerm); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to chmod %s", dest)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to move %s into place", dest)
	}
	return nil
}

// ProbeFastest measures one HEAD round trip against each candidate and
// returns the fastest responder. Unreachable candidates are skipped; all
// candidates unreachable is an error.
func ProbeFastest(ctx context.Context, candidates []string, timeout time.Duration) (string, error) {
	if len(candidates) == 0 {
		return "", errorx.IllegalArgument.New("no candidates to probe")
	}

	fastest := ""
	best := time.Duration(0)
	for _, candidate := range candidates {
		latency, err := probe(ctx, candidate, timeout)
		if err != nil {
			continue
		}
		if fastest == "" || latency < best {
			fastest = candidate
			best = latency
		}
	}

	if fastest == "" {
		return "", UnreachableError.New("none of %d candidates responded", len(candidates))
	}
	return fastest, nil
}

func probe(ctx context.Context, url string, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, errorx.IllegalArgument.Wrap(err, "invalid url %s", url)
	}

	started := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, UnreachableError.Wrap(err, "failed to probe %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return 0, UnreachableError.New("unexpected status %d from %s", resp.StatusCode, url)
	}
	return time.Since(started), nil
}
