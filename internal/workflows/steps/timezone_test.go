// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/groundwork-sh/groundwork/internal/config"
	"github.com/groundwork-sh/groundwork/internal/inputs"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

func withZoneinfo(t *testing.T, zones ...string) {
	t.Helper()
	orig := zoneinfoDir
	zoneinfoDir = t.TempDir()
	t.Cleanup(func() { zoneinfoDir = orig })

	for _, zone := range zones {
		p := path.Join(zoneinfoDir, zone)
		require.NoError(t, os.MkdirAll(path.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("TZif"), 0644))
	}
}

func testEngine() *orchestrator.Engine {
	return orchestrator.NewEngine(orchestrator.RetryConfig{
		MaxRetries: 2,
		Policy:     orchestrator.PolicyExponential,
		BaseWait:   time.Millisecond,
	}, logx.Nop())
}

func TestSetTimezoneStepUsesAnswer(t *testing.T) {
	withZoneinfo(t, "Europe/Berlin")

	origRun := RunCmd
	var got []string
	RunCmd = func(ctx context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}
	defer func() { RunCmd = origRun }()

	rc := RunContext{
		Cfg:    config.Default(),
		Ans:    inputs.Answers{Timezone: "Europe/Berlin"},
		Engine: testEngine(),
	}

	require.NoError(t, SetTimezoneStep(rc).Operation(context.Background()))
	require.Equal(t, []string{"timedatectl", "set-timezone", "Europe/Berlin"}, got)
}

func TestSetTimezoneStepDetects(t *testing.T) {
	withZoneinfo(t, "Asia/Tokyo")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Asia/Tokyo\n"))
	}))
	defer srv.Close()

	origRun := RunCmd
	var got []string
	RunCmd = func(ctx context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}
	defer func() { RunCmd = origRun }()

	cfg := config.Default()
	cfg.Timezone.DetectURL = srv.URL
	rc := RunContext{Cfg: cfg, Engine: testEngine()}

	require.NoError(t, SetTimezoneStep(rc).Operation(context.Background()))
	require.Equal(t, []string{"timedatectl", "set-timezone", "Asia/Tokyo"}, got)
}

func TestSetTimezoneStepRejectsUnknownZone(t *testing.T) {
	withZoneinfo(t)

	rc := RunContext{
		Cfg:    config.Default(),
		Ans:    inputs.Answers{Timezone: "Mars/Olympus"},
		Engine: testEngine(),
	}

	require.Error(t, SetTimezoneStep(rc).Operation(context.Background()))
}

func TestSetTimezoneStepRetriesDetection(t *testing.T) {
	withZoneinfo(t, "UTC")

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("UTC"))
	}))
	defer srv.Close()

	origRun := RunCmd
	RunCmd = func(ctx context.Context, name string, args ...string) error { return nil }
	defer func() { RunCmd = origRun }()

	cfg := config.Default()
	cfg.Timezone.DetectURL = srv.URL
	rc := RunContext{Cfg: cfg, Engine: testEngine()}

	require.NoError(t, SetTimezoneStep(rc).Operation(context.Background()))
	require.Equal(t, 3, hits)
}
