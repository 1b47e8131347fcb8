// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"
	"time"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
)

func TestFetchString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Europe/Berlin\n"))
	}))
	defer srv.Close()

	body, err := FetchString(context.Background(), srv.URL, time.Second)
	require.NoError(t, err)
	require.Equal(t, "Europe/Berlin", body)
}

func TestFetchStringNonOKIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := FetchString(context.Background(), srv.URL, time.Second)
	require.Error(t, err)
	require.True(t, errorx.HasTrait(err, errorx.Temporary()))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("-----BEGIN PGP PUBLIC KEY BLOCK-----"))
	}))
	defer srv.Close()

	dest := path.Join(t.TempDir(), "docker.asc")
	require.NoError(t, Download(context.Background(), srv.URL, dest, time.Second))

	out, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Contains(t, string(out), "PGP PUBLIC KEY")
}

func TestProbeFastestSkipsDeadCandidates(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer slow.Close()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer fast.Close()
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	fastest, err := ProbeFastest(context.Background(),
		[]string{dead.URL, slow.URL, fast.URL}, time.Second)
	require.NoError(t, err)
	require.Equal(t, fast.URL, fastest)
}

func TestProbeFastestAllDead(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	_, err := ProbeFastest(context.Background(), []string{dead.URL}, 100*time.Millisecond)
	require.Error(t, err)
	require.True(t, errorx.HasTrait(err, errorx.Temporary()))
}
