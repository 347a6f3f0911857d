package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHost(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://Docs.Monad.xyz/path", "docs.monad.xyz"},
		{"host with port", "http://127.0.0.1:8080/x", "127.0.0.1"},
		{"no scheme", "example.com/path", "unknown"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Host(tc.input))
		})
	}
}

func TestObservers(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(fetchesTotal.WithLabelValues("docs", "200"))
	ObserveFetch("docs", "200", 512)
	require.InDelta(t, before+1, testutil.ToFloat64(fetchesTotal.WithLabelValues("docs", "200")), 0.001)

	beforeRecords := testutil.ToFloat64(recordsTotal.WithLabelValues("blog"))
	ObserveRecords("blog", 3)
	ObserveRecords("blog", 0)
	require.InDelta(t, beforeRecords+3, testutil.ToFloat64(recordsTotal.WithLabelValues("blog")), 0.001)

	ObserveSave("ok")
	ObservePacingDelay("docs.monad.xyz", 250*time.Millisecond)
	ObserveRun("arxiv", 2*time.Second)
	require.InDelta(t, 2, testutil.ToFloat64(runDurationSeconds.WithLabelValues("arxiv")), 0.001)
}

func TestWriteTextfile(t *testing.T) {
	ObserveFetch("arxiv", "200", 10)

	path := filepath.Join(t.TempDir(), "harvester.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "harvester_fetches_total")

	require.NoError(t, WriteTextfile(""), "empty path disables the export")
}
