package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Mozilla/5.0 (compatible; MonadBFT-Research/1.0)", cfg.HTTP.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 60*time.Second, cfg.HTTP.DownloadTimeout)
	assert.Equal(t, 10*1024*1024, cfg.HTTP.MaxBodySize)
	assert.Zero(t, cfg.HTTP.MaxDownloadSize)
	assert.Equal(t, time.Second, cfg.Crawler.Delay)
	assert.False(t, cfg.Crawler.RespectRobots)
	assert.Equal(t, "2502.20692", cfg.Arxiv.DefaultPaperID)
	assert.Len(t, cfg.Arxiv.RelatedQueries, 4)
	assert.Equal(t, 5, cfg.Arxiv.RelatedMaxResults)
	assert.Equal(t, "data/papers", cfg.Arxiv.OutputDir)
	assert.Equal(t, "https://www.monad.xyz/blog", cfg.Blog.Sources["monad"])
	assert.Contains(t, cfg.Blog.Keywords, "monadbft")
	assert.Equal(t, "https://docs.monad.xyz", cfg.Docs.StartURL)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.False(t, cfg.PubSub.Enabled())
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
http:
  user_agent: test-agent
  timeout: 5s
crawler:
  delay: 250ms
  respect_robots: true
  blocked_hosts: ["*.ads.example.com"]
  max_pages: 40
blog:
  sources:
    local: http://127.0.0.1:8080/blog
  output_dir: out/posts
storage:
  backend: gcs
  gcs_bucket: corpus-bucket
  prefix: runs
pubsub:
  project_id: research
  topic: harvests
metrics:
  textfile: out/harvester.prom
logging:
  development: false
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", cfg.HTTP.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawler.Delay)
	assert.True(t, cfg.Crawler.RespectRobots)
	assert.Equal(t, []string{"*.ads.example.com"}, cfg.Crawler.BlockedHosts)
	assert.Equal(t, 40, cfg.Crawler.MaxPages)
	assert.Equal(t, "http://127.0.0.1:8080/blog", cfg.Blog.Sources["local"])
	assert.Equal(t, "out/posts", cfg.Blog.OutputDir)
	assert.Equal(t, BackendGCS, cfg.Storage.Backend)
	assert.Equal(t, "corpus-bucket", cfg.Storage.GCSBucket)
	assert.True(t, cfg.PubSub.Enabled())
	assert.Equal(t, "out/harvester.prom", cfg.Metrics.Textfile)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HARVESTER_CRAWLER_DELAY", "3s")
	t.Setenv("HARVESTER_STORAGE_BACKEND", "memory")
	t.Setenv("HARVESTER_DOCS_START_URL", "https://docs.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Crawler.Delay)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "https://docs.example.com", cfg.Docs.StartURL)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: s3\n"), 0o600))
	_, err = Load(path)
	require.ErrorContains(t, err, "storage.backend")
}

func TestConfigValidateErrors(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
		{"invalid download timeout", func(c *Config) { c.HTTP.DownloadTimeout = -time.Second }, "http.download_timeout"},
		{"negative download cap", func(c *Config) { c.HTTP.MaxDownloadSize = -1 }, "http.max_download_size"},
		{"negative delay", func(c *Config) { c.Crawler.Delay = -time.Second }, "crawler.delay"},
		{"negative page cap", func(c *Config) { c.Crawler.MaxPages = -1 }, "crawler.max_pages"},
		{"relative arxiv url", func(c *Config) { c.Arxiv.BaseURL = "/api/query" }, "arxiv.base_url"},
		{"zero search results", func(c *Config) { c.Arxiv.SearchMaxResults = 0 }, "arxiv.search_max_results"},
		{"bad blog source", func(c *Config) { c.Blog.Sources = map[string]string{"x": "ftp://x"} }, "blog.sources.x"},
		{"bad docs url", func(c *Config) { c.Docs.StartURL = "docs.monad.xyz" }, "docs.start_url"},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = BackendGCS }, "storage.gcs_bucket"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"topic without project", func(c *Config) { c.PubSub.Topic = "harvests" }, "pubsub.project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Blog.Sources = map[string]string{}
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "expected %q in %v", tt.want, err)
		})
	}

	require.NoError(t, base.Validate())
}
