// Package config loads and validates harvester configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/research-harvester/internal/logging"
)

// EnvPrefix namespaces environment overrides, e.g. HARVESTER_CRAWLER_DELAY=2s.
const EnvPrefix = "HARVESTER"

// Storage backends.
const (
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config captures all harvester configuration knobs loaded via Viper.
type Config struct {
	HTTP    HTTPConfig     `mapstructure:"http"`
	Crawler CrawlerConfig  `mapstructure:"crawler"`
	Arxiv   ArxivConfig    `mapstructure:"arxiv"`
	Blog    BlogConfig     `mapstructure:"blog"`
	Docs    DocsConfig     `mapstructure:"docs"`
	Storage StorageConfig  `mapstructure:"storage"`
	PubSub  PubSubConfig   `mapstructure:"pubsub"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logging logging.Config `mapstructure:"logging"`
}

// HTTPConfig configures the shared fetcher.
type HTTPConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	MaxBodySize     int           `mapstructure:"max_body_size"`
	// MaxDownloadSize caps PDF downloads; zero means unlimited.
	MaxDownloadSize int           `mapstructure:"max_download_size"`
}

// CrawlerConfig governs pacing and admission.
type CrawlerConfig struct {
	Delay         time.Duration `mapstructure:"delay"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	BlockedHosts  []string      `mapstructure:"blocked_hosts"`
	MaxPages      int           `mapstructure:"max_pages"`
}

// ArxivConfig configures the paper adapter.
type ArxivConfig struct {
	BaseURL           string   `mapstructure:"base_url"`
	DefaultPaperID    string   `mapstructure:"default_paper_id"`
	RelatedQueries    []string `mapstructure:"related_queries"`
	RelatedMaxResults int      `mapstructure:"related_max_results"`
	SearchMaxResults  int      `mapstructure:"search_max_results"`
	OutputDir         string   `mapstructure:"output_dir"`
}

// BlogConfig configures the post adapter.
type BlogConfig struct {
	Sources   map[string]string `mapstructure:"sources"`
	Keywords  []string          `mapstructure:"keywords"`
	OutputDir string            `mapstructure:"output_dir"`
}

// DocsConfig configures the documentation adapter.
type DocsConfig struct {
	StartURL  string `mapstructure:"start_url"`
	OutputDir string `mapstructure:"output_dir"`
}

// StorageConfig selects where records are written.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds the run-summary topic. Publishing is off unless both
// fields are set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Enabled reports whether run summaries are published.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.Topic != ""
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from defaults, the optional file at path and the
// environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; MonadBFT-Research/1.0)")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.download_timeout", "60s")
	v.SetDefault("http.max_body_size", 10*1024*1024)
	v.SetDefault("http.max_download_size", 0)
	v.SetDefault("crawler.delay", "1s")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.blocked_hosts", []string{})
	v.SetDefault("crawler.max_pages", 0)
	v.SetDefault("arxiv.base_url", "http://export.arxiv.org/api/query")
	v.SetDefault("arxiv.default_paper_id", "2502.20692")
	v.SetDefault("arxiv.related_queries", []string{
		"HotStuff BFT consensus",
		"Fast-HotStuff",
		"Byzantine fault tolerance blockchain",
		"streamlined consensus",
	})
	v.SetDefault("arxiv.related_max_results", 5)
	v.SetDefault("arxiv.search_max_results", 10)
	v.SetDefault("arxiv.output_dir", "data/papers")
	v.SetDefault("blog.sources", map[string]string{
		"category_labs": "https://blog.categorylabs.xyz",
		"monad":         "https://www.monad.xyz/blog",
	})
	v.SetDefault("blog.keywords", []string{
		"monadbft", "hotstuff", "bft", "consensus",
		"byzantine", "finality", "fork", "blockchain",
	})
	v.SetDefault("blog.output_dir", "data/blog_posts")
	v.SetDefault("docs.start_url", "https://docs.monad.xyz")
	v.SetDefault("docs.output_dir", "data/docs")
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be > 0")
	}
	if c.HTTP.DownloadTimeout <= 0 {
		return errors.New("http.download_timeout must be > 0")
	}
	if c.HTTP.MaxBodySize < 0 {
		return errors.New("http.max_body_size must be >= 0")
	}
	if c.HTTP.MaxDownloadSize < 0 {
		return errors.New("http.max_download_size must be >= 0")
	}
	if c.Crawler.Delay < 0 {
		return errors.New("crawler.delay must be >= 0")
	}
	if c.Crawler.MaxPages < 0 {
		return errors.New("crawler.max_pages must be >= 0")
	}
	if err := validateURL("arxiv.base_url", c.Arxiv.BaseURL); err != nil {
		return err
	}
	if c.Arxiv.RelatedMaxResults <= 0 || c.Arxiv.SearchMaxResults <= 0 {
		return errors.New("arxiv.related_max_results and arxiv.search_max_results must be > 0")
	}
	for name, raw := range c.Blog.Sources {
		if err := validateURL("blog.sources."+name, raw); err != nil {
			return err
		}
	}
	if err := validateURL("docs.start_url", c.Docs.StartURL); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case BackendLocal, BackendMemory:
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend %q must be one of local, gcs, memory", c.Storage.Backend)
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.Topic == "") {
		return errors.New("pubsub.project_id and pubsub.topic must be set together")
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}
