// Package app initializes and holds long-lived services for one harvester
// run, acting as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/clock/system"
	"github.com/JakeFAU/research-harvester/internal/config"
	"github.com/JakeFAU/research-harvester/internal/crawler"
	collyfetcher "github.com/JakeFAU/research-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/research-harvester/internal/id/uuid"
	"github.com/JakeFAU/research-harvester/internal/logging"
	"github.com/JakeFAU/research-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/research-harvester/internal/policy/robots"
	memorypublisher "github.com/JakeFAU/research-harvester/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/research-harvester/internal/publisher/pubsub"
	gcsstore "github.com/JakeFAU/research-harvester/internal/storage/gcs"
	localstore "github.com/JakeFAU/research-harvester/internal/storage/local"
	memorystore "github.com/JakeFAU/research-harvester/internal/storage/memory"
)

// App holds the shared services of a run.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	limiter  *ratelimit.Limiter
	notifier crawler.Notifier
	ids      crawler.IDGenerator
	clock    crawler.Clock

	gcsClient *storage.Client
	memory    *memorystore.BlobStore
	closers   []func() error
}

// Option customizes New.
type Option func(*App)

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithNotifier replaces the run-summary notifier.
func WithNotifier(n crawler.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithClock replaces the wall clock.
func WithClock(c crawler.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(g crawler.IDGenerator) Option {
	return func(a *App) { a.ids = g }
}

// WithGCSClient supplies the storage client used by the gcs backend.
func WithGCSClient(client *storage.Client) Option {
	return func(a *App) { a.gcsClient = client }
}

// New builds the services described by cfg. It fails fast when a backend
// cannot be initialized.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		limiter: ratelimit.New(ratelimit.Config{Delay: cfg.Crawler.Delay}),
		ids:     uuid.New(),
		clock:   system.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		a.logger = logger
	}

	switch cfg.Storage.Backend {
	case config.BackendGCS:
		if a.gcsClient == nil {
			client, err := storage.NewClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("create storage client: %w", err)
			}
			a.gcsClient = client
			a.closers = append(a.closers, client.Close)
		}
	case config.BackendMemory:
		a.memory = memorystore.NewBlobStore()
	}

	if a.notifier == nil {
		if cfg.PubSub.Enabled() {
			publisher, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("init pubsub: %w", err)
			}
			a.notifier = publisher
			a.closers = append(a.closers, publisher.Close)
		} else {
			a.notifier = memorypublisher.New()
		}
	}

	a.logger.Debug("application services initialized",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("pubsub", cfg.PubSub.Enabled()),
		zap.Duration("delay", cfg.Crawler.Delay),
	)
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Fetcher returns an unpaced fetcher whose metrics are labelled with source.
func (a *App) Fetcher(source crawler.SourceTag) crawler.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:   a.cfg.HTTP.UserAgent,
		Timeout:     a.cfg.HTTP.Timeout,
		MaxBodySize: a.cfg.HTTP.MaxBodySize,
		Source:      string(source),
	})
}

// PacedFetcher is Fetcher behind the per-host limiter. All paced fetchers of
// an App share one limiter.
func (a *App) PacedFetcher(source crawler.SourceTag) crawler.Fetcher {
	return crawler.NewPacedFetcher(a.Fetcher(source), a.limiter)
}

// Robots returns the robots.txt policy, fetching through fetcher.
func (a *App) Robots(fetcher crawler.Fetcher) crawler.RobotsPolicy {
	return robots.New(a.cfg.Crawler.RespectRobots, fetcher, a.cfg.HTTP.UserAgent, a.logger.Named("robots"))
}

// BlobStore returns the store rooted at outputDir for the configured backend.
func (a *App) BlobStore(ctx context.Context, outputDir string) (crawler.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendMemory:
		return a.memory, nil
	case config.BackendGCS:
		store, err := gcsstore.New(a.gcsClient, gcsstore.Config{
			Bucket: a.cfg.Storage.GCSBucket,
			Prefix: path.Join(a.cfg.Storage.Prefix, outputDir),
		})
		if err != nil {
			return nil, fmt.Errorf("init gcs store: %w", err)
		}
		if err := store.CheckBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := localstore.New(localstore.Config{BaseDir: outputDir})
		if err != nil {
			return nil, fmt.Errorf("init local store: %w", err)
		}
		return store, nil
	}
}

// Close releases backend clients and flushes the logger.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing services", zap.Error(err))
	}
	// Sync fails on non-file sinks such as a terminal stderr.
	_ = a.logger.Sync()
}
