// Package cmd defines and implements the CLI commands for the harvester executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/app"
	"github.com/JakeFAU/research-harvester/internal/config"
	"github.com/JakeFAU/research-harvester/internal/crawler"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the services commands use. Tests inject their own factory.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Fetcher(source crawler.SourceTag) crawler.Fetcher
	PacedFetcher(source crawler.SourceTag) crawler.Fetcher
	Robots(fetcher crawler.Fetcher) crawler.RobotsPolicy
	BlobStore(ctx context.Context, outputDir string) (crawler.BlobStore, error)
	StartRun(source crawler.SourceTag) (*app.Run, error)
	FinishRun(ctx context.Context, run *app.Run, records, failures int, paths []string) crawler.RunSummary
	Close()
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Collects MonadBFT research material into a local JSON corpus.",
		Long: `harvester gathers consensus research from three kinds of sources:
arXiv papers through the Atom API, blog posts from listing pages, and
documentation sites crawled breadth-first. Every record is saved as one
pretty-printed JSON file under the output directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Build the services once flags are parsed, before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and HARVESTER_* environment variables otherwise)")

	cmd.AddCommand(newPapersCmd(), newPostsCmd(), newDocsCmd())
	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// outputDir picks the flag value over the configured directory.
func outputDir(flagValue, configured string) string {
	if flagValue != "" {
		return flagValue
	}
	return configured
}
