package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/corpus"
	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/source/docs"
)

type docsOptions struct {
	url        string
	singlePage bool
	outputDir  string
}

// newDocsCmd creates the 'docs' subcommand.
func newDocsCmd() *cobra.Command {
	opts := &docsOptions{}
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Crawl a documentation site",
		Long: `Crawls every page reachable from the start URL within the same site,
breadth-first and paced, saving one JSON file per page plus index.json.
--single-page extracts only the start URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDocs(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "start URL (default from docs.start_url)")
	cmd.Flags().BoolVar(&opts.singlePage, "single-page", false, "only scrape the start URL, no recursion")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "output directory (default from docs.output_dir)")
	return cmd
}

func runDocs(cmd *cobra.Command, opts *docsOptions) error {
	ctx := cmd.Context()
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	start := opts.url
	if start == "" {
		start = cfg.Docs.StartURL
	}

	store, err := appInstance.BlobStore(ctx, outputDir(opts.outputDir, cfg.Docs.OutputDir))
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	run, err := appInstance.StartRun(crawler.SourceDocs)
	if err != nil {
		return err
	}
	writer := corpus.NewWriter(store, corpus.WithLogger(run.Logger))
	fetcher := appInstance.PacedFetcher(crawler.SourceDocs)
	crawl := docs.NewCrawler(fetcher, run.Logger,
		crawler.WithRobots(appInstance.Robots(fetcher)),
		crawler.WithBlockedHosts(cfg.Crawler.BlockedHosts),
		crawler.WithMaxPages(cfg.Crawler.MaxPages),
		crawler.WithRequestTimeout(cfg.HTTP.Timeout),
	)

	if opts.singlePage {
		var pages []crawler.DocPage
		page, err := crawl.ScrapePage(ctx, start)
		if err != nil {
			run.Logger.Error("scrape page failed", zap.String("url", start), zap.Error(err))
		} else {
			pages = append(pages, page)
		}
		paths, failures := corpus.SaveAll(ctx, writer, pages)
		printPages(cmd.OutOrStdout(), pages)
		appInstance.FinishRun(ctx, run, len(pages), failures, paths)
		return nil
	}

	pages, stats, err := crawl.Crawl(ctx, start)
	if err != nil && !errors.Is(err, context.Canceled) {
		run.Logger.Error("crawl failed", zap.String("url", start), zap.Error(err))
	}

	paths, failures := corpus.SaveAll(ctx, writer, pages)
	if err == nil {
		uri, indexErr := writer.SaveIndex(ctx, docs.BuildIndex(pages))
		if indexErr != nil {
			run.Logger.Error("save index failed", zap.Error(indexErr))
			failures++
		} else {
			paths = append(paths, uri)
		}
	}
	printPages(cmd.OutOrStdout(), pages)

	appInstance.FinishRun(ctx, run, len(pages), failures+stats.Failed, paths)
	return nil
}

func printPages(w io.Writer, pages []crawler.DocPage) {
	fmt.Fprintf(w, "Scraped %d pages\n", len(pages))
	for _, page := range pages {
		fmt.Fprintf(w, "  - %s (%s)\n", page.Title, page.Section)
	}
}
