package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/corpus"
	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/source/blog"
)

const allSources = "all"

type postsOptions struct {
	source         string
	url            string
	filterMonadBFT bool
	outputDir      string
}

// newPostsCmd creates the 'posts' subcommand.
func newPostsCmd() *cobra.Command {
	opts := &postsOptions{}
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Scrape blog posts from listing pages",
		Long: `Scrapes the article.post entries of one configured blog source, or of
every source with --source all, fetching the full body of each post.
--url scrapes an ad-hoc listing page instead. --filter-monadbft keeps only
posts matching the configured keywords.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPosts(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", allSources, "blog source name from blog.sources, or all")
	cmd.Flags().StringVar(&opts.url, "url", "", "listing page to scrape instead of a configured source")
	cmd.Flags().BoolVar(&opts.filterMonadBFT, "filter-monadbft", false, "only save posts matching the keyword filter")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "output directory (default from blog.output_dir)")
	return cmd
}

func runPosts(cmd *cobra.Command, opts *postsOptions) error {
	ctx := cmd.Context()
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := appInstance.Config()

	sources, err := selectSources(cfg.Blog.Sources, opts)
	if err != nil {
		return err
	}

	store, err := appInstance.BlobStore(ctx, outputDir(opts.outputDir, cfg.Blog.OutputDir))
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	run, err := appInstance.StartRun(crawler.SourceBlog)
	if err != nil {
		return err
	}
	writer := corpus.NewWriter(store, corpus.WithLogger(run.Logger))
	scraper := blog.NewScraper(appInstance.PacedFetcher(crawler.SourceBlog), run.Logger)

	posts := scraper.ScrapeAll(ctx, sources)
	if opts.filterMonadBFT {
		before := len(posts)
		posts = blog.FilterByKeywords(posts, cfg.Blog.Keywords)
		run.Logger.Info("keyword filter applied", zap.Int("before", before), zap.Int("after", len(posts)))
	}

	paths, failures := corpus.SaveAll(ctx, writer, posts)
	printPosts(cmd.OutOrStdout(), posts)

	appInstance.FinishRun(ctx, run, len(posts), failures, paths)
	return nil
}

// selectSources resolves the flags to the listing pages to scrape. An
// unknown source name is a usage error.
func selectSources(configured map[string]string, opts *postsOptions) (map[string]string, error) {
	if opts.url != "" {
		name := opts.source
		if name == allSources {
			name = "custom"
		}
		return map[string]string{name: opts.url}, nil
	}
	if opts.source == allSources {
		return configured, nil
	}
	listing, ok := configured[opts.source]
	if !ok {
		names := make([]string, 0, len(configured))
		for name := range configured {
			names = append(names, name)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("unknown blog source %q (configured: %s, all)", opts.source, strings.Join(names, ", "))
	}
	return map[string]string{opts.source: listing}, nil
}

func printPosts(w io.Writer, posts []crawler.Post) {
	fmt.Fprintf(w, "Found %d blog posts\n", len(posts))
	for _, post := range posts {
		fmt.Fprintf(w, "  - %s\n", post.Title)
	}
}
