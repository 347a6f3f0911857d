package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/corpus"
	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/source/arxiv"
)

type papersOptions struct {
	paperID      string
	search       string
	fetchRelated bool
	downloadPDF  bool
	outputDir    string
}

// newPapersCmd creates the 'papers' subcommand.
func newPapersCmd() *cobra.Command {
	opts := &papersOptions{}
	cmd := &cobra.Command{
		Use:   "papers",
		Short: "Fetch arXiv paper metadata",
		Long: `Fetches one paper by id (default), runs a relevance search with --search,
or gathers the configured related BFT queries with --fetch-related. Metadata
is saved as {paper_id}.json; --download-pdf also stores {paper_id}.pdf.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPapers(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.paperID, "paper-id", "", "arXiv paper id to fetch (default from arxiv.default_paper_id)")
	cmd.Flags().StringVar(&opts.search, "search", "", "search query for related papers")
	cmd.Flags().BoolVar(&opts.fetchRelated, "fetch-related", false, "fetch papers for the configured related queries")
	cmd.Flags().BoolVar(&opts.downloadPDF, "download-pdf", false, "also download the PDF of every saved paper")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "output directory (default from arxiv.output_dir)")
	return cmd
}

func runPapers(cmd *cobra.Command, opts *papersOptions) error {
	ctx := cmd.Context()
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := appInstance.Config()

	store, err := appInstance.BlobStore(ctx, outputDir(opts.outputDir, cfg.Arxiv.OutputDir))
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	run, err := appInstance.StartRun(crawler.SourceArxiv)
	if err != nil {
		return err
	}
	writer := corpus.NewWriter(store, corpus.WithLogger(run.Logger))
	client := arxiv.NewClient(appInstance.Fetcher(crawler.SourceArxiv), arxiv.Config{
		BaseURL:           cfg.Arxiv.BaseURL,
		Timeout:           cfg.HTTP.Timeout,
		DownloadTimeout:   cfg.HTTP.DownloadTimeout,
		MaxDownloadSize:   cfg.HTTP.MaxDownloadSize,
		RelatedQueries:    cfg.Arxiv.RelatedQueries,
		RelatedMaxResults: cfg.Arxiv.RelatedMaxResults,
		SearchMaxResults:  cfg.Arxiv.SearchMaxResults,
	}, run.Logger)

	var (
		papers         []crawler.Paper
		lookupFailures int
	)
	switch {
	case opts.search != "":
		run.Logger.Info("searching papers", zap.String("query", opts.search))
		papers = client.Search(ctx, opts.search, cfg.Arxiv.SearchMaxResults)
	case opts.fetchRelated:
		run.Logger.Info("fetching related papers", zap.Int("queries", len(cfg.Arxiv.RelatedQueries)))
		papers = client.FetchRelated(ctx)
	default:
		id := opts.paperID
		if id == "" {
			id = cfg.Arxiv.DefaultPaperID
		}
		// Fetch and parse failures are already logged by the client; the run
		// ends with no records and one failure.
		paper, found, err := client.FetchPaper(ctx, id)
		if err != nil {
			lookupFailures++
		}
		if found {
			papers = []crawler.Paper{paper}
		}
	}

	paths, failures := corpus.SaveAll(ctx, writer, papers)
	failures += lookupFailures
	if opts.downloadPDF {
		pdfs, pdfFailures := downloadPDFs(ctx, client, writer, papers, run.Logger)
		paths = append(paths, pdfs...)
		failures += pdfFailures
	}
	printPapers(cmd.OutOrStdout(), papers)

	appInstance.FinishRun(ctx, run, len(papers), failures, paths)
	return nil
}

func downloadPDFs(ctx context.Context, client *arxiv.Client, writer *corpus.Writer, papers []crawler.Paper, logger *zap.Logger) ([]string, int) {
	var paths []string
	failures := 0
	for _, paper := range papers {
		data, err := client.DownloadPDF(ctx, paper)
		if err == nil {
			var uri string
			uri, err = writer.SaveBinary(ctx, paper.PaperID, ".pdf", "application/pdf", data)
			if err == nil {
				logger.Info("pdf saved", zap.String("paper_id", paper.PaperID), zap.String("uri", uri))
				paths = append(paths, uri)
				continue
			}
		}
		logger.Error("pdf download failed", zap.String("paper_id", paper.PaperID), zap.Error(err))
		failures++
	}
	return paths, failures
}

func printPapers(w io.Writer, papers []crawler.Paper) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}
	fmt.Fprintf(w, "Found %d papers\n", len(papers))
	for i, paper := range papers {
		authors := paper.Authors
		more := ""
		if len(authors) > 3 {
			authors, more = authors[:3], "..."
		}
		fmt.Fprintf(w, "\n%d. %s\n   Authors: %s%s\n   Published: %s\n   URL: %s\n",
			i+1, paper.Title, strings.Join(authors, ", "), more, paper.Published, paper.ArxivURL)
	}
}
