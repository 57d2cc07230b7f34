package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitaai/vita/internal/app"
	"github.com/vitaai/vita/internal/knowledge"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <url>...",
		Short: "Scrape reference pages into the knowledge base",
		Long: `Ingest fetches each page, extracts its title and article body and
stores the result as an embedded knowledge entry.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(args)
		},
	}
}

func runIngest(urls []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	var failed int
	for _, pageURL := range urls {
		if err := ingestOne(ctx, a, pageURL); err != nil {
			logger.Error("ingest failed", "url", pageURL, "error", err)
			failed++
			continue
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed", failed, len(urls))
	}
	return nil
}

func ingestOne(ctx context.Context, a *app.App, pageURL string) error {
	page, err := a.Scraper.Scrape(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("scraping page: %w", err)
	}

	entry, err := a.Knowledge.Create(ctx, knowledge.CreateParams{
		Title:     page.Title,
		Content:   page.Content,
		SourceURL: page.SourceURL,
	})
	if err != nil {
		return fmt.Errorf("creating entry: %w", err)
	}

	fmt.Printf("%s  %s\n", entry.ID, entry.Title)
	return nil
}
