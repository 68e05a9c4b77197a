package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/fetcher"
	"github.com/shelfhound/shelfhound/internal/report"
	"github.com/shelfhound/shelfhound/internal/resolve"
	"github.com/shelfhound/shelfhound/internal/types"
)

// probeCmd creates the "probe" subcommand.
func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Resolve a single product page and show field provenance",
		Long: `Fetch one product page and print every resolved field next to the
tier that produced it (structured metadata or markup fallback). Useful
for tuning extraction rules before a full crawl.`,
		Args: cobra.ExactArgs(1),
		RunE: runProbe,
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	if err := config.ValidateURL(rawURL); err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(&cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer httpFetcher.Close()

	req, err := types.NewRequest(rawURL)
	if err != nil {
		return err
	}
	req.Tag = types.TagProduct

	resp, err := httpFetcher.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	res, err := resolve.New(&cfg.Resolver, logger).Resolve(resp)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	order := make([]string, 0, len(cfg.Resolver.Fields))
	for _, rule := range cfg.Resolver.Fields {
		order = append(order, rule.Name)
	}

	fmt.Printf("🔍 %s\n\n", rawURL)
	fmt.Print(report.Probe(res, order))
	return nil
}
