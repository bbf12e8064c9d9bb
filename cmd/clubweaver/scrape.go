package main

import (
	"encoding/json"
	"fmt"

	"github.com/alvmarrod/club-weaver/internal/crawler"
	"github.com/alvmarrod/club-weaver/internal/memory"
	"github.com/alvmarrod/club-weaver/internal/metrics"
	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/spf13/cobra"
)

func scrapeCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape a single organization page and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var store crawler.Upserter = memory.NewStore()
			if !dryRun {
				db, err := storage.NewStorage(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("failed to initialize storage: %w", err)
				}
				defer db.Close()
				store = db
			}

			pipeline, err := newPipeline(store, metrics.NewTracker())
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}

			org, err := pipeline.ScrapeOne(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to scrape %s: %w", args[0], err)
			}

			org.RawContent = storage.RawContent{}
			out, err := json.MarshalIndent(org, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the record without storing it")

	return cmd
}
