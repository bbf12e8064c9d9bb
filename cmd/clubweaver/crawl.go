package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alvmarrod/club-weaver/internal/crawler"
	"github.com/alvmarrod/club-weaver/internal/memory"
	"github.com/alvmarrod/club-weaver/internal/metrics"
	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/alvmarrod/club-weaver/internal/version"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func crawlCommand() *cobra.Command {
	var (
		dryRun     bool
		buffered   bool
		partitions []string
		maxPages   int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the whole directory and store every organization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(partitions) > 0 {
				cfg.Partitions = partitions
			}
			if maxPages > 0 {
				cfg.MaxPagesPerPartition = maxPages
			}
			return runCrawl(cmd.Context(), cmd, dryRun, buffered)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep results in memory, write nothing to the database")
	cmd.Flags().BoolVar(&buffered, "buffered", false, "collect results in memory and flush them to the database at the end")
	cmd.Flags().StringSliceVar(&partitions, "partitions", nil, "partitions to walk (default from config, e.g. A,B,C)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "override max_pages_per_partition")

	return cmd
}

func runCrawl(ctx context.Context, cmd *cobra.Command, dryRun, buffered bool) error {
	logrus.Infof("Club Weaver v%s starting crawl...", version.Version)

	var (
		store crawler.Upserter
		mem   *memory.Store
		db    *storage.Storage
	)
	if !dryRun {
		var err error
		db, err = storage.NewStorage(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer db.Close()
		logrus.Infof("Database initialized: %s", cfg.DBPath)
	}
	switch {
	case dryRun || buffered:
		mem = memory.NewStore()
		store = mem
	default:
		store = db
	}

	tracker := metrics.NewTracker()
	pipeline, err := newPipeline(store, tracker)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	// Start progress logger
	stopProgress := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	result, runErr := pipeline.Run(ctx)
	close(stopProgress)

	terminationReason := "completed"
	if runErr != nil {
		terminationReason = "signal"
		logrus.Warnf("Crawl interrupted: %v", runErr)
	}

	if buffered && !dryRun {
		logrus.Info("Flushing in-memory results to database...")
		if err := mem.Flush(context.WithoutCancel(ctx), db); err != nil {
			logrus.Errorf("Failed to flush results: %v", err)
		}
	}

	logrus.Info("Final stats: " + tracker.LogProgress())
	if err := tracker.WriteToFile(cfg.MetricsPath, terminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	printRunSummary(cmd, result)
	if dryRun {
		n, _ := mem.Count(ctx)
		logrus.Infof("Dry run: %d organizations kept in memory, nothing written", n)
	}

	return runErr
}

func printRunSummary(cmd *cobra.Command, result *crawler.RunResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s: %d links, %d succeeded, %d failed, %d total\n",
		result.RunID, result.TotalLinks, result.SuccessCount, result.ErrorCount, result.TotalCount)

	partitions := table.NewWriter()
	partitions.SetOutputMirror(out)
	partitions.SetStyle(table.StyleLight)
	partitions.AppendHeader(table.Row{"Partition", "Pages", "Links", "Stop"})
	for _, p := range result.Partitions {
		partitions.AppendRow(table.Row{p.Key, p.Pages, p.Found, p.Stop})
	}
	partitions.Render()

	if result.ErrorCount == 0 {
		return
	}
	failures := table.NewWriter()
	failures.SetOutputMirror(out)
	failures.SetStyle(table.StyleLight)
	failures.AppendHeader(table.Row{"Failed", "URL", "Error"})
	for _, item := range result.Results {
		if !item.Success {
			failures.AppendRow(table.Row{item.Name, item.URL, item.Error})
		}
	}
	failures.Render()
}
