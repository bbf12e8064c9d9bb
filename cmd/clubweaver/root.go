package main

import (
	"fmt"

	"github.com/alvmarrod/club-weaver/internal/classify"
	"github.com/alvmarrod/club-weaver/internal/config"
	"github.com/alvmarrod/club-weaver/internal/crawler"
	"github.com/alvmarrod/club-weaver/internal/fetcher"
	"github.com/alvmarrod/club-weaver/internal/metrics"
	"github.com/alvmarrod/club-weaver/internal/version"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// cfgFile holds the path to the configuration file
	cfgFile string

	// debug forces debug logging regardless of log_level
	debug bool

	// cfg is loaded once before any subcommand runs
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:               "clubweaver",
		Short:             "Campus club directory crawler",
		Long:              `Walks a paginated club directory, extracts one record per organization and stores it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.json", "config file (JSON, optional)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(crawlCommand())
	rootCmd.AddCommand(scrapeCommand())
	rootCmd.AddCommand(listCommand())
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		// Skips config loading
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clubweaver version %s\n", version.Version)
		},
	})
}

// setup loads .env, configuration and log level
func setup(*cobra.Command, []string) error {
	// .env is optional; existing environment variables win
	_ = godotenv.Load()

	loaded, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("Unknown log_level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	if debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	logrus.Debugf("Configuration loaded: fetcher=%s, partitions=%d, batch=%d, db=%s",
		cfg.Fetcher, len(cfg.Partitions), cfg.BatchSize, cfg.DBPath)
	return nil
}

// newPipeline builds the fetcher, classifier and pipeline for store.
// A missing fetch credential is returned before anything touches the network.
func newPipeline(store crawler.Upserter, tracker *metrics.Tracker) (*crawler.Pipeline, error) {
	f, err := fetcher.New(cfg)
	if err != nil {
		return nil, err
	}

	classifier := classify.DefaultTable()
	if cfg.CategoriesPath != "" {
		classifier, err = classify.LoadTable(cfg.CategoriesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		logrus.Infof("Loaded %d categories from %s", len(classifier.Names()), cfg.CategoriesPath)
	}

	return crawler.NewPipeline(cfg, f, store, classifier, tracker)
}
