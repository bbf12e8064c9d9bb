package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alvmarrod/club-weaver/internal/api"
	"github.com/alvmarrod/club-weaver/internal/metrics"
	"github.com/alvmarrod/club-weaver/internal/schedule"
	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	var addr, crawlSchedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the crawl, scrape and listing HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if crawlSchedule != "" {
				if _, err := schedule.Parse(crawlSchedule); err != nil {
					return err
				}
				cfg.CrawlSchedule = crawlSchedule
			}
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&crawlSchedule, "schedule", "", "cron expression for recurring crawls (default from config)")

	return cmd
}

func runServe(ctx context.Context) error {
	db, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer db.Close()

	// The listing routes work without a fetch credential; crawl and scrape
	// report the configuration error on every call instead
	pipeline, pipelineErr := newPipeline(db, metrics.NewTracker())
	if pipelineErr != nil {
		logrus.Warnf("Crawl and scrape endpoints disabled: %v", pipelineErr)
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(pipeline, pipelineErr, db)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(handler, cfg.APIAccessKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.CrawlSchedule != "" {
		if pipelineErr != nil {
			logrus.Warnf("Crawl schedule %q ignored: %v", cfg.CrawlSchedule, pipelineErr)
		} else {
			scheduler, err := schedule.New(cfg.CrawlSchedule, func(ctx context.Context) error {
				result, err := handler.RunCrawl(ctx)
				if err != nil {
					return err
				}
				logrus.Infof("Scheduled crawl %s: %d succeeded, %d failed", result.RunID, result.SuccessCount, result.ErrorCount)
				return nil
			})
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logrus.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("HTTP shutdown timeout (%v): %v", shutdownTimeout, err)
	}
	logrus.Info("Graceful shutdown complete. Goodbye!")
	return nil
}
