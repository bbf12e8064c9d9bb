// Package crawler walks the paginated club directory, deduplicates the
// discovered organization links and scrapes them in paced batches.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/alvmarrod/club-weaver/internal/classify"
	"github.com/alvmarrod/club-weaver/internal/config"
	"github.com/alvmarrod/club-weaver/internal/extract"
	"github.com/alvmarrod/club-weaver/internal/fetcher"
	"github.com/alvmarrod/club-weaver/internal/metrics"
	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Upserter persists one organization keyed by its source URL
type Upserter interface {
	Upsert(ctx context.Context, org storage.Organization) (storage.Organization, error)
}

// RunResult is the outcome of a full directory crawl
type RunResult struct {
	RunID      string            `json:"run_id"`
	Success    bool              `json:"success"`
	TotalLinks int               `json:"total_links"`
	Partitions []PartitionResult `json:"partitions"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	BatchResult
}

// Pipeline orchestrates walker, deduplicator, batch runner and upserter
type Pipeline struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	store      Upserter
	classifier *classify.Table
	pacer      *Pacer
	opts       fetcher.Options
	walker     *Walker
	tracker    *metrics.Tracker
}

// NewPipeline wires a pipeline. It refuses to build when the configured
// fetcher lacks its credential, so no fetch is ever attempted without it.
func NewPipeline(cfg *config.Config, f fetcher.Fetcher, store Upserter, classifier *classify.Table, tracker *metrics.Tracker) (*Pipeline, error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}
	if f == nil || store == nil {
		return nil, fmt.Errorf("pipeline requires a fetcher and a store")
	}

	discoverer, err := extract.NewDiscoverer(cfg.OrganizationURLPattern)
	if err != nil {
		return nil, err
	}
	if classifier == nil {
		classifier = classify.DefaultTable()
	}
	if tracker == nil {
		tracker = metrics.NewTracker()
	}

	pacer := PacerFromConfig(cfg)
	opts := fetcher.OptionsFromConfig(cfg)

	return &Pipeline{
		cfg:        cfg,
		fetcher:    f,
		store:      store,
		classifier: classifier,
		pacer:      pacer,
		opts:       opts,
		walker:     NewWalker(f, discoverer, pacer, cfg.ListingURL, cfg.MaxPagesPerPartition, opts, tracker),
		tracker:    tracker,
	}, nil
}

// Tracker returns the metrics tracker fed by this pipeline
func (p *Pipeline) Tracker() *metrics.Tracker {
	return p.tracker
}

// Run crawls every partition, then scrapes the deduplicated links.
// Individual page and item failures are reported in the result; the only
// error returned is the context's when the run was interrupted.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     ulid.Make().String(),
		StartedAt: time.Now(),
	}
	p.tracker.StartRun(result.RunID)
	logrus.Infof("Crawl %s starting: %d partitions, batch size %d", result.RunID, len(p.cfg.Partitions), p.cfg.BatchSize)

	result.Partitions = p.walker.WalkAll(ctx, p.cfg.Partitions)

	var discovered []extract.Link
	for _, partition := range result.Partitions {
		discovered = append(discovered, partition.Links...)
	}
	links := Dedupe(discovered)
	p.tracker.SetLinksUnique(len(links))
	result.TotalLinks = len(links)
	logrus.Infof("Discovered %d links, %d unique", len(discovered), len(links))

	runner := NewBatchRunner(p.cfg.BatchSize, p.pacer, p.scrape, p.tracker)
	result.BatchResult = runner.Run(ctx, links)
	result.FinishedAt = time.Now()
	result.Success = ctx.Err() == nil

	logrus.Infof("Crawl %s finished in %v: %d succeeded, %d failed, %d total",
		result.RunID, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
		result.SuccessCount, result.ErrorCount, result.TotalCount)

	return result, ctx.Err()
}

// ScrapeOne fetches, extracts, classifies and upserts a single organization page
func (p *Pipeline) ScrapeOne(ctx context.Context, url string) (storage.Organization, error) {
	return p.scrape(ctx, extract.Link{URL: url})
}

func (p *Pipeline) scrape(ctx context.Context, link extract.Link) (storage.Organization, error) {
	page, err := p.fetcher.Fetch(ctx, link.URL, p.opts)
	if err != nil {
		return storage.Organization{}, err
	}
	if page.IsEmpty() {
		return storage.Organization{}, fmt.Errorf("%w: %s: empty page", fetcher.ErrFetchFailed, link.URL)
	}

	org := extract.Extract(page)
	if canonical, err := extract.Canonicalize(link.URL); err == nil {
		org.SourceURL = canonical
	}
	if org.Name == "" {
		org.Name = link.Name
	}
	if org.Name == "" {
		org.Name = extract.SlugName(org.SourceURL)
	}
	org.Categories = p.classifier.Classify(org.Name, org.Description)
	org.RawContent = storage.RawContent{HTML: page.Markup, ExtractedText: page.Text}
	org.IsActive = true

	saved, err := p.store.Upsert(ctx, org)
	if err != nil {
		return storage.Organization{}, fmt.Errorf("failed to persist %s: %w", org.SourceURL, err)
	}
	return saved, nil
}
