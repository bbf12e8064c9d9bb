package crawler

import (
	"context"
	"fmt"

	"github.com/alvmarrod/club-weaver/internal/extract"
	"github.com/alvmarrod/club-weaver/internal/metrics"
	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScrapeFunc fetches, extracts, classifies and persists one organization page
type ScrapeFunc func(ctx context.Context, link extract.Link) (storage.Organization, error)

// ItemResult is the outcome of one organization page
type ItemResult struct {
	Name    string                `json:"name"`
	URL     string                `json:"url"`
	Success bool                  `json:"success"`
	Record  *storage.Organization `json:"record,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// BatchResult aggregates every item of a run.
// SuccessCount + ErrorCount == TotalCount == len(Results) always holds.
type BatchResult struct {
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	TotalCount   int          `json:"total_count"`
	Results      []ItemResult `json:"results"`
}

// BatchRunner processes links in sequential fixed-size chunks, items of a
// chunk running concurrently
type BatchRunner struct {
	size    int
	pacer   *Pacer
	scrape  ScrapeFunc
	tracker *metrics.Tracker
}

// NewBatchRunner creates a batch runner; size below 1 is treated as 1
func NewBatchRunner(size int, pacer *Pacer, scrape ScrapeFunc, tracker *metrics.Tracker) *BatchRunner {
	if size < 1 {
		size = 1
	}
	return &BatchRunner{
		size:    size,
		pacer:   pacer,
		scrape:  scrape,
		tracker: tracker,
	}
}

// Run processes every link. Item failures never abort the run; each one is
// recorded in its slot of Results, which keeps the input order.
func (r *BatchRunner) Run(ctx context.Context, links []extract.Link) BatchResult {
	results := make([]ItemResult, len(links))
	batches := (len(links) + r.size - 1) / r.size

	for start := 0; start < len(links); start += r.size {
		end := min(start+r.size, len(links))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = r.runItem(ctx, links[i])
				return nil
			})
		}
		_ = g.Wait()

		logrus.Infof("Batch %d/%d complete (%d/%d items)", start/r.size+1, batches, end, len(links))
	}

	out := BatchResult{TotalCount: len(results), Results: results}
	for _, res := range results {
		if res.Success {
			out.SuccessCount++
		} else {
			out.ErrorCount++
		}
	}
	return out
}

// runItem isolates one item: errors and panics become a failed result
func (r *BatchRunner) runItem(ctx context.Context, link extract.Link) (res ItemResult) {
	res = ItemResult{Name: link.Name, URL: link.URL}

	defer func() {
		if p := recover(); p != nil {
			res.Success = false
			res.Record = nil
			res.Error = fmt.Sprintf("panic: %v", p)
			logrus.Errorf("Recovered panic scraping %s: %v", link.URL, p)
		}
		if res.Success {
			r.tracker.IncrementItemsSucceeded()
		} else {
			r.tracker.IncrementItemsFailed()
		}
	}()

	if err := r.pacer.WaitItem(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	org, err := r.scrape(ctx, link)
	if err != nil {
		logrus.Warnf("Failed to scrape %s (%s): %v", link.Name, link.URL, err)
		res.Error = err.Error()
		return res
	}

	// Raw renderings stay in the store; run results only carry the fields.
	org.RawContent = storage.RawContent{}
	res.Success = true
	res.Record = &org
	logrus.Debugf("Scraped %s -> %s %v", link.URL, org.Name, org.Categories)
	return res
}
