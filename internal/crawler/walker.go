package crawler

import (
	"context"
	"time"

	"github.com/alvmarrod/club-weaver/internal/extract"
	"github.com/alvmarrod/club-weaver/internal/fetcher"
	"github.com/alvmarrod/club-weaver/internal/metrics"
	"github.com/sirupsen/logrus"
)

// StopReason tells why a partition walk ended. None of them is an error.
type StopReason string

const (
	StopNoMorePages StopReason = "no_more_pages"
	StopEmptyPage   StopReason = "empty_page"
	StopFetchFailed StopReason = "fetch_failed"
	StopPageCap     StopReason = "page_cap"
	StopCanceled    StopReason = "canceled"
)

// PartitionResult is the outcome of walking one partition
type PartitionResult struct {
	Key   string         `json:"key"`
	Pages int            `json:"pages"`
	Links []extract.Link `json:"-"`
	Found int            `json:"links"`
	Stop  StopReason     `json:"stop"`
	Error string         `json:"error,omitempty"`
}

// ListingURLFunc builds the URL of one listing page
type ListingURLFunc func(partition string, page int) string

// Walker fetches successive listing pages of a partition until the stop heuristic fires
type Walker struct {
	fetcher    fetcher.Fetcher
	discoverer *extract.Discoverer
	pacer      *Pacer
	listingURL ListingURLFunc
	maxPages   int
	opts       fetcher.Options
	tracker    *metrics.Tracker
}

// NewWalker creates a pagination walker
func NewWalker(f fetcher.Fetcher, d *extract.Discoverer, pacer *Pacer, listingURL ListingURLFunc, maxPages int, opts fetcher.Options, tracker *metrics.Tracker) *Walker {
	return &Walker{
		fetcher:    f,
		discoverer: d,
		pacer:      pacer,
		listingURL: listingURL,
		maxPages:   maxPages,
		opts:       opts,
		tracker:    tracker,
	}
}

// Walk fetches pages 1..n of one partition, accumulating discovered links.
// A failed or empty page ends the partition without failing the walk.
func (w *Walker) Walk(ctx context.Context, key string) PartitionResult {
	result := PartitionResult{Key: key}
	defer w.tracker.IncrementPartitions()

	for page := 1; ; page++ {
		if err := w.pacer.WaitPage(ctx); err != nil {
			result.Stop = StopCanceled
			break
		}

		pageURL := w.listingURL(key, page)
		start := time.Now()
		content, err := w.fetcher.Fetch(ctx, pageURL, w.opts)
		w.tracker.RecordFetchTime(time.Since(start))
		if err != nil {
			w.tracker.IncrementPagesFailed()
			if ctx.Err() != nil {
				result.Stop = StopCanceled
				break
			}
			logrus.Warnf("Partition %s page %d: %v", key, page, err)
			result.Stop = StopFetchFailed
			result.Error = err.Error()
			break
		}
		w.tracker.IncrementPagesFetched()
		result.Pages = page

		if content.IsEmpty() {
			result.Stop = StopEmptyPage
			break
		}

		links := w.discoverer.ListingLinks(content)
		result.Links = append(result.Links, links...)
		w.tracker.AddLinksDiscovered(len(links))
		logrus.Infof("Partition %s page %d: %d links", key, page, len(links))

		if !HasNextPage(content, page, w.listingURL(key, page+1)) {
			result.Stop = StopNoMorePages
			break
		}
		if page >= w.maxPages {
			result.Stop = StopPageCap
			break
		}
	}

	result.Found = len(result.Links)
	logrus.Infof("Partition %s finished after %d pages: %d links (%s)", key, result.Pages, result.Found, result.Stop)
	return result
}

// WalkAll walks partitions strictly one after another, pausing between them
func (w *Walker) WalkAll(ctx context.Context, keys []string) []PartitionResult {
	results := make([]PartitionResult, 0, len(keys))

	for _, key := range keys {
		if err := w.pacer.WaitPartition(ctx); err != nil {
			logrus.Warnf("Partition walk interrupted before %s: %v", key, err)
			break
		}
		results = append(results, w.Walk(ctx, key))
	}

	return results
}
