package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/club-weaver/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// StartRun clears every counter and tags the metrics with a new crawl run.
// A long-lived tracker reports each run on its own.
func (t *Tracker) StartRun(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = storage.Metrics{
		RunID:     id,
		StartTime: time.Now(),
	}
	t.totalFetchTimeMs = 0
	t.fetchCount = 0
}

// IncrementPartitions increments the walked partitions counter
func (t *Tracker) IncrementPartitions() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PartitionsWalked++
}

// IncrementPagesFetched increments the successful listing fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// IncrementPagesFailed increments the failed listing fetch counter
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// AddLinksDiscovered adds links found on one listing page
func (t *Tracker) AddLinksDiscovered(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksDiscovered += n
}

// SetLinksUnique records how many links survived deduplication
func (t *Tracker) SetLinksUnique(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksUnique = n
}

// IncrementItemsSucceeded increments the persisted organizations counter
func (t *Tracker) IncrementItemsSucceeded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ItemsSucceeded++
}

// IncrementItemsFailed increments the failed organizations counter
func (t *Tracker) IncrementItemsFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ItemsFailed++
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		t.data.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics as one line for periodic updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Partitions: %d | Pages: %d fetched, %d failed | Links: %d discovered, %d unique | Items: %d ok, %d failed",
		t.data.PartitionsWalked,
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.LinksDiscovered,
		t.data.LinksUnique,
		t.data.ItemsSucceeded,
		t.data.ItemsFailed,
	)
}
