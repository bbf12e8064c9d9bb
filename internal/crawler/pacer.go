package crawler

import (
	"context"
	"time"

	"github.com/alvmarrod/club-weaver/internal/config"
	"golang.org/x/time/rate"
)

// Pacer holds the politeness policy for outbound requests. Listing pages
// and partitions are spaced by rate limiters with a burst of one, so the
// first request goes out at once and every later one waits its gap. Each
// organization fetch sleeps its own pause, which keeps the items of a
// chunk concurrent.
type Pacer struct {
	item      time.Duration
	page      *rate.Limiter
	partition *rate.Limiter
}

// NewPacer creates a pacer; a zero duration disables that wait
func NewPacer(item, page, partition time.Duration) *Pacer {
	return &Pacer{
		item:      item,
		page:      gap(page),
		partition: gap(partition),
	}
}

// PacerFromConfig creates a pacer from the configured delays
func PacerFromConfig(cfg *config.Config) *Pacer {
	return NewPacer(
		time.Duration(cfg.ItemDelayMs)*time.Millisecond,
		time.Duration(cfg.PageDelayMs)*time.Millisecond,
		time.Duration(cfg.PartitionDelayMs)*time.Millisecond,
	)
}

func gap(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// WaitItem blocks for the item pause or until ctx is done
func (p *Pacer) WaitItem(ctx context.Context) error {
	if p.item <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.item)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitPage blocks until the next listing page may be requested
func (p *Pacer) WaitPage(ctx context.Context) error {
	return p.page.Wait(ctx)
}

// WaitPartition blocks until the next partition may start
func (p *Pacer) WaitPartition(ctx context.Context) error {
	return p.partition.Wait(ctx)
}
