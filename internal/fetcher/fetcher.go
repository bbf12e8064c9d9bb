// Package fetcher retrieves directory pages as a markdown-like text rendering
// plus the original markup.
package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/alvmarrod/club-weaver/internal/config"
	"github.com/alvmarrod/club-weaver/internal/extract"
)

// ErrFetchFailed wraps every non-success fetch outcome
var ErrFetchFailed = errors.New("fetch failed")

// Options narrow which parts of a page are rendered
type Options struct {
	IncludeTags     []string
	ExcludeTags     []string
	OnlyMainContent bool
}

// Fetcher retrieves one page
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) (extract.Page, error)
}

// New builds the fetcher selected by cfg. A remote fetcher without its
// credential is rejected with config.ErrMissingCredential.
func New(cfg *config.Config) (Fetcher, error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}

	switch cfg.Fetcher {
	case config.FetcherFirecrawl:
		return NewFirecrawl(cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKey, cfg.RequestTimeout())
	case config.FetcherDirect:
		return NewDirect(cfg.RequestTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}
}

// OptionsFromConfig returns the tag filters configured for page fetches
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IncludeTags:     cfg.IncludeTags,
		ExcludeTags:     cfg.ExcludeTags,
		OnlyMainContent: len(cfg.IncludeTags) == 0,
	}
}
