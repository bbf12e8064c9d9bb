package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alvmarrod/club-weaver/internal/config"
	"github.com/alvmarrod/club-weaver/internal/extract"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// Firecrawl fetches pages through a Firecrawl-compatible scrape API
type Firecrawl struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			SourceURL  string `json:"sourceURL"`
			StatusCode int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

// NewFirecrawl creates a client for baseURL authenticated with apiKey
func NewFirecrawl(baseURL, apiKey string, timeout time.Duration) (*Firecrawl, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, config.ErrMissingCredential
	}
	return &Firecrawl{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/v1/scrape",
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Fetch scrapes url in markdown and html formats
func (f *Firecrawl) Fetch(ctx context.Context, url string, opts Options) (extract.Page, error) {
	body, err := json.Marshal(scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown", "html"},
		IncludeTags:     opts.IncludeTags,
		ExcludeTags:     opts.ExcludeTags,
		OnlyMainContent: opts.OnlyMainContent,
	})
	if err != nil {
		return extract.Page{}, fmt.Errorf("failed to encode scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return extract.Page{}, fmt.Errorf("failed to build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return extract.Page{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return extract.Page{}, fmt.Errorf("%w: %s: reading response: %v", ErrFetchFailed, url, err)
	}

	if resp.StatusCode != http.StatusOK {
		return extract.Page{}, fmt.Errorf("%w: %s: status %d: %s", ErrFetchFailed, url, resp.StatusCode, snippet(data))
	}

	var out scrapeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return extract.Page{}, fmt.Errorf("%w: %s: malformed response: %v", ErrFetchFailed, url, err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "unsuccessful scrape"
		}
		return extract.Page{}, fmt.Errorf("%w: %s: %s", ErrFetchFailed, url, msg)
	}

	logrus.Debugf("Fetched %s via firecrawl in %v (%d bytes markdown)", url, time.Since(start), len(out.Data.Markdown))

	return extract.Page{
		URL:    url,
		Text:   out.Data.Markdown,
		Markup: out.Data.HTML,
	}, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
