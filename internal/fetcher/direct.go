package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/club-weaver/internal/extract"
	"github.com/alvmarrod/club-weaver/internal/version"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Direct fetches pages itself with colly and renders them locally
type Direct struct {
	timeout   time.Duration
	userAgent string
}

// NewDirect creates a fetcher that needs no remote credential
func NewDirect(timeout time.Duration) *Direct {
	return &Direct{
		timeout:   timeout,
		userAgent: "club-weaver/" + version.Version,
	}
}

// Fetch visits url and renders the response body
func (d *Direct) Fetch(ctx context.Context, url string, opts Options) (extract.Page, error) {
	if err := ctx.Err(); err != nil {
		return extract.Page{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(d.userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(d.timeout)

	var (
		body     []byte
		finalURL string
		fetchErr error
	)

	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
		logrus.Debugf("Fetched %s (status=%d, %d bytes)", finalURL, r.StatusCode, len(r.Body))
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %v", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return extract.Page{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return extract.Page{}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, fetchErr)
	}
	if len(body) == 0 {
		return extract.Page{URL: url}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return extract.Page{}, fmt.Errorf("%w: %s: unparseable markup: %v", ErrFetchFailed, url, err)
	}

	text := Render(doc, finalURL, opts)
	markup, err := doc.Html()
	if err != nil {
		markup = string(body)
	}

	return extract.Page{URL: url, Text: text, Markup: markup}, nil
}
