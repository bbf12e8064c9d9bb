// Package api exposes the crawl pipeline and the stored clubs over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/alvmarrod/club-weaver/internal/crawler"
	"github.com/alvmarrod/club-weaver/internal/fetcher"
	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/alvmarrod/club-weaver/internal/version"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrCrawlInProgress is returned by RunCrawl while another crawl is running
var ErrCrawlInProgress = errors.New("a crawl is already running")

// Crawler runs the pipeline entry points
type Crawler interface {
	Run(ctx context.Context) (*crawler.RunResult, error)
	ScrapeOne(ctx context.Context, url string) (storage.Organization, error)
}

// Store is the read side of the organization store
type Store interface {
	Get(ctx context.Context, id string) (storage.Organization, error)
	List(ctx context.Context, filter storage.ListFilter) ([]storage.Organization, error)
	Count(ctx context.Context) (int, error)
}

// Handler serves the API routes
type Handler struct {
	crawler    Crawler
	crawlerErr error
	store      Store
	running    atomic.Bool
}

// NewHandler creates a handler. A non-nil crawlerErr (typically a missing
// fetch credential) makes crawl and scrape fail immediately with 503 while
// the read routes keep working.
func NewHandler(c Crawler, crawlerErr error, store Store) *Handler {
	return &Handler{
		crawler:    c,
		crawlerErr: crawlerErr,
		store:      store,
	}
}

type scrapeRequest struct {
	URL string `json:"url" binding:"required"`
}

// Crawl runs a full directory crawl and returns its aggregate result
func (h *Handler) Crawl(c *gin.Context) {
	if h.crawlerErr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": h.crawlerErr.Error()})
		return
	}

	// The crawl outlives the request: a client that disconnects or times
	// out does not abort it
	result, err := h.RunCrawl(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, ErrCrawlInProgress) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RunCrawl runs one crawl unless another is in progress. The HTTP route and
// the crawl schedule share it, so at most one crawl runs at a time.
func (h *Handler) RunCrawl(ctx context.Context) (*crawler.RunResult, error) {
	if h.crawlerErr != nil {
		return nil, h.crawlerErr
	}
	if !h.running.CompareAndSwap(false, true) {
		return nil, ErrCrawlInProgress
	}
	defer h.running.Store(false)

	result, err := h.crawler.Run(ctx)
	if err != nil {
		logrus.Warnf("Crawl interrupted: %v", err)
	}
	return result, err
}

// Scrape extracts, classifies and stores one organization page
func (h *Handler) Scrape(c *gin.Context) {
	if h.crawlerErr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": h.crawlerErr.Error()})
		return
	}

	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "url is required"})
		return
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "url must be an absolute http(s) URL"})
		return
	}

	org, err := h.crawler.ScrapeOne(c.Request.Context(), req.URL)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fetcher.ErrFetchFailed) {
			status = http.StatusBadGateway
		}
		logrus.Warnf("Scrape of %s failed: %v", req.URL, err)
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "record": org})
}

// ListClubs lists stored organizations, optionally by category
func (h *Handler) ListClubs(c *gin.Context) {
	filter := storage.ListFilter{
		Category:   c.Query("category"),
		ActiveOnly: c.Query("active") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	orgs, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		logrus.Errorf("Failed to list organizations: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if c.Query("raw") != "true" {
		for i := range orgs {
			orgs[i].RawContent = storage.RawContent{}
		}
	}
	if orgs == nil {
		orgs = []storage.Organization{}
	}

	c.JSON(http.StatusOK, gin.H{"clubs": orgs, "count": len(orgs)})
}

// GetClub returns one stored organization
func (h *Handler) GetClub(c *gin.Context) {
	org, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "club not found"})
		return
	}
	if err != nil {
		logrus.Errorf("Failed to get organization %s: %v", c.Param("id"), err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, org)
}

// Health reports service status
func (h *Handler) Health(c *gin.Context) {
	health := gin.H{
		"status":        "ok",
		"version":       version.Version,
		"timestamp":     time.Now().Format(time.RFC3339),
		"crawler_ready": h.crawlerErr == nil,
		"crawling":      h.running.Load(),
	}
	if count, err := h.store.Count(c.Request.Context()); err == nil {
		health["organizations"] = count
	}

	c.JSON(http.StatusOK, health)
}
