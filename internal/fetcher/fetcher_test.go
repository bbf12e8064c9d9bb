package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alvmarrod/club-weaver/internal/config"
	"github.com/alvmarrod/club-weaver/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clubHTML = `<html><head>
<title>Chess Club</title>
<meta name="description" content="Chess on Fridays">
</head>
<body>
<nav><a href="/">Home</a> <a href="/all-clubs/">All Clubs</a></nav>
<main>
<h1>Chess Club</h1>
<p>We play chess every <strong>Friday</strong>.</p>
<p><a href="https://chess.example.com">Our website</a></p>
<img src="/logo.png" alt="Logo">
<ul><li>Room 204</li><li>Instagram: @ubcchess</li></ul>
</main>
<footer>Copyright 2026</footer>
<script>var tracking = true;</script>
</body></html>`

func TestNew_MissingCredential(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.FirecrawlAPIKey = ""

	f, err := New(cfg)
	assert.Nil(t, f)
	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestNew_SelectsFetcher(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.FirecrawlAPIKey = "fc-key"
	f, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Firecrawl{}, f)

	cfg = config.Default()
	cfg.Fetcher = config.FetcherDirect
	f, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Direct{}, f)
}

func TestFirecrawl_Fetch(t *testing.T) {
	t.Parallel()

	var got scrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "data": {"markdown": "# Chess Club", "html": "<h1>Chess Club</h1>", "metadata": {"statusCode": 200}}}`))
	}))
	defer srv.Close()

	f, err := NewFirecrawl(srv.URL+"/", "fc-key", 5*time.Second)
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), "https://dir.example/chess-club/", Options{
		ExcludeTags:     []string{"nav"},
		OnlyMainContent: true,
	})
	require.NoError(t, err)

	assert.Equal(t, extract.Page{
		URL:    "https://dir.example/chess-club/",
		Text:   "# Chess Club",
		Markup: "<h1>Chess Club</h1>",
	}, page)

	assert.Equal(t, "https://dir.example/chess-club/", got.URL)
	assert.Equal(t, []string{"markdown", "html"}, got.Formats)
	assert.Equal(t, []string{"nav"}, got.ExcludeTags)
	assert.Empty(t, got.IncludeTags)
	assert.True(t, got.OnlyMainContent)
}

func TestFirecrawl_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`, "status 500"},
		{"payment required", http.StatusPaymentRequired, `{"error": "Insufficient credits"}`, "Insufficient credits"},
		{"unsuccessful scrape", http.StatusOK, `{"success": false, "error": "blocked"}`, "blocked"},
		{"malformed body", http.StatusOK, `{"success": tru`, "malformed response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f, err := NewFirecrawl(srv.URL, "fc-key", 5*time.Second)
			require.NoError(t, err)

			_, err = f.Fetch(context.Background(), "https://dir.example/x/", Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFetchFailed))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestFirecrawl_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	f, err := NewFirecrawl(baseURL, "fc-key", time.Second)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "https://dir.example/x/", Options{})
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestNewFirecrawl_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewFirecrawl("https://api.firecrawl.dev", "  ", time.Second)
	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestDirect_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chess-club/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(clubHTML))
	}))
	defer srv.Close()

	d := NewDirect(5 * time.Second)
	page, err := d.Fetch(context.Background(), srv.URL+"/chess-club/", Options{
		ExcludeTags:     []string{"nav", "footer", "script"},
		OnlyMainContent: true,
	})
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/chess-club/", page.URL)
	assert.True(t, strings.HasPrefix(page.Text, "# Chess Club\n\nWe play chess every **Friday**."), page.Text)
	assert.Contains(t, page.Text, "[Our website](https://chess.example.com)")
	assert.Contains(t, page.Text, "![Logo]("+srv.URL+"/logo.png)")
	assert.Contains(t, page.Text, "- Room 204")
	assert.NotContains(t, page.Text, "Home")
	assert.NotContains(t, page.Text, "Copyright")
	assert.NotContains(t, page.Text, "tracking")

	// Markup keeps the head for the meta fallbacks but loses excluded tags
	assert.Contains(t, page.Markup, `name="description"`)
	assert.NotContains(t, page.Markup, "<nav>")

	org := extract.Extract(page)
	assert.Equal(t, "Chess Club", org.Name)
	assert.Equal(t, "We play chess every Friday.", org.Description)
	assert.Equal(t, "https://chess.example.com", org.WebsiteURL)
	assert.Equal(t, "@ubcchess", org.SocialMedia.Instagram)
}

func TestDirect_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewDirect(5*time.Second).Fetch(context.Background(), srv.URL+"/missing/", Options{})
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestDirect_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirect(time.Second).Fetch(ctx, "http://127.0.0.1:1/", Options{})
	assert.ErrorIs(t, err, ErrFetchFailed)
}
