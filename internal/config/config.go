package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/alvmarrod/club-weaver/internal/schedule"
	"github.com/spf13/viper"
)

// ErrMissingCredential means the remote fetcher has no API key configured
var ErrMissingCredential = errors.New("firecrawl_api_key is required when fetcher is \"firecrawl\"")

// Fetcher kinds
const (
	FetcherFirecrawl = "firecrawl"
	FetcherDirect    = "direct"
)

// Config holds all runtime configuration parameters
type Config struct {
	DirectoryBaseURL       string   `mapstructure:"directory_base_url"`
	ListingURLTemplate     string   `mapstructure:"listing_url_template"`
	OrganizationURLPattern string   `mapstructure:"organization_url_pattern"`
	Partitions             []string `mapstructure:"partitions"`
	MaxPagesPerPartition   int      `mapstructure:"max_pages_per_partition"`
	BatchSize              int      `mapstructure:"batch_size"`
	ItemDelayMs            int      `mapstructure:"item_delay_ms"`
	PageDelayMs            int      `mapstructure:"page_delay_ms"`
	PartitionDelayMs       int      `mapstructure:"partition_delay_ms"`
	Fetcher                string   `mapstructure:"fetcher"`
	FirecrawlAPIKey        string   `mapstructure:"firecrawl_api_key"`
	FirecrawlBaseURL       string   `mapstructure:"firecrawl_base_url"`
	RequestTimeoutMs       int      `mapstructure:"request_timeout_ms"`
	IncludeTags            []string `mapstructure:"include_tags"`
	ExcludeTags            []string `mapstructure:"exclude_tags"`
	DBPath                 string   `mapstructure:"db_path"`
	MetricsPath            string   `mapstructure:"metrics_path"`
	CategoriesPath         string   `mapstructure:"categories_path"`
	ListenAddr             string   `mapstructure:"listen_addr"`
	CrawlSchedule          string   `mapstructure:"crawl_schedule"`
	APIAccessKey           string   `mapstructure:"api_access_key"`
	LogLevel               string   `mapstructure:"log_level"`
}

var keys = []string{
	"directory_base_url", "listing_url_template", "organization_url_pattern", "partitions",
	"max_pages_per_partition", "batch_size", "item_delay_ms", "page_delay_ms", "partition_delay_ms",
	"fetcher", "firecrawl_base_url", "request_timeout_ms", "include_tags", "exclude_tags",
	"db_path", "metrics_path", "categories_path", "listen_addr", "crawl_schedule", "api_access_key", "log_level",
}

// LoadConfig reads configuration from an optional JSON file and CLUBWEAVER_* environment
// variables, then applies defaults and validates
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("CLUBWEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	if err := v.BindEnv("firecrawl_api_key", "CLUBWEAVER_FIRECRAWL_API_KEY", "FIRECRAWL_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind firecrawl_api_key: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.DirectoryBaseURL == "" {
		cfg.DirectoryBaseURL = "https://amsclubs.ca"
	}
	if cfg.ListingURLTemplate == "" {
		cfg.ListingURLTemplate = strings.TrimSuffix(cfg.DirectoryBaseURL, "/") + "/all-clubs/?letter={letter}&pg={page}"
	}
	if cfg.OrganizationURLPattern == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSuffix(cfg.DirectoryBaseURL, "/"), "https://"), "http://")
		cfg.OrganizationURLPattern = `^https?://` + regexp.QuoteMeta(strings.ToLower(host)) + `/[a-z0-9][a-z0-9-]*/$`
	}
	if len(cfg.Partitions) == 0 {
		for c := 'A'; c <= 'Z'; c++ {
			cfg.Partitions = append(cfg.Partitions, string(c))
		}
	}
	if cfg.MaxPagesPerPartition == 0 {
		cfg.MaxPagesPerPartition = 50
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 5
	}
	if cfg.ItemDelayMs == 0 {
		cfg.ItemDelayMs = 500
	}
	if cfg.PageDelayMs == 0 {
		cfg.PageDelayMs = 1000
	}
	if cfg.PartitionDelayMs == 0 {
		cfg.PartitionDelayMs = 3000
	}
	if cfg.Fetcher == "" {
		cfg.Fetcher = FetcherFirecrawl
	}
	if cfg.FirecrawlBaseURL == "" {
		cfg.FirecrawlBaseURL = "https://api.firecrawl.dev"
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 30000
	}
	if cfg.ExcludeTags == nil {
		cfg.ExcludeTags = []string{"nav", "footer", "header", "script", "style", "form"}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "clubs.db"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.log"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks that required fields are present and values are sensible.
// A missing fetch credential is not checked here; see RequireCredential.
func (cfg *Config) Validate() error {
	if !strings.Contains(cfg.ListingURLTemplate, "{letter}") || !strings.Contains(cfg.ListingURLTemplate, "{page}") {
		return fmt.Errorf("listing_url_template must contain {letter} and {page}")
	}
	if _, err := regexp.Compile(cfg.OrganizationURLPattern); err != nil {
		return fmt.Errorf("organization_url_pattern is not a valid regexp: %w", err)
	}
	if cfg.MaxPagesPerPartition < 1 {
		return fmt.Errorf("max_pages_per_partition must be >= 1")
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1")
	}
	if cfg.ItemDelayMs < 0 || cfg.PageDelayMs < 0 || cfg.PartitionDelayMs < 0 {
		return fmt.Errorf("delays must be >= 0")
	}
	if cfg.Fetcher != FetcherFirecrawl && cfg.Fetcher != FetcherDirect {
		return fmt.Errorf("fetcher must be %q or %q, got %q", FetcherFirecrawl, FetcherDirect, cfg.Fetcher)
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.CrawlSchedule != "" {
		if _, err := schedule.Parse(cfg.CrawlSchedule); err != nil {
			return fmt.Errorf("crawl_schedule: %w", err)
		}
	}
	return nil
}

// RequireCredential fails with ErrMissingCredential when the configured
// fetcher cannot run without an API key it does not have
func (cfg *Config) RequireCredential() error {
	if cfg.Fetcher == FetcherFirecrawl && strings.TrimSpace(cfg.FirecrawlAPIKey) == "" {
		return ErrMissingCredential
	}
	return nil
}

// ListingURL expands the listing template for one partition page
func (cfg *Config) ListingURL(partition string, page int) string {
	return strings.NewReplacer("{letter}", partition, "{page}", fmt.Sprint(page)).Replace(cfg.ListingURLTemplate)
}

// RequestTimeout returns the per-request timeout
func (cfg *Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
}
