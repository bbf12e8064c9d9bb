package storage

import "time"

// Organization is one club scraped from the directory, keyed by SourceURL
type Organization struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	SourceURL     string      `json:"source_url"`
	WebsiteURL    string      `json:"website_url,omitempty"`
	SocialMedia   SocialMedia `json:"social_media"`
	Contact       Contact     `json:"contact"`
	Location      *Location   `json:"location,omitempty"`
	Image         string      `json:"image,omitempty"`
	Categories    []string    `json:"categories"`
	RawContent    RawContent  `json:"raw_content"`
	IsActive      bool        `json:"is_active"`
	LastScrapedAt time.Time   `json:"last_scraped_at"`
	CreatedAt     time.Time   `json:"created_at"`
}

// SocialMedia holds one handle or URL per supported platform
type SocialMedia struct {
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

// IsEmpty reports whether no platform was found
func (s SocialMedia) IsEmpty() bool {
	return s == SocialMedia{}
}

// Contact holds the first email and phone found on a page
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Location is the address block of an organization page
type Location struct {
	Address  string `json:"address"`
	Room     string `json:"room,omitempty"`
	Building string `json:"building,omitempty"`
}

// RawContent keeps the fetched renderings for re-extraction
type RawContent struct {
	HTML          string `json:"html,omitempty"`
	ExtractedText string `json:"extracted_text,omitempty"`
}

// ListFilter narrows List results; zero value lists everything
type ListFilter struct {
	Category   string
	ActiveOnly bool
	Limit      int
}

// Metrics tracks crawl statistics for export on exit
type Metrics struct {
	RunID             string    `json:"run_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	PartitionsWalked  int       `json:"partitions_walked"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	LinksDiscovered   int       `json:"links_discovered"`
	LinksUnique       int       `json:"links_unique"`
	ItemsSucceeded    int       `json:"items_succeeded"`
	ItemsFailed       int       `json:"items_failed"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}
