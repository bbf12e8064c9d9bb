// Package extract turns fetched directory pages into organization fields and
// candidate organization links.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Page is one fetched page in both renderings
type Page struct {
	URL    string
	Text   string // markdown-like rendering
	Markup string // original HTML
}

// IsEmpty reports whether the fetch produced no content at all
func (p Page) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.Markup) == ""
}

// Link is a candidate organization page found on a listing page
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// view caches derived forms of a Page shared by the extraction rules
type view struct {
	Page
	plain string
	doc   *goquery.Document
}

func newView(p Page) *view {
	v := &view{Page: p, plain: StripLinks(p.Text)}
	if strings.TrimSpace(p.Markup) != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Markup))
		if err != nil {
			logrus.Debugf("Unparseable markup for %s: %v", p.URL, err)
		} else {
			v.doc = doc
		}
	}
	return v
}
