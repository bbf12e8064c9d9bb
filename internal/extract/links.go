package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const maxHeadingLine = 100

var (
	markdownLink = regexp.MustCompile(`\[([^\[\]]*)\]\(\s*(\S+?)(?:\s+"[^"]*")?\s*\)`)
	headingLike  = regexp.MustCompile(`^(?:#{1,6}[ \t]+(.+?)[ \t#]*|\*\*(.+?)\*\*|__(.+?)__)$`)
)

// strategy is one way of finding organization links on a page
type strategy func(v *view) []Link

// Discoverer finds per-organization links on directory pages
type Discoverer struct {
	target *regexp.Regexp
}

// NewDiscoverer creates a discoverer accepting links whose canonical URL matches pattern
func NewDiscoverer(pattern string) (*Discoverer, error) {
	target, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid organization url pattern: %w", err)
	}
	return &Discoverer{target: target}, nil
}

// Links discovers organization links using markdown links, then markup anchors
func (d *Discoverer) Links(p Page) []Link {
	return d.discover(p, d.markdownLinks, d.markupAnchors)
}

// ListingLinks additionally falls back to call-to-action links ("Discover")
// paired with nearby headings, then to bare organization URLs.
func (d *Discoverer) ListingLinks(p Page) []Link {
	return d.discover(p, d.markdownLinks, d.markupAnchors, d.callToActionLinks, d.bareLinks)
}

// discover returns the deduplicated output of the first strategy yielding anything
func (d *Discoverer) discover(p Page, strategies ...strategy) []Link {
	v := newView(p)
	for i, s := range strategies {
		links := uniqueByURL(s(v))
		if len(links) > 0 {
			logrus.Debugf("Discovered %d links on %s (strategy %d)", len(links), p.URL, i+1)
			return links
		}
	}
	return nil
}

// accept resolves href and returns its canonical form when it is an organization page
func (d *Discoverer) accept(v *view, href, text string) (string, bool) {
	abs := Resolve(baseURL(v.URL), href)
	if abs == "" || IsExcluded(abs, text) {
		return "", false
	}
	canonical, err := Canonicalize(abs)
	if err != nil || !d.target.MatchString(canonical) {
		return "", false
	}
	if self, err := Canonicalize(v.URL); err == nil && self == canonical {
		return "", false
	}
	return canonical, true
}

func (d *Discoverer) markdownLinks(v *view) []Link {
	var links []Link
	for _, m := range markdownLink.FindAllStringSubmatchIndex(v.Text, -1) {
		if m[0] > 0 && v.Text[m[0]-1] == '!' {
			continue // image reference
		}
		text := cleanText(v.Text[m[2]:m[3]])
		if text == "" || IsCallToAction(text) {
			continue
		}
		if u, ok := d.accept(v, v.Text[m[4]:m[5]], text); ok {
			links = append(links, Link{Name: text, URL: u})
		}
	}
	return links
}

func (d *Discoverer) markupAnchors(v *view) []Link {
	if v.doc == nil {
		return nil
	}
	var links []Link
	v.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" {
			text, _ = s.Attr("title")
			text = cleanText(text)
		}
		if text == "" || IsCallToAction(text) {
			return
		}
		href, _ := s.Attr("href")
		if u, ok := d.accept(v, href, text); ok {
			links = append(links, Link{Name: text, URL: u})
		}
	})
	return links
}

// callToActionLinks pairs "Discover"-style links with the closest heading-like
// line before them, falling back to a name derived from the URL.
func (d *Discoverer) callToActionLinks(v *view) []Link {
	var links []Link
	prev := 0
	for _, m := range markdownLink.FindAllStringSubmatchIndex(v.Text, -1) {
		text := cleanText(v.Text[m[2]:m[3]])
		if !IsCallToAction(text) {
			continue
		}
		u, ok := d.accept(v, v.Text[m[4]:m[5]], "")
		if !ok {
			continue
		}
		name := nearestHeading(v.Text[prev:m[0]])
		if name == "" {
			name = SlugName(u)
		}
		links = append(links, Link{Name: name, URL: u})
		prev = m[1]
	}
	if len(links) > 0 || v.doc == nil {
		return links
	}

	v.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if !IsCallToAction(cleanText(s.Text())) {
			return
		}
		href, _ := s.Attr("href")
		u, ok := d.accept(v, href, "")
		if !ok {
			return
		}
		name := cleanText(s.Closest("article, li, div").Find("h1, h2, h3, h4, h5, h6, strong").First().Text())
		if name == "" {
			name = SlugName(u)
		}
		links = append(links, Link{Name: name, URL: u})
	})
	return links
}

// bareLinks names any organization-shaped URL in the text after its path
func (d *Discoverer) bareLinks(v *view) []Link {
	var links []Link
	for _, raw := range bareURL.FindAllString(v.Text, -1) {
		if u, ok := d.accept(v, strings.TrimRight(raw, trailingPunct), ""); ok {
			links = append(links, Link{Name: SlugName(u), URL: u})
		}
	}
	return links
}

// nearestHeading returns the last heading-like line in segment
func nearestHeading(segment string) string {
	lines := strings.Split(segment, "\n")
	fallback := ""
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || len(line) > maxHeadingLine {
			continue
		}
		if m := headingLike.FindStringSubmatch(line); m != nil {
			for _, g := range m[1:] {
				if g != "" {
					return cleanText(g)
				}
			}
		}
		if fallback == "" && !strings.ContainsAny(line, "[]()") {
			fallback = cleanText(line)
		}
	}
	return fallback
}

func uniqueByURL(links []Link) []Link {
	seen := make(map[string]bool, len(links))
	unique := links[:0]
	for _, l := range links {
		if seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		unique = append(unique, l)
	}
	return unique
}

func baseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return nil
	}
	return u
}
