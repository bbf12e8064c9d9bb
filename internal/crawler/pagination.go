package crawler

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/club-weaver/internal/extract"
)

const nextSelector = `a[rel~="next"], link[rel~="next"], a.next, a.next-page, .pagination-next a, a[aria-label="Next"], a[aria-label="Next page"]`

var (
	nextLink      = regexp.MustCompile(`(?i)\[\s*(?:next(?:\s+page)?|older(?:\s+entries)?|load\s+more)\s*[»›>→]*\s*\]\(|\[\s*[»›→]\s*\]\(`)
	numberToken   = regexp.MustCompile(`\d+`)
	separatorOnly = regexp.MustCompile(`^[\s\[\]()|,·•*_\-–]*$`)
)

// HasNextPage evaluates the stop heuristic for listing page n. It reports
// true when any of three signals is present: a token naming page n+1
// (including nextURL itself), a "next" pagination control, or n and n+1
// adjacent in a numeric sequence of the visible text.
func HasNextPage(p extract.Page, n int, nextURL string) bool {
	return hasPageToken(p, n+1, nextURL) || hasNextControl(p) || hasAdjacentNumbers(extract.StripLinks(p.Text), n)
}

func hasPageToken(p extract.Page, next int, nextURL string) bool {
	if nextURL != "" {
		candidates := []string{nextURL, html.EscapeString(nextURL)}
		if u, err := url.Parse(nextURL); err == nil && u.RawQuery != "" {
			relative := u.RequestURI()
			candidates = append(candidates, relative, html.EscapeString(relative))
		}
		for _, c := range candidates {
			if strings.Contains(p.Text, c) || strings.Contains(p.Markup, c) {
				return true
			}
		}
	}

	token := regexp.MustCompile(fmt.Sprintf(`(?i)(?:[?&/;](?:page|pg|paged)[=/]%d\b|\bpage\s+%d\b)`, next, next))
	return token.MatchString(p.Text) || token.MatchString(p.Markup)
}

func hasNextControl(p extract.Page) bool {
	if nextLink.MatchString(p.Text) {
		return true
	}
	if strings.TrimSpace(p.Markup) == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Markup))
	if err != nil {
		return false
	}
	return doc.Find(nextSelector).Length() > 0
}

// hasAdjacentNumbers finds n directly followed by n+1 with only separators between
func hasAdjacentNumbers(text string, n int) bool {
	locs := numberToken.FindAllStringIndex(text, -1)
	for i := 0; i+1 < len(locs); i++ {
		a, errA := strconv.Atoi(text[locs[i][0]:locs[i][1]])
		b, errB := strconv.Atoi(text[locs[i+1][0]:locs[i+1][1]])
		if errA != nil || errB != nil || a != n || b != n+1 {
			continue
		}
		if separatorOnly.MatchString(text[locs[i][1]:locs[i+1][0]]) {
			return true
		}
	}
	return false
}
