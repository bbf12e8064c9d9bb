package crawler

import (
	"github.com/alvmarrod/club-weaver/internal/extract"
)

// visited tracks canonical URLs that were already accepted
type visited map[string]bool

// push marks key as visited. Returns true if added, false if duplicate
func (v visited) push(key string) bool {
	if v[key] {
		return false
	}
	v[key] = true
	return true
}

// Dedupe removes links pointing at the same canonical URL, keeping the first
// occurrence and its display name. Links whose URL cannot be canonicalized
// are compared verbatim.
func Dedupe(links []extract.Link) []extract.Link {
	seen := make(visited, len(links))
	unique := make([]extract.Link, 0, len(links))

	for _, link := range links {
		key, err := extract.Canonicalize(link.URL)
		if err != nil {
			key = link.URL
		}
		if !seen.push(key) {
			continue
		}
		unique = append(unique, link)
	}

	return unique
}
