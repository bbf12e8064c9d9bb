package extract

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stoplist patterns matched against link targets (navigation, listing pages, assets, social media)
var excludedURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.(jpe?g|png|gif|svg|webp|ico|css|js|pdf|xml|json)(\?|$)`),
	regexp.MustCompile(`(?i)/wp-(content|json|admin|includes|login)`),
	regexp.MustCompile(`(?i)/(feed|tag|category|author|page|search)(/|$)`),
	regexp.MustCompile(`(?i)[?&](letter|pg|page|paged|s)=`),
	regexp.MustCompile(`(?i)/(login|logout|register|cart|checkout|my-account|contact|about|privacy-policy)/?$`),
	regexp.MustCompile(`(?i)^(mailto|tel|javascript):`),
	regexp.MustCompile(`(?i)(facebook|fb)\.com`),
	regexp.MustCompile(`(?i)(^|[/.])(twitter|x)\.com`),
	regexp.MustCompile(`(?i)instagram\.com`),
	regexp.MustCompile(`(?i)linkedin\.com`),
	regexp.MustCompile(`(?i)youtube\.com`),
}

// Stoplist patterns matched against anchor text
var excludedTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(home|about( us)?|contact( us)?|log ?in|log ?out|sign ?(in|up)|register|search|menu|back|skip to (main )?content)\s*$`),
	regexp.MustCompile(`(?i)^\s*(all )?(clubs|organizations|directory|club directory)\s*$`),
	regexp.MustCompile(`(?i)^\s*(next|prev(ious)?|first|last|older|newer)( page)?\s*[»«›‹>]*\s*$`),
	regexp.MustCompile(`^\s*[»«›‹<>→←]+\s*$`),
	regexp.MustCompile(`^\s*[A-Z]?\d*\s*$`), // single letters of the index and page numbers
	regexp.MustCompile(`(?i)^\s*(privacy|terms|cookie)`),
}

// Anchor texts that name an action instead of an organization
var callToActionPattern = regexp.MustCompile(`(?i)^\s*(discover|learn more|read more|more info(rmation)?|see more|view( club| details| more| profile)?|visit( club)?|details)\b`)

var (
	markdownLinkTarget = regexp.MustCompile(`\]\([^)]*\)`)
	bareURL            = regexp.MustCompile(`https?://[^\s)\]>"']+`)
)

// IsExcluded checks if a link target or its anchor text matches the stoplist
func IsExcluded(target, text string) bool {
	for _, pattern := range excludedURLPatterns {
		if pattern.MatchString(target) {
			return true
		}
	}
	for _, pattern := range excludedTextPatterns {
		if text != "" && pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// IsCallToAction reports whether anchor text is a generic action such as "Discover"
func IsCallToAction(text string) bool {
	return callToActionPattern.MatchString(text)
}

// Canonicalize normalizes an organization URL: lower-case scheme and host,
// no query or fragment, exactly one trailing slash.
func Canonicalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.User = nil

	p := path.Clean("/" + parsed.Path)
	if p != "/" {
		p += "/"
	}
	parsed.Path = p
	parsed.RawPath = ""

	return parsed.String(), nil
}

// Resolve makes href absolute against base; empty result means unusable
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if !ref.IsAbs() {
			return ""
		}
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// SlugName derives a display name from the last path segment of a URL:
// "https://dir.example/chess-club/" -> "Chess Club"
func SlugName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segment := path.Base(strings.TrimSuffix(parsed.Path, "/"))
	if segment == "." || segment == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	segment = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(segment)
	return cases.Title(language.English).String(strings.Join(strings.Fields(segment), " "))
}

// StripLinks drops link targets and bare URLs so that numeric patterns
// (phone numbers, page sequences) are matched on visible text only.
func StripLinks(text string) string {
	text = markdownLinkTarget.ReplaceAllString(text, "]")
	return bareURL.ReplaceAllString(text, "")
}

// cleanText collapses whitespace and strips markdown emphasis
func cleanText(s string) string {
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	s = strings.Trim(strings.Join(strings.Fields(s), " "), " *_")
	return s
}
