package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"
)

// rule extracts one field from a page; "" means no match
type rule func(v *view) string

const (
	trailingPunct   = ".,;:!?"
	maxDescription  = 2000
	minExcerptRunes = 20
)

var (
	headingLine    = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t#]*$`)
	titleLabelLine = regexp.MustCompile(`(?mi)^[ \t*_]*title[ \t*_]*:[ \t*_]*(.+?)[ \t]*$`)
	blockSeparator = regexp.MustCompile(`\n[ \t]*\n`)
	labelLine      = regexp.MustCompile(`(?i)^[ \t*_#]*(website|location|address|email|e-mail|phone|contact|instagram|facebook|linkedin|twitter|social media)[ \t*_]*:`)
	linkOnlyLine   = regexp.MustCompile(`^\s*!?\[[^\]]*\]\([^)]*\)\s*$`)
	websiteLink    = regexp.MustCompile(`\[([^\]]*\b[Ww][Ee][Bb][Ss][Ii][Tt][Ee]\b[^\]]*)\]\((https?://[^)\s]+)\)`)
	websiteLabel   = regexp.MustCompile(`(?mi)^[ \t*_-]*website[ \t*_]*:[ \t*_]*(?:\[[^\]\n]*\]\()?<?(https?://[^\s>)\]]+)`)
	emailToken     = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneToken     = regexp.MustCompile(`\(?\b\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)
	locationBlock  = regexp.MustCompile(`(?is)(?:^|\n)[ \t*_#-]*(?:location|address)[ \t*_]*:[ \t*_]*(.*?)(?:\n[ \t]*\n|\z)`)
	roomToken      = regexp.MustCompile(`(?i)\b(?:room|rm)\.?\s*#?\s*([A-Za-z0-9][A-Za-z0-9\-]*)`)
	buildingRun    = regexp.MustCompile(`\b[A-Z]{2,}(?:[ \t]+[A-Z]{2,})*\b`)
	imageReference = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)`)
	mailtoTarget   = regexp.MustCompile(`(?i)\(mailto:([^)\s?]+)`)
)

// socialPatterns per platform; first match wins. URL forms precede @handle forms.
var socialPatterns = map[string][]*regexp.Regexp{
	"instagram": {
		regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.]+/?`),
		regexp.MustCompile(`(?i)\binstagram\b[^\n@]{0,30}[\s:(](@[A-Za-z0-9_.]+)`),
		regexp.MustCompile(`(?i)(?:^|[\s(])(@[A-Za-z0-9_.]*[A-Za-z0-9_])[ \t]+on[ \t]+instagram\b`),
	},
	"facebook": {
		regexp.MustCompile(`(?i)https?://(?:www\.|m\.)?(?:facebook|fb)\.com/[A-Za-z0-9_.\-/?=]+`),
		regexp.MustCompile(`(?i)\bfacebook\b[^\n@]{0,30}[\s:(](@[A-Za-z0-9_.]+)`),
	},
	"linkedin": {
		regexp.MustCompile(`(?i)https?://(?:[a-z]{2,3}\.)?linkedin\.com/(?:company|in|groups|school|showcase)/[A-Za-z0-9_\-%.]+/?`),
		regexp.MustCompile(`(?i)\blinkedin\b[^\n@]{0,30}[\s:(](@[A-Za-z0-9_.\-]+)`),
	},
	"twitter": {
		regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_]+/?`),
		regexp.MustCompile(`(?i)(?:\btwitter\b|\bx\.com\b|\bx[ \t]*:)[^\n@]{0,30}[\s:(](@[A-Za-z0-9_]+)`),
		regexp.MustCompile(`(?i)(?:^|[\s(])(@[A-Za-z0-9_]+)[ \t]+on[ \t]+twitter\b`),
	},
}

var (
	nameRules        = []rule{headingName, titleLabelName}
	descriptionRules = []rule{paragraphAfterHeading, metaDescription, readableExcerpt}
	websiteRules     = []rule{websiteAnchor, websiteLabelLine, websiteMarkupAnchor}
	emailRules       = []rule{firstEmail, mailtoLink, mailtoAnchor}
	phoneRules       = []rule{firstPhone}
	imageRules       = []rule{firstImageReference, openGraphImage}
)

// Extract pulls every known field out of a page. Each field is resolved
// independently; a field whose rules all miss is left empty.
func Extract(p Page) storage.Organization {
	v := newView(p)

	org := storage.Organization{
		Name:        firstOf(nameRules, v),
		Description: truncate(firstOf(descriptionRules, v), maxDescription),
		SourceURL:   p.URL,
		WebsiteURL:  firstOf(websiteRules, v),
		SocialMedia: storage.SocialMedia{
			Instagram: firstSocial(v, "instagram"),
			Facebook:  firstSocial(v, "facebook"),
			LinkedIn:  firstSocial(v, "linkedin"),
			Twitter:   firstSocial(v, "twitter"),
		},
		Contact: storage.Contact{
			Email: firstOf(emailRules, v),
			Phone: firstOf(phoneRules, v),
		},
		Location: extractLocation(v),
		Image:    firstOf(imageRules, v),
	}

	logrus.Debugf("Extracted %q from %s (website=%t, location=%t, social=%t)",
		org.Name, p.URL, org.WebsiteURL != "", org.Location != nil, !org.SocialMedia.IsEmpty())

	return org
}

func firstOf(rules []rule, v *view) string {
	for _, r := range rules {
		if value := strings.TrimSpace(r(v)); value != "" {
			return value
		}
	}
	return ""
}

func headingName(v *view) string {
	if m := headingLine.FindStringSubmatch(v.Text); m != nil {
		return cleanText(m[1])
	}
	return ""
}

func titleLabelName(v *view) string {
	if m := titleLabelLine.FindStringSubmatch(v.Text); m != nil {
		return cleanText(m[1])
	}
	return ""
}

// paragraphAfterHeading returns the first prose block after the top-level heading
func paragraphAfterHeading(v *view) string {
	loc := headingLine.FindStringIndex(v.Text)
	if loc == nil {
		return ""
	}
	for _, block := range blockSeparator.Split(v.Text[loc[1]:], -1) {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") || linkOnlyLine.MatchString(block) || labelLine.MatchString(block) {
			continue
		}
		return cleanText(block)
	}
	return ""
}

func metaDescription(v *view) string {
	if v.doc == nil {
		return ""
	}
	content, _ := v.doc.Find(`meta[name="description"]`).First().Attr("content")
	return cleanText(content)
}

func readableExcerpt(v *view) string {
	if v.doc == nil {
		return ""
	}
	pageURL, err := url.Parse(v.URL)
	if err != nil || pageURL.Host == "" {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(v.Markup), pageURL)
	if err != nil {
		logrus.Debugf("Readability failed for %s: %v", v.URL, err)
		return ""
	}
	excerpt := cleanText(article.Excerpt)
	if len([]rune(excerpt)) < minExcerptRunes {
		return ""
	}
	return excerpt
}

func websiteAnchor(v *view) string {
	if m := websiteLink.FindStringSubmatch(v.Text); m != nil {
		return m[2]
	}
	return ""
}

func websiteLabelLine(v *view) string {
	if m := websiteLabel.FindStringSubmatch(v.Text); m != nil {
		return strings.TrimRight(m[1], trailingPunct)
	}
	return ""
}

func websiteMarkupAnchor(v *view) string {
	if v.doc == nil {
		return ""
	}
	var href string
	v.doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(s.Text()), "website") {
			return true
		}
		h, _ := s.Attr("href")
		if strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
			href = h
			return false
		}
		return true
	})
	return href
}

func firstSocial(v *view, platform string) string {
	for _, pattern := range socialPatterns[platform] {
		m := pattern.FindStringSubmatch(v.Text)
		if m == nil {
			continue
		}
		found := m[0]
		if len(m) > 1 {
			found = m[1]
		}
		return strings.TrimRight(found, trailingPunct)
	}
	return ""
}

func firstEmail(v *view) string {
	return strings.TrimRight(emailToken.FindString(v.plain), trailingPunct)
}

func mailtoLink(v *view) string {
	if m := mailtoTarget.FindStringSubmatch(v.Text); m != nil {
		return emailToken.FindString(m[1])
	}
	return ""
}

func mailtoAnchor(v *view) string {
	if v.doc == nil {
		return ""
	}
	href, ok := v.doc.Find(`a[href^="mailto:"]`).First().Attr("href")
	if !ok {
		return ""
	}
	return emailToken.FindString(href)
}

func firstPhone(v *view) string {
	return phoneToken.FindString(v.plain)
}

func firstImageReference(v *view) string {
	if m := imageReference.FindStringSubmatch(v.Text); m != nil {
		return m[1]
	}
	return ""
}

func openGraphImage(v *view) string {
	if v.doc == nil {
		return ""
	}
	content, _ := v.doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return content
}

// extractLocation reads the block after a Location:/Address: label
func extractLocation(v *view) *storage.Location {
	m := locationBlock.FindStringSubmatch(v.plain)
	if m == nil {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(m[1], "\n") {
		if line = cleanText(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	block := strings.Join(lines, "\n")
	loc := &storage.Location{Address: strings.Join(lines, ", ")}
	if rm := roomToken.FindStringSubmatch(block); rm != nil {
		loc.Room = rm[1]
	}
	for _, run := range buildingRun.FindAllString(block, -1) {
		if run == "RM" || run == "ROOM" {
			continue
		}
		loc.Building = run
		break
	}
	return loc
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
