package fetcher

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const mainContent = "main, article, [role=main]"

var (
	extraNewlines = regexp.MustCompile(`\n{3,}`)
	spaceRun      = regexp.MustCompile(`[ \t\r\f\v]+`)
)

var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true, "iframe": true, "head": true,
}

var blocks = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "aside": true,
	"ul": true, "ol": true, "table": true, "tr": true, "blockquote": true, "address": true,
	"header": true, "footer": true, "nav": true, "figure": true, "dl": true, "dd": true, "dt": true,
}

// Render converts an HTML document into the markdown-like rendering used by
// the extractors: # headings, paragraphs, [text](href) links and ![alt](src)
// images, with relative references resolved against pageURL.
func Render(doc *goquery.Document, pageURL string, opts Options) string {
	base, _ := url.Parse(pageURL)

	for _, sel := range opts.ExcludeTags {
		doc.Find(sel).Remove()
	}

	root := doc.Selection
	switch {
	case len(opts.IncludeTags) > 0:
		root = doc.Find(strings.Join(opts.IncludeTags, ", "))
	case opts.OnlyMainContent:
		if main := doc.Find(mainContent).First(); main.Length() > 0 {
			root = main
		}
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	root.Each(func(_ int, s *goquery.Selection) {
		renderNode(&b, s, base)
		b.WriteString("\n\n")
	})

	return tidy(b.String())
}

func renderNode(b *strings.Builder, s *goquery.Selection, base *url.URL) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			b.WriteString(spaceRun.ReplaceAllString(strings.ReplaceAll(c.Text(), "\n", " "), " "))
		case skipped[name]:
		case len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6':
			text := inline(c, base)
			if text != "" {
				b.WriteString("\n\n" + strings.Repeat("#", int(name[1]-'0')) + " " + text + "\n\n")
			}
		case name == "a":
			href, _ := c.Attr("href")
			text := inline(c, base)
			target := resolve(base, href)
			if target == "" || text == "" {
				b.WriteString(text)
				return
			}
			b.WriteString("[" + text + "](" + target + ")")
		case name == "img":
			src, _ := c.Attr("src")
			alt, _ := c.Attr("alt")
			if target := resolve(base, src); target != "" {
				b.WriteString("![" + strings.TrimSpace(alt) + "](" + target + ")")
			}
		case name == "br":
			b.WriteString("\n")
		case name == "li":
			b.WriteString("\n- ")
			renderNode(b, c, base)
			b.WriteString("\n")
		case name == "strong" || name == "b":
			if text := inline(c, base); text != "" {
				b.WriteString("**" + text + "**")
			}
		case blocks[name]:
			b.WriteString("\n\n")
			renderNode(b, c, base)
			b.WriteString("\n\n")
		default:
			renderNode(b, c, base)
		}
	})
}

// inline renders a subtree on a single line, dropping heading markers
func inline(s *goquery.Selection, base *url.URL) string {
	var b strings.Builder
	renderNode(&b, s, base)
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if strings.Trim(w, "#") != "" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(extraNewlines.ReplaceAllString(s, "\n\n"))
}
