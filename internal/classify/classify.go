// Package classify assigns category labels to organizations by keyword lookup.
package classify

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is assigned when no keyword matches
const DefaultCategory = "General"

// Category maps a label to the keywords that select it
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Table is an ordered category → keywords lookup
type Table struct {
	categories []Category
}

// NewTable builds a table; keywords are matched case-insensitively.
// A leading or trailing space on a keyword anchors it to a word edge, so
// "tech " matches "women in tech" but not "technique".
func NewTable(categories []Category) *Table {
	t := &Table{categories: make([]Category, 0, len(categories))}
	for _, c := range categories {
		normalized := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			if kw = normalizeKeyword(kw); kw != "" {
				normalized = append(normalized, kw)
			}
		}
		t.categories = append(t.categories, Category{Name: c.Name, Keywords: normalized})
	}
	return t
}

// DefaultTable returns the built-in campus club categories
func DefaultTable() *Table {
	return NewTable(defaultCategories)
}

// LoadTable reads a YAML category file of the form
//
//	categories:
//	  - name: Sports
//	    keywords: [sport, athletic]
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category file %s: %w", path, err)
	}

	var file struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse category file %s: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("category file %s defines no categories", path)
	}
	for i, c := range file.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("category %d in %s has no name", i, path)
		}
	}

	return NewTable(file.Categories), nil
}

// Classify returns every category with a keyword occurring in name or
// description, in table order. The result is never empty.
func (t *Table) Classify(name, description string) []string {
	text := " " + foldText(name+" "+description) + " "

	var labels []string
	seen := make(map[string]bool)
	for _, c := range t.categories {
		if seen[c.Name] {
			continue
		}
		for _, kw := range c.Keywords {
			if strings.Contains(text, kw) {
				labels = append(labels, c.Name)
				seen[c.Name] = true
				break
			}
		}
	}

	if len(labels) == 0 {
		return []string{DefaultCategory}
	}
	return labels
}

func normalizeKeyword(kw string) string {
	core := strings.ToLower(strings.TrimSpace(kw))
	if core == "" {
		return ""
	}
	if strings.TrimLeftFunc(kw, unicode.IsSpace) != kw {
		core = " " + core
	}
	if strings.TrimRightFunc(kw, unicode.IsSpace) != kw {
		core += " "
	}
	return core
}

// foldText lowercases s and turns whitespace and punctuation other than
// hyphens into single spaces
func foldText(s string) string {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-') {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(folded), " ")
}

// Names lists the category labels in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.categories))
	for i, c := range t.categories {
		names[i] = c.Name
	}
	return names
}

var defaultCategories = []Category{
	{Name: "Academic", Keywords: []string{"academic", "study", "studies", "research", "science", "engineering", "mathematics", "physics", "biology", "chemistry", "pre-med", "premed", "pre-law", "economics", "psychology", "undergraduate"}},
	{Name: "Cultural", Keywords: []string{"cultural", "culture", "heritage", "international", "language", "chinese", "korean", "japanese", "indian", "filipino", "vietnamese", "african", "caribbean", "latin", "persian", "indigenous"}},
	{Name: "Sports", Keywords: []string{"sport", "athletic", "fitness", "soccer", "basketball", "hockey", "volleyball", "tennis", "badminton", "climbing", "hiking", "outdoor", "running", "martial", "yoga", "ski", "swim", "rowing", "cycling"}},
	{Name: "Arts", Keywords: []string{"arts", "music", "musical", "theatre", "theater", "film", "photography", "drama", "dance", "painting", "choir", "orchestra", "band", "creative writing", "poetry", "improv", "comedy", "anime"}},
	{Name: "Service", Keywords: []string{"volunteer", "community service", "outreach", "charity", "fundraising", "fundraiser", "nonprofit", "non-profit", "humanitarian", "habitat", "relief"}},
	{Name: "Social", Keywords: []string{"social", "networking", "friendship", "mixer", "hangout", "fraternity", "sorority"}},
	{Name: "Technology", Keywords: []string{"technology", "tech ", "coding", "programming", "software", "computer", "robotics", "hackathon", "machine learning", "artificial intelligence", "data science", "cyber"}},
	{Name: "Religious", Keywords: []string{"faith", "christian", "catholic", "muslim", "islamic", "jewish", "hindu", "sikh", "buddhist", "religious", "spiritual", "bible", "ministry", "fellowship"}},
	{Name: "Political", Keywords: []string{"political", "politics", "advocacy", "activism", "policy", "debate", "model un", "liberal", "conservative", "democrat", "government"}},
	{Name: "Gaming", Keywords: []string{"gaming", "video game", "esports", "e-sports", "board game", "tabletop", "dungeons"}},
	{Name: "Professional", Keywords: []string{"professional", "career", "business", "entrepreneur", "finance", "consulting", "marketing", "accounting", "investment", "leadership"}},
}
