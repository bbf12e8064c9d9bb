package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_HeadingParagraphWebsite(t *testing.T) {
	t.Parallel()

	org := Extract(Page{
		URL:  "https://dir.example/chess-club/",
		Text: "# Chess Club\n\nWe play chess every Friday.\n\nWebsite: https://chess.example.com",
	})

	assert.Equal(t, "Chess Club", org.Name)
	assert.Equal(t, "We play chess every Friday.", org.Description)
	assert.Equal(t, "https://chess.example.com", org.WebsiteURL)
	assert.Equal(t, "https://dir.example/chess-club/", org.SourceURL)
	assert.Nil(t, org.Location)
	assert.True(t, org.SocialMedia.IsEmpty())
	assert.Empty(t, org.Contact.Email)
	assert.Empty(t, org.Contact.Phone)
	assert.Empty(t, org.Image)
}

func TestExtract_WebsiteLabelWithLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"url as link text", "# Chess Club\n\nWe play.\n\nWebsite: [https://chess.example.com](https://chess.example.com)", "https://chess.example.com"},
		{"named link", "# Chess Club\n\nWe play.\n\n**Website:** [Chess Club Home](https://chess.example.com/home)", "https://chess.example.com/home"},
		{"angle brackets", "# Chess Club\n\nWebsite: <https://chess.example.com>", "https://chess.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Extract(Page{Text: tt.text}).WebsiteURL)
		})
	}
}

func TestExtract_GracefulDegradation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page Page
	}{
		{name: "empty page", page: Page{}},
		{name: "unstructured text", page: Page{Text: "Just some words without any structure at all"}},
		{name: "broken markup", page: Page{URL: "not a url", Markup: "<div><p>unclosed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			org := Extract(tt.page)
			assert.Empty(t, org.Name)
			assert.Empty(t, org.WebsiteURL)
			assert.Nil(t, org.Location)
			assert.True(t, org.SocialMedia.IsEmpty())
			assert.Empty(t, org.Contact.Email)
			assert.Empty(t, org.Contact.Phone)
			assert.Empty(t, org.Image)
		})
	}
}

func TestExtract_TitleLabelFallback(t *testing.T) {
	t.Parallel()

	org := Extract(Page{Text: "Title: Debate Society\n\nWe argue about things."})
	assert.Equal(t, "Debate Society", org.Name)
	// No top-level heading, so no paragraph follows one
	assert.Empty(t, org.Description)
}

func TestExtract_ParagraphSkipsLabelsAndLinks(t *testing.T) {
	t.Parallel()

	text := "# Robotics Club\n\n" +
		"[Website](https://robots.example.com)\n\n" +
		"Email: robots@example.ca\n\n" +
		"We build **robots** for competitions."

	org := Extract(Page{Text: text})
	assert.Equal(t, "Robotics Club", org.Name)
	assert.Equal(t, "We build robots for competitions.", org.Description)
	assert.Equal(t, "https://robots.example.com", org.WebsiteURL)
}

func TestExtract_ContactAndLocation(t *testing.T) {
	t.Parallel()

	text := "# Robotics Club\n\n" +
		"We build robots.\n\n" +
		"Location: Room 204, ENGINEERING BUILDING\n2332 Main Mall\n\n" +
		"Email: robots@example.ca\n" +
		"Phone: (604) 555-1234"

	org := Extract(Page{Text: text})

	assert.Equal(t, "robots@example.ca", org.Contact.Email)
	assert.Equal(t, "(604) 555-1234", org.Contact.Phone)

	require.NotNil(t, org.Location)
	assert.Equal(t, "Room 204, ENGINEERING BUILDING, 2332 Main Mall", org.Location.Address)
	assert.Equal(t, "204", org.Location.Room)
	assert.Equal(t, "ENGINEERING BUILDING", org.Location.Building)
}

func TestExtract_AddressLabel(t *testing.T) {
	t.Parallel()

	org := Extract(Page{Text: "# Hikers\n\nAddress: 6138 Student Union Blvd\n"})

	require.NotNil(t, org.Location)
	assert.Equal(t, "6138 Student Union Blvd", org.Location.Address)
	assert.Empty(t, org.Location.Room)
}

func TestExtract_PhoneFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"Call 604-555-1234 now", "604-555-1234"},
		{"Call 604.555.1234 now", "604.555.1234"},
		{"Call 6045551234 now", "6045551234"},
		{"Call (604)555-1234 now", "(604)555-1234"},
		{"Call 555-1234 now", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Extract(Page{Text: tt.text}).Contact.Phone)
		})
	}
}

func TestExtract_PhoneIgnoresLinkTargets(t *testing.T) {
	t.Parallel()

	org := Extract(Page{Text: "[Photo](https://cdn.example.com/uploads/6045551234.png)"})
	assert.Empty(t, org.Contact.Phone)
}

func TestExtract_SocialLinks(t *testing.T) {
	t.Parallel()

	text := "# Robotics Club\n\n" +
		"Instagram: @ubcrobotics\n" +
		"[Facebook](https://www.facebook.com/ubcrobotics)\n" +
		"Find us at https://www.linkedin.com/company/ubc-robotics/\n" +
		"Follow https://x.com/ubcrobots"

	social := Extract(Page{Text: text}).SocialMedia

	assert.Equal(t, "@ubcrobotics", social.Instagram)
	assert.Equal(t, "https://www.facebook.com/ubcrobotics", social.Facebook)
	assert.Equal(t, "https://www.linkedin.com/company/ubc-robotics/", social.LinkedIn)
	assert.Equal(t, "https://x.com/ubcrobots", social.Twitter)
}

func TestExtract_SocialHandleNotConfusedByLetterX(t *testing.T) {
	t.Parallel()

	social := Extract(Page{Text: "# Chess Club\n\nWe meet 3 x per week, follow @chessclub on Instagram."}).SocialMedia

	assert.Empty(t, social.Twitter)
	assert.Equal(t, "@chessclub", social.Instagram)
}

func TestExtract_TwitterHandleLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"twitter label", "Twitter: @ubcchess", "@ubcchess"},
		{"x label", "X: @ubcchess", "@ubcchess"},
		{"x.com mention", "Find us on x.com as @ubcchess", "@ubcchess"},
		{"handle before platform", "Follow @ubcchess on Twitter", "@ubcchess"},
		{"bare letter x", "Meets 2 x a month @ubcchess", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Extract(Page{Text: tt.text}).SocialMedia.Twitter)
		})
	}
}

func TestExtract_SocialURLBeatsHandle(t *testing.T) {
	t.Parallel()

	text := "Instagram: @later_handle\nhttps://instagram.com/first_url"
	assert.Equal(t, "https://instagram.com/first_url", Extract(Page{Text: text}).SocialMedia.Instagram)
}

func TestExtract_Image(t *testing.T) {
	t.Parallel()

	org := Extract(Page{Text: "# Chess\n\n![logo](https://cdn.example.com/chess.png)\n\n![other](https://cdn.example.com/x.png)"})
	assert.Equal(t, "https://cdn.example.com/chess.png", org.Image)
}

func TestExtract_MarkupFallbacks(t *testing.T) {
	t.Parallel()

	markup := `<html><head>
		<meta name="description" content="A club for chess players.">
		<meta property="og:image" content="https://cdn.example.com/og.png">
	</head><body>
		<a href="mailto:chess@example.ca">Email us</a>
		<a href="https://chess.example.com">Visit our website</a>
	</body></html>`

	org := Extract(Page{URL: "https://dir.example/chess-club/", Text: "# Chess Club", Markup: markup})

	assert.Equal(t, "Chess Club", org.Name)
	assert.Equal(t, "A club for chess players.", org.Description)
	assert.Equal(t, "https://cdn.example.com/og.png", org.Image)
	assert.Equal(t, "chess@example.ca", org.Contact.Email)
	assert.Equal(t, "https://chess.example.com", org.WebsiteURL)
}

func TestExtract_EmailFromMailtoLink(t *testing.T) {
	t.Parallel()

	org := Extract(Page{Text: "[Contact the executives](mailto:exec@example.ca)"})
	assert.Equal(t, "exec@example.ca", org.Contact.Email)
}

func TestExtract_DescriptionTruncated(t *testing.T) {
	t.Parallel()

	long := make([]byte, maxDescription+500)
	for i := range long {
		long[i] = 'a'
	}
	org := Extract(Page{Text: "# Long\n\n" + string(long)})
	assert.Len(t, []rune(org.Description), maxDescription)
}

func TestFirstOf_OrderedRules(t *testing.T) {
	t.Parallel()

	v := newView(Page{Text: "x"})
	never := func(*view) string { return "" }
	first := func(*view) string { return "first" }
	second := func(*view) string { return "second" }

	assert.Equal(t, "first", firstOf([]rule{never, first, second}, v))
	assert.Equal(t, "second", firstOf([]rule{never, second, first}, v))
	assert.Empty(t, firstOf([]rule{never}, v))
}
