package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "clubs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage_UpsertIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, Organization{
		Name:        "Chess Club",
		Description: "Old description",
		SourceURL:   "https://dir.example/chess-club/",
		SocialMedia: SocialMedia{Instagram: "@oldchess"},
		Location:    &Location{Address: "Room 1", Room: "1"},
		Categories:  []string{"General"},
		RawContent:  RawContent{ExtractedText: "# Chess Club"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.IsActive)
	assert.False(t, first.LastScrapedAt.IsZero())

	second, err := s.Upsert(ctx, Organization{
		Name:        "UBC Chess Club",
		Description: "New description",
		SourceURL:   "https://dir.example/chess-club/",
		Contact:     Contact{Email: "chess@dir.example"},
		Categories:  []string{"Recreation", "Academic"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "UBC Chess Club", second.Name)
	assert.Equal(t, "New description", second.Description)
	assert.Equal(t, "chess@dir.example", second.Contact.Email)
	assert.True(t, second.SocialMedia.IsEmpty())
	assert.Nil(t, second.Location)
	assert.Empty(t, second.RawContent.ExtractedText)
	assert.Equal(t, []string{"Recreation", "Academic"}, second.Categories)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorage_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	in := Organization{
		Name:        "Robotics Club",
		Description: "We build robots.",
		SourceURL:   "https://dir.example/robotics/",
		WebsiteURL:  "https://robots.example.com",
		SocialMedia: SocialMedia{Instagram: "@robots", LinkedIn: "https://linkedin.com/company/robots"},
		Contact:     Contact{Email: "robots@dir.example", Phone: "604-555-1234"},
		Location:    &Location{Address: "Room 204, ENGINEERING BUILDING", Room: "204", Building: "ENGINEERING BUILDING"},
		Image:       "https://dir.example/robots.png",
		Categories:  []string{"Academic", "Technology"},
		RawContent:  RawContent{HTML: "<h1>Robotics Club</h1>", ExtractedText: "# Robotics Club"},
	}

	stored, err := s.Upsert(ctx, in)
	require.NoError(t, err)

	got, err := s.Get(ctx, stored.ID)
	require.NoError(t, err)

	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.WebsiteURL, got.WebsiteURL)
	assert.Equal(t, in.SocialMedia, got.SocialMedia)
	assert.Equal(t, in.Contact, got.Contact)
	assert.Equal(t, in.Location, got.Location)
	assert.Equal(t, in.Image, got.Image)
	assert.Equal(t, in.Categories, got.Categories)
	assert.Equal(t, in.RawContent, got.RawContent)
	assert.WithinDuration(t, time.Now(), got.LastScrapedAt, time.Minute)

	bySource, err := s.GetBySourceURL(ctx, in.SourceURL)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, bySource.ID)
}

func TestStorage_List(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, org := range []Organization{
		{Name: "Zoology Society", SourceURL: "https://dir.example/zoology/", Categories: []string{"Academic"}},
		{Name: "Archery Club", SourceURL: "https://dir.example/archery/", Categories: []string{"Sports"}},
		{Name: "Math Circle", SourceURL: "https://dir.example/math/", Categories: []string{"Academic", "Recreation"}},
	} {
		_, err := s.Upsert(ctx, org)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Archery Club", all[0].Name)
	assert.Equal(t, "Math Circle", all[1].Name)
	assert.Equal(t, "Zoology Society", all[2].Name)

	academic, err := s.List(ctx, ListFilter{Category: "Academic", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, academic, 2)
	assert.Equal(t, "Math Circle", academic[0].Name)
	assert.Equal(t, []string{"Academic", "Recreation"}, academic[0].Categories)

	limited, err := s.List(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.List(ctx, ListFilter{Category: "Cultural"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStorage_NotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetBySourceURL(ctx, "https://dir.example/missing/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_RequiresSourceURL(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Upsert(context.Background(), Organization{Name: "Nameless"})
	assert.Error(t, err)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStorage_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clubs.db")
	ctx := context.Background()

	s, err := NewStorage(path)
	require.NoError(t, err)
	stored, err := s.Upsert(ctx, Organization{Name: "Film Society", SourceURL: "https://dir.example/film/"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStorage(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetBySourceURL(ctx, "https://dir.example/film/")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
}
