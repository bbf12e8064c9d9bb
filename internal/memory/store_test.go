package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alvmarrod/club-weaver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Upsert(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	clock := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	first, err := s.Upsert(ctx, storage.Organization{
		Name:       "Chess Club",
		SourceURL:  "https://dir.example/chess-club/",
		Categories: []string{"General"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.True(t, first.IsActive)
	assert.Equal(t, clock, first.CreatedAt)

	clock = clock.Add(time.Hour)
	second, err := s.Upsert(ctx, storage.Organization{
		Name:       "UBC Chess Club",
		SourceURL:  "https://dir.example/chess-club/",
		Categories: []string{"Recreation"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, clock, second.LastScrapedAt)
	assert.Equal(t, "UBC Chess Club", second.Name)
	assert.Equal(t, []string{"Recreation"}, second.Categories)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestStore_UpsertRequiresSourceURL(t *testing.T) {
	t.Parallel()

	_, err := NewStore().Upsert(context.Background(), storage.Organization{Name: "Nameless"})
	assert.Error(t, err)
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	loc := &storage.Location{Address: "Room 1"}
	in := storage.Organization{SourceURL: "https://dir.example/a/", Categories: []string{"Academic"}, Location: loc}
	stored, err := s.Upsert(ctx, in)
	require.NoError(t, err)

	loc.Address = "changed"
	in.Categories[0] = "changed"
	stored.Categories[0] = "changed"

	got, err := s.GetBySourceURL(ctx, "https://dir.example/a/")
	require.NoError(t, err)
	assert.Equal(t, "Room 1", got.Location.Address)
	assert.Equal(t, []string{"Academic"}, got.Categories)
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	for _, org := range []storage.Organization{
		{Name: "Zoology Society", SourceURL: "https://dir.example/zoology/", Categories: []string{"Academic"}},
		{Name: "Archery Club", SourceURL: "https://dir.example/archery/", Categories: []string{"Sports"}},
		{Name: "Math Circle", SourceURL: "https://dir.example/math/", Categories: []string{"Academic", "Recreation"}},
	} {
		_, err := s.Upsert(ctx, org)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Archery Club", "Math Circle", "Zoology Society"},
		[]string{all[0].Name, all[1].Name, all[2].Name})

	academic, err := s.List(ctx, storage.ListFilter{Category: "Academic", ActiveOnly: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, academic, 1)
	assert.Equal(t, "Math Circle", academic[0].Name)

	none, err := s.List(ctx, storage.ListFilter{Category: "Cultural"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetBySourceURL(context.Background(), "https://dir.example/missing/")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

type failingUpserter struct {
	failOn string
	got    []string
}

func (f *failingUpserter) Upsert(_ context.Context, org storage.Organization) (storage.Organization, error) {
	if org.SourceURL == f.failOn {
		return storage.Organization{}, errors.New("disk full")
	}
	f.got = append(f.got, org.SourceURL)
	return org, nil
}

func TestStore_Flush(t *testing.T) {
	t.Parallel()

	src := NewStore()
	ctx := context.Background()
	for _, u := range []string{"https://dir.example/a/", "https://dir.example/b/", "https://dir.example/c/"} {
		_, err := src.Upsert(ctx, storage.Organization{Name: u, SourceURL: u})
		require.NoError(t, err)
	}

	dst := NewStore()
	require.NoError(t, src.Flush(ctx, dst))
	n, err := dst.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	failing := &failingUpserter{failOn: "https://dir.example/b/"}
	err = src.Flush(ctx, failing)
	assert.EqualError(t, err, "disk full")
	assert.ElementsMatch(t, []string{"https://dir.example/a/", "https://dir.example/c/"}, failing.got)
}
