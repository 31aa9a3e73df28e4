package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

type stubCatalog struct {
	tracks    []CatalogTrack
	err       error
	lastQuery string
	lastLimit int
}

func (c *stubCatalog) Name() string { return "stub" }

func (c *stubCatalog) SearchTracks(_ context.Context, query string, limit int) ([]CatalogTrack, error) {
	c.lastQuery, c.lastLimit = query, limit
	if c.err != nil {
		return nil, c.err
	}
	return c.tracks, nil
}

var testSearchOptions = SearchOptions{ImageSizeFrom: "w120-h120", ImageSizeTo: "w600-h600"}

func TestSearchMapsTracksInOrder(t *testing.T) {
	catalog := &stubCatalog{tracks: []CatalogTrack{
		{
			VideoID:       "lYBUbBu4W08",
			Title:         "Never Gonna Give You Up",
			Artists:       []string{"Rick Astley"},
			Album:         "Whenever You Need Somebody",
			DurationLabel: "3:34",
			ThumbnailURL:  "https://lh3.googleusercontent.com/abc=w120-h120-l90-rj",
		},
		{
			VideoID:         "fJ9rUzIMcZQ",
			Title:           "Under Pressure",
			Artists:         []string{"Queen", "", "David Bowie"},
			DurationSeconds: 248,
			ThumbnailURL:    "https://lh3.googleusercontent.com/def=w120-h120-l90-rj",
		},
	}}
	recorder := &fakeRecorder{}
	svc := NewSearchService(catalog, testSearchOptions, recorder, utils.NewNopLogger())

	hits, err := svc.Search(context.Background(), "rick", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, models.SearchHit{
		Title:    "Never Gonna Give You Up - Rick Astley",
		Artist:   "Rick Astley",
		ID:       "lYBUbBu4W08",
		URL:      "https://youtu.be/lYBUbBu4W08",
		Album:    "Whenever You Need Somebody",
		Duration: models.HitDuration{Seconds: 214, Label: "3:34"},
		Image:    "https://lh3.googleusercontent.com/abc=w600-h600-l90-rj",
	}, hits[0])

	assert.Equal(t, "Under Pressure - Queen David Bowie", hits[1].Title)
	assert.Equal(t, "Queen David Bowie", hits[1].Artist)
	assert.Equal(t, models.HitDuration{Seconds: 248, Label: "4:08"}, hits[1].Duration)
	assert.Empty(t, hits[1].Album)

	assert.Equal(t, "rick", catalog.lastQuery)
	assert.Equal(t, 10, catalog.lastLimit)
	assert.Equal(t, []searchRecord{{"stub", "ok", 2}}, recorder.searches)
}

func TestSearchNoMatchesIsEmptyNotNil(t *testing.T) {
	svc := NewSearchService(&stubCatalog{}, testSearchOptions, nil, utils.NewNopLogger())

	hits, err := svc.Search(context.Background(), "zzzz", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearchTruncatesToLimit(t *testing.T) {
	catalog := &stubCatalog{tracks: []CatalogTrack{
		{VideoID: "aaaaaaaaaaa", Title: "a"},
		{VideoID: "bbbbbbbbbbb", Title: "b"},
		{VideoID: "ccccccccccc", Title: "c"},
	}}
	svc := NewSearchService(catalog, testSearchOptions, nil, utils.NewNopLogger())

	hits, err := svc.Search(context.Background(), "x", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "aaaaaaaaaaa", hits[0].ID)
	assert.Equal(t, "bbbbbbbbbbb", hits[1].ID)

	hits, err = svc.Search(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestSearchPropagatesCatalogError(t *testing.T) {
	upstream := models.NewResolutionError(models.ErrUpstreamRequest, "", errors.New("connection reset"))
	recorder := &fakeRecorder{}
	svc := NewSearchService(&stubCatalog{err: upstream}, testSearchOptions, recorder, utils.NewNopLogger())

	hits, err := svc.Search(context.Background(), "rick", 5)

	assert.Nil(t, hits)
	assert.ErrorIs(t, err, upstream)
	assert.True(t, errors.Is(err, models.ErrUpstreamRequest))
	assert.Contains(t, err.Error(), "search stub")
	assert.Equal(t, []searchRecord{{"stub", "upstream_request", 0}}, recorder.searches)
}

func TestToSearchHit(t *testing.T) {
	t.Run("no artists keeps bare title", func(t *testing.T) {
		hit := ToSearchHit(CatalogTrack{VideoID: testVideoID, Title: "Untitled"}, "", "")
		assert.Equal(t, "Untitled", hit.Title)
		assert.Empty(t, hit.Artist)
		assert.Equal(t, models.HitDuration{}, hit.Duration)
	})

	t.Run("size token replaced once", func(t *testing.T) {
		hit := ToSearchHit(CatalogTrack{
			VideoID:      testVideoID,
			ThumbnailURL: "https://img/w120-h120/w120-h120",
		}, "w120-h120", "w600-h600")
		assert.Equal(t, "https://img/w600-h600/w120-h120", hit.Image)
	})

	t.Run("missing size token leaves url", func(t *testing.T) {
		hit := ToSearchHit(CatalogTrack{VideoID: testVideoID, ThumbnailURL: "https://img/hq.jpg"}, "w120-h120", "w600-h600")
		assert.Equal(t, "https://img/hq.jpg", hit.Image)
	})
}

func TestParseDurationLabel(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"3:34", 214},
		{"0:05", 5},
		{"1:02:03", 3723},
		{" 4:08 ", 248},
		{"", 0},
		{"45", 0},
		{"a:bc", 0},
		{"1:2:3:4", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDurationLabel(tt.label), tt.label)
	}
}

func TestFormatDurationLabel(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{214, "3:34"},
		{3723, "1:02:03"},
		{-3, "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDurationLabel(tt.seconds))
	}
}
