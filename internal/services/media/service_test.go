package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"norelock.dev/mediagrab/backend/internal/config"
	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

func TestMediaServiceResolveMedia(t *testing.T) {
	fc := newFakeConverter(t)
	svc := NewMediaService(newTestResolver(fc, nil), nil, 20, utils.NewNopLogger())

	got, err := svc.ResolveMedia(context.Background(), models.ResolveRequest{
		URL:     "https://youtu.be/dQw4w9WgXcQ",
		Quality: 360,
	})
	require.NoError(t, err)
	assert.Equal(t, "360p", got.Quality)
	assert.Equal(t, "360", fc.lastForm(StageConvertVideo).Get("fquality"))
	assert.Equal(t, "128", fc.lastForm(StageConvertAudio).Get("fquality"))
}

func TestMediaServiceSearchMediaDefaultLimit(t *testing.T) {
	catalog := &stubCatalog{tracks: []CatalogTrack{{VideoID: testVideoID, Title: "t", Artists: []string{"a"}}}}
	search := NewSearchService(catalog, SearchOptions{}, nil, utils.NewNopLogger())
	svc := NewMediaService(nil, search, 20, utils.NewNopLogger())

	resp, err := svc.SearchMedia(context.Background(), models.SearchRequest{Query: "rick"})
	require.NoError(t, err)
	assert.Equal(t, 20, catalog.lastLimit)
	assert.Equal(t, "rick", resp.Query)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "t - a", resp.Results[0].Title)

	_, err = svc.SearchMedia(context.Background(), models.SearchRequest{Query: "rick", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.lastLimit)
}

func TestNewMediaServiceFromConfig(t *testing.T) {
	cfg := config.CreateDefaultConfig()

	svc, err := NewMediaServiceFromConfig(context.Background(), cfg, UpstreamClients{}, nil, utils.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "music", svc.searchService.catalog.Name())

	cfg.Catalog.Provider = "data_api"
	cfg.Catalog.YouTubeAPIKey = "test-key"
	svc, err = NewMediaServiceFromConfig(context.Background(), cfg, UpstreamClients{}, nil, utils.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "data_api", svc.searchService.catalog.Name())

	cfg.Catalog.Provider = "soundcloud"
	_, err = NewMediaServiceFromConfig(context.Background(), cfg, UpstreamClients{}, nil, utils.NewNopLogger())
	assert.ErrorContains(t, err, "unknown catalog provider")
}

func TestNewUpstreamClients(t *testing.T) {
	cfg := config.CreateDefaultConfig()
	cfg.Converter.StageTimeout = 5 * time.Second
	cfg.Catalog.Timeout = 30 * time.Second

	clients := NewUpstreamClients(cfg)

	converter, ok := clients.Converter.(*http.Client)
	require.True(t, ok)
	catalog, ok := clients.Catalog.(*http.Client)
	require.True(t, ok)
	assert.NotSame(t, converter, catalog)
	assert.Equal(t, 10*time.Second, converter.Timeout)
	assert.Equal(t, 60*time.Second, catalog.Timeout)
}

func TestNewMediaServiceFromConfigUsesCatalogClient(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"contents": {}}`))
	}))
	defer server.Close()

	cfg := config.CreateDefaultConfig()
	cfg.Catalog.MusicBaseURL = server.URL
	svc, err := NewMediaServiceFromConfig(context.Background(), cfg, UpstreamClients{Catalog: server.Client()}, nil, utils.NewNopLogger())
	require.NoError(t, err)

	resp, err := svc.SearchMedia(context.Background(), models.SearchRequest{Query: "rick"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, int32(1), hits.Load())
}
