package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"norelock.dev/mediagrab/backend/internal/utils"
)

const musicSearchFixture = `{
  "contents": {
    "tabbedSearchResultsRenderer": {
      "tabs": [{
        "tabRenderer": {
          "content": {
            "sectionListRenderer": {
              "contents": [
                {"itemSectionRenderer": {"contents": []}},
                {"musicShelfRenderer": {"contents": [
                  {"musicResponsiveListItemRenderer": {
                    "thumbnail": {"musicThumbnailRenderer": {"thumbnail": {"thumbnails": [
                      {"url": "https://lh3.googleusercontent.com/abc=w60-h60-l90-rj", "width": 60, "height": 60},
                      {"url": "https://lh3.googleusercontent.com/abc=w120-h120-l90-rj", "width": 120, "height": 120}
                    ]}}},
                    "flexColumns": [
                      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [
                        {"text": "Never Gonna Give You Up", "navigationEndpoint": {"watchEndpoint": {"videoId": "lYBUbBu4W08"}}}
                      ]}}},
                      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [
                        {"text": "Rick Astley", "navigationEndpoint": {"browseEndpoint": {"browseEndpointContextSupportedConfigs": {"browseEndpointContextMusicConfig": {"pageType": "MUSIC_PAGE_TYPE_ARTIST"}}}}},
                        {"text": " • "},
                        {"text": "Whenever You Need Somebody", "navigationEndpoint": {"browseEndpoint": {"browseEndpointContextSupportedConfigs": {"browseEndpointContextMusicConfig": {"pageType": "MUSIC_PAGE_TYPE_ALBUM"}}}}},
                        {"text": " • "},
                        {"text": "3:34"}
                      ]}}}
                    ],
                    "playlistItemData": {"videoId": "lYBUbBu4W08"}
                  }},
                  {"musicResponsiveListItemRenderer": {
                    "flexColumns": [
                      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [
                        {"text": "Under Pressure", "navigationEndpoint": {"watchEndpoint": {"videoId": "a01QQZyl-_I"}}}
                      ]}}},
                      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [
                        {"text": "Queen", "navigationEndpoint": {"browseEndpoint": {"browseEndpointContextSupportedConfigs": {"browseEndpointContextMusicConfig": {"pageType": "MUSIC_PAGE_TYPE_ARTIST"}}}}},
                        {"text": " & "},
                        {"text": "David Bowie", "navigationEndpoint": {"browseEndpoint": {"browseEndpointContextSupportedConfigs": {"browseEndpointContextMusicConfig": {"pageType": "MUSIC_PAGE_TYPE_ARTIST"}}}}},
                        {"text": " • "},
                        {"text": "4:08"}
                      ]}}}
                    ]
                  }},
                  {"musicResponsiveListItemRenderer": {
                    "flexColumns": [
                      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [{"text": "Unplayable row"}]}}}
                    ]
                  }},
                  {"musicResponsiveListItemRenderer": {
                    "flexColumns": [
                      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [
                        {"text": "Live Session", "navigationEndpoint": {"watchEndpoint": {"videoId": "zzzzzzzzzzz"}}}
                      ]}}},
                      {"musicResponsiveListItemFlexColumnRenderer": {"text": {"runs": [
                        {"text": "Local Band"},
                        {"text": " • "},
                        {"text": "1:02:03"}
                      ]}}}
                    ]
                  }}
                ]}}
              ]
            }
          }
        }
      }]
    }
  }
}`

func newMusicServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestMusicCatalogSearchTracks(t *testing.T) {
	var received musicSearchRequest
	server := newMusicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("prettyPrint"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "mediagrab-test/1.0", r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(musicSearchFixture))
	})

	catalog := NewMusicCatalog(MusicCatalogOptions{
		BaseURL:       server.URL + "/",
		ClientVersion: "1.20250219.01.00",
		UserAgent:     "mediagrab-test/1.0",
		Timeout:       time.Second,
		ThumbnailSize: "w120-h120",
	}, server.Client(), utils.NewNopLogger())

	tracks, err := catalog.SearchTracks(context.Background(), "never gonna", 0)
	require.NoError(t, err)

	assert.Equal(t, "never gonna", received.Query)
	assert.Equal(t, musicSongsFilter, received.Params)
	assert.Equal(t, "WEB_REMIX", received.Context.Client.ClientName)
	assert.Equal(t, "1.20250219.01.00", received.Context.Client.ClientVersion)

	assert.Equal(t, []CatalogTrack{
		{
			VideoID:         "lYBUbBu4W08",
			Title:           "Never Gonna Give You Up",
			Artists:         []string{"Rick Astley"},
			Album:           "Whenever You Need Somebody",
			DurationSeconds: 214,
			DurationLabel:   "3:34",
			ThumbnailURL:    "https://lh3.googleusercontent.com/abc=w120-h120-l90-rj",
		},
		{
			VideoID:         "a01QQZyl-_I",
			Title:           "Under Pressure",
			Artists:         []string{"Queen", "David Bowie"},
			DurationSeconds: 248,
			DurationLabel:   "4:08",
		},
		{
			VideoID:         "zzzzzzzzzzz",
			Title:           "Live Session",
			Artists:         []string{"Local Band"},
			DurationSeconds: 3723,
			DurationLabel:   "1:02:03",
		},
	}, tracks)
}

func TestMusicCatalogLimit(t *testing.T) {
	server := newMusicServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(musicSearchFixture))
	})
	catalog := NewMusicCatalog(MusicCatalogOptions{BaseURL: server.URL}, server.Client(), utils.NewNopLogger())

	tracks, err := catalog.SearchTracks(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "lYBUbBu4W08", tracks[0].VideoID)
}

func TestMusicCatalogEmptyResponse(t *testing.T) {
	server := newMusicServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"contents": {}}`))
	})
	catalog := NewMusicCatalog(MusicCatalogOptions{BaseURL: server.URL}, server.Client(), utils.NewNopLogger())

	tracks, err := catalog.SearchTracks(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)
}

func TestMusicCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server error", http.StatusInternalServerError, "boom", "HTTP 500"},
		{"bad json", http.StatusOK, "<html>", "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMusicServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			catalog := NewMusicCatalog(MusicCatalogOptions{BaseURL: server.URL}, server.Client(), utils.NewNopLogger())

			tracks, err := catalog.SearchTracks(context.Background(), "q", 5)
			assert.Nil(t, tracks)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestPickThumbnail(t *testing.T) {
	thumbs := []musicThumbnail{
		{URL: "https://img/abc=w60-h60-l90-rj", Width: 60},
		{URL: "https://img/abc=w226-h226-l90-rj", Width: 226},
		{URL: "https://img/abc=w120-h120-l90-rj", Width: 120},
	}

	assert.Equal(t, "https://img/abc=w120-h120-l90-rj", pickThumbnail(thumbs, "w120-h120"))
	assert.Equal(t, "https://img/abc=w226-h226-l90-rj", pickThumbnail(thumbs, "w544-h544"))
	assert.Equal(t, "https://img/abc=w226-h226-l90-rj", pickThumbnail(thumbs, ""))
	assert.Empty(t, pickThumbnail(nil, "w120-h120"))
}

func TestMusicCatalogName(t *testing.T) {
	assert.Equal(t, "music", NewMusicCatalog(MusicCatalogOptions{}, nil, utils.NewNopLogger()).Name())
}
