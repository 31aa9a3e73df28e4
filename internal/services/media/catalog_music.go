package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"norelock.dev/mediagrab/backend/internal/utils"
)

const (
	// musicSongsFilter restricts innertube search results to songs.
	musicSongsFilter = "EgWKAQIIAWoMEA4QChADEAQQCRAF"

	musicPageArtist = "MUSIC_PAGE_TYPE_ARTIST"
	musicPageAlbum  = "MUSIC_PAGE_TYPE_ALBUM"

	maxCatalogResponse = 3 << 20
)

var durationLabelPattern = regexp.MustCompile(`^\d+(?::\d{2}){1,2}$`)

// MusicCatalogOptions configures the innertube search client.
type MusicCatalogOptions struct {
	// BaseURL is the youtubei/v1 prefix.
	BaseURL string
	// ClientVersion is the WEB_REMIX client version.
	ClientVersion string
	// UserAgent is sent with every request.
	UserAgent string
	// Timeout bounds one search call.
	Timeout time.Duration
	// ThumbnailSize is the size token of the preferred thumbnail, such as w120-h120.
	ThumbnailSize string
}

// MusicCatalog searches songs through the YouTube Music innertube API.
type MusicCatalog struct {
	opts   MusicCatalogOptions
	client HTTPDoer
	logger *utils.Logger
}

// NewMusicCatalog creates a new innertube music catalog.
func NewMusicCatalog(opts MusicCatalogOptions, client HTTPDoer, logger *utils.Logger) *MusicCatalog {
	if client == nil {
		client = &http.Client{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &MusicCatalog{
		opts:   opts,
		client: client,
		logger: logger.Named("music_catalog"),
	}
}

// Name returns the catalog name.
func (c *MusicCatalog) Name() string {
	return "music"
}

// --- innertube search types ---

type musicSearchRequest struct {
	Context musicContext `json:"context"`
	Query   string       `json:"query"`
	Params  string       `json:"params,omitempty"`
}

type musicContext struct {
	Client musicClient `json:"client"`
}

type musicClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

type musicSearchResponse struct {
	Contents struct {
		TabbedSearchResultsRenderer struct {
			Tabs []struct {
				TabRenderer struct {
					Content struct {
						SectionListRenderer struct {
							Contents []struct {
								MusicShelfRenderer *struct {
									Contents []struct {
										MusicResponsiveListItemRenderer *musicListItem `json:"musicResponsiveListItemRenderer"`
									} `json:"contents"`
								} `json:"musicShelfRenderer"`
							} `json:"contents"`
						} `json:"sectionListRenderer"`
					} `json:"content"`
				} `json:"tabRenderer"`
			} `json:"tabs"`
		} `json:"tabbedSearchResultsRenderer"`
	} `json:"contents"`
}

type musicThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type musicListItem struct {
	Thumbnail struct {
		MusicThumbnailRenderer struct {
			Thumbnail struct {
				Thumbnails []musicThumbnail `json:"thumbnails"`
			} `json:"thumbnail"`
		} `json:"musicThumbnailRenderer"`
	} `json:"thumbnail"`
	FlexColumns      []musicFlexColumn `json:"flexColumns"`
	PlaylistItemData *struct {
		VideoID string `json:"videoId"`
	} `json:"playlistItemData"`
}

type musicFlexColumn struct {
	MusicResponsiveListItemFlexColumnRenderer struct {
		Text struct {
			Runs []musicRun `json:"runs"`
		} `json:"text"`
	} `json:"musicResponsiveListItemFlexColumnRenderer"`
}

type musicRun struct {
	Text               string `json:"text"`
	NavigationEndpoint *struct {
		WatchEndpoint *struct {
			VideoID string `json:"videoId"`
		} `json:"watchEndpoint"`
		BrowseEndpoint *struct {
			BrowseEndpointContextSupportedConfigs struct {
				BrowseEndpointContextMusicConfig struct {
					PageType string `json:"pageType"`
				} `json:"browseEndpointContextMusicConfig"`
			} `json:"browseEndpointContextSupportedConfigs"`
		} `json:"browseEndpoint"`
	} `json:"navigationEndpoint"`
}

func (r musicRun) pageType() string {
	if r.NavigationEndpoint == nil || r.NavigationEndpoint.BrowseEndpoint == nil {
		return ""
	}
	return r.NavigationEndpoint.BrowseEndpoint.BrowseEndpointContextSupportedConfigs.BrowseEndpointContextMusicConfig.PageType
}

func (r musicRun) videoID() string {
	if r.NavigationEndpoint == nil || r.NavigationEndpoint.WatchEndpoint == nil {
		return ""
	}
	return r.NavigationEndpoint.WatchEndpoint.VideoID
}

// SearchTracks runs a songs-filtered search and returns the shelf rows in order.
func (c *MusicCatalog) SearchTracks(ctx context.Context, query string, limit int) ([]CatalogTrack, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(musicSearchRequest{
		Context: musicContext{Client: musicClient{
			ClientName:    "WEB_REMIX",
			ClientVersion: c.opts.ClientVersion,
			Hl:            "en",
			Gl:            "US",
		}},
		Query:  query,
		Params: musicSongsFilter,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/search?prettyPrint=false", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", "https://music.youtube.com")
	req.Header.Set("Referer", "https://music.youtube.com/")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("innertube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("innertube search: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var parsed musicSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogResponse)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("innertube search: decode: %w", err)
	}

	tracks := parseMusicShelf(&parsed, c.opts.ThumbnailSize)
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	c.logger.Debug("Catalog search finished", "query", query, "tracks", len(tracks))
	return tracks, nil
}

// parseMusicShelf collects every song row of every shelf, skipping rows without a video.
func parseMusicShelf(resp *musicSearchResponse, sizeToken string) []CatalogTrack {
	tracks := []CatalogTrack{}
	for _, tab := range resp.Contents.TabbedSearchResultsRenderer.Tabs {
		for _, section := range tab.TabRenderer.Content.SectionListRenderer.Contents {
			if section.MusicShelfRenderer == nil {
				continue
			}
			for _, row := range section.MusicShelfRenderer.Contents {
				if row.MusicResponsiveListItemRenderer == nil {
					continue
				}
				if track, ok := parseMusicRow(row.MusicResponsiveListItemRenderer, sizeToken); ok {
					tracks = append(tracks, track)
				}
			}
		}
	}
	return tracks
}

// parseMusicRow reads a song row. The first flex column holds the title,
// the second holds artist, album and duration runs separated by bullets.
func parseMusicRow(item *musicListItem, sizeToken string) (CatalogTrack, bool) {
	var track CatalogTrack

	columns := lo.Map(item.FlexColumns, func(col musicFlexColumn, _ int) []musicRun {
		return col.MusicResponsiveListItemFlexColumnRenderer.Text.Runs
	})
	if len(columns) == 0 || len(columns[0]) == 0 {
		return track, false
	}

	track.Title = columns[0][0].Text
	track.VideoID = columns[0][0].videoID()
	if item.PlaylistItemData != nil && item.PlaylistItemData.VideoID != "" {
		track.VideoID = item.PlaylistItemData.VideoID
	}
	if track.VideoID == "" {
		return track, false
	}

	if len(columns) > 1 {
		var plain []string
		for _, run := range columns[1] {
			text := strings.TrimSpace(run.Text)
			switch {
			case text == "" || text == "•" || text == "&" || text == ",":
			case run.pageType() == musicPageArtist:
				track.Artists = append(track.Artists, text)
			case run.pageType() == musicPageAlbum:
				track.Album = text
			case durationLabelPattern.MatchString(text):
				track.DurationLabel = text
			default:
				plain = append(plain, text)
			}
		}
		// Artists without a channel page come through as plain runs
		if len(track.Artists) == 0 && len(plain) > 0 {
			track.Artists = plain[:1]
		}
	}
	track.DurationSeconds = ParseDurationLabel(track.DurationLabel)

	track.ThumbnailURL = pickThumbnail(item.Thumbnail.MusicThumbnailRenderer.Thumbnail.Thumbnails, sizeToken)

	return track, true
}

// pickThumbnail returns the thumbnail whose URL carries sizeToken, so the
// search mapping can rewrite it to a larger size. Without a match the
// widest thumbnail wins.
func pickThumbnail(thumbs []musicThumbnail, sizeToken string) string {
	if len(thumbs) == 0 {
		return ""
	}
	if sizeToken != "" {
		if thumb, ok := lo.Find(thumbs, func(t musicThumbnail) bool {
			return strings.Contains(t.URL, sizeToken)
		}); ok {
			return thumb.URL
		}
	}
	return lo.MaxBy(thumbs, func(a, b musicThumbnail) bool {
		return a.Width > b.Width
	}).URL
}
