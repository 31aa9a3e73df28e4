package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// musicCategoryID is the Data API category for music videos.
const musicCategoryID = "10"

// DataAPICatalogOptions configures the YouTube Data API catalog.
type DataAPICatalogOptions struct {
	APIKey string
	// Endpoint overrides the API base URL.
	Endpoint string
	Timeout  time.Duration
}

// DataAPICatalog searches music videos through the YouTube Data API v3.
type DataAPICatalog struct {
	service *youtube.Service
	timeout time.Duration
	logger  *utils.Logger
}

// NewDataAPICatalog creates a Data API catalog authenticated with an API key.
func NewDataAPICatalog(ctx context.Context, opts DataAPICatalogOptions, logger *utils.Logger) (*DataAPICatalog, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &DataAPICatalog{
		service: service,
		timeout: opts.Timeout,
		logger:  logger.Named("data_api_catalog"),
	}, nil
}

// Name returns the catalog name.
func (c *DataAPICatalog) Name() string {
	return "data_api"
}

// SearchTracks searches the music category and looks up durations in one batch.
func (c *DataAPICatalog) SearchTracks(ctx context.Context, query string, limit int) ([]CatalogTrack, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	call := c.service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		Context(ctx)
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search YouTube: %w", err)
	}

	items := lo.Filter(response.Items, func(item *youtube.SearchResult, _ int) bool {
		return item.Id != nil && item.Id.Kind == "youtube#video" && item.Snippet != nil
	})
	if len(items) == 0 {
		return []CatalogTrack{}, nil
	}

	durations, err := c.durations(ctx, lo.Map(items, func(item *youtube.SearchResult, _ int) string {
		return item.Id.VideoId
	}))
	if err != nil {
		// Search hits are still usable without durations
		c.logger.Warn("Failed to get video durations", "error", err)
	}

	tracks := lo.Map(items, func(item *youtube.SearchResult, _ int) CatalogTrack {
		return CatalogTrack{
			VideoID:         item.Id.VideoId,
			Title:           item.Snippet.Title,
			Artists:         []string{strings.TrimSuffix(item.Snippet.ChannelTitle, " - Topic")},
			DurationSeconds: durations[item.Id.VideoId],
			ThumbnailURL:    bestThumbnail(item.Snippet.Thumbnails),
		}
	})
	return tracks, nil
}

// durations returns the length in seconds of every listed video.
func (c *DataAPICatalog) durations(ctx context.Context, ids []string) (map[string]int, error) {
	result := make(map[string]int, len(ids))

	response, err := c.service.Videos.List([]string{"contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return result, err
	}

	for _, video := range response.Items {
		if video.ContentDetails == nil {
			continue
		}
		seconds, err := parseISODuration(video.ContentDetails.Duration)
		if err != nil {
			c.logger.Debug("Failed to parse duration", "duration", video.ContentDetails.Duration, "error", err)
			continue
		}
		result[video.Id] = seconds
	}
	return result, nil
}

// parseISODuration parses an ISO 8601 duration such as PT1H2M3S into seconds.
func parseISODuration(isoDuration string) (int, error) {
	duration, ok := strings.CutPrefix(isoDuration, "PT")
	if !ok {
		return 0, fmt.Errorf("unsupported duration %q", isoDuration)
	}

	total := 0
	for _, unit := range []struct {
		suffix string
		scale  int
	}{{"H", 3600}, {"M", 60}, {"S", 1}} {
		idx := strings.Index(duration, unit.suffix)
		if idx == -1 {
			continue
		}
		n, err := strconv.Atoi(duration[:idx])
		if err != nil {
			return 0, err
		}
		total += n * unit.scale
		duration = duration[idx+1:]
	}

	if duration != "" {
		return 0, fmt.Errorf("unsupported duration %q", isoDuration)
	}
	return total, nil
}

// bestThumbnail returns the highest quality thumbnail URL.
func bestThumbnail(thumbnails *youtube.ThumbnailDetails) string {
	if thumbnails == nil {
		return ""
	}

	for _, t := range []*youtube.Thumbnail{
		thumbnails.Maxres,
		thumbnails.High,
		thumbnails.Standard,
		thumbnails.Medium,
		thumbnails.Default,
	} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}
