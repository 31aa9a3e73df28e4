package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// CatalogTrack is one song as reported by a catalog, in relevance order.
type CatalogTrack struct {
	VideoID         string
	Title           string
	Artists         []string
	Album           string
	DurationSeconds int
	DurationLabel   string
	ThumbnailURL    string
}

// Catalog is a third-party music search backend.
type Catalog interface {
	// Name identifies the catalog in logs and metrics.
	Name() string

	// SearchTracks returns tracks matching query. A limit of zero or less means no limit.
	SearchTracks(ctx context.Context, query string, limit int) ([]CatalogTrack, error)
}

// SearchOptions configures how catalog tracks are reshaped.
type SearchOptions struct {
	// ImageSizeFrom is the low resolution token in thumbnail URLs.
	ImageSizeFrom string
	// ImageSizeTo replaces ImageSizeFrom.
	ImageSizeTo string
}

// SearchService maps catalog tracks to search hits.
type SearchService struct {
	catalog  Catalog
	opts     SearchOptions
	recorder Recorder
	logger   *utils.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(catalog Catalog, opts SearchOptions, recorder Recorder, logger *utils.Logger) *SearchService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &SearchService{
		catalog:  catalog,
		opts:     opts,
		recorder: recorder,
		logger:   logger.Named("search_service"),
	}
}

// Search queries the catalog and returns hits in upstream order.
// Zero matches yield an empty slice; catalog errors are returned wrapped.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	s.logger.Debug("Searching catalog", "catalog", s.catalog.Name(), "query", query, "limit", limit)

	tracks, err := s.catalog.SearchTracks(ctx, query, limit)
	if err != nil {
		s.recorder.ObserveSearch(s.catalog.Name(), models.ErrorKind(err), 0)
		s.logger.Error("Catalog search failed", err, "catalog", s.catalog.Name(), "query", query)
		return nil, fmt.Errorf("search %s: %w", s.catalog.Name(), err)
	}

	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	hits := lo.Map(tracks, func(t CatalogTrack, _ int) models.SearchHit {
		return ToSearchHit(t, s.opts.ImageSizeFrom, s.opts.ImageSizeTo)
	})

	s.recorder.ObserveSearch(s.catalog.Name(), models.ErrorKind(nil), len(hits))
	return hits, nil
}

// ToSearchHit reshapes a catalog track, replacing the image size token in its thumbnail.
func ToSearchHit(t CatalogTrack, sizeFrom, sizeTo string) models.SearchHit {
	artist := strings.Join(lo.Compact(t.Artists), " ")

	title := t.Title
	if artist != "" {
		title = t.Title + " - " + artist
	}

	seconds, label := t.DurationSeconds, t.DurationLabel
	if seconds == 0 && label != "" {
		seconds = ParseDurationLabel(label)
	}
	if label == "" && seconds > 0 {
		label = FormatDurationLabel(seconds)
	}

	image := t.ThumbnailURL
	if sizeFrom != "" {
		image = strings.Replace(image, sizeFrom, sizeTo, 1)
	}

	return models.SearchHit{
		Title:  title,
		Artist: artist,
		ID:     t.VideoID,
		URL:    ShortURL(t.VideoID),
		Album:  t.Album,
		Duration: models.HitDuration{
			Seconds: seconds,
			Label:   label,
		},
		Image: image,
	}
}

// ParseDurationLabel converts "m:ss" or "h:mm:ss" into seconds.
// It returns 0 for anything else.
func ParseDurationLabel(label string) int {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// FormatDurationLabel is the inverse of ParseDurationLabel.
func FormatDurationLabel(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
