package media

import (
	"context"
	"fmt"
	"net/http"

	"norelock.dev/mediagrab/backend/internal/config"
	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// MediaService provides a unified interface for media operations.
type MediaService struct {
	resolver      *Resolver
	searchService *SearchService
	defaultLimit  int
	logger        *utils.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(resolver *Resolver, searchService *SearchService, defaultLimit int, logger *utils.Logger) *MediaService {
	return &MediaService{
		resolver:      resolver,
		searchService: searchService,
		defaultLimit:  defaultLimit,
		logger:        logger.Named("media_service"),
	}
}

// UpstreamClients holds the HTTP clients used for the converter and the catalog.
// A nil client falls back to a default one.
type UpstreamClients struct {
	Converter HTTPDoer
	Catalog   HTTPDoer
}

// NewUpstreamClients builds one client per upstream. Each client timeout is an
// outer bound of twice that upstream's per-call timeout.
func NewUpstreamClients(cfg *config.Config) UpstreamClients {
	return UpstreamClients{
		Converter: &http.Client{Timeout: 2 * cfg.Converter.StageTimeout},
		Catalog:   &http.Client{Timeout: 2 * cfg.Catalog.Timeout},
	}
}

// NewMediaServiceFromConfig wires the converter, the configured catalog and
// the search service.
func NewMediaServiceFromConfig(ctx context.Context, cfg *config.Config, clients UpstreamClients, recorder Recorder, logger *utils.Logger) (*MediaService, error) {
	converter := NewConverterClient(ConverterOptionsFromConfig(cfg), clients.Converter, logger)
	resolver := NewResolver(converter, recorder, cfg.Converter.VideoQuality, cfg.Converter.AudioQuality, logger)

	var catalog Catalog
	switch cfg.Catalog.Provider {
	case "data_api":
		c, err := NewDataAPICatalog(ctx, DataAPICatalogOptions{
			APIKey:  cfg.Catalog.YouTubeAPIKey,
			Timeout: cfg.Catalog.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		catalog = c
	case "music", "":
		catalog = NewMusicCatalog(MusicCatalogOptions{
			BaseURL:       cfg.Catalog.MusicBaseURL,
			ClientVersion: cfg.Catalog.ClientVersion,
			UserAgent:     cfg.Converter.UserAgent,
			Timeout:       cfg.Catalog.Timeout,
			ThumbnailSize: cfg.Catalog.ImageSizeFrom,
		}, clients.Catalog, logger)
	default:
		return nil, fmt.Errorf("unknown catalog provider: %s", cfg.Catalog.Provider)
	}

	search := NewSearchService(catalog, SearchOptions{
		ImageSizeFrom: cfg.Catalog.ImageSizeFrom,
		ImageSizeTo:   cfg.Catalog.ImageSizeTo,
	}, recorder, logger)

	return NewMediaService(resolver, search, cfg.Catalog.DefaultLimit, logger), nil
}

// ResolveMedia resolves a video link into hosted video and audio files.
func (s *MediaService) ResolveMedia(ctx context.Context, req models.ResolveRequest) (*models.MediaResolution, error) {
	s.logger.Debug("Resolving media", "url", req.URL, "quality", req.Quality, "audioQuality", req.AudioQuality)
	return s.resolver.Resolve(ctx, req.URL, WithVideoQuality(req.Quality), WithAudioQuality(req.AudioQuality))
}

// SearchMedia searches the catalog, applying the default limit when none is given.
func (s *MediaService) SearchMedia(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	hits, err := s.searchService.Search(ctx, req.Query, limit)
	if err != nil {
		return nil, err
	}

	return &models.SearchResponse{
		Query:   req.Query,
		Results: hits,
		Total:   len(hits),
	}, nil
}
