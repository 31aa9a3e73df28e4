// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// MediaService is the media functionality the handler depends on.
type MediaService interface {
	ResolveMedia(ctx context.Context, req models.ResolveRequest) (*models.MediaResolution, error)
	SearchMedia(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
}

// MediaHandler handles HTTP requests related to media operations.
type MediaHandler struct {
	mediaService MediaService
	logger       *utils.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaService MediaService, logger *utils.Logger) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		logger:       logger.Named("media_handler"),
	}
}

// Resolve handles requests to resolve a video link into downloadable files.
func (h *MediaHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := models.ResolveRequest{URL: strings.TrimSpace(query.Get("url"))}

	var err error
	if req.Quality, err = parseQuality(query.Get("quality")); err != nil {
		utils.RespondWithDomainError(w, invalidParameter("quality", err))
		return
	}
	if req.AudioQuality, err = parseQuality(query.Get("audio_quality")); err != nil {
		utils.RespondWithDomainError(w, invalidParameter("audio_quality", err))
		return
	}

	if err := utils.Validate(req); err != nil {
		utils.RespondWithValidationError(w, err)
		return
	}

	resolution, err := h.mediaService.ResolveMedia(r.Context(), req)
	if err != nil {
		h.logger.Warn("Failed to resolve media", "url", req.URL, "kind", models.ErrorKind(err), "error", err)
		utils.RespondWithDomainError(w, err)
		return
	}

	utils.RespondWithData(w, resolution)
}

// Search handles requests to search the music catalog.
func (h *MediaHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := models.SearchRequest{Query: utils.SanitizeSearchQuery(query.Get("q"))}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			utils.RespondWithDomainError(w, invalidParameter("limit", err))
			return
		}
		req.Limit = limit
	}

	if err := utils.Validate(req); err != nil {
		utils.RespondWithValidationError(w, err)
		return
	}

	response, err := h.mediaService.SearchMedia(r.Context(), req)
	if err != nil {
		h.logger.Error("Failed to search for media", err, "query", req.Query)
		if models.ErrorKind(err) == "internal" {
			// Catalog failures are upstream failures from the client's point of view
			err = models.NewResolutionError(models.ErrUpstreamRequest, "", err)
		}
		utils.RespondWithDomainError(w, err)
		return
	}

	utils.RespondWithData(w, response)
}

// parseQuality accepts "480" or "480p". An empty value means the default.
func parseQuality(value string) (int, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "p")
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func invalidParameter(name string, err error) *utils.AppError {
	return utils.BadRequestError("Invalid "+name+" parameter", err).
		WithDetails(map[string]any{"parameter": name})
}
