package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolutionErrorMessage(t *testing.T) {
	tests := []struct {
		err  *ResolutionError
		want string
	}{
		{MissingField("analyze", "token"), "analyze: upstream format error: missing token"},
		{&ResolutionError{Kind: ErrUpstreamRequest, Stage: "convert_video", Status: 503}, "convert_video: upstream request error: status 503"},
		{NewResolutionError(ErrTimeout, "convert_audio", context.DeadlineExceeded), "convert_audio: timeout: context deadline exceeded"},
		{&ResolutionError{Kind: ErrInvalidInput}, "invalid input"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestResolutionErrorMatching(t *testing.T) {
	err := fmt.Errorf("search music: %w", NewResolutionError(ErrTimeout, "", context.DeadlineExceeded))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrUpstreamRequest)

	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestErrorKindAndStatus(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{nil, "ok", http.StatusInternalServerError},
		{&ResolutionError{Kind: ErrInvalidInput}, "invalid_input", http.StatusBadRequest},
		{MissingField("analyze", "title"), "upstream_format", http.StatusBadGateway},
		{&ResolutionError{Kind: ErrUpstreamRequest}, "upstream_request", http.StatusBadGateway},
		{&ResolutionError{Kind: ErrTimeout}, "timeout", http.StatusGatewayTimeout},
		{&ResolutionError{Kind: ErrTooManyRequests}, "rate_limited", http.StatusTooManyRequests},
		{fmt.Errorf("resolution stopped after analyzed: %w", context.Canceled), "cancelled", http.StatusInternalServerError},
		{errors.New("boom"), "internal", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, ErrorKind(tt.err), fmt.Sprint(tt.err))
		if tt.err != nil {
			assert.Equal(t, tt.status, MapErrorToHTTPStatus(tt.err))
		}
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(&ResolutionError{Kind: ErrUpstreamRequest, Stage: "convert_video", Status: 503})

	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusBadGateway, resp.Error.Code)
	assert.Equal(t, "upstream_request", resp.Error.Kind)
	assert.Equal(t, "upstream request error", resp.Error.Message)
	assert.Equal(t, map[string]any{"stage": "convert_video", "upstreamStatus": 503}, resp.Error.Details)

	resp = NewErrorResponse(&ResolutionError{Kind: ErrInvalidInput})
	assert.Nil(t, resp.Error.Details)
}

func TestNewErrorResponseHidesInternalsInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	resp := NewErrorResponse(errors.New("nil pointer somewhere"))

	assert.Equal(t, http.StatusInternalServerError, resp.Error.Code)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}
