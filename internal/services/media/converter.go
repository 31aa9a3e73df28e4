package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"norelock.dev/mediagrab/backend/internal/config"
	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// maxFragmentSize caps the size of one converter response body. Real
// fragments are a few kilobytes and the markup parser slows down sharply on
// large deeply nested documents.
const maxFragmentSize = 512 << 10

// Stage is one round trip of the converter negotiation.
type Stage int

const (
	// StageAnalyze fetches the video metadata and the session token.
	StageAnalyze Stage = iota
	// StageConvertVideo requests the hosted mp4 link.
	StageConvertVideo
	// StageConvertAudio requests the hosted mp3 link.
	StageConvertAudio
)

// String returns the stage name used in logs, metrics and errors.
func (s Stage) String() string {
	switch s {
	case StageAnalyze:
		return "analyze"
	case StageConvertVideo:
		return "convert_video"
	case StageConvertAudio:
		return "convert_audio"
	default:
		return "stage_" + strconv.Itoa(int(s))
	}
}

// NegotiationRequest is a single form POST sent to the converter.
type NegotiationRequest struct {
	Stage   Stage
	Payload url.Values
}

// NegotiationResponse is the HTML fragment returned for one stage.
type NegotiationResponse struct {
	Stage  Stage
	Status int
	HTML   string
}

// HTTPDoer is the subset of *http.Client used by the converter client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ConverterOptions holds the endpoint and the browser-like header set.
type ConverterOptions struct {
	BaseURL        string
	UserAgent      string
	SecCHUA        string
	AcceptLanguage string
	Cookie         string
	StageTimeout   time.Duration
}

// ConverterOptionsFromConfig builds converter options from the application configuration.
func ConverterOptionsFromConfig(cfg *config.Config) ConverterOptions {
	return ConverterOptions{
		BaseURL:        strings.TrimRight(cfg.Converter.BaseURL, "/"),
		UserAgent:      cfg.Converter.UserAgent,
		SecCHUA:        cfg.Converter.SecCHUA,
		AcceptLanguage: cfg.Converter.AcceptLanguage,
		Cookie:         cfg.Converter.Cookie,
		StageTimeout:   cfg.Converter.StageTimeout,
	}
}

// converterEnvelope is the JSON body wrapping every fragment.
type converterEnvelope struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// ConverterClient drives the three converter endpoints.
// It holds no per-call state and is safe for concurrent use.
type ConverterClient struct {
	opts   ConverterOptions
	client HTTPDoer
	logger *utils.Logger
}

// NewConverterClient creates a new converter client.
// A nil client falls back to a plain *http.Client.
func NewConverterClient(opts ConverterOptions, client HTTPDoer, logger *utils.Logger) *ConverterClient {
	if client == nil {
		client = &http.Client{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &ConverterClient{
		opts:   opts,
		client: client,
		logger: logger.Named("converter"),
	}
}

// Analyze submits the watch URL of videoID and returns the metadata fragment.
func (c *ConverterClient) Analyze(ctx context.Context, videoID string) (*NegotiationResponse, error) {
	return c.Negotiate(ctx, NegotiationRequest{
		Stage: StageAnalyze,
		Payload: url.Values{
			"url":    {WatchURL(videoID)},
			"q_auto": {"0"},
			"ajax":   {"1"},
		},
	})
}

// ConvertVideo requests the mp4 file for videoID at the given quality.
func (c *ConverterClient) ConvertVideo(ctx context.Context, token, videoID string, quality int) (*NegotiationResponse, error) {
	return c.Negotiate(ctx, convertRequest(StageConvertVideo, token, videoID, "mp4", quality))
}

// ConvertAudio requests the mp3 file for videoID at the given bitrate.
func (c *ConverterClient) ConvertAudio(ctx context.Context, token, videoID string, quality int) (*NegotiationResponse, error) {
	return c.Negotiate(ctx, convertRequest(StageConvertAudio, token, videoID, "mp3", quality))
}

func convertRequest(stage Stage, token, videoID, ftype string, quality int) NegotiationRequest {
	return NegotiationRequest{
		Stage: stage,
		Payload: url.Values{
			"type":     {"youtube"},
			"_id":      {token},
			"v_id":     {videoID},
			"ajax":     {"1"},
			"token":    {""},
			"ftype":    {ftype},
			"fquality": {strconv.Itoa(quality)},
		},
	}
}

// endpoint returns the URL a stage is posted to.
func (c *ConverterClient) endpoint(stage Stage) string {
	if stage == StageAnalyze {
		return c.opts.BaseURL + "/analyze/ajax"
	}
	return c.opts.BaseURL + "/convert"
}

// Negotiate performs one stage round trip under the stage timeout and unwraps the fragment.
func (c *ConverterClient) Negotiate(ctx context.Context, req NegotiationRequest) (*NegotiationResponse, error) {
	stage := req.Stage.String()

	if c.opts.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.StageTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Stage), strings.NewReader(req.Payload.Encode()))
	if err != nil {
		return nil, models.NewResolutionError(models.ErrUpstreamRequest, stage, err)
	}
	c.setHeaders(httpReq)

	c.logger.Debug("Sending converter request", "stage", stage, "url", httpReq.URL.String())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, stage, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentSize+1))
	if err != nil {
		return nil, transportError(ctx, stage, err)
	}
	if len(body) > maxFragmentSize {
		return nil, models.NewResolutionError(models.ErrUpstreamFormat, stage,
			fmt.Errorf("fragment too large: more than %d bytes", maxFragmentSize))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.ResolutionError{
			Kind:   models.ErrUpstreamRequest,
			Stage:  stage,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %s", utils.TruncateString(strings.TrimSpace(string(body)), 256)),
		}
	}

	var envelope converterEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, models.NewResolutionError(models.ErrUpstreamFormat, stage, fmt.Errorf("decode envelope: %w", err))
	}
	if strings.TrimSpace(envelope.Result) == "" {
		return nil, models.MissingField(stage, "result")
	}

	return &NegotiationResponse{
		Stage:  req.Stage,
		Status: resp.StatusCode,
		HTML:   envelope.Result,
	}, nil
}

func (c *ConverterClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.opts.SecCHUA != "" {
		req.Header.Set("sec-ch-ua", c.opts.SecCHUA)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if c.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.opts.AcceptLanguage)
	}
	if c.opts.Cookie != "" {
		req.Header.Set("Cookie", c.opts.Cookie)
	}
}

// transportError classifies a failed round trip as a timeout or a request error.
func transportError(ctx context.Context, stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewResolutionError(models.ErrTimeout, stage, err)
	}
	return models.NewResolutionError(models.ErrUpstreamRequest, stage, err)
}
