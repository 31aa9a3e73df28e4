package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"norelock.dev/mediagrab/backend/internal/models"
	"norelock.dev/mediagrab/backend/internal/utils"
)

// Negotiator performs the converter round trips.
type Negotiator interface {
	Analyze(ctx context.Context, videoID string) (*NegotiationResponse, error)
	ConvertVideo(ctx context.Context, token, videoID string, quality int) (*NegotiationResponse, error)
	ConvertAudio(ctx context.Context, token, videoID string, quality int) (*NegotiationResponse, error)
}

// Recorder receives pipeline and search measurements.
type Recorder interface {
	ObserveStage(stage, outcome string, duration time.Duration)
	ObserveResolution(outcome string, duration time.Duration)
	ObserveSearch(provider, outcome string, hits int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, string, time.Duration) {}
func (nopRecorder) ObserveResolution(string, time.Duration) {}
func (nopRecorder) ObserveSearch(string, string, int) {}

// resolveState is a position in the negotiation.
type resolveState int

const (
	stateStart resolveState = iota
	stateAnalyzed
	stateVideoConverted
	stateAudioConverted
	stateDone
)

func (s resolveState) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateAnalyzed:
		return "analyzed"
	case stateVideoConverted:
		return "video_converted"
	case stateAudioConverted:
		return "audio_converted"
	default:
		return "done"
	}
}

type resolveOptions struct {
	videoQuality int
	audioQuality int
}

// ResolveOption adjusts a single Resolve call.
type ResolveOption func(*resolveOptions)

// WithVideoQuality overrides the mp4 quality. Non-positive values are ignored.
func WithVideoQuality(quality int) ResolveOption {
	return func(o *resolveOptions) {
		if quality > 0 {
			o.videoQuality = quality
		}
	}
}

// WithAudioQuality overrides the mp3 bitrate. Non-positive values are ignored.
func WithAudioQuality(quality int) ResolveOption {
	return func(o *resolveOptions) {
		if quality > 0 {
			o.audioQuality = quality
		}
	}
}

// resolution is the state owned by one Resolve call.
type resolution struct {
	id        string
	opts      resolveOptions
	analyzed  *AnalyzeResult
	videoLink string
	audioLink string
	result    *models.MediaResolution
}

// Resolver turns a video link into a MediaResolution by walking the
// negotiation states in order. It keeps no state between calls.
type Resolver struct {
	negotiator   Negotiator
	recorder     Recorder
	logger       *utils.Logger
	videoQuality int
	audioQuality int
}

// NewResolver creates a new resolver with the default video and audio quality.
// A nil recorder disables measurements.
func NewResolver(negotiator Negotiator, recorder Recorder, videoQuality, audioQuality int, logger *utils.Logger) *Resolver {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Resolver{
		negotiator:   negotiator,
		recorder:     recorder,
		logger:       logger.Named("resolver"),
		videoQuality: videoQuality,
		audioQuality: audioQuality,
	}
}

// Resolve extracts the identifier from input and runs the three converter stages.
// Any failure aborts the call. Partial results are never returned.
func (r *Resolver) Resolve(ctx context.Context, input string, opts ...ResolveOption) (*models.MediaResolution, error) {
	start := time.Now()

	res, err := r.resolve(ctx, input, opts...)
	r.recorder.ObserveResolution(models.ErrorKind(err), time.Since(start))

	if err != nil {
		r.logger.Warn("Resolution failed", "input", input, "kind", models.ErrorKind(err), "error", err)
		return nil, err
	}

	r.logger.Info("Resolved media", "id", res.ID, "quality", res.Quality, "duration", time.Since(start))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, input string, opts ...ResolveOption) (*models.MediaResolution, error) {
	id, err := ExtractVideoID(input)
	if err != nil {
		return nil, err
	}

	run := &resolution{
		id: id,
		opts: resolveOptions{
			videoQuality: r.videoQuality,
			audioQuality: r.audioQuality,
		},
	}
	for _, opt := range opts {
		opt(&run.opts)
	}

	state := stateStart
	for state != stateDone {
		// Cancellation only takes effect between stages
		if err := ctx.Err(); err != nil {
			return nil, stoppedError(state, err)
		}

		next, err := r.step(ctx, state, run)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Advanced resolution", "id", id, "from", state.String(), "to", next.String())
		state = next
	}

	return run.result, nil
}

// step performs the transition out of state and returns the next state.
func (r *Resolver) step(ctx context.Context, state resolveState, run *resolution) (resolveState, error) {
	switch state {
	case stateStart:
		err := r.timed(StageAnalyze, func() (*NegotiationResponse, error) {
			return r.negotiator.Analyze(ctx, run.id)
		}, func(resp *NegotiationResponse) error {
			analyzed, err := ParseAnalyze(resp.HTML)
			run.analyzed = analyzed
			return err
		})
		if err != nil {
			return state, err
		}
		return stateAnalyzed, nil

	case stateAnalyzed:
		err := r.timed(StageConvertVideo, func() (*NegotiationResponse, error) {
			return r.negotiator.ConvertVideo(ctx, run.analyzed.Token, run.id, run.opts.videoQuality)
		}, func(resp *NegotiationResponse) error {
			link, err := ParseLink(StageConvertVideo, resp.HTML)
			run.videoLink = link
			return err
		})
		if err != nil {
			return state, err
		}
		return stateVideoConverted, nil

	case stateVideoConverted:
		err := r.timed(StageConvertAudio, func() (*NegotiationResponse, error) {
			return r.negotiator.ConvertAudio(ctx, run.analyzed.Token, run.id, run.opts.audioQuality)
		}, func(resp *NegotiationResponse) error {
			link, err := ParseLink(StageConvertAudio, resp.HTML)
			run.audioLink = link
			return err
		})
		if err != nil {
			return state, err
		}
		return stateAudioConverted, nil

	case stateAudioConverted:
		res, err := Assemble(run.id, run.opts.videoQuality, run.analyzed, run.videoLink, run.audioLink)
		if err != nil {
			return state, err
		}
		run.result = res
		return stateDone, nil

	default:
		return state, fmt.Errorf("no transition out of state %s", state)
	}
}

// timed runs one stage round trip and its scrape, recording the outcome.
func (r *Resolver) timed(stage Stage, call func() (*NegotiationResponse, error), parse func(*NegotiationResponse) error) error {
	start := time.Now()

	resp, err := call()
	if err == nil {
		err = parse(resp)
	}

	r.recorder.ObserveStage(stage.String(), models.ErrorKind(err), time.Since(start))
	return err
}

// stoppedError reports a context that ended before the next stage was issued.
func stoppedError(state resolveState, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewResolutionError(models.ErrTimeout, state.String(), err)
	}
	return fmt.Errorf("resolution stopped after %s: %w", state, err)
}
