// Package synth runs the whole pipeline for one request: probe every
// segment, pick the canvas, process segments in order, lay out the
// timeline and encode once.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mgpai22/stitch/internal/audio"
	"github.com/mgpai22/stitch/internal/encoder"
	"github.com/mgpai22/stitch/internal/errs"
	"github.com/mgpai22/stitch/internal/logging"
	"github.com/mgpai22/stitch/internal/render"
	"github.com/mgpai22/stitch/internal/segment"
	"github.com/mgpai22/stitch/internal/timeline"
	"github.com/mgpai22/stitch/internal/video"
)

const DefaultTransition = 500 * time.Millisecond

type Request struct {
	Segments   []segment.Source
	OutputPath string
	// Transition is the crossfade length; nil means DefaultTransition.
	Transition *time.Duration
}

func (r Request) transition(fallback time.Duration) time.Duration {
	if r.Transition != nil {
		return *r.Transition
	}
	return fallback
}

func (r Request) Validate() error {
	if len(r.Segments) == 0 {
		return errs.ErrEmptyTimeline
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	if r.Transition != nil && *r.Transition < 0 {
		return fmt.Errorf("transition must not be negative, got %v", *r.Transition)
	}
	for i, src := range r.Segments {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

type Deps struct {
	FFmpegPath  string
	VideoProber segment.VideoProber
	AudioProber segment.AudioProber
	Rasterizer  *render.Rasterizer
	Encoder     *encoder.Encoder
	Fit         audio.FitPolicy
	// Canvas overrides the derived output geometry where non-zero.
	Canvas video.Canvas
	// Transition replaces DefaultTransition when the request has none.
	Transition *time.Duration
	Logger     *logging.Logger
}

type Synthesizer struct {
	deps Deps
}

func New(deps Deps) *Synthesizer {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Rasterizer == nil {
		deps.Rasterizer = render.NewRasterizer(render.DefaultOptions(), deps.Logger)
	}
	if deps.Encoder == nil {
		deps.Encoder = encoder.New(deps.FFmpegPath, encoder.DefaultOptions(), deps.Logger)
	}
	return &Synthesizer{deps: deps}
}

// Synthesize produces the output file and returns its absolute path. It
// fails fast; nothing is written when a segment cannot be processed.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	logger := s.deps.Logger
	fallback := DefaultTransition
	if s.deps.Transition != nil {
		fallback = *s.deps.Transition
	}
	transition := req.transition(fallback)

	processor := segment.NewProcessor(segment.ProcessorOptions{
		Videos:     s.deps.VideoProber,
		Audios:     s.deps.AudioProber,
		Rasterizer: s.deps.Rasterizer,
		Fit:        s.deps.Fit,
		FFmpegPath: s.deps.FFmpegPath,
		Logger:     logger,
	})

	infos := make([]*video.Info, len(req.Segments))
	for i, src := range req.Segments {
		info, err := processor.ProbeVideo(ctx, src)
		if err != nil {
			return "", err
		}
		infos[i] = info
	}

	canvas, err := video.ChooseCanvas(infos, s.deps.Canvas)
	if err != nil {
		return "", err
	}
	logger.Infow("Synthesis started",
		"segments", len(req.Segments),
		"canvas", canvas.String(),
		"transition", transition,
		"output", req.OutputPath,
	)

	clips := make([]timeline.Clip, 0, len(req.Segments))
	for i, src := range req.Segments {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seg, err := processor.Process(ctx, i, src, canvas)
		if err != nil {
			return "", err
		}
		logger.Infow("Segment ready",
			"index", i,
			"duration", seg.Duration(),
			"audio", seg.Audio().Kind.String(),
			"cues", len(seg.Overlays()),
		)
		clips = append(clips, seg)
	}

	tl, err := timeline.Build(clips, transition, canvas)
	if err != nil {
		return "", err
	}

	return s.deps.Encoder.Encode(ctx, tl, req.OutputPath)
}
