package segment

import (
	"context"
	"sync"

	"github.com/mgpai22/stitch/internal/audio"
	"github.com/mgpai22/stitch/internal/errs"
	"github.com/mgpai22/stitch/internal/logging"
	"github.com/mgpai22/stitch/internal/render"
	"github.com/mgpai22/stitch/internal/subtitle"
	"github.com/mgpai22/stitch/internal/video"
)

type VideoProber interface {
	Probe(ctx context.Context, path string) (*video.Info, error)
}

type AudioProber interface {
	Probe(ctx context.Context, path string) (*audio.Info, error)
}

// Processor probes sources and rasterizes their subtitles. Probe results
// are remembered for the processor's lifetime, so use one per synthesis.
type Processor struct {
	videos     VideoProber
	audios     AudioProber
	raster     *render.Rasterizer
	policy     audio.FitPolicy
	ffmpegPath string
	logger     *logging.Logger

	mu     sync.Mutex
	probed map[string]*video.Info
}

type ProcessorOptions struct {
	Videos     VideoProber
	Audios     AudioProber
	Rasterizer *render.Rasterizer
	Fit        audio.FitPolicy
	FFmpegPath string
	Logger     *logging.Logger
}

func NewProcessor(opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	policy := opts.Fit
	if policy == "" {
		policy = audio.FitPad
	}
	raster := opts.Rasterizer
	if raster == nil {
		raster = render.NewRasterizer(render.DefaultOptions(), logger)
	}

	return &Processor{
		videos:     opts.Videos,
		audios:     opts.Audios,
		raster:     raster,
		policy:     policy,
		ffmpegPath: opts.FFmpegPath,
		logger:     logger,
		probed:     make(map[string]*video.Info),
	}
}

// ProbeVideo returns the video metadata for src, a MediaOpen error when the
// file is missing or undecodable.
func (p *Processor) ProbeVideo(ctx context.Context, src Source) (*video.Info, error) {
	if err := src.Validate(); err != nil {
		return nil, errs.MediaOpen("probe video", "", err)
	}

	p.mu.Lock()
	cached, ok := p.probed[src.VideoPath]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	info, err := p.videos.Probe(ctx, src.VideoPath)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.probed[src.VideoPath] = info
	p.mu.Unlock()
	return info, nil
}

// Process builds the segment for src on canvas. Subtitle parse errors
// abort with a Format error; unreadable media with MediaOpen.
func (p *Processor) Process(ctx context.Context, index int, src Source, canvas video.Canvas) (*Segment, error) {
	if err := canvas.Validate(); err != nil {
		return nil, err
	}

	info, err := p.ProbeVideo(ctx, src)
	if err != nil {
		return nil, err
	}

	sound, err := p.resolveAudio(ctx, src, info)
	if err != nil {
		return nil, err
	}

	overlays, err := p.rasterizeSubtitles(src, canvas)
	if err != nil {
		return nil, err
	}

	seg := &Segment{
		index:      index,
		source:     src,
		info:       *info,
		audio:      sound,
		overlays:   overlays,
		canvas:     canvas,
		frames:     canvas.Frames(info.Duration),
		ffmpegPath: p.ffmpegPath,
	}

	p.logger.Debugw("Segment processed",
		"index", index,
		"video", src.VideoPath,
		"duration", info.Duration,
		"frames", seg.frames,
		"audio", sound.Kind.String(),
		"loop_audio", sound.Loop,
		"cues", len(overlays),
	)
	return seg, nil
}

func (p *Processor) resolveAudio(ctx context.Context, src Source, info *video.Info) (audio.Source, error) {
	if src.AudioPath == "" {
		if info.HasAudio {
			return audio.Native(info.Path, info.Duration), nil
		}
		return audio.Silence(), nil
	}

	a, err := p.audios.Probe(ctx, src.AudioPath)
	if err != nil {
		return audio.Source{}, err
	}
	if a.Duration != info.Duration {
		p.logger.Debugw("Replacement audio length differs from video",
			"audio", src.AudioPath,
			"audio_duration", a.Duration,
			"video_duration", info.Duration,
			"policy", string(p.policy),
		)
	}
	return audio.Replacement(src.AudioPath, a.Duration).Fit(p.policy, info.Duration), nil
}

func (p *Processor) rasterizeSubtitles(src Source, canvas video.Canvas) ([]render.Overlay, error) {
	if src.SubtitlePath == "" {
		return nil, nil
	}

	cues, err := subtitle.Open(src.SubtitlePath)
	if err != nil {
		return nil, err
	}

	overlays := make([]render.Overlay, 0, len(cues))
	for _, cue := range cues {
		overlays = append(overlays, p.raster.Overlay(cue, canvas.Width, canvas.Height))
	}
	return overlays, nil
}
