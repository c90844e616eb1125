package synth

import (
	"fmt"

	"github.com/mgpai22/stitch/internal/audio"
	"github.com/mgpai22/stitch/internal/config"
	"github.com/mgpai22/stitch/internal/encoder"
	"github.com/mgpai22/stitch/internal/ffmpeg"
	"github.com/mgpai22/stitch/internal/logging"
	"github.com/mgpai22/stitch/internal/render"
	"github.com/mgpai22/stitch/internal/video"
)

// FromConfig wires a Synthesizer from configuration, resolving the ffmpeg
// binaries on the way.
func FromConfig(cfg *config.Config, logger *logging.Logger) (*Synthesizer, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	bins, err := ffmpeg.Resolve(ffmpeg.BinaryPaths{
		FFmpeg:  cfg.FFmpeg.FFmpegPath,
		FFprobe: cfg.FFmpeg.FFprobePath,
	})
	if err != nil {
		return nil, err
	}

	fit, err := audio.ParseFitPolicy(cfg.Render.AudioFit)
	if err != nil {
		return nil, fmt.Errorf("render.audio_fit: %w", err)
	}

	raster := render.NewRasterizer(RasterOptions(cfg), logger)
	enc := encoder.New(bins.FFmpeg, encoder.Options{
		VideoCodec:   cfg.Encoding.VideoCodec,
		AudioCodec:   cfg.Encoding.AudioCodec,
		AudioBitrate: cfg.Encoding.AudioBitrate,
		PixelFormat:  cfg.Encoding.PixelFormat,
		Preset:       cfg.Encoding.Preset,
		SampleRate:   cfg.Encoding.SampleRate,
		TempDir:      cfg.Paths.WorkDir,
	}, logger)

	transition := cfg.Transition()
	logger.Debugw("Pipeline configured",
		"ffmpeg", bins.FFmpeg,
		"ffprobe", bins.FFprobe,
		"font", render.FontLabel(raster.FontSource()),
		"audio_fit", string(fit),
	)

	return New(Deps{
		FFmpegPath:  bins.FFmpeg,
		VideoProber: video.NewProber(bins.FFprobe),
		AudioProber: audio.NewProber(bins.FFprobe),
		Rasterizer:  raster,
		Encoder:     enc,
		Fit:         fit,
		Canvas: video.Canvas{
			Width:     cfg.Render.Width,
			Height:    cfg.Render.Height,
			FrameRate: cfg.Render.FrameRate,
		},
		Transition: &transition,
		Logger:     logger,
	}), nil
}

// RasterOptions maps the [subtitles] section onto rasterizer options.
func RasterOptions(cfg *config.Config) render.Options {
	return render.Options{
		FontSize:       cfg.Subtitles.FontSize,
		FontCandidates: cfg.Subtitles.FontCandidates,
		BottomMargin:   cfg.Subtitles.BottomMargin,
		Padding:        cfg.Subtitles.Padding,
		BoxAlpha:       uint8(cfg.Subtitles.BoxAlpha),
		LineSpacing:    cfg.Subtitles.LineSpacing,
	}
}
