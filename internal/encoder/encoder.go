// Package encoder writes a composed timeline to its final container: the
// audio is mixed into a temporary sidecar first, then composited frames are
// piped into ffmpeg and muxed with it.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/stitch/internal/audio"
	"github.com/mgpai22/stitch/internal/errs"
	ffmpegbin "github.com/mgpai22/stitch/internal/ffmpeg"
	"github.com/mgpai22/stitch/internal/logging"
	"github.com/mgpai22/stitch/internal/timeline"
	"github.com/mgpai22/stitch/internal/video"
)

type Options struct {
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	PixelFormat  string
	Preset       string
	SampleRate   int
	// TempDir holds the audio sidecar; empty uses the system temp dir.
	TempDir string
}

func DefaultOptions() Options {
	return Options{
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		PixelFormat:  "yuv420p",
		Preset:       "medium",
		SampleRate:   44100,
	}
}

type Encoder struct {
	ffmpegPath string
	opts       Options
	logger     *logging.Logger
}

func New(ffmpegPath string, opts Options, logger *logging.Logger) *Encoder {
	if logger == nil {
		logger = logging.Nop()
	}
	defaults := DefaultOptions()
	if opts.VideoCodec == "" {
		opts.VideoCodec = defaults.VideoCodec
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = defaults.AudioCodec
	}
	if opts.PixelFormat == "" {
		opts.PixelFormat = defaults.PixelFormat
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = defaults.SampleRate
	}
	return &Encoder{ffmpegPath: ffmpegPath, opts: opts, logger: logger}
}

var errEncoderGone = errors.New("encoder stopped reading frames")

// Encode renders tl into outputPath and returns its absolute path. On
// failure a partially written output is left where it is.
func (e *Encoder) Encode(ctx context.Context, tl *timeline.Timeline, outputPath string) (string, error) {
	if tl == nil || len(tl.Placements) == 0 {
		return "", errs.Encode("encode", outputPath, errs.ErrEmptyTimeline)
	}

	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return "", errs.IO("encode", outputPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(absOutput), 0o755); err != nil {
		return "", errs.IO("create output directory", filepath.Dir(absOutput), err)
	}

	sidecar, err := e.createSidecar()
	if err != nil {
		return "", err
	}
	defer os.Remove(sidecar)

	started := time.Now()
	e.logger.Infow("Mixing audio",
		"segments", len(tl.Placements),
		"duration", tl.Duration(),
	)
	if err := audio.Mix(ctx, tl.AudioTracks(), tl.Duration(), sidecar, audio.MixOptions{
		FFmpegPath: e.ffmpegPath,
		SampleRate: e.opts.SampleRate,
		Codec:      e.opts.AudioCodec,
		Bitrate:    e.opts.AudioBitrate,
	}); err != nil {
		return "", err
	}

	e.logger.Infow("Encoding video",
		"output", absOutput,
		"canvas", tl.Canvas.String(),
		"frames", tl.TotalFrames,
	)
	if err := e.encodeVideo(ctx, tl, sidecar, absOutput); err != nil {
		return "", err
	}

	e.logger.Infow("Encoding complete",
		"output", absOutput,
		"duration", tl.Duration(),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return absOutput, nil
}

func (e *Encoder) createSidecar() (string, error) {
	dir := e.opts.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.IO("create temp directory", dir, err)
	}

	f, err := os.CreateTemp(dir, "stitch-audio-*.m4a")
	if err != nil {
		return "", errs.IO("create audio sidecar", dir, err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", errs.IO("create audio sidecar", path, err)
	}
	return path, nil
}

func (e *Encoder) encodeVideo(ctx context.Context, tl *timeline.Timeline, sidecar, outputPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	stream := e.muxStream(tl.Canvas, sidecar, outputPath).WithInput(pr)

	done := make(chan error, 1)
	go func() {
		err := ffmpegbin.Run(ctx, stream)
		if err != nil {
			_ = pr.CloseWithError(err)
		} else {
			_ = pr.CloseWithError(io.ErrClosedPipe)
		}
		done <- err
	}()

	renderErr := tl.Render(ctx, func(frame *image.RGBA) error {
		if _, err := pw.Write(frame.Pix); err != nil {
			return fmt.Errorf("%w: %v", errEncoderGone, err)
		}
		return nil
	})

	if renderErr != nil && !errors.Is(renderErr, errEncoderGone) {
		cancel()
		_ = pw.CloseWithError(renderErr)
		<-done
		return renderErr
	}

	_ = pw.Close()
	if runErr := <-done; runErr != nil {
		return errs.Encode("encode video", outputPath, runErr)
	}
	if renderErr != nil {
		return errs.Encode("encode video", outputPath, renderErr)
	}
	return nil
}

func (e *Encoder) muxStream(canvas video.Canvas, sidecar, outputPath string) *ffmpeg.Stream {
	frames := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         canvas.Size(),
		"framerate": canvas.Rate(),
	})
	sound := ffmpeg.Input(sidecar)

	out := ffmpeg.KwArgs{
		"c:v":     e.opts.VideoCodec,
		"pix_fmt": e.opts.PixelFormat,
		"c:a":     "copy",
		"r":       canvas.Rate(),
	}
	if e.opts.Preset != "" && strings.HasPrefix(e.opts.VideoCodec, "libx26") {
		out["preset"] = e.opts.Preset
	}

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp4", ".mov", ".m4v":
		out["movflags"] = "+faststart"
	case ".webm":
		// WebM only carries VP8/VP9/AV1 and Vorbis/Opus
		out["c:v"] = "libvpx-vp9"
		out["c:a"] = "libopus"
		delete(out, "preset")
	}

	stream := ffmpeg.Output([]*ffmpeg.Stream{frames.Video(), sound.Audio()}, outputPath, out).
		OverWriteOutput()
	if e.ffmpegPath != "" {
		stream = stream.SetFfmpegPath(e.ffmpegPath)
	}
	return stream
}
