// Package mediatest generates small synthetic media files for tests using
// ffmpeg's lavfi sources. Tests skip when ffmpeg is not installed.
package mediatest

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/stitch/internal/ffmpeg"
)

// RequireFFmpeg returns ffmpeg/ffprobe from PATH or skips the test.
// It never triggers the bundled download.
func RequireFFmpeg(t testing.TB) ffmpegbin.BinaryPaths {
	t.Helper()

	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not found on PATH")
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not found on PATH")
	}
	return ffmpegbin.BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}
}

type ClipOptions struct {
	Color     string
	Width     int
	Height    int
	FrameRate float64
	Duration  time.Duration
	// ToneHz adds a sine audio track when non-zero.
	ToneHz int
}

// ColorClip writes a solid-color clip into dir and returns its path.
func ColorClip(t testing.TB, bins ffmpegbin.BinaryPaths, dir, name string, opts ClipOptions) string {
	t.Helper()

	path := filepath.Join(dir, name)
	src := fmt.Sprintf("color=c=%s:s=%dx%d:r=%g:d=%g",
		opts.Color, opts.Width, opts.Height, opts.FrameRate, opts.Duration.Seconds())

	streams := []*ffmpeg.Stream{ffmpeg.Input(src, ffmpeg.KwArgs{"f": "lavfi"})}
	out := ffmpeg.KwArgs{
		"c:v":     "mpeg4",
		"q:v":     2,
		"pix_fmt": "yuv420p",
	}
	if opts.ToneHz > 0 {
		streams = append(streams, ffmpeg.Input(toneSource(opts.ToneHz, opts.Duration), ffmpeg.KwArgs{"f": "lavfi"}))
		out["c:a"] = "aac"
		out["shortest"] = ""
	}

	stream := ffmpeg.Output(streams, path, out).
		OverWriteOutput().
		SetFfmpegPath(bins.FFmpeg)
	run(t, stream)
	return path
}

// ToneFile writes a sine-wave audio file into dir and returns its path.
func ToneFile(t testing.TB, bins ffmpegbin.BinaryPaths, dir, name string, hz int, d time.Duration) string {
	t.Helper()

	path := filepath.Join(dir, name)
	stream := ffmpeg.Input(toneSource(hz, d), ffmpeg.KwArgs{"f": "lavfi"}).
		Output(path, ffmpeg.KwArgs{"c:a": "aac"}).
		OverWriteOutput().
		SetFfmpegPath(bins.FFmpeg)
	run(t, stream)
	return path
}

func toneSource(hz int, d time.Duration) string {
	return fmt.Sprintf("sine=frequency=%d:sample_rate=44100:duration=%g", hz, d.Seconds())
}

func run(t testing.TB, stream *ffmpeg.Stream) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}
}
