package video

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/stitch/internal/errs"
	ffmpegbin "github.com/mgpai22/stitch/internal/ffmpeg"
	"github.com/mgpai22/stitch/internal/mediatest"
)

func TestInfoFromProbe(t *testing.T) {
	probe, err := ffmpegbin.ParseProbe([]byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
			 "avg_frame_rate": "0/0", "r_frame_rate": "24/1"},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2}
		],
		"format": {"duration": "5.000000", "size": "2048", "format_name": "mov,mp4"}
	}`))
	require.NoError(t, err)

	info, err := infoFromProbe("a.mp4", probe)
	require.NoError(t, err)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.Equal(t, 24.0, info.FrameRate)
	assert.Equal(t, 5*time.Second, info.Duration)
	assert.True(t, info.HasAudio)
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, int64(2048), info.Size)
}

func TestInfoPrefersVideoStreamDuration(t *testing.T) {
	probe, err := ffmpegbin.ParseProbe([]byte(`{
		"streams": [
			{"codec_type": "video", "width": 640, "height": 360, "r_frame_rate": "25/1", "duration": "5.000000"},
			{"codec_type": "audio", "duration": "7.000000"}
		],
		"format": {"duration": "7.000000"}
	}`))
	require.NoError(t, err)

	info, err := infoFromProbe("a.mp4", probe)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, info.Duration)

	probe, err = ffmpegbin.ParseProbe([]byte(`{
		"streams": [{"codec_type": "video", "width": 640, "height": 360, "duration": "N/A"}],
		"format": {"duration": "3.5"}
	}`))
	require.NoError(t, err)

	info, err = infoFromProbe("a.mkv", probe)
	require.NoError(t, err)
	assert.Equal(t, 3500*time.Millisecond, info.Duration)
}

func TestInfoFromProbeWithoutVideo(t *testing.T) {
	probe, err := ffmpegbin.ParseProbe([]byte(`{"streams": [{"codec_type": "audio"}], "format": {"duration": "1"}}`))
	require.NoError(t, err)

	_, err = infoFromProbe("a.m4a", probe)
	assert.ErrorIs(t, err, errs.ErrNoVideoStream)
}

func TestProbeMissingFileIsMediaOpenError(t *testing.T) {
	p := NewProber("ffprobe")

	_, err := p.Probe(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindMediaOpen))
}

func TestCanvasFrames(t *testing.T) {
	c := Canvas{Width: 640, Height: 360, FrameRate: 30}

	assert.Equal(t, 150, c.Frames(5*time.Second))
	assert.Equal(t, 15, c.Frames(500*time.Millisecond))
	assert.Equal(t, 0, c.Frames(-time.Second))
	assert.Equal(t, time.Second, c.Timestamp(30))
	assert.Equal(t, 640*360*4, c.FrameBytes())
	assert.Equal(t, "640x360@30fps", c.String())
}

func TestChooseCanvas(t *testing.T) {
	infos := []*Info{
		{Width: 1281, Height: 721, FrameRate: 24},
		{Width: 640, Height: 480, FrameRate: 30000.0 / 1001.0},
	}

	c, err := ChooseCanvas(infos, Canvas{})
	require.NoError(t, err)
	assert.Equal(t, 1280, c.Width)
	assert.Equal(t, 720, c.Height)
	assert.InDelta(t, 29.97, c.FrameRate, 0.01)

	c, err = ChooseCanvas(infos, Canvas{Width: 320, Height: 240, FrameRate: 15})
	require.NoError(t, err)
	assert.Equal(t, Canvas{Width: 320, Height: 240, FrameRate: 15}, c)

	_, err = ChooseCanvas(nil, Canvas{})
	assert.Error(t, err)
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("clip.MP4"))
	assert.True(t, IsVideoFile("/tmp/x.webm"))
	assert.False(t, IsVideoFile("track.srt"))
	assert.False(t, IsVideoFile("voice.mp3"))
}

func TestProbeAndDecodeLetterboxed(t *testing.T) {
	bins := mediatest.RequireFFmpeg(t)
	dir := t.TempDir()
	path := mediatest.ColorClip(t, bins, dir, "red.mp4", mediatest.ClipOptions{
		Color: "red", Width: 64, Height: 48, FrameRate: 10, Duration: time.Second,
	})

	info, err := NewProber(bins.FFprobe).Probe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 48, info.Height)
	assert.InDelta(t, 10, info.FrameRate, 0.01)
	assert.InDelta(t, 1.0, info.Duration.Seconds(), 0.15)
	assert.False(t, info.HasAudio)

	canvas := Canvas{Width: 32, Height: 32, FrameRate: 10}
	dec, err := OpenDecoder(context.Background(), path, DecodeOptions{
		FFmpegPath: bins.FFmpeg,
		Canvas:     canvas,
		Frames:     10,
	})
	require.NoError(t, err)
	defer dec.Close()

	first, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, canvas.Bounds(), first.Bounds())

	center := first.RGBAAt(16, 16)
	assert.Greater(t, int(center.R), 200)
	assert.Less(t, int(center.G), 60)

	// 64x48 scaled into 32x32 leaves black bars above and below
	top := first.RGBAAt(16, 0)
	assert.Less(t, int(top.R), 30)

	count := 1
	for {
		_, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 10, count)
	require.NoError(t, dec.Close())
}

func TestDecoderCloseBeforeDrained(t *testing.T) {
	bins := mediatest.RequireFFmpeg(t)
	path := mediatest.ColorClip(t, bins, t.TempDir(), "blue.mp4", mediatest.ClipOptions{
		Color: "blue", Width: 64, Height: 64, FrameRate: 25, Duration: 2 * time.Second,
	})

	dec, err := OpenDecoder(context.Background(), path, DecodeOptions{
		FFmpegPath: bins.FFmpeg,
		Canvas:     Canvas{Width: 64, Height: 64, FrameRate: 25},
	})
	require.NoError(t, err)

	_, err = dec.Next()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = dec.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestDecoderUnreadableFile(t *testing.T) {
	bins := mediatest.RequireFFmpeg(t)
	path := filepath.Join(t.TempDir(), "missing.mp4")

	dec, err := OpenDecoder(context.Background(), path, DecodeOptions{
		FFmpegPath: bins.FFmpeg,
		Canvas:     Canvas{Width: 16, Height: 16, FrameRate: 10},
	})
	require.NoError(t, err)
	defer dec.Close()

	_, err = dec.Next()
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindMediaOpen))
}
