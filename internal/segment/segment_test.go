package segment

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/stitch/internal/audio"
	"github.com/mgpai22/stitch/internal/errs"
	"github.com/mgpai22/stitch/internal/render"
	"github.com/mgpai22/stitch/internal/video"
)

type fakeVideoProber struct {
	infos map[string]*video.Info
	calls int
}

func (f *fakeVideoProber) Probe(_ context.Context, path string) (*video.Info, error) {
	f.calls++
	info, ok := f.infos[path]
	if !ok {
		return nil, errs.MediaOpen("probe video", path, os.ErrNotExist)
	}
	return info, nil
}

type fakeAudioProber struct {
	infos map[string]*audio.Info
}

func (f *fakeAudioProber) Probe(_ context.Context, path string) (*audio.Info, error) {
	info, ok := f.infos[path]
	if !ok {
		return nil, errs.MediaOpen("probe audio", path, os.ErrNotExist)
	}
	return info, nil
}

var testCanvas = video.Canvas{Width: 320, Height: 240, FrameRate: 10}

func newTestProcessor(videos map[string]*video.Info, audios map[string]*audio.Info, fit audio.FitPolicy) (*Processor, *fakeVideoProber) {
	vp := &fakeVideoProber{infos: videos}
	return NewProcessor(ProcessorOptions{
		Videos: vp,
		Audios: &fakeAudioProber{infos: audios},
		Fit:    fit,
	}), vp
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessUsesNativeAudioAndVideoDuration(t *testing.T) {
	p, _ := newTestProcessor(map[string]*video.Info{
		"a.mp4": {Path: "a.mp4", Duration: 5 * time.Second, Width: 320, Height: 240, FrameRate: 10, HasAudio: true},
	}, nil, "")

	seg, err := p.Process(context.Background(), 0, Source{VideoPath: "a.mp4"}, testCanvas)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, seg.Duration())
	assert.Equal(t, 50, seg.Frames())
	assert.Equal(t, audio.KindNative, seg.Audio().Kind)
	assert.Empty(t, seg.Overlays())
}

func TestProcessSilenceWhenVideoHasNoAudio(t *testing.T) {
	p, _ := newTestProcessor(map[string]*video.Info{
		"mute.mp4": {Path: "mute.mp4", Duration: 2 * time.Second},
	}, nil, "")

	seg, err := p.Process(context.Background(), 0, Source{VideoPath: "mute.mp4"}, testCanvas)
	require.NoError(t, err)
	assert.Equal(t, audio.KindSilence, seg.Audio().Kind)
}

func TestProcessReplacementAudioNeverRetimesSegment(t *testing.T) {
	videos := map[string]*video.Info{
		"a.mp4": {Path: "a.mp4", Duration: 5 * time.Second, HasAudio: true},
	}
	audios := map[string]*audio.Info{
		"short.mp3": {Path: "short.mp3", Duration: 2 * time.Second},
		"long.mp3":  {Path: "long.mp3", Duration: 9 * time.Second},
	}

	tests := []struct {
		name     string
		fit      audio.FitPolicy
		audio    string
		wantLoop bool
	}{
		{"pad short", audio.FitPad, "short.mp3", false},
		{"loop short", audio.FitLoop, "short.mp3", true},
		{"loop long", audio.FitLoop, "long.mp3", false},
		{"pad long", audio.FitPad, "long.mp3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProcessor(videos, audios, tt.fit)

			seg, err := p.Process(context.Background(), 0, Source{VideoPath: "a.mp4", AudioPath: tt.audio}, testCanvas)
			require.NoError(t, err)

			assert.Equal(t, 5*time.Second, seg.Duration())
			assert.Equal(t, audio.KindReplacement, seg.Audio().Kind)
			assert.Equal(t, tt.audio, seg.Audio().Path)
			assert.Equal(t, tt.wantLoop, seg.Audio().Loop)
		})
	}
}

func TestProcessMissingVideoIsMediaOpenError(t *testing.T) {
	p, _ := newTestProcessor(nil, nil, "")

	_, err := p.Process(context.Background(), 0, Source{VideoPath: "gone.mp4"}, testCanvas)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindMediaOpen))

	_, err = p.Process(context.Background(), 0, Source{}, testCanvas)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindMediaOpen))
}

func TestProcessMissingReplacementAudio(t *testing.T) {
	p, _ := newTestProcessor(map[string]*video.Info{
		"a.mp4": {Path: "a.mp4", Duration: time.Second},
	}, nil, "")

	_, err := p.Process(context.Background(), 0, Source{VideoPath: "a.mp4", AudioPath: "gone.mp3"}, testCanvas)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindMediaOpen))
}

func TestProcessRasterizesCuesInOrder(t *testing.T) {
	dir := t.TempDir()
	srt := writeFile(t, dir, "a.srt", `1
00:00:00,000 --> 00:00:03,000
first

2
00:00:02,000 --> 00:00:04,000
second, overlapping
`)
	p, _ := newTestProcessor(map[string]*video.Info{
		"a.mp4": {Path: "a.mp4", Duration: 5 * time.Second},
	}, nil, "")

	seg, err := p.Process(context.Background(), 1, Source{VideoPath: "a.mp4", SubtitlePath: srt}, testCanvas)
	require.NoError(t, err)

	overlays := seg.Overlays()
	require.Len(t, overlays, 2)
	assert.Equal(t, 1, overlays[0].Index)
	assert.Equal(t, 2*time.Second, overlays[1].Start)
	assert.True(t, overlays[0].Active(2500*time.Millisecond))
	assert.True(t, overlays[1].Active(2500*time.Millisecond))
	assert.Equal(t, 1, seg.Index())
}

func TestProcessBadSubtitlesAbort(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.srt", "1\n00:00:00,000 00:00:01,000\ntext\n")
	p, _ := newTestProcessor(map[string]*video.Info{
		"a.mp4": {Path: "a.mp4", Duration: time.Second},
	}, nil, "")

	_, err := p.Process(context.Background(), 0, Source{VideoPath: "a.mp4", SubtitlePath: bad}, testCanvas)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFormat))
	assert.ErrorIs(t, err, errs.ErrMissingSeparator)

	_, err = p.Process(context.Background(), 0, Source{VideoPath: "a.mp4", SubtitlePath: filepath.Join(dir, "none.srt")}, testCanvas)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindIO))
}

func TestProbeVideoIsRemembered(t *testing.T) {
	p, vp := newTestProcessor(map[string]*video.Info{
		"a.mp4": {Path: "a.mp4", Duration: time.Second},
	}, nil, "")

	_, err := p.ProbeVideo(context.Background(), Source{VideoPath: "a.mp4"})
	require.NoError(t, err)
	_, err = p.Process(context.Background(), 0, Source{VideoPath: "a.mp4"}, testCanvas)
	require.NoError(t, err)
	assert.Equal(t, 1, vp.calls)
}

// solidReader yields n frames of one color
type solidReader struct {
	canvas video.Canvas
	c      color.RGBA
	n      int
	closed bool
}

func (r *solidReader) Next() (*image.RGBA, error) {
	if r.n == 0 {
		return nil, io.EOF
	}
	r.n--
	frame := r.canvas.NewFrame()
	draw.Draw(frame, frame.Bounds(), image.NewUniform(r.c), image.Point{}, draw.Src)
	return frame, nil
}

func (r *solidReader) Close() error {
	r.closed = true
	return nil
}

func solidOverlay(c color.RGBA, rect image.Rectangle, start, end time.Duration) render.Overlay {
	img := image.NewRGBA(rect)
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
	return render.Overlay{Image: img, Bounds: rect, Start: start, End: end}
}

func TestOverlayReaderPaintsActiveCuesLaterOnTop(t *testing.T) {
	canvas := video.Canvas{Width: 20, Height: 20, FrameRate: 10}
	black := color.RGBA{A: 255}
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}

	base := &solidReader{canvas: canvas, c: black, n: 10}
	r := &overlayReader{
		base:   base,
		canvas: canvas,
		overlays: []render.Overlay{
			solidOverlay(red, image.Rect(0, 0, 10, 10), 200*time.Millisecond, 600*time.Millisecond),
			solidOverlay(green, image.Rect(5, 5, 15, 15), 400*time.Millisecond, 800*time.Millisecond),
		},
	}

	var frames []*image.RGBA
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
	require.Len(t, frames, 10)

	// frame 1 (0.1s): nothing active
	assert.Equal(t, black, frames[1].RGBAAt(7, 7))
	// frame 3 (0.3s): red only
	assert.Equal(t, red, frames[3].RGBAAt(7, 7))
	// frame 5 (0.5s): both, green painted last
	assert.Equal(t, green, frames[5].RGBAAt(7, 7))
	assert.Equal(t, red, frames[5].RGBAAt(2, 2))
	// frame 6 (0.6s): red window is half-open and has ended
	assert.Equal(t, black, frames[6].RGBAAt(2, 2))
	assert.Equal(t, green, frames[6].RGBAAt(7, 7))
	// outside every overlay the base frame is untouched
	assert.Equal(t, black, frames[5].RGBAAt(18, 18))

	require.NoError(t, r.Close())
	assert.True(t, base.closed)
}
