package render

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/stitch/internal/subtitle"
)

func newTestRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	return NewRasterizer(DefaultOptions(), nil)
}

func TestNewRasterizerFallsBackToBuiltinFont(t *testing.T) {
	opts := DefaultOptions()
	opts.FontCandidates = []string{filepath.Join(t.TempDir(), "missing.ttf")}

	r := NewRasterizer(opts, nil)
	assert.Equal(t, builtinScalable, r.FontSource())
}

func TestRasterizeProducesFrameSizedTransparentImage(t *testing.T) {
	r := newTestRasterizer(t)

	img := r.Rasterize("Hello, world!", 640, 360)
	require.Equal(t, image.Rect(0, 0, 640, 360), img.Bounds())

	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(639, 0))
}

func TestOverlayBoxSitsAboveBottomMarginAndIsCentered(t *testing.T) {
	r := newTestRasterizer(t)
	opts := DefaultOptions()

	ov := r.Overlay(subtitle.Cue{Start: time.Second, End: 2 * time.Second, Text: "Hello"}, 640, 360)
	require.False(t, ov.Bounds.Empty())

	assert.Equal(t, 360-opts.BottomMargin+opts.Padding, ov.Bounds.Max.Y)
	assert.InDelta(t, 640, ov.Bounds.Min.X+ov.Bounds.Max.X, 1)

	corner := ov.Image.RGBAAt(ov.Bounds.Min.X, ov.Bounds.Max.Y-1)
	assert.Equal(t, color.RGBA{A: opts.BoxAlpha}, corner)

	var bright bool
	for y := ov.Bounds.Min.Y; y < ov.Bounds.Max.Y && !bright; y++ {
		for x := ov.Bounds.Min.X; x < ov.Bounds.Max.X; x++ {
			if ov.Image.RGBAAt(x, y).R > 200 {
				bright = true
				break
			}
		}
	}
	assert.True(t, bright, "expected white text pixels inside the box")
}

func TestOverlayMatchesFullFrameRaster(t *testing.T) {
	r := newTestRasterizer(t)

	full := r.Rasterize("same text", 320, 240)
	ov := r.Overlay(subtitle.Cue{End: time.Second, Text: "same text"}, 320, 240)
	require.False(t, ov.Bounds.Empty())

	for y := ov.Bounds.Min.Y; y < ov.Bounds.Max.Y; y++ {
		for x := ov.Bounds.Min.X; x < ov.Bounds.Max.X; x++ {
			require.Equal(t, full.RGBAAt(x, y), ov.Image.RGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestMultilineTextGrowsBoxUpward(t *testing.T) {
	r := newTestRasterizer(t)

	one := r.Overlay(subtitle.Cue{End: time.Second, Text: "line"}, 640, 360)
	two := r.Overlay(subtitle.Cue{End: time.Second, Text: "line\nline"}, 640, 360)

	assert.Equal(t, one.Bounds.Max.Y, two.Bounds.Max.Y)
	assert.Less(t, two.Bounds.Min.Y, one.Bounds.Min.Y)
}

func TestEmptyTextIsFullyTransparent(t *testing.T) {
	r := newTestRasterizer(t)

	img := r.Rasterize("  \n ", 64, 64)
	for _, px := range img.Pix {
		require.Zero(t, px)
	}

	ov := r.Overlay(subtitle.Cue{End: time.Second, Text: ""}, 64, 64)
	assert.True(t, ov.Bounds.Empty())
	assert.False(t, ov.Active(0))
}

func TestNonLatinTextRenders(t *testing.T) {
	r := newTestRasterizer(t)

	ov := r.Overlay(subtitle.Cue{End: time.Second, Text: "你好，世界"}, 640, 360)
	assert.False(t, ov.Bounds.Empty())
}

func TestOverlayActiveIsHalfOpen(t *testing.T) {
	ov := Overlay{Bounds: image.Rect(0, 0, 1, 1), Start: time.Second, End: 2 * time.Second}

	assert.False(t, ov.Active(999*time.Millisecond))
	assert.True(t, ov.Active(time.Second))
	assert.False(t, ov.Active(2*time.Second))
}

func TestDrawOntoBlendsOnlyInsideBounds(t *testing.T) {
	r := newTestRasterizer(t)
	ov := r.Overlay(subtitle.Cue{End: time.Second, Text: "blend"}, 320, 240)
	require.False(t, ov.Bounds.Empty())

	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	red := color.RGBA{R: 255, A: 255}
	draw.Draw(frame, frame.Bounds(), image.NewUniform(red), image.Point{}, draw.Src)

	ov.DrawOnto(frame)

	assert.Equal(t, red, frame.RGBAAt(0, 0))

	// padding corner: red under a 180/255 black box
	blended := frame.RGBAAt(ov.Bounds.Min.X, ov.Bounds.Max.Y-1)
	assert.InDelta(t, 75, int(blended.R), 1)
	assert.Equal(t, uint8(255), blended.A)
}
