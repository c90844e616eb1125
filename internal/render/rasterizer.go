// Package render turns subtitle text into transparent frame-sized overlays.
//
// Every cue uses one fixed style: white text centered near the bottom of
// the frame on a semi-transparent black box.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/mgpai22/stitch/internal/logging"
	"github.com/mgpai22/stitch/internal/subtitle"
)

// layout knobs for the fixed subtitle style
type Options struct {
	FontSize       float64
	FontCandidates []string
	BottomMargin   int
	Padding        int
	BoxAlpha       uint8
	LineSpacing    int
}

func DefaultOptions() Options {
	return Options{
		FontSize:       40,
		FontCandidates: DefaultFontCandidates(),
		BottomMargin:   50,
		Padding:        10,
		BoxAlpha:       180,
		LineSpacing:    4,
	}
}

// Rasterizer draws cue text. Font faces are not safe for concurrent use,
// so drawing is serialized.
type Rasterizer struct {
	opts       Options
	mu         sync.Mutex
	face       font.Face
	fontSource string
}

func NewRasterizer(opts Options, logger *logging.Logger) *Rasterizer {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultOptions().FontSize
	}

	face, source := loadFace(opts.FontCandidates, opts.FontSize, logger)
	logger.Debugw("Subtitle font selected",
		"font", FontLabel(source),
		"size", opts.FontSize,
	)

	return &Rasterizer{
		opts:       opts,
		face:       face,
		fontSource: source,
	}
}

// FontSource names the font file (or built-in font) in use.
func (r *Rasterizer) FontSource() string {
	return r.fontSource
}

type textLine struct {
	text string
	dot  fixed.Point26_6
}

// placed text block: the box to fill and each line's pen position
type textLayout struct {
	box   image.Rectangle
	lines []textLine
}

// Rasterize renders text into a transparent width x height image.
func (r *Rasterizer) Rasterize(text string, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.layout(text, width, height); ok {
		r.paint(img, l)
	}
	return img
}

// Overlay renders a cue and tags it with the cue's [start, end) window.
// Only the painted rectangle is stored; the image keeps frame coordinates.
func (r *Rasterizer) Overlay(cue subtitle.Cue, width, height int) Overlay {
	r.mu.Lock()
	defer r.mu.Unlock()

	overlay := Overlay{
		Start: cue.Start,
		End:   cue.End,
		Index: cue.Index,
	}
	l, ok := r.layout(cue.Text, width, height)
	if !ok {
		overlay.Image = image.NewRGBA(image.Rectangle{})
		return overlay
	}
	overlay.Image = image.NewRGBA(l.box)
	overlay.Bounds = l.box
	r.paint(overlay.Image, l)
	return overlay
}

func (r *Rasterizer) layout(text string, width, height int) (textLayout, bool) {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r", ""))
	if strings.TrimSpace(text) == "" || width <= 0 || height <= 0 {
		return textLayout{}, false
	}

	rawLines := strings.Split(text, "\n")
	step := r.face.Metrics().Height + fixed.I(r.opts.LineSpacing)

	// ink bounds of each line relative to its own baseline at x=0
	bounds := make([]fixed.Rectangle26_6, len(rawLines))
	var block fixed.Rectangle26_6
	var blockWidth fixed.Int26_6
	for i, line := range rawLines {
		b, _ := font.BoundString(r.face, line)
		bounds[i] = b
		offset := fixed.Point26_6{Y: step * fixed.Int26_6(i)}
		shifted := fixed.Rectangle26_6{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
		if i == 0 {
			block = shifted
		} else {
			block = block.Union(shifted)
		}
		if w := b.Max.X - b.Min.X; w > blockWidth {
			blockWidth = w
		}
	}

	textW := blockWidth.Ceil()
	textH := (block.Max.Y - block.Min.Y).Ceil()
	x := (width - textW) / 2
	y := height - textH - r.opts.BottomMargin

	pad := r.opts.Padding
	box := image.Rect(x-pad, y-pad, x+textW+pad, y+textH+pad).
		Intersect(image.Rect(0, 0, width, height))
	if box.Empty() {
		return textLayout{}, false
	}

	// baseline of the first line so the block's ink top lands on y
	firstBaseline := fixed.I(y) - block.Min.Y
	lines := make([]textLine, len(rawLines))
	for i, line := range rawLines {
		b := bounds[i]
		lineW := b.Max.X - b.Min.X
		left := fixed.I(x) + (blockWidth-lineW)/2 - b.Min.X
		lines[i] = textLine{
			text: line,
			dot:  fixed.Point26_6{X: left, Y: firstBaseline + step*fixed.Int26_6(i)},
		}
	}
	return textLayout{box: box, lines: lines}, true
}

func (r *Rasterizer) paint(dst draw.Image, l textLayout) {
	backdrop := image.NewUniform(color.NRGBA{A: r.opts.BoxAlpha})
	draw.Draw(dst, l.box, backdrop, image.Point{}, draw.Src)

	drawer := font.Drawer{Dst: dst, Src: image.White, Face: r.face}
	for _, line := range l.lines {
		drawer.Dot = line.dot
		drawer.DrawString(line.text)
	}
}

// Overlay is a rasterized cue active during [Start, End) of its segment's
// local timeline. Image covers Bounds in frame coordinates.
type Overlay struct {
	Image  *image.RGBA
	Bounds image.Rectangle
	Start  time.Duration
	End    time.Duration
	Index  int
}

func (o Overlay) Active(t time.Duration) bool {
	return t >= o.Start && t < o.End && !o.Bounds.Empty()
}

// DrawOnto composites the overlay over dst with source-over blending.
func (o Overlay) DrawOnto(dst draw.Image) {
	if o.Bounds.Empty() {
		return
	}
	draw.Draw(dst, o.Bounds, o.Image, o.Bounds.Min, draw.Over)
}
