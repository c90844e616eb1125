package timeline

import (
	"context"
	"errors"
	"image"
	"io"
	"math"
)

// weights are fixed point with this many fractional bits
const weightShift = 10

// layer is a placement's reader state during Render
type layer struct {
	reader FrameReader
	held   *image.RGBA
}

// Render composites the timeline and hands every output frame to sink in
// order. Frames passed to sink are only valid until sink returns.
func (t *Timeline) Render(ctx context.Context, sink func(*image.RGBA) error) (err error) {
	layers := make([]layer, len(t.Placements))
	defer func() {
		for i := range layers {
			if layers[i].reader != nil {
				if closeErr := layers[i].reader.Close(); closeErr != nil && err == nil {
					err = closeErr
				}
				layers[i].reader = nil
			}
		}
	}()

	var (
		black  *image.RGBA
		out    *image.RGBA
		acc    []uint32
		active []int
	)

	for k := 0; k < t.TotalFrames; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		active = active[:0]
		for i, p := range t.Placements {
			if p.Covers(k) {
				active = append(active, i)
			}
		}

		frames := make([]*image.RGBA, len(active))
		for j, i := range active {
			frame, err := t.pull(ctx, &layers[i], t.Placements[i], k)
			if err != nil {
				return err
			}
			if frame == nil {
				if black == nil {
					black = opaqueBlack(t.Canvas.NewFrame())
				}
				frame = black
			}
			frames[j] = frame
		}

		var composed *image.RGBA
		if len(active) == 1 && t.Placements[active[0]].Opacity(k-t.Placements[active[0]].StartFrame) >= 1 {
			composed = frames[0]
		} else {
			if out == nil {
				out = t.Canvas.NewFrame()
				acc = make([]uint32, len(out.Pix))
			}
			t.blend(out, acc, active, frames, k)
			composed = out
		}

		// readers close right after their last frame
		for _, i := range active {
			if t.Placements[i].EndFrame() == k+1 && layers[i].reader != nil {
				reader := layers[i].reader
				layers[i] = layer{}
				if err := reader.Close(); err != nil {
					return err
				}
			}
		}

		if err := sink(composed); err != nil {
			return err
		}
	}
	return nil
}

// pull returns placement p's frame for output frame k, opening its reader
// on the first frame of its window. A reader that runs dry repeats its
// last frame; nil means it never produced one.
func (t *Timeline) pull(ctx context.Context, l *layer, p Placement, k int) (*image.RGBA, error) {
	if k == p.StartFrame {
		reader, err := p.Clip.Open(ctx)
		if err != nil {
			return nil, err
		}
		l.reader = reader
	}
	if l.reader == nil {
		return l.held, nil
	}

	frame, err := l.reader.Next()
	switch {
	case errors.Is(err, io.EOF):
		return l.held, nil
	case err != nil:
		return nil, err
	}
	l.held = frame
	return frame, nil
}

// blend writes the opacity-weighted sum of frames over black into out.
func (t *Timeline) blend(out *image.RGBA, acc []uint32, active []int, frames []*image.RGBA, k int) {
	clear(acc)
	for j, i := range active {
		p := t.Placements[i]
		w := uint32(math.Round(p.Opacity(k-p.StartFrame) * (1 << weightShift)))
		if w == 0 {
			continue
		}
		pix := frames[j].Pix
		for n := range acc {
			acc[n] += uint32(pix[n]) * w
		}
	}

	const half = 1 << (weightShift - 1)
	for n := range acc {
		if n%4 == 3 {
			out.Pix[n] = 0xff
			continue
		}
		v := (acc[n] + half) >> weightShift
		if v > 0xff {
			v = 0xff
		}
		out.Pix[n] = uint8(v)
	}
}

func opaqueBlack(img *image.RGBA) *image.RGBA {
	for n := 3; n < len(img.Pix); n += 4 {
		img.Pix[n] = 0xff
	}
	return img
}
