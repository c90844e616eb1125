package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/stitch/internal/errs"
	ffmpegbin "github.com/mgpai22/stitch/internal/ffmpeg"
)

// FrameReader yields frames in presentation order. Next returns io.EOF
// once the stream is exhausted.
type FrameReader interface {
	Next() (*image.RGBA, error)
	Close() error
}

type DecodeOptions struct {
	FFmpegPath string
	Canvas     Canvas
	// Frames caps how many frames are decoded; 0 decodes everything.
	Frames int
}

// Decoder streams a clip as raw RGBA frames from an ffmpeg child process,
// converted to the canvas frame rate and letterboxed to the canvas size.
// Only one frame is held in memory at a time.
type Decoder struct {
	path      string
	canvas    Canvas
	remaining int
	pipe      *io.PipeReader
	cancel    context.CancelFunc
	done      chan error
	closeOnce sync.Once
}

var _ FrameReader = (*Decoder)(nil)

func OpenDecoder(ctx context.Context, path string, opts DecodeOptions) (*Decoder, error) {
	if err := opts.Canvas.Validate(); err != nil {
		return nil, errs.MediaOpen("decode video", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	stream := decodeStream(path, opts).WithOutput(pw)
	if opts.FFmpegPath != "" {
		stream = stream.SetFfmpegPath(opts.FFmpegPath)
	}

	d := &Decoder{
		path:      path,
		canvas:    opts.Canvas,
		remaining: opts.Frames,
		pipe:      pr,
		cancel:    cancel,
		done:      make(chan error, 1),
	}
	if d.remaining <= 0 {
		d.remaining = -1
	}

	go func() {
		err := ffmpegbin.Run(ctx, stream)
		_ = pw.CloseWithError(err)
		d.done <- err
	}()

	return d, nil
}

func decodeStream(path string, opts DecodeOptions) *ffmpeg.Stream {
	c := opts.Canvas
	out := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"an":      "",
		"sn":      "",
	}
	if opts.Frames > 0 {
		out["frames:v"] = opts.Frames
	}

	return ffmpeg.Input(path).
		Filter("fps", ffmpeg.Args{c.Rate()}).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d", c.Width, c.Height)},
			ffmpeg.KwArgs{"force_original_aspect_ratio": "decrease"}).
		Filter("pad", ffmpeg.Args{fmt.Sprintf("%d:%d:(ow-iw)/2:(oh-ih)/2", c.Width, c.Height)}).
		Filter("setsar", ffmpeg.Args{"1"}).
		Output("pipe:", out)
}

// Next decodes one frame. The returned image is owned by the caller.
func (d *Decoder) Next() (*image.RGBA, error) {
	if d.remaining == 0 {
		return nil, io.EOF
	}

	frame := d.canvas.NewFrame()
	if _, err := io.ReadFull(d.pipe, frame.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			d.remaining = 0
			return nil, io.EOF
		}
		return nil, errs.MediaOpen("decode video", d.path, err)
	}

	if d.remaining > 0 {
		d.remaining--
	}
	return frame, nil
}

// Close stops the ffmpeg process and waits for it to exit. Closing before
// the stream is drained is not an error.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		_ = d.pipe.Close()
		d.cancel()
		<-d.done
	})
	return nil
}
