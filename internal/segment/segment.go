// Package segment turns one (video, audio, subtitles) triple into an
// immutable Segment ready for the timeline.
package segment

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/mgpai22/stitch/internal/audio"
	"github.com/mgpai22/stitch/internal/render"
	"github.com/mgpai22/stitch/internal/video"
)

// Source names the files for one segment. Audio and subtitles are optional.
type Source struct {
	VideoPath    string
	AudioPath    string
	SubtitlePath string
}

func (s Source) Validate() error {
	if strings.TrimSpace(s.VideoPath) == "" {
		return fmt.Errorf("segment has no video")
	}
	return nil
}

// Segment is a processed source. It holds no open file handles; frames are
// decoded only while a reader returned by Open is live.
type Segment struct {
	index      int
	source     Source
	info       video.Info
	audio      audio.Source
	overlays   []render.Overlay
	canvas     video.Canvas
	frames     int
	ffmpegPath string
}

func (s *Segment) Index() int { return s.index }

func (s *Segment) Source() Source { return s.source }

// Info is the probed metadata of the segment's video.
func (s *Segment) Info() video.Info { return s.info }

// Duration is the length of the segment's own video track.
func (s *Segment) Duration() time.Duration { return s.info.Duration }

func (s *Segment) Audio() audio.Source { return s.audio }

// Frames is the number of canvas frames the segment occupies.
func (s *Segment) Frames() int { return s.frames }

// Overlays returns the rasterized cues in source order.
func (s *Segment) Overlays() []render.Overlay {
	return append([]render.Overlay(nil), s.overlays...)
}

// Open starts decoding the segment at canvas geometry with its overlays
// burned in.
func (s *Segment) Open(ctx context.Context) (video.FrameReader, error) {
	dec, err := video.OpenDecoder(ctx, s.info.Path, video.DecodeOptions{
		FFmpegPath: s.ffmpegPath,
		Canvas:     s.canvas,
		Frames:     s.frames,
	})
	if err != nil {
		return nil, err
	}
	return &overlayReader{
		base:     dec,
		canvas:   s.canvas,
		overlays: s.overlays,
	}, nil
}

// overlayReader paints every overlay active at the frame's local time onto
// the decoded frame, later cues on top.
type overlayReader struct {
	base     video.FrameReader
	canvas   video.Canvas
	overlays []render.Overlay
	n        int
}

func (r *overlayReader) Next() (*image.RGBA, error) {
	frame, err := r.base.Next()
	if err != nil {
		return nil, err
	}

	t := r.canvas.Timestamp(r.n)
	r.n++
	for _, ov := range r.overlays {
		if ov.Active(t) {
			ov.DrawOnto(frame)
		}
	}
	return frame, nil
}

func (r *overlayReader) Close() error {
	return r.base.Close()
}
