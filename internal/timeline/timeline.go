// Package timeline places clips on one output timeline, overlapping
// neighbours by the transition length, and composites the crossfades frame
// by frame.
package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mgpai22/stitch/internal/audio"
	"github.com/mgpai22/stitch/internal/errs"
	"github.com/mgpai22/stitch/internal/video"
)

type FrameReader = video.FrameReader

// Clip is anything the timeline can place: a processed segment in
// production, in-memory frames in tests.
type Clip interface {
	Duration() time.Duration
	Audio() audio.Source
	Open(ctx context.Context) (FrameReader, error)
}

// Placement is one clip's window on the output timeline, in frames.
type Placement struct {
	Index      int
	Clip       Clip
	StartFrame int
	Frames     int
	FadeIn     bool
	FadeOut    bool

	// fades span this many frames, the same count neighbours overlap by
	fadeFrames int
}

// EndFrame is one past the placement's last frame.
func (p Placement) EndFrame() int {
	return p.StartFrame + p.Frames
}

func (p Placement) Covers(frame int) bool {
	return frame >= p.StartFrame && frame < p.EndFrame()
}

// Opacity at local frame index local: the product of the fade-in and
// fade-out ramps, each clamped to [0, 1]. Ramps are measured in frames so
// that across a full overlap the outgoing and incoming values sum to one.
func (p Placement) Opacity(local int) float64 {
	if p.fadeFrames <= 0 {
		return 1
	}
	span := float64(p.fadeFrames)

	opacity := 1.0
	if p.FadeIn {
		opacity *= clamp01(float64(local) / span)
	}
	if p.FadeOut {
		opacity *= clamp01(float64(p.Frames-local) / span)
	}
	return opacity
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

type Timeline struct {
	Canvas           video.Canvas
	Transition       time.Duration
	TransitionFrames int
	Placements       []Placement
	TotalFrames      int
}

// Build lays clips end to end, each starting TransitionFrames before the
// previous one ends. An overlap never exceeds either neighbour's length.
func Build(clips []Clip, transition time.Duration, canvas video.Canvas) (*Timeline, error) {
	if len(clips) == 0 {
		return nil, errs.ErrEmptyTimeline
	}
	if transition < 0 {
		return nil, fmt.Errorf("transition must not be negative, got %v", transition)
	}
	if err := canvas.Validate(); err != nil {
		return nil, err
	}

	tl := &Timeline{
		Canvas:           canvas,
		Transition:       transition,
		TransitionFrames: canvas.Frames(transition),
		Placements:       make([]Placement, len(clips)),
	}
	fade := transition > 0 && tl.TransitionFrames > 0
	last := len(clips) - 1

	start := 0
	for i, clip := range clips {
		frames := canvas.Frames(clip.Duration())
		if frames < 1 {
			return nil, fmt.Errorf("clip %d is shorter than one frame (%v)", i, clip.Duration())
		}

		if i > 0 {
			prev := tl.Placements[i-1]
			overlap := min(tl.TransitionFrames, prev.Frames, frames)
			start = prev.EndFrame() - overlap
		}

		tl.Placements[i] = Placement{
			Index:      i,
			Clip:       clip,
			StartFrame: start,
			Frames:     frames,
			FadeIn:     fade && i > 0,
			FadeOut:    fade && i < last,
			fadeFrames: tl.TransitionFrames,
		}
		if end := tl.Placements[i].EndFrame(); end > tl.TotalFrames {
			tl.TotalFrames = end
		}
	}
	return tl, nil
}

// Duration of the composed output.
func (t *Timeline) Duration() time.Duration {
	return t.Canvas.Timestamp(t.TotalFrames)
}

// FadeDuration is the crossfade length actually rendered: the transition
// rounded to whole frames.
func (t *Timeline) FadeDuration() time.Duration {
	return t.Canvas.Timestamp(t.TransitionFrames)
}

// StartOf returns when clip i begins on the output timeline.
func (t *Timeline) StartOf(i int) time.Duration {
	return t.Canvas.Timestamp(t.Placements[i].StartFrame)
}

// AudioTracks places every clip's audio with the same offsets and fades
// as its video.
func (t *Timeline) AudioTracks() []audio.Track {
	tracks := make([]audio.Track, 0, len(t.Placements))
	for _, p := range t.Placements {
		track := audio.Track{
			Source: p.Clip.Audio(),
			Offset: t.Canvas.Timestamp(p.StartFrame),
			Length: t.Canvas.Timestamp(p.Frames),
		}
		if p.FadeIn {
			track.FadeIn = t.FadeDuration()
		}
		if p.FadeOut {
			track.FadeOut = t.FadeDuration()
		}
		tracks = append(tracks, track)
	}
	return tracks
}
