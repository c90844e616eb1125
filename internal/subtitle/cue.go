// Package subtitle parses time-coded subtitle tracks into ordered cue lists.
//
// Cues are returned in source order. Overlapping or out-of-order cues are
// kept as they are; layering is decided later at render time.
package subtitle

import (
	"time"
)

// single timed subtitle entry
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// reports whether the cue is showing at local time t, using [Start, End)
func (c Cue) Active(t time.Duration) bool {
	return t >= c.Start && t < c.End
}

func (c Cue) Duration() time.Duration {
	if c.End <= c.Start {
		return 0
	}
	return c.End - c.Start
}

// supported subtitle track formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// interface for anything that yields cues from raw track text
type Parser interface {
	Parse(text string) ([]Cue, error)
}

type ParserFunc func(text string) ([]Cue, error)

func (f ParserFunc) Parse(text string) ([]Cue, error) {
	return f(text)
}
