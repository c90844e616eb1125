// Package audio describes per-segment soundtracks and mixes them into a
// single continuous track that follows the video crossfades.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/stitch/internal/errs"
	ffmpegbin "github.com/mgpai22/stitch/internal/ffmpeg"
)

var ErrNoAudioStream = errors.New("no audio stream")

// Kind says where a segment's sound comes from.
type Kind int

const (
	// KindNative uses the audio track of the segment's own video file.
	KindNative Kind = iota
	// KindReplacement uses a separate audio file.
	KindReplacement
	// KindSilence fills the segment with silence.
	KindSilence
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindReplacement:
		return "replacement"
	case KindSilence:
		return "silence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Source is the audio assigned to one segment.
type Source struct {
	Kind Kind
	Path string
	// Duration of the source material itself; zero for silence.
	Duration time.Duration
	// Loop repeats the source until the segment ends.
	Loop bool
}

func Native(videoPath string, d time.Duration) Source {
	return Source{Kind: KindNative, Path: videoPath, Duration: d}
}

func Replacement(path string, d time.Duration) Source {
	return Source{Kind: KindReplacement, Path: path, Duration: d}
}

func Silence() Source {
	return Source{Kind: KindSilence}
}

// FitPolicy decides how replacement audio of a different length than the
// segment's video is fitted. Longer audio is always cut at the video's end.
type FitPolicy string

const (
	// FitPad pads shorter audio with silence.
	FitPad FitPolicy = "pad"
	// FitLoop repeats shorter audio until the video ends.
	FitLoop FitPolicy = "loop"
)

func ParseFitPolicy(value string) (FitPolicy, error) {
	switch FitPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", FitPad:
		return FitPad, nil
	case FitLoop:
		return FitLoop, nil
	default:
		return "", fmt.Errorf("unknown audio fit policy %q (want pad or loop)", value)
	}
}

// audio file information
type Info struct {
	Path       string
	Duration   time.Duration
	Codec      string
	SampleRate int
	Channels   int
}

type Prober struct {
	ffprobePath string
}

func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	return Probe(ctx, p.ffprobePath, path)
}

// Fit applies policy for a segment of length want. Only replacement audio
// shorter than the segment is ever looped.
func (s Source) Fit(policy FitPolicy, want time.Duration) Source {
	s.Loop = s.Kind == KindReplacement && policy == FitLoop && s.Duration > 0 && s.Duration < want
	return s
}

// Probe reads the first audio stream of path. Files without audio are
// MediaOpen errors wrapping ErrNoAudioStream.
func Probe(ctx context.Context, ffprobePath, path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.MediaOpen("probe audio", path, err)
	}

	probe, err := ffmpegbin.Probe(ctx, ffprobePath, path)
	if err != nil {
		return nil, errs.MediaOpen("probe audio", path, err)
	}

	stream, ok := probe.FirstStream("audio")
	if !ok {
		return nil, errs.MediaOpen("probe audio", path, ErrNoAudioStream)
	}

	info := &Info{
		Path:     path,
		Duration: probe.Duration(),
		Codec:    stream.CodecName,
		Channels: stream.Channels,
	}
	if d, ok := ffmpegbin.ParseSeconds(stream.Duration); ok {
		info.Duration = d
	}
	if sr, err := strconv.Atoi(stream.SampleRate); err == nil {
		info.SampleRate = sr
	}
	return info, nil
}

// checks if the file is an audio file based on extension
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	audioExts := map[string]bool{
		".mp3":  true,
		".wav":  true,
		".aac":  true,
		".flac": true,
		".ogg":  true,
		".m4a":  true,
		".wma":  true,
		".aiff": true,
		".opus": true,
	}
	return audioExts[ext]
}
