package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/stitch/internal/errs"
	ffmpegbin "github.com/mgpai22/stitch/internal/ffmpeg"
)

// Track places a segment's audio on the output timeline.
type Track struct {
	Source Source
	// Offset is where the segment starts on the output timeline.
	Offset time.Duration
	// Length is the segment's video duration; the audio is cut or padded
	// to exactly this long.
	Length  time.Duration
	FadeIn  time.Duration
	FadeOut time.Duration
}

type MixOptions struct {
	FFmpegPath string
	SampleRate int
	Codec      string
	Bitrate    string
}

func (o MixOptions) withDefaults() MixOptions {
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.Codec == "" {
		o.Codec = "aac"
	}
	return o
}

// MixStream builds the ffmpeg graph that renders tracks into one stereo
// file of exactly total length. Each track is normalized, cut or padded to
// its segment, faded with the same ramps as the video and delayed to its
// offset before all tracks are summed.
func MixStream(tracks []Track, total time.Duration, outPath string, opts MixOptions) (*ffmpeg.Stream, error) {
	if len(tracks) == 0 {
		return nil, errs.ErrEmptyTimeline
	}
	if total <= 0 {
		return nil, fmt.Errorf("mix length must be positive, got %v", total)
	}
	opts = opts.withDefaults()

	streams := make([]*ffmpeg.Stream, 0, len(tracks))
	for _, track := range tracks {
		streams = append(streams, trackStream(track, opts))
	}

	var mixed *ffmpeg.Stream
	if len(streams) == 1 {
		mixed = streams[0]
	} else {
		mixed = ffmpeg.Filter(streams, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
			"inputs":             len(streams),
			"duration":           "longest",
			"dropout_transition": 0,
			"normalize":          0,
		})
	}

	out := ffmpeg.KwArgs{
		"c:a": opts.Codec,
		"ar":  opts.SampleRate,
		"ac":  2,
	}
	if opts.Bitrate != "" {
		out["b:a"] = opts.Bitrate
	}

	stream := mixed.
		Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": seconds(total)}).
		Output(outPath, out).
		OverWriteOutput()
	if opts.FFmpegPath != "" {
		stream = stream.SetFfmpegPath(opts.FFmpegPath)
	}
	return stream, nil
}

func trackStream(track Track, opts MixOptions) *ffmpeg.Stream {
	var in *ffmpeg.Stream
	switch track.Source.Kind {
	case KindNative:
		in = ffmpeg.Input(track.Source.Path).Audio()
	case KindReplacement:
		kwargs := ffmpeg.KwArgs{}
		if track.Source.Loop {
			kwargs["stream_loop"] = -1
		}
		in = ffmpeg.Input(track.Source.Path, kwargs).Audio()
	default:
		src := fmt.Sprintf("anullsrc=r=%d:cl=stereo", opts.SampleRate)
		in = ffmpeg.Input(src, ffmpeg.KwArgs{
			"f": "lavfi",
			"t": seconds(track.Length),
		}).Audio()
	}

	s := in.
		Filter("aformat", ffmpeg.Args{}, ffmpeg.KwArgs{
			"sample_fmts":     "fltp",
			"sample_rates":    opts.SampleRate,
			"channel_layouts": "stereo",
		}).
		Filter("apad", ffmpeg.Args{}).
		Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": seconds(track.Length)}).
		Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})

	if track.FadeIn > 0 {
		s = s.Filter("afade", ffmpeg.Args{}, ffmpeg.KwArgs{
			"t":  "in",
			"st": 0,
			"d":  seconds(track.FadeIn),
		})
	}
	if track.FadeOut > 0 {
		start := track.Length - track.FadeOut
		if start < 0 {
			start = 0
		}
		s = s.Filter("afade", ffmpeg.Args{}, ffmpeg.KwArgs{
			"t":  "out",
			"st": seconds(start),
			"d":  seconds(track.FadeOut),
		})
	}
	if ms := track.Offset.Milliseconds(); ms > 0 {
		s = s.Filter("adelay", ffmpeg.Args{}, ffmpeg.KwArgs{
			"delays": strconv.FormatInt(ms, 10),
			"all":    1,
		})
	}
	return s
}

// Mix renders tracks into outPath. A failed mix removes its partial output.
func Mix(ctx context.Context, tracks []Track, total time.Duration, outPath string, opts MixOptions) error {
	stream, err := MixStream(tracks, total, outPath, opts)
	if err != nil {
		return errs.Encode("mix audio", outPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errs.IO("mix audio", outPath, err)
	}

	if err := ffmpegbin.Run(ctx, stream); err != nil {
		_ = os.Remove(outPath)
		return errs.Encode("mix audio", outPath, err)
	}
	return nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
