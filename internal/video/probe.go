// Package video probes source clips and decodes them into RGBA frames
// normalized to the output canvas.
package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/stitch/internal/errs"
	ffmpegbin "github.com/mgpai22/stitch/internal/ffmpeg"
)

// fallback when a container reports no usable frame rate
const defaultFrameRate = 25.0

// video file information
type Info struct {
	Path       string
	FormatName string
	Size       int64
	Duration   time.Duration
	Width      int
	Height     int
	FrameRate  float64
	Codec      string
	HasAudio   bool
	AudioCodec string
	SampleRate int
	Channels   int
}

type Prober struct {
	ffprobePath string
}

func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

// Probe reads stream metadata for a video file. Failures are MediaOpen
// errors.
func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errs.MediaOpen("probe video", path, err)
	}

	probe, err := ffmpegbin.Probe(ctx, p.ffprobePath, path)
	if err != nil {
		return nil, errs.MediaOpen("probe video", path, err)
	}

	info, err := infoFromProbe(path, probe)
	if err != nil {
		return nil, errs.MediaOpen("probe video", path, err)
	}
	return info, nil
}

func infoFromProbe(path string, probe *ffmpegbin.ProbeResult) (*Info, error) {
	stream, ok := probe.FirstStream("video")
	if !ok {
		return nil, errs.ErrNoVideoStream
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("video stream has no dimensions")
	}

	// the container can outlast the video track when audio runs longer
	duration, ok := ffmpegbin.ParseSeconds(stream.Duration)
	if !ok || duration <= 0 {
		duration = probe.Duration()
	}
	if duration <= 0 {
		return nil, fmt.Errorf("video duration is unknown")
	}

	rate := ffmpegbin.ParseRate(stream.AvgFrameRate)
	if rate == 0 {
		rate = ffmpegbin.ParseRate(stream.RFrameRate)
	}
	if rate == 0 {
		rate = defaultFrameRate
	}

	info := &Info{
		Path:       path,
		FormatName: probe.Format.FormatName,
		Duration:   duration,
		Width:      stream.Width,
		Height:     stream.Height,
		FrameRate:  rate,
		Codec:      stream.CodecName,
	}
	if size, err := strconv.ParseInt(probe.Format.Size, 10, 64); err == nil {
		info.Size = size
	}
	if a, ok := probe.FirstStream("audio"); ok {
		info.HasAudio = true
		info.AudioCodec = a.CodecName
		info.Channels = a.Channels
		if sr, err := strconv.Atoi(a.SampleRate); err == nil {
			info.SampleRate = sr
		}
	}
	return info, nil
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	videoExts := map[string]bool{
		".mp4":  true,
		".mkv":  true,
		".avi":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".webm": true,
		".m4v":  true,
		".mpeg": true,
		".mpg":  true,
		".3gp":  true,
	}
	return videoExts[ext]
}
