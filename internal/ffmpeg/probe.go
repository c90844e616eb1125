package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// JSON output from ffprobe -show_format -show_streams
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ProbeStream struct {
	Index        int    `json:"index"`
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Duration     string `json:"duration"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

// Probe runs ffprobe against path.
func Probe(ctx context.Context, ffprobePath, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffprobe failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseProbe(out.Bytes())
}

func ParseProbe(data []byte) (*ProbeResult, error) {
	var probe ProbeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &probe, nil
}

// FirstStream returns the first stream of the given codec type
// ("video", "audio", ...).
func (r *ProbeResult) FirstStream(codecType string) (ProbeStream, bool) {
	for _, s := range r.Streams {
		if s.CodecType == codecType {
			return s, true
		}
	}
	return ProbeStream{}, false
}

// Duration prefers the container duration and falls back to the longest
// stream.
func (r *ProbeResult) Duration() time.Duration {
	if d, ok := ParseSeconds(r.Format.Duration); ok {
		return d
	}
	var longest time.Duration
	for _, s := range r.Streams {
		if d, ok := ParseSeconds(s.Duration); ok && d > longest {
			longest = d
		}
	}
	return longest
}

// ParseSeconds converts ffprobe's decimal seconds ("12.345000").
func ParseSeconds(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// ParseRate converts a rational rate like "30000/1001" or "25".
// Zero means unknown.
func ParseRate(value string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(value), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}
