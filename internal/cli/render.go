package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mgpai22/stitch/internal/assets"
	"github.com/mgpai22/stitch/internal/config"
	"github.com/mgpai22/stitch/internal/manifest"
	"github.com/mgpai22/stitch/internal/synth"
)

const defaultOutputName = "final_video.mp4"

var renderCmd = &cobra.Command{
	Use:   "render [manifest]",
	Short: "Render segments into one video",
	Long: `Render the segments listed in a YAML/JSON manifest, or given with
repeated --segment flags, into a single video.

A --segment value is either a bare video path or a comma separated list of
video=, audio= and subtitle= entries. Paths may be local files or http(s)
URLs; remote files are downloaded into the cache directory first.

Examples:
  stitch render job.yaml
  stitch render --segment intro.mp4 --segment video=talk.mp4,subtitle=talk.srt -o out.mp4
  stitch render job.yaml --transition 0`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().
		StringArrayP("segment", "s", nil, "Segment as video=PATH[,audio=PATH][,subtitle=PATH] (repeatable)")
	renderCmd.Flags().
		StringP("output", "o", "", "Output file (default <output_dir>/final_video.mp4)")
	renderCmd.Flags().
		Float64P("transition", "t", 0, "Crossfade length in seconds (0 for hard cuts)")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := &manifest.Manifest{}
	if len(args) == 1 {
		loaded, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		job = loaded
	}

	next := 0
	for _, seg := range job.Segments {
		next = max(next, seg.Order+1)
	}
	flagSegments, _ := cmd.Flags().GetStringArray("segment")
	for i, value := range flagSegments {
		seg, err := parseSegmentFlag(value)
		if err != nil {
			return fmt.Errorf("--segment %q: %w", value, err)
		}
		seg.Order = next + i
		job.Segments = append(job.Segments, seg)
	}
	if len(job.Segments) == 0 {
		return fmt.Errorf("no segments: pass a manifest or at least one --segment")
	}
	if err := job.Validate(); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = job.Output
	}
	if output == "" {
		output = filepath.Join(cfg.Paths.OutputDir, defaultOutputName)
	}

	transition := job.TransitionDuration()
	if cmd.Flags().Changed("transition") {
		seconds, _ := cmd.Flags().GetFloat64("transition")
		if seconds < 0 {
			return fmt.Errorf("--transition must not be negative")
		}
		d := time.Duration(seconds * float64(time.Second))
		transition = &d
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	sources, err := newFetcher(cfg, false).FetchSegments(ctx, job.Segments)
	if err != nil {
		return err
	}

	synthesizer, err := synth.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := synthesizer.Synthesize(ctx, synth.Request{
		Segments:   sources,
		OutputPath: output,
		Transition: transition,
	})
	if err != nil {
		logger.Errorw("Render failed", "error", err)
		return err
	}

	size := "unknown size"
	if fi, err := os.Stat(out); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	logger.Infow("Render complete", "output", out, "size", size, "elapsed", time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// parseSegmentFlag accepts "clip.mp4" or "video=clip.mp4,audio=a.mp3,subtitle=s.srt".
// A bare http(s) URL is a video even when its query has "=". Inside a URL
// value, a comma not followed by a known key stays part of the URL.
func parseSegmentFlag(value string) (manifest.Segment, error) {
	var seg manifest.Segment
	value = strings.TrimSpace(value)
	if value == "" {
		return seg, fmt.Errorf("empty segment")
	}
	if manifest.IsRemote(value) || !strings.Contains(value, "=") {
		seg.Video = value
		return seg, nil
	}

	var fields []*string
	for _, part := range strings.Split(value, ",") {
		key, val, ok := strings.Cut(part, "=")
		var dest *string
		if ok {
			dest = segmentField(&seg, key)
		}
		if dest == nil {
			if n := len(fields); n > 0 && manifest.IsRemote(*fields[n-1]) {
				*fields[n-1] += "," + part
				continue
			}
			if !ok {
				return seg, fmt.Errorf("expected key=value, got %q", part)
			}
			return seg, fmt.Errorf("unknown key %q (use video, audio or subtitle)", key)
		}
		*dest = strings.TrimSpace(val)
		fields = append(fields, dest)
	}
	if seg.Video == "" {
		return seg, fmt.Errorf("video is required")
	}
	return seg, nil
}

func segmentField(seg *manifest.Segment, key string) *string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "video":
		return &seg.Video
	case "audio":
		return &seg.Audio
	case "subtitle", "subtitles", "srt":
		return &seg.Subtitle
	}
	return nil
}

func newFetcher(c *config.Config, remoteOnly bool) *assets.Fetcher {
	return assets.NewFetcher(assets.Options{
		CacheDir:    c.Paths.CacheDir,
		RemoteOnly:  remoteOnly,
		Timeout:     c.DownloadTimeout(),
		Retries:     c.Server.DownloadRetries,
		Concurrency: c.Server.DownloadConcurrency,
		Logger:      logger,
	})
}
