package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mgpai22/stitch/internal/ffmpeg"
	"github.com/mgpai22/stitch/internal/video"
)

var probeCmd = &cobra.Command{
	Use:   "probe <video>...",
	Short: "Show stream details for video files",
	Long: `Probe one or more videos and print their duration, geometry and
streams. The footer shows the total duration and the canvas a render of these files would use.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	bins, err := ffmpeg.Resolve(ffmpeg.BinaryPaths{
		FFmpeg:  cfg.FFmpeg.FFmpegPath,
		FFprobe: cfg.FFmpeg.FFprobePath,
	})
	if err != nil {
		return err
	}

	prober := video.NewProber(bins.FFprobe)
	ctx := context.Background()

	infos := make([]*video.Info, 0, len(args))
	for _, path := range args {
		info, err := prober.Probe(ctx, path)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}

	canvas, err := video.ChooseCanvas(infos, video.Canvas{
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		FrameRate: cfg.Render.FrameRate,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), clipTable(infos, canvas))
	return nil
}

func probeRows(infos []*video.Info) [][]string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		audio := "none"
		if info.HasAudio {
			audio = fmt.Sprintf("%s %dHz %dch", info.AudioCodec, info.SampleRate, info.Channels)
		}
		rows = append(rows, []string{
			filepath.Base(info.Path),
			formatDuration(info.Duration),
			fmt.Sprintf("%dx%d", info.Width, info.Height),
			strconv.FormatFloat(info.FrameRate, 'f', -1, 64),
			info.Codec,
			audio,
			humanize.Bytes(uint64(info.Size)),
		})
	}
	return rows
}

func formatDuration(d time.Duration) string {
	total := d.Round(time.Millisecond)
	h := int(total / time.Hour)
	m := int(total%time.Hour) / int(time.Minute)
	s := float64(total%time.Minute) / float64(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%06.3f", h, m, s)
	}
	return fmt.Sprintf("%02d:%06.3f", m, s)
}
