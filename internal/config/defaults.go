package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/stitch/internal/render"
)

const (
	defaultTransitionSeconds      = 0.5
	defaultAudioFit               = "pad"
	defaultFontSize               = 40
	defaultBottomMargin           = 50
	defaultPadding                = 10
	defaultBoxAlpha               = 180
	defaultLineSpacing            = 4
	defaultVideoCodec             = "libx264"
	defaultAudioCodec             = "aac"
	defaultAudioBitrate           = "192k"
	defaultPreset                 = "medium"
	defaultPixelFormat            = "yuv420p"
	defaultSampleRate             = 44100
	defaultOutputDir              = "output"
	defaultBind                   = "127.0.0.1:5000"
	defaultDownloadTimeoutSeconds = 300
	defaultDownloadRetries        = 2
	defaultDownloadConcurrency    = 4
	defaultLogFormat              = "auto"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Render: Render{
			TransitionSeconds: defaultTransitionSeconds,
			AudioFit:          defaultAudioFit,
		},
		Subtitles: Subtitles{
			FontSize:       defaultFontSize,
			FontCandidates: render.DefaultFontCandidates(),
			BottomMargin:   defaultBottomMargin,
			Padding:        defaultPadding,
			BoxAlpha:       defaultBoxAlpha,
			LineSpacing:    defaultLineSpacing,
		},
		Encoding: Encoding{
			VideoCodec:   defaultVideoCodec,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
			Preset:       defaultPreset,
			PixelFormat:  defaultPixelFormat,
			SampleRate:   defaultSampleRate,
		},
		Paths: Paths{
			WorkDir:   os.TempDir(),
			OutputDir: defaultOutputDir,
			CacheDir:  defaultCacheDir(),
		},
		Server: Server{
			Bind:                   defaultBind,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
			DownloadRetries:        defaultDownloadRetries,
			DownloadConcurrency:    defaultDownloadConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "stitch", "assets")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/stitch/assets"
	}
	return filepath.Join(home, ".cache", "stitch", "assets")
}
