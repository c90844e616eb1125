package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// FFmpeg points at the ffmpeg/ffprobe executables. Empty values fall back to
// the environment, PATH and finally a bundled download.
type FFmpeg struct {
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
}

// Render controls the output canvas and transitions.
type Render struct {
	TransitionSeconds float64 `toml:"transition_seconds"`
	// FrameRate of the output; 0 uses the highest input frame rate.
	FrameRate float64 `toml:"frame_rate"`
	// Width and Height of the output; 0 uses the first segment's size.
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// AudioFit decides how replacement audio that does not match the
	// segment's video length is handled: "pad" or "loop".
	AudioFit string `toml:"audio_fit"`
}

// Subtitles controls the burned-in subtitle style.
type Subtitles struct {
	FontSize       float64  `toml:"font_size"`
	FontCandidates []string `toml:"font_candidates"`
	BottomMargin   int      `toml:"bottom_margin"`
	Padding        int      `toml:"padding"`
	BoxAlpha       int      `toml:"box_alpha"`
	LineSpacing    int      `toml:"line_spacing"`
}

// Encoding holds the codec settings for the final mux.
type Encoding struct {
	VideoCodec   string `toml:"video_codec"`
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
	Preset       string `toml:"preset"`
	PixelFormat  string `toml:"pixel_format"`
	SampleRate   int    `toml:"sample_rate"`
}

// Paths contains working, output and cache directories.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Server configures the HTTP API and remote asset downloads.
type Server struct {
	Bind                   string `toml:"bind"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
	DownloadRetries        int    `toml:"download_retries"`
	DownloadConcurrency    int    `toml:"download_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for stitch.
type Config struct {
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
	Render    Render    `toml:"render"`
	Subtitles Subtitles `toml:"subtitles"`
	Encoding  Encoding  `toml:"encoding"`
	Paths     Paths     `toml:"paths"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stitch/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error; defaults apply. The returned bool reports whether a file
// was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("stitch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// Transition returns the configured crossfade length.
func (c *Config) Transition() time.Duration {
	return time.Duration(c.Render.TransitionSeconds * float64(time.Second))
}

// DownloadTimeout returns the per-request timeout for remote assets.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Server.DownloadTimeoutSeconds) * time.Second
}

// EnsureDirectories creates the working, output and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
