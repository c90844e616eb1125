package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFFmpeg(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeSubtitles()
	c.normalizeEncoding()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = os.TempDir()
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() error {
	var err error
	c.FFmpeg.FFmpegPath = strings.TrimSpace(c.FFmpeg.FFmpegPath)
	c.FFmpeg.FFprobePath = strings.TrimSpace(c.FFmpeg.FFprobePath)
	if c.FFmpeg.FFmpegPath == "" {
		c.FFmpeg.FFmpegPath = strings.TrimSpace(os.Getenv("STITCH_FFMPEG_PATH"))
	}
	if c.FFmpeg.FFprobePath == "" {
		c.FFmpeg.FFprobePath = strings.TrimSpace(os.Getenv("STITCH_FFPROBE_PATH"))
	}
	if strings.ContainsAny(c.FFmpeg.FFmpegPath, `/\`) {
		if c.FFmpeg.FFmpegPath, err = expandPath(c.FFmpeg.FFmpegPath); err != nil {
			return fmt.Errorf("ffmpeg.ffmpeg_path: %w", err)
		}
	}
	if strings.ContainsAny(c.FFmpeg.FFprobePath, `/\`) {
		if c.FFmpeg.FFprobePath, err = expandPath(c.FFmpeg.FFprobePath); err != nil {
			return fmt.Errorf("ffmpeg.ffprobe_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.AudioFit = strings.ToLower(strings.TrimSpace(c.Render.AudioFit))
	if c.Render.AudioFit == "" {
		c.Render.AudioFit = defaultAudioFit
	}
}

func (c *Config) normalizeSubtitles() {
	if c.Subtitles.FontSize == 0 {
		c.Subtitles.FontSize = defaultFontSize
	}
	candidates := make([]string, 0, len(c.Subtitles.FontCandidates))
	for _, candidate := range c.Subtitles.FontCandidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if strings.HasPrefix(candidate, "~") {
			if expanded, err := expandPath(candidate); err == nil {
				candidate = expanded
			}
		}
		candidates = append(candidates, candidate)
	}
	c.Subtitles.FontCandidates = candidates
}

func (c *Config) normalizeEncoding() {
	c.Encoding.VideoCodec = strings.TrimSpace(c.Encoding.VideoCodec)
	if c.Encoding.VideoCodec == "" {
		c.Encoding.VideoCodec = defaultVideoCodec
	}
	c.Encoding.AudioCodec = strings.TrimSpace(c.Encoding.AudioCodec)
	if c.Encoding.AudioCodec == "" {
		c.Encoding.AudioCodec = defaultAudioCodec
	}
	c.Encoding.PixelFormat = strings.TrimSpace(c.Encoding.PixelFormat)
	if c.Encoding.PixelFormat == "" {
		c.Encoding.PixelFormat = defaultPixelFormat
	}
	if c.Encoding.SampleRate == 0 {
		c.Encoding.SampleRate = defaultSampleRate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
