package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRender() error {
	if c.Render.TransitionSeconds < 0 {
		return errors.New("render.transition_seconds must be >= 0")
	}
	if c.Render.FrameRate < 0 {
		return errors.New("render.frame_rate must be >= 0")
	}
	if c.Render.Width < 0 || c.Render.Height < 0 {
		return errors.New("render.width and render.height must be >= 0")
	}
	if (c.Render.Width == 0) != (c.Render.Height == 0) {
		return errors.New("render.width and render.height must be set together")
	}
	if c.Render.Width%2 != 0 || c.Render.Height%2 != 0 {
		return errors.New("render.width and render.height must be even")
	}
	switch c.Render.AudioFit {
	case "pad", "loop":
	default:
		return fmt.Errorf("render.audio_fit %q is invalid: use pad or loop", c.Render.AudioFit)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.FontSize <= 0 {
		return errors.New("subtitles.font_size must be positive")
	}
	if c.Subtitles.BottomMargin < 0 || c.Subtitles.Padding < 0 || c.Subtitles.LineSpacing < 0 {
		return errors.New("subtitles.bottom_margin, padding and line_spacing must be >= 0")
	}
	if c.Subtitles.BoxAlpha < 0 || c.Subtitles.BoxAlpha > 255 {
		return errors.New("subtitles.box_alpha must be between 0 and 255")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.SampleRate <= 0 {
		return errors.New("encoding.sample_rate must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Bind != "" {
		if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
			return fmt.Errorf("server.bind %q is invalid: %w", c.Server.Bind, err)
		}
	}
	if c.Server.DownloadTimeoutSeconds < 0 {
		return errors.New("server.download_timeout_seconds must be >= 0")
	}
	if c.Server.DownloadRetries < 0 {
		return errors.New("server.download_retries must be >= 0")
	}
	if c.Server.DownloadConcurrency < 0 {
		return errors.New("server.download_concurrency must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is invalid: use auto, console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is invalid", c.Logging.Level)
	}
	return nil
}
