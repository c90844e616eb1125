package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/stitch/internal/config"
	"github.com/mgpai22/stitch/internal/logging"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Stitch video segments into one subtitled video",
	Long: `Stitch combines an ordered list of video segments into a single video.

Each segment may carry a replacement audio track and an SRT, VTT or ASS
subtitle file. Subtitles are burned into the frames, consecutive segments
are joined with a crossfade, and the result is encoded once.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["skipConfigLoad"] == "true" {
			logger = logging.NewLogger(verbose)
			return nil
		}

		loaded, path, exists, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Options{Format: cfg.Logging.Format, Level: level})
		if err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
		logger.Debugw("Configuration loaded", "path", path, "exists", exists)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Configuration file path (default ./stitch.toml or ~/.config/stitch/config.toml)")
}
