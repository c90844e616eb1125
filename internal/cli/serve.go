package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/stitch/internal/api"
	"github.com/mgpai22/stitch/internal/synth"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the synthesis HTTP API",
	Long: `Start an HTTP server exposing:

  POST /api/synthesize           render segments given by URL
  GET  /api/download/{filename}  fetch a rendered file
  GET  /api/health               liveness check`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("bind", "b", "", "Listen address (overrides server.bind)")
}

func runServe(cmd *cobra.Command, args []string) error {
	bind, _ := cmd.Flags().GetString("bind")
	if bind == "" {
		bind = cfg.Server.Bind
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	synthesizer, err := synth.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(api.ServerConfig{
		Bind:        bind,
		OutputDir:   cfg.Paths.OutputDir,
		Synthesizer: synthesizer,
		Fetcher:     newFetcher(cfg, true),
		Logger:      logger,
		StartTime:   time.Now(),
		Version:     Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Infow("Received signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
