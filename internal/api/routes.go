package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mgpai22/stitch/internal/assets"
	"github.com/mgpai22/stitch/internal/errs"
	"github.com/mgpai22/stitch/internal/logging"
	"github.com/mgpai22/stitch/internal/manifest"
	"github.com/mgpai22/stitch/internal/segment"
	"github.com/mgpai22/stitch/internal/synth"
)

const DefaultOutputFilename = "final_video.mp4"

type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) (string, error)
}

type AssetFetcher interface {
	FetchSegments(ctx context.Context, segments []manifest.Segment) ([]segment.Source, error)
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	// One render at a time; each already saturates the encoder.
	var renderMu sync.Mutex

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(cfg))
		r.Post("/synthesize", synthesizeHandler(cfg, &renderMu))
		r.Get("/download/{filename}", downloadHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Message: "Video synthesis service is running",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func synthesizeHandler(cfg ServerConfig, renderMu *sync.Mutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SynthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "INVALID_REQUEST")
			return
		}
		if len(req.Segments) == 0 {
			WriteError(w, http.StatusBadRequest, "segments array is required", "INVALID_REQUEST")
			return
		}
		for i, s := range req.Segments {
			if strings.TrimSpace(s.VideoURL) == "" {
				WriteError(w, http.StatusBadRequest, fmt.Sprintf("segment %d has no video_url", i), "INVALID_REQUEST")
				return
			}
			for _, ref := range []string{s.VideoURL, s.AudioURL, s.SubtitleURL} {
				if ref != "" && !manifest.IsRemote(ref) {
					WriteError(w, http.StatusBadRequest, fmt.Sprintf("segment %d: only http(s) URLs are accepted", i), "INVALID_REQUEST")
					return
				}
			}
		}
		if req.Transition != nil && *req.Transition < 0 {
			WriteError(w, http.StatusBadRequest, "transition must not be negative", "INVALID_REQUEST")
			return
		}

		name := req.OutputFilename
		if name == "" {
			name = DefaultOutputFilename
		}
		if !safeFilename(name) {
			WriteError(w, http.StatusBadRequest, "output_filename must be a plain file name", "INVALID_REQUEST")
			return
		}

		var transition *time.Duration
		if req.Transition != nil {
			d := time.Duration(*req.Transition * float64(time.Second))
			transition = &d
		}

		renderMu.Lock()
		defer renderMu.Unlock()

		ctx := r.Context()
		sources, err := cfg.Fetcher.FetchSegments(ctx, req.ManifestSegments())
		if err != nil {
			cfg.Logger.Errorw("Fetching assets failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "Error fetching assets: "+publicMessage(err), errorCode(err))
			return
		}

		out, err := cfg.Synthesizer.Synthesize(ctx, synth.Request{
			Segments:   sources,
			OutputPath: filepath.Join(cfg.OutputDir, name),
			Transition: transition,
		})
		if err != nil {
			cfg.Logger.Errorw("Synthesis failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "Error synthesizing video: "+publicMessage(err), errorCode(err))
			return
		}

		WriteJSON(w, http.StatusOK, SynthesizeResponse{
			Success:     true,
			OutputPath:  out,
			DownloadURL: "/api/download/" + name,
			Message:     "Video synthesized successfully",
		})
	}
}

func downloadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		if !safeFilename(name) {
			WriteError(w, http.StatusNotFound, "File not found", "NOT_FOUND")
			return
		}

		path := filepath.Join(cfg.OutputDir, name)
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			WriteError(w, http.StatusNotFound, "File not found", "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		http.ServeFile(w, r, path)
	}
}

func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// publicMessage describes err for HTTP clients without its cause chain,
// which can quote the contents of the files being read. Download status
// codes are kept.
func publicMessage(err error) string {
	var e *errs.Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	msg := fmt.Sprintf("%s error in %s", e.Kind, e.Op)
	var status *assets.StatusError
	if errors.As(err, &status) {
		msg += ": " + status.Error()
	}
	return msg
}

func errorCode(err error) string {
	switch errs.KindOf(err) {
	case errs.KindFormat:
		return "FORMAT_ERROR"
	case errs.KindMediaOpen:
		return "MEDIA_OPEN_ERROR"
	case errs.KindEncode:
		return "ENCODE_ERROR"
	case errs.KindIO:
		return "IO_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
