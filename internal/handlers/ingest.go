package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/trailerdeck/trailerdeck/internal/ingest"
	"github.com/trailerdeck/trailerdeck/internal/logger"
	"github.com/trailerdeck/trailerdeck/internal/tmdb"
)

// postIngest runs a full catalog refresh. The run is synchronous: it holds
// the request open until the pipeline finishes, which takes minutes against
// the real provider. Only one run may be active at a time.
func (h *Handler) postIngest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	start := time.Now()
	report, err := h.pipeline.Run(ctx)
	switch {
	case errors.Is(err, ingest.ErrRunInProgress):
		return conflict("a catalog refresh is already running")
	case errors.Is(err, tmdb.ErrNoCredentials):
		return &Error{Status: http.StatusServiceUnavailable, Message: "metadata provider not configured"}
	case err != nil:
		slog.Error("catalog refresh failed", logger.Error(err), slog.Duration("elapsed", time.Since(start)))
		return internal(err)
	}

	slog.Info("catalog refresh finished",
		slog.Int("movies", report.Movies),
		slog.Int("cast", report.Cast),
		slog.Int("crew", report.Crew),
		slog.Duration("elapsed", time.Since(start)))

	writeJSON(w, http.StatusOK, &IngestResponse{
		Success: true,
		Message: "catalog refreshed",
		Movies:  report.Movies,
		Cast:    report.Cast,
		Crew:    report.Crew,
	})
	return nil
}
