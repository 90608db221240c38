package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ytrag/internal/contextutil"
	"ytrag/internal/service"
)

const summaryTimeLayout = "20060102_150405"

// ResultsHandler serves the downloadable outputs of the latest run.
type ResultsHandler struct {
	session service.SessionService
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(session service.SessionService) *ResultsHandler {
	return &ResultsHandler{session: session}
}

// Summary handles GET /api/summary. The export never contains transcript text.
func (h *ResultsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	export, err := h.session.Export(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load run summary")
		return
	}

	if r.URL.Query().Get("download") == "true" {
		attachment(w, "youtube_rag_results_"+export.Timestamp.Format(summaryTimeLayout)+".json")
	}
	writeJSON(ctx, w, http.StatusOK, export)
}

// Transcript handles GET /api/transcripts/{videoID} as a plain text download.
func (h *ResultsHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videoID := chi.URLParam(r, "videoID")

	doc, err := h.session.Transcript(ctx, videoID)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load transcript")
		return
	}

	title := []rune(doc.Video.DisplayTitle())
	if len(title) > 50 {
		title = title[:50]
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	attachment(w, cleanFilename(string(title)+"_transcript.txt"))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, strings.NewReader(doc.Text)); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to write transcript", "video_id", videoID, "error", err)
	}
}
