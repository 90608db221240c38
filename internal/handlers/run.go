package handlers

import (
	"encoding/json"
	"net/http"

	"ytrag/internal/contextutil"
	"ytrag/internal/service"
)

// RunHandler starts processing runs and reports their progress.
type RunHandler struct {
	session service.SessionService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(session service.SessionService) *RunHandler {
	return &RunHandler{session: session}
}

// StartRunRequest represents the HTTP request payload for starting a run.
type StartRunRequest struct {
	URL       string `json:"url"`
	MaxVideos int    `json:"max_videos,omitempty"`
}

// Start handles POST /api/runs. The run continues in the background; the
// response is the running status.
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.session.StartRun(ctx, service.RunRequest{URL: req.URL, MaxVideos: req.MaxVideos})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to start run")
		return
	}

	logger.InfoContext(ctx, "run accepted", "run_id", status.RunID, "kind", status.Kind)
	writeJSON(ctx, w, http.StatusAccepted, status)
}

// Current handles GET /api/runs/current.
func (h *RunHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, h.session.Status())
}
