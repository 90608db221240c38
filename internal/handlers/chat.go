package handlers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"ytrag/internal/contextutil"
	"ytrag/internal/rag"
	"ytrag/internal/service"
	"ytrag/internal/youtube"
)

// ChatHandler handles questions against the processed videos and the chat
// session around them.
type ChatHandler struct {
	session  service.SessionService
	markdown goldmark.Markdown
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(session service.SessionService) *ChatHandler {
	return &ChatHandler{
		session: session,
		// Answers are model output, so raw HTML stays escaped.
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
			),
			goldmark.WithRendererOptions(
				ghhtml.WithHardWraps(),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// AskRequest represents the HTTP request payload for a question.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
	VideoID  string `json:"video_id,omitempty"`
}

// AskResponse represents the HTTP response payload for a question.
type AskResponse struct {
	// Answer is the model's markdown answer, verbatim.
	Answer string `json:"answer"`

	// AnswerHTML is Answer rendered to HTML.
	AnswerHTML template.HTML `json:"answer_html"`

	// Sources are the videos the answer drew on, in retrieval order.
	Sources []youtube.VideoRef `json:"sources"`

	Chunks []rag.RetrievedChunk `json:"chunks,omitempty"`
}

// ChatResponse is the chat history with starter questions for an empty chat.
type ChatResponse struct {
	History            []service.ChatTurn `json:"history"`
	SuggestedQuestions []string           `json:"suggested_questions"`
}

// StatsResponse wraps the session stats with the time they were taken.
type StatsResponse struct {
	service.SessionStats
	Timestamp string `json:"timestamp"`
}

// Ask handles POST /api/ask.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.K < 0 || req.K > rag.MaxK {
		writeError(w, http.StatusBadRequest, "k must be between 0 and 20")
		return
	}

	start := time.Now()
	resp, err := h.session.Ask(ctx, rag.AskRequest{Question: req.Question, K: req.K, VideoID: req.VideoID})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to answer question")
		return
	}
	logger.InfoContext(ctx, "question answered",
		"sources", len(resp.Sources),
		"duration", time.Since(start))

	writeJSON(ctx, w, http.StatusOK, AskResponse{
		Answer:     resp.Answer,
		AnswerHTML: h.render(r, resp.Answer),
		Sources:    resp.Sources,
		Chunks:     resp.Chunks,
	})
}

// render converts a markdown answer to HTML. On failure the escaped answer is returned.
func (h *ChatHandler) render(r *http.Request, answer string) template.HTML {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(answer), &buf); err != nil {
		ctx := r.Context()
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to render answer", "error", err)
		return template.HTML(template.HTMLEscapeString(answer))
	}
	return template.HTML(buf.String())
}

// History handles GET /api/chat.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.session.History()
	if history == nil {
		history = []service.ChatTurn{}
	}
	writeJSON(r.Context(), w, http.StatusOK, ChatResponse{
		History:            history,
		SuggestedQuestions: rag.SuggestedQuestions(),
	})
}

// Clear handles DELETE /api/session.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.session.Clear(ctx); err != nil {
		handleServiceError(ctx, w, err, "Failed to clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/stats.
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, StatsResponse{
		SessionStats: h.session.Stats(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}
