package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ytrag/internal/handlers"
	"ytrag/internal/service"
	"ytrag/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Session     service.SessionService
	VectorStore vectorstore.VectorStore
	DB          handlers.Pinger // optional
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	runHandler := handlers.NewRunHandler(deps.Session)
	resultsHandler := handlers.NewResultsHandler(deps.Session)
	chatHandler := handlers.NewChatHandler(deps.Session)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", runHandler.Start)
		r.Get("/runs/current", runHandler.Current)
		r.Get("/summary", resultsHandler.Summary)
		r.Get("/transcripts/{videoID}", resultsHandler.Transcript)
		r.Post("/ask", chatHandler.Ask)
		r.Get("/chat", chatHandler.History)
		r.Delete("/session", chatHandler.Clear)
		r.Get("/stats", chatHandler.Stats)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
