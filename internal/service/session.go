// Package service runs the processing pipeline and owns the index a chat
// session asks questions against.
package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_answerer.go -package=mocks ytrag/internal/service Answerer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_service.go -package=mocks ytrag/internal/service SessionService

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ytrag/internal/contextutil"
	"ytrag/internal/indexer"
	"ytrag/internal/ingest"
	"ytrag/internal/rag"
	"ytrag/internal/storage"
	"ytrag/internal/youtube"
)

// Aggregator fetches the transcripts of a video list.
type Aggregator interface {
	Run(ctx context.Context, videos []youtube.VideoRef, observer ingest.Observer) (*ingest.Summary, error)
}

// IndexBuilder builds the index of one run.
type IndexBuilder interface {
	Build(ctx context.Context, summary *ingest.Summary) (*indexer.Index, error)
}

// Answerer answers a question from a retriever.
type Answerer interface {
	Ask(ctx context.Context, retriever rag.Retriever, req rag.AskRequest) (*rag.AskResponse, error)
}

// SessionService is the surface the HTTP handlers use.
type SessionService interface {
	StartRun(ctx context.Context, req RunRequest) (Status, error)
	Status() Status
	Ask(ctx context.Context, req rag.AskRequest) (*rag.AskResponse, error)
	History() []ChatTurn
	Clear(ctx context.Context) error
	Transcript(ctx context.Context, videoID string) (*TranscriptDoc, error)
	Export(ctx context.Context) (*RunExport, error)
	Stats() SessionStats
}

// State is the lifecycle state of the session's latest run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// RunRequest starts a processing run.
type RunRequest struct {
	URL string `json:"url"`
	// MaxVideos caps discovery for playlists and searches. 0 uses the session default.
	MaxVideos int `json:"max_videos,omitempty"`
}

// Status is a snapshot of the latest run.
type Status struct {
	RunID      string           `json:"run_id,omitempty"`
	State      State            `json:"state"`
	URL        string           `json:"url,omitempty"`
	Kind       string           `json:"kind,omitempty"`
	Stage      ingest.Stage     `json:"stage,omitempty"`
	Progress   *ingest.Progress `json:"progress,omitempty"`
	Summary    *ingest.Summary  `json:"summary,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// ChatTurn is one answered question.
type ChatTurn struct {
	Question string             `json:"question"`
	Answer   string             `json:"answer"`
	Sources  []youtube.VideoRef `json:"sources"`
	AskedAt  time.Time          `json:"asked_at"`
}

// IndexInfo describes the current index.
type IndexInfo struct {
	IndexID   string             `json:"index_id"`
	CreatedAt time.Time          `json:"created_at"`
	Videos    []youtube.VideoRef `json:"videos"`
	Stats     indexer.Stats      `json:"stats"`
}

// SessionStats summarizes the session for analytics.
type SessionStats struct {
	State     State      `json:"state"`
	Index     *IndexInfo `json:"index,omitempty"`
	ChatTurns int        `json:"chat_turns"`
}

// Session runs at most one processing run at a time and keeps the index of
// the last successful run for chat.
type Session struct {
	discoverer youtube.Discoverer
	aggregator Aggregator
	builder    IndexBuilder
	answerer   Answerer
	runs       storage.RunStore
	defaultMax int

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.RWMutex
	closed     bool
	running    bool
	status     Status
	index      *indexer.Index
	summary    *ingest.Summary // summary of the run behind index
	history    []ChatTurn
	lastExport *RunExport
}

// NewSession creates a Session. runs may be nil to disable run history.
// defaultMax is clamped to the discovery bounds.
func NewSession(discoverer youtube.Discoverer, aggregator Aggregator, builder IndexBuilder, answerer Answerer, runs storage.RunStore, defaultMax int) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		discoverer: discoverer,
		aggregator: aggregator,
		builder:    builder,
		answerer:   answerer,
		runs:       runs,
		defaultMax: youtube.ClampMax(defaultMax),
		baseCtx:    ctx,
		cancel:     cancel,
		status:     Status{State: StateIdle},
	}
}

// Outcome is the result of a finished run.
type Outcome struct {
	RunID   string
	Summary *ingest.Summary
	Index   *indexer.Index
}

// StartRun validates the request and processes it in the background.
// The returned status is the running snapshot.
func (s *Session) StartRun(ctx context.Context, req RunRequest) (Status, error) {
	loc, max, err := s.prepare(req)
	if err != nil {
		return Status{}, err
	}
	runID, err := s.begin(loc)
	if err != nil {
		return Status{}, err
	}

	logger := contextutil.LoggerFromContext(ctx).With("run_id", runID)
	runCtx := context.WithValue(s.baseCtx, contextutil.LoggerKey(), logger)

	go func() {
		defer s.wg.Done()
		_, _ = s.execute(runCtx, runID, loc, max, nil)
	}()

	return s.Status(), nil
}

// Process runs the request synchronously. observer may be nil.
// Close cancels it like a background run.
func (s *Session) Process(ctx context.Context, req RunRequest, observer ingest.Observer) (*Outcome, error) {
	loc, max, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	runID, err := s.begin(loc)
	if err != nil {
		return nil, err
	}
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.baseCtx, cancel)
	defer stop()

	return s.execute(ctx, runID, loc, max, observer)
}

func (s *Session) prepare(req RunRequest) (youtube.Locator, int, error) {
	if strings.TrimSpace(req.URL) == "" {
		return youtube.Locator{}, 0, &ValidationError{Field: "url", Message: "cannot be empty"}
	}
	if req.MaxVideos < 0 || req.MaxVideos > youtube.MaxVideos {
		return youtube.Locator{}, 0, &ValidationError{
			Field:   "max_videos",
			Message: fmt.Sprintf("must be between %d and %d", youtube.MinVideos, youtube.MaxVideos),
		}
	}
	loc, err := youtube.Classify(req.URL)
	if err != nil {
		return youtube.Locator{}, 0, err
	}
	max := s.defaultMax
	if req.MaxVideos > 0 {
		max = req.MaxVideos
	}
	return loc, max, nil
}

// begin claims the run slot and registers the run with Close.
// The caller must call s.wg.Done when the run ends.
func (s *Session) begin(loc youtube.Locator) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if s.running {
		return "", ErrRunInProgress
	}
	s.running = true
	s.wg.Add(1)

	runID := uuid.New().String()
	now := time.Now().UTC()
	s.status = Status{
		RunID:     runID,
		State:     StateRunning,
		URL:       loc.URL,
		Kind:      loc.Kind.String(),
		StartedAt: &now,
	}
	return runID, nil
}

func (s *Session) execute(ctx context.Context, runID string, loc youtube.Locator, max int, observer ingest.Observer) (*Outcome, error) {
	logger := contextutil.LoggerFromContext(ctx)
	started := time.Now()

	notify := ingest.ObserverFunc(func(p ingest.Progress) {
		s.mu.Lock()
		progress := p
		s.status.Progress = &progress
		s.status.Stage = p.Stage
		s.mu.Unlock()
		if observer != nil {
			observer.OnProgress(p)
		}
	})

	videos, err := s.videos(ctx, loc, max, notify)
	if err != nil {
		logger.WarnContext(ctx, "discovery failed", "url", loc.URL, "error", err)
		s.fail(ctx, runID, loc, nil, ingest.StageDiscovering, err)
		return nil, err
	}
	logger.InfoContext(ctx, "run started", "url", loc.URL, "kind", loc.Kind.String(), "videos", len(videos))

	summary, err := s.aggregator.Run(ctx, videos, notify)
	if err != nil {
		logger.WarnContext(ctx, "transcript aggregation failed", "error", err)
		s.fail(ctx, runID, loc, summary, ingest.StageFetching, err)
		return nil, err
	}

	notify.OnProgress(ingest.Progress{
		Current:   summary.Total,
		Total:     summary.Total,
		Stage:     ingest.StageIndexing,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	})

	ix, err := s.builder.Build(ctx, summary)
	if err != nil {
		logger.WarnContext(ctx, "index build failed", "error", err)
		s.fail(ctx, runID, loc, summary, ingest.StageIndexing, err)
		return nil, err
	}

	s.mu.Lock()
	old := s.index
	s.index = ix
	s.summary = summary
	s.history = nil
	s.mu.Unlock()

	if old != nil {
		if err := old.Drop(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "failed to drop previous index", "run_id", old.ID(), "error", err)
		}
	}

	s.persist(ctx, runID, loc, summary, ix.Len(), nil)
	s.finish(StateSucceeded, summary, "")

	logger.InfoContext(ctx, "run completed",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"chunks", ix.Len(),
		"duration", time.Since(started))
	return &Outcome{RunID: runID, Summary: summary, Index: ix}, nil
}

func (s *Session) videos(ctx context.Context, loc youtube.Locator, max int, observer ingest.Observer) ([]youtube.VideoRef, error) {
	if loc.Kind == youtube.KindSingleVideo {
		return []youtube.VideoRef{loc.Video()}, nil
	}
	observer.OnProgress(ingest.Progress{Stage: ingest.StageDiscovering})
	refs, err := s.discoverer.Discover(ctx, loc, max)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, &youtube.DiscoveryError{URL: loc.URL, Reason: "no videos found"}
	}
	return refs, nil
}

// fail records a failed run. The previous index stays in place.
func (s *Session) fail(ctx context.Context, runID string, loc youtube.Locator, summary *ingest.Summary, stage ingest.Stage, err error) {
	if summary != nil {
		s.persist(ctx, runID, loc, summary, 0, err)
	}
	s.mu.Lock()
	s.status.Stage = stage
	s.mu.Unlock()
	s.finish(StateFailed, summary, err.Error())
}

func (s *Session) finish(state State, summary *ingest.Summary, errMsg string) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
	s.status.Summary = summary
	s.status.Error = errMsg
	s.status.FinishedAt = &now
	s.running = false
}

// Close cancels the running run, waits for it and drops the index.
// Runs started afterwards fail with ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	ix := s.index
	s.index = nil
	s.mu.Unlock()
	if ix != nil {
		return ix.Drop(ctx)
	}
	return nil
}

// Status returns a snapshot of the latest run.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if st.Progress != nil {
		p := *st.Progress
		st.Progress = &p
	}
	return st
}

// Ask answers a question from the current index. History is only appended
// on success.
func (s *Session) Ask(ctx context.Context, req rag.AskRequest) (*rag.AskResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, &ValidationError{Field: "question", Message: "cannot be empty"}
	}

	s.mu.RLock()
	ix := s.index
	s.mu.RUnlock()
	if ix == nil {
		return nil, ErrNoIndex
	}

	resp, err := s.answerer.Ask(ctx, ix, req)
	if errors.Is(err, indexer.ErrIndexDropped) {
		// A run replaced the index mid-question. Ask the new one once.
		s.mu.RLock()
		current := s.index
		s.mu.RUnlock()
		if current == nil || current == ix {
			return nil, ErrNoIndex
		}
		ix = current
		resp, err = s.answerer.Ask(ctx, ix, req)
	}
	if err != nil {
		if errors.Is(err, indexer.ErrIndexDropped) {
			return nil, ErrNoIndex
		}
		var genErr *rag.AnswerGenerationError
		if errors.As(err, &genErr) {
			return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
		}
		return nil, WrapError(err, "failed to answer question")
	}

	s.mu.Lock()
	// A run that finished meanwhile started a fresh history.
	if s.index == ix {
		s.history = append(s.history, ChatTurn{
			Question: req.Question,
			Answer:   resp.Answer,
			Sources:  resp.Sources,
			AskedAt:  time.Now().UTC(),
		})
	}
	s.mu.Unlock()
	return resp, nil
}

// History returns the chat turns since the current index was built.
func (s *Session) History() []ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// Clear drops the index and the chat history.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunInProgress
	}
	ix := s.index
	s.index = nil
	s.summary = nil
	s.history = nil
	s.lastExport = nil
	s.status = Status{State: StateIdle}
	s.mu.Unlock()

	if ix != nil {
		if err := ix.Drop(ctx); err != nil {
			return WrapError(err, "failed to drop index")
		}
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "session cleared")
	return nil
}

// Stats summarizes the session.
func (s *Session) Stats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := SessionStats{
		State:     s.status.State,
		ChatTurns: len(s.history),
	}
	if s.index != nil {
		stats.Index = &IndexInfo{
			IndexID:   s.index.ID(),
			CreatedAt: s.index.CreatedAt(),
			Videos:    s.index.Videos(),
			Stats:     s.index.Stats(),
		}
	}
	return stats
}
