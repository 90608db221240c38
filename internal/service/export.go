package service

import (
	"context"
	"errors"
	"math"
	"time"

	"ytrag/internal/contextutil"
	"ytrag/internal/ingest"
	"ytrag/internal/storage"
	"ytrag/internal/youtube"
)

// RunExport is the downloadable summary of the latest run. It never carries
// transcript text.
type RunExport struct {
	RunID       string         `json:"run_id"`
	Timestamp   time.Time      `json:"timestamp"`
	URL         string         `json:"url"`
	Kind        string         `json:"kind"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Total       int            `json:"total_videos"`
	Succeeded   int            `json:"successful"`
	Failed      int            `json:"failed"`
	SuccessRate float64        `json:"success_rate"`
	Chunks      int            `json:"chunks"`
	Results     []ExportResult `json:"results"`
}

// ExportResult is one video of a RunExport.
type ExportResult struct {
	VideoID   string `json:"video_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	WordCount int    `json:"word_count"`
}

// TranscriptDoc is the transcript of one video of the current run.
type TranscriptDoc struct {
	Video youtube.VideoRef
	Text  string
}

func successRate(succeeded, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(succeeded)/float64(total)*1000) / 10
}

// persist records a finished run. Storage failures are logged, not returned.
func (s *Session) persist(ctx context.Context, runID string, loc youtube.Locator, summary *ingest.Summary, chunks int, runErr error) {
	run := &storage.RunRecord{
		ID:        runID,
		URL:       loc.URL,
		Kind:      loc.Kind.String(),
		Status:    storage.RunSucceeded,
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Chunks:    chunks,
		CreatedAt: time.Now().UTC(),
	}
	if runErr != nil {
		run.Status = storage.RunFailed
		run.Error = runErr.Error()
	}

	results := make([]storage.VideoResultRecord, 0, len(summary.Results))
	for i, r := range summary.Results {
		status := storage.ResultFailure
		if r.OK() {
			status = storage.ResultSuccess
		}
		results = append(results, storage.VideoResultRecord{
			RunID:     runID,
			Position:  i,
			VideoID:   r.Video.ID,
			URL:       r.Video.URL,
			Title:     r.Video.Title,
			Status:    status,
			Error:     r.Error,
			Text:      r.Text,
			WordCount: r.WordCount,
		})
	}

	export := newRunExport(run, results)
	s.mu.Lock()
	s.lastExport = export
	s.mu.Unlock()

	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(context.WithoutCancel(ctx), run, results); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to save run history", "run_id", runID, "error", err)
	}
}

func newRunExport(run *storage.RunRecord, results []storage.VideoResultRecord) *RunExport {
	export := &RunExport{
		RunID:       run.ID,
		Timestamp:   run.CreatedAt,
		URL:         run.URL,
		Kind:        run.Kind,
		Status:      run.Status,
		Error:       run.Error,
		Total:       run.Total,
		Succeeded:   run.Succeeded,
		Failed:      run.Failed,
		SuccessRate: successRate(run.Succeeded, run.Total),
		Chunks:      run.Chunks,
		Results:     make([]ExportResult, 0, len(results)),
	}
	for _, r := range results {
		export.Results = append(export.Results, ExportResult{
			VideoID:   r.VideoID,
			URL:       r.URL,
			Title:     r.Title,
			Status:    r.Status,
			Error:     r.Error,
			WordCount: r.WordCount,
		})
	}
	return export
}

// Export returns the summary of the latest finished run, from memory or
// from run history.
func (s *Session) Export(ctx context.Context) (*RunExport, error) {
	s.mu.RLock()
	export := s.lastExport
	s.mu.RUnlock()
	if export != nil {
		return export, nil
	}
	if s.runs == nil {
		return nil, ErrNotFound
	}

	run, results, err := s.runs.LatestRun(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to load latest run")
	}
	return newRunExport(run, results), nil
}

// Transcript returns the transcript of videoID from the run behind the
// current index, or from the latest stored run that succeeded.
func (s *Session) Transcript(ctx context.Context, videoID string) (*TranscriptDoc, error) {
	if !youtube.ValidVideoID(videoID) {
		return nil, &ValidationError{Field: "video_id", Message: "is not a valid video id"}
	}

	s.mu.RLock()
	summary := s.summary
	s.mu.RUnlock()
	if summary != nil {
		for _, r := range summary.Successes() {
			if r.Video.ID == videoID {
				return &TranscriptDoc{Video: r.Video, Text: r.Text}, nil
			}
		}
		return nil, ErrNotFound
	}

	if s.runs == nil {
		return nil, ErrNotFound
	}
	run, err := s.runs.LatestSucceededRun(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to load latest run")
	}
	rec, err := s.runs.GetTranscript(ctx, run.ID, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to load transcript")
	}
	return &TranscriptDoc{
		Video: youtube.VideoRef{ID: rec.VideoID, URL: rec.URL, Title: rec.Title},
		Text:  rec.Text,
	}, nil
}
