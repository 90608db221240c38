// Package ingest drives transcript fetching across the videos of one run.
package ingest

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_fetcher.go -package=mocks ytrag/internal/ingest TranscriptFetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ytrag/internal/contextutil"
	"ytrag/internal/transcript"
	"ytrag/internal/youtube"
)

// ErrNoTranscriptsObtained is returned when every video of a run failed.
var ErrNoTranscriptsObtained = errors.New("no transcripts obtained")

// TranscriptFetcher fetches the transcript of one video.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, video youtube.VideoRef) (string, error)
}

// Status is the outcome of one video.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the immutable outcome of fetching one video's transcript.
type Result struct {
	Video     youtube.VideoRef `json:"video"`
	Status    Status           `json:"status"`
	Text      string           `json:"-"`
	Error     string           `json:"error,omitempty"`
	WordCount int              `json:"word_count"`
}

// OK reports whether the transcript was obtained.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Summary is the outcome of a run, results in input order.
type Summary struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// SuccessRate is the percentage of videos with a transcript.
func (s *Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// Successes returns the successful results in order.
func (s *Summary) Successes() []Result {
	out := make([]Result, 0, s.Succeeded)
	for _, r := range s.Results {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns the failed results in order.
func (s *Summary) Failures() []Result {
	out := make([]Result, 0, s.Failed)
	for _, r := range s.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	if r.OK() {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// Stage names a step of a run reported to observers.
type Stage string

const (
	StageDiscovering Stage = "discovering"
	StageFetching    Stage = "fetching"
	StageFetched     Stage = "fetched"
	StageFailed      Stage = "failed"
	StageIndexing    Stage = "indexing"
)

// Progress is one notification. Current is 1-based.
type Progress struct {
	Current   int              `json:"current"`
	Total     int              `json:"total"`
	Video     youtube.VideoRef `json:"video"`
	Stage     Stage            `json:"stage"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// Observer receives progress notifications.
type Observer interface {
	OnProgress(p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p Progress)

// OnProgress implements Observer.
func (f ObserverFunc) OnProgress(p Progress) {
	f(p)
}

// Aggregator fetches transcripts for a list of videos, one at a time.
type Aggregator struct {
	fetcher TranscriptFetcher
	limiter *rate.Limiter
}

// NewAggregator creates an Aggregator that waits at least delay between videos.
// A zero delay disables pacing.
func NewAggregator(fetcher TranscriptFetcher, delay time.Duration) *Aggregator {
	a := &Aggregator{fetcher: fetcher}
	if delay > 0 {
		a.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return a
}

// Run fetches every video in order. Individual failures are recorded in the
// summary and never abort the run. The context is checked between videos;
// when it is done Run returns ctx.Err() and no summary.
//
// If no video succeeded Run returns the summary together with an error
// wrapping ErrNoTranscriptsObtained.
func (a *Aggregator) Run(ctx context.Context, videos []youtube.VideoRef, observer Observer) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)
	notify := func(p Progress) {
		if observer != nil {
			observer.OnProgress(p)
		}
	}

	summary := &Summary{Total: len(videos), Results: make([]Result, 0, len(videos))}

	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		progress := Progress{Current: i + 1, Total: len(videos), Video: video, Stage: StageFetching,
			Succeeded: summary.Succeeded, Failed: summary.Failed}
		notify(progress)

		text, err := a.fetcher.Fetch(ctx, video)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var result Result
		if err != nil {
			result = Result{Video: video, Status: StatusFailure, Error: failureReason(err)}
			progress.Stage = StageFailed
			logger.WarnContext(ctx, "video failed", "video_id", video.ID, "position", i+1, "reason", result.Error)
		} else {
			result = Result{Video: video, Status: StatusSuccess, Text: text, WordCount: len(strings.Fields(text))}
			progress.Stage = StageFetched
			logger.InfoContext(ctx, "video transcribed", "video_id", video.ID, "position", i+1, "words", result.WordCount)
		}
		summary.add(result)

		progress.Succeeded = summary.Succeeded
		progress.Failed = summary.Failed
		notify(progress)
	}

	logger.InfoContext(ctx, "aggregation complete",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed)

	if summary.Succeeded == 0 {
		return summary, fmt.Errorf("%w: all %d videos failed", ErrNoTranscriptsObtained, summary.Total)
	}
	return summary, nil
}

func failureReason(err error) string {
	var unavailable *transcript.UnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Reason()
	}
	return err.Error()
}
