package storage

import "time"

// Run and result status values.
const (
	RunSucceeded  = "succeeded"
	RunFailed     = "failed"
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// RunRecord is one finished processing run.
type RunRecord struct {
	ID        string
	URL       string
	Kind      string // video, playlist or channel_search
	Status    string // succeeded or failed
	Error     string
	Total     int
	Succeeded int
	Failed    int
	Chunks    int
	CreatedAt time.Time
}

// VideoResultRecord is the outcome for one video of a run.
type VideoResultRecord struct {
	RunID     string
	Position  int // 0-based order within the run
	VideoID   string
	URL       string
	Title     string
	Status    string // success or failure
	Error     string
	Text      string
	WordCount int
}
