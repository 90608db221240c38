package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func sampleRun(id string, createdAt time.Time) (*RunRecord, []VideoResultRecord) {
	run := &RunRecord{
		ID:        id,
		URL:       "https://www.youtube.com/playlist?list=PL123",
		Kind:      "playlist",
		Status:    RunSucceeded,
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Chunks:    3,
		CreatedAt: createdAt,
	}
	results := []VideoResultRecord{
		{Position: 0, VideoID: "aaaaaaaaaaa", URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa", Title: "First", Status: ResultSuccess, Text: "hello world", WordCount: 2},
		{Position: 1, VideoID: "bbbbbbbbbbb", URL: "https://www.youtube.com/watch?v=bbbbbbbbbbb", Status: ResultFailure, Error: "transcripts are disabled"},
	}
	return run, results
}

func TestRunRepo_SaveAndLatest(t *testing.T) {
	repo := NewRunRepo(newTestDB(t))
	ctx := context.Background()

	if _, _, err := repo.LatestRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestRun() on empty db error = %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2"} {
		run, results := sampleRun(id, base.Add(time.Duration(i)*time.Second))
		if err := repo.SaveRun(ctx, run, results); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	run, results, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if run.ID != "run-2" {
		t.Errorf("LatestRun() id = %s, want run-2", run.ID)
	}
	if !run.CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("LatestRun() created_at = %v", run.CreatedAt)
	}
	if run.Succeeded != 1 || run.Failed != 1 || run.Chunks != 3 {
		t.Errorf("LatestRun() counts = %+v", run)
	}
	if len(results) != 2 {
		t.Fatalf("LatestRun() results = %d, want 2", len(results))
	}
	if results[0].VideoID != "aaaaaaaaaaa" || results[1].Error != "transcripts are disabled" {
		t.Errorf("LatestRun() results out of order or incomplete: %+v", results)
	}
	for _, r := range results {
		if r.RunID != "run-2" {
			t.Errorf("result run id = %s, want run-2", r.RunID)
		}
	}
}

func TestRunRepo_LatestRun_SubSecondOrder(t *testing.T) {
	repo := NewRunRepo(newTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	// Text ordering must still put .12 after .1.
	for i, offset := range []time.Duration{100 * time.Millisecond, 120 * time.Millisecond} {
		run, results := sampleRun(fmt.Sprintf("run-%d", i), base.Add(offset))
		if err := repo.SaveRun(ctx, run, results); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	run, _, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if run.ID != "run-1" {
		t.Errorf("LatestRun() id = %s, want run-1", run.ID)
	}
}

func TestRunRepo_LatestSucceededRun(t *testing.T) {
	repo := NewRunRepo(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.LatestSucceededRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestSucceededRun() on empty db error = %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ok, okResults := sampleRun("run-ok", base)
	if err := repo.SaveRun(ctx, ok, okResults); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	failed, _ := sampleRun("run-failed", base.Add(time.Second))
	failed.Status = RunFailed
	failed.Error = "no transcripts obtained"
	if err := repo.SaveRun(ctx, failed, []VideoResultRecord{
		{Position: 0, VideoID: "ccccccccccc", Status: ResultFailure, Error: "disabled"},
	}); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	latest, _, err := repo.LatestRun(ctx)
	if err != nil || latest.ID != "run-failed" {
		t.Fatalf("LatestRun() = %v, %v, want run-failed", latest, err)
	}
	got, err := repo.LatestSucceededRun(ctx)
	if err != nil {
		t.Fatalf("LatestSucceededRun() error = %v", err)
	}
	if got.ID != "run-ok" || got.Status != RunSucceeded {
		t.Errorf("LatestSucceededRun() = %s (%s), want run-ok", got.ID, got.Status)
	}
}

func TestRunRepo_SaveRun_Errors(t *testing.T) {
	repo := NewRunRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.SaveRun(ctx, &RunRecord{}, nil); err == nil {
		t.Error("SaveRun() without id should fail")
	}

	run, results := sampleRun("dup", time.Time{})
	if err := repo.SaveRun(ctx, run, results); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if run.CreatedAt.IsZero() {
		t.Error("SaveRun() should set CreatedAt")
	}

	// Duplicate positions roll back the whole run.
	run2, _ := sampleRun("rolled-back", time.Time{})
	bad := []VideoResultRecord{
		{Position: 0, VideoID: "x", Status: ResultSuccess},
		{Position: 0, VideoID: "y", Status: ResultSuccess},
	}
	if err := repo.SaveRun(ctx, run2, bad); err == nil {
		t.Fatal("SaveRun() with duplicate positions should fail")
	}
	latest, _, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if latest.ID != "dup" {
		t.Errorf("LatestRun() id = %s, want dup after rollback", latest.ID)
	}
}

func TestRunRepo_GetTranscript(t *testing.T) {
	repo := NewRunRepo(newTestDB(t))
	ctx := context.Background()

	run, results := sampleRun("run-1", time.Time{})
	if err := repo.SaveRun(ctx, run, results); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	tests := []struct {
		name     string
		runID    string
		videoID  string
		wantText string
		wantErr  error
	}{
		{
			name:     "successful video",
			runID:    "run-1",
			videoID:  "aaaaaaaaaaa",
			wantText: "hello world",
		},
		{
			name:    "failed video has no transcript",
			runID:   "run-1",
			videoID: "bbbbbbbbbbb",
			wantErr: ErrNotFound,
		},
		{
			name:    "unknown video",
			runID:   "run-1",
			videoID: "zzzzzzzzzzz",
			wantErr: ErrNotFound,
		},
		{
			name:    "unknown run",
			runID:   "run-9",
			videoID: "aaaaaaaaaaa",
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetTranscript(ctx, tt.runID, tt.videoID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetTranscript() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetTranscript() error = %v", err)
			}
			if got.Text != tt.wantText {
				t.Errorf("GetTranscript() text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}
