package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/plexmirror/src/features/downloading"
	"github.com/contre95/plexmirror/src/music"
)

func TestSqliteHistory_SaveAndQuery(t *testing.T) {
	ctx := context.Background()
	h, err := NewSqliteHistory(filepath.Join(t.TempDir(), "state", "history.db"), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer h.Close()

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	older := &downloading.RunReport{StartedAt: start, FinishedAt: start.Add(time.Minute)}
	if err := h.SaveRun(ctx, "run-1", "completed", older); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	report := &downloading.RunReport{
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + time.Minute),
		Targets: []*downloading.TargetReport{
			{
				Target: music.DownloadTarget{Kind: music.TargetPlaylist, Name: "Road Trip"},
				Items: []downloading.ItemResult{
					{Kind: downloading.ItemTrack, Name: "Go", Path: "/m/go.mp3", Outcome: downloading.OutcomeTransferred, Size: 42},
					{Kind: downloading.ItemTrack, Name: "Stay", Path: "/m/stay.mp3", Outcome: downloading.OutcomeFailed, Err: errors.New("timeout")},
				},
			},
			{
				Target: music.DownloadTarget{Kind: music.TargetArtist, Name: "nobody"},
				Err:    &music.NotFoundError{Kind: "artist", Query: "nobody"},
			},
		},
	}
	if err := h.SaveRun(ctx, "run-2", "partial", report); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	runs, err := h.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
	if runs[0].Transferred != 1 || runs[0].Failed != 1 || runs[0].Targets != 2 || runs[0].Status != "partial" {
		t.Errorf("unexpected run summary %+v", runs[0])
	}
	if !runs[0].StartedAt.Equal(report.StartedAt) {
		t.Errorf("expected start time %v, got %v", report.StartedAt, runs[0].StartedAt)
	}

	failed, err := h.FailedItems(ctx, "run-2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("expected failed item and failed target, got %+v", failed)
	}
	if failed[0].Name != "Stay" || failed[0].Error != "timeout" {
		t.Errorf("unexpected failed item %+v", failed[0])
	}
	if failed[1].Kind != "target" || failed[1].TargetName != "nobody" {
		t.Errorf("unexpected failed target %+v", failed[1])
	}

	if err := h.SaveRun(ctx, "run-2", "partial", report); err == nil {
		t.Error("expected duplicate run id to be rejected")
	}
}
