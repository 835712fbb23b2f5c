package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/contre95/plexmirror/src/features/config"
	"github.com/contre95/plexmirror/src/features/downloading"
	"github.com/contre95/plexmirror/src/music"
)

func sampleReport(failed bool) *downloading.RunReport {
	target := &downloading.TargetReport{
		Target:  music.DownloadTarget{Kind: music.TargetPlaylist, Name: "Road Trip"},
		Matched: []string{"Road Trip"},
		Items: []downloading.ItemResult{
			{Kind: downloading.ItemTrack, Name: "Go", Outcome: downloading.OutcomeTransferred},
			{Kind: downloading.ItemTrack, Name: "Stay", Outcome: downloading.OutcomeExisting},
		},
	}
	if failed {
		target.Items = append(target.Items, downloading.ItemResult{
			Kind:    downloading.ItemTrack,
			Name:    "Gone",
			Outcome: downloading.OutcomeFailed,
			Err:     &music.TransferError{Kind: "track", Name: "Gone", Err: errors.New("timeout")},
		})
	}
	return &downloading.RunReport{Targets: []*downloading.TargetReport{target}}
}

func TestService_RunLifecycleWritesLogAndWebhook(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "webhook.txt")
	cfg := &config.Jobs{
		Log:     true,
		LogPath: filepath.Join(dir, "runs"),
		Webhooks: config.WebhookConfig{
			Enabled: true,
			Command: fmt.Sprintf(`echo "{{.Name}} {{.Status}} {{.Transferred}} {{.Failed}}" > %q`, out),
		},
	}
	var buf bytes.Buffer
	svc := NewService(cfg, slog.New(slog.NewTextHandler(&buf, nil)))

	run, err := svc.Start("download")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if run.ID == "" || run.Status != RunStatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	svc.Finish(run, sampleReport(true), nil)
	svc.Close()

	if run.Status != RunStatusPartial {
		t.Errorf("expected partial status, got %s", run.Status)
	}
	if run.Stats.Transferred != 1 || run.Stats.Existing != 1 || run.Stats.Failed != 1 {
		t.Errorf("unexpected stats %+v", run.Stats)
	}

	logData, err := os.ReadFile(run.LogPath)
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	for _, want := range []string{"Starting run", "Target processed", "Item failed", "Run finished"} {
		if !strings.Contains(string(logData), want) {
			t.Errorf("expected run log to contain %q", want)
		}
	}

	hook, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected webhook output: %v", err)
	}
	if got := strings.TrimSpace(string(hook)); got != "download partial 1 1" {
		t.Errorf("unexpected webhook output %q", got)
	}
}

func TestService_LoggingDisabledDiscards(t *testing.T) {
	svc := NewService(&config.Jobs{}, nil)
	run, err := svc.Start("download")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if run.LogPath != "" {
		t.Errorf("expected no log file, got %s", run.LogPath)
	}
	svc.Finish(run, sampleReport(false), nil)
	svc.Close()
	if run.Status != RunStatusCompleted {
		t.Errorf("expected completed status, got %s", run.Status)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		report *downloading.RunReport
		err    error
		want   RunStatus
	}{
		{"clean run", sampleReport(false), nil, RunStatusCompleted},
		{"item failures", sampleReport(true), nil, RunStatusPartial},
		{"cancelled", sampleReport(false), fmt.Errorf("download run interrupted: %w", context.Canceled), RunStatusCancelled},
		{"unexpected failure", nil, errors.New("boom"), RunStatusFailed},
		{"target not found", &downloading.RunReport{Targets: []*downloading.TargetReport{{
			Err: &music.NotFoundError{Kind: "artist", Query: "x"},
		}}}, nil, RunStatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := classify(tt.report, tt.err); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestService_CleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&config.Jobs{Log: true, LogPath: dir}, nil)
	old := filepath.Join(dir, "2020-01-01-old.log")
	fresh := filepath.Join(dir, "2020-01-02-fresh.log")
	os.WriteFile(old, []byte("x"), 0644)
	os.WriteFile(fresh, []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	stale := time.Now().Add(-48 * time.Hour)
	os.Chtimes(old, stale, stale)

	removed, err := svc.CleanupOldLogs(24 * time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed log, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expected old log to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("expected recent log to be kept")
	}
}
