package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/contre95/plexmirror/src/features/downloading"
	"github.com/contre95/plexmirror/src/infra/database"
	"github.com/contre95/plexmirror/src/music"
)

func TestPrintHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	var empty bytes.Buffer
	if err := printHistory(&empty, path, 5); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(empty.String(), "No runs recorded") {
		t.Errorf("unexpected output for empty history %q", empty.String())
	}

	history, err := database.NewSqliteHistory(path, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	start := time.Now().Add(-time.Hour)
	report := &downloading.RunReport{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Targets: []*downloading.TargetReport{{
			Target: music.DownloadTarget{Kind: music.TargetPlaylist, Name: "Road Trip"},
			Items: []downloading.ItemResult{
				{Kind: downloading.ItemTrack, Name: "Go", Outcome: downloading.OutcomeTransferred, Size: 8},
				{Kind: downloading.ItemTrack, Name: "Stay", Outcome: downloading.OutcomeFailed, Err: errors.New("connection reset")},
			},
		}},
	}
	if err := history.SaveRun(context.Background(), "run-1", "partial", report); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	history.Close()

	var out bytes.Buffer
	if err := printHistory(&out, path, 5); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := out.String()
	for _, want := range []string{"run-1", "partial", "transferred=1", "failed=1", `track "Stay"`, "connection reset"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestRun_FatalSetupErrorsExitNonZero(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PLEX_URL", "")
	t.Setenv("PLEX_TOKEN", "")

	if code := run(Args{Config: filepath.Join(dir, "missing", "config.yaml")}); code != 1 {
		t.Errorf("expected exit code 1 for an unwritable config, got %d", code)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "libraryPath: " + filepath.Join(dir, "lib") + "\n" +
		"artworkPath: " + filepath.Join(dir, "art") + "\n" +
		"playlistsPath: " + filepath.Join(dir, "pl") + "\n" +
		"download:\n  enabled: true\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if code := run(Args{Config: cfgPath, Credentials: filepath.Join(dir, "credentials.yaml")}); code != 1 {
		t.Errorf("expected exit code 1 without credentials, got %d", code)
	}
}
