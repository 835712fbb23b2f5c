package targets

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contre95/plexmirror/src/music"
)

func TestParseList(t *testing.T) {
	input := "\ufeffPink Floyd\n\n   Sigur Rós  \r\n\t\nRoad Trip\n"
	names, err := ParseList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []string{"Pink Floyd", "Sigur Rós", "Road Trip"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d: %v", len(want), len(names), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}

func TestReader_Read(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ArtistsFile), []byte("floyd\nBjörk\n"), 0644)
	os.WriteFile(filepath.Join(dir, PlaylistsFile), []byte("Road Trip\n"), 0644)

	var buf bytes.Buffer
	r := NewReader(dir, slog.New(slog.NewTextHandler(&buf, nil)))

	all, err := r.Read(ObjectAll)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []music.DownloadTarget{
		{Kind: music.TargetArtist, Name: "floyd"},
		{Kind: music.TargetArtist, Name: "Björk"},
		{Kind: music.TargetPlaylist, Name: "Road Trip"},
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d targets, got %v", len(want), all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("target %d: expected %v, got %v", i, want[i], all[i])
		}
	}

	onlyPlaylists, err := r.Read(ObjectPlaylist)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(onlyPlaylists) != 1 || onlyPlaylists[0].Kind != music.TargetPlaylist {
		t.Errorf("expected only the playlist target, got %v", onlyPlaylists)
	}
}

func TestReader_MissingFileIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	r := NewReader(t.TempDir(), slog.New(slog.NewTextHandler(&buf, nil)))

	got, err := r.Read(ObjectArtist)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no targets, got %v", got)
	}
	if !strings.Contains(buf.String(), "Target list not found") {
		t.Errorf("expected a warning to be logged, got %q", buf.String())
	}
}

func TestReader_UnknownObject(t *testing.T) {
	r := NewReader(t.TempDir(), nil)
	if _, err := r.Read(Object("album")); err == nil {
		t.Error("expected error for unknown object")
	}
}
