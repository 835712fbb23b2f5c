package playlists

import "testing"

func TestBuildManifest_RoadTrip(t *testing.T) {
	entries := []ManifestEntry{
		{DurationMs: 215000, Subtitle: "Artist1", Title: "Go", Path: "Library/Artist1/Album/01 - Artist1 - Go.mp3"},
		{DurationMs: 180000, Subtitle: "Artist2", Title: "Stay", Path: "Library/Artist2/Album/02 - Artist2 - Stay.mp3"},
	}

	want := "#EXTM3U\n" +
		"#EXTINF:215,Artist1 - Go\n" +
		"Library/Artist1/Album/01 - Artist1 - Go.mp3\n" +
		"#EXTINF:180,Artist2 - Stay\n" +
		"Library/Artist2/Album/02 - Artist2 - Stay.mp3\n"

	if got := BuildManifest(entries); got != want {
		t.Errorf("unexpected manifest:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildManifest_OmitsEntriesWithoutPath(t *testing.T) {
	entries := []ManifestEntry{
		{DurationMs: 1000, Subtitle: "X", Title: "A", Path: "/m/a.flac"},
		{DurationMs: 2000, Subtitle: "X", Title: "B"},
		{DurationMs: 3000, Subtitle: "X", Title: "C", Path: "/m/c.flac"},
	}

	want := "#EXTM3U\n#EXTINF:1,X - A\n/m/a.flac\n#EXTINF:3,X - C\n/m/c.flac\n"
	if got := BuildManifest(entries); got != want {
		t.Errorf("unexpected manifest:\n%s\nwant:\n%s", got, want)
	}
	if n := CountEntries(entries); n != 2 {
		t.Errorf("expected 2 emitted entries, got %d", n)
	}
}

func TestBuildManifest_Empty(t *testing.T) {
	if got := BuildManifest(nil); got != "#EXTM3U\n" {
		t.Errorf("expected header only, got %q", got)
	}
}

func TestManifestEntry_SecondsRoundsDown(t *testing.T) {
	tests := []struct {
		ms   int
		want int
	}{
		{0, 0},
		{999, 0},
		{1999, 1},
		{215000, 215},
		{-5, 0},
	}
	for _, tt := range tests {
		if got := (ManifestEntry{DurationMs: tt.ms}).Seconds(); got != tt.want {
			t.Errorf("Seconds(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}

func TestManifestName(t *testing.T) {
	if got := ManifestName("Road Trip"); got != "Road Trip.m3u8" {
		t.Errorf("unexpected name %q", got)
	}
}
