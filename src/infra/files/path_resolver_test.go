package files

import (
	"errors"
	"strings"
	"testing"

	"github.com/contre95/plexmirror/src/music"
)

func newTestResolver(mod func(*PathOptions)) *PathResolver {
	opts := PathOptions{
		LibraryRoot:      "/srv/music/Library",
		ArtworkRoot:      "/srv/music/Metadata/Artists",
		PlaylistsRoot:    "/srv/music/Metadata/Playlists",
		Strategy:         StrategyName,
		StructuralMarker: "/Music/",
		CoverFilename:    "cover.jpg",
	}
	if mod != nil {
		mod(&opts)
	}
	return NewPathResolver(opts)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		asciify  bool
		extended bool
		in       string
		want     string
	}{
		{"strips punctuation and keeps diacritics", false, false, "Sigur Rós: Live!", "Sigur Rós Live"},
		{"asciify transliterates diacritics", true, false, "Sigur Rós: Live!", "Sigur Ros Live"},
		{"keeps allowed separators", false, false, "a.b_c-d e", "a.b_c-d e"},
		{"drops extended chars by default", false, false, "Simon & Garfunkel (Live) 'Best'", "Simon  Garfunkel Live Best"},
		{"keeps extended chars when allowed", false, true, "Simon & Garfunkel (Live) 'Best'", "Simon & Garfunkel (Live) 'Best'"},
		{"removes path separators", false, false, "AC/DC", "ACDC"},
		{"rejects dot-only names", false, false, "../..", ""},
		{"trims surrounding spaces", false, false, "  !Name?  ", "Name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(func(o *PathOptions) {
				o.Asciify = tt.asciify
				o.AllowExtended = tt.extended
			})
			if got := r.SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAlbumDir_NameStrategy(t *testing.T) {
	r := newTestResolver(nil)
	album := &music.Album{Title: "The Wall", Year: 1979, ArtistTitle: "Pink Floyd"}

	first, err := r.AlbumDir(album, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.Path != "/srv/music/Library/Pink Floyd/The Wall [1979]" {
		t.Errorf("unexpected path %q", first.Path)
	}
	if first.Strategy != StrategyName || first.Fallback != nil {
		t.Errorf("unexpected derivation %+v", first)
	}

	second, _ := r.AlbumDir(&music.Album{Title: "The Wall", Year: 1979, ArtistTitle: "Pink Floyd"}, nil)
	if second.Path != first.Path {
		t.Errorf("derivation is not deterministic: %q vs %q", first.Path, second.Path)
	}
}

func TestAlbumDir_NameStrategyWithoutYear(t *testing.T) {
	r := newTestResolver(nil)
	d, err := r.AlbumDir(&music.Album{Title: "Demos", ArtistTitle: "Band"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Path != "/srv/music/Library/Band/Demos" {
		t.Errorf("unexpected path %q", d.Path)
	}
}

func TestAlbumDir_NameStrategyFailsOnEmptyArtist(t *testing.T) {
	r := newTestResolver(nil)
	_, err := r.AlbumDir(&music.Album{Title: "Demos", ArtistTitle: "???"}, nil)
	var pathErr *music.PathDerivationError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected PathDerivationError, got %v", err)
	}
}

func TestAlbumDir_StructuralStrategy(t *testing.T) {
	r := newTestResolver(func(o *PathOptions) { o.Strategy = StrategyStructural })
	album := &music.Album{Title: "The Wall", Year: 1979, ArtistTitle: "Pink Floyd"}
	track := &music.Track{File: music.NewRemoteFile("/data/Music/Pink Floyd/The Wall (Remaster)/01 In the Flesh.flac", "", 0)}

	d, err := r.AlbumDir(album, track)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Path != "/srv/music/Library/Pink Floyd/The Wall (Remaster)" {
		t.Errorf("expected remote segments reused verbatim, got %q", d.Path)
	}
	if d.Strategy != StrategyStructural {
		t.Errorf("expected structural strategy, got %s", d.Strategy)
	}
}

func TestAlbumDir_StructuralFallsBackWhenMarkerMissing(t *testing.T) {
	r := newTestResolver(func(o *PathOptions) { o.Strategy = StrategyStructural })
	album := &music.Album{Title: "The Wall", Year: 1979, ArtistTitle: "Pink Floyd"}
	track := &music.Track{File: music.NewRemoteFile("/data/Audio/Pink Floyd/The Wall/01.flac", "", 0)}

	d, err := r.AlbumDir(album, track)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if d.Path != "/srv/music/Library/Pink Floyd/The Wall [1979]" {
		t.Errorf("unexpected fallback path %q", d.Path)
	}
	var pathErr *music.PathDerivationError
	if !errors.As(d.Fallback, &pathErr) {
		t.Errorf("expected structural PathDerivationError recorded as fallback, got %v", d.Fallback)
	}
}

func TestAlbumDir_StructuralAndNameBothFail(t *testing.T) {
	r := newTestResolver(func(o *PathOptions) { o.Strategy = StrategyStructural })
	_, err := r.AlbumDir(&music.Album{Title: "!!!", ArtistTitle: "???"}, nil)
	if err == nil {
		t.Fatal("expected error when both strategies fail")
	}
}

func TestTrackFilename(t *testing.T) {
	r := newTestResolver(nil)
	track := &music.Track{
		Title:       "Money?",
		Number:      6,
		ArtistTitle: "Pink Floyd",
		File:        music.NewRemoteFile("/data/Music/Pink Floyd/DSOTM/06 - money (remaster).FLAC", "", 0),
	}

	got, err := r.TrackFilename(track, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "06 - Pink Floyd - Money.FLAC" {
		t.Errorf("unexpected synthesized name %q", got)
	}

	got, err = r.TrackFilename(track, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "06 - money (remaster).FLAC" {
		t.Errorf("expected remote base name unchanged, got %q", got)
	}
}

func TestTrackFilename_MissingExtension(t *testing.T) {
	r := newTestResolver(nil)
	track := &music.Track{Title: "Song", Number: 1, ArtistTitle: "A", File: music.NewRemoteFile("/data/Music/A/B/song", "", 0)}
	if _, err := r.TrackFilename(track, false); err == nil {
		t.Error("expected error for remote file without extension")
	}
}

func TestArtworkAndManifestPaths(t *testing.T) {
	r := newTestResolver(func(o *PathOptions) { o.ManifestRoot = "/srv/music" })

	img, err := r.ArtistImagePath("Sigur Rós")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if img != "/srv/music/Metadata/Artists/Sigur Rós/cover.jpg" {
		t.Errorf("unexpected artist image path %q", img)
	}
	if got := r.AlbumCoverPath("/srv/music/Library/A/B"); got != "/srv/music/Library/A/B/cover.jpg" {
		t.Errorf("unexpected cover path %q", got)
	}

	manifest, err := r.ManifestPath("Road Trip")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if manifest != "/srv/music/Metadata/Playlists/Road Trip.m3u8" {
		t.Errorf("unexpected manifest path %q", manifest)
	}

	for _, tt := range []struct{ name, want string }{
		{"Rock & Roll", "/srv/music/Metadata/Playlists/Rock & Roll.m3u8"},
		{"Mix: 80's / 90's", "/srv/music/Metadata/Playlists/Mix 80's 90's.m3u8"},
		{"  Chill\tOut  ", "/srv/music/Metadata/Playlists/Chill Out.m3u8"},
	} {
		got, err := r.ManifestPath(tt.name)
		if err != nil {
			t.Fatalf("ManifestPath(%q) returned %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("ManifestPath(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	for _, bad := range []string{"", "..", "///"} {
		if _, err := r.ManifestPath(bad); err == nil {
			t.Errorf("expected error for playlist name %q", bad)
		}
	}

	if got := r.ManifestEntryPath("/srv/music/Library/A/B/01 - A - x.flac"); got != "Library/A/B/01 - A - x.flac" {
		t.Errorf("expected relative entry, got %q", got)
	}
	if got := r.ManifestEntryPath("/elsewhere/x.flac"); got != "/elsewhere/x.flac" {
		t.Errorf("expected untouched path outside root, got %q", got)
	}
}

func TestPathsUseForwardSlashes(t *testing.T) {
	r := NewPathResolver(PathOptions{
		LibraryRoot:   `C:\Music\Library`,
		ArtworkRoot:   `C:\Music\Art`,
		PlaylistsRoot: `C:\Music\Playlists`,
	})
	d, err := r.AlbumDir(&music.Album{Title: "X", ArtistTitle: "Y", Year: 2001}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(d.Path, `\`) {
		t.Errorf("expected forward slashes only, got %q", d.Path)
	}
}
