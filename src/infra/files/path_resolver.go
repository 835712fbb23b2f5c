package files

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/contre95/plexmirror/src/features/config"
	"github.com/contre95/plexmirror/src/features/playlists"
	"github.com/contre95/plexmirror/src/music"
	"github.com/gosimple/unidecode"
)

// Strategy selects how album directories are derived.
type Strategy string

const (
	// StrategyName builds <library>/<artist>/<album> [<year>] from sanitized metadata.
	StrategyName Strategy = "name"
	// StrategyStructural reuses the artist/album segments of the remote file path.
	StrategyStructural Strategy = "structural"
)

// PathOptions configures a PathResolver.
type PathOptions struct {
	LibraryRoot   string
	ArtworkRoot   string
	PlaylistsRoot string
	// ManifestRoot makes manifest entries relative to it when set.
	ManifestRoot     string
	Strategy         Strategy
	StructuralMarker string
	CoverFilename    string
	Asciify          bool
	AllowExtended    bool
}

// Derivation is a derived directory plus how it was obtained.
type Derivation struct {
	Path     string
	Strategy Strategy
	// Fallback holds the structural failure when the name strategy had to take over.
	Fallback error
}

// PathResolver maps catalog metadata to canonical local paths.
// It has no side effects; all results use forward slashes.
type PathResolver struct {
	opts PathOptions
}

// NewPathResolver creates a resolver. Roots are cleaned and converted to forward slashes.
func NewPathResolver(opts PathOptions) *PathResolver {
	opts.LibraryRoot = cleanRoot(opts.LibraryRoot)
	opts.ArtworkRoot = cleanRoot(opts.ArtworkRoot)
	opts.PlaylistsRoot = cleanRoot(opts.PlaylistsRoot)
	if opts.ManifestRoot != "" {
		opts.ManifestRoot = cleanRoot(opts.ManifestRoot)
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyName
	}
	if opts.CoverFilename == "" {
		opts.CoverFilename = "cover.jpg"
	}
	return &PathResolver{opts: opts}
}

// NewPathResolverFromConfig creates a resolver with absolute roots taken from cfg.
func NewPathResolverFromConfig(cfg *config.Config) (*PathResolver, error) {
	abs := func(p string) (string, error) {
		if p == "" {
			return "", nil
		}
		return filepath.Abs(p)
	}
	var err error
	opts := PathOptions{
		Strategy:         Strategy(cfg.Download.PathStrategy),
		StructuralMarker: cfg.Download.StructuralMarker,
		CoverFilename:    cfg.Artwork.CoverFilename,
		Asciify:          cfg.Paths.Asciify,
		AllowExtended:    cfg.Paths.AllowExtended,
	}
	if opts.LibraryRoot, err = abs(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to resolve library path: %w", err)
	}
	if opts.ArtworkRoot, err = abs(cfg.ArtworkPath); err != nil {
		return nil, fmt.Errorf("failed to resolve artwork path: %w", err)
	}
	if opts.PlaylistsRoot, err = abs(cfg.PlaylistsPath); err != nil {
		return nil, fmt.Errorf("failed to resolve playlists path: %w", err)
	}
	if opts.ManifestRoot, err = abs(cfg.Manifest.RelativeTo); err != nil {
		return nil, fmt.Errorf("failed to resolve manifest root: %w", err)
	}
	return NewPathResolver(opts), nil
}

func cleanRoot(root string) string {
	return path.Clean(strings.ReplaceAll(root, `\`, "/"))
}

// SanitizeName strips every character outside the allow-list: letters, digits, space, '.', '_', '-'
// and, with AllowExtended, '&', '\'', '(', ')'. Diacritics are kept unless Asciify is set.
// Distinct inputs that differ only in stripped characters collide.
func (r *PathResolver) SanitizeName(raw string) string {
	if r.opts.Asciify {
		raw = unidecode.Unidecode(raw)
	}
	var b strings.Builder
	for _, c := range raw {
		switch {
		case unicode.IsLetter(c), unicode.IsDigit(c):
			b.WriteRune(c)
		case strings.ContainsRune(" ._-", c):
			b.WriteRune(c)
		case r.opts.AllowExtended && strings.ContainsRune("&'()", c):
			b.WriteRune(c)
		}
	}
	name := strings.TrimSpace(b.String())
	// Never let a name walk out of its parent directory.
	if strings.Trim(name, ".") == "" {
		return ""
	}
	return name
}

// AlbumDir derives the directory of album. firstTrack feeds the structural strategy and may be nil.
func (r *PathResolver) AlbumDir(album *music.Album, firstTrack *music.Track) (Derivation, error) {
	var fallback error
	if r.opts.Strategy == StrategyStructural {
		dir, err := r.structuralDir(album.Title, firstTrack)
		if err == nil {
			return Derivation{Path: dir, Strategy: StrategyStructural}, nil
		}
		fallback = err
	}
	dir, err := r.nameDir(album.ArtistTitle, album.Title, album.Year)
	if err != nil {
		if fallback != nil {
			return Derivation{}, fmt.Errorf("%w (after structural fallback: %v)", err, fallback)
		}
		return Derivation{}, err
	}
	return Derivation{Path: dir, Strategy: StrategyName, Fallback: fallback}, nil
}

// TrackDir derives the album directory of a lone track, as used for playlist items.
func (r *PathResolver) TrackDir(track *music.Track) (Derivation, error) {
	return r.AlbumDir(track.Album(), track)
}

func (r *PathResolver) nameDir(artistTitle, albumTitle string, year int) (string, error) {
	artist := r.SanitizeName(artistTitle)
	album := r.SanitizeName(albumTitle)
	if artist == "" || album == "" {
		return "", &music.PathDerivationError{
			Strategy: string(StrategyName),
			Subject:  albumTitle,
			Reason:   fmt.Sprintf("artist %q or album %q is empty after sanitizing", artistTitle, albumTitle),
		}
	}
	if year > 0 {
		album += " [" + strconv.Itoa(year) + "]"
	}
	return path.Join(r.opts.LibraryRoot, artist, album), nil
}

func (r *PathResolver) structuralDir(subject string, track *music.Track) (string, error) {
	fail := func(reason string) error {
		return &music.PathDerivationError{Strategy: string(StrategyStructural), Subject: subject, Reason: reason}
	}
	if track == nil {
		return "", fail("album has no tracks")
	}
	remote := track.File.Path
	if r.opts.StructuralMarker == "" {
		return "", fail("no structural marker configured")
	}
	idx := strings.Index(remote, r.opts.StructuralMarker)
	if idx < 0 {
		return "", fail(fmt.Sprintf("marker %q not found in %q", r.opts.StructuralMarker, remote))
	}
	rest := strings.Trim(remote[idx+len(r.opts.StructuralMarker):], "/")
	segments := strings.Split(rest, "/")
	// artist, album and the file itself
	if len(segments) < 3 {
		return "", fail(fmt.Sprintf("expected <artist>/<album>/<file> after marker in %q", remote))
	}
	artist, album := segments[0], segments[1]
	for _, seg := range []string{artist, album} {
		if strings.Trim(seg, ". ") == "" {
			return "", fail(fmt.Sprintf("unusable path segment %q in %q", seg, remote))
		}
	}
	return path.Join(r.opts.LibraryRoot, artist, album), nil
}

// TrackFilename returns the local file name of track. With keepOriginal the remote base name
// is reused unchanged, otherwise "NN - <artist> - <title>.<ext>" is synthesized.
func (r *PathResolver) TrackFilename(track *music.Track, keepOriginal bool) (string, error) {
	if keepOriginal {
		base := track.File.BaseName()
		if strings.Trim(base, ". /") == "" {
			return "", &music.PathDerivationError{Strategy: "original-name", Subject: track.Title, Reason: "remote file has no base name"}
		}
		return base, nil
	}
	if track.File.Extension == "" {
		return "", &music.PathDerivationError{Strategy: "track-name", Subject: track.Title, Reason: fmt.Sprintf("remote file %q has no extension", track.File.Path)}
	}
	if r.SanitizeName(track.Title) == "" {
		return "", &music.PathDerivationError{Strategy: "track-name", Subject: track.Title, Reason: "title is empty after sanitizing"}
	}
	return r.SanitizeName(fmt.Sprintf("%02d - %s - %s.%s", track.Number, track.ArtistTitle, track.Title, track.File.Extension)), nil
}

// TrackPath joins an album directory and a track file name.
func (r *PathResolver) TrackPath(dir, filename string) string {
	return path.Join(dir, filename)
}

// ArtistImagePath returns <artwork>/<artist>/<cover filename>.
func (r *PathResolver) ArtistImagePath(artistTitle string) (string, error) {
	artist := r.SanitizeName(artistTitle)
	if artist == "" {
		return "", &music.PathDerivationError{Strategy: "artist-image", Subject: artistTitle, Reason: "artist is empty after sanitizing"}
	}
	return path.Join(r.opts.ArtworkRoot, artist, r.opts.CoverFilename), nil
}

// AlbumCoverPath returns <album dir>/<cover filename>.
func (r *PathResolver) AlbumCoverPath(albumDir string) string {
	return path.Join(albumDir, r.opts.CoverFilename)
}

// ManifestPath returns <playlists>/<name>.m3u8. The playlist name is kept as shown in the catalog,
// minus characters no filesystem accepts in a file name.
func (r *PathResolver) ManifestPath(playlistName string) (string, error) {
	name := manifestFileName(playlistName)
	if name == "" {
		return "", &music.PathDerivationError{Strategy: "manifest", Subject: playlistName, Reason: "playlist name is empty after sanitizing"}
	}
	return path.Join(r.opts.PlaylistsRoot, playlists.ManifestName(name)), nil
}

// manifestFileName drops path separators, characters reserved on Windows and control
// characters, then collapses the whitespace runs the removal leaves behind.
func manifestFileName(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		if unicode.IsControl(c) || strings.ContainsRune(`/\:*?"<>|`, c) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c)
	}
	name := strings.Join(strings.Fields(b.String()), " ")
	if strings.Trim(name, ".") == "" {
		return ""
	}
	return name
}

// ManifestEntryPath returns p relative to the manifest root when one is configured and p lies
// below it, otherwise p itself.
func (r *PathResolver) ManifestEntryPath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	if r.opts.ManifestRoot == "" {
		return p
	}
	if p == r.opts.ManifestRoot {
		return "."
	}
	prefix := strings.TrimSuffix(r.opts.ManifestRoot, "/") + "/"
	if strings.HasPrefix(p, prefix) {
		return strings.TrimPrefix(p, prefix)
	}
	return p
}
