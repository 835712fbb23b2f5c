package targets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/plexmirror/src/music"
)

const (
	ArtistsFile   = "artists.txt"
	PlaylistsFile = "playlists.txt"
)

// Object selects which target kinds a run processes.
type Object string

const (
	ObjectArtist   Object = "artist"
	ObjectPlaylist Object = "playlist"
	ObjectAll      Object = "all"
)

// Reader loads download targets from a directory holding one list file per kind.
type Reader struct {
	dir    string
	logger *slog.Logger
}

// NewReader creates a reader for the target lists in dir.
func NewReader(dir string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{dir: dir, logger: logger}
}

// Read returns the targets selected by object, artists first.
// A missing list file yields no targets of that kind.
func (r *Reader) Read(object Object) ([]music.DownloadTarget, error) {
	if object != ObjectArtist && object != ObjectPlaylist && object != ObjectAll {
		return nil, fmt.Errorf("unknown download object %q", object)
	}
	var out []music.DownloadTarget
	if object == ObjectArtist || object == ObjectAll {
		artists, err := r.readKind(ArtistsFile, music.TargetArtist)
		if err != nil {
			return nil, err
		}
		out = append(out, artists...)
	}
	if object == ObjectPlaylist || object == ObjectAll {
		playlists, err := r.readKind(PlaylistsFile, music.TargetPlaylist)
		if err != nil {
			return nil, err
		}
		out = append(out, playlists...)
	}
	return out, nil
}

func (r *Reader) readKind(name string, kind music.TargetKind) ([]music.DownloadTarget, error) {
	p := filepath.Join(r.dir, name)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Target list not found", "kind", kind, "path", p)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open target list %s: %w", p, err)
	}
	defer f.Close()

	names, err := ParseList(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read target list %s: %w", p, err)
	}
	r.logger.Debug("Read target list", "kind", kind, "path", p, "count", len(names))

	out := make([]music.DownloadTarget, 0, len(names))
	for _, n := range names {
		out = append(out, music.DownloadTarget{Kind: kind, Name: n})
	}
	return out, nil
}

// ParseList returns one name per non-blank line, trimmed.
func ParseList(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
