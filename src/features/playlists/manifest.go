package playlists

import (
	"fmt"
	"strings"
)

const (
	manifestHeader = "#EXTM3U"
	// ManifestExt is the suffix of every written manifest.
	ManifestExt = ".m3u8"
)

// ManifestEntry is one playlist item as it appears in a manifest.
// An empty Path means the item has no local file and is left out.
type ManifestEntry struct {
	DurationMs int
	// Subtitle is the parent title shown before the track title, usually the artist.
	Subtitle string
	Title    string
	Path     string
}

// Seconds returns the entry duration in whole seconds, rounded down.
func (e ManifestEntry) Seconds() int {
	if e.DurationMs <= 0 {
		return 0
	}
	return e.DurationMs / 1000
}

// BuildManifest renders entries as an extended M3U document.
// Entries without a path are skipped; the others keep their relative order.
func BuildManifest(entries []ManifestEntry) string {
	var builder strings.Builder
	builder.WriteString(manifestHeader)
	builder.WriteString("\n")
	for _, entry := range entries {
		if entry.Path == "" {
			continue
		}
		builder.WriteString(fmt.Sprintf("#EXTINF:%d,%s - %s\n", entry.Seconds(), entry.Subtitle, entry.Title))
		builder.WriteString(entry.Path)
		builder.WriteString("\n")
	}
	return builder.String()
}

// ManifestName returns the artifact file name for a playlist.
func ManifestName(playlistName string) string {
	return playlistName + ManifestExt
}

// CountEntries returns how many entries BuildManifest would emit.
func CountEntries(entries []ManifestEntry) int {
	n := 0
	for _, entry := range entries {
		if entry.Path != "" {
			n++
		}
	}
	return n
}
