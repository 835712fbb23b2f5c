package music

import (
	"fmt"
	"path"
	"strings"
)

// Track represents a single audio file in the catalog.
type Track struct {
	ID          string
	Title       string
	Number      int
	DurationMs  int
	AlbumTitle  string
	AlbumYear   int
	ArtistTitle string
	AlbumThumb  string
	ArtistThumb string
	File        RemoteFile
}

// RemoteFile is the catalog-side file backing a track.
type RemoteFile struct {
	// Path is the file location on the catalog host, always slash separated.
	Path      string
	Extension string
	// Key is the handle used to transfer the file.
	Key string
	// Size in bytes, 0 when unknown.
	Size int64
}

// NewRemoteFile builds a RemoteFile, taking the extension from the path suffix.
func NewRemoteFile(remotePath, key string, size int64) RemoteFile {
	remotePath = strings.ReplaceAll(remotePath, "\\", "/")
	return RemoteFile{
		Path:      remotePath,
		Extension: strings.TrimPrefix(path.Ext(remotePath), "."),
		Key:       key,
		Size:      size,
	}
}

// BaseName returns the remote file name without its directory.
func (f RemoteFile) BaseName() string {
	if f.Path == "" {
		return ""
	}
	return path.Base(f.Path)
}

// Validate validates the track fields.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("track title cannot be empty")
	}
	if len(t.Title) > 500 {
		return fmt.Errorf("title cannot exceed 500 characters, got %d: title -> %s", len(t.Title), t.Title)
	}
	if t.Number < 0 {
		return fmt.Errorf("track number cannot be negative, got %d", t.Number)
	}
	if t.DurationMs < 0 {
		return fmt.Errorf("duration cannot be negative, got %d", t.DurationMs)
	}
	if t.File.Path == "" {
		return fmt.Errorf("track %q has no remote file", t.Title)
	}
	return nil
}

// Album returns the parent album as far as the track knows it.
func (t *Track) Album() *Album {
	return &Album{
		Title:       t.AlbumTitle,
		Year:        t.AlbumYear,
		ArtistTitle: t.ArtistTitle,
		Thumb:       t.AlbumThumb,
	}
}

// ArtistArtwork returns the image reference of the track's artist.
func (t *Track) ArtistArtwork() Artwork {
	return Artwork{Owner: t.ArtistTitle, Ref: t.ArtistThumb}
}
