package music

import (
	"context"
)

// SearchKind selects the record type of a catalog search.
type SearchKind string

const (
	SearchArtist SearchKind = "artist"
)

// CatalogService is the remote media library the library is mirrored from.
type CatalogService interface {
	// Search returns the records the catalog considers relevant for query.
	// Callers apply their own matching rule on top.
	Search(ctx context.Context, query string, kind SearchKind) ([]*Artist, error)
	// GetPlaylist returns the playlist named name, or nil, nil when there is none.
	GetPlaylist(ctx context.Context, name string) (*Playlist, error)
	Albums(ctx context.Context, artist *Artist) ([]*Album, error)
	Tracks(ctx context.Context, album *Album) ([]*Track, error)
	// TransferTrack writes the audio of track to destinationPath.
	TransferTrack(ctx context.Context, track *Track, destinationPath string) error
	// TransferImage writes art to destinationPath as a JPEG file.
	TransferImage(ctx context.Context, art Artwork, destinationPath string) error
}
