package music

import (
	"fmt"
	"strings"
)

// Album represents a collection of tracks by a single artist.
type Album struct {
	ID          string
	Title       string
	Year        int
	ArtistTitle string
	Thumb       string
}

// Validate validates the album fields.
func (a *Album) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("album title cannot be empty")
	}
	if len(a.Title) > 500 {
		return fmt.Errorf("album title cannot exceed 500 characters")
	}
	if a.Year < 0 {
		return fmt.Errorf("year cannot be negative, got %d", a.Year)
	}
	return nil
}

// Artwork returns the album cover reference.
func (a *Album) Artwork() Artwork {
	return Artwork{Owner: a.Title, Ref: a.Thumb}
}

// Artwork points to an image the catalog can transfer.
type Artwork struct {
	// Owner is the display title of the artist or album the image belongs to.
	Owner string
	Ref   string
}

// IsZero reports whether the catalog has no image for the owner.
func (a Artwork) IsZero() bool {
	return a.Ref == ""
}
