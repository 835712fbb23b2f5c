package music

import (
	"fmt"
	"strings"
)

// Artist is an artist record as returned by the catalog.
type Artist struct {
	ID    string
	Title string
	// Thumb is the catalog handle of the artist image, empty when the catalog has none.
	Thumb string
}

// Validate validates the artist fields.
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("artist title cannot be empty")
	}
	if len(a.Title) > 500 {
		return fmt.Errorf("artist title cannot exceed 500 characters")
	}
	return nil
}

// Artwork returns the artist image reference.
func (a *Artist) Artwork() Artwork {
	return Artwork{Owner: a.Title, Ref: a.Thumb}
}

// MatchArtists keeps every record whose title contains the query, ignoring case.
// The match is deliberately broad: "floyd" matches both "Pink Floyd" and "Floydian Slip".
func MatchArtists(records []*Artist, query string) []*Artist {
	needle := strings.ToLower(strings.TrimSpace(query))
	var matched []*Artist
	for _, artist := range records {
		if artist == nil {
			continue
		}
		if strings.Contains(strings.ToLower(artist.Title), needle) {
			matched = append(matched, artist)
		}
	}
	return matched
}
