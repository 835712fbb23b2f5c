package music

import (
	"fmt"
	"strings"
)

// Playlist is an ordered collection of catalog tracks.
type Playlist struct {
	ID    string
	Name  string
	Items []PlaylistItem
}

// PlaylistItem is one entry of a playlist. Items keep the catalog order.
type PlaylistItem struct {
	Track      *Track
	DurationMs int
}

// TotalDuration returns the total duration of all items in milliseconds.
func (p *Playlist) TotalDuration() int {
	total := 0
	for _, item := range p.Items {
		total += item.DurationMs
	}
	return total
}

// Validate validates the playlist fields.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name cannot be empty")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("playlist name cannot exceed 200 characters, got %d: name -> %s", len(p.Name), p.Name)
	}
	for i, item := range p.Items {
		if item.Track == nil {
			return fmt.Errorf("playlist item at index %d has no track", i)
		}
	}
	return nil
}

// MatchPlaylist returns the first playlist whose name equals name, ignoring case, or nil.
func MatchPlaylist(playlists []*Playlist, name string) *Playlist {
	for _, p := range playlists {
		if p != nil && strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}
