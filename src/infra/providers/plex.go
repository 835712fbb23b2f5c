package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/contre95/plexmirror/src/features/config"
	"github.com/contre95/plexmirror/src/music"
	"github.com/dustin/go-humanize"
)

// Ensure PlexCatalog implements CatalogService
var _ music.CatalogService = (*PlexCatalog)(nil)

const (
	plexTypeArtist = 8
	partSuffix     = ".part"
)

// ImageWriter stores a fetched image as JPEG at dest.
type ImageWriter interface {
	WriteJPEG(r io.Reader, dest string) (int64, error)
}

// PlexCatalog implements music.CatalogService against a Plex Media Server.
type PlexCatalog struct {
	URL     string
	Token   string
	Section string

	client *http.Client
	// timeout bounds metadata requests. Transfers are bounded by their context only.
	timeout time.Duration
	images  ImageWriter
	logger  *slog.Logger

	mu         sync.Mutex
	sectionKey string
	// album years by rating key, filled while browsing and by playlist lookups
	albumYears map[string]int
}

// NewPlexCatalog creates a new Plex catalog for the music section named in cfg.
func NewPlexCatalog(creds config.PlexCredentials, cfg config.Plex, images ImageWriter, logger *slog.Logger) *PlexCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	// Only the wait for headers is bounded; a track body may stream for longer than timeout.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &PlexCatalog{
		URL:        strings.TrimSuffix(creds.URL, "/"),
		Token:      creds.Token,
		Section:    cfg.Section,
		client:     &http.Client{Transport: transport},
		timeout:    timeout,
		images:     images,
		logger:     logger,
		albumYears: make(map[string]int),
	}
}

// Plex JSON payloads

type plexContainer struct {
	MediaContainer struct {
		Directory []plexDirectory `json:"Directory"`
		Metadata  []plexMetadata  `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexDirectory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type plexMetadata struct {
	RatingKey        string      `json:"ratingKey"`
	Type             string      `json:"type"`
	Title            string      `json:"title"`
	Index            int         `json:"index"`
	Year             int         `json:"year"`
	ParentYear       int         `json:"parentYear"`
	ParentRatingKey  string      `json:"parentRatingKey"`
	Duration         int         `json:"duration"`
	Thumb            string      `json:"thumb"`
	ParentTitle      string      `json:"parentTitle"`
	ParentThumb      string      `json:"parentThumb"`
	GrandparentTitle string      `json:"grandparentTitle"`
	GrandparentThumb string      `json:"grandparentThumb"`
	OriginalTitle    string      `json:"originalTitle"`
	Media            []plexMedia `json:"Media"`
}

type plexMedia struct {
	Part []plexPart `json:"Part"`
}

type plexPart struct {
	Key  string `json:"key"`
	File string `json:"file"`
	Size int64  `json:"size"`
}

// Ping checks that the server is reachable, the token is accepted and the music section exists.
func (p *PlexCatalog) Ping(ctx context.Context) error {
	if _, err := p.section(ctx); err != nil {
		return err
	}
	p.logger.Info("Connected to Plex", "url", p.URL, "section", p.Section)
	return nil
}

// Search returns the artists of the music section Plex finds for query.
func (p *PlexCatalog) Search(ctx context.Context, query string, kind music.SearchKind) ([]*music.Artist, error) {
	if kind != music.SearchArtist {
		return nil, fmt.Errorf("unsupported search kind %q", kind)
	}
	key, err := p.section(ctx)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("type", fmt.Sprint(plexTypeArtist))
	params.Set("query", query)

	var result plexContainer
	if err := p.getJSON(ctx, "/library/sections/"+key+"/search", params, &result); err != nil {
		return nil, fmt.Errorf("failed to search artists: %w", err)
	}
	artists := make([]*music.Artist, 0, len(result.MediaContainer.Metadata))
	for _, m := range result.MediaContainer.Metadata {
		artist := &music.Artist{ID: m.RatingKey, Title: m.Title, Thumb: m.Thumb}
		if err := artist.Validate(); err != nil {
			p.logger.Warn("Ignoring invalid artist record", "id", m.RatingKey, "error", err)
			continue
		}
		artists = append(artists, artist)
	}
	p.logger.Debug("Plex artist search", "query", query, "results", len(artists))
	return artists, nil
}

// GetPlaylist returns the first audio playlist whose title equals name ignoring case, or nil.
func (p *PlexCatalog) GetPlaylist(ctx context.Context, name string) (*music.Playlist, error) {
	params := url.Values{}
	params.Set("playlistType", "audio")

	var result plexContainer
	if err := p.getJSON(ctx, "/playlists", params, &result); err != nil {
		return nil, fmt.Errorf("failed to get playlists: %w", err)
	}
	var playlists []*music.Playlist
	for _, m := range result.MediaContainer.Metadata {
		playlists = append(playlists, &music.Playlist{ID: m.RatingKey, Name: m.Title})
	}
	playlist := music.MatchPlaylist(playlists, name)
	if playlist == nil {
		return nil, nil
	}

	var items plexContainer
	if err := p.getJSON(ctx, "/playlists/"+playlist.ID+"/items", nil, &items); err != nil {
		return nil, fmt.Errorf("failed to get items of playlist %q: %w", playlist.Name, err)
	}
	for _, m := range items.MediaContainer.Metadata {
		if m.Type != "" && m.Type != "track" {
			continue
		}
		track := toTrack(m)
		if track.AlbumYear == 0 && m.ParentRatingKey != "" {
			year, err := p.albumYear(ctx, m.ParentRatingKey)
			if err != nil {
				return nil, fmt.Errorf("failed to get album of %q: %w", track.Title, err)
			}
			track.AlbumYear = year
		}
		playlist.Items = append(playlist.Items, music.PlaylistItem{Track: track, DurationMs: track.DurationMs})
	}
	if err := playlist.Validate(); err != nil {
		return nil, err
	}
	return playlist, nil
}

// Albums returns the albums of artist.
func (p *PlexCatalog) Albums(ctx context.Context, artist *music.Artist) ([]*music.Album, error) {
	var result plexContainer
	if err := p.getJSON(ctx, "/library/metadata/"+artist.ID+"/children", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get albums: %w", err)
	}
	albums := make([]*music.Album, 0, len(result.MediaContainer.Metadata))
	for _, m := range result.MediaContainer.Metadata {
		artistTitle := m.ParentTitle
		if artistTitle == "" {
			artistTitle = artist.Title
		}
		album := &music.Album{
			ID:          m.RatingKey,
			Title:       m.Title,
			Year:        m.Year,
			ArtistTitle: artistTitle,
			Thumb:       m.Thumb,
		}
		if err := album.Validate(); err != nil {
			p.logger.Warn("Ignoring invalid album record", "artist", artist.Title, "id", m.RatingKey, "error", err)
			continue
		}
		p.rememberYear(album.ID, album.Year)
		albums = append(albums, album)
	}
	return albums, nil
}

// albumYear returns the release year of the album with the given rating key.
// Playlist items often lack parentYear.
func (p *PlexCatalog) albumYear(ctx context.Context, key string) (int, error) {
	p.mu.Lock()
	year, ok := p.albumYears[key]
	p.mu.Unlock()
	if ok {
		return year, nil
	}

	var result plexContainer
	if err := p.getJSON(ctx, "/library/metadata/"+key, nil, &result); err != nil {
		return 0, err
	}
	if len(result.MediaContainer.Metadata) > 0 {
		year = result.MediaContainer.Metadata[0].Year
	}
	p.rememberYear(key, year)
	return year, nil
}

func (p *PlexCatalog) rememberYear(key string, year int) {
	if key == "" {
		return
	}
	p.mu.Lock()
	p.albumYears[key] = year
	p.mu.Unlock()
}

// Tracks returns the tracks of album in disc order.
func (p *PlexCatalog) Tracks(ctx context.Context, album *music.Album) ([]*music.Track, error) {
	var result plexContainer
	if err := p.getJSON(ctx, "/library/metadata/"+album.ID+"/children", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get tracks: %w", err)
	}
	tracks := make([]*music.Track, 0, len(result.MediaContainer.Metadata))
	for _, m := range result.MediaContainer.Metadata {
		track := toTrack(m)
		if track.AlbumYear == 0 {
			track.AlbumYear = album.Year
		}
		if track.AlbumThumb == "" {
			track.AlbumThumb = album.Thumb
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func toTrack(m plexMetadata) *music.Track {
	track := &music.Track{
		ID:          m.RatingKey,
		Title:       m.Title,
		Number:      m.Index,
		DurationMs:  m.Duration,
		AlbumTitle:  m.ParentTitle,
		AlbumYear:   m.ParentYear,
		ArtistTitle: m.GrandparentTitle,
		AlbumThumb:  m.ParentThumb,
		ArtistThumb: m.GrandparentThumb,
	}
	if len(m.Media) > 0 && len(m.Media[0].Part) > 0 {
		part := m.Media[0].Part[0]
		track.File = music.NewRemoteFile(part.File, part.Key, part.Size)
	}
	return track
}

// TransferTrack downloads the first media part of track to destinationPath.
func (p *PlexCatalog) TransferTrack(ctx context.Context, track *music.Track, destinationPath string) error {
	if track.File.Key == "" {
		return fmt.Errorf("track %q has no downloadable part", track.Title)
	}
	params := url.Values{}
	params.Set("download", "1")
	resp, err := p.do(ctx, track.File.Key, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	n, err := writeStream(resp.Body, destinationPath)
	if err != nil {
		return err
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		os.Remove(filepath.FromSlash(destinationPath))
		return fmt.Errorf("short download: got %d of %d bytes", n, resp.ContentLength)
	}
	p.logger.Debug("Downloaded track", "track", track.Title, "size", humanize.Bytes(uint64(n)))
	return nil
}

// TransferImage downloads art and stores it as JPEG at destinationPath.
func (p *PlexCatalog) TransferImage(ctx context.Context, art music.Artwork, destinationPath string) error {
	if art.IsZero() {
		return fmt.Errorf("%q has no image", art.Owner)
	}
	resp, err := p.do(ctx, art.Ref, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if p.images == nil {
		_, err := writeStream(resp.Body, destinationPath)
		return err
	}
	n, err := p.images.WriteJPEG(resp.Body, destinationPath)
	if err != nil {
		return err
	}
	p.logger.Debug("Downloaded image", "owner", art.Owner, "size", humanize.Bytes(uint64(n)))
	return nil
}

// section resolves and caches the key of the configured music section.
func (p *PlexCatalog) section(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sectionKey != "" {
		return p.sectionKey, nil
	}

	var result plexContainer
	if err := p.getJSON(ctx, "/library/sections", nil, &result); err != nil {
		return "", fmt.Errorf("failed to list library sections: %w", err)
	}
	var available []string
	for _, dir := range result.MediaContainer.Directory {
		if dir.Type != "artist" {
			continue
		}
		if strings.EqualFold(dir.Title, p.Section) {
			p.sectionKey = dir.Key
			return dir.Key, nil
		}
		available = append(available, dir.Title)
	}
	return "", fmt.Errorf("music section %q not found (available: %s)", p.Section, strings.Join(available, ", "))
}

func (p *PlexCatalog) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	resp, err := p.do(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// do issues an authenticated GET. Non-2xx responses are returned as errors.
func (p *PlexCatalog) do(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	target := p.URL + path
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", p.Token)
	req.Header.Set("X-Plex-Product", "plexmirror")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, &config.CredentialError{Path: p.URL, Err: fmt.Errorf("plex rejected token: %s", resp.Status)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s - %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// writeStream copies r to dest via a .part file renamed on success.
func writeStream(r io.Reader, dest string) (int64, error) {
	native := filepath.FromSlash(dest)
	if err := os.MkdirAll(filepath.Dir(native), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := native + partSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, native); err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

// IsCredentialError reports whether err was caused by rejected Plex credentials.
func IsCredentialError(err error) bool {
	var credErr *config.CredentialError
	return errors.As(err, &credErr)
}
