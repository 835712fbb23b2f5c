package downloading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contre95/plexmirror/src/features/config"
	"github.com/contre95/plexmirror/src/infra/files"
	"github.com/contre95/plexmirror/src/music"
)

// State is the lifecycle state of the orchestrator.
type State string

const (
	StateIdle              State = "idle"
	StateProcessingTargets State = "processing_targets"
	StateDone              State = "done"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a download run is already in progress")

// AudioValidator checks a freshly transferred audio file.
type AudioValidator interface {
	Validate(path string) error
}

// Options tunes the orchestrator.
type Options struct {
	KeepOriginalName  bool
	FetchArtistImages bool
	// Workers bounds concurrent transfers. 1 processes items one by one.
	Workers int
	// Retries is the number of extra attempts after a failed transfer.
	Retries    int
	RetryDelay time.Duration
}

// OptionsFromConfig maps the download configuration to Options.
func OptionsFromConfig(cfg config.Download) Options {
	return Options{
		KeepOriginalName:  cfg.KeepOriginalName,
		FetchArtistImages: cfg.FetchArtistImages,
		Workers:           cfg.Workers,
		Retries:           cfg.Retries,
		RetryDelay:        2 * time.Second,
	}
}

// Service mirrors artists and playlists from the catalog into the local library.
type Service struct {
	logger    *slog.Logger
	catalog   music.CatalogService
	paths     *files.PathResolver
	store     *files.Store
	validator AudioValidator
	opts      Options

	mu    sync.Mutex
	state State
	// artist names whose image was already attempted during the current run
	imagesSeen map[string]struct{}
	pathLocks  sync.Map
}

// NewService creates a new download orchestrator. validator may be nil.
func NewService(logger *slog.Logger, catalog music.CatalogService, paths *files.PathResolver, store *files.Store, validator AudioValidator, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Service{
		logger:    logger,
		catalog:   catalog,
		paths:     paths,
		store:     store,
		validator: validator,
		opts:      opts,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run processes targets in order. A failing target never stops the others.
// The returned error is non-nil only when ctx was cancelled or another run is active;
// per-item failures are reported through the RunReport.
func (s *Service) Run(ctx context.Context, targets []music.DownloadTarget) (*RunReport, error) {
	s.mu.Lock()
	if s.state == StateProcessingTargets {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.state = StateProcessingTargets
	s.imagesSeen = make(map[string]struct{})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateDone
		s.mu.Unlock()
	}()

	report := &RunReport{StartedAt: time.Now()}
	s.logger.Info("Starting download run", "targets", len(targets), "workers", s.opts.Workers)
	for _, target := range targets {
		if ctx.Err() != nil {
			s.logger.Warn("Run cancelled, not scheduling remaining targets", "next", target.String())
			break
		}
		report.Targets = append(report.Targets, s.processTarget(ctx, target))
	}
	report.FinishedAt = time.Now()

	s.logger.Info("Download run finished",
		"targets", len(report.Targets),
		"failedTargets", report.FailedTargets(),
		"transferred", report.Count(OutcomeTransferred),
		"existing", report.Count(OutcomeExisting),
		"failed", report.Count(OutcomeFailed),
		"duration", report.Duration().Round(time.Millisecond).String(),
	)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("download run interrupted: %w", err)
	}
	return report, nil
}

func (s *Service) processTarget(ctx context.Context, target music.DownloadTarget) *TargetReport {
	report := &TargetReport{Target: target}
	switch target.Kind {
	case music.TargetArtist:
		s.processArtistTarget(ctx, report)
	case music.TargetPlaylist:
		s.processPlaylistTarget(ctx, report)
	default:
		report.Err = fmt.Errorf("unsupported target kind %q", target.Kind)
		s.logger.Error("Skipping target", "target", target.String(), "error", report.Err)
	}
	return report
}

func (s *Service) processArtistTarget(ctx context.Context, report *TargetReport) {
	query := report.Target.Name
	logger := s.logger.With("target", query)

	records, err := s.catalog.Search(ctx, query, music.SearchArtist)
	if err != nil {
		report.Err = fmt.Errorf("failed to search artist %q: %w", query, err)
		logger.Error("Artist search failed", "error", err)
		return
	}
	matched := music.MatchArtists(records, query)
	if len(matched) == 0 {
		report.Err = &music.NotFoundError{Kind: "artist", Query: query}
		logger.Warn("No artist matched", "results", len(records))
		return
	}

	for _, artist := range matched {
		if ctx.Err() != nil {
			return
		}
		report.Matched = append(report.Matched, artist.Title)
		s.processArtist(ctx, artist, report)
	}
}

func (s *Service) processArtist(ctx context.Context, artist *music.Artist, report *TargetReport) {
	logger := s.logger.With("artist", artist.Title)
	logger.Info("Processing artist")

	if s.opts.FetchArtistImages {
		if res, attempted := s.artistImage(ctx, artist.Artwork()); attempted {
			report.add(res)
		}
	}

	albums, err := s.catalog.Albums(ctx, artist)
	if err != nil {
		logger.Error("Failed to list albums", "error", err)
		report.add(ItemResult{Kind: ItemArtist, Name: artist.Title, Outcome: OutcomeFailed, Err: fmt.Errorf("failed to list albums of %q: %w", artist.Title, err)})
		return
	}
	for _, album := range albums {
		if ctx.Err() != nil {
			return
		}
		if album.ArtistTitle == "" {
			album.ArtistTitle = artist.Title
		}
		report.add(s.processAlbum(ctx, album)...)
	}
}

func (s *Service) processAlbum(ctx context.Context, album *music.Album) []ItemResult {
	logger := s.logger.With("artist", album.ArtistTitle, "album", album.Title)
	failed := func(err error) []ItemResult {
		logger.Error("Skipping album", "error", err)
		return []ItemResult{{Kind: ItemAlbum, Name: album.Title, Outcome: OutcomeFailed, Err: err}}
	}

	tracks, err := s.catalog.Tracks(ctx, album)
	if err != nil {
		return failed(fmt.Errorf("failed to list tracks of %q: %w", album.Title, err))
	}
	var first *music.Track
	if len(tracks) > 0 {
		first = tracks[0]
	}
	derivation, err := s.paths.AlbumDir(album, first)
	if err != nil {
		return failed(err)
	}
	if derivation.Fallback != nil {
		logger.Warn("Structural path unusable, using name based path", "reason", derivation.Fallback, "path", derivation.Path)
	}
	if err := s.store.EnsureDir(derivation.Path); err != nil {
		return failed(err)
	}

	results := make([]ItemResult, len(tracks))
	s.forEach(ctx, len(tracks), func(ctx context.Context, i int) {
		results[i] = s.transferTrack(ctx, tracks[i], derivation.Path)
	})
	results = compact(results)

	if ctx.Err() == nil {
		results = append(results, s.albumCover(ctx, album, derivation.Path))
	}
	logger.Debug("Album processed", "path", derivation.Path, "tracks", len(tracks))
	return results
}

func (s *Service) processPlaylistTarget(ctx context.Context, report *TargetReport) {
	name := report.Target.Name
	logger := s.logger.With("playlist", name)

	playlist, err := s.catalog.GetPlaylist(ctx, name)
	if err != nil {
		report.Err = fmt.Errorf("failed to look up playlist %q: %w", name, err)
		logger.Error("Playlist lookup failed", "error", err)
		return
	}
	if playlist == nil {
		report.Err = &music.NotFoundError{Kind: "playlist", Query: name}
		logger.Warn("Playlist not found")
		return
	}
	report.Matched = append(report.Matched, playlist.Name)
	logger.Info("Processing playlist", "items", len(playlist.Items),
		"duration", (time.Duration(playlist.TotalDuration())*time.Millisecond).String())

	entries := make([]manifestSlot, len(playlist.Items))
	perItem := make([][]ItemResult, len(playlist.Items))
	s.forEach(ctx, len(playlist.Items), func(ctx context.Context, i int) {
		entries[i], perItem[i] = s.playlistItem(ctx, playlist.Items[i])
	})
	for _, results := range perItem {
		report.add(results...)
	}

	if ctx.Err() != nil {
		logger.Warn("Run cancelled, manifest not written")
		return
	}
	report.add(s.writeManifest(playlist.Name, entries))
}

func (s *Service) playlistItem(ctx context.Context, item music.PlaylistItem) (manifestSlot, []ItemResult) {
	track := item.Track
	if track == nil {
		return manifestSlot{}, []ItemResult{{Kind: ItemTrack, Outcome: OutcomeFailed, Err: errors.New("playlist item has no track")}}
	}
	slot := manifestSlot{track: track, durationMs: item.DurationMs}
	if slot.durationMs == 0 {
		slot.durationMs = track.DurationMs
	}

	var results []ItemResult
	trackResult := s.playlistTrack(ctx, track)
	if trackResult.Resolved() {
		slot.path = trackResult.Path
	}
	results = append(results, trackResult)

	// The artist image is attempted whatever happened to the audio.
	if s.opts.FetchArtistImages {
		if res, attempted := s.artistImage(ctx, track.ArtistArtwork()); attempted {
			results = append(results, res)
		}
	}
	return slot, results
}

func (s *Service) playlistTrack(ctx context.Context, track *music.Track) ItemResult {
	derivation, err := s.paths.TrackDir(track)
	if err != nil {
		s.logger.Error("Skipping playlist track", "artist", track.ArtistTitle, "track", track.Title, "error", err)
		return ItemResult{Kind: ItemTrack, Name: track.Title, Outcome: OutcomeFailed, Err: err}
	}
	if derivation.Fallback != nil {
		s.logger.Debug("Structural path unusable, using name based path", "track", track.Title, "reason", derivation.Fallback)
	}
	if err := s.store.EnsureDir(derivation.Path); err != nil {
		s.logger.Error("Skipping playlist track", "artist", track.ArtistTitle, "track", track.Title, "error", err)
		return ItemResult{Kind: ItemTrack, Name: track.Title, Outcome: OutcomeFailed, Err: err}
	}
	return s.transferTrack(ctx, track, derivation.Path)
}
