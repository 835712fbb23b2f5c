package downloading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/contre95/plexmirror/src/features/playlists"
	"github.com/contre95/plexmirror/src/music"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// manifestSlot holds a playlist item until the manifest is flushed in catalog order.
type manifestSlot struct {
	track      *music.Track
	durationMs int
	path       string
}

// forEach runs fn for 0..n-1 with at most Workers calls in flight.
// Once ctx is cancelled no further indexes are scheduled.
func (s *Service) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

// compact drops slots that were never scheduled.
func compact(results []ItemResult) []ItemResult {
	out := results[:0]
	for _, r := range results {
		if r.Kind != "" {
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) transferTrack(ctx context.Context, track *music.Track, dir string) ItemResult {
	if err := track.Validate(); err != nil {
		s.logger.Error("Skipping invalid track record", "artist", track.ArtistTitle, "album", track.AlbumTitle, "track", track.Title, "error", err)
		return ItemResult{Kind: ItemTrack, Name: track.Title, Outcome: OutcomeFailed, Err: err}
	}
	filename, err := s.paths.TrackFilename(track, s.opts.KeepOriginalName)
	if err != nil {
		s.logger.Error("Skipping track", "artist", track.ArtistTitle, "album", track.AlbumTitle, "track", track.Title, "error", err)
		return ItemResult{Kind: ItemTrack, Name: track.Title, Outcome: OutcomeFailed, Err: err}
	}
	dest := s.paths.TrackPath(dir, filename)
	return s.ensure(ctx, ItemTrack, track.Title, dest, track.File.Size, func(ctx context.Context) error {
		return s.catalog.TransferTrack(ctx, track, dest)
	})
}

func (s *Service) albumCover(ctx context.Context, album *music.Album, dir string) ItemResult {
	dest := s.paths.AlbumCoverPath(dir)
	art := album.Artwork()
	if art.IsZero() && !s.store.Exists(dest) {
		s.logger.Debug("Album has no cover", "artist", album.ArtistTitle, "album", album.Title)
		return ItemResult{Kind: ItemAlbumCover, Name: album.Title, Path: dest, Outcome: OutcomeSkipped}
	}
	return s.ensure(ctx, ItemAlbumCover, album.Title, dest, 0, func(ctx context.Context) error {
		return s.catalog.TransferImage(ctx, art, dest)
	})
}

// artistImage attempts the image of an artist at most once per run.
// It reports false when the artist was already handled.
func (s *Service) artistImage(ctx context.Context, art music.Artwork) (ItemResult, bool) {
	s.mu.Lock()
	if _, seen := s.imagesSeen[art.Owner]; seen {
		s.mu.Unlock()
		return ItemResult{}, false
	}
	s.imagesSeen[art.Owner] = struct{}{}
	s.mu.Unlock()

	dest, err := s.paths.ArtistImagePath(art.Owner)
	if err != nil {
		s.logger.Error("Skipping artist image", "artist", art.Owner, "error", err)
		return ItemResult{Kind: ItemArtistImage, Name: art.Owner, Outcome: OutcomeFailed, Err: err}, true
	}
	if art.IsZero() && !s.store.Exists(dest) {
		s.logger.Debug("Artist has no image", "artist", art.Owner)
		return ItemResult{Kind: ItemArtistImage, Name: art.Owner, Path: dest, Outcome: OutcomeSkipped}, true
	}
	return s.ensure(ctx, ItemArtistImage, art.Owner, dest, 0, func(ctx context.Context) error {
		return s.catalog.TransferImage(ctx, art, dest)
	}), true
}

// ensure makes sure dest exists, calling transfer only when it does not.
// A file that fails verification is removed so it cannot pass a later existence check.
func (s *Service) ensure(ctx context.Context, kind ItemKind, name, dest string, expectedSize int64, transfer func(context.Context) error) ItemResult {
	result := ItemResult{Kind: kind, Name: name, Path: dest}
	unlock := s.lockPath(dest)
	defer unlock()
	if s.store.Exists(dest) {
		s.logger.Debug("Already present, skipping transfer", "kind", kind, "name", name, "path", dest)
		result.Outcome = OutcomeExisting
		return result
	}

	var err error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("Retrying transfer", "kind", kind, "name", name, "attempt", attempt, "error", err)
			if werr := wait(ctx, time.Duration(attempt)*s.opts.RetryDelay); werr != nil {
				err = werr
				break
			}
		}
		if err = transfer(ctx); err == nil {
			result.Size, err = s.verify(kind, dest, expectedSize)
		}
		if err == nil || ctx.Err() != nil {
			break
		}
		if rerr := s.store.Remove(dest); rerr != nil {
			s.logger.Warn("Failed to remove incomplete file", "path", dest, "error", rerr)
		}
	}
	if err != nil {
		if rerr := s.store.Remove(dest); rerr != nil {
			s.logger.Warn("Failed to remove incomplete file", "path", dest, "error", rerr)
		}
		result.Outcome = OutcomeFailed
		result.Err = &music.TransferError{Kind: string(kind), Name: name, Path: dest, Err: err}
		s.logger.Error("Transfer failed", "kind", kind, "name", name, "path", dest, "error", err)
		return result
	}

	result.Outcome = OutcomeTransferred
	s.logger.Info("Transferred", "kind", kind, "name", name, "path", dest, "size", humanize.Bytes(uint64(result.Size)))
	return result
}

// lockPath serializes work on one destination, e.g. a track listed twice in a playlist.
func (s *Service) lockPath(dest string) func() {
	v, _ := s.pathLocks.LoadOrStore(dest, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) verify(kind ItemKind, dest string, expectedSize int64) (int64, error) {
	size, err := s.store.CheckSize(dest, expectedSize)
	if err != nil {
		return size, err
	}
	if kind == ItemTrack && s.validator != nil {
		if err := s.validator.Validate(dest); err != nil {
			return size, fmt.Errorf("invalid audio file: %w", err)
		}
	}
	return size, nil
}

func (s *Service) writeManifest(name string, slots []manifestSlot) ItemResult {
	result := ItemResult{Kind: ItemManifest, Name: name}
	dest, err := s.paths.ManifestPath(name)
	if err != nil {
		s.logger.Error("Skipping manifest", "playlist", name, "error", err)
		result.Outcome, result.Err = OutcomeFailed, err
		return result
	}
	result.Path = dest

	entries := make([]playlists.ManifestEntry, 0, len(slots))
	for _, slot := range slots {
		if slot.track == nil {
			continue
		}
		entry := playlists.ManifestEntry{
			DurationMs: slot.durationMs,
			Subtitle:   slot.track.ArtistTitle,
			Title:      slot.track.Title,
		}
		if slot.path != "" {
			entry.Path = s.paths.ManifestEntryPath(slot.path)
		}
		entries = append(entries, entry)
	}

	changed, err := s.store.WriteFile(dest, []byte(playlists.BuildManifest(entries)))
	if err != nil {
		s.logger.Error("Failed to write manifest", "playlist", name, "path", dest, "error", err)
		result.Outcome, result.Err = OutcomeFailed, err
		return result
	}
	result.Outcome = OutcomeUnchanged
	if changed {
		result.Outcome = OutcomeWritten
	}
	s.logger.Info("Manifest ready", "playlist", name, "path", dest, "entries", playlists.CountEntries(entries), "of", len(slots), "changed", changed)
	return result
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return nil
}
