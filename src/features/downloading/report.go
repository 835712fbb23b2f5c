package downloading

import (
	"errors"
	"time"

	"github.com/contre95/plexmirror/src/music"
)

// ItemKind identifies what an ItemResult refers to.
type ItemKind string

const (
	ItemArtist      ItemKind = "artist"
	ItemAlbum       ItemKind = "album"
	ItemTrack       ItemKind = "track"
	ItemAlbumCover  ItemKind = "album_cover"
	ItemArtistImage ItemKind = "artist_image"
	ItemManifest    ItemKind = "manifest"
)

// Outcome is the result of processing a single item.
type Outcome string

const (
	// OutcomeTransferred means the file was fetched during this run.
	OutcomeTransferred Outcome = "transferred"
	// OutcomeExisting means the canonical path already existed and no transfer was issued.
	OutcomeExisting Outcome = "existing"
	OutcomeFailed   Outcome = "failed"
	// OutcomeSkipped means there was nothing to transfer, e.g. an entity without artwork.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeWritten and OutcomeUnchanged apply to manifests.
	OutcomeWritten   Outcome = "written"
	OutcomeUnchanged Outcome = "unchanged"
)

// ItemResult is the outcome of one track, image, album or manifest step.
type ItemResult struct {
	Kind    ItemKind
	Name    string
	Path    string
	Outcome Outcome
	Size    int64
	Err     error
}

// Resolved reports whether the item has a usable local file.
func (r ItemResult) Resolved() bool {
	return r.Outcome == OutcomeTransferred || r.Outcome == OutcomeExisting
}

// TargetReport collects the results of a single download target.
type TargetReport struct {
	Target music.DownloadTarget
	// Matched holds the catalog titles the target resolved to.
	Matched []string
	Items   []ItemResult
	// Err is set when the target itself could not be resolved.
	Err error
}

func (t *TargetReport) add(results ...ItemResult) {
	t.Items = append(t.Items, results...)
}

// Count returns how many items of the target ended with outcome.
func (t *TargetReport) Count(outcome Outcome) int {
	n := 0
	for _, item := range t.Items {
		if item.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed reports whether the target or any of its items failed.
func (t *TargetReport) Failed() bool {
	return t.Err != nil || t.Count(OutcomeFailed) > 0
}

// RunReport is the aggregate of one orchestrator run.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Targets    []*TargetReport
}

// Count returns how many items across all targets ended with outcome.
func (r *RunReport) Count(outcome Outcome) int {
	n := 0
	for _, t := range r.Targets {
		n += t.Count(outcome)
	}
	return n
}

// FailedTargets returns how many targets had at least one failure.
func (r *RunReport) FailedTargets() int {
	n := 0
	for _, t := range r.Targets {
		if t.Failed() {
			n++
		}
	}
	return n
}

// Err joins every target and item error of the run, or returns nil.
func (r *RunReport) Err() error {
	var errs []error
	for _, t := range r.Targets {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
		for _, item := range t.Items {
			if item.Err != nil {
				errs = append(errs, item.Err)
			}
		}
	}
	return errors.Join(errs...)
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
