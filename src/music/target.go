package music

// TargetKind tags a download target.
type TargetKind string

const (
	TargetArtist   TargetKind = "artist"
	TargetPlaylist TargetKind = "playlist"
)

// DownloadTarget is a single entry of a target list.
type DownloadTarget struct {
	Kind TargetKind
	Name string
}

func (t DownloadTarget) String() string {
	return string(t.Kind) + ":" + t.Name
}
