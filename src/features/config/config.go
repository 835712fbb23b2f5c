package config

// Config holds the application configuration.
type Config struct {
	LibraryPath   string   `yaml:"libraryPath" validate:"required"`
	ArtworkPath   string   `yaml:"artworkPath" validate:"required"`
	PlaylistsPath string   `yaml:"playlistsPath" validate:"required"`
	Logger        Logger   `yaml:"logger"`
	Download      Download `yaml:"download"`
	Paths         Paths    `yaml:"paths"`
	Artwork       Artwork  `yaml:"artwork"`
	Manifest      Manifest `yaml:"manifest"`
	Plex          Plex     `yaml:"plex"`
	Jobs          Jobs     `yaml:"jobs"`
	Metrics       Metrics  `yaml:"metrics"`
	History       History  `yaml:"history"`
}

// Download holds the configuration of the download orchestrator.
type Download struct {
	Enabled bool `yaml:"enabled"`
	// Object selects which target lists are processed.
	Object     string `yaml:"object" validate:"oneof=artist playlist all"`
	TargetsDir string `yaml:"targets_dir" validate:"required"`
	// PathStrategy is "name" (sanitized metadata) or "structural" (remote path reuse).
	PathStrategy      string `yaml:"path_strategy" validate:"oneof=name structural"`
	StructuralMarker  string `yaml:"structural_marker"`
	KeepOriginalName  bool   `yaml:"keep_original_name"`
	FetchArtistImages bool   `yaml:"fetch_artist_images"`
	Workers           int    `yaml:"workers" validate:"min=1,max=32"`
	Retries           int    `yaml:"retries" validate:"min=0,max=10"`
	ValidateAudio     bool   `yaml:"validate_audio"`
}

// Paths holds the sanitization policy for derived names.
type Paths struct {
	// Asciify transliterates diacritics before sanitizing ("Rós" -> "Ros").
	Asciify bool `yaml:"asciify"`
	// AllowExtended keeps & ' ( ) in sanitized names.
	AllowExtended bool `yaml:"allow_extended"`
}

// Artwork holds configuration for cover and artist images.
type Artwork struct {
	CoverFilename string `yaml:"cover_filename" validate:"required"`
	Size          int    `yaml:"size" validate:"min=0"`
	Quality       int    `yaml:"quality" validate:"min=1,max=100"`
}

// Manifest holds configuration for emitted playlist manifests.
type Manifest struct {
	// RelativeTo makes manifest paths relative to this directory when set.
	RelativeTo string `yaml:"relative_to"`
}

// Plex holds the non-secret Plex settings. Credentials live in the credentials file.
type Plex struct {
	Section string `yaml:"section" validate:"required"`
	Timeout int    `yaml:"timeout_seconds" validate:"min=0"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

type Jobs struct {
	Log      bool          `yaml:"log"`
	LogPath  string        `yaml:"log_path"`
	Webhooks WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
}

// Metrics holds the Prometheus textfile export settings.
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// History holds the optional run history database settings.
type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
