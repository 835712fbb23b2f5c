package config

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		LibraryPath:   "./music/Library",
		ArtworkPath:   "./music/Metadata/Artists",
		PlaylistsPath: "./music/Metadata/Playlists",
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Download: Download{
			Enabled:           true,
			Object:            "artist",
			TargetsDir:        "./targets",
			PathStrategy:      "name",
			StructuralMarker:  "/Music/",
			KeepOriginalName:  false,
			FetchArtistImages: true,
			Workers:           1,
			Retries:           0,
			ValidateAudio:     false,
		},
		Paths: Paths{
			Asciify:       false,
			AllowExtended: false,
		},
		Artwork: Artwork{
			CoverFilename: "cover.jpg",
			Size:          0,
			Quality:       90,
		},
		Manifest: Manifest{
			RelativeTo: "./music",
		},
		Plex: Plex{
			Section: "Music",
			Timeout: 120,
		},
		Jobs: Jobs{
			Log:     true,
			LogPath: "./logs/runs",
			Webhooks: WebhookConfig{
				Enabled: false,
				Command: "",
			},
		},
		Metrics: Metrics{
			Textfile: "",
		},
		History: History{
			Enabled: false,
			Path:    "./history.db",
		},
	}
}

// applyDefaults fills zero values a hand-written config file may leave out.
func applyDefaults(cfg *Config) {
	def := createDefaultConfig()
	if cfg.Download.Object == "" {
		cfg.Download.Object = def.Download.Object
	}
	if cfg.Download.TargetsDir == "" {
		cfg.Download.TargetsDir = def.Download.TargetsDir
	}
	if cfg.Download.PathStrategy == "" {
		cfg.Download.PathStrategy = def.Download.PathStrategy
	}
	if cfg.Download.StructuralMarker == "" {
		cfg.Download.StructuralMarker = def.Download.StructuralMarker
	}
	if cfg.Download.Workers == 0 {
		cfg.Download.Workers = def.Download.Workers
	}
	if cfg.Artwork.CoverFilename == "" {
		cfg.Artwork.CoverFilename = def.Artwork.CoverFilename
	}
	if cfg.Artwork.Quality == 0 {
		cfg.Artwork.Quality = def.Artwork.Quality
	}
	if cfg.Plex.Section == "" {
		cfg.Plex.Section = def.Plex.Section
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = def.Logger.Level
	}
	if cfg.Jobs.LogPath == "" {
		cfg.Jobs.LogPath = def.Jobs.LogPath
	}
	if cfg.History.Path == "" {
		cfg.History.Path = def.History.Path
	}
}
