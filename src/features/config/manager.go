package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new ConfigManager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Update replaces the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"library_path_changed", oldConfig.LibraryPath != config.LibraryPath,
			"path_strategy_changed", oldConfig.Download.PathStrategy != config.Download.PathStrategy,
			"workers_changed", oldConfig.Download.Workers != config.Download.Workers,
		)
	}
}

// EnsureDirectories creates the library, artwork and playlist roots if they don't exist.
func (m *Manager) EnsureDirectories() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	for name, dir := range map[string]string{
		"library":   cfg.LibraryPath,
		"artwork":   cfg.ArtworkPath,
		"playlists": cfg.PlaylistsPath,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory %s: %w", name, dir, err)
		}
	}

	slog.Info("Required directories created/verified", "library", cfg.LibraryPath, "artwork", cfg.ArtworkPath, "playlists", cfg.PlaylistsPath)
	return nil
}

// GetYAML returns the current configuration as YAML.
func (m *Manager) GetYAML() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	yamlBytes, err := yaml.Marshal(m.config)
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}

// LogSummary logs the settings that shape a run.
func (m *Manager) LogSummary(logger *slog.Logger) {
	cfg := m.Get()
	logger.Info("Configuration details",
		"library", cfg.LibraryPath,
		"artwork", cfg.ArtworkPath,
		"playlists", cfg.PlaylistsPath,
		"download_enabled", cfg.Download.Enabled,
	)
	if cfg.Download.Enabled {
		logger.Info("Download settings",
			"object", cfg.Download.Object,
			"path_strategy", cfg.Download.PathStrategy,
			"keep_original_name", cfg.Download.KeepOriginalName,
			"artist_images", cfg.Download.FetchArtistImages,
			"workers", cfg.Download.Workers,
			"retries", cfg.Download.Retries,
		)
	}
}
