package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credentials holds the secrets needed to reach the catalog.
type Credentials struct {
	Plex PlexCredentials `yaml:"plex"`
}

// PlexCredentials holds the Plex server address and token.
type PlexCredentials struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// LoadCredentials reads the credentials file at path. PLEX_URL and PLEX_TOKEN override the file.
// A missing file is accepted when both variables are set.
func LoadCredentials(path string) (*Credentials, error) {
	var creds Credentials
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &creds); err != nil {
			return nil, &CredentialError{Path: path, Err: fmt.Errorf("error parsing credentials file: %w", err)}
		}
	case os.IsNotExist(err):
		if os.Getenv("PLEX_URL") == "" || os.Getenv("PLEX_TOKEN") == "" {
			return nil, &CredentialError{Path: path, Err: fmt.Errorf("credentials file not found")}
		}
	default:
		return nil, &CredentialError{Path: path, Err: err}
	}

	if url := os.Getenv("PLEX_URL"); url != "" {
		creds.Plex.URL = url
	}
	if token := os.Getenv("PLEX_TOKEN"); token != "" {
		creds.Plex.Token = token
	}

	creds.Plex.URL = strings.TrimSuffix(strings.TrimSpace(creds.Plex.URL), "/")
	creds.Plex.Token = strings.TrimSpace(creds.Plex.Token)
	if creds.Plex.URL == "" || creds.Plex.Token == "" {
		return nil, &CredentialError{Path: path, Err: fmt.Errorf("plex url or token not found in credentials")}
	}
	return &creds, nil
}
