package config

import "fmt"

// ConfigurationError reports a missing or malformed configuration. It is fatal.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CredentialError reports missing or malformed credentials. It is fatal.
type CredentialError struct {
	Path string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials %s: %v", e.Path, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }
