package tag

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSample(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return filepath.ToSlash(p)
}

func padded(header []byte, size int) []byte {
	return append(header, bytes.Repeat([]byte{0}, size-len(header))...)
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(nil)
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr bool
	}{
		{"flac stream", "01.flac", padded([]byte("fLaC"), 256), false},
		{"ogg stream", "01.ogg", padded([]byte("OggS"), 256), false},
		{"mp3 with id3v2", "01.mp3", padded([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), 256), false},
		{"untagged mp3", "01.mp3", padded([]byte{0xFF, 0xFB, 0x90, 0x64}, 256), false},
		{"wav", "01.wav", padded([]byte("RIFF\x24\x00\x00\x00WAVE"), 256), false},
		{"html error page", "01.flac", []byte("<html><body>" + strings.Repeat("502 Bad Gateway ", 20) + "</body></html>"), true},
		{"tiny junk", "01.mp3", []byte("oops"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(writeSample(t, tt.file, tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_MissingFile(t *testing.T) {
	if err := NewValidator(nil).Validate(filepath.Join(t.TempDir(), "missing.flac")); err == nil {
		t.Error("expected error for missing file")
	}
}
