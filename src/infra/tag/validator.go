package tag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Validator checks that a transferred file is an audio container and not, for example,
// an error page saved under an audio name.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a new Validator
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate identifies the container of the file at path.
func (v *Validator) Validate(path string) error {
	file, err := os.Open(filepath.FromSlash(path))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	format, fileType, err := tag.Identify(file)
	if err != nil {
		// Untagged streams carry no metadata block but are still audio.
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			return fmt.Errorf("failed to rewind file: %w", serr)
		}
		if kind, ok := sniffRaw(file); ok {
			v.logger.Debug("Untagged audio file", "path", path, "container", kind)
			return nil
		}
		if errors.Is(err, tag.ErrNoTagsFound) {
			return fmt.Errorf("unrecognised audio container")
		}
		return fmt.Errorf("failed to identify audio file: %w", err)
	}
	if fileType == tag.UnknownFileType {
		// MP4 brands other than M4A/M4B/M4P, e.g. isom or mp42
		if format != tag.MP4 {
			return fmt.Errorf("unrecognised %s container", format)
		}
		fileType = tag.M4A
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "" && !matchesExtension(fileType, ext) {
		v.logger.Warn("Audio container does not match extension", "path", path, "container", fileType, "extension", ext)
	}

	if _, err := file.Seek(0, io.SeekStart); err == nil {
		if m, err := tag.ReadFrom(file); err == nil {
			v.logger.Debug("Validated audio file", "path", path, "container", fileType, "title", m.Title(), "artist", m.Artist())
		}
	}
	return nil
}

func matchesExtension(fileType tag.FileType, ext string) bool {
	switch fileType {
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return ext == "m4a" || ext == "m4b" || ext == "m4p" || ext == "mp4" || ext == "alac"
	case tag.OGG:
		return ext == "ogg" || ext == "oga" || ext == "opus"
	default:
		return strings.EqualFold(string(fileType), ext)
	}
}

// sniffRaw recognises audio streams without a tag block.
func sniffRaw(r io.Reader) (string, bool) {
	header := make([]byte, 12)
	n, _ := io.ReadFull(r, header)
	header = header[:n]
	switch {
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return "mpeg", true
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return "wav", true
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("FORM")) && (bytes.Equal(header[8:12], []byte("AIFF")) || bytes.Equal(header[8:12], []byte("AIFC"))):
		return "aiff", true
	case len(header) >= 4 && bytes.Equal(header[0:4], []byte("fLaC")):
		return "flac", true
	}
	return "", false
}
