package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/contre95/plexmirror/src/features/config"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const defaultQuality = 90

// Service stores artwork as JPEG files, shrinking it when a maximum size is configured.
type Service struct {
	size    int
	quality int
	logger  *slog.Logger
}

// NewService creates a new artwork service. A size of 0 keeps the original dimensions.
func NewService(cfg config.Artwork, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	return &Service{size: cfg.Size, quality: quality, logger: logger}
}

// WriteJPEG reads an image in any supported format (jpeg, png, gif, webp) from r and
// stores it as JPEG at dest. JPEG input that already fits is stored unchanged.
// dest is only replaced once the whole image was written.
func (s *Service) WriteJPEG(r io.Reader, dest string) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read image: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image header: %w", err)
	}

	out := data
	if format != "jpeg" || s.tooLarge(cfg) {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("failed to decode %s image: %w", format, err)
		}
		if s.size > 0 {
			img = resize.Thumbnail(uint(s.size), uint(s.size), img, resize.Lanczos3)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
			return 0, fmt.Errorf("failed to encode artwork image: %w", err)
		}
		out = buf.Bytes()
		s.logger.Debug("Converted artwork", "from", format, "width", cfg.Width, "height", cfg.Height, "path", dest)
	}

	if err := writeAtomic(dest, out); err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

func (s *Service) tooLarge(cfg image.Config) bool {
	return s.size > 0 && (cfg.Width > s.size || cfg.Height > s.size)
}

func writeAtomic(dest string, data []byte) error {
	native := filepath.FromSlash(dest)
	if err := os.MkdirAll(filepath.Dir(native), 0755); err != nil {
		return fmt.Errorf("failed to create artwork directory: %w", err)
	}
	tmp := native + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write artwork file: %w", err)
	}
	if err := os.Rename(tmp, native); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move artwork into place: %w", err)
	}
	return nil
}
