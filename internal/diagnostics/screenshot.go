package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/nfnt/resize"
)

// MaxWidth caps saved screenshots; taller-than-wide pages keep their ratio
const MaxWidth = 1280

// Screenshotter captures the visible page as an encoded image
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// SaveFailureScreenshot captures the page, downscales it to MaxWidth and
// writes teams_<label>_<timestamp>.png into dir. It never replaces an
// existing file and removes its own output when encoding fails.
func SaveFailureScreenshot(ctx context.Context, s Screenshotter, dir, label string, at time.Time) (string, error) {
	data, err := s.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	if img.Bounds().Dx() > MaxWidth {
		// Height 0 preserves the aspect ratio.
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	path := filepath.Join(dir, fmt.Sprintf("teams_%s_%s.png", label, at.Format("2006-01-02_15-04-05")))
	if err := writePNG(path, img); err != nil {
		return "", err
	}
	return path, nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create screenshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close screenshot: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}
	return nil
}
