package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// PhotoDimensions decodes just enough of the image to learn its pixel size.
func PhotoDimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata: failed to open %s: %w", path, err)
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata: failed to decode dimensions of %s: %w", path, err)
	}
	return config.Width, config.Height, nil
}

// AspectRatio returns width/height for the image at path.
func AspectRatio(path string) (float64, error) {
	w, h, err := PhotoDimensions(path)
	if err != nil {
		return 0, err
	}
	if h == 0 {
		return 0, fmt.Errorf("metadata: %s reports zero height", path)
	}
	return float64(w) / float64(h), nil
}

// CaptureDate reads the EXIF capture timestamp. Images without EXIF data
// are common; the second return value reports whether a date was found.
func CaptureDate(path string) (time.Time, bool) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer file.Close()

	exifData, err := exif.Decode(file)
	if err != nil {
		return time.Time{}, false
	}
	dt, err := exifData.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return dt, true
}
