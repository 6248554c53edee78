package photo

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ExifCaptureTime reads the capture timestamp a camera embedded in a JPEG's
// EXIF block, preferring DateTimeOriginal. Files without a readable timestamp
// report false.
func ExifCaptureTime(path string) (time.Time, bool) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer file.Close()

	meta, err := exif.Decode(file)
	if err != nil {
		return time.Time{}, false
	}
	taken, err := meta.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return taken, true
}
