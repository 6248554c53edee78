package photo_test

import (
	"path/filepath"
	"testing"
	"time"

	"lapse/internal/photo"
	"lapse/internal/testsupport"
)

func TestExifCaptureTime(t *testing.T) {
	taken := time.Date(2026, time.August, 28, 9, 0, 0, 0, time.Local)
	path := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	testsupport.WriteJPEGWithExif(t, path, taken)

	got, ok := photo.ExifCaptureTime(path)
	if !ok {
		t.Fatal("expected a timestamp from the EXIF block")
	}
	if !got.Equal(taken) {
		t.Errorf("ExifCaptureTime = %v, want %v", got, taken)
	}
}

func TestExifCaptureTimeWithoutExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jpg")
	testsupport.WriteFile(t, path, 64)

	if _, ok := photo.ExifCaptureTime(path); ok {
		t.Fatal("expected no timestamp from an EXIF-free file")
	}
}
