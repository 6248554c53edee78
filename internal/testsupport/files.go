package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// jpegSOI is the JPEG start-of-image marker, so fixture files resemble real
// captures to anything that sniffs content.
var jpegSOI = []byte{0xff, 0xd8, 0xff, 0xe0}

// WriteFile fills the target path with the requested number of bytes,
// prefixed with a JPEG marker. Sizes smaller than the marker write the
// truncated marker alone.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	data := make([]byte, size)
	n := copy(data, jpegSOI)
	for i := n; i < len(data); i++ {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteJPEGWithExif writes a minimal JPEG whose APP1 EXIF block carries taken
// as the DateTime tag, the way a camera stamps its files.
func WriteJPEGWithExif(t testing.TB, path string, taken time.Time) {
	t.Helper()

	stamp := taken.Format("2006:01:02 15:04:05")

	var tiff bytes.Buffer
	tiff.WriteString("MM\x00\x2a")             // big-endian TIFF header
	tiff.Write([]byte{0, 0, 0, 8})             // IFD0 offset
	tiff.Write([]byte{0, 1})                   // one directory entry
	tiff.Write([]byte{0x01, 0x32})             // DateTime tag
	tiff.Write([]byte{0, 2})                   // ASCII
	tiff.Write([]byte{0, 0, 0, 20})            // value length
	tiff.Write([]byte{0, 0, 0, 26})            // value offset
	tiff.Write([]byte{0, 0, 0, 0})             // no next IFD
	tiff.WriteString(stamp)
	tiff.WriteByte(0)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var file bytes.Buffer
	file.Write([]byte{0xff, 0xd8, 0xff, 0xe1}) // SOI + APP1 marker
	app1Len := len(payload) + 2
	file.Write([]byte{byte(app1Len >> 8), byte(app1Len)})
	file.Write(payload)
	file.Write([]byte{0xff, 0xd9}) // EOI

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, file.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
