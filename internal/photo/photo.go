// Package photo defines the photo value type and the filename codec shared by
// every store. A photo's name embeds its 5-digit sequence number and capture
// timestamp, which is what lets stores be reconciled by listing alone.
package photo

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DailyPhotosDir is the per-project folder photos land under, both in
	// staging and on the cloud remote.
	DailyPhotosDir = "Daily Photos"
	// DailyReviewsDir is the per-project folder daily montages land under on
	// the cloud remote.
	DailyReviewsDir = "Daily Reviews"

	dateLayout  = "2006-01-02"
	clockLayout = "1504"
	monthLayout = "January-2006"
)

// Photo is one captured image with its identity and integrity attributes.
// The path is ephemeral; it changes as the photo moves between stages.
type Photo struct {
	Sequence   int
	CapturedAt time.Time
	Path       string
	Digest     string
	Project    string
}

// Name returns the photo's canonical filename.
func (p Photo) Name() string {
	return Filename(p.Sequence, p.CapturedAt)
}

// Date returns the capture date used for store partitioning.
func (p Photo) Date() string {
	return p.CapturedAt.Format(dateLayout)
}

// Month returns the month-year folder the photo belongs to.
func (p Photo) Month() string {
	return p.CapturedAt.Format(monthLayout)
}

// Filename renders the canonical photo filename: a 5-digit zero-padded
// sequence number, the capture date, and an HHMM clock token.
func Filename(sequence int, capturedAt time.Time) string {
	return fmt.Sprintf("%05d_%s_%s.jpg", sequence, capturedAt.Format(dateLayout), capturedAt.Format(clockLayout))
}

// DatePart formats t the way store partitions are named.
func DatePart(t time.Time) string {
	return t.Format(dateLayout)
}

// MonthPart formats t the way month folders are named.
func MonthPart(t time.Time) string {
	return t.Format(monthLayout)
}

var namePattern = regexp.MustCompile(`^(\d{5})_(\d{4}-\d{2}-\d{2})_(\d{4})\.jpe?g$`)

// ParseSequence extracts the embedded sequence number from a photo filename.
func ParseSequence(name string) (int, bool) {
	m := namePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// ParseCaptureTime reconstructs the capture timestamp from a photo filename.
func ParseCaptureTime(name string) (time.Time, bool) {
	m := namePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(dateLayout+"_"+clockLayout, m[2]+"_"+m[3], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// ClockLabel returns the HH:MM label for a photo filename, used to annotate
// thumbnails.
func ClockLabel(name string) (string, bool) {
	m := namePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", false
	}
	return m[3][:2] + ":" + m[3][2:], true
}

// IsPhotoName reports whether the filename matches the canonical codec.
func IsPhotoName(name string) bool {
	return namePattern.MatchString(filepath.Base(name))
}

// MaxSequenceInDirs walks the given directory trees and returns the highest
// sequence number embedded in any photo filename. Unreadable trees contribute
// nothing; the result is 0 when no photo names are found.
func MaxSequenceInDirs(dirs ...string) int {
	highest := 0
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if seq, ok := ParseSequence(d.Name()); ok && seq > highest {
				highest = seq
			}
			return nil
		})
	}
	return highest
}
