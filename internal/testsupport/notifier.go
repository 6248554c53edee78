package testsupport

import (
	"context"
	"fmt"
	"sync"
)

// RecordingNotifier satisfies notifications.Service and records every event
// for assertions.
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []string

	// Insistent collects the insistent flag of every free-form Notify call.
	Insistent []bool
}

func (r *RecordingNotifier) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
}

// Has reports whether an event with the given prefix was recorded.
func (r *RecordingNotifier) Has(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.Events {
		if len(event) >= len(prefix) && event[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

func (r *RecordingNotifier) Notify(ctx context.Context, message string, insistent bool) error {
	r.mu.Lock()
	r.Insistent = append(r.Insistent, insistent)
	r.mu.Unlock()
	r.record("notify: " + message)
	return nil
}

func (r *RecordingNotifier) NotifyCaptureFailed(ctx context.Context, err error) error {
	r.record(fmt.Sprintf("capture_failed: %v", err))
	return nil
}

func (r *RecordingNotifier) NotifyUploadFailed(ctx context.Context, filename string, err error) error {
	r.record("upload_failed: " + filename)
	return nil
}

func (r *RecordingNotifier) NotifyBackupFailed(ctx context.Context, filename string, err error) error {
	r.record("backup_failed: " + filename)
	return nil
}

func (r *RecordingNotifier) NotifyPhotoStored(ctx context.Context, filename string) error {
	r.record("photo_stored: " + filename)
	return nil
}

func (r *RecordingNotifier) NotifySyncReport(ctx context.Context, date string, local, already, uploaded, failed int) error {
	r.record(fmt.Sprintf("sync_report: %s local=%d already=%d uploaded=%d failed=%d", date, local, already, uploaded, failed))
	return nil
}

func (r *RecordingNotifier) NotifyMontageReady(ctx context.Context, date, path string) error {
	r.record("montage_ready: " + date)
	return nil
}

func (r *RecordingNotifier) NotifyNoThumbnails(ctx context.Context, date string) error {
	r.record("no_thumbnails: " + date)
	return nil
}

func (r *RecordingNotifier) TestNotification(ctx context.Context) error {
	r.record("test")
	return nil
}
